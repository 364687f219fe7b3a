// Package organize computes pairwise similarity across memories to find
// duplicates, builds relatedness clusters, derives a tag hierarchy, and
// plans safe auto-merges and archival.
package organize

import (
	"math"
	"strings"

	"github.com/flemzord/mnemo/internal/index"
	"github.com/flemzord/mnemo/internal/record"
)

// Blend weights for the duplicate-detection metric. Jaccard captures
// vocabulary overlap robust to length differences, cosine captures weighted
// term importance, edit distance catches near-verbatim duplicates the first
// two under-score.
const (
	jaccardWeight = 0.4
	cosineWeight  = 0.4
	editWeight    = 0.2
)

// Relatedness weights (broader than duplication, used for clustering).
const (
	relTagWeight     = 0.3
	relContentWeight = 0.4
	relTitleWeight   = 0.2
	relTimeWeight    = 0.1

	relTimeScaleMillis = 7 * 24 * 60 * 60 * 1000 // 7 days
)

// Similarity blends Jaccard, cosine, and normalized edit distance into one
// [0,1] score. Word sets and term frequencies are built from content plus
// tags; edit distance runs over the raw content strings. Records with
// identical content score 1.0 outright, whatever their tags, so they always
// land on the merge path.
func Similarity(a, b *record.Memory) float64 {
	ca := strings.ToLower(a.Content)
	cb := strings.ToLower(b.Content)
	if ca != "" && ca == cb {
		return 1
	}

	ta := termFreq(a)
	tb := termFreq(b)

	j := jaccard(ta, tb)
	c := cosine(ta, tb)
	e := 1 - normalizedEditDistance(a.Content, b.Content)

	return jaccardWeight*j + cosineWeight*c + editWeight*e
}

// Relatedness combines tag overlap, content similarity, title similarity,
// and a time-decay term over the records' update times.
func Relatedness(a, b *record.Memory) float64 {
	tags := jaccardSets(tagSet(a.Tags), tagSet(b.Tags))
	content := Similarity(a, b)
	title := jaccardSets(index.TokenSet(a.Title), index.TokenSet(b.Title))

	delta := math.Abs(float64(a.UpdatedAt - b.UpdatedAt))
	recency := math.Exp(-delta / relTimeScaleMillis)

	return relTagWeight*tags + relContentWeight*content + relTitleWeight*title + relTimeWeight*recency
}

// termFreq builds the term-frequency vector for a memory: content tokens
// plus each lower-cased tag counted once.
func termFreq(m *record.Memory) map[string]int {
	tf := make(map[string]int)
	for _, tok := range index.Tokenize(m.Content) {
		tf[tok]++
	}
	for tag := range tagSet(m.Tags) {
		tf[tag]++
	}
	return tf
}

func tagSet(tags []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			set[t] = struct{}{}
		}
	}
	return set
}

func jaccard(a, b map[string]int) float64 {
	sa := make(map[string]struct{}, len(a))
	for k := range a {
		sa[k] = struct{}{}
	}
	sb := make(map[string]struct{}, len(b))
	for k := range b {
		sb[k] = struct{}{}
	}
	return jaccardSets(sa, sb)
}

func jaccardSets(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	intersection := 0
	for k := range a {
		if _, ok := b[k]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// cosine computes cosine similarity of two term-frequency vectors over their
// union vocabulary.
func cosine(a, b map[string]int) float64 {
	var dot, magA, magB float64
	for k, va := range a {
		magA += float64(va) * float64(va)
		if vb, ok := b[k]; ok {
			dot += float64(va) * float64(vb)
		}
	}
	for _, vb := range b {
		magB += float64(vb) * float64(vb)
	}
	if magA == 0 || magB == 0 {
		return 0
	}
	return dot / (math.Sqrt(magA) * math.Sqrt(magB))
}

// normalizedEditDistance returns Levenshtein distance divided by the longer
// string's rune length, so 0 means identical and 1 means nothing shared.
func normalizedEditDistance(a, b string) float64 {
	ra := []rune(strings.ToLower(a))
	rb := []rune(strings.ToLower(b))
	longest := max(len(ra), len(rb))
	if longest == 0 {
		return 0
	}
	return float64(levenshtein(ra, rb)) / float64(longest)
}

// levenshtein computes edit distance with a two-row dynamic program.
func levenshtein(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}
