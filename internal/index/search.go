package index

import (
	"math"
	"sort"
	"strings"

	"github.com/flemzord/mnemo/internal/record"
)

// Sort selects the result ordering. The default composite ordering applies
// the relevance×access×recency ranking law; date and access bypass it.
type Sort string

// Sort modes.
const (
	SortRelevance Sort = "relevance"
	SortDate      Sort = "date"
	SortAccess    Sort = "access"
)

// DateRange bounds createdAt, inclusive on both ends (epoch millis).
type DateRange struct {
	Start int64 `json:"start"`
	End   int64 `json:"end"`
}

// Filters narrow a query. All present filters combine with AND.
type Filters struct {
	Type         record.MemoryType `json:"type,omitempty"`
	Tags         []string          `json:"tags,omitempty"`
	DateRange    *DateRange        `json:"dateRange,omitempty"`
	MinRelevance float64           `json:"minRelevance,omitempty"`
}

// Query is one search request.
type Query struct {
	Text     string  `json:"query"`
	Limit    int     `json:"limit"`
	Filters  Filters `json:"filters"`
	SortBy   Sort    `json:"sortBy,omitempty"`
	Semantic bool    `json:"useSemantic,omitempty"`
}

const recencyHalfDays = 30.0

// Search answers a query against the index and store, returning matching
// memories in rank order. Invalid filter ranges yield an empty result set
// rather than an error (lenient-filter policy).
func (ix *Index) Search(q Query, store *record.Store, now int64) []*record.Memory {
	if q.Filters.DateRange != nil && q.Filters.DateRange.Start > q.Filters.DateRange.End {
		return nil
	}

	tokens := Tokenize(q.Text)

	var candidates []*record.Memory
	if len(tokens) == 0 {
		candidates = store.All()
	} else {
		seen := make(map[string]struct{})
		for _, tok := range tokens {
			for id := range ix.hits(tok) {
				seen[id] = struct{}{}
			}
		}
		for id := range seen {
			if m, ok := store.Get(id); ok {
				candidates = append(candidates, m)
			}
		}
	}

	type scored struct {
		m     *record.Memory
		score float64
	}
	var results []scored

	total := store.Len()
	for _, m := range candidates {
		if !matchesFilters(m, q.Filters) {
			continue
		}

		base := 1.0
		if len(tokens) > 0 {
			if q.Semantic {
				base = ix.tfidfScore(m, tokens, total)
			} else {
				base = lexicalScore(m, tokens)
			}
			if base == 0 {
				continue
			}
		}

		results = append(results, scored{m: m, score: composite(base, m, now)})
	}

	switch q.SortBy {
	case SortDate:
		sort.Slice(results, func(i, j int) bool {
			if results[i].m.UpdatedAt != results[j].m.UpdatedAt {
				return results[i].m.UpdatedAt > results[j].m.UpdatedAt
			}
			return results[i].m.ID < results[j].m.ID
		})
	case SortAccess:
		sort.Slice(results, func(i, j int) bool {
			if results[i].m.AccessCount != results[j].m.AccessCount {
				return results[i].m.AccessCount > results[j].m.AccessCount
			}
			return results[i].m.ID < results[j].m.ID
		})
	default:
		sort.Slice(results, func(i, j int) bool {
			if results[i].score != results[j].score {
				return results[i].score > results[j].score
			}
			return results[i].m.ID < results[j].m.ID
		})
	}

	if q.Limit > 0 && len(results) > q.Limit {
		results = results[:q.Limit]
	}

	out := make([]*record.Memory, len(results))
	for i, r := range results {
		out[i] = r.m
	}
	return out
}

// composite applies the single ranking law: base score scaled by caller
// relevance, access frequency, and recency decay over lastAccessed.
func composite(base float64, m *record.Memory, now int64) float64 {
	days := float64(now-m.LastAccessed) / (24 * 60 * 60 * 1000)
	if days < 0 {
		days = 0
	}
	return base * m.RelevanceScore * (1 + float64(m.AccessCount)*0.1) * math.Exp(-days/recencyHalfDays)
}

// lexicalScore sums per-token field weights: 3 for a title hit, 2 for a
// content hit, 1 for a hit in any tag.
func lexicalScore(m *record.Memory, tokens []string) float64 {
	title := strings.ToLower(m.Title)
	content := strings.ToLower(m.Content)

	var score float64
	for _, tok := range tokens {
		if strings.Contains(title, tok) {
			score += 3
		}
		if strings.Contains(content, tok) {
			score += 2
		}
		for _, tag := range m.Tags {
			if strings.Contains(strings.ToLower(tag), tok) {
				score++
				break
			}
		}
	}
	return score
}

// tfidfScore computes classic TF-IDF over the concatenated title, content,
// and tags of the candidate document, summed across query tokens.
func (ix *Index) tfidfScore(m *record.Memory, tokens []string, totalDocs int) float64 {
	doc := Tokenize(m.Title + " " + m.Content + " " + strings.Join(m.Tags, " "))
	tf := make(map[string]int, len(doc))
	for _, tok := range doc {
		tf[tok]++
	}

	var score float64
	for _, tok := range tokens {
		freq := tf[tok]
		if freq == 0 {
			continue
		}
		df := ix.documentFrequency(tok)
		if df == 0 || totalDocs == 0 {
			continue
		}
		score += float64(freq) * math.Log(float64(totalDocs)/float64(df))
	}
	return score
}

func matchesFilters(m *record.Memory, f Filters) bool {
	if f.Type != "" && m.Type != f.Type {
		return false
	}
	if len(f.Tags) > 0 && !anyTagMatch(m.Tags, f.Tags) {
		return false
	}
	if f.DateRange != nil && (m.CreatedAt < f.DateRange.Start || m.CreatedAt > f.DateRange.End) {
		return false
	}
	if f.MinRelevance > 0 && m.RelevanceScore < f.MinRelevance {
		return false
	}
	return true
}

// anyTagMatch reports whether any filter tag matches any memory tag by
// case-insensitive substring.
func anyTagMatch(memTags, filterTags []string) bool {
	for _, ft := range filterTags {
		want := strings.ToLower(ft)
		for _, mt := range memTags {
			if strings.Contains(strings.ToLower(mt), want) {
				return true
			}
		}
	}
	return false
}
