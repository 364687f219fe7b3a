package organize

import (
	"fmt"
	"sort"
	"strings"

	"github.com/flemzord/mnemo/internal/index"
	"github.com/flemzord/mnemo/internal/record"
)

// Action is the suggested disposition for a duplicate pair.
type Action string

// Suggested actions.
const (
	ActionMerge        Action = "merge"
	ActionKeepBoth     Action = "keep_both"
	ActionArchiveOlder Action = "archive_older"
)

// DuplicatePair reports two memories whose similarity exceeds the duplicate
// threshold, with a suggested disposition.
type DuplicatePair struct {
	AID             string  `json:"aId"`
	BID             string  `json:"bId"`
	Similarity      float64 `json:"similarity"`
	SuggestedAction Action  `json:"suggestedAction"`
	MergedContent   string  `json:"mergedContent,omitempty"`
}

// Cluster is a derived grouping of related memories. Never a source of
// truth; always recomputable from the memories themselves.
type Cluster struct {
	ID         string   `json:"id"`
	Theme      string   `json:"theme"`
	MemberIDs  []string `json:"memberIds"`
	Confidence float64  `json:"confidence"`
	Keywords   []string `json:"keywords,omitempty"`
	Summary    string   `json:"summary"`
}

// Policy carries the organization thresholds. All values are configuration,
// not derived from any optimization; see config defaults.
type Policy struct {
	DuplicateThreshold   float64 // report pairs above this (default 0.75)
	KeepBothThreshold    float64 // below this and above report: merge by default (default 0.8)
	MergeThreshold       float64 // auto-merge pairs above this (default 0.9)
	NearIdentical        float64 // always merge above this (default 0.95)
	RelatednessThreshold float64 // cluster membership floor (default 0.6)
	ClusterConfidence    float64 // auto-materialise clusters above this (default 0.8)
	ArchiveAfterDays     int     // age floor for archive candidates (default 90)
	MaxArchivesPerRun    int     // safety cap (default 10)
	MaxClusterMembers    int     // related memories collected per seed (default 8)
}

// DefaultPolicy returns the stock thresholds.
func DefaultPolicy() Policy {
	return Policy{
		DuplicateThreshold:   0.75,
		KeepBothThreshold:    0.8,
		MergeThreshold:       0.9,
		NearIdentical:        0.95,
		RelatednessThreshold: 0.6,
		ClusterConfidence:    0.8,
		ArchiveAfterDays:     90,
		MaxArchivesPerRun:    10,
		MaxClusterMembers:    8,
	}
}

// Organizer runs the similarity, clustering, and hygiene passes.
type Organizer struct {
	policy Policy
}

// NewOrganizer creates an organizer with the given policy.
func NewOrganizer(policy Policy) *Organizer {
	return &Organizer{policy: policy}
}

// FindDuplicates exhaustively compares all memory pairs and reports those
// above the duplicate threshold, strongest first. O(n²), acceptable at
// personal-scale volumes; a known limitation for very large stores.
func (o *Organizer) FindDuplicates(memories []*record.Memory) []DuplicatePair {
	ordered := sortByID(memories)

	var pairs []DuplicatePair
	for i := 0; i < len(ordered); i++ {
		for j := i + 1; j < len(ordered); j++ {
			a, b := ordered[i], ordered[j]
			sim := Similarity(a, b)
			if sim < o.policy.DuplicateThreshold {
				continue
			}
			action := o.suggestAction(a, b, sim)
			pair := DuplicatePair{
				AID:             a.ID,
				BID:             b.ID,
				Similarity:      sim,
				SuggestedAction: action,
			}
			if action == ActionMerge {
				pair.MergedContent = MergedContent(a, b)
			}
			pairs = append(pairs, pair)
		}
	}

	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].Similarity != pairs[j].Similarity {
			return pairs[i].Similarity > pairs[j].Similarity
		}
		return pairs[i].AID < pairs[j].AID
	})
	return pairs
}

// suggestAction applies the disposition rules in order: near-identical and
// fully nested records merge, a much longer rewrite archives the older one,
// clearly similar but distinct records are kept, and everything else in the
// reported band defaults to merge.
func (o *Organizer) suggestAction(a, b *record.Memory, sim float64) Action {
	if sim > o.policy.NearIdentical {
		return ActionMerge
	}

	fullA := a.Title + " " + a.Content
	fullB := b.Title + " " + b.Content
	if fullA != fullB && (strings.Contains(fullA, fullB) || strings.Contains(fullB, fullA)) {
		return ActionMerge
	}

	older, newer := a, b
	if b.CreatedAt < a.CreatedAt {
		older, newer = b, a
	}
	if newer.CreatedAt > older.CreatedAt && float64(len(newer.Content)) >= 1.5*float64(len(older.Content)) {
		return ActionArchiveOlder
	}

	if sim > o.policy.KeepBothThreshold {
		return ActionKeepBoth
	}
	return ActionMerge
}

// MergedContent combines two records' contents. A fully nested record
// contributes nothing new; otherwise contents are concatenated.
func MergedContent(a, b *record.Memory) string {
	if strings.Contains(a.Content, b.Content) {
		return a.Content
	}
	if strings.Contains(b.Content, a.Content) {
		return b.Content
	}
	return a.Content + "\n\n" + b.Content
}

// BuildClusters greedily groups related memories. Each seed collects up to
// MaxClusterMembers memories above the relatedness threshold; a cluster is
// emitted when at least two related memories are found, and every member is
// marked processed so no memory appears in two clusters.
func (o *Organizer) BuildClusters(memories []*record.Memory) []Cluster {
	ordered := sortByID(memories)
	processed := make(map[string]bool, len(ordered))

	var clusters []Cluster
	for _, seed := range ordered {
		if processed[seed.ID] {
			continue
		}

		type candidate struct {
			m     *record.Memory
			score float64
		}
		var related []candidate
		for _, other := range ordered {
			if other.ID == seed.ID || processed[other.ID] {
				continue
			}
			if score := Relatedness(seed, other); score > o.policy.RelatednessThreshold {
				related = append(related, candidate{m: other, score: score})
			}
		}
		if len(related) < 2 {
			continue
		}

		sort.Slice(related, func(i, j int) bool {
			if related[i].score != related[j].score {
				return related[i].score > related[j].score
			}
			return related[i].m.ID < related[j].m.ID
		})
		if len(related) > o.policy.MaxClusterMembers {
			related = related[:o.policy.MaxClusterMembers]
		}

		members := []*record.Memory{seed}
		for _, c := range related {
			members = append(members, c.m)
		}
		for _, m := range members {
			processed[m.ID] = true
		}

		clusters = append(clusters, o.buildCluster(seed.ID, members))
	}
	return clusters
}

func (o *Organizer) buildCluster(seedID string, members []*record.Memory) Cluster {
	ids := make([]string, len(members))
	for i, m := range members {
		ids[i] = m.ID
	}

	// Confidence is the mean pairwise relatedness among members.
	var sum float64
	var n int
	for i := 0; i < len(members); i++ {
		for j := i + 1; j < len(members); j++ {
			sum += Relatedness(members[i], members[j])
			n++
		}
	}
	confidence := 0.0
	if n > 0 {
		confidence = sum / float64(n)
	}

	keywords := topKeywords(members, 5)
	theme := clusterTheme(members, keywords)

	return Cluster{
		ID:         "cluster:" + seedID,
		Theme:      theme,
		MemberIDs:  ids,
		Confidence: confidence,
		Keywords:   keywords,
		Summary:    fmt.Sprintf("%d related memories about %s", len(members), theme),
	}
}

// topKeywords returns the n most frequent content tokens across members.
func topKeywords(members []*record.Memory, n int) []string {
	freq := make(map[string]int)
	for _, m := range members {
		for _, tok := range index.Tokenize(m.Title + " " + m.Content) {
			freq[tok]++
		}
	}

	type kw struct {
		word  string
		count int
	}
	ranked := make([]kw, 0, len(freq))
	for w, c := range freq {
		ranked = append(ranked, kw{word: w, count: c})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].count != ranked[j].count {
			return ranked[i].count > ranked[j].count
		}
		return ranked[i].word < ranked[j].word
	})
	if len(ranked) > n {
		ranked = ranked[:n]
	}

	out := make([]string, len(ranked))
	for i, k := range ranked {
		out[i] = k.word
	}
	return out
}

// clusterTheme picks the most common tag across members, falling back to the
// top keyword.
func clusterTheme(members []*record.Memory, keywords []string) string {
	tagFreq := make(map[string]int)
	for _, m := range members {
		for tag := range tagSet(m.Tags) {
			tagFreq[tag]++
		}
	}

	theme, count := "", 0
	for tag, c := range tagFreq {
		if c > count || (c == count && tag < theme) {
			theme, count = tag, c
		}
	}
	if theme != "" {
		return theme
	}
	if len(keywords) > 0 {
		return keywords[0]
	}
	return "misc"
}

// ArchiveCandidates returns memories past the age floor that are rarely
// accessed or low relevance, least-accessed first.
func (o *Organizer) ArchiveCandidates(memories []*record.Memory, now int64) []*record.Memory {
	cutoff := now - int64(o.policy.ArchiveAfterDays)*24*60*60*1000

	var out []*record.Memory
	for _, m := range memories {
		if m.CreatedAt < cutoff && (m.AccessCount < 2 || m.RelevanceScore < 0.3) {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AccessCount != out[j].AccessCount {
			return out[i].AccessCount < out[j].AccessCount
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Orphans returns memories in no cluster that are also weakly connected:
// fewer than two tags or no associations.
func (o *Organizer) Orphans(memories []*record.Memory, clusters []Cluster) []*record.Memory {
	clustered := make(map[string]bool)
	for _, c := range clusters {
		for _, id := range c.MemberIDs {
			clustered[id] = true
		}
	}

	var out []*record.Memory
	for _, m := range sortByID(memories) {
		if clustered[m.ID] {
			continue
		}
		if len(m.Tags) < 2 || len(m.Associations) == 0 {
			out = append(out, m)
		}
	}
	return out
}

// QualityScore is an observability signal in roughly [0,1] combining
// duplicate pressure, cluster coverage, and tagging/association hygiene.
func QualityScore(memories []*record.Memory, duplicates []DuplicatePair, clusters []Cluster) float64 {
	total := len(memories)
	if total == 0 {
		return 0
	}

	dupPenalty := float64(len(duplicates)) / float64(total) * 2
	if dupPenalty > 1 {
		dupPenalty = 1
	}

	clustered := make(map[string]bool)
	for _, c := range clusters {
		for _, id := range c.MemberIDs {
			clustered[id] = true
		}
	}

	tagged, associated := 0, 0
	for _, m := range memories {
		if len(m.Tags) > 0 {
			tagged++
		}
		if len(m.Associations) > 0 {
			associated++
		}
	}

	return (1-dupPenalty)*0.3 +
		float64(len(clustered))/float64(total)*0.3 +
		float64(tagged)/float64(total)*0.2 +
		float64(associated)/float64(total)*0.2
}

func sortByID(memories []*record.Memory) []*record.Memory {
	out := append([]*record.Memory(nil), memories...)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
