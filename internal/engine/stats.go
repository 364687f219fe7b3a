package engine

import (
	"sort"
	"strings"

	"github.com/flemzord/mnemo/internal/organize"
	"github.com/flemzord/mnemo/internal/record"
)

// TagCount is one tag with its usage count across live memories.
type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// GetAllTags returns every tag in use with its count, most used first.
// Counts come from the live records, not the historical tagStats document.
func (e *Engine) GetAllTags() []TagCount {
	e.mu.Lock()
	defer e.mu.Unlock()

	display := make(map[string]string)
	counts := make(map[string]int)
	for _, m := range e.store.All() {
		for _, tag := range m.Tags {
			key := strings.ToLower(tag)
			if _, ok := display[key]; !ok {
				display[key] = tag
			}
			counts[key]++
		}
	}

	out := make([]TagCount, 0, len(counts))
	for key, c := range counts {
		out = append(out, TagCount{Tag: display[key], Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Tag < out[j].Tag
	})
	return out
}

// MergeTags renames every use of old to new (case-insensitive match),
// returning how many memories changed.
func (e *Engine) MergeTags(oldTag, newTag string) int {
	e.mu.Lock()
	defer e.mu.Unlock()

	oldKey := strings.ToLower(strings.TrimSpace(oldTag))
	newTag = strings.TrimSpace(newTag)
	if oldKey == "" || newTag == "" {
		return 0
	}

	now := e.nowMillis()
	changed := 0
	for _, m := range e.store.All() {
		replaced := false
		tags := make([]string, 0, len(m.Tags))
		for _, t := range m.Tags {
			if strings.ToLower(t) == oldKey {
				tags = append(tags, newTag)
				replaced = true
			} else {
				tags = append(tags, t)
			}
		}
		if !replaced {
			continue
		}

		e.idx.Remove(m)
		m.Tags = normalizeTags(tags)
		m.UpdatedAt = now
		e.idx.Add(m)
		changed++
	}

	if changed > 0 {
		e.cache.Clear()
		e.persistMemories()
	}
	return changed
}

// RemoveTag strips the tag (case-insensitive) from every memory, returning
// how many memories changed.
func (e *Engine) RemoveTag(tag string) int {
	e.mu.Lock()
	defer e.mu.Unlock()

	key := strings.ToLower(strings.TrimSpace(tag))
	if key == "" {
		return 0
	}

	now := e.nowMillis()
	changed := 0
	for _, m := range e.store.All() {
		tags := make([]string, 0, len(m.Tags))
		for _, t := range m.Tags {
			if strings.ToLower(t) != key {
				tags = append(tags, t)
			}
		}
		if len(tags) == len(m.Tags) {
			continue
		}

		e.idx.Remove(m)
		m.Tags = tags
		m.UpdatedAt = now
		e.idx.Add(m)
		changed++
	}

	if changed > 0 {
		e.cache.Clear()
		e.persistMemories()
	}
	return changed
}

// Stats is the aggregate view returned by GetMemoryStats.
type Stats struct {
	TotalMemories    int                       `json:"totalMemories"`
	TotalActions     int                       `json:"totalActions"`
	TotalPatterns    int                       `json:"totalPatterns"`
	ArchivedMemories int                       `json:"archivedMemories"`
	ByType           map[record.MemoryType]int `json:"byType"`
	TopTags          []TagCount                `json:"topTags,omitempty"`
	TopApps          []TagCount                `json:"topApps,omitempty"`
	IndexedWords     int                       `json:"indexedWords"`
	IndexedTags      int                       `json:"indexedTags"`
	QualityScore     float64                   `json:"qualityScore"`
	Metrics          MetricsSnapshot           `json:"metrics"`
}

// GetMemoryStats aggregates store, index, and counter state into one report.
func (e *Engine) GetMemoryStats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()

	memories := e.store.All()
	byType := make(map[record.MemoryType]int)
	for _, m := range memories {
		byType[m.Type]++
	}

	duplicates := e.organizer.FindDuplicates(memories)
	clusters := e.organizer.BuildClusters(memories)

	return Stats{
		TotalMemories:    len(memories),
		TotalActions:     len(e.store.History()),
		TotalPatterns:    len(e.detector.Patterns()),
		ArchivedMemories: len(e.archived),
		ByType:           byType,
		TopTags:          topCounts(e.tagStats, 10),
		TopApps:          topCounts(e.appStats, 10),
		IndexedWords:     e.idx.WordCount(),
		IndexedTags:      e.idx.TagCount(),
		QualityScore:     organize.QualityScore(memories, duplicates, clusters),
		Metrics:          e.metrics.Snapshot(),
	}
}

func topCounts(counts map[string]int, n int) []TagCount {
	out := make([]TagCount, 0, len(counts))
	for k, c := range counts {
		out = append(out, TagCount{Tag: k, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Tag < out[j].Tag
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}
