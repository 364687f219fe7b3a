package index

import (
	"strings"

	"github.com/flemzord/mnemo/internal/record"
)

// Index holds the two inverted maps: word token → memory ids (built from
// title and content) and lower-cased tag → memory ids.
//
// Like the record store, Index is single-threaded by contract; the engine
// serialises index updates and queries behind its lock.
type Index struct {
	words map[string]map[string]struct{}
	tags  map[string]map[string]struct{}
}

// New creates an empty index.
func New() *Index {
	return &Index{
		words: make(map[string]map[string]struct{}),
		tags:  make(map[string]map[string]struct{}),
	}
}

// Add indexes a memory. Callers must Remove the previous state first when
// re-indexing an updated record.
func (ix *Index) Add(m *record.Memory) {
	for _, tok := range Tokenize(m.Title + " " + m.Content) {
		ids, ok := ix.words[tok]
		if !ok {
			ids = make(map[string]struct{})
			ix.words[tok] = ids
		}
		ids[m.ID] = struct{}{}
	}
	for _, tag := range m.Tags {
		key := strings.ToLower(tag)
		if key == "" {
			continue
		}
		ids, ok := ix.tags[key]
		if !ok {
			ids = make(map[string]struct{})
			ix.tags[key] = ids
		}
		ids[m.ID] = struct{}{}
	}
}

// Remove drops a memory from both maps, pruning emptied postings.
func (ix *Index) Remove(m *record.Memory) {
	for _, tok := range Tokenize(m.Title + " " + m.Content) {
		if ids, ok := ix.words[tok]; ok {
			delete(ids, m.ID)
			if len(ids) == 0 {
				delete(ix.words, tok)
			}
		}
	}
	for _, tag := range m.Tags {
		key := strings.ToLower(tag)
		if ids, ok := ix.tags[key]; ok {
			delete(ids, m.ID)
			if len(ids) == 0 {
				delete(ix.tags, key)
			}
		}
	}
}

// Rebuild discards the index and re-adds every memory. Safe to call at any
// time; calling it twice in a row yields identical contents.
func (ix *Index) Rebuild(all []*record.Memory) {
	ix.words = make(map[string]map[string]struct{})
	ix.tags = make(map[string]map[string]struct{})
	for _, m := range all {
		ix.Add(m)
	}
}

// WordCount returns the number of distinct indexed word tokens.
func (ix *Index) WordCount() int { return len(ix.words) }

// TagCount returns the number of distinct indexed tags.
func (ix *Index) TagCount() int { return len(ix.tags) }

// hits returns the union of word-index and tag-index postings for a token.
func (ix *Index) hits(token string) map[string]struct{} {
	out := make(map[string]struct{})
	for id := range ix.words[token] {
		out[id] = struct{}{}
	}
	for id := range ix.tags[token] {
		out[id] = struct{}{}
	}
	return out
}

// documentFrequency returns how many distinct memories contain the token in
// their text or tags.
func (ix *Index) documentFrequency(token string) int {
	return len(ix.hits(token))
}
