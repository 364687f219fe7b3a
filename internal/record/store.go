package record

import (
	"sort"

	"github.com/google/uuid"
)

// Store owns the Memory collection and the action-history log, and enforces
// their capacity limits.
//
// Store is not safe for concurrent use on its own: the engine serialises all
// access behind a single lock so that index updates and store mutations are
// observed as one unit.
type Store struct {
	maxMemories int
	maxHistory  int

	memories map[string]*Memory
	history  []ActionEntry
}

// NewStore creates an empty store with the given capacity limits.
// Non-positive limits disable the corresponding cap.
func NewStore(maxMemories, maxHistory int) *Store {
	return &Store{
		maxMemories: maxMemories,
		maxHistory:  maxHistory,
		memories:    make(map[string]*Memory),
	}
}

// NewID returns a fresh unique record identifier.
func NewID() string { return uuid.NewString() }

// Save inserts a memory, defaulting its identity and timestamps, and evicts
// the lowest-ranked records if the capacity limit is exceeded. The eviction
// key is relevanceScore*accessCount ascending, ties broken by ID so the
// outcome is deterministic. Evicted records are returned so the caller can
// drop them from the search index in the same operation.
func (s *Store) Save(m *Memory, now int64) ([]*Memory, error) {
	if m.Title == "" && m.Content == "" {
		return nil, ErrEmptyContent
	}
	if m.ID == "" {
		m.ID = NewID()
	}
	if m.Type == "" {
		m.Type = TypeNote
	}
	m.CreatedAt = now
	m.UpdatedAt = now
	m.AccessCount = 0
	m.LastAccessed = now

	s.memories[m.ID] = m
	return s.evictOver(), nil
}

// Put inserts a memory verbatim, preserving its timestamps and counters.
// Used by import and by auto-organization merges.
func (s *Store) Put(m *Memory) []*Memory {
	s.memories[m.ID] = m
	return s.evictOver()
}

func (s *Store) evictOver() []*Memory {
	if s.maxMemories <= 0 || len(s.memories) <= s.maxMemories {
		return nil
	}

	ranked := s.All()
	sort.Slice(ranked, func(i, j int) bool {
		ki := ranked[i].RelevanceScore * float64(ranked[i].AccessCount)
		kj := ranked[j].RelevanceScore * float64(ranked[j].AccessCount)
		if ki != kj {
			return ki < kj
		}
		return ranked[i].ID < ranked[j].ID
	})

	var evicted []*Memory
	for _, m := range ranked {
		if len(s.memories) <= s.maxMemories {
			break
		}
		delete(s.memories, m.ID)
		evicted = append(evicted, m)
	}
	return evicted
}

// Get returns the memory with the given id.
func (s *Store) Get(id string) (*Memory, bool) {
	m, ok := s.memories[id]
	return m, ok
}

// Update applies a partial update to the memory with the given id, bumping
// updatedAt. Returns ErrNotFound for unknown ids.
func (s *Store) Update(id string, upd MemoryUpdate, now int64) (*Memory, error) {
	m, ok := s.memories[id]
	if !ok {
		return nil, ErrNotFound
	}
	upd.apply(m)
	m.UpdatedAt = now
	return m, nil
}

// Delete removes the memory with the given id and returns it.
func (s *Store) Delete(id string) (*Memory, bool) {
	m, ok := s.memories[id]
	if !ok {
		return nil, false
	}
	delete(s.memories, id)
	return m, true
}

// Touch records a retrieval: accessCount is incremented and lastAccessed
// refreshed. Retrieval does not bump updatedAt.
func (s *Store) Touch(id string, now int64) {
	if m, ok := s.memories[id]; ok {
		m.AccessCount++
		m.LastAccessed = now
	}
}

// Len returns the number of stored memories.
func (s *Store) Len() int { return len(s.memories) }

// All returns every stored memory, unordered.
func (s *Store) All() []*Memory {
	out := make([]*Memory, 0, len(s.memories))
	for _, m := range s.memories {
		out = append(out, m)
	}
	return out
}

// Reset replaces the whole memory collection. Used by import.
func (s *Store) Reset(memories []*Memory) {
	s.memories = make(map[string]*Memory, len(memories))
	for _, m := range memories {
		if m.ID == "" {
			continue
		}
		s.memories[m.ID] = m
	}
}

// RecordAction appends an action-history entry, truncating the log to the
// history cap via FIFO drop (oldest first).
func (s *Store) RecordAction(e ActionEntry, now int64) ActionEntry {
	if e.ID == "" {
		e.ID = NewID()
	}
	if e.Timestamp == 0 {
		e.Timestamp = now
	}
	s.history = append(s.history, e)
	if s.maxHistory > 0 && len(s.history) > s.maxHistory {
		drop := len(s.history) - s.maxHistory
		s.history = append(s.history[:0], s.history[drop:]...)
	}
	return e
}

// History returns the full action log, oldest first.
func (s *Store) History() []ActionEntry {
	return append([]ActionEntry(nil), s.history...)
}

// RecentActions returns the most recent n history entries, oldest first.
func (s *Store) RecentActions(n int) []ActionEntry {
	if n <= 0 || n >= len(s.history) {
		return append([]ActionEntry(nil), s.history...)
	}
	return append([]ActionEntry(nil), s.history[len(s.history)-n:]...)
}

// PurgeActions drops history entries older than cutoff and returns how many
// were removed.
func (s *Store) PurgeActions(cutoff int64) int {
	kept := s.history[:0]
	for _, e := range s.history {
		if e.Timestamp >= cutoff {
			kept = append(kept, e)
		}
	}
	removed := len(s.history) - len(kept)
	s.history = kept
	return removed
}

// ResetHistory replaces the whole action log. Used by import.
func (s *Store) ResetHistory(history []ActionEntry) {
	s.history = append([]ActionEntry(nil), history...)
	if s.maxHistory > 0 && len(s.history) > s.maxHistory {
		drop := len(s.history) - s.maxHistory
		s.history = append(s.history[:0], s.history[drop:]...)
	}
}

// MemoryUpdate is a partial update for a memory: nil fields are left as-is.
type MemoryUpdate struct {
	Type           *MemoryType
	Title          *string
	Content        *string
	Tags           *[]string
	RelevanceScore *float64
	Associations   *[]string
	Metadata       map[string]string
}

func (u MemoryUpdate) apply(m *Memory) {
	if u.Type != nil && ValidMemoryType(*u.Type) {
		m.Type = *u.Type
	}
	if u.Title != nil {
		m.Title = *u.Title
	}
	if u.Content != nil {
		m.Content = *u.Content
	}
	if u.Tags != nil {
		m.Tags = append([]string(nil), (*u.Tags)...)
	}
	if u.RelevanceScore != nil {
		m.RelevanceScore = clamp01(*u.RelevanceScore)
	}
	if u.Associations != nil {
		m.Associations = append([]string(nil), (*u.Associations)...)
	}
	for k, v := range u.Metadata {
		if m.Metadata == nil {
			m.Metadata = make(map[string]string)
		}
		m.Metadata[k] = v
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
