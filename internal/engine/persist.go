package engine

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/flemzord/mnemo/internal/record"
)

// Document keys, one wholesale JSON document per logical table.
const (
	docMemories = "longTermMemory"
	docHistory  = "actionHistory"
	docPatterns = "behaviorPatterns"
	docSettings = "memorySettings"
	docTagStats = "tagStats"
	docAppStats = "appStats"
	docArchived = "archivedMemories"
)

// settings is the persisted engine bookkeeping document. Additive fields
// only; no migration machinery.
type settings struct {
	LastOrganizedAt int64 `json:"lastOrganizedAt,omitempty"`
}

// load reads every persisted document into memory. Missing documents are an
// empty engine, not an error.
func (e *Engine) load() error {
	var memories []*record.Memory
	if err := e.loadDoc(docMemories, &memories); err != nil {
		return err
	}
	e.store.Reset(memories)

	var history []record.ActionEntry
	if err := e.loadDoc(docHistory, &history); err != nil {
		return err
	}
	e.store.ResetHistory(history)

	var patterns []record.BehaviorPattern
	if err := e.loadDoc(docPatterns, &patterns); err != nil {
		return err
	}
	e.detector.Reset(patterns)

	var st settings
	if err := e.loadDoc(docSettings, &st); err != nil {
		return err
	}
	e.lastOrganizedAt = st.LastOrganizedAt

	tagStats := make(map[string]int)
	if err := e.loadDoc(docTagStats, &tagStats); err != nil {
		return err
	}
	e.tagStats = tagStats

	appStats := make(map[string]int)
	if err := e.loadDoc(docAppStats, &appStats); err != nil {
		return err
	}
	e.appStats = appStats

	var archived []*record.Memory
	if err := e.loadDoc(docArchived, &archived); err != nil {
		return err
	}
	e.archived = archived

	return nil
}

func (e *Engine) loadDoc(key string, out any) error {
	raw, ok, err := e.kv.Get(key)
	if err != nil {
		return fmt.Errorf("engine: loading %s: %w", key, err)
	}
	if !ok {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("engine: decoding %s: %w", key, err)
	}
	return nil
}

// persistDoc writes one document. Persistence failures are logged, never
// fatal; the engine fails soft.
func (e *Engine) persistDoc(key string, v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		e.log.Error("engine: encoding document", "key", key, "error", err)
		return
	}
	if err := e.kv.Set(key, raw); err != nil {
		e.log.Error("engine: persisting document", "key", key, "error", err)
	}
}

func (e *Engine) persistMemories() {
	all := e.store.All()
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	e.persistDoc(docMemories, all)
}

func (e *Engine) persistHistory()  { e.persistDoc(docHistory, e.store.History()) }
func (e *Engine) persistPatterns() { e.persistDoc(docPatterns, e.detector.Patterns()) }
func (e *Engine) persistTagStats() { e.persistDoc(docTagStats, e.tagStats) }
func (e *Engine) persistAppStats() { e.persistDoc(docAppStats, e.appStats) }
func (e *Engine) persistArchived() { e.persistDoc(docArchived, e.archived) }

func (e *Engine) persistSettings() {
	e.persistDoc(docSettings, settings{LastOrganizedAt: e.lastOrganizedAt})
}

func (e *Engine) persistAll() {
	e.persistMemories()
	e.persistHistory()
	e.persistPatterns()
	e.persistTagStats()
	e.persistAppStats()
	e.persistArchived()
	e.persistSettings()
}

// Snapshot is a full export of the engine's durable state.
type Snapshot struct {
	ExportedAt    int64                    `json:"exportedAt"`
	Memories      []*record.Memory         `json:"memories"`
	ActionHistory []record.ActionEntry     `json:"actionHistory"`
	Patterns      []record.BehaviorPattern `json:"behaviorPatterns"`
	Archived      []*record.Memory         `json:"archivedMemories,omitempty"`
	TagStats      map[string]int           `json:"tagStats,omitempty"`
	AppStats      map[string]int           `json:"appStats,omitempty"`
}

// ExportData returns a full snapshot of durable state. Derived entities
// (clusters, duplicates, suggestions) are recomputable and not exported.
func (e *Engine) ExportData() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	memories := e.store.All()
	sort.Slice(memories, func(i, j int) bool { return memories[i].ID < memories[j].ID })
	out := make([]*record.Memory, len(memories))
	for i, m := range memories {
		out[i] = m.Clone()
	}

	archived := make([]*record.Memory, len(e.archived))
	for i, m := range e.archived {
		archived[i] = m.Clone()
	}

	return Snapshot{
		ExportedAt:    e.nowMillis(),
		Memories:      out,
		ActionHistory: e.store.History(),
		Patterns:      e.detector.Patterns(),
		Archived:      archived,
		TagStats:      copyCounts(e.tagStats),
		AppStats:      copyCounts(e.appStats),
	}
}

// ImportData replaces all durable state with the snapshot's contents and
// rebuilds the index, so a prior query answers identically afterwards.
func (e *Engine) ImportData(snap Snapshot) {
	e.mu.Lock()
	defer e.mu.Unlock()

	memories := make([]*record.Memory, 0, len(snap.Memories))
	for _, m := range snap.Memories {
		if m == nil || m.ID == "" {
			continue
		}
		memories = append(memories, m.Clone())
	}
	e.store.Reset(memories)
	e.store.ResetHistory(snap.ActionHistory)
	e.detector.Reset(snap.Patterns)

	e.archived = e.archived[:0]
	for _, m := range snap.Archived {
		if m != nil {
			e.archived = append(e.archived, m.Clone())
		}
	}

	e.tagStats = copyCounts(snap.TagStats)
	if e.tagStats == nil {
		e.tagStats = make(map[string]int)
	}
	e.appStats = copyCounts(snap.AppStats)
	if e.appStats == nil {
		e.appStats = make(map[string]int)
	}

	e.idx.Rebuild(e.store.All())
	e.cache.Clear()
	e.persistAll()
}

func copyCounts(in map[string]int) map[string]int {
	if in == nil {
		return nil
	}
	out := make(map[string]int, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
