// Package engine wires the record store, search index, pattern detector,
// organization engine, and suggestion ranker into one embeddable object.
//
// The engine is the concurrency boundary: a single mutex guards the record
// store and search index as one unit, so every caller and background job
// observes store and index in a consistent state. Component packages below
// it are single-threaded by contract.
package engine

import (
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/flemzord/mnemo/internal/config"
	"github.com/flemzord/mnemo/internal/index"
	"github.com/flemzord/mnemo/internal/kv"
	"github.com/flemzord/mnemo/internal/organize"
	"github.com/flemzord/mnemo/internal/pattern"
	"github.com/flemzord/mnemo/internal/record"
	"github.com/flemzord/mnemo/internal/schedule"
	"github.com/flemzord/mnemo/internal/suggest"
)

// Options configures a new Engine. Config and Store are required in
// practice; nil values fall back to defaults (in-memory store, default
// config, slog.Default, time.Now).
type Options struct {
	Config *config.Config
	Store  kv.Store
	Logger *slog.Logger

	// Clock overrides the time source. Tests use it to make ranking and
	// retention deterministic.
	Clock func() time.Time
}

// Engine is the personal memory index and organization engine.
type Engine struct {
	mu  sync.Mutex
	cfg *config.Config
	log *slog.Logger
	now func() time.Time

	kv        kv.Store
	store     *record.Store
	idx       *index.Index
	cache     *index.ResultCache
	detector  *pattern.Detector
	organizer *organize.Organizer
	ranker    *suggest.Ranker
	sched     *schedule.Scheduler

	metrics Metrics

	tagStats map[string]int
	appStats map[string]int
	archived []*record.Memory

	latestSuggestions []suggest.Suggestion

	lastOrganizedAt int64 // epoch millis; at most one auto-organization per 24h
	closed          bool
}

// New constructs an engine, loads persisted state from the document store,
// and rebuilds the search index. Background jobs are not started until
// Start is called.
func New(opts Options) (*Engine, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	store := opts.Store
	if store == nil {
		store = kv.NewMemStore()
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}

	e := &Engine{
		cfg:       cfg,
		log:       logger,
		now:       clock,
		kv:        store,
		store:     record.NewStore(cfg.Limits.MaxMemoryEntries, cfg.Limits.MaxHistoryEntries),
		idx:       index.New(),
		cache:     index.NewResultCache(time.Duration(cfg.Search.CacheTTLSeconds) * time.Second),
		detector:  pattern.NewDetector(cfg.Patterns.Window),
		organizer: organize.NewOrganizer(policyFromConfig(cfg)),
		ranker:    suggest.NewRanker(),
		tagStats:  make(map[string]int),
		appStats:  make(map[string]int),
	}

	if err := e.load(); err != nil {
		return nil, err
	}
	e.idx.Rebuild(e.store.All())
	return e, nil
}

func policyFromConfig(cfg *config.Config) organize.Policy {
	return organize.Policy{
		DuplicateThreshold:   cfg.Organize.DuplicateThreshold,
		KeepBothThreshold:    cfg.Organize.KeepBothThreshold,
		MergeThreshold:       cfg.Organize.MergeThreshold,
		NearIdentical:        cfg.Organize.NearIdentical,
		RelatednessThreshold: cfg.Organize.RelatednessThreshold,
		ClusterConfidence:    cfg.Organize.ClusterConfidence,
		ArchiveAfterDays:     cfg.Organize.ArchiveAfterDays,
		MaxArchivesPerRun:    cfg.Organize.MaxArchivesPerRun,
		MaxClusterMembers:    cfg.Organize.MaxClusterMembers,
	}
}

// Start launches the background jobs: daily cleanup, hourly organization
// check, and suggestion refresh.
func (e *Engine) Start() error {
	e.sched = schedule.NewScheduler(e.log)
	e.sched.Register(schedule.Job{Name: "cleanup", Spec: e.cfg.Jobs.Cleanup, Run: e.runCleanup})
	e.sched.Register(schedule.Job{Name: "organize", Spec: e.cfg.Jobs.Organize, Run: e.runOrganizeIfDue})
	e.sched.Register(schedule.Job{Name: "suggestions", Spec: e.cfg.Jobs.Suggestions, Run: e.runSuggestionRefresh})
	return e.sched.Start()
}

// Close stops background jobs, flushes state, and closes the document store.
func (e *Engine) Close() error {
	if e.sched != nil {
		e.sched.Stop()
		e.sched = nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	e.persistAll()
	return e.kv.Close()
}

func (e *Engine) nowMillis() int64 { return e.now().UnixMilli() }

// SaveMemory stores a new memory and returns its id. Identity, timestamps,
// and access counters are managed by the engine; a zero relevance score
// defaults to 0.5. Saves with neither title nor content return an empty id
// (soft validation failure), as do saves at capacity when every resident
// record outranks the new one and the eviction pass drops it.
func (e *Engine) SaveMemory(draft record.Memory) string {
	e.mu.Lock()
	defer e.mu.Unlock()

	draft.ID = ""
	draft.Tags = normalizeTags(draft.Tags)
	if draft.RelevanceScore <= 0 {
		draft.RelevanceScore = 0.5
	} else if draft.RelevanceScore > 1 {
		draft.RelevanceScore = 1
	}

	m := draft.Clone()
	evicted, err := e.store.Save(m, e.nowMillis())
	if err != nil {
		e.log.Warn("engine: save rejected", "error", err)
		return ""
	}

	e.idx.Add(m)
	// Eviction and index removal happen inside the same locked operation,
	// so no query can observe a stale posting.
	survived := true
	for _, old := range evicted {
		e.idx.Remove(old)
		e.metrics.Evictions.Add(1)
		if old.ID == m.ID {
			survived = false
		}
	}
	if !survived {
		// At capacity a new record starts with eviction key zero; when every
		// resident outranks it the save does not take, and the caller gets
		// an empty id rather than one that no longer resolves.
		e.log.Warn("engine: save evicted at capacity")
		return ""
	}

	for _, tag := range m.Tags {
		e.tagStats[strings.ToLower(tag)]++
	}

	e.metrics.MemoriesSaved.Add(1)
	e.cache.Clear()
	e.persistMemories()
	e.persistTagStats()
	return m.ID
}

// UpdateMemory applies a partial update. Returns false for unknown ids.
func (e *Engine) UpdateMemory(id string, upd record.MemoryUpdate) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	m, ok := e.store.Get(id)
	if !ok {
		return false
	}

	if upd.Tags != nil {
		normalized := normalizeTags(*upd.Tags)
		upd.Tags = &normalized
	}

	e.idx.Remove(m)
	if _, err := e.store.Update(id, upd, e.nowMillis()); err != nil {
		// Re-add the previous state; the record was not changed.
		e.idx.Add(m)
		return false
	}
	e.idx.Add(m)

	e.cache.Clear()
	e.persistMemories()
	return true
}

// DeleteMemory removes a memory. Returns false for unknown ids.
func (e *Engine) DeleteMemory(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	m, ok := e.store.Delete(id)
	if !ok {
		return false
	}
	e.idx.Remove(m)
	e.cache.Clear()
	e.persistMemories()
	return true
}

// RecordAction appends an action-history entry and runs a pattern-detection
// pass over the recent window.
func (e *Engine) RecordAction(entry record.ActionEntry) {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.nowMillis()
	entry = e.store.RecordAction(entry, now)

	if entry.ApplicationName != "" {
		e.appStats[entry.ApplicationName]++
	}

	e.detector.Detect(e.store.RecentActions(e.cfg.Patterns.Window), now)

	e.metrics.ActionsRecorded.Add(1)
	e.cache.Clear()
	e.persistHistory()
	e.persistPatterns()
	e.persistAppStats()
}

// SearchMemories answers a query. Every memory in the returned page has its
// access count incremented and lastAccessed refreshed; retrieval is not
// read-only. Results are value copies; mutating them does not touch the
// store.
func (e *Engine) SearchMemories(q index.Query) []record.Memory {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.searchLocked(q)
}

// SearchMemoriesImmediate is SearchMemories without caller-side debounce
// semantics; the engine itself never debounces.
func (e *Engine) SearchMemoriesImmediate(q index.Query) []record.Memory {
	return e.SearchMemories(q)
}

func (e *Engine) searchLocked(q index.Query) []record.Memory {
	if q.Limit <= 0 {
		q.Limit = e.cfg.Search.DefaultLimit
	}

	e.metrics.Searches.Add(1)
	now := e.nowMillis()

	var page []*record.Memory
	key := index.Key(q)
	if ids, ok := e.cache.Get(key, e.now()); ok {
		e.metrics.CacheHits.Add(1)
		for _, id := range ids {
			if m, found := e.store.Get(id); found {
				page = append(page, m)
			}
		}
	} else {
		page = e.idx.Search(q, e.store, now)
		ids := make([]string, len(page))
		for i, m := range page {
			ids[i] = m.ID
		}
		e.cache.Put(key, ids, e.now())
	}

	out := make([]record.Memory, 0, len(page))
	for _, m := range page {
		e.store.Touch(m.ID, now)
		out = append(out, *m.Clone())
	}
	if len(out) > 0 {
		e.persistMemories()
	}
	return out
}

// RebuildIndex reconstructs the search index from the store. Idempotent and
// safe to call at any time; this is the recovery path if index and store
// ever diverge.
func (e *Engine) RebuildIndex() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.idx.Rebuild(e.store.All())
	e.cache.Clear()
}

// GetSuggestions generates and ranks suggestions for the given context.
func (e *Engine) GetSuggestions(env suggest.Environment, limit int) []suggest.Suggestion {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.suggestLocked(env, limit)
}

func (e *Engine) suggestLocked(env suggest.Environment, limit int) []suggest.Suggestion {
	now := e.nowMillis()
	return e.ranker.Suggest(e.suggestionInputs(now), env, limit, now)
}

func (e *Engine) suggestionInputs(now int64) suggest.Inputs {
	memories := e.store.All()

	duplicates := e.organizer.FindDuplicates(memories)
	clusters := e.organizer.BuildClusters(memories)

	var projects []*record.Memory
	for _, m := range memories {
		if m.Type == record.TypeProject {
			projects = append(projects, m)
		}
	}
	sort.Slice(projects, func(i, j int) bool { return projects[i].ID < projects[j].ID })

	return suggest.Inputs{
		Patterns:          e.detector.Patterns(),
		Duplicates:        duplicates,
		Clusters:          clusters,
		ArchiveCandidates: len(e.organizer.ArchiveCandidates(memories, now)),
		Orphans:           len(e.organizer.Orphans(memories, clusters)),
		ProjectMemories:   projects,
		TotalMemories:     len(memories),
	}
}

// RefreshSuggestions recomputes the suggestion set against a neutral
// environment and caches it for LatestSuggestions. The refresh is a
// read-ahead: it does not count toward the repetition penalty, which tracks
// only suggestions callers were actually given.
func (e *Engine) RefreshSuggestions() []suggest.Suggestion {
	e.mu.Lock()
	defer e.mu.Unlock()

	wall := e.now()
	env := suggest.Environment{
		Hour:    wall.Hour(),
		Weekday: wall.Weekday(),
	}
	if app := e.busiestApp(); app != "" {
		env.CurrentApp = app
	}

	now := e.nowMillis()
	e.latestSuggestions = e.ranker.Preview(e.suggestionInputs(now), env, e.cfg.Search.DefaultLimit, now)
	return append([]suggest.Suggestion(nil), e.latestSuggestions...)
}

// LatestSuggestions returns the list cached by the most recent refresh.
func (e *Engine) LatestSuggestions() []suggest.Suggestion {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]suggest.Suggestion(nil), e.latestSuggestions...)
}

// Patterns returns the current behavior-pattern table, most confident first.
func (e *Engine) Patterns() []record.BehaviorPattern {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.detector.Patterns()
}

// normalizeTags trims and deduplicates tags case-insensitively, preserving
// the original case of the first occurrence for display.
func normalizeTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		key := strings.ToLower(t)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, t)
	}
	return out
}
