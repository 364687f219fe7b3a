package engine_test

import (
	"fmt"
	"io"
	"log/slog"
	"reflect"
	"testing"
	"time"

	"github.com/flemzord/mnemo/internal/config"
	"github.com/flemzord/mnemo/internal/engine"
	"github.com/flemzord/mnemo/internal/index"
	"github.com/flemzord/mnemo/internal/kv"
	"github.com/flemzord/mnemo/internal/record"
	"github.com/flemzord/mnemo/internal/suggest"
)

const day = 24 * time.Hour

// clock is a mutable time source for deterministic ranking and retention.
type clock struct {
	t time.Time
}

func (c *clock) Now() time.Time          { return c.t }
func (c *clock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestEngine(t *testing.T, cfg *config.Config, store kv.Store) (*engine.Engine, *clock) {
	t.Helper()
	if cfg == nil {
		cfg = config.Default()
	}
	if store == nil {
		store = kv.NewMemStore()
	}
	cl := &clock{t: time.Date(2026, 8, 1, 9, 0, 0, 0, time.Local)}
	eng, err := engine.New(engine.Options{
		Config: cfg,
		Store:  store,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		Clock:  cl.Now,
	})
	if err != nil {
		t.Fatalf("New: unexpected error: %v", err)
	}
	return eng, cl
}

func TestEngine_SaveAndSearch(t *testing.T) {
	t.Parallel()

	eng, _ := newTestEngine(t, nil, nil)

	id := eng.SaveMemory(record.Memory{
		Title:   "Sourdough starter",
		Content: "Feed the starter every morning",
		Tags:    []string{"cooking", "bread"},
	})
	if id == "" {
		t.Fatal("SaveMemory returned empty id")
	}

	got := eng.SearchMemories(index.Query{Text: "sourdough"})
	if len(got) != 1 {
		t.Fatalf("got %d results, want 1", len(got))
	}
	m := got[0]
	if m.ID != id {
		t.Errorf("ID = %q, want %q", m.ID, id)
	}
	if m.Type != record.TypeNote {
		t.Errorf("Type = %q, want note default", m.Type)
	}
	if m.RelevanceScore != 0.5 {
		t.Errorf("RelevanceScore = %v, want 0.5 default", m.RelevanceScore)
	}
	if m.AccessCount != 1 {
		t.Errorf("AccessCount = %d, want 1 (retrieval counts)", m.AccessCount)
	}
}

func TestEngine_SaveMemory_EmptyRejected(t *testing.T) {
	t.Parallel()

	eng, _ := newTestEngine(t, nil, nil)
	if id := eng.SaveMemory(record.Memory{Tags: []string{"x"}}); id != "" {
		t.Fatalf("SaveMemory(empty) = %q, want empty id", id)
	}
	if stats := eng.GetMemoryStats(); stats.TotalMemories != 0 {
		t.Fatalf("TotalMemories = %d, want 0", stats.TotalMemories)
	}
}

func TestEngine_SaveMemory_NormalizesTags(t *testing.T) {
	t.Parallel()

	eng, _ := newTestEngine(t, nil, nil)
	eng.SaveMemory(record.Memory{
		Content: "tagged",
		Tags:    []string{"Go", " go ", "GO", "", "work"},
	})

	got := eng.SearchMemories(index.Query{Text: "tagged"})
	if len(got) != 1 {
		t.Fatalf("got %d results, want 1", len(got))
	}
	if !reflect.DeepEqual(got[0].Tags, []string{"Go", "work"}) {
		t.Fatalf("Tags = %v, want [Go work] (case-insensitive dedupe, first case kept)", got[0].Tags)
	}
}

func TestEngine_SearchTouchAccumulates(t *testing.T) {
	t.Parallel()

	eng, _ := newTestEngine(t, nil, nil)
	eng.SaveMemory(record.Memory{Title: "target", Content: "content"})

	first := eng.SearchMemories(index.Query{Text: "target"})
	second := eng.SearchMemories(index.Query{Text: "target"})
	if first[0].AccessCount != 1 || second[0].AccessCount != 2 {
		t.Fatalf("AccessCount across searches = %d, %d; want 1, 2",
			first[0].AccessCount, second[0].AccessCount)
	}

	// Returned copies must not alias store state.
	second[0].Title = "mutated"
	third := eng.SearchMemories(index.Query{Text: "target"})
	if third[0].Title != "target" {
		t.Fatal("mutating a search result leaked into the store")
	}
}

func TestEngine_SearchCacheHit(t *testing.T) {
	t.Parallel()

	eng, _ := newTestEngine(t, nil, nil)
	eng.SaveMemory(record.Memory{Title: "cached", Content: "content"})

	q := index.Query{Text: "cached"}
	eng.SearchMemories(q)
	eng.SearchMemories(q)

	stats := eng.GetMemoryStats()
	if stats.Metrics.Searches != 2 {
		t.Errorf("Searches = %d, want 2", stats.Metrics.Searches)
	}
	if stats.Metrics.CacheHits != 1 {
		t.Errorf("CacheHits = %d, want 1", stats.Metrics.CacheHits)
	}
}

func TestEngine_CacheClearedOnMutation(t *testing.T) {
	t.Parallel()

	eng, _ := newTestEngine(t, nil, nil)
	eng.SaveMemory(record.Memory{Title: "widget one", Content: "x"})

	q := index.Query{Text: "widget"}
	if got := eng.SearchMemories(q); len(got) != 1 {
		t.Fatalf("got %d results, want 1", len(got))
	}

	eng.SaveMemory(record.Memory{Title: "widget two", Content: "y"})
	if got := eng.SearchMemories(q); len(got) != 2 {
		t.Fatalf("after save: got %d results, want 2 (cache must not serve stale pages)", len(got))
	}
}

func TestEngine_UpdateMemory(t *testing.T) {
	t.Parallel()

	eng, _ := newTestEngine(t, nil, nil)
	id := eng.SaveMemory(record.Memory{Title: "before", Content: "x"})

	title := "afterwards"
	if !eng.UpdateMemory(id, record.MemoryUpdate{Title: &title}) {
		t.Fatal("UpdateMemory returned false")
	}
	if got := eng.SearchMemories(index.Query{Text: "afterwards"}); len(got) != 1 {
		t.Fatalf("new title not searchable: got %d results", len(got))
	}
	if got := eng.SearchMemories(index.Query{Text: "before"}); len(got) != 0 {
		t.Fatalf("old title still searchable: got %d results", len(got))
	}

	if eng.UpdateMemory("missing", record.MemoryUpdate{Title: &title}) {
		t.Fatal("UpdateMemory(missing) returned true")
	}
}

func TestEngine_DeleteMemory(t *testing.T) {
	t.Parallel()

	eng, _ := newTestEngine(t, nil, nil)
	id := eng.SaveMemory(record.Memory{Title: "doomed", Content: "x"})

	if !eng.DeleteMemory(id) {
		t.Fatal("DeleteMemory returned false")
	}
	if got := eng.SearchMemories(index.Query{Text: "doomed"}); len(got) != 0 {
		t.Fatalf("deleted memory still searchable: got %d results", len(got))
	}
	if eng.DeleteMemory(id) {
		t.Fatal("second DeleteMemory returned true")
	}
}

func TestEngine_EvictionRemovesFromIndex(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.Limits.MaxMemoryEntries = 2
	eng, _ := newTestEngine(t, cfg, nil)

	eng.SaveMemory(record.Memory{Title: "alpha entry", Content: "x"})
	eng.SaveMemory(record.Memory{Title: "bravo entry", Content: "x"})
	// Touch both so their eviction keys are positive.
	eng.SearchMemories(index.Query{Text: "entry"})

	// The new record has access count zero, so it is the lowest ranked and
	// is evicted in the same operation; the save reports failure rather
	// than returning an id that no longer resolves.
	if id := eng.SaveMemory(record.Memory{Title: "charlie entry", Content: "x"}); id != "" {
		t.Fatalf("SaveMemory at capacity = %q, want empty id for a self-evicted save", id)
	}

	stats := eng.GetMemoryStats()
	if stats.TotalMemories != 2 {
		t.Fatalf("TotalMemories = %d, want 2", stats.TotalMemories)
	}
	if got := eng.SearchMemories(index.Query{Text: "charlie"}); len(got) != 0 {
		t.Fatalf("evicted memory still searchable: got %d results", len(got))
	}
	if stats.Metrics.Evictions != 1 {
		t.Errorf("Evictions = %d, want 1", stats.Metrics.Evictions)
	}
}

func TestEngine_RecordAction_DetectsPatterns(t *testing.T) {
	t.Parallel()

	eng, cl := newTestEngine(t, nil, nil)
	hour := cl.Now().Hour()

	for i := 0; i < 3; i++ {
		eng.RecordAction(record.ActionEntry{
			Type:            record.ActionAppSwitch,
			ApplicationName: "editor",
		})
	}

	patterns := eng.Patterns()
	if len(patterns) == 0 {
		t.Fatal("no patterns detected")
	}
	want := fmt.Sprintf("time:%d:editor", hour)
	found := false
	for _, p := range patterns {
		if p.ID == want {
			found = true
		}
	}
	if !found {
		t.Fatalf("time-slot pattern %q missing from %v", want, patterns)
	}
}

func TestEngine_RebuildIndex(t *testing.T) {
	t.Parallel()

	eng, _ := newTestEngine(t, nil, nil)
	eng.SaveMemory(record.Memory{Title: "stable", Content: "content"})

	before := eng.SearchMemories(index.Query{Text: "stable"})
	eng.RebuildIndex()
	after := eng.SearchMemories(index.Query{Text: "stable"})

	if len(before) != 1 || len(after) != 1 || before[0].ID != after[0].ID {
		t.Fatalf("RebuildIndex changed results: %v vs %v", before, after)
	}
}

func TestEngine_PersistenceRoundTrip(t *testing.T) {
	t.Parallel()

	store := kv.NewMemStore()

	eng, _ := newTestEngine(t, nil, store)
	id := eng.SaveMemory(record.Memory{Title: "durable", Content: "x", Tags: []string{"keep"}})
	eng.RecordAction(record.ActionEntry{Type: record.ActionQuery, Query: "durable"})
	if err := eng.Close(); err != nil {
		t.Fatalf("Close: unexpected error: %v", err)
	}

	reopened, _ := newTestEngine(t, nil, store)
	got := reopened.SearchMemories(index.Query{Text: "durable"})
	if len(got) != 1 || got[0].ID != id {
		t.Fatalf("after reopen: got %v, want the persisted memory %s", got, id)
	}
	if stats := reopened.GetMemoryStats(); stats.TotalActions != 1 {
		t.Errorf("TotalActions after reopen = %d, want 1", stats.TotalActions)
	}
}

func TestEngine_ExportImportRoundTrip(t *testing.T) {
	t.Parallel()

	src, _ := newTestEngine(t, nil, nil)
	src.SaveMemory(record.Memory{Title: "alpha note", Content: "about widgets", Tags: []string{"a"}})
	src.SaveMemory(record.Memory{Title: "beta note", Content: "about gadgets", Tags: []string{"b"}})
	src.RecordAction(record.ActionEntry{Type: record.ActionQuery, Query: "widgets"})

	q := index.Query{Text: "widgets"}
	want := src.SearchMemories(q)

	snap := src.ExportData()
	if len(snap.Memories) != 2 {
		t.Fatalf("exported %d memories, want 2", len(snap.Memories))
	}

	dst, _ := newTestEngine(t, nil, nil)
	dst.ImportData(snap)

	got := dst.SearchMemories(q)
	if len(got) != len(want) {
		t.Fatalf("imported engine answered %d results, want %d", len(got), len(want))
	}
	for i := range got {
		if got[i].ID != want[i].ID {
			t.Errorf("result[%d].ID = %q, want %q", i, got[i].ID, want[i].ID)
		}
	}
	if stats := dst.GetMemoryStats(); stats.TotalActions != 1 {
		t.Errorf("TotalActions after import = %d, want 1", stats.TotalActions)
	}
}

func TestEngine_OrganizeMemories_MergesNearIdentical(t *testing.T) {
	t.Parallel()

	eng, _ := newTestEngine(t, nil, nil)
	a := eng.SaveMemory(record.Memory{Title: "Release notes", Content: "Discussed the release timeline", Tags: []string{"work"}})
	b := eng.SaveMemory(record.Memory{Title: "Release notes again", Content: "Discussed the release timeline", Tags: []string{"work"}})
	eng.SaveMemory(record.Memory{Title: "Sourdough", Content: "Completely unrelated bread topic", Tags: []string{"cooking"}})

	report := eng.OrganizeMemories()
	if report.Merged != 1 {
		t.Fatalf("Merged = %d, want 1", report.Merged)
	}

	stats := eng.GetMemoryStats()
	if stats.TotalMemories != 2 {
		t.Fatalf("TotalMemories = %d, want 2 after merge", stats.TotalMemories)
	}

	// The older record survived; the newer one is gone.
	surviving := eng.SearchMemories(index.Query{Text: "release timeline"})
	if len(surviving) != 1 {
		t.Fatalf("got %d release memories, want 1", len(surviving))
	}
	if surviving[0].ID != a && surviving[0].ID != b {
		t.Errorf("surviving ID %q is neither original", surviving[0].ID)
	}
}

func TestEngine_OrganizeMemories_ArchivalCapped(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.Organize.MaxArchivesPerRun = 2
	eng, cl := newTestEngine(t, cfg, nil)

	// Distinct contents so nothing merges.
	eng.SaveMemory(record.Memory{Title: "one", Content: "first topic entirely alone"})
	eng.SaveMemory(record.Memory{Title: "two", Content: "second subject on its own"})
	eng.SaveMemory(record.Memory{Title: "three", Content: "third matter quite separate"})

	cl.Advance(120 * day)

	report := eng.OrganizeMemories()
	if report.Archived != 2 {
		t.Fatalf("Archived = %d, want 2 (per-run cap)", report.Archived)
	}

	stats := eng.GetMemoryStats()
	if stats.TotalMemories != 1 {
		t.Errorf("TotalMemories = %d, want 1", stats.TotalMemories)
	}
	if stats.ArchivedMemories != 2 {
		t.Errorf("ArchivedMemories = %d, want 2", stats.ArchivedMemories)
	}
}

func TestEngine_GetSuggestions_StaleProject(t *testing.T) {
	t.Parallel()

	eng, cl := newTestEngine(t, nil, nil)
	eng.SaveMemory(record.Memory{Type: record.TypeProject, Title: "Garden shed", Content: "Build the shed"})

	cl.Advance(10 * day)

	got := eng.GetSuggestions(suggest.Environment{Hour: cl.Now().Hour()}, 5)
	found := false
	for _, s := range got {
		if s.Type == suggest.TypeGoalProgress {
			found = true
		}
	}
	if !found {
		t.Fatalf("no goal-progress suggestion for a stale project; got %v", got)
	}
}

func TestEngine_RefreshSuggestions(t *testing.T) {
	t.Parallel()

	eng, cl := newTestEngine(t, nil, nil)

	// One duplicate pair plus a reinforced time-slot pattern at the current
	// hour. When fresh, the pattern insight narrowly outranks the duplicate
	// merge, so a single charged issue of the insight flips the order.
	eng.SaveMemory(record.Memory{Title: "Budget", Content: "quarterly budget plan", Tags: []string{"finance"}})
	eng.SaveMemory(record.Memory{Title: "Budget copy", Content: "quarterly budget plan", Tags: []string{"personal"}})
	for i := 0; i < 5; i++ {
		eng.RecordAction(record.ActionEntry{Type: record.ActionAppSwitch, ApplicationName: "editor"})
	}

	if got := eng.LatestSuggestions(); len(got) != 0 {
		t.Fatalf("LatestSuggestions before any refresh = %v, want empty", got)
	}

	for i := 0; i < 5; i++ {
		if got := eng.RefreshSuggestions(); len(got) == 0 {
			t.Fatalf("refresh %d returned nothing", i)
		}
	}
	if got := eng.LatestSuggestions(); len(got) == 0 {
		t.Fatal("LatestSuggestions empty after refreshes")
	}

	// The refreshes were read-ahead only: the first user-facing call still
	// sees the insight at full freshness.
	env := suggest.Environment{Hour: cl.Now().Hour()}
	first := eng.GetSuggestions(env, 1)
	if len(first) != 1 || first[0].Type != suggest.TypePatternInsight {
		t.Fatalf("first GetSuggestions = %v, want the pattern insight on top", first)
	}

	// That call did count, and the repetition penalty reorders.
	second := eng.GetSuggestions(env, 1)
	if len(second) != 1 || second[0].Type != suggest.TypeProductivity {
		t.Fatalf("second GetSuggestions = %v, want productivity once the insight loses freshness", second)
	}
}

func TestEngine_TagManagement(t *testing.T) {
	t.Parallel()

	eng, _ := newTestEngine(t, nil, nil)
	eng.SaveMemory(record.Memory{Title: "a", Content: "x", Tags: []string{"golang", "notes"}})
	eng.SaveMemory(record.Memory{Title: "b", Content: "y", Tags: []string{"Golang"}})
	eng.SaveMemory(record.Memory{Title: "c", Content: "z", Tags: []string{"notes"}})

	tags := eng.GetAllTags()
	if len(tags) != 2 {
		t.Fatalf("GetAllTags returned %d tags, want 2", len(tags))
	}
	if tags[0].Count != 2 || tags[1].Count != 2 {
		t.Errorf("tag counts = %d, %d; want 2, 2", tags[0].Count, tags[1].Count)
	}

	if n := eng.MergeTags("golang", "go"); n != 2 {
		t.Fatalf("MergeTags(golang, go) = %d, want 2", n)
	}
	if got := eng.SearchMemories(index.Query{Filters: index.Filters{Tags: []string{"go"}}}); len(got) != 2 {
		t.Fatalf("searching merged tag: got %d results, want 2", len(got))
	}

	if n := eng.RemoveTag("notes"); n != 2 {
		t.Fatalf("RemoveTag(notes) = %d, want 2", n)
	}
	for _, tc := range eng.GetAllTags() {
		if tc.Tag == "notes" {
			t.Fatal("removed tag still reported")
		}
	}
}

func TestEngine_GetOrganizationInsights(t *testing.T) {
	t.Parallel()

	eng, _ := newTestEngine(t, nil, nil)
	eng.SaveMemory(record.Memory{Title: "Standup", Content: "Discussed the release timeline", Tags: []string{"work"}})
	eng.SaveMemory(record.Memory{Title: "Standup copy", Content: "Discussed the release timeline", Tags: []string{"work"}})

	ins := eng.GetOrganizationInsights()
	if len(ins.Duplicates) != 1 {
		t.Fatalf("Duplicates = %d, want 1", len(ins.Duplicates))
	}
	if ins.QualityScore <= 0 {
		t.Errorf("QualityScore = %v, want > 0", ins.QualityScore)
	}

	// Insights are read-only: nothing merged or archived.
	if stats := eng.GetMemoryStats(); stats.TotalMemories != 2 {
		t.Fatalf("TotalMemories = %d, want 2 (insights must not mutate)", stats.TotalMemories)
	}
}
