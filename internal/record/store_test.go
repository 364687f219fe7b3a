package record_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/flemzord/mnemo/internal/record"
)

func testMemory(id, title string) *record.Memory {
	return &record.Memory{
		ID:      id,
		Title:   title,
		Content: "content of " + title,
	}
}

func TestStore_Save_Defaults(t *testing.T) {
	t.Parallel()

	s := record.NewStore(10, 10)

	m := &record.Memory{Content: "some content"}
	evicted, err := s.Save(m, 1000)
	if err != nil {
		t.Fatalf("Save: unexpected error: %v", err)
	}
	if evicted != nil {
		t.Fatalf("Save: evicted %d records, want none", len(evicted))
	}

	if m.ID == "" {
		t.Error("Save did not assign an ID")
	}
	if m.Type != record.TypeNote {
		t.Errorf("Type = %q, want %q", m.Type, record.TypeNote)
	}
	if m.CreatedAt != 1000 || m.UpdatedAt != 1000 || m.LastAccessed != 1000 {
		t.Errorf("timestamps = %d/%d/%d, want 1000 each", m.CreatedAt, m.UpdatedAt, m.LastAccessed)
	}
	if m.AccessCount != 0 {
		t.Errorf("AccessCount = %d, want 0", m.AccessCount)
	}
}

func TestStore_Save_RejectsEmpty(t *testing.T) {
	t.Parallel()

	s := record.NewStore(10, 10)
	_, err := s.Save(&record.Memory{}, 1000)
	if !errors.Is(err, record.ErrEmptyContent) {
		t.Fatalf("Save(empty): got %v, want %v", err, record.ErrEmptyContent)
	}
	if s.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", s.Len())
	}
}

func TestStore_Save_EvictsLowestRanked(t *testing.T) {
	t.Parallel()

	s := record.NewStore(3, 10)

	// Eviction key is relevance*accessCount ascending; seed via Put so
	// counters survive.
	seed := []struct {
		id        string
		relevance float64
		access    int
	}{
		{"a", 0.9, 10}, // key 9
		{"b", 0.5, 4},  // key 2
		{"c", 0.1, 1},  // key 0.1, lowest, evicted first
	}
	for _, sd := range seed {
		m := testMemory(sd.id, sd.id)
		m.RelevanceScore = sd.relevance
		m.AccessCount = sd.access
		if ev := s.Put(m); ev != nil {
			t.Fatalf("Put(%q): unexpected eviction %v", sd.id, ev)
		}
	}

	m := testMemory("d", "d")
	m.RelevanceScore = 0.8
	m.AccessCount = 5
	evicted := s.Put(m)

	if len(evicted) != 1 {
		t.Fatalf("Put over capacity: evicted %d records, want 1", len(evicted))
	}
	if evicted[0].ID != "c" {
		t.Errorf("evicted %q, want %q", evicted[0].ID, "c")
	}
	if s.Len() != 3 {
		t.Errorf("Len() = %d, want 3", s.Len())
	}
	if _, ok := s.Get("c"); ok {
		t.Error("evicted record still retrievable")
	}
}

func TestStore_Save_EvictionTieBreaksByID(t *testing.T) {
	t.Parallel()

	s := record.NewStore(2, 10)

	// All keys are zero (accessCount 0), so the lowest ID goes first.
	for _, id := range []string{"charlie", "alpha", "bravo"} {
		s.Put(testMemory(id, id))
	}

	if s.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", s.Len())
	}
	if _, ok := s.Get("alpha"); ok {
		t.Error("alpha should have been evicted (lowest ID at equal rank)")
	}
	for _, id := range []string{"bravo", "charlie"} {
		if _, ok := s.Get(id); !ok {
			t.Errorf("%s missing after eviction", id)
		}
	}
}

func TestStore_Update(t *testing.T) {
	t.Parallel()

	s := record.NewStore(10, 10)
	m := testMemory("1", "original")
	s.Put(m)

	title := "renamed"
	relevance := 1.5 // clamped to 1
	got, err := s.Update("1", record.MemoryUpdate{
		Title:          &title,
		RelevanceScore: &relevance,
		Metadata:       map[string]string{"source": "test"},
	}, 2000)
	if err != nil {
		t.Fatalf("Update: unexpected error: %v", err)
	}
	if got.Title != "renamed" {
		t.Errorf("Title = %q, want %q", got.Title, "renamed")
	}
	if got.RelevanceScore != 1 {
		t.Errorf("RelevanceScore = %v, want 1 (clamped)", got.RelevanceScore)
	}
	if got.UpdatedAt != 2000 {
		t.Errorf("UpdatedAt = %d, want 2000", got.UpdatedAt)
	}
	if got.Metadata["source"] != "test" {
		t.Errorf("Metadata[source] = %q, want %q", got.Metadata["source"], "test")
	}
	// Untouched fields stay.
	if got.Content != "content of original" {
		t.Errorf("Content = %q, want unchanged", got.Content)
	}
}

func TestStore_Update_NotFound(t *testing.T) {
	t.Parallel()

	s := record.NewStore(10, 10)
	_, err := s.Update("missing", record.MemoryUpdate{}, 1000)
	if !errors.Is(err, record.ErrNotFound) {
		t.Fatalf("Update(missing): got %v, want %v", err, record.ErrNotFound)
	}
}

func TestStore_Update_InvalidTypeIgnored(t *testing.T) {
	t.Parallel()

	s := record.NewStore(10, 10)
	m := testMemory("1", "x")
	m.Type = record.TypeProject
	s.Put(m)

	bad := record.MemoryType("bogus")
	got, err := s.Update("1", record.MemoryUpdate{Type: &bad}, 2000)
	if err != nil {
		t.Fatalf("Update: unexpected error: %v", err)
	}
	if got.Type != record.TypeProject {
		t.Errorf("Type = %q, want %q (invalid type ignored)", got.Type, record.TypeProject)
	}
}

func TestStore_Touch(t *testing.T) {
	t.Parallel()

	s := record.NewStore(10, 10)
	m := testMemory("1", "x")
	m.UpdatedAt = 500
	s.Put(m)

	s.Touch("1", 3000)
	s.Touch("1", 4000)

	got, _ := s.Get("1")
	if got.AccessCount != 2 {
		t.Errorf("AccessCount = %d, want 2", got.AccessCount)
	}
	if got.LastAccessed != 4000 {
		t.Errorf("LastAccessed = %d, want 4000", got.LastAccessed)
	}
	if got.UpdatedAt != 500 {
		t.Errorf("UpdatedAt = %d, want 500 (retrieval must not bump it)", got.UpdatedAt)
	}

	// Unknown id is a no-op.
	s.Touch("missing", 5000)
}

func TestStore_Delete(t *testing.T) {
	t.Parallel()

	s := record.NewStore(10, 10)
	s.Put(testMemory("1", "x"))

	m, ok := s.Delete("1")
	if !ok || m.ID != "1" {
		t.Fatalf("Delete(1) = %v, %v; want record, true", m, ok)
	}
	if _, ok := s.Delete("1"); ok {
		t.Fatal("second Delete(1) succeeded, want false")
	}
	if s.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", s.Len())
	}
}

func TestStore_RecordAction_FIFO(t *testing.T) {
	t.Parallel()

	s := record.NewStore(10, 3)

	for i := 0; i < 5; i++ {
		e := s.RecordAction(record.ActionEntry{
			Type:            record.ActionAppSwitch,
			ApplicationName: fmt.Sprintf("app-%d", i),
		}, int64(1000+i))
		if e.ID == "" {
			t.Fatalf("RecordAction %d: no ID assigned", i)
		}
		if e.Timestamp != int64(1000+i) {
			t.Fatalf("RecordAction %d: Timestamp = %d, want %d", i, e.Timestamp, 1000+i)
		}
	}

	hist := s.History()
	if len(hist) != 3 {
		t.Fatalf("History() length = %d, want 3", len(hist))
	}
	// Oldest entries dropped first.
	for i, want := range []string{"app-2", "app-3", "app-4"} {
		if hist[i].ApplicationName != want {
			t.Errorf("History()[%d].ApplicationName = %q, want %q", i, hist[i].ApplicationName, want)
		}
	}
}

func TestStore_RecentActions(t *testing.T) {
	t.Parallel()

	s := record.NewStore(10, 10)
	for i := 0; i < 5; i++ {
		s.RecordAction(record.ActionEntry{ApplicationName: fmt.Sprintf("app-%d", i)}, int64(i))
	}

	recent := s.RecentActions(2)
	if len(recent) != 2 {
		t.Fatalf("RecentActions(2) length = %d, want 2", len(recent))
	}
	if recent[0].ApplicationName != "app-3" || recent[1].ApplicationName != "app-4" {
		t.Errorf("RecentActions(2) = %q, %q; want app-3, app-4",
			recent[0].ApplicationName, recent[1].ApplicationName)
	}

	if got := s.RecentActions(0); len(got) != 5 {
		t.Errorf("RecentActions(0) length = %d, want 5 (non-positive returns all)", len(got))
	}
	if got := s.RecentActions(100); len(got) != 5 {
		t.Errorf("RecentActions(100) length = %d, want 5", len(got))
	}
}

func TestStore_PurgeActions(t *testing.T) {
	t.Parallel()

	s := record.NewStore(10, 10)
	for i := 0; i < 5; i++ {
		s.RecordAction(record.ActionEntry{}, int64(i*100))
	}

	removed := s.PurgeActions(200)
	if removed != 2 {
		t.Fatalf("PurgeActions(200) removed %d, want 2", removed)
	}
	hist := s.History()
	if len(hist) != 3 {
		t.Fatalf("History() length = %d, want 3", len(hist))
	}
	if hist[0].Timestamp != 200 {
		t.Errorf("oldest surviving Timestamp = %d, want 200 (cutoff is inclusive)", hist[0].Timestamp)
	}
}

func TestMemory_Clone(t *testing.T) {
	t.Parallel()

	m := testMemory("1", "x")
	m.Tags = []string{"a", "b"}
	m.Metadata = map[string]string{"k": "v"}

	c := m.Clone()
	c.Tags[0] = "mutated"
	c.Metadata["k"] = "mutated"

	if m.Tags[0] != "a" {
		t.Error("Clone shares the Tags slice")
	}
	if m.Metadata["k"] != "v" {
		t.Error("Clone shares the Metadata map")
	}
}

func TestValidMemoryType(t *testing.T) {
	t.Parallel()

	for _, mt := range []record.MemoryType{
		record.TypeNote, record.TypeProject, record.TypePreference,
		record.TypePattern, record.TypeKnowledge,
	} {
		if !record.ValidMemoryType(mt) {
			t.Errorf("ValidMemoryType(%q) = false, want true", mt)
		}
	}
	if record.ValidMemoryType("bogus") {
		t.Error("ValidMemoryType(bogus) = true, want false")
	}
}
