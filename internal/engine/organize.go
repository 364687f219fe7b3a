package engine

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/flemzord/mnemo/internal/organize"
)

// FindDuplicateMemories runs the exhaustive pairwise duplicate scan.
func (e *Engine) FindDuplicateMemories() []organize.DuplicatePair {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.organizer.FindDuplicates(e.store.All())
}

// Insights is the organization engine's read-only report.
type Insights struct {
	Clusters          []organize.Cluster       `json:"clusters,omitempty"`
	Duplicates        []organize.DuplicatePair `json:"duplicates,omitempty"`
	ArchiveCandidates []string                 `json:"archiveCandidates,omitempty"`
	Orphans           []string                 `json:"orphans,omitempty"`
	TagHierarchy      []organize.TagNode       `json:"tagHierarchy,omitempty"`
	QualityScore      float64                  `json:"qualityScore"`
}

// GetOrganizationInsights computes clusters, duplicates, archive candidates,
// orphans, the tag hierarchy, and the overall quality score. Everything
// reported here is derived and recomputable; nothing is mutated.
func (e *Engine) GetOrganizationInsights() Insights {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.nowMillis()
	memories := e.store.All()

	duplicates := e.organizer.FindDuplicates(memories)
	clusters := e.organizer.BuildClusters(memories)

	archiveIDs := make([]string, 0)
	for _, m := range e.organizer.ArchiveCandidates(memories, now) {
		archiveIDs = append(archiveIDs, m.ID)
	}
	orphanIDs := make([]string, 0)
	for _, m := range e.organizer.Orphans(memories, clusters) {
		orphanIDs = append(orphanIDs, m.ID)
	}

	return Insights{
		Clusters:          clusters,
		Duplicates:        duplicates,
		ArchiveCandidates: archiveIDs,
		Orphans:           orphanIDs,
		TagHierarchy:      organize.TagHierarchy(memories),
		QualityScore:      organize.QualityScore(memories, duplicates, clusters),
	}
}

// OrganizeReport summarises one auto-organization run.
type OrganizeReport struct {
	Merged    int   `json:"merged"`
	Archived  int   `json:"archived"`
	Clustered int   `json:"clustered"`
	RanAt     int64 `json:"ranAt"`
}

// OrganizeMemories executes the bounded, safe subset of detected
// opportunities: merges pairs above the merge threshold whose suggested
// action is merge, archives at most the configured number of candidates,
// and materialises high-confidence clusters as mutual associations. All
// other opportunities are surfaced via GetOrganizationInsights for manual
// review only.
func (e *Engine) OrganizeMemories() OrganizeReport {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.organizeLocked()
}

func (e *Engine) organizeLocked() OrganizeReport {
	now := e.nowMillis()
	report := OrganizeReport{RanAt: now}

	// Safe merges.
	consumed := make(map[string]bool)
	for _, pair := range e.organizer.FindDuplicates(e.store.All()) {
		if pair.SuggestedAction != organize.ActionMerge || pair.Similarity <= e.cfg.Organize.MergeThreshold {
			continue
		}
		if consumed[pair.AID] || consumed[pair.BID] {
			continue
		}
		if e.mergePair(pair, now) {
			consumed[pair.AID] = true
			consumed[pair.BID] = true
			report.Merged++
		}
	}

	// Bounded archival.
	candidates := e.organizer.ArchiveCandidates(e.store.All(), now)
	if len(candidates) > e.cfg.Organize.MaxArchivesPerRun {
		candidates = candidates[:e.cfg.Organize.MaxArchivesPerRun]
	}
	for _, m := range candidates {
		if archived, ok := e.store.Delete(m.ID); ok {
			e.idx.Remove(archived)
			e.archived = append(e.archived, archived)
			e.metrics.Archives.Add(1)
			report.Archived++
		}
	}

	// Materialise high-confidence clusters as mutual associations.
	for _, c := range e.organizer.BuildClusters(e.store.All()) {
		if c.Confidence <= e.cfg.Organize.ClusterConfidence {
			continue
		}
		e.associateCluster(c)
		report.Clustered++
	}

	e.lastOrganizedAt = now
	e.cache.Clear()
	e.persistMemories()
	e.persistArchived()
	e.persistSettings()

	e.log.Info("engine: organization run complete",
		"merged", report.Merged,
		"archived", report.Archived,
		"clustered", report.Clustered,
	)
	return report
}

// mergePair folds the newer record into the older one: content is combined,
// tags and associations unioned, counters kept at their stronger values.
func (e *Engine) mergePair(pair organize.DuplicatePair, now int64) bool {
	a, okA := e.store.Get(pair.AID)
	b, okB := e.store.Get(pair.BID)
	if !okA || !okB {
		return false
	}

	keep, drop := a, b
	if b.CreatedAt < a.CreatedAt {
		keep, drop = b, a
	}

	e.idx.Remove(keep)
	keep.Content = organize.MergedContent(keep, drop)
	keep.Tags = normalizeTags(append(keep.Tags, drop.Tags...))
	keep.Associations = unionIDs(keep.Associations, drop.Associations, drop.ID)
	keep.AccessCount += drop.AccessCount
	if drop.RelevanceScore > keep.RelevanceScore {
		keep.RelevanceScore = drop.RelevanceScore
	}
	keep.UpdatedAt = now
	e.idx.Add(keep)

	if removed, ok := e.store.Delete(drop.ID); ok {
		e.idx.Remove(removed)
	}

	e.metrics.Merges.Add(1)
	return true
}

func (e *Engine) associateCluster(c organize.Cluster) {
	for _, id := range c.MemberIDs {
		m, ok := e.store.Get(id)
		if !ok {
			continue
		}
		others := make([]string, 0, len(c.MemberIDs)-1)
		for _, other := range c.MemberIDs {
			if other != id {
				others = append(others, other)
			}
		}
		m.Associations = unionIDs(m.Associations, others)
	}
}

func unionIDs(existing []string, more []string, drop ...string) []string {
	dropped := make(map[string]bool, len(drop))
	for _, id := range drop {
		dropped[id] = true
	}
	seen := make(map[string]bool, len(existing)+len(more))
	out := make([]string, 0, len(existing)+len(more))
	for _, id := range append(append([]string(nil), existing...), more...) {
		if id == "" || dropped[id] || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// runCleanup is the daily background pass: purge old history entries and
// stale patterns.
func (e *Engine) runCleanup(context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.nowMillis()
	actionCutoff := now - int64(e.cfg.Retention.ActionDays)*24*60*60*1000
	patternCutoff := now - int64(e.cfg.Patterns.RetentionDays)*24*60*60*1000

	purgedActions := e.store.PurgeActions(actionCutoff)
	purgedPatterns := e.detector.Prune(patternCutoff)

	if purgedActions > 0 || purgedPatterns > 0 {
		e.cache.Clear()
		e.persistHistory()
		e.persistPatterns()
		e.log.Info("engine: cleanup complete",
			"actions_purged", purgedActions,
			"patterns_purged", purgedPatterns,
		)
	}
	return nil
}

// runOrganizeIfDue runs auto-organization at most once per 24 hours.
func (e *Engine) runOrganizeIfDue(context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.nowMillis()-e.lastOrganizedAt < 24*time.Hour.Milliseconds() {
		return nil
	}
	e.organizeLocked()
	return nil
}

// runSuggestionRefresh keeps the LatestSuggestions read-ahead warm.
func (e *Engine) runSuggestionRefresh(context.Context) error {
	e.RefreshSuggestions()
	return nil
}

func (e *Engine) busiestApp() string {
	app, count := "", 0
	for name, c := range e.appStats {
		if c > count || (c == count && strings.Compare(name, app) < 0) {
			app, count = name, c
		}
	}
	return app
}
