// Package pattern mines the action-history stream for time-of-day and
// sequential usage patterns, maintaining a confidence-weighted pattern table.
package pattern

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/flemzord/mnemo/internal/record"
)

const (
	initialConfidence = 0.5
	confidenceGrowth  = 1.1
	dominanceShare    = 0.5
	sequenceLength    = 3
)

// Detector maintains the table of derived behavior patterns. It is
// single-threaded by contract; the engine serialises detector runs.
type Detector struct {
	window   int
	patterns map[string]*record.BehaviorPattern
}

// NewDetector creates a detector that examines the most recent window
// actions per run.
func NewDetector(window int) *Detector {
	if window <= 0 {
		window = 100
	}
	return &Detector{
		window:   window,
		patterns: make(map[string]*record.BehaviorPattern),
	}
}

// Detect runs one mining pass over the most recent actions. Known patterns
// are reinforced (frequency up, confidence ×1.1 capped at 1.0); new ones
// start at confidence 0.5.
func (d *Detector) Detect(actions []record.ActionEntry, now int64) {
	if len(actions) > d.window {
		actions = actions[len(actions)-d.window:]
	}
	d.detectTimeSlots(actions, now)
	d.detectSequences(actions, now)
}

// detectTimeSlots buckets actions into hourly slots and records the dominant
// application per slot when it accounts for more than half the slot.
func (d *Detector) detectTimeSlots(actions []record.ActionEntry, now int64) {
	slots := make(map[int]map[string]int)
	totals := make(map[int]int)

	for _, a := range actions {
		if a.ApplicationName == "" {
			continue
		}
		hour := time.UnixMilli(a.Timestamp).Hour()
		if slots[hour] == nil {
			slots[hour] = make(map[string]int)
		}
		slots[hour][a.ApplicationName]++
		totals[hour]++
	}

	for hour, apps := range slots {
		app, count := "", 0
		for name, c := range apps {
			if c > count || (c == count && name < app) {
				app, count = name, c
			}
		}
		if float64(count) <= dominanceShare*float64(totals[hour]) {
			continue
		}
		d.upsert(fmt.Sprintf("time:%d:%s", hour, app),
			fmt.Sprintf("Uses %s around %02d:00", app, hour),
			1, now,
			[]string{fmt.Sprintf("hour:%d", hour)},
			[]string{app},
		)
	}
}

// detectSequences slides a 3-wide window over the action list and records
// any app sequence that repeats within it. Windows containing a blank app
// name are skipped.
func (d *Detector) detectSequences(actions []record.ActionEntry, now int64) {
	occurrences := make(map[string]int)
	for i := 0; i+sequenceLength <= len(actions); i++ {
		a, b, c := actions[i].ApplicationName, actions[i+1].ApplicationName, actions[i+2].ApplicationName
		if a == "" || b == "" || c == "" {
			continue
		}
		occurrences[a+">"+b+">"+c]++
	}

	for key, n := range occurrences {
		if n <= 1 {
			continue
		}
		apps := strings.SplitN(key, ">", sequenceLength)
		d.upsert("seq:"+key,
			fmt.Sprintf("Often moves %s → %s → %s", apps[0], apps[1], apps[2]),
			n, now,
			[]string{apps[0]},
			[]string{apps[2]},
		)
	}
}

func (d *Detector) upsert(id, description string, freq int, now int64, triggers, outcomes []string) {
	if p, ok := d.patterns[id]; ok {
		p.Frequency += freq
		p.LastOccurred = now
		p.Confidence = min(p.Confidence*confidenceGrowth, 1.0)
		return
	}
	d.patterns[id] = &record.BehaviorPattern{
		ID:           id,
		Pattern:      description,
		Frequency:    freq,
		LastOccurred: now,
		Triggers:     triggers,
		Outcomes:     outcomes,
		Confidence:   initialConfidence,
	}
}

// Patterns returns all known patterns, most confident first.
func (d *Detector) Patterns() []record.BehaviorPattern {
	out := make([]record.BehaviorPattern, 0, len(d.patterns))
	for _, p := range d.patterns {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Confidence != out[j].Confidence {
			return out[i].Confidence > out[j].Confidence
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Get returns a pattern by id.
func (d *Detector) Get(id string) (record.BehaviorPattern, bool) {
	p, ok := d.patterns[id]
	if !ok {
		return record.BehaviorPattern{}, false
	}
	return *p, true
}

// Prune drops patterns whose lastOccurred is older than cutoff. Returns how
// many were removed.
func (d *Detector) Prune(cutoff int64) int {
	removed := 0
	for id, p := range d.patterns {
		if p.LastOccurred < cutoff {
			delete(d.patterns, id)
			removed++
		}
	}
	return removed
}

// Reset replaces the pattern table. Used when loading persisted state.
func (d *Detector) Reset(patterns []record.BehaviorPattern) {
	d.patterns = make(map[string]*record.BehaviorPattern, len(patterns))
	for i := range patterns {
		p := patterns[i]
		d.patterns[p.ID] = &p
	}
}
