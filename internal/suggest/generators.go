package suggest

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

const staleProjectMillis = 7 * 24 * 60 * 60 * 1000

// generate runs every generator and concatenates their candidates.
func generate(in Inputs, env Environment, now int64) []Suggestion {
	var out []Suggestion
	out = append(out, goalProgressSuggestions(in, env, now)...)
	out = append(out, productivitySuggestions(in, env, now)...)
	out = append(out, patternInsightSuggestions(in, env, now)...)
	out = append(out, healthSuggestions(env, now)...)
	out = append(out, creativeSuggestions(in, env, now)...)
	return out
}

func newSuggestion(t Type, p Priority, title string, env Environment, now int64) Suggestion {
	return Suggestion{
		ID:       uuid.NewString(),
		Type:     t,
		Priority: p,
		Title:    title,
		Personalization: Personalization{
			CognitiveState: env.CognitiveState,
			Workload:       env.Workload,
		},
		CreatedAt: now,
	}
}

// goalProgressSuggestions nudges projects that have gone quiet.
func goalProgressSuggestions(in Inputs, env Environment, now int64) []Suggestion {
	var out []Suggestion
	for _, m := range in.ProjectMemories {
		if now-m.UpdatedAt < staleProjectMillis {
			continue
		}
		days := (now - m.UpdatedAt) / (24 * 60 * 60 * 1000)
		s := newSuggestion(TypeGoalProgress, PriorityHigh, fmt.Sprintf("Revisit project %q", m.Title), env, now)
		s.Description = fmt.Sprintf("No activity recorded for %d days.", days)
		s.Rationale = "Projects lose momentum quickly once updates stop."
		s.ActionItems = []string{"Review the latest notes", "Record the next concrete step"}
		s.EstimatedImpact = 0.7
		s.Confidence = 0.6
		s.RelatedGoalIDs = []string{m.ID}
		out = append(out, s)
	}
	return out
}

// productivitySuggestions surfaces store hygiene work sized to the backlog.
func productivitySuggestions(in Inputs, env Environment, now int64) []Suggestion {
	var out []Suggestion

	if n := len(in.Duplicates); n > 0 {
		s := newSuggestion(TypeProductivity, PriorityMedium, fmt.Sprintf("Merge %d duplicate memories", n), env, now)
		s.Description = "Near-identical records dilute search results."
		s.Rationale = fmt.Sprintf("The duplicate scan found %d overlapping pairs.", n)
		s.ActionItems = []string{"Review the duplicate report", "Apply the suggested merges"}
		s.EstimatedImpact = 0.5
		s.Confidence = 0.8
		out = append(out, s)
	}

	if in.ArchiveCandidates > 0 {
		s := newSuggestion(TypeProductivity, PriorityLow, fmt.Sprintf("Archive %d stale memories", in.ArchiveCandidates), env, now)
		s.Description = "Old, rarely accessed records can be archived without loss."
		s.Rationale = "Archive candidates are over the age floor with little access."
		s.ActionItems = []string{"Run auto-organization"}
		s.EstimatedImpact = 0.4
		s.Confidence = 0.7
		out = append(out, s)
	}

	if in.Orphans > 0 {
		s := newSuggestion(TypeProductivity, PriorityLow, fmt.Sprintf("Tag %d weakly connected memories", in.Orphans), env, now)
		s.Description = "Untagged, unassociated records are hard to retrieve later."
		s.Rationale = "Orphan detection found records outside every cluster."
		s.ActionItems = []string{"Add tags or associations to orphaned records"}
		s.EstimatedImpact = 0.3
		s.Confidence = 0.7
		out = append(out, s)
	}

	return out
}

// patternInsightSuggestions reflects high-confidence behavior patterns back
// to the user, prioritising those anchored on the current hour.
func patternInsightSuggestions(in Inputs, env Environment, now int64) []Suggestion {
	var out []Suggestion
	for _, p := range in.Patterns {
		if p.Confidence < 0.7 {
			continue
		}

		priority := PriorityLow
		impact := 0.4
		if strings.HasPrefix(p.ID, fmt.Sprintf("time:%d:", env.Hour)) {
			priority = PriorityMedium
			impact = 0.6
		}

		s := newSuggestion(TypePatternInsight, priority, p.Pattern, env, now)
		s.Description = fmt.Sprintf("Observed %d times.", p.Frequency)
		s.Rationale = "Recurring behavior is a candidate for automation or scheduling."
		s.ActionItems = []string{"Consider pinning related memories", "Automate the recurring step if possible"}
		s.EstimatedImpact = impact
		s.Confidence = p.Confidence
		s.RelatedPatternIDs = []string{p.ID}
		s.Personalization.MatchedPatterns = []string{p.ID}
		out = append(out, s)
	}
	return out
}

// healthSuggestions reacts to tiredness and heavy workload.
func healthSuggestions(env Environment, now int64) []Suggestion {
	var out []Suggestion

	if env.CognitiveState == StateTired {
		s := newSuggestion(TypeHealth, PriorityUrgent, "Take a short break", env, now)
		s.Description = "Current state suggests fatigue."
		s.Rationale = "Short breaks restore focus faster than pushing through."
		s.ActionItems = []string{"Step away for 10 minutes", "Hydrate"}
		s.EstimatedImpact = 0.8
		s.Confidence = 0.7
		s.ExpiresAt = now + 60*60*1000
		out = append(out, s)
	}

	if env.Workload == WorkloadHeavy {
		s := newSuggestion(TypeHealth, PriorityHigh, "Defer non-critical tasks", env, now)
		s.Description = "Workload is heavy; protect the critical path."
		s.Rationale = "Context switching under load compounds fatigue."
		s.ActionItems = []string{"Pick the single most important task", "Postpone the rest"}
		s.EstimatedImpact = 0.6
		s.Confidence = 0.6
		out = append(out, s)
	}

	return out
}

// creativeSuggestions proposes synthesis work when the user is in a creative
// state and clusters exist to draw from.
func creativeSuggestions(in Inputs, env Environment, now int64) []Suggestion {
	if env.CognitiveState != StateCreative || len(in.Clusters) == 0 {
		return nil
	}

	themes := make([]string, 0, len(in.Clusters))
	for _, c := range in.Clusters {
		themes = append(themes, c.Theme)
		if len(themes) == 3 {
			break
		}
	}

	s := newSuggestion(TypeCreative, PriorityMedium, "Connect ideas across your notes", env, now)
	s.Description = fmt.Sprintf("Recent clusters touch on: %s.", strings.Join(themes, ", "))
	s.Rationale = "Creative sessions are the best time to link related themes."
	s.ActionItems = []string{"Skim one cluster end to end", "Write a short synthesis note"}
	s.EstimatedImpact = 0.5
	s.Confidence = 0.5
	return []Suggestion{s}
}
