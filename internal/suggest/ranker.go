package suggest

import "sort"

// Scoring weights for the final ranking pass.
const (
	impactWeight     = 0.4
	confidenceWeight = 0.3
	contextWeight    = 0.1
	freshnessWeight  = 0.1

	repetitionPenalty = 0.2
	historyWindow     = 24 * 60 * 60 * 1000 // 24h
)

var priorityBonus = map[Priority]float64{
	PriorityUrgent: 0.3,
	PriorityHigh:   0.2,
	PriorityMedium: 0.1,
	PriorityLow:    0,
}

// Ranker generates and ranks suggestions, remembering what it has already
// suggested so repeated types are penalised within a 24-hour window.
type Ranker struct {
	issued []issuedSuggestion
}

type issuedSuggestion struct {
	suggestionType Type
	at             int64
}

// NewRanker creates an empty ranker.
func NewRanker() *Ranker { return &Ranker{} }

// Suggest runs every generator over the inputs, deduplicates by type and
// title, scores against the environment, and returns the top limit
// suggestions. Returned suggestions are recorded for the freshness penalty.
func (r *Ranker) Suggest(in Inputs, env Environment, limit int, now int64) []Suggestion {
	out := r.rank(in, env, limit, now)
	for _, s := range out {
		r.issued = append(r.issued, issuedSuggestion{suggestionType: s.Type, at: now})
	}
	r.trimHistory(now)
	return out
}

// Preview ranks like Suggest but records nothing. Read-ahead lists computed
// in the background must not consume the freshness budget of suggestions the
// caller never saw.
func (r *Ranker) Preview(in Inputs, env Environment, limit int, now int64) []Suggestion {
	return r.rank(in, env, limit, now)
}

func (r *Ranker) rank(in Inputs, env Environment, limit int, now int64) []Suggestion {
	candidates := dedupe(generate(in, env, now))

	type scored struct {
		s     Suggestion
		score float64
	}
	ranked := make([]scored, 0, len(candidates))
	for _, s := range candidates {
		ranked = append(ranked, scored{s: s, score: r.score(s, env, now)})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].s.Title < ranked[j].s.Title
	})

	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}

	out := make([]Suggestion, len(ranked))
	for i, rs := range ranked {
		out[i] = rs.s
	}
	return out
}

func (r *Ranker) score(s Suggestion, env Environment, now int64) float64 {
	return s.EstimatedImpact*impactWeight +
		s.Confidence*confidenceWeight +
		priorityBonus[s.Priority] +
		contextRelevance(s.Type, env)*contextWeight +
		r.freshness(s.Type, now)*freshnessWeight
}

// contextRelevance rewards matches between a suggestion's domain and the
// current cognitive/workload state: 1 for a clear fit, 0 for a clear
// mismatch, 0.5 when the context is neutral.
func contextRelevance(t Type, env Environment) float64 {
	switch t {
	case TypeProductivity, TypeGoalProgress:
		switch env.CognitiveState {
		case StateFocused, StateAnalytical:
			return 1
		case StateTired:
			return 0
		}
	case TypeCreative:
		switch env.CognitiveState {
		case StateCreative:
			return 1
		case StateTired, StateDistracted:
			return 0
		}
	case TypeHealth:
		if env.CognitiveState == StateTired || env.Workload == WorkloadHeavy {
			return 1
		}
	case TypePatternInsight:
		if env.CognitiveState == StateAnalytical {
			return 1
		}
	}
	return 0.5
}

// freshness penalises types already suggested in the last 24 hours.
func (r *Ranker) freshness(t Type, now int64) float64 {
	count := 0
	for _, is := range r.issued {
		if is.suggestionType == t && now-is.at <= historyWindow {
			count++
		}
	}
	f := 1 - repetitionPenalty*float64(count)
	if f < 0 {
		return 0
	}
	return f
}

func (r *Ranker) trimHistory(now int64) {
	kept := r.issued[:0]
	for _, is := range r.issued {
		if now-is.at <= historyWindow {
			kept = append(kept, is)
		}
	}
	r.issued = kept
}

// dedupe keeps the highest-impact suggestion per (type, title).
func dedupe(candidates []Suggestion) []Suggestion {
	best := make(map[string]Suggestion, len(candidates))
	order := make([]string, 0, len(candidates))
	for _, s := range candidates {
		key := string(s.Type) + "|" + s.Title
		if existing, ok := best[key]; !ok {
			best[key] = s
			order = append(order, key)
		} else if s.EstimatedImpact > existing.EstimatedImpact {
			best[key] = s
		}
	}

	out := make([]Suggestion, 0, len(best))
	for _, key := range order {
		out = append(out, best[key])
	}
	return out
}
