// Package suggest turns pattern-detector output, organization insights, and
// contextual signals into a scored, deduplicated list of suggestions.
package suggest

import (
	"time"

	"github.com/flemzord/mnemo/internal/organize"
	"github.com/flemzord/mnemo/internal/record"
)

// CognitiveState is the coarse self-reported state of the user.
type CognitiveState string

// Cognitive states.
const (
	StateFocused    CognitiveState = "focused"
	StateDistracted CognitiveState = "distracted"
	StateCreative   CognitiveState = "creative"
	StateAnalytical CognitiveState = "analytical"
	StateTired      CognitiveState = "tired"
)

// Workload is the coarse current workload level.
type Workload string

// Workload levels.
const (
	WorkloadLight  Workload = "light"
	WorkloadMedium Workload = "medium"
	WorkloadHeavy  Workload = "heavy"
)

// Environment is the contextual snapshot suggestions are ranked against.
type Environment struct {
	Hour           int            `json:"hour"`
	Weekday        time.Weekday   `json:"weekday"`
	CurrentApp     string         `json:"currentApp,omitempty"`
	RecentActivity []string       `json:"recentActivity,omitempty"`
	CognitiveState CognitiveState `json:"cognitiveState,omitempty"`
	Workload       Workload       `json:"workload,omitempty"`
}

// Type classifies a suggestion by the generator that produced it.
type Type string

// Suggestion types.
const (
	TypeGoalProgress   Type = "goal_progress"
	TypeProductivity   Type = "productivity"
	TypePatternInsight Type = "pattern_insight"
	TypeHealth         Type = "health"
	TypeCreative       Type = "creative"
)

// Priority orders suggestions within a score band.
type Priority string

// Priorities.
const (
	PriorityUrgent Priority = "urgent"
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Personalization records why a suggestion fits the current user context.
type Personalization struct {
	CognitiveState  CognitiveState `json:"cognitiveState,omitempty"`
	Workload        Workload       `json:"workload,omitempty"`
	MatchedPatterns []string       `json:"matchedPatterns,omitempty"`
}

// Suggestion is one ranked, actionable recommendation.
type Suggestion struct {
	ID                string          `json:"id"`
	Type              Type            `json:"type"`
	Priority          Priority        `json:"priority"`
	Title             string          `json:"title"`
	Description       string          `json:"description"`
	Rationale         string          `json:"rationale"`
	ActionItems       []string        `json:"actionItems,omitempty"`
	EstimatedImpact   float64         `json:"estimatedImpact"`
	Confidence        float64         `json:"confidence"`
	ExpiresAt         int64           `json:"expiresAt,omitempty"`
	RelatedGoalIDs    []string        `json:"relatedGoalIds,omitempty"`
	RelatedPatternIDs []string        `json:"relatedPatternIds,omitempty"`
	Personalization   Personalization `json:"personalization"`
	CreatedAt         int64           `json:"createdAt"`
}

// Inputs bundles the upstream component outputs the generators read from.
type Inputs struct {
	Patterns          []record.BehaviorPattern
	Duplicates        []organize.DuplicatePair
	Clusters          []organize.Cluster
	ArchiveCandidates int
	Orphans           int
	ProjectMemories   []*record.Memory
	TotalMemories     int
}
