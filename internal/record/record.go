// Package record defines the durable data model (Memory records and the
// action-history log) and the capacity-bounded store that owns them.
package record

// MemoryType classifies a stored memory.
type MemoryType string

// Memory types.
const (
	TypeNote       MemoryType = "note"
	TypeProject    MemoryType = "project"
	TypePreference MemoryType = "preference"
	TypePattern    MemoryType = "pattern"
	TypeKnowledge  MemoryType = "knowledge"
)

// ValidMemoryType returns true if t is a recognised memory type.
func ValidMemoryType(t MemoryType) bool {
	switch t {
	case TypeNote, TypeProject, TypePreference, TypePattern, TypeKnowledge:
		return true
	}
	return false
}

// Memory is a single durable knowledge record. Timestamps are epoch
// milliseconds so persisted documents stay compatible across hosts.
type Memory struct {
	ID             string            `json:"id"`
	CreatedAt      int64             `json:"createdAt"`
	UpdatedAt      int64             `json:"updatedAt"`
	Type           MemoryType        `json:"type"`
	Title          string            `json:"title"`
	Content        string            `json:"content"`
	Tags           []string          `json:"tags,omitempty"`
	RelevanceScore float64           `json:"relevanceScore"`
	AccessCount    int               `json:"accessCount"`
	LastAccessed   int64             `json:"lastAccessed"`
	Associations   []string          `json:"associations,omitempty"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}

// Clone returns a deep copy of the memory. The store hands out clones so
// callers can never mutate indexed state directly.
func (m *Memory) Clone() *Memory {
	out := *m
	out.Tags = append([]string(nil), m.Tags...)
	out.Associations = append([]string(nil), m.Associations...)
	if m.Metadata != nil {
		out.Metadata = make(map[string]string, len(m.Metadata))
		for k, v := range m.Metadata {
			out.Metadata[k] = v
		}
	}
	return &out
}

// ActionType classifies an action-history entry.
type ActionType string

// Action types.
const (
	ActionScreenshot    ActionType = "screenshot"
	ActionAdviceRequest ActionType = "advice_request"
	ActionAppSwitch     ActionType = "app_switch"
	ActionFileAccess    ActionType = "file_access"
	ActionQuery         ActionType = "query"
)

// ValidActionType returns true if t is a recognised action type.
func ValidActionType(t ActionType) bool {
	switch t {
	case ActionScreenshot, ActionAdviceRequest, ActionAppSwitch, ActionFileAccess, ActionQuery:
		return true
	}
	return false
}

// ActionEntry is one append-only record of user activity.
type ActionEntry struct {
	ID              string            `json:"id"`
	Timestamp       int64             `json:"timestamp"`
	Type            ActionType        `json:"type"`
	ApplicationName string            `json:"applicationName,omitempty"`
	WindowTitle     string            `json:"windowTitle,omitempty"`
	Context         string            `json:"context,omitempty"`
	Query           string            `json:"query,omitempty"`
	Response        string            `json:"response,omitempty"`
	Tags            []string          `json:"tags,omitempty"`
	Metadata        map[string]string `json:"metadata,omitempty"`
}

// BehaviorPattern is a derived, confidence-weighted description of recurring
// user activity. Its ID is deterministic from the pattern signature, e.g.
// "time:9:Terminal" or "seq:Mail>Browser>Editor".
type BehaviorPattern struct {
	ID           string   `json:"id"`
	Pattern      string   `json:"pattern"`
	Frequency    int      `json:"frequency"`
	LastOccurred int64    `json:"lastOccurred"`
	Triggers     []string `json:"triggers,omitempty"`
	Outcomes     []string `json:"outcomes,omitempty"`
	Confidence   float64  `json:"confidence"`
}
