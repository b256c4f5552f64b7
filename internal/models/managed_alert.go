package models

import (
	"time"

	"github.com/google/uuid"
)

// AlertState is the operator-facing review state of a managed alert.
type AlertState string

const (
	StateOpen   AlertState = "open"
	StateClosed AlertState = "closed"
)

// Valid reports whether the state is one of the accepted values.
// Transitions are validated at the caller boundary; the store never
// sees an invalid state.
func (s AlertState) Valid() bool {
	return s == StateOpen || s == StateClosed
}

// ManagedAlert is the persisted, deduplicated review record for one
// alert from the index. The source alert ID is the natural key: at most
// one managed alert exists per index document, which is what makes
// repeated polling of the same window idempotent.
type ManagedAlert struct {
	ID      string     `json:"id"`
	AlertID string     `json:"alert_id"`
	State   AlertState `json:"state"`

	// Denormalized from the source alert for fast listing without
	// re-querying the index.
	Timestamp       time.Time `json:"timestamp"`
	AgentID         string    `json:"agent_id"`
	AgentName       string    `json:"agent_name"`
	RuleID          string    `json:"rule_id"`
	RuleLevel       int       `json:"rule_level"`
	RuleDescription string    `json:"rule_description"`

	// AlertData is the full snapshot of the source alert, if kept.
	AlertData map[string]any `json:"alert_data,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewManagedAlert builds a ManagedAlert from a source alert in the
// open state, with all denormalized fields copied and the snapshot
// serialized.
func NewManagedAlert(alert *Alert) *ManagedAlert {
	now := time.Now()
	return &ManagedAlert{
		ID:              uuid.New().String(),
		AlertID:         alert.ID,
		State:           StateOpen,
		Timestamp:       alert.Timestamp,
		AgentID:         alert.Agent.ID,
		AgentName:       alert.Agent.Name,
		RuleID:          alert.Rule.ID,
		RuleLevel:       alert.Rule.Level,
		RuleDescription: alert.Rule.Description,
		AlertData:       alert.Snapshot(),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// AlertNote is a free-text operator note attached to a managed alert.
// Authorship follows the last writer: updating a note reassigns it to
// the updating user.
type AlertNote struct {
	ID        string    `json:"id"`
	AlertID   string    `json:"alert_id"`
	Content   string    `json:"content"`
	AuthorID  string    `json:"author_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewAlertNote creates a note for the given managed alert.
func NewAlertNote(alertID, content, authorID string) *AlertNote {
	now := time.Now()
	return &AlertNote{
		ID:        uuid.New().String(),
		AlertID:   alertID,
		Content:   content,
		AuthorID:  authorID,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
