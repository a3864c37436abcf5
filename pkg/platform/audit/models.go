package audit

import (
	"context"
	"time"

	id "github.com/vrwarp/locus/pkg/domain"
)

// EventCategory classifies audit events by their purpose so sinks can apply
// different retention.
type EventCategory string

const (
	// CategoryCompliance covers writes to the directory and decisions made about
	// personal data. Persisted fail-closed.
	CategoryCompliance EventCategory = "compliance"

	// CategoryOperations covers routine workflow activity.
	CategoryOperations EventCategory = "operations"
)

type AuditEvent string

const (
	EventDecisionOpened     AuditEvent = "decision_opened"
	EventDecisionRetried    AuditEvent = "decision_retried"
	EventCorrectionApplied  AuditEvent = "correction_applied"
	EventCorrectionFailed   AuditEvent = "correction_failed"
	EventCorrectionRejected AuditEvent = "correction_rejected"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventCorrectionApplied:  CategoryCompliance,
	EventCorrectionFailed:   CategoryCompliance,
	EventCorrectionRejected: CategoryCompliance,

	EventDecisionOpened:  CategoryOperations,
	EventDecisionRetried: CategoryOperations,
}

// Category returns the category of the event. Unknown events are operations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Event records one step of the correction workflow. PersonID is the
// directory id of the corrected record; Original and Proposed are the field
// values before and after.
type Event struct {
	ID         id.EventID
	Category   EventCategory
	Timestamp  time.Time
	Action     string
	PersonID   string
	DecisionID id.DecisionID
	Field      string
	Original   string
	Proposed   string
	Reason     string
	ActorID    string
	RequestID  string
	ClientIP   string
	Client     string
}

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
}
