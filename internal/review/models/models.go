// Package models holds the correction decisions of the review workflow.
package models

import (
	"fmt"
	"slices"
	"time"

	dirmodels "github.com/vrwarp/locus/internal/directory/models"
	healthmodels "github.com/vrwarp/locus/internal/health/models"
	id "github.com/vrwarp/locus/pkg/domain"
	dErrors "github.com/vrwarp/locus/pkg/domain-errors"
)

type State string

const (
	StatePending  State = "pending"
	StateApproved State = "approved"
	StateRejected State = "rejected"
	StateApplied  State = "applied"
	StateFailed   State = "failed"
)

var transitions = map[State][]State{
	StatePending:  {StateApproved, StateRejected},
	StateApproved: {StateApplied, StateFailed},
	StateFailed:   {StatePending},
}

// Open reports whether the decision still represents unresolved work.
func (s State) Open() bool {
	return s == StatePending || s == StateApproved || s == StateFailed
}

// Decision is one proposed correction of one field of one person.
type Decision struct {
	ID        id.DecisionID `json:"id"`
	PersonID  string        `json:"person_id"`
	Field     string        `json:"field"`
	Proposed  string        `json:"proposed"`
	Original  string        `json:"original,omitempty"`
	State     State         `json:"state"`
	Attempts  int           `json:"attempts"`
	LastError string        `json:"last_error,omitempty"`
	ActorID   string        `json:"actor_id,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// CanTransition reports whether to is reachable from the current state.
func (d *Decision) CanTransition(to State) bool {
	return slices.Contains(transitions[d.State], to)
}

// Transition moves the decision to a new state.
func (d *Decision) Transition(to State, at time.Time) error {
	if !d.CanTransition(to) {
		return dErrors.New(dErrors.CodeInvalidState,
			fmt.Sprintf("decision %s cannot move from %s to %s", d.ID, d.State, to))
	}
	d.State = to
	d.UpdatedAt = at
	return nil
}

// OpenRequest proposes a value for a person field.
type OpenRequest struct {
	PersonID string
	Field    string
	Proposed string
	Original string
}

// Outcome describes an applied correction. Verified is false when the
// corrected record could not be re-read; Remaining then is empty.
type Outcome struct {
	Decision  Decision               `json:"decision"`
	Person    *dirmodels.Person      `json:"-"`
	Verified  bool                   `json:"verified"`
	Resolved  bool                   `json:"resolved"`
	Remaining []healthmodels.Finding `json:"remaining"`
}
