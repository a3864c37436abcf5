// Package domain holds typed identifiers shared across modules. Typed IDs keep
// decision, report and event identifiers from being mixed up at call sites.
package domain

import (
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	dErrors "github.com/vrwarp/locus/pkg/domain-errors"
)

type (
	ReportID   uuid.UUID
	DecisionID uuid.UUID
	EventID    uuid.UUID
)

func NewReportID() ReportID     { return ReportID(uuid.New()) }
func NewDecisionID() DecisionID { return DecisionID(uuid.New()) }
func NewEventID() EventID       { return EventID(uuid.New()) }

func (id ReportID) String() string   { return uuid.UUID(id).String() }
func (id DecisionID) String() string { return uuid.UUID(id).String() }
func (id EventID) String() string    { return uuid.UUID(id).String() }

func (id ReportID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }
func (id DecisionID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id EventID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

func (id ReportID) MarshalText() ([]byte, error)   { return []byte(id.String()), nil }
func (id DecisionID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

func (id *DecisionID) UnmarshalText(b []byte) error {
	parsed, err := ParseDecisionID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// ParseDecisionID validates an identifier received at a trust boundary.
func ParseDecisionID(s string) (DecisionID, error) {
	u, err := parseUUID(s, "decision id")
	return DecisionID(u), err
}

func ParseReportID(s string) (ReportID, error) {
	u, err := parseUUID(s, "report id")
	return ReportID(u), err
}

func parseUUID(s, label string) (uuid.UUID, error) {
	if s == "" || strings.TrimSpace(s) == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" is required")
	}
	if len(s) > 64 || !utf8.ValidString(s) {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+label)
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid "+label)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" must not be nil")
	}
	return u, nil
}
