//go:build integration

package postgres_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	id "github.com/vrwarp/locus/pkg/domain"
	audit "github.com/vrwarp/locus/pkg/platform/audit"
	pgstore "github.com/vrwarp/locus/pkg/platform/audit/store/postgres"
	"github.com/vrwarp/locus/pkg/testutil/containers"
)

type OutboxStoreSuite struct {
	suite.Suite
	pg    *containers.PostgresContainer
	store *pgstore.Store
}

func TestOutboxStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(OutboxStoreSuite))
}

func (s *OutboxStoreSuite) SetupSuite() {
	s.pg = containers.GetManager().GetPostgres(s.T())
	s.store = pgstore.New(s.pg.DB)
}

func (s *OutboxStoreSuite) SetupTest() {
	s.Require().NoError(s.pg.TruncateTables(context.Background(), "outbox"))
}

func correction(personID, action string) audit.Event {
	return audit.Event{
		ID:         id.NewEventID(),
		Timestamp:  time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC),
		Action:     action,
		PersonID:   personID,
		DecisionID: id.NewDecisionID(),
		Field:      "phone",
		Original:   "555-1234",
		Proposed:   "(555) 555-1234",
		ActorID:    "reviewer-1",
		RequestID:  "req-1",
	}
}

// =============================================================================
// Append / ListByPerson
// =============================================================================

func (s *OutboxStoreSuite) TestAppendAndListByPerson() {
	ctx := context.Background()
	s.Require().NoError(s.store.Append(ctx, correction("p1", string(audit.EventCorrectionApplied))))
	s.Require().NoError(s.store.Append(ctx, correction("p2", string(audit.EventCorrectionRejected))))
	s.Require().NoError(s.store.Append(ctx, correction("p1", string(audit.EventCorrectionFailed))))

	events, err := s.store.ListByPerson(ctx, "p1")
	s.Require().NoError(err)
	s.Require().Len(events, 2)
	s.Equal(string(audit.EventCorrectionApplied), events[0].Action)
	s.Equal(string(audit.EventCorrectionFailed), events[1].Action)
	s.Equal(audit.CategoryCompliance, events[0].Category)
	s.Equal("(555) 555-1234", events[0].Proposed)
	s.Equal("reviewer-1", events[0].ActorID)
}

func (s *OutboxStoreSuite) TestAppendRolledBackWithTransaction() {
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.store.WithinTx(ctx, func(ctx context.Context) error {
		s.Require().NoError(s.store.Append(ctx, correction("p1", string(audit.EventCorrectionApplied))))
		return boom
	})
	s.ErrorIs(err, boom)

	events, err := s.store.ListByPerson(ctx, "p1")
	s.Require().NoError(err)
	s.Empty(events)
}

// =============================================================================
// Outbox claiming
// =============================================================================

func (s *OutboxStoreSuite) TestFetchAndMarkPublished() {
	ctx := context.Background()
	for _, p := range []string{"p1", "p2", "p3"} {
		s.Require().NoError(s.store.Append(ctx, correction(p, string(audit.EventCorrectionApplied))))
	}

	var claimed []string
	s.Require().NoError(s.store.WithinTx(ctx, func(ctx context.Context) error {
		entries, err := s.store.FetchUnpublished(ctx, 2)
		if err != nil {
			return err
		}
		for _, e := range entries {
			var payload map[string]any
			s.Require().NoError(json.Unmarshal(e.Payload, &payload))
			s.Equal(e.AggregateID, payload["person_id"])
			claimed = append(claimed, e.ID)
		}
		return s.store.MarkPublished(ctx, claimed)
	}))
	s.Len(claimed, 2)

	var rest []string
	s.Require().NoError(s.store.WithinTx(ctx, func(ctx context.Context) error {
		entries, err := s.store.FetchUnpublished(ctx, 10)
		for _, e := range entries {
			rest = append(rest, e.ID)
		}
		return err
	}))
	s.Len(rest, 1)
	s.NotContains(claimed, rest[0])
}
