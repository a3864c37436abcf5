//go:build integration

package kafka_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/vrwarp/locus/internal/platform/config"
	"github.com/vrwarp/locus/internal/platform/kafka"
	id "github.com/vrwarp/locus/pkg/domain"
	audit "github.com/vrwarp/locus/pkg/platform/audit"
	"github.com/vrwarp/locus/pkg/platform/audit/outbox"
	pgstore "github.com/vrwarp/locus/pkg/platform/audit/store/postgres"
	"github.com/vrwarp/locus/pkg/testutil/containers"
)

type RelaySuite struct {
	suite.Suite
	pg       *containers.PostgresContainer
	broker   string
	store    *pgstore.Store
	producer *kafka.Producer
	topic    string
}

func TestRelaySuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RelaySuite))
}

func (s *RelaySuite) SetupSuite() {
	s.pg = containers.GetManager().GetPostgres(s.T())
	s.broker = containers.GetManager().GetRedpanda(s.T()).Broker
	s.store = pgstore.New(s.pg.DB)
	s.topic = "locus.corrections.test"

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	p, err := kafka.NewProducer(config.KafkaConfig{Brokers: []string{s.broker}, Topic: s.topic}, logger)
	s.Require().NoError(err)
	s.producer = p
	s.Require().NoError(s.producer.EnsureTopic(context.Background(), 1, 1))
	// Creating twice is not an error.
	s.Require().NoError(s.producer.EnsureTopic(context.Background(), 1, 1))
}

func (s *RelaySuite) TearDownSuite() {
	if s.producer != nil {
		s.producer.Close()
	}
}

func (s *RelaySuite) SetupTest() {
	s.Require().NoError(s.pg.TruncateTables(context.Background(), "outbox"))
}

func (s *RelaySuite) consume(ctx context.Context, want int) []*kgo.Record {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(s.broker),
		kgo.ConsumeTopics(s.topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	s.Require().NoError(err)
	defer client.Close()

	var records []*kgo.Record
	for len(records) < want {
		fetches := client.PollFetches(ctx)
		if ctx.Err() != nil {
			break
		}
		fetches.EachRecord(func(r *kgo.Record) { records = append(records, r) })
	}
	return records
}

func (s *RelaySuite) TestRelayPublishesOutboxInOrder() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s.Require().NoError(s.producer.Health(ctx))

	personID := "relay-" + id.NewEventID().String()
	for _, action := range []audit.AuditEvent{audit.EventDecisionOpened, audit.EventCorrectionApplied} {
		s.Require().NoError(s.store.Append(ctx, audit.Event{
			ID:        id.NewEventID(),
			Timestamp: time.Now(),
			Action:    string(action),
			PersonID:  personID,
			Field:     "name",
			Proposed:  "Ann Lee",
		}))
	}

	relay := outbox.NewRelay(s.store, s.producer, outbox.WithBatchSize(10))
	n, err := relay.RelayOnce(ctx)
	s.Require().NoError(err)
	s.Equal(2, n)

	n, err = relay.RelayOnce(ctx)
	s.Require().NoError(err)
	s.Zero(n)

	var mine []*kgo.Record
	for _, r := range s.consume(ctx, 2) {
		if string(r.Key) == personID {
			mine = append(mine, r)
		}
	}
	s.Require().Len(mine, 2)

	var first map[string]any
	s.Require().NoError(json.Unmarshal(mine[0].Value, &first))
	s.Equal(string(audit.EventDecisionOpened), first["action"])
	s.Equal("operations", first["category"])

	headers := map[string]string{}
	for _, h := range mine[1].Headers {
		headers[h.Key] = string(h.Value)
	}
	s.Equal(string(audit.EventCorrectionApplied), headers["event_type"])
	s.NotEmpty(headers["outbox_id"])
}
