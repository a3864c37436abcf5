package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	audit "github.com/vrwarp/locus/pkg/platform/audit"
	"github.com/vrwarp/locus/pkg/platform/audit/outbox"
	txcontext "github.com/vrwarp/locus/pkg/platform/tx"
)

// Store implements audit.Store using the transactional outbox pattern. Events
// are written to the outbox table and published to Kafka by outbox.Relay.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *Store) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// outboxPayload is the JSON published to Kafka.
type outboxPayload struct {
	ID         string `json:"id"`
	Category   string `json:"category"`
	Timestamp  string `json:"timestamp"`
	Action     string `json:"action"`
	PersonID   string `json:"person_id"`
	DecisionID string `json:"decision_id,omitempty"`
	Field      string `json:"field,omitempty"`
	Original   string `json:"original,omitempty"`
	Proposed   string `json:"proposed,omitempty"`
	Reason     string `json:"reason,omitempty"`
	ActorID    string `json:"actor_id,omitempty"`
	RequestID  string `json:"request_id,omitempty"`
	ClientIP   string `json:"client_ip,omitempty"`
	Client     string `json:"client,omitempty"`
}

// Append writes an audit event to the outbox table.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	eventID := event.ID.String()
	if event.ID.IsNil() {
		eventID = uuid.NewString()
	}

	payload := outboxPayload{
		ID:        eventID,
		Category:  string(audit.AuditEvent(event.Action).Category()),
		Timestamp: event.Timestamp.UTC().Format(time.RFC3339Nano),
		Action:    event.Action,
		PersonID:  event.PersonID,
		Field:     event.Field,
		Original:  event.Original,
		Proposed:  event.Proposed,
		Reason:    event.Reason,
		ActorID:   event.ActorID,
		RequestID: event.RequestID,
		ClientIP:  event.ClientIP,
		Client:    event.Client,
	}
	if !event.DecisionID.IsNil() {
		payload.DecisionID = event.DecisionID.String()
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}

	query := `
		INSERT INTO outbox (id, aggregate_type, aggregate_id, event_type, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err = s.execer(ctx).ExecContext(ctx, query,
		uuid.New(),
		"person",
		event.PersonID,
		event.Action,
		payloadBytes,
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert outbox entry: %w", err)
	}
	return nil
}

// WithinTx runs fn with a transaction stored in its context.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return txcontext.Run(ctx, s.db, fn)
}

// FetchUnpublished claims the oldest unpublished rows. Concurrent relays skip
// rows locked by each other.
func (s *Store) FetchUnpublished(ctx context.Context, limit int) ([]outbox.Entry, error) {
	query := `
		SELECT id, aggregate_id, event_type, payload, created_at
		FROM outbox
		WHERE published_at IS NULL
		ORDER BY created_at, id
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query outbox: %w", err)
	}
	defer rows.Close()

	var entries []outbox.Entry
	for rows.Next() {
		var (
			e  outbox.Entry
			id uuid.UUID
		)
		if err := rows.Scan(&id, &e.AggregateID, &e.EventType, &e.Payload, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan outbox entry: %w", err)
		}
		e.ID = id.String()
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outbox: %w", err)
	}
	return entries, nil
}

// MarkPublished stamps published_at on the given rows in one round trip.
func (s *Store) MarkPublished(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	query := `
		UPDATE outbox SET published_at = $2
		WHERE id::text = ANY($1::text[])
	`
	if _, err := s.execer(ctx).ExecContext(ctx, query, pq.Array(ids), time.Now().UTC()); err != nil {
		return fmt.Errorf("mark outbox published: %w", err)
	}
	return nil
}

// ListByPerson reads events back from the outbox payloads, oldest first.
func (s *Store) ListByPerson(ctx context.Context, personID string) ([]audit.Event, error) {
	query := `
		SELECT payload FROM outbox
		WHERE aggregate_type = 'person' AND aggregate_id = $1
		ORDER BY created_at, id
	`
	rows, err := s.db.QueryContext(ctx, query, personID)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	var events []audit.Event
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		var p outboxPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("decode audit payload: %w", err)
		}
		ts, _ := time.Parse(time.RFC3339Nano, p.Timestamp)
		events = append(events, audit.Event{
			Category:  audit.EventCategory(p.Category),
			Timestamp: ts,
			Action:    p.Action,
			PersonID:  p.PersonID,
			Field:     p.Field,
			Original:  p.Original,
			Proposed:  p.Proposed,
			Reason:    p.Reason,
			ActorID:   p.ActorID,
			RequestID: p.RequestID,
			ClientIP:  p.ClientIP,
			Client:    p.Client,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return events, nil
}
