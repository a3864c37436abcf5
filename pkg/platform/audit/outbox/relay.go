// Package outbox relays rows from the transactional outbox to the message
// broker. Rows are claimed inside a transaction, published in order and marked
// published in the same transaction, so a crash between publish and commit
// republishes rather than loses events.
package outbox

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Entry is one outbox row.
type Entry struct {
	ID          string
	AggregateID string
	EventType   string
	Payload     []byte
	CreatedAt   time.Time
}

// Source is the outbox table.
type Source interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
	FetchUnpublished(ctx context.Context, limit int) ([]Entry, error)
	MarkPublished(ctx context.Context, ids []string) error
}

// Producer publishes one message keyed by aggregate.
type Producer interface {
	Produce(ctx context.Context, key, value []byte, headers map[string]string) error
}

type Relay struct {
	source    Source
	producer  Producer
	logger    *slog.Logger
	batchSize int
	interval  time.Duration
}

type Option func(*Relay)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Relay) { r.logger = logger }
}

func WithBatchSize(n int) Option {
	return func(r *Relay) {
		if n > 0 {
			r.batchSize = n
		}
	}
}

func WithInterval(d time.Duration) Option {
	return func(r *Relay) {
		if d > 0 {
			r.interval = d
		}
	}
}

func NewRelay(source Source, producer Producer, opts ...Option) *Relay {
	r := &Relay{
		source:    source,
		producer:  producer,
		logger:    slog.Default(),
		batchSize: 100,
		interval:  time.Second,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run polls until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		n, err := r.RelayOnce(ctx)
		if err != nil {
			r.logger.ErrorContext(ctx, "outbox relay failed", "error", err)
		} else if n > 0 {
			r.logger.DebugContext(ctx, "outbox relayed", "count", n)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// RelayOnce publishes one batch and returns how many entries were published.
// A produce failure stops the batch; entries before it are still marked.
func (r *Relay) RelayOnce(ctx context.Context) (int, error) {
	var (
		published  int
		produceErr error
	)
	err := r.source.WithinTx(ctx, func(ctx context.Context) error {
		entries, err := r.source.FetchUnpublished(ctx, r.batchSize)
		if err != nil {
			return fmt.Errorf("fetch outbox: %w", err)
		}
		ids := make([]string, 0, len(entries))
		for _, e := range entries {
			headers := map[string]string{"event_type": e.EventType, "outbox_id": e.ID}
			if err := r.producer.Produce(ctx, []byte(e.AggregateID), e.Payload, headers); err != nil {
				produceErr = fmt.Errorf("produce outbox entry %s: %w", e.ID, err)
				break
			}
			ids = append(ids, e.ID)
		}
		if len(ids) == 0 {
			return nil
		}
		if err := r.source.MarkPublished(ctx, ids); err != nil {
			return fmt.Errorf("mark published: %w", err)
		}
		published = len(ids)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return published, produceErr
}
