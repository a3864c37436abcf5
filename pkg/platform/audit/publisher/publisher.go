// Package publisher emits correction audit events to a store.
//
// Compliance events (applied, failed and rejected corrections) are always
// written synchronously and a failed write is returned to the caller: the
// review workflow refuses to report success for a correction it could not
// record. Operations events go through an optional async buffer and are
// dropped when the buffer is full.
package publisher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	id "github.com/vrwarp/locus/pkg/domain"
	audit "github.com/vrwarp/locus/pkg/platform/audit"
)

// ErrBufferFull is returned when an operations event is dropped.
var ErrBufferFull = errors.New("audit buffer full")

type Lister interface {
	ListByPerson(ctx context.Context, personID string) ([]audit.Event, error)
}

type Publisher struct {
	store  audit.Store
	logger *slog.Logger
	now    func() time.Time

	buffer chan audit.Event
	wg     sync.WaitGroup
	once   sync.Once
}

type Option func(*Publisher)

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) { p.logger = logger }
}

// WithAsyncBuffer routes operations events through a buffered channel of size n.
func WithAsyncBuffer(n int) Option {
	return func(p *Publisher) {
		if n > 0 {
			p.buffer = make(chan audit.Event, n)
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(p *Publisher) { p.now = now }
}

func NewPublisher(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{store: store, now: time.Now}
	for _, opt := range opts {
		opt(p)
	}
	if p.buffer != nil {
		p.wg.Add(1)
		go p.drain()
	}
	return p
}

// Emit stamps and persists an event. Compliance events block until written.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if event.Action == "" {
		return fmt.Errorf("audit event requires Action")
	}
	if event.ID.IsNil() {
		event.ID = id.NewEventID()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = p.now()
	}
	event.Category = audit.AuditEvent(event.Action).Category()

	if event.Category == audit.CategoryCompliance || p.buffer == nil {
		if err := p.store.Append(ctx, event); err != nil {
			if p.logger != nil {
				p.logger.ErrorContext(ctx, "audit persistence failed",
					"action", event.Action,
					"person_id", event.PersonID,
					"decision_id", event.DecisionID,
					"error", err,
				)
			}
			return fmt.Errorf("audit persistence failed: %w", err)
		}
		return nil
	}

	select {
	case p.buffer <- event:
		return nil
	default:
		if p.logger != nil {
			p.logger.WarnContext(ctx, "audit buffer full, dropping event",
				"action", event.Action,
				"person_id", event.PersonID,
			)
		}
		return ErrBufferFull
	}
}

func (p *Publisher) drain() {
	defer p.wg.Done()
	for event := range p.buffer {
		if err := p.store.Append(context.Background(), event); err != nil && p.logger != nil {
			p.logger.Error("async audit persistence failed",
				"action", event.Action,
				"person_id", event.PersonID,
				"error", err,
			)
		}
	}
}

// List returns events for a person when the store supports reads.
func (p *Publisher) List(ctx context.Context, personID string) ([]audit.Event, error) {
	lister, ok := p.store.(Lister)
	if !ok {
		return nil, fmt.Errorf("audit store does not support listing")
	}
	return lister.ListByPerson(ctx, personID)
}

// Close flushes buffered events. Safe to call more than once.
func (p *Publisher) Close() error {
	p.once.Do(func() {
		if p.buffer != nil {
			close(p.buffer)
			p.wg.Wait()
		}
	})
	return nil
}
