// Package cache keeps an encrypted, expiring snapshot of the roster so repeated
// audits do not page through the directory each time.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/vrwarp/locus/internal/directory/models"
	"github.com/vrwarp/locus/pkg/platform/sentinel"
)

const defaultKey = "locus:roster:v1"

// Source produces a fresh roster.
type Source interface {
	Roster(ctx context.Context) ([]models.Person, error)
}

// Roster serves the roster from the snapshot store, falling back to the
// source on a miss. Cache failures are logged and never fail a fetch.
type Roster struct {
	source   Source
	store    Store
	password string
	key      string
	ttl      time.Duration
	now      func() time.Time
	logger   *slog.Logger
}

type Option func(*Roster)

func WithKey(key string) Option {
	return func(r *Roster) {
		if key != "" {
			r.key = key
		}
	}
}

func WithTTL(ttl time.Duration) Option {
	return func(r *Roster) {
		if ttl > 0 {
			r.ttl = ttl
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(r *Roster) { r.logger = logger }
}

func WithClock(now func() time.Time) Option {
	return func(r *Roster) { r.now = now }
}

// New wraps source. An empty password disables caching entirely.
func New(source Source, store Store, password string, opts ...Option) *Roster {
	r := &Roster{
		source:   source,
		store:    store,
		password: password,
		key:      defaultKey,
		ttl:      5 * time.Minute,
		now:      time.Now,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Roster) enabled() bool {
	return r.store != nil && r.password != ""
}

func (r *Roster) Roster(ctx context.Context) ([]models.Person, error) {
	if !r.enabled() {
		return r.source.Roster(ctx)
	}

	people, err := r.load(ctx)
	switch {
	case err == nil:
		r.logger.DebugContext(ctx, "roster cache hit", "key", r.key, "count", len(people))
		return people, nil
	case !errors.Is(err, sentinel.ErrCacheMiss):
		r.logger.WarnContext(ctx, "roster cache unreadable", "key", r.key, "error", err)
	}

	people, err = r.source.Roster(ctx)
	if err != nil {
		return nil, err
	}
	if err := r.save(ctx, people); err != nil {
		r.logger.WarnContext(ctx, "roster cache write failed", "key", r.key, "error", err)
	}
	return people, nil
}

// Invalidate drops the snapshot, e.g. after a correction is written back.
func (r *Roster) Invalidate(ctx context.Context) error {
	if !r.enabled() {
		return nil
	}
	return r.store.Delete(ctx, r.key)
}

func (r *Roster) load(ctx context.Context) ([]models.Person, error) {
	sealed, err := r.store.Get(ctx, r.key)
	if err != nil {
		return nil, err
	}
	plaintext, err := open(sealed, r.password)
	if err != nil {
		return nil, err
	}
	var snap snapshot
	if err := json.Unmarshal(plaintext, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	// Stores without native expiry still honour the TTL.
	if r.now().Sub(snap.StoredAt) > r.ttl {
		_ = r.store.Delete(ctx, r.key)
		return nil, sentinel.ErrCacheMiss
	}
	return snap.people(), nil
}

func (r *Roster) save(ctx context.Context, people []models.Person) error {
	plaintext, err := json.Marshal(newSnapshot(people, r.now()))
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	sealed, err := seal(plaintext, r.password)
	if err != nil {
		return err
	}
	return r.store.Set(ctx, r.key, sealed, r.ttl)
}
