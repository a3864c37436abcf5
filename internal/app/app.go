// Package app wires configuration into the directory client, audit engine and
// review workflow. The server and the CLI share it.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/vrwarp/locus/internal/directory"
	dirclient "github.com/vrwarp/locus/internal/directory/client"
	"github.com/vrwarp/locus/internal/directory/cache"
	healthmetrics "github.com/vrwarp/locus/internal/health/metrics"
	healthmodels "github.com/vrwarp/locus/internal/health/models"
	healthservice "github.com/vrwarp/locus/internal/health/service"
	"github.com/vrwarp/locus/internal/platform/config"
	"github.com/vrwarp/locus/internal/platform/kafka"
	"github.com/vrwarp/locus/internal/platform/postgres"
	"github.com/vrwarp/locus/internal/platform/redis"
	"github.com/vrwarp/locus/internal/ratelimit"
	reviewmetrics "github.com/vrwarp/locus/internal/review/metrics"
	reviewservice "github.com/vrwarp/locus/internal/review/service"
	reviewstore "github.com/vrwarp/locus/internal/review/store"
	audit "github.com/vrwarp/locus/pkg/platform/audit"
	"github.com/vrwarp/locus/pkg/platform/audit/outbox"
	"github.com/vrwarp/locus/pkg/platform/audit/publisher"
	auditmemory "github.com/vrwarp/locus/pkg/platform/audit/store/memory"
	auditpostgres "github.com/vrwarp/locus/pkg/platform/audit/store/postgres"
)

// App holds the wired services and the infrastructure they own.
type App struct {
	Config    config.Server
	Audit     config.Audit
	Teams     []config.Team
	Logger    *slog.Logger
	Directory *dirclient.Client
	Roster    *cache.Roster
	Health    *healthservice.Service
	Review    *reviewservice.Service
	Publisher *publisher.Publisher
	RunLimit  *ratelimit.Middleware

	redis    *redis.Client
	db       *sql.DB
	producer *kafka.Producer
	relay    *outbox.Relay
}

type options struct {
	withMetrics bool
}

type Option func(*options)

// WithMetrics registers Prometheus collectors. Only the server exports them.
func WithMetrics() Option {
	return func(o *options) { o.withMetrics = true }
}

// New connects every configured dependency. Redis, Postgres and Kafka are
// optional; without them the roster is not cached and audit events stay in
// memory.
func New(ctx context.Context, cfg config.Server, logger *slog.Logger, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	auditCfg, err := config.LoadAudit(cfg.AuditFile)
	if err != nil {
		return nil, err
	}
	teams, err := config.LoadTeams(cfg.TeamsFile)
	if err != nil {
		return nil, err
	}

	a := &App{Config: cfg, Audit: auditCfg, Teams: teams, Logger: logger}

	clientOpts := []dirclient.Option{
		dirclient.WithHTTPClient(&http.Client{Timeout: cfg.Directory.Timeout}),
		dirclient.WithCredentials(cfg.Directory.AppID, cfg.Directory.Secret),
		dirclient.WithRateLimit(cfg.Directory.RPS, max(1, int(cfg.Directory.RPS))),
		dirclient.WithLogger(logger),
	}
	var (
		hm *healthmetrics.Metrics
		rm *reviewmetrics.Metrics
	)
	if o.withMetrics {
		clientOpts = append(clientOpts, dirclient.WithMetrics(dirclient.NewMetrics()))
		hm = healthmetrics.New()
		rm = reviewmetrics.New()
	}
	a.Directory, err = dirclient.New(cfg.Directory.BaseURL, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("directory client: %w", err)
	}

	a.redis, err = redis.New(ctx, cfg.Redis)
	if err != nil {
		return nil, err
	}
	var (
		store   cache.Store
		windows ratelimit.Store = ratelimit.NewMemoryStore()
	)
	if a.redis != nil {
		store = cache.NewRedisStore(a.redis.Client)
		windows = ratelimit.NewRedisStore(a.redis.Client)
	}
	a.RunLimit = ratelimit.New(windows, cfg.AuditRateLimit, cfg.AuditRateWindow, logger)
	fetcher := directory.NewFetcher(a.Directory, cfg.Directory.PerPage, directory.WithFetchLogger(logger))
	a.Roster = cache.New(fetcher, store, cfg.Directory.CachePassword,
		cache.WithTTL(cfg.Directory.CacheTTL),
		cache.WithLogger(logger),
	)

	a.Health = healthservice.New(a.Roster, a.Directory,
		healthservice.WithLogger(logger),
		healthservice.WithMetrics(hm),
		healthservice.WithConfirmConcurrency(auditCfg.ConfirmConcurrency),
	)

	auditStore, err := a.auditStore(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Publisher = publisher.NewPublisher(auditStore,
		publisher.WithLogger(logger),
		publisher.WithAsyncBuffer(256),
	)

	a.Review, err = reviewservice.New(reviewstore.New(), a.Directory,
		reviewservice.WithLogger(logger),
		reviewservice.WithMetrics(rm),
		reviewservice.WithPublisher(a.Publisher),
		reviewservice.WithInvalidator(a.Roster),
		reviewservice.WithMaxAttempts(auditCfg.MaxAttempts),
		reviewservice.WithValidation(auditCfg.MinPhoneDigits, auditCfg.CheckNameCasing),
	)
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) auditStore(ctx context.Context) (audit.Store, error) {
	db, err := postgres.Open(ctx, a.Config.Postgres)
	if err != nil {
		return nil, err
	}
	if db == nil {
		a.Logger.WarnContext(ctx, "no database configured, audit events kept in memory")
		return auditmemory.NewInMemoryStore(), nil
	}
	a.db = db
	if err := postgres.Migrate(db); err != nil {
		return nil, err
	}
	pg := auditpostgres.New(db)

	a.producer, err = kafka.NewProducer(a.Config.Kafka, a.Logger)
	if err != nil {
		return nil, err
	}
	if a.producer != nil {
		if err := a.producer.EnsureTopic(ctx, 3, 1); err != nil {
			a.Logger.WarnContext(ctx, "could not ensure audit topic", "error", err)
		}
		a.relay = outbox.NewRelay(pg, a.producer, outbox.WithLogger(a.Logger))
	}
	return pg, nil
}

// AuditConfig resolves analyzer defaults for a run starting now.
func (a *App) AuditConfig() healthmodels.Config {
	return healthservice.ConfigFrom(a.Audit, a.Teams, time.Now())
}

// RunRelay publishes outbox rows until ctx ends. It returns immediately when
// Kafka is not configured.
func (a *App) RunRelay(ctx context.Context) {
	if a.relay == nil {
		return
	}
	if err := a.relay.Run(ctx); err != nil && ctx.Err() == nil {
		a.Logger.ErrorContext(ctx, "outbox relay stopped", "error", err)
	}
}

// Checks returns health probes for the configured dependencies.
func (a *App) Checks() map[string]func(ctx context.Context) error {
	checks := make(map[string]func(ctx context.Context) error)
	if a.redis != nil {
		checks["redis"] = a.redis.Health
	}
	if a.db != nil {
		checks["postgres"] = a.db.PingContext
	}
	if a.producer != nil {
		checks["kafka"] = a.producer.Health
	}
	return checks
}

// Close flushes buffered audit events and releases connections.
func (a *App) Close() {
	if a.Publisher != nil {
		_ = a.Publisher.Close()
	}
	if a.producer != nil {
		a.producer.Close()
	}
	if a.db != nil {
		_ = a.db.Close()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
}
