// Package service runs analyzers over a roster snapshot and confirms ghost
// findings against check-in history.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	dirmodels "github.com/vrwarp/locus/internal/directory/models"
	"github.com/vrwarp/locus/internal/health/analyzers"
	"github.com/vrwarp/locus/internal/health/metrics"
	"github.com/vrwarp/locus/internal/health/models"
	"github.com/vrwarp/locus/internal/roster"
	id "github.com/vrwarp/locus/pkg/domain"
	dErrors "github.com/vrwarp/locus/pkg/domain-errors"
)

// RosterSource produces a complete roster snapshot or fails.
type RosterSource interface {
	Roster(ctx context.Context) ([]dirmodels.Person, error)
}

// CheckInCounter looks up total check-ins for a person.
type CheckInCounter interface {
	CheckInCount(ctx context.Context, personID string) (int, error)
}

// ErrConfirmationFailed marks a ghost finding that could not be confirmed.
// The finding is still returned, unconfirmed.
var ErrConfirmationFailed = errors.New("ghost confirmation failed")

const defaultConfirmConcurrency = 4

// Service aggregates analyzer output into reports.
type Service struct {
	source             RosterSource
	counter            CheckInCounter
	registry           *analyzers.Registry
	metrics            *metrics.Metrics
	logger             *slog.Logger
	tracer             trace.Tracer
	now                func() time.Time
	confirmConcurrency int
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithRegistry(r *analyzers.Registry) Option {
	return func(s *Service) { s.registry = r }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithConfirmConcurrency bounds parallel check-in lookups in ConfirmGhosts.
func WithConfirmConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.confirmConcurrency = n
		}
	}
}

func New(source RosterSource, counter CheckInCounter, opts ...Option) *Service {
	s := &Service{
		source:             source,
		counter:            counter,
		registry:           analyzers.Default(),
		logger:             slog.Default(),
		tracer:             otel.Tracer("github.com/vrwarp/locus/internal/health"),
		now:                time.Now,
		confirmConcurrency: defaultConfirmConcurrency,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Audit fetches the roster, indexes it and runs the requested analyzers. A
// fetch failure aborts the run without a report.
func (s *Service) Audit(ctx context.Context, tags []models.Tag, cfg models.Config) (*models.Report, error) {
	start := time.Now()
	defer func() { s.metrics.ObserveAudit(time.Since(start)) }()

	ctx, span := s.tracer.Start(ctx, "health.Audit")
	defer span.End()

	people, err := s.source.Roster(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "roster fetch failed")
		s.metrics.IncrementRun("fetch_failed")
		s.logger.ErrorContext(ctx, "roster fetch failed", "error", err)
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "roster fetch failed")
	}
	span.SetAttributes(attribute.Int("roster.size", len(people)))
	return s.RunAudit(ctx, roster.Build(people), tags, cfg)
}

// RunAudit runs analyzers concurrently over idx. Each analyzer is isolated:
// an error or panic is recorded in Report.Errors and the rest continue. When
// ctx ends first, the report holds only the analyzers that finished and
// ctx.Err() is returned alongside it.
func (s *Service) RunAudit(ctx context.Context, idx *roster.Index, tags []models.Tag, cfg models.Config) (*models.Report, error) {
	if len(tags) == 0 {
		tags = models.AnalyzerTags()
	}
	selected := make([]analyzers.Analyzer, 0, len(tags))
	for _, tag := range tags {
		a, ok := s.registry.Get(tag)
		if !ok {
			return nil, dErrors.New(dErrors.CodeBadRequest, fmt.Sprintf("unknown analyzer %q", tag))
		}
		selected = append(selected, a)
	}
	cfg = cfg.Normalize()

	ctx, span := s.tracer.Start(ctx, "health.RunAudit", trace.WithAttributes(
		attribute.Int("roster.size", idx.Len()),
		attribute.Int("analyzers", len(selected)),
	))
	defer span.End()

	report := models.NewReport(id.NewReportID(), s.now().UTC(), idx.Len(), tags)
	if err := ctx.Err(); err != nil {
		s.metrics.IncrementRun("cancelled")
		return report, err
	}

	var (
		mu     sync.Mutex
		sealed bool
	)
	var g errgroup.Group
	for _, a := range selected {
		g.Go(func() error {
			res, err := s.runAnalyzer(ctx, a, idx, cfg)
			mu.Lock()
			defer mu.Unlock()
			if sealed {
				return nil
			}
			if err != nil {
				report.Fail(a.Tag(), err)
				return nil
			}
			report.Attach(a.Tag(), res)
			return nil
		})
	}

	done := make(chan struct{})
	go func() {
		_ = g.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		mu.Lock()
		sealed = true
		mu.Unlock()
		span.SetStatus(codes.Error, "cancelled")
		s.metrics.IncrementRun("cancelled")
		s.logger.WarnContext(ctx, "audit cancelled, returning partial report",
			"report_id", report.ID.String(),
			"completed", len(report.Completed),
			"requested", len(tags),
		)
		return report, ctx.Err()
	}

	outcome := "complete"
	if len(report.Errors) > 0 {
		outcome = "partial"
	}
	s.metrics.IncrementRun(outcome)
	span.SetAttributes(attribute.Int("findings", report.FindingCount()))
	s.logger.InfoContext(ctx, "audit complete",
		"report_id", report.ID.String(),
		"scanned", report.TotalScanned,
		"findings", report.FindingCount(),
		"failed_analyzers", len(report.Errors),
	)
	return report, nil
}

func (s *Service) runAnalyzer(ctx context.Context, a analyzers.Analyzer, idx *roster.Index, cfg models.Config) (res models.Result, err error) {
	tag := string(a.Tag())
	_, span := s.tracer.Start(ctx, "health.analyzer", trace.WithAttributes(attribute.String("analyzer", tag)))
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			s.logger.ErrorContext(ctx, "analyzer panicked",
				"analyzer", tag,
				"panic", r,
				"stack", string(debug.Stack()),
			)
			res, err = models.Result{}, fmt.Errorf("analyzer %s panicked: %v", tag, r)
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		s.metrics.ObserveAnalyzer(tag, time.Since(start), len(res.Findings), err != nil)
	}()

	res, err = a.Analyze(idx, cfg)
	if err != nil {
		s.logger.WarnContext(ctx, "analyzer failed", "analyzer", tag, "error", err)
	}
	return res, err
}
