// Package handler exposes the audit engine over HTTP.
package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/vrwarp/locus/internal/health/export"
	"github.com/vrwarp/locus/internal/health/models"
	"github.com/vrwarp/locus/internal/health/service"
	dErrors "github.com/vrwarp/locus/pkg/domain-errors"
	"github.com/vrwarp/locus/pkg/platform/httputil"
	"github.com/vrwarp/locus/pkg/platform/sentinel"
	"github.com/vrwarp/locus/pkg/requestcontext"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks

// Service defines the audit operations the handler needs.
type Service interface {
	Audit(ctx context.Context, tags []models.Tag, cfg models.Config) (*models.Report, error)
	ConfirmGhost(ctx context.Context, finding models.Finding) (models.Finding, error)
}

const defaultAuditTimeout = 60 * time.Second

// Handler serves the audit endpoints.
type Handler struct {
	logger   *slog.Logger
	audit    Service
	defaults func() models.Config
	timeout  time.Duration
	limit    func(http.Handler) http.Handler
}

type Option func(*Handler)

// WithTimeout bounds a single audit run. On expiry the partial report is
// returned.
func WithTimeout(d time.Duration) Option {
	return func(h *Handler) {
		if d > 0 {
			h.timeout = d
		}
	}
}

// WithRunLimit guards the endpoints that start an audit run.
func WithRunLimit(mw func(http.Handler) http.Handler) Option {
	return func(h *Handler) {
		if mw != nil {
			h.limit = mw
		}
	}
}

// New creates an audit Handler. defaults is called per request so that
// time-relative settings are resolved at request time.
func New(audit Service, defaults func() models.Config, logger *slog.Logger, opts ...Option) *Handler {
	h := &Handler{
		logger:   logger,
		audit:    audit,
		defaults: defaults,
		timeout:  defaultAuditTimeout,
		limit:    func(next http.Handler) http.Handler { return next },
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register registers the audit routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	auditRouter := chi.NewRouter()
	auditRouter.Use(middleware.Recoverer)
	auditRouter.With(h.limit).Post("/run", h.handleRunAudit)
	auditRouter.Post("/ghosts/{personID}/confirm", h.handleConfirmGhost)
	auditRouter.With(h.limit).Get("/export.xlsx", h.handleExport)

	r.Mount("/audit", auditRouter)
}

func (h *Handler) handleRunAudit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	req, ok := httputil.DecodeAndPrepare[RunAuditRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	report, ok := h.runAudit(w, ctx, requestID, req.Tags(), req.Apply(h.defaults()))
	if !ok {
		return
	}

	h.logger.InfoContext(ctx, "audit served",
		"request_id", requestID,
		"report_id", report.ID.String(),
		"findings", report.FindingCount(),
		"partial", report.Partial(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, AuditResponse{Report: report, Partial: report.Partial()})
}

func (h *Handler) handleConfirmGhost(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	personID := strings.TrimSpace(chi.URLParam(r, "personID"))
	if personID == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "person id is required"))
		return
	}

	finding := models.Finding{Tag: models.TagGhost, Subjects: []string{personID}}
	confirmed, err := h.audit.ConfirmGhost(ctx, finding)
	if err != nil {
		h.logger.WarnContext(ctx, "ghost confirmation failed",
			"request_id", requestID,
			"person_id", personID,
			"error", err,
		)
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeNotFound, "person not found"))
		case errors.Is(err, service.ErrConfirmationFailed):
			httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeUnavailable, "check-in history unavailable"))
		default:
			httputil.WriteError(w, err)
		}
		return
	}

	count := 0
	if confirmed.CheckInCount != nil {
		count = *confirmed.CheckInCount
	}
	httputil.WriteJSON(w, http.StatusOK, ConfirmGhostResponse{PersonID: personID, CheckInCount: count})
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	var names []string
	if raw := r.URL.Query().Get("analyzers"); raw != "" {
		names = strings.Split(raw, ",")
	}
	tags, err := models.ParseTags(names)
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeValidation, err.Error()))
		return
	}

	report, ok := h.runAudit(w, ctx, requestID, tags, h.defaults())
	if !ok {
		return
	}

	f, err := export.Workbook(report)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to build workbook",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to export report"))
		return
	}
	defer func() { _ = f.Close() }()

	filename := fmt.Sprintf("locus-audit-%s.xlsx", report.GeneratedAt.UTC().Format("20060102-150405"))
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	if err := f.Write(w); err != nil {
		h.logger.ErrorContext(ctx, "failed to stream workbook",
			"request_id", requestID,
			"error", err,
		)
	}
}

// runAudit writes the error response itself and reports whether the caller
// should continue. A deadline hit mid-run still yields the partial report.
func (h *Handler) runAudit(w http.ResponseWriter, ctx context.Context, requestID string, tags []models.Tag, cfg models.Config) (*models.Report, bool) {
	runCtx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	report, err := h.audit.Audit(runCtx, tags, cfg)
	switch {
	case err == nil:
		return report, true
	case report != nil && errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil:
		h.logger.WarnContext(ctx, "audit deadline reached, serving partial report",
			"request_id", requestID,
			"completed", len(report.Completed),
		)
		return report, true
	case errors.Is(err, context.Canceled):
		h.logger.InfoContext(ctx, "audit cancelled by client", "request_id", requestID)
		return nil, false
	case dErrors.HasCode(err, dErrors.CodeBadRequest), dErrors.HasCode(err, dErrors.CodeValidation):
		h.logger.WarnContext(ctx, "invalid audit request",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return nil, false
	default:
		h.logger.ErrorContext(ctx, "audit failed",
			"request_id", requestID,
			"error", err,
		)
		if dErrors.CodeOf(err) == dErrors.CodeInternal {
			err = dErrors.Wrap(err, dErrors.CodeInternal, "audit failed")
		}
		httputil.WriteError(w, err)
		return nil, false
	}
}
