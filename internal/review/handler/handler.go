// Package handler exposes the review workflow over HTTP. Every route requires
// a bearer token; its subject is recorded as the reviewer.
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/vrwarp/locus/internal/review/models"
	"github.com/vrwarp/locus/internal/review/service"
	id "github.com/vrwarp/locus/pkg/domain"
	dErrors "github.com/vrwarp/locus/pkg/domain-errors"
	"github.com/vrwarp/locus/pkg/platform/httputil"
	"github.com/vrwarp/locus/pkg/platform/middleware/auth"
	"github.com/vrwarp/locus/pkg/requestcontext"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks

// Service defines the review operations.
type Service interface {
	OpenWithValue(ctx context.Context, req models.OpenRequest) (*models.Decision, error)
	Approve(ctx context.Context, decisionID id.DecisionID) (*models.Outcome, error)
	Reject(ctx context.Context, decisionID id.DecisionID, reason string) (*models.Decision, error)
	Retry(ctx context.Context, decisionID id.DecisionID) (*models.Decision, error)
	Get(ctx context.Context, decisionID id.DecisionID) (*models.Decision, error)
	List(ctx context.Context) ([]*models.Decision, error)
}

type Handler struct {
	logger       *slog.Logger
	review       Service
	jwtValidator auth.JWTValidator
}

func New(review Service, jwtValidator auth.JWTValidator, logger *slog.Logger) *Handler {
	return &Handler{
		logger:       logger,
		review:       review,
		jwtValidator: jwtValidator,
	}
}

// Register registers the review routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	reviewRouter := chi.NewRouter()
	reviewRouter.Use(middleware.Recoverer)
	reviewRouter.Use(auth.RequireAuth(h.jwtValidator, h.logger))
	reviewRouter.Post("/decisions", h.handleOpen)
	reviewRouter.Get("/decisions", h.handleList)
	reviewRouter.Get("/decisions/{decisionID}", h.handleGet)
	reviewRouter.Post("/decisions/{decisionID}/approve", h.handleApprove)
	reviewRouter.Post("/decisions/{decisionID}/reject", h.handleReject)
	reviewRouter.Post("/decisions/{decisionID}/retry", h.handleRetry)

	r.Mount("/review", reviewRouter)
}

func (h *Handler) handleOpen(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[OpenDecisionRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	d, err := h.review.OpenWithValue(ctx, models.OpenRequest{
		PersonID: req.PersonID,
		Field:    req.Field,
		Proposed: req.Value,
		Original: req.Original,
	})
	if err != nil {
		h.writeError(w, ctx, requestID, "failed to open decision", err)
		return
	}

	h.logger.InfoContext(ctx, "review decision opened",
		"request_id", requestID,
		"decision_id", d.ID.String(),
		"person_id", d.PersonID,
		"field", d.Field,
	)
	httputil.WriteJSON(w, http.StatusCreated, d)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	list, err := h.review.List(ctx)
	if err != nil {
		h.writeError(w, ctx, requestcontext.RequestID(ctx), "failed to list decisions", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ListDecisionsResponse{Decisions: list})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	decisionID, ok := h.decisionID(w, r)
	if !ok {
		return
	}
	d, err := h.review.Get(ctx, decisionID)
	if err != nil {
		h.writeError(w, ctx, requestcontext.RequestID(ctx), "failed to get decision", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, d)
}

func (h *Handler) handleApprove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	decisionID, ok := h.decisionID(w, r)
	if !ok {
		return
	}

	out, err := h.review.Approve(ctx, decisionID)
	if err != nil {
		if errors.Is(err, service.ErrWriteFailed) && out != nil {
			h.logger.WarnContext(ctx, "correction write failed",
				"request_id", requestID,
				"decision_id", decisionID.String(),
				"error", err,
			)
			httputil.WriteJSON(w, http.StatusBadGateway, ApproveFailedResponse{
				Error:    string(dErrors.CodeOf(err)),
				Decision: out.Decision,
			})
			return
		}
		h.writeError(w, ctx, requestID, "failed to approve decision", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) handleReject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	decisionID, ok := h.decisionID(w, r)
	if !ok {
		return
	}

	req, ok := httputil.DecodeAndPrepare[RejectDecisionRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	d, err := h.review.Reject(ctx, decisionID, req.Reason)
	if err != nil {
		h.writeError(w, ctx, requestID, "failed to reject decision", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, d)
}

func (h *Handler) handleRetry(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	decisionID, ok := h.decisionID(w, r)
	if !ok {
		return
	}
	d, err := h.review.Retry(ctx, decisionID)
	if err != nil {
		h.writeError(w, ctx, requestcontext.RequestID(ctx), "failed to retry decision", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, d)
}

func (h *Handler) decisionID(w http.ResponseWriter, r *http.Request) (id.DecisionID, bool) {
	decisionID, err := id.ParseDecisionID(strings.TrimSpace(chi.URLParam(r, "decisionID")))
	if err != nil {
		httputil.WriteError(w, err)
		return id.DecisionID{}, false
	}
	return decisionID, true
}

func (h *Handler) writeError(w http.ResponseWriter, ctx context.Context, requestID, msg string, err error) {
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, msg,
			"request_id", requestID,
			"error", err,
		)
	} else {
		h.logger.WarnContext(ctx, msg,
			"request_id", requestID,
			"error", err,
		)
	}
	httputil.WriteError(w, err)
}
