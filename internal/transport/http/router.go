// Package httptransport assembles the public HTTP surface. Module handlers
// register their own routes; this package owns the shared middleware chain
// and the operational endpoints.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"github.com/vrwarp/locus/internal/platform/metrics"
	"github.com/vrwarp/locus/pkg/platform/httputil"
	"github.com/vrwarp/locus/pkg/platform/middleware/metadata"
	"github.com/vrwarp/locus/pkg/platform/middleware/request"
	"github.com/vrwarp/locus/pkg/platform/middleware/requesttime"
)

// Registrar is implemented by module handlers.
type Registrar interface {
	Register(r chi.Router)
}

// HealthCheck probes one dependency.
type HealthCheck func(ctx context.Context) error

type Config struct {
	AllowedOrigins []string
	Metrics        *metrics.HTTP
	Logger         *slog.Logger
	Checks         map[string]HealthCheck
}

// NewRouter wires the shared middleware, /metrics, /healthz and every module.
func NewRouter(cfg Config, modules ...Registrar) http.Handler {
	r := chi.NewRouter()
	r.Use(request.RequestID)
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata)
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware)
	}

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", healthz(cfg.Checks, cfg.Logger))
	for _, m := range modules {
		m.Register(r)
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", request.HeaderRequestID},
		ExposedHeaders:   []string{request.HeaderRequestID, "Content-Disposition"},
	})
	return c.Handler(r)
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func healthz(checks map[string]HealthCheck, logger *slog.Logger) http.HandlerFunc {
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	slices.Sort(names)

	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		resp := healthResponse{Status: "ok", Checks: make(map[string]string, len(names))}
		for _, name := range names {
			if err := checks[name](ctx); err != nil {
				resp.Status = "degraded"
				resp.Checks[name] = err.Error()
				if logger != nil {
					logger.WarnContext(ctx, "health check failed", "check", name, "error", err)
				}
				continue
			}
			resp.Checks[name] = "ok"
		}

		status := http.StatusOK
		if resp.Status != "ok" {
			status = http.StatusServiceUnavailable
		}
		httputil.WriteJSON(w, status, resp)
	}
}
