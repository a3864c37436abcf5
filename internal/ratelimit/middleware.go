package ratelimit

import (
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/vrwarp/locus/pkg/platform/httputil"
	"github.com/vrwarp/locus/pkg/platform/middleware/metadata"
	"github.com/vrwarp/locus/pkg/requestcontext"
)

// Middleware limits requests per client. Authenticated callers are keyed by
// actor, everyone else by client IP.
type Middleware struct {
	store  Store
	limit  int
	window time.Duration
	logger *slog.Logger
}

type exceededResponse struct {
	Error      string `json:"error"`
	Message    string `json:"message"`
	RetryAfter int    `json:"retry_after"`
}

// New returns nil when limit is not positive; a nil Middleware passes every
// request through.
func New(store Store, limit int, window time.Duration, logger *slog.Logger) *Middleware {
	if store == nil || limit <= 0 || window <= 0 {
		return nil
	}
	return &Middleware{store: store, limit: limit, window: window, logger: logger}
}

// Limit returns middleware for one endpoint class. Classes have separate
// windows.
func (m *Middleware) Limit(class string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if m == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			key := class + ":" + clientKey(r)

			res, err := m.store.Allow(ctx, key, m.limit, m.window)
			if err != nil {
				m.logger.ErrorContext(ctx, "rate limit check failed",
					"request_id", requestcontext.RequestID(ctx),
					"class", class,
					"error", err,
				)
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt.Unix(), 10))

			if !res.Allowed {
				retry := int(math.Ceil(res.RetryAfter.Seconds()))
				w.Header().Set("Retry-After", strconv.Itoa(retry))
				httputil.WriteJSON(w, http.StatusTooManyRequests, exceededResponse{
					Error:      "rate_limit_exceeded",
					Message:    "Too many requests. Please try again later.",
					RetryAfter: retry,
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientKey(r *http.Request) string {
	ctx := r.Context()
	if actor := requestcontext.ActorID(ctx); actor != "" {
		return "actor:" + actor
	}
	if ip := requestcontext.ClientIP(ctx); ip != "" {
		return "ip:" + ip
	}
	return "ip:" + metadata.ClientIPFromRequest(r)
}
