package httptransport

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vrwarp/locus/pkg/platform/middleware/request"
	"github.com/vrwarp/locus/pkg/requestcontext"
)

type echoModule struct{}

func (echoModule) Register(r chi.Router) {
	r.Get("/echo", func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		_, _ = w.Write([]byte(requestcontext.RequestID(ctx) + "|" + requestcontext.ClientIP(ctx)))
	})
}

func TestNewRouter(t *testing.T) {
	healthy := func(context.Context) error { return nil }
	broken := func(context.Context) error { return errors.New("connection refused") }

	t.Run("modules get request metadata", func(t *testing.T) {
		h := NewRouter(Config{}, echoModule{})
		req := httptest.NewRequest(http.MethodGet, "/echo", nil)
		req.Header.Set(request.HeaderRequestID, "abc-123")
		req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "abc-123|203.0.113.7", w.Body.String())
		assert.Equal(t, "abc-123", w.Header().Get(request.HeaderRequestID))
	})

	t.Run("healthz ok", func(t *testing.T) {
		h := NewRouter(Config{Checks: map[string]HealthCheck{"redis": healthy}})
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"status":"ok","checks":{"redis":"ok"}}`, w.Body.String())
	})

	t.Run("healthz degraded", func(t *testing.T) {
		h := NewRouter(Config{Checks: map[string]HealthCheck{"redis": healthy, "postgres": broken}})
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.JSONEq(t, `{"status":"degraded","checks":{"redis":"ok","postgres":"connection refused"}}`, w.Body.String())
	})

	t.Run("cors preflight from allowed origin", func(t *testing.T) {
		h := NewRouter(Config{AllowedOrigins: []string{"http://localhost:5173"}}, echoModule{})
		req := httptest.NewRequest(http.MethodOptions, "/echo", nil)
		req.Header.Set("Origin", "http://localhost:5173")
		req.Header.Set("Access-Control-Request-Method", http.MethodGet)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("metrics endpoint", func(t *testing.T) {
		h := NewRouter(Config{})
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	})
}
