// Package requesttime pins a single "now" per request so timestamps written
// during one review action agree with each other.
package requesttime

import (
	"net/http"
	"time"

	"github.com/vrwarp/locus/pkg/requestcontext"
)

// Middleware captures the time at the start of the request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithTime(r.Context(), time.Now().UTC())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
