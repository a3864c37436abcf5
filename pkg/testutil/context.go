package testutil

import (
	"net/http"

	"github.com/vrwarp/locus/pkg/requestcontext"
)

// WithActor adds an authenticated actor to the request context.
// This simulates what the auth middleware would do for authenticated requests.
// An empty actor leaves the request unauthenticated.
func WithActor(req *http.Request, actorID string) *http.Request {
	if actorID == "" {
		return req
	}
	return req.WithContext(requestcontext.WithActorID(req.Context(), actorID))
}

// WithClient adds client metadata the way the metadata middleware does.
func WithClient(req *http.Request, clientIP, userAgent string) *http.Request {
	return req.WithContext(requestcontext.WithClientMetadata(req.Context(), clientIP, userAgent))
}
