package testutil

import (
	"net/http"
	"time"

	"github.com/CrisisCore-Systems/pain-tracker-sub006/pkg/requestcontext"
)

// WithRequestID stamps a request ID on the request context, simulating what
// the middleware does for routed requests.
func WithRequestID(req *http.Request, id string) *http.Request {
	return req.WithContext(requestcontext.WithRequestID(req.Context(), id))
}

// WithClientMetadata stamps client network metadata on the request context.
func WithClientMetadata(req *http.Request, ip, userAgent string) *http.Request {
	return req.WithContext(requestcontext.WithClientMetadata(req.Context(), ip, userAgent))
}

// WithFixedTime pins the request-scoped clock for deterministic assertions.
func WithFixedTime(req *http.Request, at time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), at))
}
