package middleware

import (
	"net/http"
	"strconv"
)

// DefaultMaxRequestSize caps request bodies at 1MB when no limit is given
const DefaultMaxRequestSize = 1 << 20

// MaxRequestSizeHeader announces the enforced limit to clients
const MaxRequestSizeHeader = "X-Max-Request-Size"

// RequestSizeLimiter bounds request body sizes. Authorization requests carry
// two short form fields, so anything large is garbage or abuse.
type RequestSizeLimiter struct {
	maxSize int64
}

// NewRequestSizeLimiter creates a limiter for maxSize bytes, falling back to
// DefaultMaxRequestSize when maxSize is zero or negative
func NewRequestSizeLimiter(maxSize int64) *RequestSizeLimiter {
	if maxSize <= 0 {
		maxSize = DefaultMaxRequestSize
	}
	return &RequestSizeLimiter{maxSize: maxSize}
}

// Middleware wraps the request body in a MaxBytesReader so oversized bodies
// fail the handler's read with 413 semantics
func (rsl *RequestSizeLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, rsl.maxSize)
		w.Header().Set(MaxRequestSizeHeader, strconv.FormatInt(rsl.maxSize, 10))
		next.ServeHTTP(w, r)
	})
}
