package auth

import (
	"net/http"
	"time"

	"golang.org/x/oauth2"
)

// Option configures an HTTPAuthorizer
type Option func(*HTTPAuthorizer)

// WithHeaders adds headers to every authorization request
func WithHeaders(headers map[string]string) Option {
	return func(a *HTTPAuthorizer) {
		for key, value := range headers {
			a.headers[key] = value
		}
	}
}

// WithHeader adds a single header to every authorization request
func WithHeader(key, value string) Option {
	return func(a *HTTPAuthorizer) {
		a.headers[key] = value
	}
}

// WithTimeout bounds the authorization exchange
func WithTimeout(timeout time.Duration) Option {
	return func(a *HTTPAuthorizer) {
		if timeout > 0 {
			a.timeout = timeout
		}
	}
}

// WithTokenSource attaches an OAuth2 token source; requests then carry a
// bearer token refreshed as needed
func WithTokenSource(source oauth2.TokenSource) Option {
	return func(a *HTTPAuthorizer) {
		a.tokenSource = source
	}
}

// WithHTTPClient replaces the HTTP client entirely. Timeout and token source
// options are ignored when a client is supplied.
func WithHTTPClient(client *http.Client) Option {
	return func(a *HTTPAuthorizer) {
		a.client = client
	}
}
