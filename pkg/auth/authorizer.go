package auth

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/oauth2"

	"github.com/bitechdev/ChannelSpec/pkg/config"
	"github.com/bitechdev/ChannelSpec/pkg/logger"
	"github.com/bitechdev/ChannelSpec/pkg/metrics"
	"github.com/bitechdev/ChannelSpec/pkg/tracing"
)

const defaultTimeout = 5 * time.Second

// Authorizer produces the authorization response required to subscribe to a
// restricted channel. The returned string is the raw response body of the
// authorization exchange.
type Authorizer interface {
	Authorize(channelName, socketID string) (string, error)
}

// AuthorizationError reports a failed authorization exchange. Message is safe
// to surface to channel listeners; Err carries the underlying cause.
type AuthorizationError struct {
	Message string
	Err     error
}

func (e *AuthorizationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AuthorizationError) Unwrap() error {
	return e.Err
}

// HTTPAuthorizer implements Authorizer against an HTTP endpoint. It posts the
// socket id and channel name as form data and returns the response body
// verbatim, so the endpoint decides the signature format.
type HTTPAuthorizer struct {
	endpoint    string
	headers     map[string]string
	timeout     time.Duration
	tokenSource oauth2.TokenSource
	client      *http.Client
}

var _ Authorizer = (*HTTPAuthorizer)(nil)

// NewHTTPAuthorizer creates an authorizer for the given endpoint URL
func NewHTTPAuthorizer(endpoint string, opts ...Option) (*HTTPAuthorizer, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("authorization endpoint is required")
	}
	parsed, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid authorization endpoint %q: %w", endpoint, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("unsupported authorization endpoint scheme %q", parsed.Scheme)
	}

	a := &HTTPAuthorizer{
		endpoint: endpoint,
		headers:  make(map[string]string),
		timeout:  defaultTimeout,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.client == nil {
		if a.tokenSource != nil {
			a.client = oauth2.NewClient(context.Background(), a.tokenSource)
		} else {
			a.client = &http.Client{}
		}
		a.client.Timeout = a.timeout
	}
	return a, nil
}

// NewHTTPAuthorizerFromConfig creates an authorizer from the loaded
// configuration
func NewHTTPAuthorizerFromConfig(cfg config.AuthConfig) (*HTTPAuthorizer, error) {
	opts := []Option{WithHeaders(cfg.Headers)}
	if cfg.Timeout > 0 {
		opts = append(opts, WithTimeout(cfg.Timeout))
	}
	return NewHTTPAuthorizer(cfg.Endpoint, opts...)
}

// Authorize posts the channel name and socket id to the endpoint and returns
// the raw response body. Every failure is reported as *AuthorizationError.
func (a *HTTPAuthorizer) Authorize(channelName, socketID string) (string, error) {
	if channelName == "" {
		return "", &AuthorizationError{Message: "channel name is required"}
	}
	if socketID == "" {
		return "", &AuthorizationError{Message: "socket id is required"}
	}

	ctx, span := tracing.StartClientSpan(context.Background(), "authorize_channel",
		attribute.String("channel.name", channelName))
	defer span.End()

	form := url.Values{}
	form.Set("channel_name", channelName)
	form.Set("socket_id", socketID)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", &AuthorizationError{Message: "unable to build authorization request", Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for key, value := range a.headers {
		req.Header.Set(key, value)
	}

	start := time.Now()
	resp, err := a.client.Do(req)
	if err != nil {
		metrics.GetProvider().RecordAuthRequest("unreachable", time.Since(start))
		tracing.RecordError(ctx, err)
		logger.Warn("[Auth] Unable to contact auth endpoint for channel %s: %v", channelName, err)
		return "", &AuthorizationError{Message: "unable to contact auth server", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.GetProvider().RecordAuthRequest("unreadable", time.Since(start))
		tracing.RecordError(ctx, err)
		return "", &AuthorizationError{Message: "unable to read authorization response", Err: err}
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		metrics.GetProvider().RecordAuthRequest("rejected", time.Since(start))
		err := fmt.Errorf("auth endpoint returned status %d", resp.StatusCode)
		tracing.RecordError(ctx, err)
		logger.Warn("[Auth] Authorization rejected for channel %s: %v", channelName, err)
		return "", &AuthorizationError{
			Message: fmt.Sprintf("authorization rejected for channel %s", channelName),
			Err:     err,
		}
	}

	metrics.GetProvider().RecordAuthRequest("ok", time.Since(start))
	logger.Debug("[Auth] Authorized channel %s for socket %s", channelName, socketID)
	return string(body), nil
}
