package errortracking

import (
	"context"
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
)

// SentryProvider reports through the Sentry SDK. Initialization touches the
// SDK's global state, so construct at most one per process.
type SentryProvider struct {
	hub *sentry.Hub
}

var _ Provider = (*SentryProvider)(nil)

// SentryConfig carries the SDK options surfaced through configuration
type SentryConfig struct {
	DSN              string
	Environment      string
	Release          string
	Debug            bool
	SampleRate       float64
	TracesSampleRate float64
}

// NewSentryProvider initializes the Sentry SDK and wraps its current hub
func NewSentryProvider(config SentryConfig) (*SentryProvider, error) {
	err := sentry.Init(sentry.ClientOptions{
		Dsn:              config.DSN,
		Environment:      config.Environment,
		Release:          config.Release,
		Debug:            config.Debug,
		AttachStacktrace: true,
		SampleRate:       config.SampleRate,
		TracesSampleRate: config.TracesSampleRate,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Sentry: %w", err)
	}
	return &SentryProvider{hub: sentry.CurrentHub()}, nil
}

// CaptureError reports an error at the given severity
func (s *SentryProvider) CaptureError(ctx context.Context, err error, severity Severity, extra map[string]interface{}) {
	if err == nil {
		return
	}
	event := sentry.NewEvent()
	event.Level = sentryLevel(severity)
	event.Message = err.Error()
	event.Exception = []sentry.Exception{{
		Value:      err.Error(),
		Type:       fmt.Sprintf("%T", err),
		Stacktrace: sentry.ExtractStacktrace(err),
	}}
	s.send(ctx, event, extra)
}

// CaptureMessage reports a plain message at the given severity
func (s *SentryProvider) CaptureMessage(ctx context.Context, message string, severity Severity, extra map[string]interface{}) {
	if message == "" {
		return
	}
	event := sentry.NewEvent()
	event.Level = sentryLevel(severity)
	event.Message = message
	s.send(ctx, event, extra)
}

// CapturePanic reports a recovered panic as a fatal event with the stack
// trace attached as extra data
func (s *SentryProvider) CapturePanic(ctx context.Context, recovered interface{}, stackTrace []byte, extra map[string]interface{}) {
	if recovered == nil {
		return
	}
	event := sentry.NewEvent()
	event.Level = sentry.LevelFatal
	event.Message = fmt.Sprintf("Panic: %v", recovered)
	event.Exception = []sentry.Exception{{
		Value: fmt.Sprintf("%v", recovered),
		Type:  "panic",
	}}
	if stackTrace != nil {
		if extra == nil {
			extra = make(map[string]interface{})
		}
		extra["stack_trace"] = string(stackTrace)
	}
	s.send(ctx, event, extra)
}

// Flush blocks until buffered events are delivered or the timeout expires
func (s *SentryProvider) Flush(timeout int) bool {
	return sentry.Flush(time.Duration(timeout) * time.Second)
}

// Close drains outstanding events with a short grace period
func (s *SentryProvider) Close() error {
	sentry.Flush(2 * time.Second)
	return nil
}

// send attaches the extras and delivers the event on the context hub when one
// is present, falling back to the provider hub
func (s *SentryProvider) send(ctx context.Context, event *sentry.Event, extra map[string]interface{}) {
	if extra != nil {
		event.Extra = extra
	}
	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = s.hub
	}
	hub.CaptureEvent(event)
}

func sentryLevel(severity Severity) sentry.Level {
	switch severity {
	case SeverityFatal:
		return sentry.LevelFatal
	case SeverityError:
		return sentry.LevelError
	case SeverityWarning:
		return sentry.LevelWarning
	case SeverityInfo:
		return sentry.LevelInfo
	case SeverityDebug:
		return sentry.LevelDebug
	default:
		return sentry.LevelError
	}
}
