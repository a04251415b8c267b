// Package errortracking abstracts the crash reporting backend. The logger
// mirrors warnings, errors and recovered panics through a Provider, so the
// rest of the client never talks to a vendor SDK directly.
package errortracking

import "context"

// Provider is the reporting sink. Implementations must tolerate nil extra
// maps and being called from multiple goroutines.
type Provider interface {
	// CaptureError reports an error at the given severity
	CaptureError(ctx context.Context, err error, severity Severity, extra map[string]interface{})

	// CaptureMessage reports a plain message at the given severity
	CaptureMessage(ctx context.Context, message string, severity Severity, extra map[string]interface{})

	// CapturePanic reports a recovered panic together with its stack trace
	CapturePanic(ctx context.Context, recovered interface{}, stackTrace []byte, extra map[string]interface{})

	// Flush blocks until buffered reports are delivered or the timeout in
	// seconds expires. It reports whether delivery completed.
	Flush(timeout int) bool

	// Close releases the provider; no captures may follow
	Close() error
}

// Severity grades a report
type Severity string

const (
	SeverityFatal   Severity = "fatal"
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
	SeverityDebug   Severity = "debug"
)
