package errortracking

import "context"

// NoOpProvider swallows every report. It backs disabled error tracking so
// call sites never need a nil check.
type NoOpProvider struct{}

var _ Provider = (*NoOpProvider)(nil)

// NewNoOpProvider creates a provider that drops everything
func NewNoOpProvider() *NoOpProvider {
	return &NoOpProvider{}
}

func (n *NoOpProvider) CaptureError(ctx context.Context, err error, severity Severity, extra map[string]interface{}) {
}

func (n *NoOpProvider) CaptureMessage(ctx context.Context, message string, severity Severity, extra map[string]interface{}) {
}

func (n *NoOpProvider) CapturePanic(ctx context.Context, recovered interface{}, stackTrace []byte, extra map[string]interface{}) {
}

func (n *NoOpProvider) Flush(timeout int) bool { return true }

func (n *NoOpProvider) Close() error { return nil }
