package metrics

import (
	"net/http"
	"time"

	"github.com/bitechdev/ChannelSpec/pkg/logger"
)

// Provider defines the interface for metric collection
type Provider interface {
	// RecordMessageSent records an outbound protocol message. Kind is the
	// pusher: event name, or "client" / "channel" for application traffic.
	RecordMessageSent(kind string)

	// RecordMessageReceived records an inbound protocol message by kind
	RecordMessageReceived(kind string)

	// RecordSubscriptionAttempt records the outcome of one subscribe attempt
	// (outcome: sent, queued, auth_failed, send_failed)
	RecordSubscriptionAttempt(channelType, outcome string)

	// UpdateActiveChannels updates the size of the active channel set
	UpdateActiveChannels(count int)

	// RecordAuthRequest records one authorization exchange
	RecordAuthRequest(outcome string, duration time.Duration)

	// RecordConnectionTransition records a connection state transition
	RecordConnectionTransition(state string)

	// RecordPanic records a recovered panic by location
	RecordPanic(location string)

	// Handler returns an HTTP handler for exposing metrics (e.g., /metrics endpoint)
	Handler() http.Handler
}

// globalProvider is the global metrics provider
var globalProvider Provider

// SetProvider sets the global metrics provider
func SetProvider(p Provider) {
	globalProvider = p
}

// GetProvider returns the current metrics provider
func GetProvider() Provider {
	if globalProvider == nil {
		// Return no-op provider if none is set
		return &NoOpProvider{}
	}
	return globalProvider
}

// NoOpProvider is a no-op implementation of Provider
type NoOpProvider struct{}

func (n *NoOpProvider) RecordMessageSent(kind string)                            {}
func (n *NoOpProvider) RecordMessageReceived(kind string)                        {}
func (n *NoOpProvider) RecordSubscriptionAttempt(channelType, outcome string)    {}
func (n *NoOpProvider) UpdateActiveChannels(count int)                           {}
func (n *NoOpProvider) RecordAuthRequest(outcome string, duration time.Duration) {}
func (n *NoOpProvider) RecordConnectionTransition(state string)                  {}
func (n *NoOpProvider) RecordPanic(location string)                              {}
func (n *NoOpProvider) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, err := w.Write([]byte("Metrics provider not configured"))
		if err != nil {
			logger.Warn("Failed to write. %v", err)
		}
	})
}
