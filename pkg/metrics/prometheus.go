package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusProvider implements the Provider interface using Prometheus
type PrometheusProvider struct {
	messagesSent          *prometheus.CounterVec
	messagesReceived      *prometheus.CounterVec
	subscriptionAttempts  *prometheus.CounterVec
	activeChannels        prometheus.Gauge
	authRequestDuration   *prometheus.HistogramVec
	connectionTransitions *prometheus.CounterVec
	panics                *prometheus.CounterVec
}

// NewPrometheusProvider creates a new Prometheus metrics provider. A nil
// config uses DefaultConfig. Metrics register against the default registry,
// so construct at most one provider per process.
func NewPrometheusProvider(config *Config) *PrometheusProvider {
	if config == nil {
		config = DefaultConfig()
	}
	config.ApplyDefaults()

	return &PrometheusProvider{
		messagesSent: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: config.Namespace,
				Name:      "messages_sent_total",
				Help:      "Total number of outbound protocol messages",
			},
			[]string{"kind"},
		),
		messagesReceived: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: config.Namespace,
				Name:      "messages_received_total",
				Help:      "Total number of inbound protocol messages",
			},
			[]string{"kind"},
		),
		subscriptionAttempts: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: config.Namespace,
				Name:      "subscription_attempts_total",
				Help:      "Subscribe attempts by channel type and outcome",
			},
			[]string{"channel_type", "outcome"},
		),
		activeChannels: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: config.Namespace,
				Name:      "active_channels",
				Help:      "Current number of channels in the active set",
			},
		),
		authRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: config.Namespace,
				Name:      "auth_request_duration_seconds",
				Help:      "Authorization exchange duration in seconds",
				Buckets:   config.AuthRequestBuckets,
			},
			[]string{"outcome"},
		),
		connectionTransitions: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: config.Namespace,
				Name:      "connection_transitions_total",
				Help:      "Connection state transitions by target state",
			},
			[]string{"state"},
		),
		panics: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: config.Namespace,
				Name:      "panics_total",
				Help:      "Recovered panics by location",
			},
			[]string{"location"},
		),
	}
}

// RecordMessageSent implements Provider interface
func (p *PrometheusProvider) RecordMessageSent(kind string) {
	p.messagesSent.WithLabelValues(kind).Inc()
}

// RecordMessageReceived implements Provider interface
func (p *PrometheusProvider) RecordMessageReceived(kind string) {
	p.messagesReceived.WithLabelValues(kind).Inc()
}

// RecordSubscriptionAttempt implements Provider interface
func (p *PrometheusProvider) RecordSubscriptionAttempt(channelType, outcome string) {
	p.subscriptionAttempts.WithLabelValues(channelType, outcome).Inc()
}

// UpdateActiveChannels implements Provider interface
func (p *PrometheusProvider) UpdateActiveChannels(count int) {
	p.activeChannels.Set(float64(count))
}

// RecordAuthRequest implements Provider interface
func (p *PrometheusProvider) RecordAuthRequest(outcome string, duration time.Duration) {
	p.authRequestDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

// RecordConnectionTransition implements Provider interface
func (p *PrometheusProvider) RecordConnectionTransition(state string) {
	p.connectionTransitions.WithLabelValues(state).Inc()
}

// RecordPanic implements Provider interface
func (p *PrometheusProvider) RecordPanic(location string) {
	p.panics.WithLabelValues(location).Inc()
}

// Handler implements Provider interface
func (p *PrometheusProvider) Handler() http.Handler {
	return promhttp.Handler()
}
