package config

import "time"

// Config represents the complete application configuration
type Config struct {
	Client        ClientConfig        `mapstructure:"client"`
	Auth          AuthConfig          `mapstructure:"auth"`
	Harness       HarnessConfig       `mapstructure:"harness"`
	Logger        LoggerConfig        `mapstructure:"logger"`
	ErrorTracking ErrorTrackingConfig `mapstructure:"error_tracking"`
	Metrics       MetricsConfig       `mapstructure:"metrics"`
	Tracing       TracingConfig       `mapstructure:"tracing"`
}

// ClientConfig holds the pub/sub client configuration
type ClientConfig struct {
	AppKey           string        `mapstructure:"app_key"`
	Cluster          string        `mapstructure:"cluster"`
	Host             string        `mapstructure:"host"` // overrides the cluster-derived host when set
	Port             int           `mapstructure:"port"` // 0 derives 443 (TLS) or 80
	UseTLS           bool          `mapstructure:"use_tls"`
	HandshakeTimeout time.Duration `mapstructure:"handshake_timeout"`
	ActivityTimeout  time.Duration `mapstructure:"activity_timeout"` // fallback when the server does not negotiate one
	PongTimeout      time.Duration `mapstructure:"pong_timeout"`
	SendBufferSize   int           `mapstructure:"send_buffer_size"`
	ClientEventRate  float64       `mapstructure:"client_event_rate"` // client-* events per second
	ClientEventBurst int           `mapstructure:"client_event_burst"`
}

// AuthConfig holds the private/presence channel authorization endpoint configuration
type AuthConfig struct {
	Endpoint string            `mapstructure:"endpoint"`
	Headers  map[string]string `mapstructure:"headers"`
	Timeout  time.Duration     `mapstructure:"timeout"`
}

// HarnessConfig configures the testclient binary
type HarnessConfig struct {
	Addr      string   `mapstructure:"addr"`       // local HTTP server (metrics, health, sample auth endpoint)
	AppSecret string   `mapstructure:"app_secret"` // used by the sample auth endpoint to sign subscriptions
	Channels  []string `mapstructure:"channels"`   // channels the harness subscribes to on start
	Events    []string `mapstructure:"events"`     // event names the harness binds on every channel
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Dev  bool   `mapstructure:"dev"`
	Path string `mapstructure:"path"`
}

// ErrorTrackingConfig holds error tracking configuration
type ErrorTrackingConfig struct {
	Enabled          bool    `mapstructure:"enabled"`
	Provider         string  `mapstructure:"provider"`           // sentry, noop
	DSN              string  `mapstructure:"dsn"`                // Sentry DSN
	Environment      string  `mapstructure:"environment"`        // e.g., production, staging, development
	Release          string  `mapstructure:"release"`            // Application version/release
	Debug            bool    `mapstructure:"debug"`              // Enable debug mode
	SampleRate       float64 `mapstructure:"sample_rate"`        // Error sample rate (0.0-1.0)
	TracesSampleRate float64 `mapstructure:"traces_sample_rate"` // Traces sample rate (0.0-1.0)
}

// MetricsConfig holds metrics provider configuration
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Namespace string `mapstructure:"namespace"`
}

// TracingConfig holds OpenTelemetry tracing configuration
type TracingConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	ServiceName    string `mapstructure:"service_name"`
	ServiceVersion string `mapstructure:"service_version"`
	Endpoint       string `mapstructure:"endpoint"`
}
