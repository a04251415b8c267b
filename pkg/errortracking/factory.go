package errortracking

import (
	"fmt"

	"github.com/bitechdev/ChannelSpec/pkg/config"
)

// NewProviderFromConfig builds the provider named in the configuration.
// Disabled tracking and the empty provider name both yield the no-op sink.
func NewProviderFromConfig(cfg config.ErrorTrackingConfig) (Provider, error) {
	if !cfg.Enabled {
		return NewNoOpProvider(), nil
	}
	switch cfg.Provider {
	case "noop", "":
		return NewNoOpProvider(), nil
	case "sentry":
		if cfg.DSN == "" {
			return nil, fmt.Errorf("sentry DSN is required when error tracking is enabled")
		}
		return NewSentryProvider(SentryConfig{
			DSN:              cfg.DSN,
			Environment:      cfg.Environment,
			Release:          cfg.Release,
			Debug:            cfg.Debug,
			SampleRate:       cfg.SampleRate,
			TracesSampleRate: cfg.TracesSampleRate,
		})
	default:
		return nil, fmt.Errorf("unknown error tracking provider: %s", cfg.Provider)
	}
}
