package metrics

// Config holds configuration for the metrics provider
type Config struct {
	// Enabled determines whether metrics collection is enabled
	Enabled bool `mapstructure:"enabled"`

	// Namespace is the prefix for all metric names
	Namespace string `mapstructure:"namespace"`

	// AuthRequestBuckets defines histogram buckets for the authorization
	// exchange duration (in seconds)
	// Default: [0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5]
	AuthRequestBuckets []float64 `mapstructure:"auth_request_buckets"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Enabled:   true,
		Namespace: "channelspec",
		// Auth exchanges are single HTTP round trips to a nearby endpoint
		AuthRequestBuckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	}
}

// ApplyDefaults fills in any missing values with defaults
func (c *Config) ApplyDefaults() {
	if c.Namespace == "" {
		c.Namespace = "channelspec"
	}
	if len(c.AuthRequestBuckets) == 0 {
		c.AuthRequestBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5}
	}
}
