package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// defaults covers every configuration key, so a bare environment with no
// config file still yields a usable client pointed at the default cluster.
var defaults = map[string]interface{}{
	"client.app_key":            "",
	"client.cluster":            "mt1",
	"client.host":               "",
	"client.port":               0,
	"client.use_tls":            true,
	"client.handshake_timeout":  "30s",
	"client.activity_timeout":   "120s",
	"client.pong_timeout":       "30s",
	"client.send_buffer_size":   256,
	"client.client_event_rate":  10.0,
	"client.client_event_burst": 10,

	"auth.endpoint": "",
	"auth.timeout":  "5s",

	"harness.addr":       ":8089",
	"harness.app_secret": "",
	"harness.channels":   []string{"my-channel"},
	"harness.events":     []string{"my-event"},

	"logger.dev":  false,
	"logger.path": "",

	"error_tracking.enabled":            false,
	"error_tracking.provider":           "noop",
	"error_tracking.sample_rate":        1.0,
	"error_tracking.traces_sample_rate": 0.0,

	"metrics.enabled":   false,
	"metrics.namespace": "channelspec",

	"tracing.enabled":         false,
	"tracing.service_name":    "channelspec",
	"tracing.service_version": "1.0.0",
	"tracing.endpoint":        "",
}

// Manager loads configuration from defaults, an optional YAML file and
// CHANNELSPEC_* environment variables, in ascending precedence.
type Manager struct {
	v *viper.Viper
}

// NewManager creates a manager searching the usual config locations
func NewManager() *Manager {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/channelspec")
	v.AddConfigPath("$HOME/.channelspec")

	v.SetEnvPrefix("CHANNELSPEC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	return &Manager{v: v}
}

// NewManagerWithOptions creates a manager with the search behavior adjusted
// by the given options
func NewManagerWithOptions(opts ...Option) *Manager {
	m := NewManager()
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Option adjusts how the Manager locates configuration
type Option func(*Manager)

// WithConfigFile pins the manager to one specific config file. Loading then
// fails when that file is missing.
func WithConfigFile(path string) Option {
	return func(m *Manager) {
		m.v.SetConfigFile(path)
	}
}

// WithConfigName overrides the config file base name
func WithConfigName(name string) Option {
	return func(m *Manager) {
		m.v.SetConfigName(name)
	}
}

// WithConfigPath adds a directory to the config search path
func WithConfigPath(path string) Option {
	return func(m *Manager) {
		m.v.AddConfigPath(path)
	}
}

// WithEnvPrefix overrides the environment variable prefix
func WithEnvPrefix(prefix string) Option {
	return func(m *Manager) {
		m.v.SetEnvPrefix(prefix)
	}
}

// Load reads the config file when one is present. A missing file in the
// search paths is fine, defaults and environment variables still apply; any
// other read failure is returned.
func (m *Manager) Load() error {
	if err := m.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}
	return nil
}

// GetConfig unmarshals the merged configuration
func (m *Manager) GetConfig() (*Config, error) {
	var cfg Config
	if err := m.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

// Get returns the raw value for a key
func (m *Manager) Get(key string) interface{} {
	return m.v.Get(key)
}

// GetString returns a string value for a key
func (m *Manager) GetString(key string) string {
	return m.v.GetString(key)
}

// GetInt returns an int value for a key
func (m *Manager) GetInt(key string) int {
	return m.v.GetInt(key)
}

// GetBool returns a bool value for a key
func (m *Manager) GetBool(key string) bool {
	return m.v.GetBool(key)
}

// Set overrides a single key, winning over every other source
func (m *Manager) Set(key string, value interface{}) {
	m.v.Set(key, value)
}
