package testsupport

import (
	"path/filepath"
	"testing"

	"goensight/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Logging.LogDir = filepath.Join(base, "logs")
	cfgVal.Journal.Enabled = true
	cfgVal.Journal.Path = filepath.Join(base, "journal", "events.db")

	for _, opt := range opts {
		opt(&cfgVal)
	}
	return &cfgVal
}

// WithEngineEndpoint points the config at a specific engine address.
func WithEngineEndpoint(host string, port int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Engine.Host = host
		cfg.Engine.GRPCPort = port
	}
}

// WithSecretKey sets the shared secret on the test config.
func WithSecretKey(key string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Engine.SecretKey = key
	}
}

// WithTimeouts overrides the connect and session timeouts, both in
// seconds.
func WithTimeouts(connect, session int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Timeouts.ConnectSeconds = connect
		cfg.Timeouts.SessionSeconds = session
	}
}
