package config

const (
	defaultEngineHost     = "127.0.0.1"
	defaultGRPCPort       = 12345
	defaultConnectSeconds = 15
	defaultSessionSeconds = 120
	defaultLogFormat      = "console"
	defaultLogLevel       = "info"
	defaultLogDir         = "~/.local/share/goensight/logs"
	defaultJournalPath    = "~/.local/share/goensight/journal.db"

	// SecretKeyEnvVar names the environment variable consulted when
	// engine.secret_key is not set in the config file. The same variable is
	// honored by the engine itself, so exporting it once covers both sides.
	SecretKeyEnvVar = "ENSIGHT_SECURITY_TOKEN"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Engine: Engine{
			Host:     defaultEngineHost,
			GRPCPort: defaultGRPCPort,
		},
		Timeouts: Timeouts{
			ConnectSeconds: defaultConnectSeconds,
			SessionSeconds: defaultSessionSeconds,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
			LogDir: defaultLogDir,
		},
		Journal: Journal{
			Enabled: false,
			Path:    defaultJournalPath,
		},
	}
}
