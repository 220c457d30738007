package config

// Default values for configuration options, the "layer 0" of the override
// chain. The base URL matches a local development backend.
const (
	defaultBaseURL   = "http://127.0.0.1:10712"
	defaultTimeout   = "30s"
	defaultLogLevel  = "info"
	defaultLogFormat = "auto"
)

// DefaultConfig returns a Config populated with all default values. It is
// the starting point for TOML decoding (unset fields retain defaults) and
// the fallback when no config file exists.
func DefaultConfig() *Config {
	return &Config{
		Backend: BackendConfig{
			BaseURL: defaultBaseURL,
			Timeout: defaultTimeout,
		},
		Logging: LoggingConfig{
			LogLevel:  defaultLogLevel,
			LogFormat: defaultLogFormat,
		},
	}
}
