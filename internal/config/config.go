// Package config implements TOML configuration loading and platform-specific
// path resolution for magicapi-go. It supports a four-layer override chain
// (defaults -> config file -> environment -> CLI flags); CLI flags always win,
// matching user expectations for one-off overrides without editing the file.
package config

// Config is the top-level configuration structure parsed from a TOML file.
type Config struct {
	Backend BackendConfig `toml:"backend"`
	Logging LoggingConfig `toml:"logging"`
	Output  OutputConfig  `toml:"output"`
}

// BackendConfig identifies the backend and the login pair. An empty username
// disables authentication entirely; requests then go out without a token.
type BackendConfig struct {
	BaseURL  string `toml:"base_url"`
	Username string `toml:"username"`
	Password string `toml:"password"`
	Timeout  string `toml:"timeout"`
}

// LoggingConfig controls log output behavior.
type LoggingConfig struct {
	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"`
}

// OutputConfig controls how command results are rendered.
type OutputConfig struct {
	JSON bool `toml:"json"`
}

// CLIOverrides holds values from CLI flags that override config file and
// environment settings. Pointer fields distinguish "not specified" (nil)
// from "explicitly set to zero value" — --json=false is different from not
// passing --json at all.
type CLIOverrides struct {
	ConfigPath string // --config flag (empty = use default)
	BaseURL    string // --base-url flag
	Username   string // --username flag
	Password   string // --password flag
	Timeout    string // --timeout flag
	JSON       *bool  // --json flag
}
