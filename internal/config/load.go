package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// Resolved is the final configuration after all override layers, with
// string durations parsed and the base URL validated.
type Resolved struct {
	BaseURL  string
	Username string
	Password string
	Timeout  time.Duration
	Logging  LoggingConfig
	JSON     bool
}

// Load reads and parses a TOML config file and returns the resulting
// Config. Unknown keys are fatal: silently ignoring a typo in a config file
// leads to hard-to-debug behavior.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown config key %q in %s", undecoded[0].String(), path)
	}

	return cfg, nil
}

// LoadOrDefault reads a TOML config file if it exists, otherwise returns a
// Config populated with all default values. This supports the zero-config
// first-run experience.
func LoadOrDefault(path string) (*Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return DefaultConfig(), nil
	}

	return Load(path)
}

// Resolve loads configuration and applies the four-layer override chain:
// defaults -> config file -> environment variables -> CLI flags.
func Resolve(env EnvOverrides, cli CLIOverrides) (*Resolved, error) {
	// 1. Resolve config path: CLI > env > default.
	cfgPath := DefaultConfigPath()
	if env.ConfigPath != "" {
		cfgPath = env.ConfigPath
	}

	if cli.ConfigPath != "" {
		cfgPath = cli.ConfigPath
	}

	// 2. Load config file (defaults if no file exists).
	cfg, err := LoadOrDefault(cfgPath)
	if err != nil {
		return nil, err
	}

	resolved := &Resolved{
		BaseURL:  cfg.Backend.BaseURL,
		Username: cfg.Backend.Username,
		Password: cfg.Backend.Password,
		Logging:  cfg.Logging,
		JSON:     cfg.Output.JSON,
	}

	timeout := cfg.Backend.Timeout

	// 3. Apply env overrides.
	if env.BaseURL != "" {
		resolved.BaseURL = env.BaseURL
	}

	if env.Username != "" {
		resolved.Username = env.Username
	}

	if env.Password != "" {
		resolved.Password = env.Password
	}

	if env.Timeout != "" {
		timeout = env.Timeout
	}

	// 4. Apply CLI overrides.
	if cli.BaseURL != "" {
		resolved.BaseURL = cli.BaseURL
	}

	if cli.Username != "" {
		resolved.Username = cli.Username
	}

	if cli.Password != "" {
		resolved.Password = cli.Password
	}

	if cli.Timeout != "" {
		timeout = cli.Timeout
	}

	if cli.JSON != nil {
		resolved.JSON = *cli.JSON
	}

	// 5. Validate the final result.
	if err := validate(resolved, timeout); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return resolved, nil
}
