package config

import (
	"fmt"
	"net/url"
	"time"
)

// validate checks the resolved configuration and parses the timeout into
// its duration form.
func validate(r *Resolved, timeout string) error {
	if r.BaseURL == "" {
		return fmt.Errorf("backend base_url must not be empty")
	}

	parsed, err := url.Parse(r.BaseURL)
	if err != nil || parsed.Host == "" {
		return fmt.Errorf("backend base_url %q is not a valid URL", r.BaseURL)
	}

	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("backend base_url scheme must be http or https, got %q", parsed.Scheme)
	}

	if r.Username == "" && r.Password != "" {
		return fmt.Errorf("backend password set without username")
	}

	d, err := time.ParseDuration(timeout)
	if err != nil {
		return fmt.Errorf("invalid timeout %q: %w", timeout, err)
	}

	if d <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", d)
	}

	r.Timeout = d

	switch r.Logging.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log_level %q (want debug, info, warn, or error)", r.Logging.LogLevel)
	}

	switch r.Logging.LogFormat {
	case "auto", "text", "json":
	default:
		return fmt.Errorf("invalid log_format %q (want auto, text, or json)", r.Logging.LogFormat)
	}

	return nil
}
