package config

import "os"

// Environment variable names for overrides.
const (
	EnvConfig   = "MAGICAPI_CONFIG"
	EnvBaseURL  = "MAGICAPI_BASE_URL"
	EnvUsername = "MAGICAPI_USERNAME"
	EnvPassword = "MAGICAPI_PASSWORD"
	EnvTimeout  = "MAGICAPI_TIMEOUT"
)

// EnvOverrides holds values derived from environment variables.
type EnvOverrides struct {
	ConfigPath string // MAGICAPI_CONFIG: override config file path
	BaseURL    string // MAGICAPI_BASE_URL: backend base URL
	Username   string // MAGICAPI_USERNAME: login username
	Password   string // MAGICAPI_PASSWORD: login password
	Timeout    string // MAGICAPI_TIMEOUT: request timeout
}

// ReadEnvOverrides reads environment variables and returns any overrides
// found. This does not modify the Config; callers apply the relevant fields.
func ReadEnvOverrides() EnvOverrides {
	return EnvOverrides{
		ConfigPath: os.Getenv(EnvConfig),
		BaseURL:    os.Getenv(EnvBaseURL),
		Username:   os.Getenv(EnvUsername),
		Password:   os.Getenv(EnvPassword),
		Timeout:    os.Getenv(EnvTimeout),
	}
}
