// Package config provides configuration management for drivectl.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/drivemanager/drivectl/internal/constants"
)

// Session backends accepted by --session-backend and the config file.
const (
	SessionBackendFile   = "file"
	SessionBackendBolt   = "bolt"
	SessionBackendMemory = "memory"
)

// Environment variables read during resolution.
const (
	EnvAPIBaseURL     = "DRIVE_API_BASE_URL"
	EnvViteAPIBaseURL = "VITE_API_BASE_URL" // accepted so an existing front-end .env works unchanged
	EnvToken          = "DRIVE_TOKEN"
)

// Config holds everything needed to reach the backend.
type Config struct {
	// API settings
	APIBaseURL string
	Timeout    time.Duration

	// Request rate limiting
	RequestsPerSecond float64
	Burst             int

	// Session persistence: "file", "bolt" or "memory"
	SessionBackend string

	// Proxy settings
	ProxyMode     string // "no-proxy", "system", "basic", "ntlm"
	ProxyHost     string
	ProxyPort     int
	ProxyUser     string
	ProxyPassword string
	NoProxy       string // Comma-separated list of hosts to bypass proxy
	ProxyWarmup   bool
}

// Validation errors
var (
	ErrMissingAPIBaseURL     = errors.New("api_url is required")
	ErrInvalidSessionBackend = errors.New("session_backend must be one of file, bolt, memory")
	ErrInvalidRate           = errors.New("requests_per_second must be positive")
)

// DefaultConfig returns a config pointing at a local backend.
func DefaultConfig() *Config {
	return &Config{
		APIBaseURL:        constants.DefaultAPIBaseURL,
		Timeout:           constants.HTTPRequestTimeout,
		RequestsPerSecond: constants.DefaultRequestsPerSecond,
		Burst:             constants.DefaultRequestBurst,
		SessionBackend:    SessionBackendFile,
		ProxyMode:         "no-proxy",
	}
}

// MergeWithFlags applies command-line overrides and environment variables.
// Priority: flags > environment > config file > defaults
func (c *Config) MergeWithFlags(apiBaseURL, sessionBackend string) {
	if envURL := os.Getenv(EnvAPIBaseURL); envURL != "" {
		c.APIBaseURL = envURL
	} else if envURL := os.Getenv(EnvViteAPIBaseURL); envURL != "" {
		c.APIBaseURL = envURL
	}

	if apiBaseURL != "" {
		c.APIBaseURL = apiBaseURL
	}
	if sessionBackend != "" {
		c.SessionBackend = strings.ToLower(sessionBackend)
	}
	c.APIBaseURL = strings.TrimSuffix(strings.TrimSpace(c.APIBaseURL), "/")
}

// Validate checks the settings needed before any API call.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.APIBaseURL) == "" {
		return ErrMissingAPIBaseURL
	}
	u, err := url.Parse(c.APIBaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid api_url %q: must be an absolute http(s) URL", c.APIBaseURL)
	}
	switch c.SessionBackend {
	case SessionBackendFile, SessionBackendBolt, SessionBackendMemory:
	default:
		return ErrInvalidSessionBackend
	}
	if c.RequestsPerSecond <= 0 {
		return ErrInvalidRate
	}
	return nil
}
