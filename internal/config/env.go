package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// LoadDotEnv loads KEY=VALUE pairs from a .env file into the process environment.
// Variables already set in the environment win. A missing file is not an error,
// so calling this unconditionally at startup is fine.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// Load builds the effective configuration: .env, then config file, then
// environment and flag overrides.
func Load(configPath, apiBaseURL, sessionBackend string) (*Config, error) {
	if err := LoadDotEnv(""); err != nil {
		return nil, err
	}

	cfg, err := LoadConfigFile(configPath)
	if err != nil {
		return nil, err
	}

	cfg.MergeWithFlags(apiBaseURL, sessionBackend)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
