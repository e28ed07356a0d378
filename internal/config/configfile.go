package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"gopkg.in/ini.v1"
)

// The config file is INI:
//
//	[drive]
//	api_url = https://drive.example.com/api
//	session_backend = file
//	requests_per_second = 10
//	burst = 20
//	timeout_seconds = 60
//
//	[proxy]
//	mode = basic
//	host = proxy.corp
//	port = 8080
//	user = alice
//	no_proxy = localhost,10.0.0.0/8
//
// The proxy password is never written to disk.

// LoadConfigFile loads configuration from an INI file on top of DefaultConfig.
// If the file doesn't exist, returns defaults and no error.
// If the file exists but is invalid, returns an error.
func LoadConfigFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		path = DefaultConfigPath()
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	iniFile, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	drive := iniFile.Section("drive")
	cfg.APIBaseURL = drive.Key("api_url").MustString(cfg.APIBaseURL)
	cfg.SessionBackend = drive.Key("session_backend").MustString(cfg.SessionBackend)
	cfg.RequestsPerSecond = drive.Key("requests_per_second").MustFloat64(cfg.RequestsPerSecond)
	cfg.Burst = drive.Key("burst").MustInt(cfg.Burst)
	if secs := drive.Key("timeout_seconds").MustInt(0); secs > 0 {
		cfg.Timeout = time.Duration(secs) * time.Second
	}

	proxy := iniFile.Section("proxy")
	cfg.ProxyMode = proxy.Key("mode").MustString(cfg.ProxyMode)
	cfg.ProxyHost = proxy.Key("host").String()
	cfg.ProxyPort = proxy.Key("port").MustInt(0)
	cfg.ProxyUser = proxy.Key("user").String()
	cfg.NoProxy = proxy.Key("no_proxy").String()
	cfg.ProxyWarmup = proxy.Key("warmup").MustBool(false)

	return cfg, nil
}

// SaveConfigFile saves configuration to an INI file.
// Creates parent directories if they don't exist.
func SaveConfigFile(cfg *Config, path string) error {
	if path == "" {
		path = DefaultConfigPath()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	iniFile := ini.Empty()

	drive, err := iniFile.NewSection("drive")
	if err != nil {
		return fmt.Errorf("failed to create drive section: %w", err)
	}
	drive.Key("api_url").SetValue(cfg.APIBaseURL)
	drive.Key("session_backend").SetValue(cfg.SessionBackend)
	drive.Key("requests_per_second").SetValue(fmt.Sprintf("%g", cfg.RequestsPerSecond))
	drive.Key("burst").SetValue(fmt.Sprintf("%d", cfg.Burst))
	drive.Key("timeout_seconds").SetValue(fmt.Sprintf("%d", int(cfg.Timeout/time.Second)))

	proxy, err := iniFile.NewSection("proxy")
	if err != nil {
		return fmt.Errorf("failed to create proxy section: %w", err)
	}
	proxy.Key("mode").SetValue(cfg.ProxyMode)
	proxy.Key("host").SetValue(cfg.ProxyHost)
	proxy.Key("port").SetValue(fmt.Sprintf("%d", cfg.ProxyPort))
	proxy.Key("user").SetValue(cfg.ProxyUser)
	proxy.Key("no_proxy").SetValue(cfg.NoProxy)
	proxy.Key("warmup").SetValue(fmt.Sprintf("%t", cfg.ProxyWarmup))

	// Temporary file + rename for atomicity
	tmpPath := path + ".tmp"
	if err := iniFile.SaveTo(tmpPath); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	if runtime.GOOS != "windows" {
		if err := os.Chmod(tmpPath, 0600); err != nil {
			os.Remove(tmpPath)
			return fmt.Errorf("failed to set config permissions: %w", err)
		}
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to save config: %w", err)
	}

	return nil
}
