package config

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/drivemanager/drivectl/internal/constants"
)

// ConfigDir returns the platform-appropriate config directory.
//   - Windows: %APPDATA%\drivectl
//   - Unix: ~/.config/drivectl (XDG standard)
func ConfigDir() string {
	if runtime.GOOS == "windows" {
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, constants.AppName)
		}
	}
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, constants.AppName)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".config", constants.AppName)
	}
	return ""
}

// DefaultConfigPath returns ~/.config/drivectl/config.ini.
func DefaultConfigPath() string {
	return filepath.Join(ConfigDir(), "config.ini")
}

// DefaultSessionDBPath returns the bolt database used by the bolt session backend.
func DefaultSessionDBPath() string {
	return filepath.Join(ConfigDir(), "session.db")
}

// LogDirectory returns the directory for --log-file when a bare name is given.
//   - Windows: %LOCALAPPDATA%\drivectl\logs
//   - Unix: ~/.config/drivectl/logs
func LogDirectory() string {
	if runtime.GOOS == "windows" {
		if localAppData := os.Getenv("LOCALAPPDATA"); localAppData != "" {
			return filepath.Join(localAppData, constants.AppName, "logs")
		}
	}
	dir := ConfigDir()
	if dir == "" {
		return filepath.Join(os.TempDir(), constants.AppName+"-logs")
	}
	return filepath.Join(dir, "logs")
}

// ResolveLogPath turns a --log-file value into an absolute path.
// Bare file names land in LogDirectory.
func ResolveLogPath(name string) string {
	if name == "" {
		return ""
	}
	if filepath.IsAbs(name) || filepath.Base(name) != name {
		return name
	}
	return filepath.Join(LogDirectory(), name)
}
