package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// ReadTokenFile reads a bearer token from a file.
// The file should contain only the token (whitespace is trimmed).
// Warns if file permissions are too open (not 0600 on Unix systems).
func ReadTokenFile(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("failed to stat token file: %w", err)
	}

	if runtime.GOOS != "windows" {
		if mode := info.Mode().Perm(); mode&0077 != 0 {
			fmt.Fprintf(os.Stderr, "Warning: Token file %s has insecure permissions %04o. Consider using 'chmod 600 %s'\n", path, mode, path)
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read token file: %w", err)
	}
	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", fmt.Errorf("token file is empty")
	}
	return token, nil
}

// WriteTokenFile writes a token to a file with secure permissions (0600).
func WriteTokenFile(path, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return fmt.Errorf("cannot write empty token")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}

	if err := os.WriteFile(path, []byte(token+"\n"), 0600); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}
	return nil
}

// RemoveTokenFile deletes the token file. A missing file is not an error.
func RemoveTokenFile(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove token file: %w", err)
	}
	return nil
}

// ResolveLoginToken returns a token for `login --token` style commands and where it came from.
//
// Priority (highest to lowest):
//  1. token parameter (--token flag)
//  2. tokenFile parameter (--token-file flag)
//  3. DRIVE_TOKEN environment variable
//
// Returns empty strings when no source provides a token.
func ResolveLoginToken(token, tokenFile string) (string, string, error) {
	if strings.TrimSpace(token) != "" {
		return token, "flag", nil
	}
	if tokenFile != "" {
		t, err := ReadTokenFile(tokenFile)
		if err != nil {
			return "", "", err
		}
		return t, "token-file", nil
	}
	if envToken := os.Getenv(EnvToken); envToken != "" {
		return envToken, "environment", nil
	}
	return "", "", nil
}
