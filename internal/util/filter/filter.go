// Package filter narrows folder and image listings by name.
// The navigator's search box and the CLI's --search/--include/--exclude flags share it.
package filter

import (
	"path/filepath"
	"strings"
)

// Config holds filter configuration.
type Config struct {
	// Include patterns (glob-style). Empty means include all.
	// Example: []string{"*.png", "cat*"}
	Include []string

	// Exclude patterns (glob-style). Takes precedence over Include.
	Exclude []string

	// Search terms (case-insensitive substring match).
	// A name must match ALL search terms to be included.
	Search []string
}

// IsEmpty reports whether the config filters nothing.
func (c Config) IsEmpty() bool {
	return len(c.Include) == 0 && len(c.Exclude) == 0 && len(c.Search) == 0
}

// ContainsFold reports whether query occurs in name, ignoring case.
// An empty query matches everything.
func ContainsFold(name, query string) bool {
	if query == "" {
		return true
	}
	return strings.Contains(strings.ToLower(name), strings.ToLower(query))
}

// ByQuery returns the items whose name contains query (case-insensitive), in
// their original order. The input slice is never modified; the result is
// always a fresh slice.
func ByQuery[T any](items []T, name func(T) string, query string) []T {
	out := make([]T, 0, len(items))
	for _, item := range items {
		if ContainsFold(name(item), query) {
			out = append(out, item)
		}
	}
	return out
}

// Apply filters items by the configuration, preserving order.
func Apply[T any](items []T, name func(T) string, config Config) []T {
	if config.IsEmpty() {
		return append([]T(nil), items...)
	}

	filtered := make([]T, 0, len(items))
	for _, item := range items {
		if Matches(name(item), config) {
			filtered = append(filtered, item)
		}
	}
	return filtered
}

// Matches checks if a name passes the filter configuration.
func Matches(name string, config Config) bool {
	// 1. Check exclude patterns first (highest priority)
	for _, pattern := range config.Exclude {
		if matchGlob(pattern, name) {
			return false
		}
	}

	// 2. Check include patterns
	if len(config.Include) > 0 {
		included := false
		for _, pattern := range config.Include {
			if matchGlob(pattern, name) {
				included = true
				break
			}
		}
		if !included {
			return false
		}
	}

	// 3. Check search terms
	for _, term := range config.Search {
		if !ContainsFold(name, term) {
			return false
		}
	}

	return true
}

// matchGlob matches case-insensitively; image names typed by users rarely agree on case.
func matchGlob(pattern, name string) bool {
	matched, err := filepath.Match(strings.ToLower(pattern), strings.ToLower(name))
	return err == nil && matched
}

// ParseList splits a comma-separated flag value, dropping blanks.
func ParseList(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
