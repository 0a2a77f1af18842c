// Package env reads process settings that must be known before config.Load
// runs, such as the log format of the bootstrap logger.
package env

import (
	"os"
	"slices"
	"strings"
)

// Get returns the trimmed value of key, or fallback when it is unset or blank.
func Get(key, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return fallback
}

// OneOf returns the lower-cased value of key when it is one of allowed, and
// fallback otherwise.
func OneOf(key, fallback string, allowed ...string) string {
	val := strings.ToLower(Get(key, fallback))
	if slices.Contains(allowed, val) {
		return val
	}
	return fallback
}
