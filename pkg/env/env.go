// Package env reads process environment variables with fallbacks, for the
// few knobs that live outside the envconfig-managed configuration.
package env

import "os"

// Get returns the named environment variable, or fallback when unset or empty.
func Get(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
