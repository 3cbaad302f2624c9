// Package config loads and validates watcher configuration from YAML.
//
// Files may reference environment variables with ${VAR}; they are
// expanded before parsing.
package config
