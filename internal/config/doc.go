// Package config loads and validates relay configuration from YAML
// files, with ${VAR} environment variable expansion and defaults for
// optional fields.
package config
