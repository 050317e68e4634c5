// Package config loads and validates the harmonie YAML configuration,
// including provider credentials, decoding overrides, and storage paths.
package config
