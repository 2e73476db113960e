// Package config handles configuration loading, parsing, and validation
// from environment variables (REVE_ prefix) and an optional YAML file.
// It provides type-safe access to the settings needed by the server,
// the worker pool, the generation providers and the storage backend.
package config
