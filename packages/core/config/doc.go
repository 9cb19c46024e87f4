// Package config handles configuration loading and management for hncheck.
//
// Settings are layered: built-in defaults, then a config file (JSON, or YAML
// by extension), then HNCHECK_* environment variables, then command-line flags.
package config
