// Package config loads relay.yaml, applies RELAY_* environment overrides and
// assembles a Router from the result.
package config
