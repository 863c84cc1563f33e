// Package config loads lmrtfy.yaml, applies LMRTFY_* environment overrides
// and validates the result.
package config
