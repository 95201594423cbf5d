// Package config loads application configuration from environment variables.
//
// Load validates required upstream endpoints and applies defaults for the
// background-behaviour tunables. The cache TTL policy is deliberately not
// part of it.
package config
