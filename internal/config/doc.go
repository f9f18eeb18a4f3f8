// Package config handles YAML configuration loading with environment variable substitution.
//
// Configuration files support ${VAR} syntax for environment variable interpolation.
// Limits (text size, connections, notebooks) are read once at startup and are
// not adjustable at runtime.
package config
