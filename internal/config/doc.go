// Package config loads the engine's settings from defaults, an optional
// config.yaml and MIYOG_-prefixed environment variables, then validates them
// with struct tags before any component starts.
package config
