// Package config loads relay configuration from environment variables using
// envconfig, plus an optional TOML or YAML provider settings file that is
// watched for changes with fsnotify.
package config
