// Package config loads the tool's own runtime configuration (listen port,
// settings file location, log level, reload throttling) from YAML files,
// environment variables and CLI flags with precedence: CLI flags > YAML
// config > Environment variables > Defaults. It is unrelated to the engine
// settings document, which lives in package settings.
package config
