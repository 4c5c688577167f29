// Package metrics exports Prometheus counters for settings reloads and the
// version of the settings in effect.
package metrics
