package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Reload outcomes recorded by ObserveReload.
const (
	ResultOK        = "ok"
	ResultRejected  = "rejected"
	ResultThrottled = "throttled"
	ResultDisabled  = "disabled"
)

// Metrics owns a private registry so independent instances do not collide.
type Metrics struct {
	registry *prometheus.Registry

	reloads  *prometheus.CounterVec
	rejected *prometheus.CounterVec
	version  prometheus.Gauge
}

// New registers the settings metrics on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		reloads: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "settings_reloads_total",
				Help: "Settings reload attempts by trigger and result",
			},
			[]string{"trigger", "result"},
		),
		rejected: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "settings_reload_errors_total",
				Help: "Rejected settings documents by error kind",
			},
			[]string{"kind"},
		),
		version: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "settings_version",
				Help: "Number of settings values published since start",
			},
		),
	}
}

// ObserveReload counts one reload attempt.
func (m *Metrics) ObserveReload(trigger, result string) {
	m.reloads.WithLabelValues(trigger, result).Inc()
}

// ObserveRejection counts a document rejected with the given error kind.
func (m *Metrics) ObserveRejection(kind string) {
	m.rejected.WithLabelValues(kind).Inc()
}

// SetVersion records the version of the settings in effect.
func (m *Metrics) SetVersion(v uint64) {
	m.version.Set(float64(v))
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry (primarily for tests).
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
