// Package metrics exposes Prometheus metrics for the license keeper.
// Metrics are registered on a private registry so that several instances
// can coexist in tests.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/MKhiriev/go-license-keeper/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "license_keeper"

// Metrics holds every collector. It implements audit.Sink, so audit events
// double as operation counters.
type Metrics struct {
	registry *prometheus.Registry

	auditEvents  *prometheus.CounterVec
	licenses     *prometheus.GaugeVec
	expiringSoon prometheus.Gauge
	saveDuration prometheus.Histogram
	saveErrors   prometheus.Counter
}

// New creates the collectors on a fresh registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		auditEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audit_events_total",
			Help:      "Audited operations by action and outcome.",
		}, []string{"action", "outcome"}),
		licenses: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "licenses",
			Help:      "Licenses by effective status.",
		}, []string{"status"}),
		expiringSoon: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "licenses_expiring_soon",
			Help:      "Active licenses ending within the warning window.",
		}),
		saveDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "store_save_duration_seconds",
			Help:      "Duration of snapshot saves.",
			Buckets:   prometheus.DefBuckets,
		}),
		saveErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_save_errors_total",
			Help:      "Failed snapshot saves.",
		}),
	}
}

// Record implements audit.Sink.
func (m *Metrics) Record(_ context.Context, e models.AuditEvent) {
	m.auditEvents.WithLabelValues(string(e.Action), string(e.Outcome)).Inc()
}

// ObserveStatistics publishes license counts.
func (m *Metrics) ObserveStatistics(stats models.Statistics) {
	m.licenses.WithLabelValues(string(models.LicenseActive)).Set(float64(stats.Active))
	m.licenses.WithLabelValues(string(models.LicenseExpired)).Set(float64(stats.Expired))
	m.licenses.WithLabelValues(string(models.LicenseSuspended)).Set(float64(stats.Suspended))
	m.expiringSoon.Set(float64(len(stats.SoonToExpire)))
}

// ObserveSave records the outcome of one repository save.
func (m *Metrics) ObserveSave(d time.Duration, err error) {
	m.saveDuration.Observe(d.Seconds())
	if err != nil {
		m.saveErrors.Inc()
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Gatherer exposes the registry for inspection.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}
