// Package metrics exposes the service's Prometheus instruments on a
// private registry. A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "seppe"

// Import outcomes used as label values.
const (
	OutcomeSuccess = "success"
	OutcomeFailed  = "failed"
)

type Metrics struct {
	registry *prometheus.Registry

	imports        *prometheus.CounterVec
	importDuration prometheus.Histogram
	skippedRows    prometheus.Counter
	datasetRecords prometheus.Gauge
	datasetVersion prometheus.Gauge
	viewCache      *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
	publishErrors  prometheus.Counter
}

// New builds the instruments and registers them, plus the Go runtime and
// process collectors, on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		imports: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "imports_total",
			Help:      "Dataset import attempts by outcome.",
		}, []string{"outcome"}),
		importDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "import_duration_seconds",
			Help:      "Time spent decoding and normalizing an import.",
			Buckets:   prometheus.DefBuckets,
		}),
		skippedRows: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "import_skipped_rows_total",
			Help:      "Data rows dropped for missing required cells.",
		}),
		datasetRecords: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dataset_records",
			Help:      "Records in the active dataset.",
		}),
		datasetVersion: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dataset_version",
			Help:      "Version of the active dataset.",
		}),
		viewCache: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "view_cache_requests_total",
			Help:      "Dashboard view cache lookups by result.",
		}, []string{"result"}),
		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method, route and status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		publishErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "event_publish_errors_total",
			Help:      "dataset.imported events that could not be published.",
		}),
	}
}

// Registry returns the registry backing these metrics.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveImport records one import attempt.
func (m *Metrics) ObserveImport(outcome string, skipped int, d time.Duration) {
	if m == nil {
		return
	}
	m.imports.WithLabelValues(outcome).Inc()
	m.importDuration.Observe(d.Seconds())
	if skipped > 0 {
		m.skippedRows.Add(float64(skipped))
	}
}

// SetDataset publishes the size and version of the active dataset.
func (m *Metrics) SetDataset(records int, version uint64) {
	if m == nil {
		return
	}
	m.datasetRecords.Set(float64(records))
	m.datasetVersion.Set(float64(version))
}

func (m *Metrics) ViewCacheHit() {
	if m == nil {
		return
	}
	m.viewCache.WithLabelValues("hit").Inc()
}

func (m *Metrics) ViewCacheMiss() {
	if m == nil {
		return
	}
	m.viewCache.WithLabelValues("miss").Inc()
}

func (m *Metrics) PublishFailed() {
	if m == nil {
		return
	}
	m.publishErrors.Inc()
}

// ObserveHTTP records a served request. route is the router pattern, not
// the raw path, to keep label cardinality bounded.
func (m *Metrics) ObserveHTTP(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.httpDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(d.Seconds())
}
