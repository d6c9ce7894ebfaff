package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "fxtrend"

// Metrics implements rate.Recorder and carries the HTTP and job collectors.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	CacheHits         prometheus.Counter
	CacheMisses       prometheus.Counter
	CacheReadErrors   prometheus.Counter
	CacheWriteErrors  prometheus.Counter
	FetchesTotal      *prometheus.CounterVec
	FetchAttempts     *prometheus.HistogramVec
	InsightsTotal     *prometheus.CounterVec
	BackfillJobsTotal *prometheus.CounterVec
}

// New builds the collectors on a private registry that also carries the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,

		HTTPRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"path", "method", "status_code"},
		),
		HTTPRequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"path", "method"},
		),

		CacheHits: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Dates served from the rate cache",
		}),
		CacheMisses: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Dates missing from the rate cache",
		}),
		CacheReadErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_read_errors_total",
			Help:      "Failed cache lookups treated as a full miss",
		}),
		CacheWriteErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_write_errors_total",
			Help:      "Failed cache writes of fetched rates",
		}),
		FetchesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "source_fetches_total",
				Help:      "Per-date source fetches by final outcome",
			},
			[]string{"source", "outcome"},
		),
		FetchAttempts: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "source_fetch_attempts",
				Help:      "Attempts spent per date, retries included",
				Buckets:   []float64{1, 2, 3, 5, 8},
			},
			[]string{"source"},
		),
		InsightsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "insights_total",
				Help:      "Insight requests by result",
			},
			[]string{"result"},
		),
		BackfillJobsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "backfill_jobs_total",
				Help:      "Finished backfill jobs by status",
			},
			[]string{"status"},
		),
	}
}

func (m *Metrics) CacheLookup(hits, misses int) {
	m.CacheHits.Add(float64(hits))
	m.CacheMisses.Add(float64(misses))
}

func (m *Metrics) CacheReadFailed()  { m.CacheReadErrors.Inc() }
func (m *Metrics) CacheWriteFailed() { m.CacheWriteErrors.Inc() }

func (m *Metrics) Fetch(source, outcome string, attempts int) {
	m.FetchesTotal.WithLabelValues(source, outcome).Inc()
	m.FetchAttempts.WithLabelValues(source).Observe(float64(attempts))
}

func (m *Metrics) Insight(result string) { m.InsightsTotal.WithLabelValues(result).Inc() }

func (m *Metrics) JobFinished(status string) { m.BackfillJobsTotal.WithLabelValues(status).Inc() }

// ObserveHTTP records one served request. status is bucketed to its class.
func (m *Metrics) ObserveHTTP(path, method string, status int, seconds float64) {
	m.HTTPRequestDuration.WithLabelValues(path, method).Observe(seconds)
	m.HTTPRequestsTotal.WithLabelValues(path, method, strconv.Itoa(status/100)+"xx").Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }
