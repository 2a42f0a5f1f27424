// Package observability bundles the Prometheus metrics exported by
// fieldlined: classification outcomes, model-server call rates and latency,
// and batch throughput.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector registers and holds the daemon's metrics. A nil *Collector is
// valid and drops every observation, which keeps tests free of registry
// plumbing.
type Collector struct {
	gatherer prometheus.Gatherer

	Classifications   *prometheus.CounterVec
	ModelCalls        *prometheus.CounterVec
	ModelCallDuration *prometheus.HistogramVec
	BatchRows         prometheus.Counter
	BatchJobs         *prometheus.CounterVec
}

// NewCollector registers the fieldline metrics against the provided
// registerer, defaulting to the global Prometheus registry when nil.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	c := &Collector{gatherer: gatherer}

	c.Classifications = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fieldline_classifications_total",
		Help: "Field-line classifications produced, labeled by category.",
	}, []string{"class"})

	c.ModelCalls = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fieldline_model_calls_total",
		Help: "Calls to the external field model, labeled by operation and outcome.",
	}, []string{"op", "outcome"})

	c.ModelCallDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "fieldline_model_call_duration_seconds",
		Help:    "External model call latency in seconds.",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"op"})

	c.BatchRows = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "fieldline_batch_rows_processed_total",
		Help: "Orbit rows processed by batch jobs.",
	})

	c.BatchJobs = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fieldline_batch_jobs_total",
		Help: "Batch jobs finished, labeled by result.",
	}, []string{"result"})

	for _, col := range []prometheus.Collector{
		c.Classifications, c.ModelCalls, c.ModelCallDuration, c.BatchRows, c.BatchJobs,
	} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}

	return c, nil
}

// Handler serves the collector's metrics in Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	gatherer := prometheus.DefaultGatherer
	if c != nil && c.gatherer != nil {
		gatherer = c.gatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// ObserveModelCall records one external model call.
func (c *Collector) ObserveModelCall(op string, err error, dur time.Duration) {
	if c == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	c.ModelCalls.WithLabelValues(op, outcome).Inc()
	c.ModelCallDuration.WithLabelValues(op).Observe(dur.Seconds())
}

// ObserveClassification records one produced classification.
func (c *Collector) ObserveClassification(class string) {
	if c == nil {
		return
	}
	c.Classifications.WithLabelValues(class).Inc()
}

// ObserveBatchRow counts one processed orbit row.
func (c *Collector) ObserveBatchRow() {
	if c == nil {
		return
	}
	c.BatchRows.Inc()
}

// ObserveBatchJob records a finished batch job with its result label
// ("ok", "error", or "cancelled").
func (c *Collector) ObserveBatchJob(result string) {
	if c == nil {
		return
	}
	c.BatchJobs.WithLabelValues(result).Inc()
}
