// SPDX-License-Identifier: MIT

// Package metrics exposes reconciliation runs as Prometheus metrics.
//
// Recorder implements reconcile.Observer; pass it with reconcile.WithObserver and
// serve Handler() wherever the process exposes metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/katalvlaran/coherent/reconcile"
)

// Option configures a Recorder.
type Option func(*Recorder)

// WithNamespace sets the metric namespace (default "coherent").
func WithNamespace(namespace string) Option {
	return func(r *Recorder) {
		if namespace != "" {
			r.namespace = namespace
		}
	}
}

// WithRegistry registers the collectors on reg instead of a private registry.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(r *Recorder) {
		if reg != nil {
			r.registry = reg
		}
	}
}

// WithDurationBuckets sets the run duration histogram buckets, in seconds.
func WithDurationBuckets(buckets []float64) Option {
	return func(r *Recorder) {
		if len(buckets) > 0 {
			r.buckets = buckets
		}
	}
}

// Recorder records one observation set per reconciliation run.
type Recorder struct {
	namespace string
	registry  *prometheus.Registry
	buckets   []float64

	runs     *prometheus.CounterVec
	failures *prometheus.CounterVec
	duration *prometheus.HistogramVec
	nodes    prometheus.Gauge
	lambda   prometheus.Gauge
	dropped  prometheus.Counter
}

var _ reconcile.Observer = (*Recorder)(nil)

// NewRecorder creates and registers the collectors.
func NewRecorder(opts ...Option) *Recorder {
	r := &Recorder{
		namespace: "coherent",
		buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.registry == nil {
		r.registry = prometheus.NewRegistry()
	}

	auto := promauto.With(r.registry)
	r.runs = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: r.namespace,
		Subsystem: "reconcile",
		Name:      "runs_total",
		Help:      "Reconciliation runs by strategy, method and backend.",
	}, []string{"strategy", "method", "backend"})
	r.failures = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: r.namespace,
		Subsystem: "reconcile",
		Name:      "failures_total",
		Help:      "Reconciliation runs that returned an error, by strategy.",
	}, []string{"strategy"})
	r.duration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: r.namespace,
		Subsystem: "reconcile",
		Name:      "duration_seconds",
		Help:      "Wall time of a reconciliation run.",
		Buckets:   r.buckets,
	}, []string{"strategy"})
	r.nodes = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: r.namespace,
		Subsystem: "reconcile",
		Name:      "hierarchy_nodes",
		Help:      "Nodes in the hierarchy of the last run.",
	})
	r.lambda = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: r.namespace,
		Subsystem: "reconcile",
		Name:      "shrinkage_lambda",
		Help:      "Shrinkage intensity of the last successful mint_shrink run.",
	})
	r.dropped = auto.NewCounter(prometheus.CounterOpts{
		Namespace: r.namespace,
		Subsystem: "reconcile",
		Name:      "residual_rows_dropped_total",
		Help:      "Residual observations dropped because a node was missing a value.",
	})

	return r
}

// ObserveRun implements reconcile.Observer.
func (r *Recorder) ObserveRun(rep reconcile.Report) {
	method := string(rep.Method)
	if method == "" {
		method = "none"
	}
	r.runs.WithLabelValues(rep.Strategy, method, string(rep.Backend)).Inc()
	r.duration.WithLabelValues(rep.Strategy).Observe(rep.Duration.Seconds())
	r.nodes.Set(float64(rep.Nodes))
	r.dropped.Add(float64(rep.DroppedRows))
	if rep.Err != nil {
		r.failures.WithLabelValues(rep.Strategy).Inc()
		return
	}
	if rep.Method == reconcile.MethodMinTShrink {
		r.lambda.Set(rep.Lambda)
	}
}

// Registry returns the registry the collectors live on.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
