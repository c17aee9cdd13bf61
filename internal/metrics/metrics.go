package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds all Prometheus metrics of the service
type Collector struct {
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Response flow
	ResponsesStarted   prometheus.Counter
	ResponsesCompleted prometheus.Counter
	SubmissionFailures prometheus.Counter
	SubmissionsDropped *prometheus.CounterVec
	ConfigDefects      *prometheus.CounterVec

	// Classifier
	ClassifierCalls    *prometheus.CounterVec
	ClassifierDuration *prometheus.HistogramVec

	// Owner feed
	FeedClients prometheus.Gauge
}

// NewCollector creates a collector backed by its own registry
func NewCollector(namespace string) *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		ResponsesStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "responses_started_total",
			Help:      "Response sessions opened",
		}),
		ResponsesCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "responses_completed_total",
			Help:      "Response sessions that reached done",
		}),
		SubmissionFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submission_failures_total",
			Help:      "Failed submission attempts",
		}),
		SubmissionsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_dropped_total",
			Help:      "Submissions accepted but discarded by anti-abuse checks",
		}, []string{"reason"}),
		ConfigDefects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "survey_config_defects_total",
			Help:      "Survey authoring defects hit while collecting responses",
		}, []string{"kind"}),
		ClassifierCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "classifier_calls_total",
			Help:      "Classifier calls by provider and outcome",
		}, []string{"provider", "outcome"}),
		ClassifierDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "classifier_call_duration_seconds",
			Help:      "Classifier call latency in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		}, []string{"provider"}),
		FeedClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "feed_clients",
			Help:      "Connected owner feed websockets",
		}),
	}

	c.registry.MustRegister(
		c.HTTPRequests,
		c.HTTPDuration,
		c.ResponsesStarted,
		c.ResponsesCompleted,
		c.SubmissionFailures,
		c.SubmissionsDropped,
		c.ConfigDefects,
		c.ClassifierCalls,
		c.ClassifierDuration,
		c.FeedClients,
	)
	return c
}

// Handler serves the registry in the Prometheus exposition format
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// ObserveHTTP records one served request
func (c *Collector) ObserveHTTP(method, route, status string, d time.Duration) {
	c.HTTPRequests.WithLabelValues(method, route, status).Inc()
	c.HTTPDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// ObserveClassifier records one classifier call
func (c *Collector) ObserveClassifier(provider, outcome string, d time.Duration) {
	c.ClassifierCalls.WithLabelValues(provider, outcome).Inc()
	c.ClassifierDuration.WithLabelValues(provider).Observe(d.Seconds())
}
