// Package metrics publishes prometheus counters for the HTTP surface and
// the batch/completion side effects.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder aggregates the module's counters against a private registry so
// tests can construct recorders without collisions.
type Recorder struct {
	registry *prometheus.Registry

	requests           *prometheus.CounterVec
	sourceLoads        prometheus.Counter
	completionWrites   prometheus.Counter
	completionFailures prometheus.Counter
}

// New constructs a Recorder with its own registry.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	return &Recorder{
		registry: reg,
		requests: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "sheetbridge_http_requests_total",
			Help: "HTTP requests by route and status code.",
		}, []string{"route", "status"}),
		sourceLoads: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "sheetbridge_batch_source_loads_total",
			Help: "Successful batch source populations of the cache.",
		}),
		completionWrites: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "sheetbridge_completion_writes_total",
			Help: "Completion transactions recorded.",
		}),
		completionFailures: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "sheetbridge_completion_failures_total",
			Help: "Completion transactions that failed to record.",
		}),
	}
}

// RecordSourceLoad counts one successful batch source fetch.
func (r *Recorder) RecordSourceLoad() { r.sourceLoads.Inc() }

// RecordCompletion counts one completion write attempt by outcome.
func (r *Recorder) RecordCompletion(ok bool) {
	if ok {
		r.completionWrites.Inc()
		return
	}
	r.completionFailures.Inc()
}

// RecordRequest counts one served request.
func (r *Recorder) RecordRequest(route, status string) {
	r.requests.WithLabelValues(route, status).Inc()
}

// Handler serves the exposition endpoint for this recorder's registry.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Gather exposes the registry for assertions in tests.
func (r *Recorder) Gather() prometheus.Gatherer { return r.registry }
