// Package metrics exposes Prometheus counters for cooking sessions and for
// the development backend. A nil *Recorder is valid and records nothing.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "guidedcook"

// Recorder owns a private registry and the counters registered on it.
type Recorder struct {
	registry *prometheus.Registry

	sessions        prometheus.Counter
	steps           *prometheus.CounterVec
	timersStarted   *prometheus.CounterVec
	timersCompleted prometheus.Counter
	completions     *prometheus.CounterVec
	photoUploads    *prometheus.CounterVec
	backendRequests *prometheus.CounterVec
}

// New creates a recorder with all counters registered.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		sessions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_total",
			Help:      "Cooking sessions mounted.",
		}),
		steps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "steps_total",
			Help:      "Step changes by direction.",
		}, []string{"direction"}),
		timersStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "timers_started_total",
			Help:      "Countdowns started, labelled by what started them.",
		}, []string{"source"}),
		timersCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "timers_completed_total",
			Help:      "Countdowns that reached zero.",
		}),
		completions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "completions_total",
			Help:      "Finished sessions by completion path.",
		}, []string{"path"}),
		photoUploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "photo_uploads_total",
			Help:      "Dish photo upload attempts by result.",
		}, []string{"result"}),
		backendRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backend_requests_total",
			Help:      "Development backend requests by route and status code.",
		}, []string{"route", "code"}),
	}

	r.registry.MustRegister(
		r.sessions,
		r.steps,
		r.timersStarted,
		r.timersCompleted,
		r.completions,
		r.photoUploads,
		r.backendRequests,
	)
	return r
}

// Handler serves the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry, mostly for tests.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

func (r *Recorder) SessionMounted() {
	if r != nil {
		r.sessions.Inc()
	}
}

func (r *Recorder) StepChanged(direction string) {
	if r != nil {
		r.steps.WithLabelValues(direction).Inc()
	}
}

func (r *Recorder) TimerStarted(source string) {
	if r != nil {
		r.timersStarted.WithLabelValues(source).Inc()
	}
}

func (r *Recorder) TimerCompleted() {
	if r != nil {
		r.timersCompleted.Inc()
	}
}

func (r *Recorder) Completed(path string) {
	if r != nil {
		r.completions.WithLabelValues(path).Inc()
	}
}

func (r *Recorder) PhotoUpload(result string) {
	if r != nil {
		r.photoUploads.WithLabelValues(result).Inc()
	}
}

func (r *Recorder) BackendRequest(route string, code int) {
	if r != nil {
		r.backendRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
	}
}
