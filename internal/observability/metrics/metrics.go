// Package metrics exposes the service's Prometheus collectors. All methods are
// safe on a nil *Registry so components can run without metrics in tests.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	obserrors "github.com/tallerhub/tallerhub/internal/observability/errors"
)

const namespace = "tallerhub"

// Result label values.
const (
	ResultOK      = "ok"
	ResultIdle    = "idle"
	ResultMissing = "missing"
	ResultError   = "error"
	ResultNoop    = "noop"
)

// Registry owns a private Prometheus registry and the collectors registered on it.
type Registry struct {
	reg *prometheus.Registry

	guardDecisions    *prometheus.CounterVec
	resolutions       *prometheus.CounterVec
	assignmentMissing prometheus.Counter
	staleDiscards     prometheus.Counter
	expiryWrites      *prometheus.CounterVec
	feedEvents        *prometheus.CounterVec
	feedErrors        *prometheus.CounterVec
	sweeps            *prometheus.CounterVec
	sweptTenants      prometheus.Counter
	shellStreams      prometheus.Gauge
	loginThrottled    prometheus.Counter
	httpDuration      *prometheus.HistogramVec
}

// New creates a registry with process and Go runtime collectors plus the service metrics.
func New() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),
		guardDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "guard_decisions_total",
			Help: "Route guard decisions by route and outcome.",
		}, []string{"route", "outcome"}),
		resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "resolutions_total",
			Help: "Session and subscription resolutions by resolver and result.",
		}, []string{"resolver", "result"}),
		assignmentMissing: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "role_assignment_missing_total",
			Help: "Authenticated users without a usable role assignment.",
		}),
		staleDiscards: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "shell_stale_resolutions_total",
			Help: "Resolutions discarded because a newer one had already been applied.",
		}),
		expiryWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "trial_expiry_writes_total",
			Help: "Lazy trial expiry writes by result.",
		}, []string{"result", "error_class"}),
		feedEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "changefeed_events_total",
			Help: "Change notifications received by table.",
		}, []string{"table"}),
		feedErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "changefeed_errors_total",
			Help: "Change feed listen failures.",
		}, []string{"error_class"}),
		sweeps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "trial_sweeps_total",
			Help: "Trial sweeper runs by result.",
		}, []string{"result"}),
		sweptTenants: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "trial_sweeper_expired_total",
			Help: "Tenants expired by the trial sweeper.",
		}),
		shellStreams: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "shell_streams",
			Help: "Open shell event streams.",
		}),
		loginThrottled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "login_throttled_total",
			Help: "Login attempts rejected by the rate limiter.",
		}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Name: "http_request_duration_seconds",
			Help:    "HTTP request latency by method, route pattern and status.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}

	r.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.guardDecisions, r.resolutions, r.assignmentMissing, r.staleDiscards,
		r.expiryWrites, r.feedEvents, r.feedErrors, r.sweeps, r.sweptTenants,
		r.shellStreams, r.loginThrottled, r.httpDuration,
	)
	return r
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{Registry: r.reg})
}

// Gatherer exposes the underlying registry for tests and embedding. A nil
// Registry gathers nothing.
func (r *Registry) Gatherer() prometheus.Gatherer {
	if r == nil {
		return prometheus.Gatherers{}
	}
	return r.reg
}

// GuardDecision counts one route guard evaluation.
func (r *Registry) GuardDecision(route string, allowed bool) {
	if r == nil {
		return
	}
	outcome := "denied"
	if allowed {
		outcome = "allowed"
	}
	r.guardDecisions.WithLabelValues(route, outcome).Inc()
}

// Resolution counts a resolver outcome; resolver is "session" or "subscription".
func (r *Registry) Resolution(resolver, result string) {
	if r == nil {
		return
	}
	r.resolutions.WithLabelValues(resolver, result).Inc()
}

// AssignmentMissing counts an authenticated user with no usable role record.
func (r *Registry) AssignmentMissing() {
	if r == nil {
		return
	}
	r.assignmentMissing.Inc()
}

// StaleDiscarded counts a resolution dropped by the sequence check.
func (r *Registry) StaleDiscarded() {
	if r == nil {
		return
	}
	r.staleDiscards.Inc()
}

// ExpiryWrite records the outcome of a lazy trial expiry write.
func (r *Registry) ExpiryWrite(changed bool, err error) {
	if r == nil {
		return
	}
	switch {
	case err != nil:
		r.expiryWrites.WithLabelValues(ResultError, obserrors.Classify(err)).Inc()
	case changed:
		r.expiryWrites.WithLabelValues(ResultOK, "").Inc()
	default:
		r.expiryWrites.WithLabelValues(ResultNoop, "").Inc()
	}
}

// FeedEvent counts a received change notification.
func (r *Registry) FeedEvent(table string) {
	if r == nil {
		return
	}
	r.feedEvents.WithLabelValues(table).Inc()
}

// FeedError counts a change feed listen failure.
func (r *Registry) FeedError(err error) {
	if r == nil {
		return
	}
	r.feedErrors.WithLabelValues(obserrors.Classify(err)).Inc()
}

// Sweep records one trial sweeper run.
func (r *Registry) Sweep(expired int, err error) {
	if r == nil {
		return
	}
	if err != nil {
		r.sweeps.WithLabelValues(ResultError).Inc()
		return
	}
	r.sweeps.WithLabelValues(ResultOK).Inc()
	r.sweptTenants.Add(float64(expired))
}

// StreamOpened and StreamClosed track live shell streams.
func (r *Registry) StreamOpened() {
	if r == nil {
		return
	}
	r.shellStreams.Inc()
}

func (r *Registry) StreamClosed() {
	if r == nil {
		return
	}
	r.shellStreams.Dec()
}

// LoginThrottled counts a rejected login attempt.
func (r *Registry) LoginThrottled() {
	if r == nil {
		return
	}
	r.loginThrottled.Inc()
}

// ObserveHTTP records one request. route is the mux pattern, not the raw path.
func (r *Registry) ObserveHTTP(method, route string, status int, d time.Duration) {
	if r == nil {
		return
	}
	r.httpDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(d.Seconds())
}
