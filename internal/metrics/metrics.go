package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder counts ledger append outcomes. Derived status is deliberately not
// exported as a gauge: status is computed at read time and an eagerly
// maintained metric would reintroduce the drift the engine exists to prevent.
type Recorder struct {
	registry *prometheus.Registry

	appendsAccepted *prometheus.CounterVec
	appendsRejected *prometheus.CounterVec
	registrations   prometheus.Counter
}

// New creates a Recorder with its own registry.
func New() *Recorder {
	registry := prometheus.NewRegistry()

	accepted := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_appends_accepted_total",
			Help: "Accepted ledger appends by log type",
		},
		[]string{"log_type"},
	)

	rejected := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_appends_rejected_total",
			Help: "Rejected ledger appends by log type and rejection kind",
		},
		[]string{"log_type", "reason"},
	)

	registrations := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "equipment_registrations_total",
			Help: "Successfully registered equipment records",
		},
	)

	registry.MustRegister(accepted, rejected, registrations)

	return &Recorder{
		registry:        registry,
		appendsAccepted: accepted,
		appendsRejected: rejected,
		registrations:   registrations,
	}
}

// Accepted counts one accepted append.
func (r *Recorder) Accepted(logType string) {
	if r == nil {
		return
	}
	r.appendsAccepted.WithLabelValues(logType).Inc()
}

// Rejected counts one rejected append.
func (r *Recorder) Rejected(logType, reason string) {
	if r == nil {
		return
	}
	r.appendsRejected.WithLabelValues(logType, reason).Inc()
}

// Registered counts one successful registration.
func (r *Recorder) Registered() {
	if r == nil {
		return
	}
	r.registrations.Inc()
}

// Handler serves the recorder's registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
