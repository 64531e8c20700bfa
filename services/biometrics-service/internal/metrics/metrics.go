package metrics

import (
	"net/http"

	"github.com/md-rashed-zaman/visadesk/services/biometrics-service/internal/gate"
	"github.com/md-rashed-zaman/visadesk/services/biometrics-service/internal/workflow"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Submission results counted by ObserveSubmission.
const (
	SubmissionSuccess    = "success"
	SubmissionFailure    = "failure"
	SubmissionValidation = "validation"
	SubmissionInFlight   = "in_flight"
)

// SchedulingMetrics counts gate checks, list loads and submissions. All methods are
// safe on a nil receiver.
type SchedulingMetrics struct {
	gateChecks    *prometheus.CounterVec
	listLoads     *prometheus.CounterVec
	submissions   *prometheus.CounterVec
	createLatency prometheus.Histogram
	gatherer      prometheus.Gatherer
}

func NewSchedulingMetrics(reg prometheus.Registerer) *SchedulingMetrics {
	m := &SchedulingMetrics{
		gateChecks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "visadesk",
			Subsystem: "biometrics",
			Name:      "gate_checks_total",
			Help:      "Payment gate checks by outcome",
		}, []string{"outcome"}),
		listLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "visadesk",
			Subsystem: "biometrics",
			Name:      "appointment_list_loads_total",
			Help:      "Appointment list loads by data source",
		}, []string{"source"}),
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "visadesk",
			Subsystem: "biometrics",
			Name:      "submissions_total",
			Help:      "Appointment submissions by result",
		}, []string{"result"}),
		createLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "visadesk",
			Subsystem: "biometrics",
			Name:      "create_latency_seconds",
			Help:      "Latency of appointment create calls",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.gateChecks, m.listLoads, m.submissions, m.createLatency)
	if g, ok := reg.(prometheus.Gatherer); ok {
		m.gatherer = g
	} else {
		m.gatherer = prometheus.DefaultGatherer
	}
	return m
}

// Handler serves the registry the metrics were registered with.
func (m *SchedulingMetrics) Handler() http.Handler {
	if m == nil || m.gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func (m *SchedulingMetrics) ObserveGate(outcome gate.Outcome) {
	if m == nil {
		return
	}
	m.gateChecks.WithLabelValues(string(outcome)).Inc()
}

func (m *SchedulingMetrics) ObserveListLoad(fallback bool) {
	if m == nil {
		return
	}
	source := "live"
	if fallback {
		source = "fallback"
	}
	m.listLoads.WithLabelValues(source).Inc()
}

func (m *SchedulingMetrics) ObserveSubmission(result string) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(result).Inc()
}

// ObserveTransition records settled submissions and their create latency.
func (m *SchedulingMetrics) ObserveTransition(_ string, t workflow.Transition) {
	if m == nil || t.To != workflow.StateSettled || t.Settlement == nil {
		return
	}
	result := SubmissionFailure
	if t.Settlement.Outcome == workflow.OutcomeSuccess {
		result = SubmissionSuccess
	}
	m.submissions.WithLabelValues(result).Inc()
	m.createLatency.Observe(t.Settlement.Duration.Seconds())
}
