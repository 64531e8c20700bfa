package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/md-rashed-zaman/visadesk/services/biometrics-service/internal/gate"
	"github.com/md-rashed-zaman/visadesk/services/biometrics-service/internal/workflow"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
)

func TestSchedulingMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewSchedulingMetrics(reg)

	m.ObserveGate(gate.OutcomeDegraded)
	m.ObserveGate(gate.OutcomeOpen)
	m.ObserveGate(gate.OutcomeOpen)
	m.ObserveListLoad(true)
	m.ObserveSubmission(SubmissionValidation)
	m.ObserveTransition("u1", workflow.Transition{To: workflow.StateSubmitting})
	m.ObserveTransition("u1", workflow.Transition{
		To:         workflow.StateSettled,
		Settlement: &workflow.Settlement{Outcome: workflow.OutcomeSuccess, Duration: 120 * time.Millisecond},
	})

	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	for _, line := range []string{
		`visadesk_biometrics_gate_checks_total{outcome="open"} 2`,
		`visadesk_biometrics_gate_checks_total{outcome="degraded"} 1`,
		`visadesk_biometrics_appointment_list_loads_total{source="fallback"} 1`,
		`visadesk_biometrics_submissions_total{result="success"} 1`,
		`visadesk_biometrics_submissions_total{result="validation"} 1`,
		`visadesk_biometrics_create_latency_seconds_count 1`,
	} {
		assert.True(t, strings.Contains(body, line), "missing %s", line)
	}
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *SchedulingMetrics
	m.ObserveGate(gate.OutcomeClosed)
	m.ObserveListLoad(false)
	m.ObserveSubmission(SubmissionFailure)
	m.ObserveTransition("u1", workflow.Transition{To: workflow.StateSettled, Settlement: &workflow.Settlement{}})
}
