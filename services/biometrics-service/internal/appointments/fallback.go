package appointments

import (
	"context"
	"log/slog"
)

const FallbackNotice = "Live appointment data could not be loaded. Showing sample appointments."

const StatusDemo = "demo"

// DemoAppointments is the placeholder list shown when the appointment service is unreachable.
func DemoAppointments() []Appointment {
	return []Appointment{
		{ID: "demo-1", Applicant: "Sample Applicant", Location: LocationLagos, Date: "2024-01-23", Time: "09:00", Status: StatusDemo, Demo: true},
		{ID: "demo-2", Applicant: "Sample Applicant", Location: LocationAbuja, Date: "2024-01-25", Time: "10:45", Status: StatusDemo, Demo: true},
		{ID: "demo-3", Applicant: "Sample Applicant", Location: LocationLagos, Date: "2024-02-01", Time: "13:45", Status: StatusDemo, Demo: true},
	}
}

// ListWithFallback never fails: on error it logs and returns the demo list with
// fallback set.
func ListWithFallback(ctx context.Context, repo Repository, logger *slog.Logger) (list []Appointment, fallback bool) {
	list, err := repo.List(ctx)
	if err != nil {
		if logger != nil {
			logger.Warn("appointment list unavailable; using demo data", "err", err)
		}
		return DemoAppointments(), true
	}
	return list, false
}
