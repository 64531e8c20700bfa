package appointments

import (
	"context"
	"fmt"
	"strings"
)

type Location string

const (
	LocationLagos Location = "lagos"
	LocationAbuja Location = "abuja"
)

var locationNames = map[Location]string{
	LocationLagos: "Lagos",
	LocationAbuja: "Abuja",
}

func ParseLocation(raw string) (Location, error) {
	l := Location(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := locationNames[l]; !ok {
		return "", fmt.Errorf("unknown location %q", raw)
	}
	return l, nil
}

func (l Location) DisplayName() string {
	if name, ok := locationNames[l]; ok {
		return name
	}
	return string(l)
}

type LocationOption struct {
	Value Location `json:"value"`
	Label string   `json:"label"`
}

func Locations() []LocationOption {
	return []LocationOption{
		{Value: LocationLagos, Label: LocationLagos.DisplayName()},
		{Value: LocationAbuja, Label: LocationAbuja.DisplayName()},
	}
}

// Appointment is owned by the appointment service; this service only lists and creates them.
type Appointment struct {
	ID        string   `json:"id"`
	Applicant string   `json:"applicant"`
	Location  Location `json:"location"`
	Date      string   `json:"date"`
	Time      string   `json:"time"`
	Status    string   `json:"status"`
	Demo      bool     `json:"demo,omitempty"`
}

type Request struct {
	Location Location `json:"location"`
	Date     string   `json:"date"`
	Time     string   `json:"time"`
}

type Repository interface {
	List(ctx context.Context) ([]Appointment, error)
	// Create books one appointment. Repeating a call with the same idempotencyKey
	// must not create a second booking.
	Create(ctx context.Context, req Request, idempotencyKey string) (Appointment, error)
}

const DefaultFailureMessage = "We could not book your appointment. Please try again."

// Failure is returned for every unsuccessful call to the appointment service:
// transport errors, non-2xx responses and success=false envelopes.
type Failure struct {
	Op         string
	StatusCode int
	Message    string
	Err        error
}

func (f *Failure) Error() string {
	var b strings.Builder
	b.WriteString("appointments ")
	b.WriteString(f.Op)
	if f.StatusCode != 0 {
		fmt.Fprintf(&b, " (status %d)", f.StatusCode)
	}
	if f.Message != "" {
		b.WriteString(": ")
		b.WriteString(f.Message)
	}
	if f.Err != nil {
		b.WriteString(": ")
		b.WriteString(f.Err.Error())
	}
	return b.String()
}

func (f *Failure) Unwrap() error { return f.Err }

// UserMessage is the text shown to the applicant.
func (f *Failure) UserMessage() string {
	if f.Message != "" {
		return f.Message
	}
	return DefaultFailureMessage
}
