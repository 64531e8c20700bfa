package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	otelx "github.com/md-rashed-zaman/visadesk/libs/otel"
	"github.com/md-rashed-zaman/visadesk/services/biometrics-service/internal/appointments"
	"github.com/md-rashed-zaman/visadesk/services/biometrics-service/internal/eligibility"
	"github.com/md-rashed-zaman/visadesk/services/biometrics-service/internal/slots"
	"go.opentelemetry.io/otel/attribute"
)

type State string

const (
	StateDraft      State = "draft"
	StateConfirming State = "confirming"
	StateSubmitting State = "submitting"
	StateSettled    State = "settled"
)

type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

type Field string

const (
	FieldLocation Field = "location"
	FieldDate     Field = "date"
	FieldTime     Field = "time"
)

const (
	ValidationMessage = "Please select a location, date and time before continuing."
	SuccessMessage    = "Your biometrics appointment has been booked."
	TimeoutMessage    = "The appointment service took too long to respond. Please try again."
)

var (
	ErrInvalidTransition  = errors.New("action not allowed in the current state")
	ErrSubmissionInFlight = errors.New("a submission is already in progress")
	ErrUnknownSlot        = errors.New("time is not an available slot")
)

// ValidationError blocks Submit while any draft field is empty.
type ValidationError struct {
	Missing []Field
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Missing))
	for _, f := range e.Missing {
		names = append(names, string(f))
	}
	return fmt.Sprintf("%s (missing: %s)", ValidationMessage, strings.Join(names, ", "))
}

// Draft is the applicant's unsubmitted selection. Empty strings mean "not chosen".
type Draft struct {
	Location appointments.Location `json:"location"`
	Date     string                `json:"date"`
	Time     string                `json:"time"`
}

func (d Draft) Missing() []Field {
	var out []Field
	if d.Location == "" {
		out = append(out, FieldLocation)
	}
	if d.Date == "" {
		out = append(out, FieldDate)
	}
	if d.Time == "" {
		out = append(out, FieldTime)
	}
	return out
}

func (d Draft) Empty() bool { return d == Draft{} }

func (d Draft) Request() appointments.Request {
	return appointments.Request{Location: d.Location, Date: d.Date, Time: d.Time}
}

// Settlement is the result of one submission attempt.
type Settlement struct {
	Outcome     Outcome                   `json:"outcome"`
	Message     string                    `json:"message"`
	Appointment *appointments.Appointment `json:"appointment,omitempty"`
	Duration    time.Duration             `json:"-"`
	Err         error                     `json:"-"`
}

type Transition struct {
	From    State
	To      State
	Outcome Outcome
	Draft   Draft
	// Settlement is set on the Submitting to Settled transition.
	Settlement *Settlement
}

type Observer func(Transition)

type Config struct {
	Repo     appointments.Repository
	Dates    *eligibility.Checker
	Timeout  time.Duration
	OnBooked func(context.Context, appointments.Appointment)
	Observer Observer
	NewKey   func() string
}

// Machine holds one page's draft and drives it through
// Draft, Confirming, Submitting and Settled. Settled always falls back to Draft.
type Machine struct {
	cfg Config

	mu      sync.Mutex
	state   State
	draft   Draft
	idemKey string
	last    *Settlement
}

func New(cfg Config) *Machine {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.NewKey == nil {
		cfg.NewKey = uuid.NewString
	}
	return &Machine{cfg: cfg, state: StateDraft}
}

type Snapshot struct {
	State State       `json:"state"`
	Draft Draft       `json:"draft"`
	Last  *Settlement `json:"last_settlement,omitempty"`
}

func (m *Machine) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	var last *Settlement
	if m.last != nil {
		cp := *m.last
		last = &cp
	}
	return Snapshot{State: m.state, Draft: m.draft, Last: last}
}

func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Machine) Draft() Draft {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.draft
}

// SetLocation sets or, with "", clears the location.
func (m *Machine) SetLocation(raw string) error {
	var loc appointments.Location
	if strings.TrimSpace(raw) != "" {
		l, err := appointments.ParseLocation(raw)
		if err != nil {
			return err
		}
		loc = l
	}
	return m.edit(func(d *Draft) { d.Location = loc })
}

// SetDate sets or, with "", clears the date. An ineligible date is rejected with the
// checker's *eligibility.DateError and the stored date is left as it was.
func (m *Machine) SetDate(iso string) error {
	iso = strings.TrimSpace(iso)
	if iso != "" && m.cfg.Dates != nil {
		if err := m.cfg.Dates.Validate(iso); err != nil {
			return err
		}
	}
	return m.edit(func(d *Draft) { d.Date = iso })
}

// SetTime sets or, with "", clears the time slot.
func (m *Machine) SetTime(value string) error {
	value = strings.TrimSpace(value)
	if value != "" && !slots.IsSlot(value) {
		return fmt.Errorf("%w: %q", ErrUnknownSlot, value)
	}
	return m.edit(func(d *Draft) { d.Time = value })
}

func (m *Machine) edit(apply func(*Draft)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateDraft {
		return ErrInvalidTransition
	}
	before := m.draft
	apply(&m.draft)
	if m.draft != before {
		m.idemKey = ""
	}
	return nil
}

// Submit moves a complete draft to Confirming. An incomplete draft stays in Draft and
// a *ValidationError names the missing fields. The date is checked again since
// "tomorrow" may have become "today" since it was picked.
func (m *Machine) Submit() error {
	m.mu.Lock()
	if m.state != StateDraft {
		m.mu.Unlock()
		return ErrInvalidTransition
	}
	if missing := m.draft.Missing(); len(missing) > 0 {
		m.mu.Unlock()
		return &ValidationError{Missing: missing}
	}
	if m.cfg.Dates != nil {
		if err := m.cfg.Dates.Validate(m.draft.Date); err != nil {
			m.mu.Unlock()
			return err
		}
	}
	t := m.move(StateConfirming, "", nil)
	m.mu.Unlock()

	m.notify(t)
	return nil
}

// Cancel returns from Confirming to Draft with the draft intact.
func (m *Machine) Cancel() error {
	m.mu.Lock()
	if m.state != StateConfirming {
		m.mu.Unlock()
		return ErrInvalidTransition
	}
	t := m.move(StateDraft, "", nil)
	m.mu.Unlock()

	m.notify(t)
	return nil
}

// Confirm submits the confirmed draft. Only one submission can be in flight; a second
// call while one is pending gets ErrSubmissionInFlight. A failed create is not an
// error here: it comes back as a Settlement with OutcomeFailure and the draft kept.
func (m *Machine) Confirm(ctx context.Context) (Settlement, error) {
	m.mu.Lock()
	switch m.state {
	case StateConfirming:
	case StateSubmitting:
		m.mu.Unlock()
		return Settlement{}, ErrSubmissionInFlight
	default:
		m.mu.Unlock()
		return Settlement{}, ErrInvalidTransition
	}
	if m.idemKey == "" {
		m.idemKey = m.cfg.NewKey()
	}
	draft, key := m.draft, m.idemKey
	started := m.move(StateSubmitting, "", nil)
	m.mu.Unlock()
	m.notify(started)

	settlement := m.create(ctx, draft, key)

	m.mu.Lock()
	if settlement.Outcome == OutcomeSuccess {
		m.draft = Draft{}
		m.idemKey = ""
	}
	m.last = &settlement
	settled := m.move(StateSettled, settlement.Outcome, &settlement)
	reset := m.move(StateDraft, settlement.Outcome, nil)
	m.mu.Unlock()

	m.notify(settled)
	m.notify(reset)

	if settlement.Outcome == OutcomeSuccess && m.cfg.OnBooked != nil {
		m.cfg.OnBooked(ctx, *settlement.Appointment)
	}
	return settlement, nil
}

func (m *Machine) create(ctx context.Context, draft Draft, key string) Settlement {
	ctx, span := otelx.Tracer("workflow").Start(ctx, "workflow.create_appointment")
	span.SetAttributes(
		attribute.String("appointment.location", string(draft.Location)),
		attribute.String("appointment.date", draft.Date),
	)

	ctx, cancel := context.WithTimeout(ctx, m.cfg.Timeout)
	defer cancel()

	start := time.Now()
	var (
		appt appointments.Appointment
		err  error
	)
	if m.cfg.Repo == nil {
		err = &appointments.Failure{Op: "create", Err: errors.New("no appointment repository configured")}
	} else {
		appt, err = m.cfg.Repo.Create(ctx, draft.Request(), key)
	}
	elapsed := time.Since(start)
	otelx.EndSpan(span, err)

	if err != nil {
		return Settlement{Outcome: OutcomeFailure, Message: failureMessage(ctx, err), Duration: elapsed, Err: err}
	}
	return Settlement{Outcome: OutcomeSuccess, Message: SuccessMessage, Appointment: &appt, Duration: elapsed}
}

func failureMessage(ctx context.Context, err error) string {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return TimeoutMessage
	}
	var f *appointments.Failure
	if errors.As(err, &f) {
		return f.UserMessage()
	}
	return appointments.DefaultFailureMessage
}

// move must be called with mu held.
func (m *Machine) move(to State, outcome Outcome, s *Settlement) Transition {
	t := Transition{From: m.state, To: to, Outcome: outcome, Draft: m.draft, Settlement: s}
	m.state = to
	return t
}

func (m *Machine) notify(t Transition) {
	if m.cfg.Observer != nil {
		m.cfg.Observer(t)
	}
}
