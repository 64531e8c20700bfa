package page

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/md-rashed-zaman/visadesk/services/biometrics-service/internal/appointments"
	"github.com/md-rashed-zaman/visadesk/services/biometrics-service/internal/eligibility"
	"github.com/md-rashed-zaman/visadesk/services/biometrics-service/internal/gate"
	"github.com/md-rashed-zaman/visadesk/services/biometrics-service/internal/workflow"
	"golang.org/x/sync/errgroup"
)

var (
	ErrGateClosed       = errors.New("payment must be completed before scheduling")
	ErrUnknownQuickPick = errors.New("unknown quick pick")
)

// Hooks lets metrics and event publishing watch a page without the page knowing about them.
type Hooks struct {
	ListLoaded func(fallback bool)
	Transition func(userID string, t workflow.Transition)
}

type Deps struct {
	Gate          *gate.Policy
	Repo          appointments.Repository
	Dates         *eligibility.Checker
	SubmitTimeout time.Duration
	PaymentURL    string
	Logger        *slog.Logger
	Hooks         Hooks
}

func (d *Deps) logger() *slog.Logger {
	if d.Logger == nil {
		return slog.Default()
	}
	return d.Logger
}

// Page is one applicant's visit to the scheduling page. The gate is read once, in
// Load, and kept for the life of the page.
type Page struct {
	id     string
	userID string
	deps   *Deps
	gate   gate.Result

	machine *workflow.Machine

	mu       sync.Mutex
	list     []appointments.Appointment
	fallback bool
	notices  []Notice
}

// Load reads the payment gate and the appointment list concurrently and builds a page.
// It never fails: both reads have their own fallbacks.
func Load(ctx context.Context, deps *Deps, userID string) *Page {
	p := &Page{id: uuid.NewString(), userID: userID, deps: deps}

	var (
		g        errgroup.Group
		res      gate.Result
		list     []appointments.Appointment
		fallback bool
	)
	g.Go(func() error {
		res = deps.Gate.Check(ctx, userID)
		return nil
	})
	g.Go(func() error {
		list, fallback = appointments.ListWithFallback(ctx, deps.Repo, deps.logger())
		return nil
	})
	_ = g.Wait()

	p.gate = res
	if res.Warning != "" {
		p.put(kindGate, LevelWarning, res.Warning)
	}
	p.setList(list, fallback)

	if res.Open {
		p.machine = workflow.New(workflow.Config{
			Repo:     deps.Repo,
			Dates:    deps.Dates,
			Timeout:  deps.SubmitTimeout,
			OnBooked: func(ctx context.Context, _ appointments.Appointment) { p.Refresh(ctx) },
			Observer: func(t workflow.Transition) {
				if deps.Hooks.Transition != nil {
					deps.Hooks.Transition(userID, t)
				}
			},
		})
	}
	return p
}

func (p *Page) ID() string { return p.id }

func (p *Page) UserID() string { return p.userID }

func (p *Page) Gate() gate.Result { return p.gate }

// Refresh refetches the appointment list.
func (p *Page) Refresh(ctx context.Context) {
	list, fallback := appointments.ListWithFallback(ctx, p.deps.Repo, p.deps.logger())
	p.mu.Lock()
	p.setList(list, fallback)
	p.mu.Unlock()
}

// setList must be called with mu held, or before the page is shared.
func (p *Page) setList(list []appointments.Appointment, fallback bool) {
	p.list = list
	p.fallback = fallback
	if fallback {
		p.put(kindList, LevelWarning, appointments.FallbackNotice)
	} else {
		p.drop(kindList)
	}
	if p.deps.Hooks.ListLoaded != nil {
		p.deps.Hooks.ListLoaded(fallback)
	}
}

// DraftInput carries the fields to change. Nil leaves a field alone; "" clears it.
type DraftInput struct {
	Location *string `json:"location,omitempty"`
	Date     *string `json:"date,omitempty"`
	Time     *string `json:"time,omitempty"`
}

// SetDraft applies every provided field and returns the first rejection. Each
// rejected field is reported in one validation notice.
func (p *Page) SetDraft(in DraftInput) error {
	if p.machine == nil {
		return ErrGateClosed
	}
	var (
		firstErr error
		fields   []string
		messages []string
	)
	record := func(field workflow.Field, err error) {
		if err == nil {
			return
		}
		if firstErr == nil {
			firstErr = err
		}
		fields = append(fields, string(field))
		messages = append(messages, fieldMessage(field, err))
	}
	if in.Location != nil {
		record(workflow.FieldLocation, p.machine.SetLocation(*in.Location))
	}
	if in.Date != nil {
		record(workflow.FieldDate, p.machine.SetDate(*in.Date))
	}
	if in.Time != nil {
		record(workflow.FieldTime, p.machine.SetTime(*in.Time))
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if firstErr == nil {
		p.drop(kindValidation)
		return nil
	}
	if errors.Is(firstErr, workflow.ErrInvalidTransition) {
		return firstErr
	}
	p.put(kindValidation, LevelError, strings.Join(messages, " "), fields...)
	return firstErr
}

// QuickPick applies a preset date through the same validation as a typed date.
func (p *Page) QuickPick(index int) error {
	if p.machine == nil {
		return ErrGateClosed
	}
	picks := p.deps.Dates.QuickPicks()
	if index < 0 || index >= len(picks) {
		return ErrUnknownQuickPick
	}
	date := picks[index].Date
	return p.SetDraft(DraftInput{Date: &date})
}

func (p *Page) Submit() error {
	if p.machine == nil {
		return ErrGateClosed
	}
	err := p.machine.Submit()

	p.mu.Lock()
	defer p.mu.Unlock()
	var (
		ve *workflow.ValidationError
		de *eligibility.DateError
	)
	switch {
	case err == nil:
		p.drop(kindValidation)
	case errors.As(err, &ve):
		fields := make([]string, 0, len(ve.Missing))
		for _, f := range ve.Missing {
			fields = append(fields, string(f))
		}
		p.put(kindValidation, LevelError, workflow.ValidationMessage, fields...)
	case errors.As(err, &de):
		p.put(kindValidation, LevelError, de.Message, string(workflow.FieldDate))
	}
	return err
}

func (p *Page) Cancel() error {
	if p.machine == nil {
		return ErrGateClosed
	}
	return p.machine.Cancel()
}

// Confirm submits the confirmed draft. The create is detached from ctx cancellation
// so a dropped connection cannot abort a booking half way; the submit timeout still applies.
func (p *Page) Confirm(ctx context.Context) (workflow.Settlement, error) {
	if p.machine == nil {
		return workflow.Settlement{}, ErrGateClosed
	}
	s, err := p.machine.Confirm(context.WithoutCancel(ctx))
	if err != nil {
		return s, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if s.Outcome == workflow.OutcomeSuccess {
		p.put(kindSubmission, LevelSuccess, s.Message)
	} else {
		p.deps.logger().Warn("appointment create failed", "user_id", p.userID, "err", s.Err)
		p.put(kindSubmission, LevelError, s.Message)
	}
	return s, nil
}

func fieldMessage(field workflow.Field, err error) string {
	var de *eligibility.DateError
	switch {
	case errors.As(err, &de):
		return de.Message
	case field == workflow.FieldLocation:
		return "Please choose Lagos or Abuja."
	case field == workflow.FieldTime:
		return "Please choose one of the available time slots."
	default:
		return err.Error()
	}
}
