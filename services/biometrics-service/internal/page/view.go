package page

import (
	"time"

	"github.com/md-rashed-zaman/visadesk/services/biometrics-service/internal/appointments"
	"github.com/md-rashed-zaman/visadesk/services/biometrics-service/internal/eligibility"
	"github.com/md-rashed-zaman/visadesk/services/biometrics-service/internal/gate"
	"github.com/md-rashed-zaman/visadesk/services/biometrics-service/internal/slots"
	"github.com/md-rashed-zaman/visadesk/services/biometrics-service/internal/workflow"
)

// View is everything the presentation shell needs to render the page. Exactly one
// of Blocked and Form is set.
type View struct {
	PageID               string                     `json:"page_id"`
	Gate                 gate.Result                `json:"gate"`
	Blocked              *BlockedView               `json:"blocked,omitempty"`
	Form                 *FormView                  `json:"form,omitempty"`
	Appointments         []appointments.Appointment `json:"appointments"`
	AppointmentsFallback bool                       `json:"appointments_fallback"`
	Notices              []Notice                   `json:"notices"`
}

type BlockedView struct {
	Title       string `json:"title"`
	Message     string `json:"message"`
	ActionLabel string `json:"action_label"`
	ActionURL   string `json:"action_url"`
}

type FormView struct {
	Slots          []slots.TimeSlot              `json:"slots"`
	MinDate        string                        `json:"min_date"`
	QuickPicks     []eligibility.QuickPick       `json:"quick_picks"`
	Locations      []appointments.LocationOption `json:"locations"`
	Availability   string                        `json:"availability"`
	OpenWeekdays   []time.Weekday                `json:"open_weekdays"`
	Draft          workflow.Draft                `json:"draft"`
	State          workflow.State                `json:"state"`
	CanSubmit      bool                          `json:"can_submit"`
	CanConfirm     bool                          `json:"can_confirm"`
	Confirmation   *Confirmation                 `json:"confirmation,omitempty"`
	LastSettlement *workflow.Settlement          `json:"last_settlement,omitempty"`
}

// Confirmation is the read-only summary shown while confirming or submitting.
type Confirmation struct {
	Location  string `json:"location"`
	Date      string `json:"date"`
	Time      string `json:"time"`
	TimeLabel string `json:"time_label"`
}

const defaultPaymentURL = "/payments"

func (p *Page) View() View {
	p.mu.Lock()
	list := append([]appointments.Appointment(nil), p.list...)
	notices := append([]Notice(nil), p.notices...)
	fallback := p.fallback
	p.mu.Unlock()

	if list == nil {
		list = []appointments.Appointment{}
	}
	if notices == nil {
		notices = []Notice{}
	}
	v := View{
		PageID:               p.id,
		Gate:                 p.gate,
		Appointments:         list,
		AppointmentsFallback: fallback,
		Notices:              notices,
	}
	if p.machine == nil {
		url := p.deps.PaymentURL
		if url == "" {
			url = defaultPaymentURL
		}
		v.Blocked = &BlockedView{
			Title:       "Payment required",
			Message:     "Please complete payment for your visa application before scheduling your biometrics appointment.",
			ActionLabel: "Complete payment",
			ActionURL:   url,
		}
		return v
	}

	snap := p.machine.Snapshot()
	form := &FormView{
		Slots:          slots.Generate(),
		MinDate:        p.deps.Dates.MinimumSelectableDate(),
		QuickPicks:     p.deps.Dates.QuickPicks(),
		Locations:      appointments.Locations(),
		Availability:   p.deps.Dates.AvailabilityCopy(),
		OpenWeekdays:   p.deps.Dates.Rule().OpenWeekdays(),
		Draft:          snap.Draft,
		State:          snap.State,
		CanSubmit:      snap.State == workflow.StateDraft,
		CanConfirm:     snap.State == workflow.StateConfirming,
		LastSettlement: snap.Last,
	}
	if snap.State == workflow.StateConfirming || snap.State == workflow.StateSubmitting {
		form.Confirmation = &Confirmation{
			Location:  snap.Draft.Location.DisplayName(),
			Date:      snap.Draft.Date,
			Time:      snap.Draft.Time,
			TimeLabel: slots.Label(snap.Draft.Time),
		}
	}
	v.Form = form
	return v
}
