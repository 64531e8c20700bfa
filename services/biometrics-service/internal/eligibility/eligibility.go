package eligibility

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const isoDate = "2006-01-02"

// Rule is the set of weekdays the biometrics centres open.
type Rule int

const (
	MondayToFriday Rule = iota
	MondayToSaturday
)

func (r Rule) Open(day time.Weekday) bool {
	switch day {
	case time.Sunday:
		return false
	case time.Saturday:
		return r == MondayToSaturday
	default:
		return true
	}
}

// OpenWeekdays lists the days Open accepts, Sunday first.
func (r Rule) OpenWeekdays() []time.Weekday {
	var days []time.Weekday
	for d := time.Sunday; d <= time.Saturday; d++ {
		if r.Open(d) {
			days = append(days, d)
		}
	}
	return days
}

// String is the availability copy shown next to the date input.
func (r Rule) String() string {
	if r == MondayToSaturday {
		return "Mon–Sat"
	}
	return "Mon–Fri"
}

// ErrIneligibleDate is matched by every *DateError.
var ErrIneligibleDate = errors.New("date is not selectable")

type Reason string

const (
	ReasonMalformed Reason = "malformed"
	ReasonTooSoon   Reason = "too_soon"
	ReasonClosedDay Reason = "closed_day"
)

type DateError struct {
	Date    string
	Reason  Reason
	Message string
}

func (e *DateError) Error() string { return e.Message }

func (e *DateError) Unwrap() error { return ErrIneligibleDate }

// Checker decides which calendar dates an applicant may pick. "Today" is taken in
// the centre's timezone and recomputed on every call.
type Checker struct {
	rule Rule
	loc  *time.Location
	now  func() time.Time
}

func NewChecker(rule Rule, loc *time.Location) *Checker {
	if loc == nil {
		loc = time.UTC
	}
	return &Checker{rule: rule, loc: loc, now: time.Now}
}

// WithClock swaps the time source. Tests pin "today" with it.
func (c *Checker) WithClock(now func() time.Time) *Checker {
	if now != nil {
		c.now = now
	}
	return c
}

func (c *Checker) Rule() Rule { return c.rule }

func (c *Checker) Location() *time.Location { return c.loc }

func (c *Checker) AvailabilityCopy() string { return c.rule.String() }

func (c *Checker) Today() time.Time {
	n := c.now().In(c.loc)
	return time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, c.loc)
}

func (c *Checker) IsWeekday(date time.Time) bool {
	return c.rule.Open(date.Weekday())
}

// MinimumSelectableDate is tomorrow as YYYY-MM-DD.
func (c *Checker) MinimumSelectableDate() string {
	return c.Today().AddDate(0, 0, 1).Format(isoDate)
}

func (c *Checker) Parse(iso string) (time.Time, error) {
	iso = strings.TrimSpace(iso)
	d, err := time.ParseInLocation(isoDate, iso, c.loc)
	if err != nil {
		return time.Time{}, &DateError{Date: iso, Reason: ReasonMalformed, Message: "Please enter a valid date (YYYY-MM-DD)."}
	}
	return d, nil
}

// Validate returns nil for a selectable date and a *DateError otherwise.
func (c *Checker) Validate(iso string) error {
	d, err := c.Parse(iso)
	if err != nil {
		return err
	}
	if !d.After(c.Today()) {
		return &DateError{
			Date:    iso,
			Reason:  ReasonTooSoon,
			Message: fmt.Sprintf("Please choose a date from %s onwards.", c.MinimumSelectableDate()),
		}
	}
	if !c.IsWeekday(d) {
		return &DateError{
			Date:    iso,
			Reason:  ReasonClosedDay,
			Message: fmt.Sprintf("Biometrics appointments are available %s only.", c.rule),
		}
	}
	return nil
}

// QuickPick is a preset date offered next to the date input. Presets are not
// filtered; picking one goes through Validate like a typed date.
type QuickPick struct {
	Label string `json:"label"`
	Date  string `json:"date"`
}

var quickPickOffsets = []struct {
	label string
	days  int
}{
	{label: "Tomorrow", days: 1},
	{label: "In 2 days", days: 2},
	{label: "Next week", days: 7},
}

func (c *Checker) QuickPicks() []QuickPick {
	today := c.Today()
	out := make([]QuickPick, 0, len(quickPickOffsets))
	for _, p := range quickPickOffsets {
		out = append(out, QuickPick{Label: p.label, Date: today.AddDate(0, 0, p.days).Format(isoDate)})
	}
	return out
}
