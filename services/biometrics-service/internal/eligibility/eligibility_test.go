package eligibility

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lagos(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Africa/Lagos")
	require.NoError(t, err)
	return loc
}

// 2024-01-22 is a Monday.
func checkerAt(t *testing.T, rule Rule, ts string) *Checker {
	t.Helper()
	now, err := time.Parse(time.RFC3339, ts)
	require.NoError(t, err)
	return NewChecker(rule, lagos(t)).WithClock(func() time.Time { return now })
}

func TestIsWeekday(t *testing.T) {
	c := NewChecker(MondayToFriday, time.UTC)
	sat := NewChecker(MondayToSaturday, time.UTC)
	start := time.Date(2024, 1, 22, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 7; i++ {
		d := start.AddDate(0, 0, i)
		wd := d.Weekday()
		assert.Equal(t, wd != time.Saturday && wd != time.Sunday, c.IsWeekday(d), wd.String())
		assert.Equal(t, wd != time.Sunday, sat.IsWeekday(d), wd.String())
	}
	assert.Equal(t, "Mon–Fri", c.AvailabilityCopy())
	assert.Equal(t, "Mon–Sat", sat.AvailabilityCopy())
}

func TestOpenWeekdaysMatchOpen(t *testing.T) {
	assert.Equal(t, []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday},
		MondayToFriday.OpenWeekdays())
	assert.Equal(t, []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday, time.Saturday},
		MondayToSaturday.OpenWeekdays())
	for _, rule := range []Rule{MondayToFriday, MondayToSaturday} {
		for _, d := range rule.OpenWeekdays() {
			assert.True(t, rule.Open(d), d.String())
		}
	}
}

func TestMinimumSelectableDate(t *testing.T) {
	c := checkerAt(t, MondayToFriday, "2024-01-22T10:00:00Z")
	assert.Equal(t, "2024-01-23", c.MinimumSelectableDate())

	// 23:30 UTC is already the next day in Lagos (UTC+1).
	c = checkerAt(t, MondayToFriday, "2024-01-22T23:30:00Z")
	assert.Equal(t, "2024-01-24", c.MinimumSelectableDate())
}

func TestMinimumSelectableDateIsRecomputed(t *testing.T) {
	now := time.Date(2024, 1, 22, 9, 0, 0, 0, time.UTC)
	c := NewChecker(MondayToFriday, time.UTC).WithClock(func() time.Time { return now })
	assert.Equal(t, "2024-01-23", c.MinimumSelectableDate())
	now = now.AddDate(0, 0, 1)
	assert.Equal(t, "2024-01-24", c.MinimumSelectableDate())
}

func TestValidate(t *testing.T) {
	c := checkerAt(t, MondayToFriday, "2024-01-22T10:00:00Z")
	cases := []struct {
		date   string
		reason Reason
	}{
		{date: "2024-01-23"},
		{date: "2024-01-26"},
		{date: "2024-01-22", reason: ReasonTooSoon},
		{date: "2023-12-31", reason: ReasonTooSoon},
		{date: "2024-01-27", reason: ReasonClosedDay},
		{date: "2024-01-28", reason: ReasonClosedDay},
		{date: "23/01/2024", reason: ReasonMalformed},
		{date: "", reason: ReasonMalformed},
	}
	for _, tc := range cases {
		t.Run(tc.date, func(t *testing.T) {
			err := c.Validate(tc.date)
			if tc.reason == "" {
				assert.NoError(t, err)
				return
			}
			var de *DateError
			require.True(t, errors.As(err, &de), "expected *DateError, got %v", err)
			assert.Equal(t, tc.reason, de.Reason)
			assert.ErrorIs(t, err, ErrIneligibleDate)
			assert.NotEmpty(t, de.Message)
		})
	}

	sat := checkerAt(t, MondayToSaturday, "2024-01-22T10:00:00Z")
	assert.NoError(t, sat.Validate("2024-01-27"))
	assert.Error(t, sat.Validate("2024-01-28"))
}

func TestQuickPicksAreNotFiltered(t *testing.T) {
	// Friday: tomorrow and in two days fall on the weekend.
	c := checkerAt(t, MondayToFriday, "2024-01-26T10:00:00Z")
	picks := c.QuickPicks()
	require.Len(t, picks, 3)
	assert.Equal(t, "2024-01-27", picks[0].Date)
	assert.Equal(t, "2024-01-28", picks[1].Date)
	assert.Equal(t, "2024-02-02", picks[2].Date)

	assert.Error(t, c.Validate(picks[0].Date))
	assert.Error(t, c.Validate(picks[1].Date))
	assert.NoError(t, c.Validate(picks[2].Date))
}
