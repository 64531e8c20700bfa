package slots

import "fmt"

// TimeSlot is one bookable time of day. Value is 24h "HH:MM"; Label is the 12h form.
type TimeSlot struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Grid bounds the bookable day. Every hour in [OpenHour, LastHour] contributes one
// slot per minute offset, and nothing at or after CloseHour:00 is bookable.
type Grid struct {
	OpenHour  int
	LastHour  int
	CloseHour int
	Minutes   []int
}

const (
	openHour  = 8
	lastHour  = 14
	closeHour = 15
)

// Default is the biometrics centre grid: 08:00 to 14:45, on the hour and at :45.
var Default = Grid{
	OpenHour:  openHour,
	LastHour:  lastHour,
	CloseHour: closeHour,
	Minutes:   []int{0, 45},
}

// Generate returns the default grid's slots. It has no inputs and no side effects.
func Generate() []TimeSlot {
	return Default.Slots()
}

// IsSlot reports whether value is one of the default grid's slot values.
func IsSlot(value string) bool {
	return Default.Contains(value)
}

func (g Grid) Slots() []TimeSlot {
	out := make([]TimeSlot, 0, (g.LastHour-g.OpenHour+1)*len(g.Minutes))
	for hour := g.OpenHour; hour <= g.LastHour; hour++ {
		for _, minute := range g.Minutes {
			if hour*60+minute >= g.CloseHour*60 {
				continue
			}
			out = append(out, TimeSlot{
				Value: fmt.Sprintf("%02d:%02d", hour, minute),
				Label: label(hour, minute),
			})
		}
	}
	return out
}

func (g Grid) Contains(value string) bool {
	for _, s := range g.Slots() {
		if s.Value == value {
			return true
		}
	}
	return false
}

// Label returns the 12h label for a slot value, or "" when value is not a slot.
func Label(value string) string {
	for _, s := range Generate() {
		if s.Value == value {
			return s.Label
		}
	}
	return ""
}

func label(hour, minute int) string {
	suffix := "AM"
	if hour >= 12 {
		suffix = "PM"
	}
	h12 := hour
	switch {
	case hour == 0:
		h12 = 12
	case hour > 12:
		h12 = hour - 12
	}
	return fmt.Sprintf("%d:%02d %s", h12, minute, suffix)
}
