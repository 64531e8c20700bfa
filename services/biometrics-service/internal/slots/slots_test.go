package slots

import (
	"reflect"
	"testing"
)

func TestGenerate(t *testing.T) {
	got := Generate()
	if len(got) != 14 {
		t.Fatalf("expected 14 slots, got %d", len(got))
	}
	if got[0].Value != "08:00" || got[0].Label != "8:00 AM" {
		t.Fatalf("unexpected first slot %+v", got[0])
	}
	last := got[len(got)-1]
	if last.Value != "14:45" || last.Label != "2:45 PM" {
		t.Fatalf("unexpected last slot %+v", last)
	}
	for i := 1; i < len(got); i++ {
		if got[i-1].Value >= got[i].Value {
			t.Fatalf("slots not strictly increasing at %d: %s >= %s", i, got[i-1].Value, got[i].Value)
		}
	}
	if !reflect.DeepEqual(got, Generate()) {
		t.Fatal("Generate must be deterministic")
	}
}

func TestLabels(t *testing.T) {
	want := map[string]string{
		"08:45": "8:45 AM",
		"11:45": "11:45 AM",
		"12:00": "12:00 PM",
		"12:45": "12:45 PM",
		"13:00": "1:00 PM",
	}
	for value, label := range want {
		if got := Label(value); got != label {
			t.Fatalf("Label(%s) = %q, want %q", value, got, label)
		}
	}
	if got := label(0, 30); got != "12:30 AM" {
		t.Fatalf("midnight label = %q", got)
	}
}

func TestIsSlot(t *testing.T) {
	for _, v := range []string{"08:00", "10:45", "14:45"} {
		if !IsSlot(v) {
			t.Fatalf("expected %s to be a slot", v)
		}
	}
	for _, v := range []string{"", "07:45", "08:30", "15:00", "8:00", "14:46"} {
		if IsSlot(v) {
			t.Fatalf("expected %s not to be a slot", v)
		}
	}
}

func TestGridHonoursCloseHour(t *testing.T) {
	g := Grid{OpenHour: 9, LastHour: 10, CloseHour: 10, Minutes: []int{0, 30}}
	got := g.Slots()
	if len(got) != 2 || got[1].Value != "09:30" {
		t.Fatalf("unexpected slots %+v", got)
	}
}
