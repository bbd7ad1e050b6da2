package recurrence

import (
	"testing"
	"time"

	"github.com/dukerupert/clientbook/internal/model"
)

func d(year int, month time.Month, day, hour int) time.Time {
	return time.Date(year, month, day, hour, 0, 0, 0, time.Local)
}

func TestParseWeekday(t *testing.T) {
	tests := []struct {
		label string
		want  time.Weekday
		ok    bool
	}{
		{"Mon", time.Monday, true},
		{"wednesday", time.Wednesday, true},
		{" FRI ", time.Friday, true},
		{"qua", time.Wednesday, true},
		{"sáb", time.Saturday, true},
		{"xyz", 0, false},
		{"", 0, false},
	}

	for _, tt := range tests {
		got, ok := ParseWeekday(tt.label)
		if ok != tt.ok {
			t.Errorf("ParseWeekday(%q) ok = %v, want %v", tt.label, ok, tt.ok)
			continue
		}
		if ok && got != tt.want {
			t.Errorf("ParseWeekday(%q) = %v, want %v", tt.label, got, tt.want)
		}
	}
}

func TestNormalizeWeekdays(t *testing.T) {
	got := NormalizeWeekdays([]string{"sun", "Wed", "monday", "wed", "bogus"})
	want := []string{"Mon", "Wed", "Sun"}
	if len(got) != len(want) {
		t.Fatalf("NormalizeWeekdays = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("NormalizeWeekdays[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestSlotTime(t *testing.T) {
	c := model.Client{
		ID:           "c1",
		Weekdays:     []string{"Mon", "Wed"},
		DefaultTime:  "10h",
		WeekdayTimes: map[string]string{"Wed": "14h30", "Fri": " "},
	}

	if got := SlotTime(c, time.Monday); got != "10:00" {
		t.Errorf("Monday slot = %q, want 10:00", got)
	}
	if got := SlotTime(c, time.Wednesday); got != "14:30" {
		t.Errorf("Wednesday slot = %q, want 14:30", got)
	}
	if got := SlotTime(c, time.Friday); got != "10:00" {
		t.Errorf("blank override should fall back to default, got %q", got)
	}

	c.DefaultTime = ""
	if got := SlotTime(c, time.Monday); got != "00:00" {
		t.Errorf("missing time should fall back to 00:00, got %q", got)
	}
}

func TestGenerate(t *testing.T) {
	clients := []model.Client{
		{ID: "ana", Name: "Ana", Location: "Studio", Weekdays: []string{"Mon", "Wed"}, DefaultTime: "10:00"},
		{ID: "bea", Name: "Bea", Weekdays: []string{"Tue"}, DefaultTime: "09:00"},
		{ID: "caio", Name: "Caio", Weekdays: []string{"wednesday"}, WeekdayTimes: map[string]string{"qua": "18h"}},
		{ID: "", Name: "No ID", Weekdays: []string{"Wed"}},
		{ID: "dora", Name: "Dora", Weekdays: []string{"??"}},
	}

	wed := d(2026, 10, 21, 12) // Wednesday
	got := Generate(wed, clients)
	if len(got) != 2 {
		t.Fatalf("got %d appointments, want 2", len(got))
	}

	ana := got[0]
	if ana.ClientID != "ana" || ana.Time != "10:00" || ana.Location != "Studio" {
		t.Errorf("ana = %+v", ana)
	}
	if ana.DateKey != "2026-10-21" {
		t.Errorf("date key = %q, want 2026-10-21", ana.DateKey)
	}
	if ana.Key.String() != "ana-2026-10-21-10:00" {
		t.Errorf("key = %q", ana.Key.String())
	}
	if ana.Status != model.StatusScheduled || ana.ConfirmationStatus != model.ConfirmationPending {
		t.Errorf("status = %q/%q", ana.Status, ana.ConfirmationStatus)
	}

	if got[1].ClientID != "caio" || got[1].Time != "18:00" {
		t.Errorf("caio = %+v", got[1])
	}
}

func TestGenerateDeterministicKeys(t *testing.T) {
	clients := []model.Client{{ID: "ana", Weekdays: []string{"Mon"}, DefaultTime: "7h"}}
	mon := d(2026, 10, 19, 0)

	first := Generate(mon, clients)
	second := Generate(mon, clients)
	if len(first) != 1 || len(second) != 1 {
		t.Fatal("expected one appointment per run")
	}
	if first[0].Key != second[0].Key {
		t.Errorf("keys differ across runs: %v vs %v", first[0].Key, second[0].Key)
	}
}

func TestUpcoming(t *testing.T) {
	c := model.Client{
		ID:           "ana",
		Weekdays:     []string{"Mon", "Thu"},
		DefaultTime:  "10:00",
		WeekdayTimes: map[string]string{"Thu": "16:00"},
	}

	// Monday Oct 19 at noon through Monday Nov 2 at 23:00.
	from := d(2026, 10, 19, 12)
	to := d(2026, 11, 2, 23)
	got := Upcoming(c, from, to)

	want := []time.Time{
		d(2026, 10, 22, 16),
		d(2026, 10, 26, 10),
		d(2026, 10, 29, 16),
		d(2026, 11, 2, 10),
	}
	if len(got) != len(want) {
		t.Fatalf("got %d occurrences (%v), want %d", len(got), got, len(want))
	}
	for i := range want {
		if !got[i].Equal(want[i]) {
			t.Errorf("occ[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestUpcomingNoWeekdays(t *testing.T) {
	c := model.Client{ID: "ana", Weekdays: []string{"nope"}}
	if got := Upcoming(c, d(2026, 10, 19, 0), d(2026, 10, 30, 0)); got != nil {
		t.Errorf("expected nil, got %v", got)
	}
}
