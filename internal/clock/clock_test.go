package clock

import (
	"testing"
	"time"
)

func TestMinutes(t *testing.T) {
	tests := []struct {
		label string
		want  int
		ok    bool
	}{
		{"14:00", 14 * 60, true},
		{"14h30", 14*60 + 30, true},
		{"14H30", 14*60 + 30, true},
		{"14h", 14 * 60, true},
		{"9", 9 * 60, true},
		{"9.15", 9*60 + 15, true},
		{" 08:05 ", 8*60 + 5, true},
		{"2pm", 14 * 60, true},
		{"2:30 PM", 14*60 + 30, true},
		{"12am", 0, true},
		{"12pm", 12 * 60, true},
		{"00:00", 0, true},
		{"24:00", 0, false},
		{"13pm", 0, false},
		{"10:75", 0, false},
		{"", 0, false},
		{"morning", 0, false},
	}

	for _, tt := range tests {
		got, ok := Minutes(tt.label)
		if ok != tt.ok {
			t.Errorf("Minutes(%q) ok = %v, want %v", tt.label, ok, tt.ok)
			continue
		}
		if ok && got != tt.want {
			t.Errorf("Minutes(%q) = %d, want %d", tt.label, got, tt.want)
		}
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		label string
		want  string
	}{
		{"14h30", "14:30"},
		{"9", "09:00"},
		{"2pm", "14:00"},
		{" after lunch ", "after lunch"},
	}

	for _, tt := range tests {
		if got := Normalize(tt.label); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.label, got, tt.want)
		}
	}
}

func TestParseDateKey(t *testing.T) {
	got, err := ParseDateKey("2026-10-21")
	if err != nil {
		t.Fatalf("ParseDateKey error: %v", err)
	}
	want := time.Date(2026, 10, 21, 0, 0, 0, 0, time.Local)
	if !got.Equal(want) {
		t.Errorf("ParseDateKey = %v, want %v", got, want)
	}

	if _, err := ParseDateKey("21/10/2026"); err == nil {
		t.Error("expected error for non-ISO date")
	}
}

func TestAt(t *testing.T) {
	got, ok := At("2026-10-21", "14h30")
	if !ok {
		t.Fatal("At should parse")
	}
	want := time.Date(2026, 10, 21, 14, 30, 0, 0, time.Local)
	if !got.Equal(want) {
		t.Errorf("At = %v, want %v", got, want)
	}

	day, ok := At("2026-10-21", "later")
	if ok {
		t.Error("At with bad label should report !ok")
	}
	if !day.Equal(time.Date(2026, 10, 21, 0, 0, 0, 0, time.Local)) {
		t.Errorf("At with bad label = %v, want midnight", day)
	}

	if _, ok := At("nope", "10:00"); ok {
		t.Error("At with bad date should report !ok")
	}
}
