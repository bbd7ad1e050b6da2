// Package clock parses the date keys and free-text time labels used by
// client schedules. All dates are local wall-clock dates.
package clock

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DateKeyLayout is the layout of a date key.
const DateKeyLayout = "2006-01-02"

// Midnight is the time label used when a slot has no usable time.
const Midnight = "00:00"

var labelPattern = regexp.MustCompile(`^(\d{1,2})(?:[:h.](\d{2})?)?(am|pm)?$`)

// DateKey formats t as a date key in t's location.
func DateKey(t time.Time) string {
	return t.Format(DateKeyLayout)
}

// ParseDateKey parses a date key as local midnight.
func ParseDateKey(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DateKeyLayout, strings.TrimSpace(s), time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date key %q: %w", s, err)
	}
	return t, nil
}

// StartOfDay truncates t to midnight in its own location.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// Minutes parses a time label into minutes since midnight. Accepted forms
// include "14:00", "14h30", "14h", "14", "9.15", "2pm" and "2:30 PM".
func Minutes(label string) (int, bool) {
	s := strings.ToLower(strings.Join(strings.Fields(label), ""))
	s = strings.ReplaceAll(s, "a.m.", "am")
	s = strings.ReplaceAll(s, "p.m.", "pm")

	m := labelPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}

	hour, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	minute := 0
	if m[2] != "" {
		minute, err = strconv.Atoi(m[2])
		if err != nil || minute > 59 {
			return 0, false
		}
	}

	switch m[3] {
	case "am", "pm":
		if hour < 1 || hour > 12 {
			return 0, false
		}
		if hour == 12 {
			hour = 0
		}
		if m[3] == "pm" {
			hour += 12
		}
	default:
		if hour > 23 {
			return 0, false
		}
	}

	return hour*60 + minute, true
}

// Normalize rewrites a parseable label as "HH:MM". Unparseable labels are
// returned trimmed but otherwise untouched.
func Normalize(label string) string {
	mins, ok := Minutes(label)
	if !ok {
		return strings.TrimSpace(label)
	}
	return fmt.Sprintf("%02d:%02d", mins/60, mins%60)
}

// At combines a date key and a time label into a local time. When the label
// does not parse, the result is midnight of the date and ok is false.
func At(dateKey, label string) (t time.Time, ok bool) {
	day, err := ParseDateKey(dateKey)
	if err != nil {
		return time.Time{}, false
	}
	mins, ok := Minutes(label)
	if !ok {
		return day, false
	}
	return time.Date(day.Year(), day.Month(), day.Day(), mins/60, mins%60, 0, 0, day.Location()), true
}
