package recurrence

import (
	"strings"
	"time"
)

var dayNames = map[string]time.Weekday{
	"sun":       time.Sunday,
	"sunday":    time.Sunday,
	"mon":       time.Monday,
	"monday":    time.Monday,
	"tue":       time.Tuesday,
	"tues":      time.Tuesday,
	"tuesday":   time.Tuesday,
	"wed":       time.Wednesday,
	"wednesday": time.Wednesday,
	"thu":       time.Thursday,
	"thur":      time.Thursday,
	"thurs":     time.Thursday,
	"thursday":  time.Thursday,
	"fri":       time.Friday,
	"friday":    time.Friday,
	"sat":       time.Saturday,
	"saturday":  time.Saturday,

	// Labels written by older clients.
	"dom": time.Sunday,
	"seg": time.Monday,
	"ter": time.Tuesday,
	"qua": time.Wednesday,
	"qui": time.Thursday,
	"sex": time.Friday,
	"sab": time.Saturday,
	"sáb": time.Saturday,
}

var dayLabels = map[time.Weekday]string{
	time.Sunday:    "Sun",
	time.Monday:    "Mon",
	time.Tuesday:   "Tue",
	time.Wednesday: "Wed",
	time.Thursday:  "Thu",
	time.Friday:    "Fri",
	time.Saturday:  "Sat",
}

// ParseWeekday resolves a weekday label case-insensitively.
func ParseWeekday(label string) (time.Weekday, bool) {
	wd, ok := dayNames[strings.ToLower(strings.TrimSpace(label))]
	return wd, ok
}

// Label returns the canonical short label ("Mon".."Sun") for a weekday.
func Label(wd time.Weekday) string {
	return dayLabels[wd]
}

// NormalizeWeekdays maps labels to canonical labels in Mon..Sun order,
// dropping unknown labels and duplicates.
func NormalizeWeekdays(labels []string) []string {
	seen := make(map[time.Weekday]bool)
	for _, l := range labels {
		if wd, ok := ParseWeekday(l); ok {
			seen[wd] = true
		}
	}

	var out []string
	for _, wd := range weekOrder {
		if seen[wd] {
			out = append(out, dayLabels[wd])
		}
	}
	return out
}

var weekOrder = []time.Weekday{
	time.Monday, time.Tuesday, time.Wednesday, time.Thursday,
	time.Friday, time.Saturday, time.Sunday,
}
