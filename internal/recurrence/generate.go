// Package recurrence expands client weekly definitions into baseline
// appointments.
package recurrence

import (
	"sort"
	"strings"
	"time"

	"github.com/dukerupert/clientbook/internal/clock"
	"github.com/dukerupert/clientbook/internal/model"
)

// ScheduledOn reports whether the client's weekday set contains wd.
// Malformed labels are ignored.
func ScheduledOn(c model.Client, wd time.Weekday) bool {
	for _, l := range c.Weekdays {
		if d, ok := ParseWeekday(l); ok && d == wd {
			return true
		}
	}
	return false
}

// SlotTime returns the normalized time label for the client on wd: the
// per-weekday override, then the default time, then midnight.
func SlotTime(c model.Client, wd time.Weekday) string {
	keys := make([]string, 0, len(c.WeekdayTimes))
	for k := range c.WeekdayTimes {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if d, ok := ParseWeekday(k); ok && d == wd {
			if t := strings.TrimSpace(c.WeekdayTimes[k]); t != "" {
				return clock.Normalize(t)
			}
		}
	}
	if t := strings.TrimSpace(c.DefaultTime); t != "" {
		return clock.Normalize(t)
	}
	return clock.Midnight
}

// Generate returns the baseline appointments for date: one per client whose
// weekday set contains the date's weekday.
func Generate(date time.Time, clients []model.Client) []model.Appointment {
	dateKey := clock.DateKey(date)
	wd := date.Weekday()

	var out []model.Appointment
	for _, c := range clients {
		if c.ID == "" || !ScheduledOn(c, wd) {
			continue
		}
		t := SlotTime(c, wd)
		out = append(out, model.Appointment{
			Key:                model.AppointmentKey{ClientID: c.ID, DateKey: dateKey, Time: t},
			ClientID:           c.ID,
			DateKey:            dateKey,
			Name:               c.Name,
			Location:           c.Location,
			Time:               t,
			Status:             model.StatusScheduled,
			ConfirmationStatus: model.ConfirmationPending,
		})
	}
	return out
}
