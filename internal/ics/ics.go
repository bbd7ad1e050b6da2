// Package ics renders resolved appointments as an iCalendar feed.
package ics

import (
	"time"

	ical "github.com/arran4/golang-ical"

	"github.com/dukerupert/clientbook/internal/clock"
	"github.com/dukerupert/clientbook/internal/model"
)

const productID = "-//clientbook//schedule//EN"

// DefaultDuration is the length given to each appointment event.
const DefaultDuration = time.Hour

// Export builds a calendar with one event per appointment. Appointments
// whose time label does not parse become all-day events.
func Export(appts []model.Appointment, stamp time.Time, duration time.Duration) string {
	if duration <= 0 {
		duration = DefaultDuration
	}

	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)
	cal.SetName("Clientbook")

	for _, a := range appts {
		day, err := clock.ParseDateKey(a.DateKey)
		if err != nil {
			continue
		}

		ev := cal.AddEvent(a.Key.String() + "@clientbook")
		ev.SetDtStampTime(stamp.UTC())
		ev.SetSummary(a.Name)
		if a.Location != "" {
			ev.SetLocation(a.Location)
		}
		if a.Note != "" {
			ev.SetDescription(a.Note)
		}
		ev.SetStatus(eventStatus(a))

		if start, ok := clock.At(a.DateKey, a.Time); ok {
			ev.SetStartAt(start)
			ev.SetEndAt(start.Add(duration))
		} else {
			ev.SetAllDayStartAt(day)
			ev.SetAllDayEndAt(day.AddDate(0, 0, 1))
		}
	}

	return cal.Serialize()
}

func eventStatus(a model.Appointment) ical.ObjectStatus {
	switch {
	case a.ConfirmationStatus == model.ConfirmationCanceled:
		return ical.ObjectStatusCancelled
	case a.ConfirmationStatus == model.ConfirmationConfirmed, a.Status == model.StatusDone:
		return ical.ObjectStatusConfirmed
	}
	return ical.ObjectStatusTentative
}
