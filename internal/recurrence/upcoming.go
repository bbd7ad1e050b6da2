package recurrence

import (
	"time"

	"github.com/teambition/rrule-go"

	"github.com/dukerupert/clientbook/internal/clock"
	"github.com/dukerupert/clientbook/internal/model"
)

var rruleDays = map[time.Weekday]rrule.Weekday{
	time.Sunday:    rrule.SU,
	time.Monday:    rrule.MO,
	time.Tuesday:   rrule.TU,
	time.Wednesday: rrule.WE,
	time.Thursday:  rrule.TH,
	time.Friday:    rrule.FR,
	time.Saturday:  rrule.SA,
}

// Upcoming returns the start of every baseline visit for the client in
// [from, to], in chronological order. Slots whose time label does not parse
// start at midnight.
func Upcoming(c model.Client, from, to time.Time) []time.Time {
	var days []rrule.Weekday
	for _, l := range NormalizeWeekdays(c.Weekdays) {
		wd, _ := ParseWeekday(l)
		days = append(days, rruleDays[wd])
	}
	if len(days) == 0 || to.Before(from) {
		return nil
	}

	start := clock.StartOfDay(from)
	r, err := rrule.NewRRule(rrule.ROption{
		Freq:      rrule.WEEKLY,
		Byweekday: days,
		Dtstart:   start,
	})
	if err != nil {
		return nil
	}

	var out []time.Time
	for _, day := range r.Between(start, to, true) {
		at, _ := clock.At(clock.DateKey(day), SlotTime(c, day.Weekday()))
		if at.Before(from) || at.After(to) {
			continue
		}
		out = append(out, at)
	}
	return out
}
