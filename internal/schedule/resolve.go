// Package schedule merges baseline appointments with canonical overrides to
// produce the final appointment list for a date.
package schedule

import (
	"sort"
	"strings"
	"time"

	"github.com/dukerupert/clientbook/internal/clock"
	"github.com/dukerupert/clientbook/internal/model"
	"github.com/dukerupert/clientbook/internal/override"
	"github.com/dukerupert/clientbook/internal/recurrence"
)

// day holds the working slots for one date. Each client owns at most one
// slot at a time.
type day struct {
	dateKey  string
	slots    map[model.AppointmentKey]model.Appointment
	byClient map[string]model.AppointmentKey
}

func (d *day) put(a model.Appointment) {
	if old, ok := d.byClient[a.ClientID]; ok {
		delete(d.slots, old)
	}
	d.slots[a.Key] = a
	d.byClient[a.ClientID] = a.Key
}

func (d *day) drop(clientID string) {
	if k, ok := d.byClient[clientID]; ok {
		delete(d.slots, k)
		delete(d.byClient, clientID)
	}
}

// Resolve returns the appointments for date: the recurrence baseline with
// the canonical overrides for that date applied, sorted by time of day then
// name. The result never holds two appointments for the same client.
func Resolve(date time.Time, clients []model.Client, canonical override.Canonical) []model.Appointment {
	d := &day{
		dateKey:  clock.DateKey(date),
		slots:    make(map[model.AppointmentKey]model.Appointment),
		byClient: make(map[string]model.AppointmentKey),
	}

	for _, a := range recurrence.Generate(date, clients) {
		if _, dup := d.byClient[a.ClientID]; dup {
			continue
		}
		d.put(a)
	}

	entries, removed := canonical.ForDate(d.dateKey)
	for clientID := range removed {
		d.drop(clientID)
	}

	clientIDs := make([]string, 0, len(entries))
	for id := range entries {
		clientIDs = append(clientIDs, id)
	}
	sort.Strings(clientIDs)

	defs := make(map[string]model.Client, len(clients))
	for _, c := range clients {
		if _, ok := defs[c.ID]; !ok {
			defs[c.ID] = c
		}
	}

	for _, id := range clientIDs {
		d.apply(entries[id], defs[id])
	}

	out := make([]model.Appointment, 0, len(d.slots))
	for _, a := range d.slots {
		out = append(out, a)
	}
	Sort(out)
	return out
}

// ResolveKey is Resolve for a date key. An unparseable key yields nil.
func ResolveKey(dateKey string, clients []model.Client, canonical override.Canonical) []model.Appointment {
	date, err := clock.ParseDateKey(dateKey)
	if err != nil {
		return nil
	}
	return Resolve(date, clients, canonical)
}

func (d *day) apply(w model.OverrideWrite, def model.Client) {
	if w.ClientID == "" {
		return
	}
	target, hasTarget := override.TargetKey(w)

	var (
		a          model.Appointment
		scheduling bool
	)
	existingKey, hasExisting := d.byClient[w.ClientID]
	_, exact := d.slots[target]
	exact = exact && hasTarget

	switch {
	case w.Action == model.ActionAdd:
		a = d.fresh(w, def, existingKey, hasExisting)
		scheduling = true
	case exact:
		a = d.slots[target]
		scheduling = true
	case hasExisting:
		a = d.slots[existingKey]
	case w.Action == model.ActionReschedule && w.Time != nil:
		// A reschedule onto a day the client is not normally seen creates
		// the slot.
		a = d.fresh(w, def, existingKey, false)
		scheduling = true
	default:
		return
	}

	if scheduling {
		if w.Name != nil {
			a.Name = *w.Name
		}
		if w.Time != nil && strings.TrimSpace(*w.Time) != "" {
			a.Time = clock.Normalize(*w.Time)
		}
		if w.Location != nil {
			a.Location = *w.Location
		}
	}

	if w.Note != nil {
		a.Note = *w.Note
	}
	if w.Status != "" {
		a.Status = w.Status
	}
	if w.StatusUpdatedAt != nil {
		a.StatusUpdatedAt = w.StatusUpdatedAt
	}
	if w.RescheduledTo != "" {
		a.RescheduledTo = w.RescheduledTo
	}
	if w.ConfirmationSentAt != nil {
		a.ConfirmationSentAt = w.ConfirmationSentAt
	}
	a.ConfirmationStatus = confirmationStatus(w.ConfirmationStatus, a.ConfirmationSentAt)
	if !w.UpdatedAt.IsZero() {
		updated := w.UpdatedAt
		a.UpdatedAt = &updated
	}

	a.Key = override.SlotKey(w.ClientID, d.dateKey, a.Time)
	a.Time = a.Key.Time
	d.put(a)
}

// fresh starts a new slot for an add, seeded from the client's current slot
// or definition.
func (d *day) fresh(w model.OverrideWrite, def model.Client, existingKey model.AppointmentKey, hasExisting bool) model.Appointment {
	if hasExisting {
		a := d.slots[existingKey]
		a.Note = ""
		a.StatusUpdatedAt = nil
		a.RescheduledTo = ""
		a.ConfirmationSentAt = nil
		a.Status = model.StatusScheduled
		a.ConfirmationStatus = model.ConfirmationPending
		return a
	}
	t := clock.Midnight
	if w.Time != nil && strings.TrimSpace(*w.Time) != "" {
		t = clock.Normalize(*w.Time)
	}
	return model.Appointment{
		ClientID:           w.ClientID,
		DateKey:            d.dateKey,
		Name:               def.Name,
		Location:           def.Location,
		Time:               t,
		Status:             model.StatusScheduled,
		ConfirmationStatus: model.ConfirmationPending,
	}
}

// confirmationStatus picks the explicit status, else sent when a send time is
// known, else pending.
func confirmationStatus(explicit model.ConfirmationStatus, sentAt *time.Time) model.ConfirmationStatus {
	switch {
	case explicit != "":
		return explicit
	case sentAt != nil:
		return model.ConfirmationSent
	default:
		return model.ConfirmationPending
	}
}

// Sort orders appointments by time of day, then name, then client id.
// Unparseable times sort last.
func Sort(as []model.Appointment) {
	sort.SliceStable(as, func(i, j int) bool {
		mi, oki := clock.Minutes(as[i].Time)
		mj, okj := clock.Minutes(as[j].Time)
		if oki != okj {
			return oki
		}
		if oki && mi != mj {
			return mi < mj
		}
		if as[i].Name != as[j].Name {
			return as[i].Name < as[j].Name
		}
		return as[i].ClientID < as[j].ClientID
	})
}
