// Package override reconciles the raw stream of per-date exception writes
// into one canonical override per client and date.
package override

import (
	"github.com/dukerupert/clientbook/internal/model"
)

// Canonical is the conflict-resolved override state. Entries holds the
// winning non-destructive write per date and client; Removed marks the
// date/client slots whose winning write was destructive. Both are keyed
// dateKey -> clientID.
type Canonical struct {
	Entries map[string]map[string]model.OverrideWrite
	Removed map[string]map[string]bool
}

// ForDate returns the winning writes and removed clients for one date. The
// returned maps must not be modified.
func (c Canonical) ForDate(dateKey string) (map[string]model.OverrideWrite, map[string]bool) {
	return c.Entries[dateKey], c.Removed[dateKey]
}

// Len returns the number of identities with a surviving entry.
func (c Canonical) Len() int {
	n := 0
	for _, byClient := range c.Entries {
		n += len(byClient)
	}
	return n
}

// Reconcile picks one winner per identity from writes using Compare and
// returns the canonical state. It is a full recomputation: the result
// depends only on the set of writes, not on their order or repetition.
// Writes without a resolvable identity are ignored.
func Reconcile(writes []model.OverrideWrite) Canonical {
	winners := make(map[Identity]model.OverrideWrite)
	for _, w := range writes {
		id, ok := IdentityOf(w)
		if !ok {
			continue
		}
		w.DateKey, w.ClientID = id.DateKey, id.ClientID

		if cur, ok := winners[id]; ok && !Supersedes(w, cur) {
			continue
		}
		winners[id] = w
	}

	out := Canonical{
		Entries: make(map[string]map[string]model.OverrideWrite),
		Removed: make(map[string]map[string]bool),
	}
	for id, w := range winners {
		if w.Action.Destructive() {
			if out.Removed[id.DateKey] == nil {
				out.Removed[id.DateKey] = make(map[string]bool)
			}
			out.Removed[id.DateKey][id.ClientID] = true
			continue
		}
		if out.Entries[id.DateKey] == nil {
			out.Entries[id.DateKey] = make(map[string]model.OverrideWrite)
		}
		out.Entries[id.DateKey][id.ClientID] = w
	}
	return out
}
