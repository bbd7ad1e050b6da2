package override

import (
	"regexp"
	"strings"

	"github.com/dukerupert/clientbook/internal/clock"
	"github.com/dukerupert/clientbook/internal/model"
)

// Identity is the canonical identity of an override: one client on one date.
type Identity struct {
	DateKey  string
	ClientID string
}

var compositeKeyPattern = regexp.MustCompile(`^(.+?)-(\d{4}-\d{2}-\d{2})(?:-(.*))?$`)

// ParseLegacyKey splits a composite slot key of the form clientId-dateKey-time or
// clientId-dateKey. When dateHint is set it is used to locate the date
// segment, which keeps client ids containing date-like text intact.
//
// This is a migration shim for documents written before overrides carried
// explicit client and date fields. Whether any stored documents still rely on
// the composite-only shape is unconfirmed; once none do, callers can stop
// passing Key and this function can go.
func ParseLegacyKey(key, dateHint string) (model.AppointmentKey, bool) {
	key = strings.TrimSpace(key)
	if key == "" {
		return model.AppointmentKey{}, false
	}

	if dateHint != "" {
		if i := strings.LastIndex(key, "-"+dateHint); i > 0 {
			rest := key[i+1+len(dateHint):]
			if rest == "" || strings.HasPrefix(rest, "-") {
				return newKey(key[:i], dateHint, strings.TrimPrefix(rest, "-")), true
			}
		}
	}

	m := compositeKeyPattern.FindStringSubmatch(key)
	if m == nil {
		return model.AppointmentKey{}, false
	}
	if _, err := clock.ParseDateKey(m[2]); err != nil {
		return model.AppointmentKey{}, false
	}
	return newKey(m[1], m[2], m[3]), true
}

// SlotKey builds the key for a client slot with a normalized time label.
func SlotKey(clientID, dateKey, timeLabel string) model.AppointmentKey {
	return newKey(clientID, dateKey, timeLabel)
}

func newKey(clientID, dateKey, timeLabel string) model.AppointmentKey {
	t := strings.TrimSpace(timeLabel)
	if t != "" {
		t = clock.Normalize(t)
	}
	return model.AppointmentKey{ClientID: clientID, DateKey: dateKey, Time: t}
}

// IdentityOf resolves the identity of a raw write from its explicit fields,
// falling back to its composite key. ok is false when either half is missing
// or the date does not parse.
func IdentityOf(w model.OverrideWrite) (Identity, bool) {
	id := Identity{
		DateKey:  strings.TrimSpace(w.DateKey),
		ClientID: strings.TrimSpace(w.ClientID),
	}

	if id.DateKey == "" || id.ClientID == "" {
		if k, ok := ParseLegacyKey(w.Key, id.DateKey); ok {
			if id.DateKey == "" {
				id.DateKey = k.DateKey
			}
			if id.ClientID == "" {
				id.ClientID = k.ClientID
			}
		}
	}

	if id.DateKey == "" || id.ClientID == "" {
		return Identity{}, false
	}
	if _, err := clock.ParseDateKey(id.DateKey); err != nil {
		return Identity{}, false
	}
	return id, true
}

// TargetKey returns the slot key a write refers to: its composite key when
// present, else one built from its identity and replacement time.
func TargetKey(w model.OverrideWrite) (model.AppointmentKey, bool) {
	id, ok := IdentityOf(w)
	if !ok {
		return model.AppointmentKey{}, false
	}
	if k, ok := ParseLegacyKey(w.Key, id.DateKey); ok && k.ClientID == id.ClientID && k.DateKey == id.DateKey && k.Time != "" {
		return k, true
	}
	if w.Time != nil && strings.TrimSpace(*w.Time) != "" {
		return SlotKey(id.ClientID, id.DateKey, *w.Time), true
	}
	return model.AppointmentKey{}, false
}
