package override

import (
	"fmt"
	"strings"
	"time"

	"github.com/dukerupert/clientbook/internal/clock"
	"github.com/dukerupert/clientbook/internal/model"
)

// Priority ranks competing writes for the same identity. Higher wins.
type Priority int

const (
	PriorityReschedule  Priority = 1
	PriorityEdit        Priority = 2
	PriorityDestructive Priority = 3
)

func (p Priority) String() string {
	switch p {
	case PriorityReschedule:
		return "reschedule"
	case PriorityEdit:
		return "edit"
	case PriorityDestructive:
		return "destructive"
	}
	return fmt.Sprintf("Priority(%d)", int(p))
}

// PriorityOf classifies a write: skip/cancel/remove are destructive, a
// rescheduled status ranks lowest, anything else is an edit.
func PriorityOf(w model.OverrideWrite) Priority {
	switch {
	case w.Action.Destructive():
		return PriorityDestructive
	case w.Status == model.StatusRescheduled:
		return PriorityReschedule
	default:
		return PriorityEdit
	}
}

// Compare orders two writes for the same identity and returns +1 when a
// should win over b, -1 when b should win, and 0 only when they are
// indistinguishable. Rules apply in order, each deciding when it can:
//
//  1. a confirmed write beats a pending one
//  2. higher priority
//  3. later updatedAt (millisecond precision)
//  4. later startAt (millisecond precision)
//  5. content fingerprint, so no two distinct writes tie
func Compare(a, b model.OverrideWrite) int {
	if a.HasPendingWrites != b.HasPendingWrites {
		if !a.HasPendingWrites {
			return 1
		}
		return -1
	}
	if c := cmpInt64(int64(PriorityOf(a)), int64(PriorityOf(b))); c != 0 {
		return c
	}
	if c := cmpInt64(a.UpdatedAt.UnixMilli(), b.UpdatedAt.UnixMilli()); c != 0 {
		return c
	}
	if c := cmpInt64(startMillis(a), startMillis(b)); c != 0 {
		return c
	}
	return strings.Compare(fingerprint(a), fingerprint(b))
}

// Supersedes reports whether candidate replaces current.
func Supersedes(candidate, current model.OverrideWrite) bool {
	return Compare(candidate, current) > 0
}

func startMillis(w model.OverrideWrite) int64 {
	if !w.StartAt.IsZero() {
		return w.StartAt.UnixMilli()
	}
	k, ok := TargetKey(w)
	if !ok {
		return 0
	}
	if at, ok := clock.At(k.DateKey, k.Time); ok {
		return at.UnixMilli()
	}
	return 0
}

func cmpInt64(a, b int64) int {
	switch {
	case a > b:
		return 1
	case a < b:
		return -1
	}
	return 0
}

func fingerprint(w model.OverrideWrite) string {
	parts := []string{
		w.ID, w.Key, w.DateKey, w.ClientID, string(w.Action),
		optString(w.Name), optString(w.Time), optString(w.Location), optString(w.Note),
		string(w.Status), optTime(w.StatusUpdatedAt), w.RescheduledTo,
		string(w.ConfirmationStatus), optTime(w.ConfirmationSentAt),
		fmt.Sprint(w.UpdatedAt.UnixNano()), fmt.Sprint(w.StartAt.UnixNano()),
		fmt.Sprint(w.Seq),
	}
	return strings.Join(parts, "\x1f")
}

func optString(s *string) string {
	if s == nil {
		return "\x00"
	}
	return "=" + *s
}

func optTime(t *time.Time) string {
	if t == nil {
		return "\x00"
	}
	return fmt.Sprint(t.UnixNano())
}
