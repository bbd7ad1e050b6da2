package model

import "time"

type OverrideAction string

const (
	ActionAdd                OverrideAction = "add"
	ActionSkip               OverrideAction = "skip"
	ActionCancel             OverrideAction = "cancel"
	ActionRemove             OverrideAction = "remove"
	ActionReschedule         OverrideAction = "reschedule"
	ActionStatusUpdate       OverrideAction = "status-update"
	ActionConfirmationUpdate OverrideAction = "confirmation-update"
)

// Destructive reports whether the action takes the slot off the calendar.
func (a OverrideAction) Destructive() bool {
	switch a {
	case ActionSkip, ActionCancel, ActionRemove:
		return true
	}
	return false
}

// OverrideWrite is one raw exception document as delivered by the change
// feed. The same logical change may arrive several times, first as a local
// pending write and later as its confirmed echo.
type OverrideWrite struct {
	ID string `json:"id"`
	// Key is the composite key of the slot the write targets. Older documents
	// carry only this key and no explicit ClientID or DateKey.
	Key      string `json:"key,omitempty"`
	DateKey  string `json:"date_key,omitempty"`
	ClientID string `json:"client_id,omitempty"`

	Action   OverrideAction `json:"action,omitempty"`
	Name     *string        `json:"name,omitempty"`
	Time     *string        `json:"time,omitempty"`
	Location *string        `json:"location,omitempty"`
	Note     *string        `json:"note,omitempty"`

	Status             AppointmentStatus  `json:"status,omitempty"`
	StatusUpdatedAt    *time.Time         `json:"status_updated_at,omitempty"`
	RescheduledTo      string             `json:"rescheduled_to,omitempty"`
	ConfirmationStatus ConfirmationStatus `json:"confirmation_status,omitempty"`
	ConfirmationSentAt *time.Time         `json:"confirmation_sent_at,omitempty"`

	UpdatedAt        time.Time `json:"updated_at"`
	StartAt          time.Time `json:"start_at,omitempty"`
	HasPendingWrites bool      `json:"has_pending_writes"`

	// Seq is the store sequence number; zero for writes that were never persisted.
	Seq int64 `json:"seq,omitempty"`
}
