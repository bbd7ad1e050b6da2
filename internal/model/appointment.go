package model

import "time"

type AppointmentStatus string

const (
	StatusScheduled   AppointmentStatus = "scheduled"
	StatusDone        AppointmentStatus = "done"
	StatusRescheduled AppointmentStatus = "rescheduled"
)

type ConfirmationStatus string

const (
	ConfirmationPending   ConfirmationStatus = "pending"
	ConfirmationSent      ConfirmationStatus = "sent"
	ConfirmationConfirmed ConfirmationStatus = "confirmed"
	ConfirmationCanceled  ConfirmationStatus = "canceled"
)

// AppointmentKey identifies one appointment slot. The same client, date and
// time always produce the same key.
type AppointmentKey struct {
	ClientID string
	DateKey  string
	Time     string
}

// String renders the key in the composite clientId-dateKey-time form.
func (k AppointmentKey) String() string {
	return k.ClientID + "-" + k.DateKey + "-" + k.Time
}

func (k AppointmentKey) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Appointment is a resolved, calendar-ready appointment. Appointments are
// derived from Client definitions and override writes and never stored.
type Appointment struct {
	Key                AppointmentKey     `json:"appointment_key"`
	ClientID           string             `json:"client_id"`
	DateKey            string             `json:"date_key"`
	Name               string             `json:"name"`
	Location           string             `json:"location"`
	Time               string             `json:"time"`
	Note               string             `json:"note,omitempty"`
	Status             AppointmentStatus  `json:"status"`
	StatusUpdatedAt    *time.Time         `json:"status_updated_at,omitempty"`
	RescheduledTo      string             `json:"rescheduled_to,omitempty"`
	ConfirmationStatus ConfirmationStatus `json:"confirmation_status"`
	ConfirmationSentAt *time.Time         `json:"confirmation_sent_at,omitempty"`
	UpdatedAt          *time.Time         `json:"updated_at,omitempty"`
}
