package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type TaskType string

const (
	TaskOverdueCharge      TaskType = "OVERDUE_CHARGE"
	TaskTodayCharge        TaskType = "TODAY_CHARGE"
	TaskConfirmAppointment TaskType = "CONFIRM_APPOINTMENT"
	TaskTodayAppointment   TaskType = "TODAY_APPOINTMENT"
	TaskDone               TaskType = "DONE"
)

// Task is one actionable item on the daily queue. Tasks are recomputed on
// demand and never persisted.
type Task struct {
	ID             string           `json:"id"`
	Type           TaskType         `json:"type"`
	Title          string           `json:"title"`
	Subtitle       string           `json:"subtitle,omitempty"`
	ActionLabel    string           `json:"action_label,omitempty"`
	Date           time.Time        `json:"date"`
	Amount         *decimal.Decimal `json:"amount,omitempty"`
	RiskLevel      RiskLevel        `json:"risk_level,omitempty"`
	ReceivableID   string           `json:"receivable_id,omitempty"`
	AppointmentKey string           `json:"appointment_key,omitempty"`
}
