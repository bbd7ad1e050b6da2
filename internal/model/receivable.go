package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// ChargeEvent records one contact made to collect a receivable.
type ChargeEvent struct {
	At      time.Time `json:"at"`
	Channel string    `json:"channel"`
}

type Receivable struct {
	ID            string          `json:"id"`
	ClientID      string          `json:"client_id"`
	Amount        decimal.Decimal `json:"amount"`
	DueDate       string          `json:"due_date"`
	Paid          bool            `json:"paid"`
	PaidAt        *time.Time      `json:"paid_at,omitempty"`
	ChargeHistory []ChargeEvent   `json:"charge_history"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// RiskLevel is a coarse tier. The zero value means the item was not scored
// and ranks below LOW.
type RiskLevel string

const (
	RiskLow    RiskLevel = "LOW"
	RiskMedium RiskLevel = "MEDIUM"
	RiskHigh   RiskLevel = "HIGH"
)

// Rank orders tiers: HIGH=3, MEDIUM=2, LOW=1, unscored=0.
func (l RiskLevel) Rank() int {
	switch l {
	case RiskHigh:
		return 3
	case RiskMedium:
		return 2
	case RiskLow:
		return 1
	}
	return 0
}
