package risk

import (
	"sort"
	"time"

	"github.com/dukerupert/clientbook/internal/model"
)

// Ranked is a receivable annotated with its client's risk tier.
type Ranked struct {
	model.Receivable
	ClientName string          `json:"client_name"`
	RiskLevel  model.RiskLevel `json:"risk_level"`
}

// SortReceivables ranks items highest risk first, then by due date, then by
// client name. Each client is scored once over its records in history;
// names maps client ids to display names.
func (s Scorer) SortReceivables(items, history []model.Receivable, names map[string]string, today time.Time) []Ranked {
	levels := s.ByClient(history, today)

	out := make([]Ranked, len(items))
	for i, r := range items {
		out[i] = Ranked{Receivable: r, ClientName: names[r.ClientID], RiskLevel: levels[r.ClientID]}
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if ra, rb := a.RiskLevel.Rank(), b.RiskLevel.Rank(); ra != rb {
			return ra > rb
		}
		if a.DueDate != b.DueDate {
			return a.DueDate < b.DueDate
		}
		return a.ClientName < b.ClientName
	})
	return out
}
