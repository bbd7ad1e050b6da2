// Package risk turns a client's receivable history into a historical risk
// tier and a predicted-delay tier. Both are pure functions of the history
// and the current date.
package risk

import (
	"math"
	"sort"
	"time"

	"github.com/dukerupert/clientbook/internal/clock"
	"github.com/dukerupert/clientbook/internal/model"
)

// Signals are the facts extracted from a history that the scores are built
// from.
type Signals struct {
	OnTime         int     `json:"on_time"`
	Late           int     `json:"late"`
	LateDays       int     `json:"late_days"`
	OpenOverdue    int     `json:"open_overdue"`
	ChargeFollowed int     `json:"charge_followed"`
	Charges        int     `json:"charges"`
	LongestLateRun int     `json:"longest_late_run"`
	AvgDelay       float64 `json:"avg_delay"`
	// ChasedOverdue counts open overdue records charged at least
	// RiskWeights.ChasedOverdueCharges times.
	ChasedOverdue int `json:"chased_overdue"`

	severities []int
}

// Profile is the derived risk picture for one client.
type Profile struct {
	Risk           model.RiskLevel `json:"risk_level"`
	PredictedDelay model.RiskLevel `json:"predicted_delay_level"`
	RiskScore      float64         `json:"risk_score"`
	DelayScore     float64         `json:"delay_score"`
	Signals        Signals         `json:"signals"`
}

// Scorer applies a set of weights.
type Scorer struct {
	Weights Weights
}

// NewScorer returns a Scorer with w normalized.
func NewScorer(w Weights) Scorer {
	w.Normalize()
	return Scorer{Weights: w}
}

type entry struct {
	due      time.Time
	id       string
	late     bool
	onTime   bool
	daysLate int
}

// Extract computes the signals for history as of today. Records with an
// unparseable due date are ignored.
func (s Scorer) Extract(history []model.Receivable, today time.Time) Signals {
	today = clock.StartOfDay(today)
	var (
		sig     Signals
		entries []entry
	)

	for _, r := range history {
		due, err := clock.ParseDateKey(r.DueDate)
		if err != nil {
			continue
		}
		sig.Charges += len(r.ChargeHistory)

		e := entry{due: due, id: r.ID}
		switch {
		case r.Paid:
			if r.PaidAt != nil {
				e.daysLate = daysBetween(due, *r.PaidAt)
			}
			if e.daysLate > 0 {
				e.late = true
				sig.Late++
			} else {
				e.onTime = true
				sig.OnTime++
			}
			if chargedBefore(r) {
				sig.ChargeFollowed++
			}
		case due.Before(today):
			e.late = true
			e.daysLate = daysBetween(due, today)
			sig.OpenOverdue++
			if reached(len(r.ChargeHistory), s.Weights.Risk.ChasedOverdueCharges) {
				sig.ChasedOverdue++
			}
		default:
			continue
		}
		entries = append(entries, e)
	}

	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].due.Equal(entries[j].due) {
			return entries[i].due.Before(entries[j].due)
		}
		return entries[i].id < entries[j].id
	})

	run := 0
	for _, e := range entries {
		if e.onTime {
			run = 0
			continue
		}
		run++
		if run > sig.LongestLateRun {
			sig.LongestLateRun = run
		}
		sig.LateDays += e.daysLate
		sig.severities = append(sig.severities, e.daysLate)
	}
	if n := len(sig.severities); n > 0 {
		sig.AvgDelay = float64(sig.LateDays) / float64(n)
	}
	return sig
}

// chargedBefore reports whether a payment followed at least one charge.
func chargedBefore(r model.Receivable) bool {
	for _, c := range r.ChargeHistory {
		if r.PaidAt == nil || !c.At.After(*r.PaidAt) {
			return true
		}
	}
	return false
}

func daysBetween(from, to time.Time) int {
	from = clock.StartOfDay(from)
	to = clock.StartOfDay(to.In(from.Location()))
	return int(math.Round(to.Sub(from).Hours() / 24))
}

// reached reports whether n meets threshold. A zero threshold is off.
func reached(n, threshold int) bool {
	return threshold > 0 && n >= threshold
}

func reachedF(v, threshold float64) bool {
	return threshold > 0 && v >= threshold
}

// RiskScore returns the weighted historical risk score.
func (s Scorer) RiskScore(sig Signals) float64 {
	w := s.Weights.Risk
	score := float64(sig.OnTime)*w.OnTimePayment +
		float64(sig.Late)*w.LatePayment +
		float64(min(sig.OpenOverdue, w.OpenOverdueCap))*w.OpenOverdue +
		float64(sig.ChargeFollowed)*w.ChargeFollowedPayment +
		math.Min(float64(sig.Charges)*w.ChargeContact, w.ChargeContactCap)

	switch {
	case reached(sig.LateDays, w.LateDaysMajor):
		score += w.LateDaysMajorScore
	case reached(sig.LateDays, w.LateDaysMinor):
		score += w.LateDaysMinorScore
	}
	return score
}

// RiskLevel tiers the historical risk.
func (s Scorer) RiskLevel(sig Signals) model.RiskLevel {
	w := s.Weights.Risk
	score := s.RiskScore(sig)
	switch {
	case reached(sig.OpenOverdue, w.HighOpenOverdue), sig.ChasedOverdue > 0, reachedF(score, w.HighScore):
		return model.RiskHigh
	case reached(sig.Late, w.MediumLatePayments), reached(sig.ChargeFollowed, w.MediumChargeFollowed), reachedF(score, w.MediumScore):
		return model.RiskMedium
	}
	return model.RiskLow
}

// DelayScore returns the weighted predicted-delay score.
func (s Scorer) DelayScore(sig Signals) float64 {
	w := s.Weights.Delay
	score := float64(sig.LongestLateRun) * w.RunLength

	switch {
	case reachedF(sig.AvgDelay, w.AvgDelayMajor):
		score += w.AvgDelayMajorScore
	case reachedF(sig.AvgDelay, w.AvgDelayMinor):
		score += w.AvgDelayMinorScore
	}

	for _, days := range sig.severities {
		switch {
		case days < w.SeverityMinorDays:
			score++
		case days < w.SeverityMajorDays:
			score += 2
		default:
			score += 3
		}
	}

	return score + math.Min(float64(sig.Charges)*w.ChargeContact, w.ChargeContactCap)
}

// DelayLevel tiers the predicted delay.
func (s Scorer) DelayLevel(sig Signals) model.RiskLevel {
	w := s.Weights.Delay
	score := s.DelayScore(sig)
	switch {
	case reached(sig.LongestLateRun, w.HighRun), reachedF(sig.AvgDelay, w.HighAvgDelay), reachedF(score, w.HighScore):
		return model.RiskHigh
	case reached(sig.LongestLateRun, w.MediumRun), reachedF(sig.AvgDelay, w.MediumAvgDelay),
		reached(sig.Charges, w.MediumCharges), reachedF(score, w.MediumScore):
		return model.RiskMedium
	}
	return model.RiskLow
}

// Risk returns the historical risk tier of history. An empty history is LOW.
func (s Scorer) Risk(history []model.Receivable, today time.Time) model.RiskLevel {
	return s.RiskLevel(s.Extract(history, today))
}

// PredictedDelay returns the predicted-delay tier of history. An empty
// history is LOW.
func (s Scorer) PredictedDelay(history []model.Receivable, today time.Time) model.RiskLevel {
	return s.DelayLevel(s.Extract(history, today))
}

// Profile scores history on both tiers.
func (s Scorer) Profile(history []model.Receivable, today time.Time) Profile {
	sig := s.Extract(history, today)
	return Profile{
		Risk:           s.RiskLevel(sig),
		PredictedDelay: s.DelayLevel(sig),
		RiskScore:      s.RiskScore(sig),
		DelayScore:     s.DelayScore(sig),
		Signals:        sig,
	}
}

// ByClient groups history by client and returns each client's risk tier.
func (s Scorer) ByClient(history []model.Receivable, today time.Time) map[string]model.RiskLevel {
	groups := make(map[string][]model.Receivable)
	for _, r := range history {
		groups[r.ClientID] = append(groups[r.ClientID], r)
	}
	out := make(map[string]model.RiskLevel, len(groups))
	for id, rs := range groups {
		out[id] = s.Risk(rs, today)
	}
	return out
}
