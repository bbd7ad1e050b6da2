package risk

// Weights holds every constant of the scoring heuristic. A zero weight or
// threshold switches its term off. Config files are decoded over
// DefaultWeights, so they only need to name the weights they change.
type Weights struct {
	Risk  RiskWeights  `yaml:"risk"`
	Delay DelayWeights `yaml:"delay"`
}

// RiskWeights drive the historical risk tier.
type RiskWeights struct {
	OnTimePayment         float64 `yaml:"on_time_payment"`
	LatePayment           float64 `yaml:"late_payment"`
	LateDaysMajor         int     `yaml:"late_days_major"`
	LateDaysMajorScore    float64 `yaml:"late_days_major_score"`
	LateDaysMinor         int     `yaml:"late_days_minor"`
	LateDaysMinorScore    float64 `yaml:"late_days_minor_score"`
	OpenOverdue           float64 `yaml:"open_overdue"`
	OpenOverdueCap        int     `yaml:"open_overdue_cap"`
	ChargeFollowedPayment float64 `yaml:"charge_followed_payment"`
	ChargeContact         float64 `yaml:"charge_contact"`
	ChargeContactCap      float64 `yaml:"charge_contact_cap"`

	HighScore       float64 `yaml:"high_score"`
	HighOpenOverdue int     `yaml:"high_open_overdue"`
	// ChasedOverdueCharges escalates to HIGH any open overdue record that
	// has already been charged at least this many times.
	ChasedOverdueCharges int     `yaml:"chased_overdue_charges"`
	MediumScore          float64 `yaml:"medium_score"`
	MediumLatePayments   int     `yaml:"medium_late_payments"`
	MediumChargeFollowed int     `yaml:"medium_charge_followed"`
}

// DelayWeights drive the predicted-delay tier.
type DelayWeights struct {
	RunLength float64 `yaml:"run_length"`

	AvgDelayMinor      float64 `yaml:"avg_delay_minor"`
	AvgDelayMinorScore float64 `yaml:"avg_delay_minor_score"`
	AvgDelayMajor      float64 `yaml:"avg_delay_major"`
	AvgDelayMajorScore float64 `yaml:"avg_delay_major_score"`

	// Per late entry: 1 below SeverityMinorDays, 2 below SeverityMajorDays,
	// 3 otherwise.
	SeverityMinorDays int `yaml:"severity_minor_days"`
	SeverityMajorDays int `yaml:"severity_major_days"`

	ChargeContact    float64 `yaml:"charge_contact"`
	ChargeContactCap float64 `yaml:"charge_contact_cap"`

	HighRun      int     `yaml:"high_run"`
	HighAvgDelay float64 `yaml:"high_avg_delay"`
	HighScore    float64 `yaml:"high_score"`

	MediumRun      int     `yaml:"medium_run"`
	MediumAvgDelay float64 `yaml:"medium_avg_delay"`
	MediumCharges  int     `yaml:"medium_charges"`
	MediumScore    float64 `yaml:"medium_score"`
}

// DefaultWeights returns the stock heuristic.
func DefaultWeights() Weights {
	return Weights{
		Risk: RiskWeights{
			OnTimePayment:         -0.8,
			LatePayment:           2,
			LateDaysMajor:         14,
			LateDaysMajorScore:    2,
			LateDaysMinor:         5,
			LateDaysMinorScore:    1,
			OpenOverdue:           2,
			OpenOverdueCap:        3,
			ChargeFollowedPayment: 1.5,
			ChargeContact:         0.3,
			ChargeContactCap:      2,
			HighScore:             6,
			HighOpenOverdue:       2,
			ChasedOverdueCharges:  2,
			MediumScore:           3,
			MediumLatePayments:    1,
			MediumChargeFollowed:  2,
		},
		Delay: DelayWeights{
			RunLength:          1.4,
			AvgDelayMinor:      4,
			AvgDelayMinorScore: 1.5,
			AvgDelayMajor:      8,
			AvgDelayMajorScore: 3,
			SeverityMinorDays:  4,
			SeverityMajorDays:  8,
			ChargeContact:      0.5,
			ChargeContactCap:   3,
			HighRun:            3,
			HighAvgDelay:       8,
			HighScore:          10,
			MediumRun:          1,
			MediumAvgDelay:     2,
			MediumCharges:      2,
			MediumScore:        5,
		},
	}
}

// Normalize fills a wholly unset group from DefaultWeights and resets
// negative day thresholds, counts and caps. Explicit zeros are kept.
func (w *Weights) Normalize() {
	d := DefaultWeights()
	if w.Risk == (RiskWeights{}) {
		w.Risk = d.Risk
	}
	if w.Delay == (DelayWeights{}) {
		w.Delay = d.Delay
	}

	r, dr := &w.Risk, d.Risk
	nonNegI(&r.LateDaysMajor, dr.LateDaysMajor)
	nonNegI(&r.LateDaysMinor, dr.LateDaysMinor)
	nonNegI(&r.OpenOverdueCap, dr.OpenOverdueCap)
	nonNegF(&r.ChargeContactCap, dr.ChargeContactCap)
	nonNegI(&r.HighOpenOverdue, dr.HighOpenOverdue)
	nonNegI(&r.ChasedOverdueCharges, dr.ChasedOverdueCharges)
	nonNegI(&r.MediumLatePayments, dr.MediumLatePayments)
	nonNegI(&r.MediumChargeFollowed, dr.MediumChargeFollowed)

	l, dl := &w.Delay, d.Delay
	nonNegF(&l.AvgDelayMinor, dl.AvgDelayMinor)
	nonNegF(&l.AvgDelayMajor, dl.AvgDelayMajor)
	nonNegI(&l.SeverityMinorDays, dl.SeverityMinorDays)
	nonNegI(&l.SeverityMajorDays, dl.SeverityMajorDays)
	nonNegF(&l.ChargeContactCap, dl.ChargeContactCap)
	nonNegI(&l.HighRun, dl.HighRun)
	nonNegF(&l.HighAvgDelay, dl.HighAvgDelay)
	nonNegI(&l.MediumRun, dl.MediumRun)
	nonNegF(&l.MediumAvgDelay, dl.MediumAvgDelay)
	nonNegI(&l.MediumCharges, dl.MediumCharges)
}

func nonNegF(p *float64, def float64) {
	if *p < 0 {
		*p = def
	}
}

func nonNegI(p *int, def int) {
	if *p < 0 {
		*p = def
	}
}
