package models

// Strategy is a named parameter set that changes scoring weights and signal
// thresholds without changing the algorithm shape.
type Strategy string

const (
	StrategyMomentum Strategy = "momentum"
	StrategyBreakout Strategy = "breakout"
)

// Valid reports whether s names a known strategy profile.
func (s Strategy) Valid() bool {
	return s == StrategyMomentum || s == StrategyBreakout
}

// Signal is the categorical action label derived from a score.
type Signal string

const (
	SignalStrong   Signal = "strong"
	SignalModerate Signal = "moderate"
	SignalWeak     Signal = "weak"
	SignalAvoid    Signal = "avoid"
)

// Component is one named scoring dimension: its points and the explanation
// that makes the score auditable.
type Component struct {
	Points float64 `json:"points"`
	Note   string  `json:"note"`
}

// ScoreBreakdown is the composite scorer output. Produced fresh per request,
// never mutated after construction.
type ScoreBreakdown struct {
	Symbol     string    `json:"symbol"`
	Strategy   Strategy  `json:"strategy"`
	Price      Component `json:"price"`
	Volume     Component `json:"volume"`
	Technical  Component `json:"technical"`
	Risk       Component `json:"risk"`
	Multiplier float64   `json:"multiplier"`
	Final      int       `json:"final"` // clamped to [0,100]
}

// Enhancement carries the optional scorer inputs that are resolved
// separately from the quote itself.
type Enhancement struct {
	RelativeVolume *float64 `json:"relativeVolume,omitempty"`
	GapPercent     *float64 `json:"gapPercent,omitempty"`
	Premarket      bool     `json:"premarket"`
}
