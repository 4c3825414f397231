package scoring

import "TradePulse/internal/domain/models"

// Signal thresholds per strategy. Breakout demands more before acting.
var signalThresholds = map[models.Strategy][3]int{
	models.StrategyMomentum: {70, 50, 30},
	models.StrategyBreakout: {75, 55, 35},
}

// Classify maps a score to an action label. Deterministic, no side effects.
func Classify(score int, strategy models.Strategy) models.Signal {
	th, ok := signalThresholds[strategy]
	if !ok {
		th = signalThresholds[models.StrategyMomentum]
	}
	switch {
	case score >= th[0]:
		return models.SignalStrong
	case score >= th[1]:
		return models.SignalModerate
	case score >= th[2]:
		return models.SignalWeak
	default:
		return models.SignalAvoid
	}
}
