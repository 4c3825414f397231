// Package scoring turns a resolved quote plus optional technical and volume
// context into a bounded, explainable momentum score. Every component is an
// independent pure function returning points and the note that justifies
// them, so the composite stays auditable dimension by dimension.
package scoring

import (
	"math"

	"TradePulse/internal/domain/models"
)

// Score combines price action, volume confirmation, technical context, and
// risk penalties into a single 0–100 score for the given strategy profile.
// Each component is capped independently so one noisy input cannot saturate
// the whole score.
func Score(q *models.Quote, tc *models.TechnicalContext, strategy models.Strategy, enh *models.Enhancement) models.ScoreBreakdown {
	if enh == nil {
		enh = &models.Enhancement{}
	}

	price := priceComponent(q.ChangePercent, strategy)
	volume := volumeComponent(enh.RelativeVolume)
	technical := technicalComponent(q.Close, tc)
	risk := riskComponent(q.Close, tc, enh.GapPercent, enh.Premarket)

	mult := strategyMultiplier(strategy, technical.Points, volume.Points)

	sum := price.Points + volume.Points + technical.Points + risk.Points
	final := int(math.Round(clamp(sum*mult, 0, 100)))

	return models.ScoreBreakdown{
		Symbol:     q.Symbol,
		Strategy:   strategy,
		Price:      price,
		Volume:     volume,
		Technical:  technical,
		Risk:       risk,
		Multiplier: mult,
		Final:      final,
	}
}

// strategyMultiplier grants a contiguous bonus only when technical strength
// and volume jointly clear high thresholds, so no single dominant factor is
// rewarded twice.
func strategyMultiplier(strategy models.Strategy, technical, volume float64) float64 {
	techHigh, volHigh := 15.0, 14.0
	techMid, volMid := 10.0, 8.0
	if strategy == models.StrategyBreakout {
		techHigh, techMid = 17, 12
	}
	switch {
	case technical >= techHigh && volume >= volHigh:
		return 1.4
	case technical >= techMid && volume >= volMid:
		return 1.2
	default:
		return 1.0
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
