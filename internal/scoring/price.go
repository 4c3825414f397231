package scoring

import (
	"fmt"

	"TradePulse/internal/domain/models"
)

// Price movement component bounds.
const (
	priceMin = -15.0
	priceMax = 35.0
)

// priceComponent scores percent change with diminishing-returns tiers.
// Momentum rewards any positive move modestly; Breakout requires larger
// moves and penalizes any decline.
func priceComponent(changePercent float64, strategy models.Strategy) models.Component {
	var pts float64
	switch strategy {
	case models.StrategyBreakout:
		pts = breakoutPricePoints(changePercent)
	default:
		pts = momentumPricePoints(changePercent)
	}
	pts = clamp(pts, priceMin, priceMax)
	return models.Component{
		Points: pts,
		Note:   fmt.Sprintf("change %+.2f%% -> %+.1f", changePercent, pts),
	}
}

func momentumPricePoints(cp float64) float64 {
	switch {
	case cp <= -5:
		return -15
	case cp <= -2:
		return -8
	case cp < 0:
		return -3
	case cp == 0:
		return 0
	case cp < 1:
		return 4
	case cp < 3:
		return 10
	case cp < 5:
		return 18
	case cp < 10:
		return 26
	case cp < 20:
		return 32
	default:
		return 35
	}
}

func breakoutPricePoints(cp float64) float64 {
	switch {
	case cp <= -5:
		return -15
	case cp < 0:
		return -6
	case cp < 2:
		return 0
	case cp < 4:
		return 8
	case cp < 7:
		return 16
	case cp < 12:
		return 26
	case cp < 20:
		return 32
	default:
		return 35
	}
}
