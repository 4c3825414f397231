package scoring

import (
	"fmt"
	"math"
	"strings"

	"TradePulse/internal/domain/models"
)

// Risk assessment component bounds. The component only ever subtracts from
// the score; the premarket gap bonus can offset other risk penalties but
// cannot push the component above zero.
const (
	riskMin = -20.0
	riskMax = 0.0
)

// riskComponent scores price-range risk, gap risk, and extreme-RSI risk.
// The same gap magnitude is a bonus during premarket and a penalty during
// regular hours: premarket gaps are opportunity, regular-hours gaps risk
// mean reversion. Tier breakpoints are kept as hand-tuned in the source
// model (3/5/10/15/25).
func riskComponent(price float64, tc *models.TechnicalContext, gapPercent *float64, premarket bool) models.Component {
	var pts float64
	var notes []string

	switch {
	case price > 0 && price < 1:
		pts -= 8
		notes = append(notes, "sub-dollar price")
	case price >= 1 && price < 2:
		pts -= 5
		notes = append(notes, "penny-stock range")
	case price > 400:
		pts -= 4
		notes = append(notes, "very high price")
	}

	if gapPercent != nil {
		gap := gapPoints(math.Abs(*gapPercent))
		if gap != 0 {
			if premarket {
				pts += gap
				notes = append(notes, fmt.Sprintf("premarket gap %+.1f%% bonus", *gapPercent))
			} else {
				pts -= gap
				notes = append(notes, fmt.Sprintf("regular-hours gap %+.1f%% penalty", *gapPercent))
			}
		}
	}

	if tc != nil && tc.RSI14 != nil {
		switch rsi := *tc.RSI14; {
		case rsi >= 85:
			pts -= 6
			notes = append(notes, "RSI extremely overbought")
		case rsi >= 75:
			pts -= 3
			notes = append(notes, "RSI overbought")
		case rsi <= 20:
			pts -= 3
			notes = append(notes, "RSI washed out")
		}
	}

	pts = clamp(pts, riskMin, riskMax)
	if len(notes) == 0 {
		notes = append(notes, "no risk flags")
	}
	return models.Component{Points: pts, Note: strings.Join(notes, ", ")}
}

// gapPoints maps an absolute gap magnitude to tier points. The sign is
// applied by the caller depending on session.
func gapPoints(absGap float64) float64 {
	switch {
	case absGap >= 25:
		return 8
	case absGap >= 15:
		return 6
	case absGap >= 10:
		return 4
	case absGap >= 5:
		return 2
	case absGap >= 3:
		return 1
	default:
		return 0
	}
}
