package scoring

import (
	"strings"

	"TradePulse/internal/domain/models"
)

// Technical strength component bounds.
const (
	technicalMin = -11.0
	technicalMax = 23.0
)

// technicalComponent scores moving-average alignment and momentum
// confirmation. Trading below the 200-day average is the single harshest
// penalty; a perfect 20>50>200 stack above price earns a bonus. MACD
// confirms momentum when present, with RSI as the fallback confirmation.
// Every indicator is optional and contributes nothing when absent.
func technicalComponent(price float64, tc *models.TechnicalContext) models.Component {
	if tc == nil {
		return models.Component{Points: 0, Note: "technicals unavailable — component neutral"}
	}

	var pts float64
	var notes []string

	if tc.SMA200 != nil {
		if price > *tc.SMA200 {
			pts += 6
			notes = append(notes, "above SMA200")
		} else {
			pts -= 8
			notes = append(notes, "below SMA200 (against long-term trend)")
		}
	}
	if tc.SMA50 != nil {
		if price > *tc.SMA50 {
			pts += 4
			notes = append(notes, "above SMA50")
		} else {
			pts -= 2
			notes = append(notes, "below SMA50")
		}
	}
	if tc.SMA20 != nil {
		if price > *tc.SMA20 {
			pts += 3
			notes = append(notes, "above SMA20")
		} else {
			pts -= 1
			notes = append(notes, "below SMA20")
		}
	}

	if perfectStack(price, tc) {
		pts += 4
		notes = append(notes, "perfect 20>50>200 stack")
	}

	pts += momentumConfirmation(tc, &notes)

	pts = clamp(pts, technicalMin, technicalMax)
	if len(notes) == 0 {
		notes = append(notes, "no indicators present")
	}
	return models.Component{Points: pts, Note: strings.Join(notes, ", ")}
}

// perfectStack reports price above all three averages with 20>50>200.
func perfectStack(price float64, tc *models.TechnicalContext) bool {
	if tc.SMA20 == nil || tc.SMA50 == nil || tc.SMA200 == nil {
		return false
	}
	return price > *tc.SMA20 && *tc.SMA20 > *tc.SMA50 && *tc.SMA50 > *tc.SMA200
}

// momentumConfirmation prefers MACD; falls back to RSI when MACD is absent.
// Contributes only non-negative points; weakness is already priced into the
// moving-average terms.
func momentumConfirmation(tc *models.TechnicalContext, notes *[]string) float64 {
	if tc.MACD != nil && tc.MACDSignal != nil {
		bullish := *tc.MACD > *tc.MACDSignal
		if tc.MACDHist != nil {
			bullish = bullish && *tc.MACDHist > 0
		}
		if bullish {
			*notes = append(*notes, "MACD bullish")
			return 6
		}
		*notes = append(*notes, "MACD not confirming")
		return 0
	}
	if tc.RSI14 != nil {
		switch rsi := *tc.RSI14; {
		case rsi >= 50 && rsi < 70:
			*notes = append(*notes, "RSI momentum")
			return 4
		case rsi >= 40 && rsi < 50:
			*notes = append(*notes, "RSI neutral")
			return 2
		default:
			return 0
		}
	}
	return 0
}
