// Package session classifies instants into US equity market phases.
package session

import (
	"time"

	"TradePulse/internal/domain/models"
	"TradePulse/pkg/util"
)

// Boundaries in minutes since exchange-local midnight.
const (
	premarketStart  = 4 * 60    // 04:00
	regularStart    = 9*60 + 30 // 09:30
	afterHoursStart = 16 * 60   // 16:00
	afterHoursEnd   = 20 * 60   // 20:00
)

// Classify maps the given instant to a market session. Pure and total:
// every instant yields exactly one session, weekends are always Closed.
func Classify(at time.Time) models.MarketSession {
	et := util.ExchangeTime(at)

	switch et.Weekday() {
	case time.Saturday, time.Sunday:
		return models.SessionClosed
	}

	minutes := et.Hour()*60 + et.Minute()
	switch {
	case minutes >= premarketStart && minutes < regularStart:
		return models.SessionPremarket
	case minutes >= regularStart && minutes < afterHoursStart:
		return models.SessionRegular
	case minutes >= afterHoursStart && minutes < afterHoursEnd:
		return models.SessionAfterHours
	default:
		return models.SessionClosed
	}
}

// Now classifies the current instant.
func Now() models.MarketSession {
	return Classify(time.Now())
}
