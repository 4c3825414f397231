package models

// MarketSession is one of the four mutually exclusive trading-session
// phases. Derived, never persisted; recomputed on every call.
type MarketSession string

const (
	SessionPremarket  MarketSession = "premarket"
	SessionRegular    MarketSession = "regular"
	SessionAfterHours MarketSession = "afterhours"
	SessionClosed     MarketSession = "closed"
)

// Active reports whether streaming data can be expected at all.
func (s MarketSession) Active() bool {
	return s == SessionPremarket || s == SessionRegular || s == SessionAfterHours
}
