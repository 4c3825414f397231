package models

import "time"

// Tick is a single streamed price update for one symbol.
type Tick struct {
	Symbol    string
	Price     float64
	Volume    float64 // last-trade size or cumulative, provider dependent
	Timestamp int64   // unix milliseconds
}

// Bar is an aggregated OHLCV record for a fixed interval.
type Bar struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume int64
}

// Quote is the resolved per-symbol market snapshot handed to the scorer and
// the API layer. Value object, built fresh per request.
type Quote struct {
	Symbol        string   `json:"symbol"`
	Timestamp     int64    `json:"timestamp"` // unix seconds
	Open          float64  `json:"open"`
	High          float64  `json:"high"`
	Low           float64  `json:"low"`
	Close         float64  `json:"close"`
	Volume        int64    `json:"volume"`
	PreviousClose float64  `json:"previousClose"`
	Change        float64  `json:"change"`
	ChangePercent float64  `json:"changePercent"`
	Source        string   `json:"source"` // "stream" | "bars" | "snapshot"
	Stale         bool     `json:"stale"`
	Notes         []string `json:"notes,omitempty"`
}

// MaxClockSkew is the tolerance for provider timestamps ahead of wall time.
const MaxClockSkew = 5 * time.Minute

// Valid reports whether the quote carries a usable price and a sane timestamp.
func (q *Quote) Valid(now time.Time) bool {
	if q == nil || q.Symbol == "" || q.Close <= 0 {
		return false
	}
	if q.Timestamp > now.Add(MaxClockSkew).Unix() {
		return false
	}
	return true
}

// Age returns the quote's age relative to now.
func (q *Quote) Age(now time.Time) time.Duration {
	return now.Sub(time.Unix(q.Timestamp, 0))
}

// AddNote appends a degraded-data explanation to the quote.
func (q *Quote) AddNote(note string) {
	q.Notes = append(q.Notes, note)
}

// RecomputeChange refreshes change/changePercent from a trusted previous
// close. A non-positive previous close leaves the prior values untouched
// rather than fabricating them.
func (q *Quote) RecomputeChange(previousClose float64) {
	if previousClose <= 0 || q.Close <= 0 {
		return
	}
	q.PreviousClose = previousClose
	q.Change = q.Close - previousClose
	q.ChangePercent = (q.Change / previousClose) * 100
}

// TechnicalContext carries externally sourced indicator values. Every field
// is optional; absence is a common, valid state.
type TechnicalContext struct {
	Symbol     string   `json:"symbol"`
	SMA20      *float64 `json:"sma20,omitempty"`
	SMA50      *float64 `json:"sma50,omitempty"`
	SMA200     *float64 `json:"sma200,omitempty"`
	RSI14      *float64 `json:"rsi14,omitempty"`
	MACD       *float64 `json:"macd,omitempty"`
	MACDSignal *float64 `json:"macdSignal,omitempty"`
	MACDHist   *float64 `json:"macdHist,omitempty"`
}

// RelativeVolumeResult is the RVOL engine output.
type RelativeVolumeResult struct {
	CurrentVolume  int64   `json:"currentVolume"`
	AverageVolume  float64 `json:"averageVolume"`
	BasisDays      int     `json:"basisDays"`
	RelativeVolume float64 `json:"relativeVolume"` // 0 when average is 0
	Note           string  `json:"note,omitempty"`
}
