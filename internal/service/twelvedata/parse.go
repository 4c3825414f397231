package twelvedata

import (
	"strconv"
	"time"

	"TradePulse/pkg/util"
)

// Upstream payloads name the same concept inconsistently across endpoints
// and plan tiers (numbers arrive as strings, prices under different keys).
// All of that tolerance lives here, behind ordered per-concept key lists,
// so nothing downstream ever touches a raw field name.

var (
	priceKeys     = []string{"close", "price", "last"}
	openKeys      = []string{"open"}
	highKeys      = []string{"high"}
	lowKeys       = []string{"low"}
	volumeKeys    = []string{"volume", "day_volume", "av"}
	prevCloseKeys = []string{"previous_close", "prev_close"}
	changeKeys    = []string{"change"}
	changePctKeys = []string{"percent_change", "change_percent"}
	timeKeys      = []string{"timestamp", "datetime", "last_quote_at"}
)

// pickFloat returns the first key present in m that parses as a number.
func pickFloat(m map[string]any, keys []string) (float64, bool) {
	for _, k := range keys {
		v, ok := m[k]
		if !ok || v == nil {
			continue
		}
		if f, ok := toFloat(v); ok {
			return f, true
		}
	}
	return 0, false
}

// pickFloatDefault is pickFloat with a fallback value.
func pickFloatDefault(m map[string]any, keys []string, def float64) float64 {
	if f, ok := pickFloat(m, keys); ok {
		return f
	}
	return def
}

// pickTime returns the first key that parses as an instant.
func pickTime(m map[string]any, keys []string) (time.Time, bool) {
	for _, k := range keys {
		v, ok := m[k]
		if !ok || v == nil {
			continue
		}
		switch t := v.(type) {
		case float64:
			if t > 0 {
				return time.Unix(int64(t), 0), true
			}
		case string:
			if parsed, ok := util.ParseTime(t); ok {
				return parsed, true
			}
		}
	}
	return time.Time{}, false
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int64:
		return float64(t), true
	case string:
		if t == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}
