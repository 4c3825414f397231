package scoring

import (
	"fmt"

	"TradePulse/internal/domain/models"
)

// Volume confirmation component bounds.
const (
	volumeMin = -3.0
	volumeMax = 25.0
)

// volumeComponent scores true intraday relative volume. Absent volume data
// yields a neutral zero: the component never rewards or punishes a guess.
func volumeComponent(relativeVolume *float64) models.Component {
	if relativeVolume == nil || *relativeVolume <= 0 {
		return models.Component{Points: 0, Note: "volume unavailable — component neutral"}
	}

	rvol := *relativeVolume
	var pts float64
	switch {
	case rvol < 0.3:
		pts = -3
	case rvol < 0.8:
		pts = -1
	case rvol < 1.5:
		pts = 2
	case rvol < 2.5:
		pts = 8
	case rvol < 4:
		pts = 14
	case rvol < 6:
		pts = 20
	default:
		pts = 25
	}
	pts = clamp(pts, volumeMin, volumeMax)
	return models.Component{
		Points: pts,
		Note:   fmt.Sprintf("rvol %.2fx -> %+.1f", rvol, pts),
	}
}
