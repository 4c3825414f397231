package usecase

import (
	"context"
	"errors"
	"time"

	"TradePulse/internal/domain/models"
	drepo "TradePulse/internal/domain/repository"
	"TradePulse/pkg/cache"
	"TradePulse/pkg/logger"
	"TradePulse/pkg/util"
)

const (
	// rvolBasisDays is how far back the daily average looks.
	rvolBasisDays = 30
	// rvolIntradayDays is how far back the minute-bucket profile looks.
	rvolIntradayDays = 60
	// rvolVolumeCap discards absurd daily-volume points (split artifacts,
	// bad prints) from the average.
	rvolVolumeCap = 500_000_000
	// rvolDefaultAverage stands in when no usable history exists.
	rvolDefaultAverage = 5_000_000

	rvolCacheTTL = 6 * time.Hour
)

// RVOLConfig tunes the relative-volume engine.
type RVOLConfig struct {
	BasisDays    int
	IntradayDays int
	CacheTTL     time.Duration
}

func (c *RVOLConfig) setDefaults() {
	if c.BasisDays <= 0 {
		c.BasisDays = rvolBasisDays
	}
	if c.IntradayDays <= 0 {
		c.IntradayDays = rvolIntradayDays
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = rvolCacheTTL
	}
}

// RVOLEngine computes relative volume: today's volume against a trailing
// daily average, and the intraday variant against the average volume
// accumulated by this time of day.
type RVOLEngine struct {
	bars    drepo.BarSource
	cache   cache.Service
	metrics drepo.Metrics
	log     *logger.Logger
	cfg     RVOLConfig
	now     func() time.Time
}

// NewRVOLEngine builds the engine. cache may be nil; averages are then
// recomputed per call.
func NewRVOLEngine(bars drepo.BarSource, cacheSvc cache.Service, metrics drepo.Metrics, log *logger.Logger, cfg RVOLConfig) *RVOLEngine {
	cfg.setDefaults()
	return &RVOLEngine{
		bars:    bars,
		cache:   cacheSvc,
		metrics: metrics,
		log:     log,
		cfg:     cfg,
		now:     time.Now,
	}
}

// RelativeVolume compares currentVolume against the trailing daily average.
// A missing or empty history falls back to a fixed default average so the
// ratio stays meaningful, with a note saying so. A zero average maps to a
// ratio of exactly 0.
func (e *RVOLEngine) RelativeVolume(ctx context.Context, symbol string, currentVolume int64) models.RelativeVolumeResult {
	avg, basisDays, note := e.dailyAverage(ctx, symbol)

	res := models.RelativeVolumeResult{
		CurrentVolume: currentVolume,
		AverageVolume: avg,
		BasisDays:     basisDays,
		Note:          note,
	}
	if avg > 0 {
		res.RelativeVolume = float64(currentVolume) / avg
	}
	return res
}

// IntradayRelativeVolume compares currentVolume against the average volume
// accumulated by now's minute of day over the trailing profile window. This
// answers "is volume heavy for 10:30" rather than "heavy for a full day".
func (e *RVOLEngine) IntradayRelativeVolume(ctx context.Context, symbol string, currentVolume int64) models.RelativeVolumeResult {
	now := e.now()
	profile, err := e.minuteProfile(ctx, symbol)
	if err != nil {
		e.metrics.RecordError("rvol_profile")
		return models.RelativeVolumeResult{
			CurrentVolume: currentVolume,
			Note:          "intraday profile unavailable",
		}
	}

	cutoff := util.MinuteBucket(now)
	var expected float64
	for bucket, avg := range profile {
		if bucket <= cutoff {
			expected += avg
		}
	}

	res := models.RelativeVolumeResult{
		CurrentVolume: currentVolume,
		AverageVolume: expected,
		BasisDays:     e.cfg.IntradayDays,
	}
	if expected > 0 {
		res.RelativeVolume = float64(currentVolume) / expected
	}
	return res
}

// dailyAverage returns the mean of non-zero, capped daily volumes over the
// basis window. Results are cached per symbol.
func (e *RVOLEngine) dailyAverage(ctx context.Context, symbol string) (avg float64, basisDays int, note string) {
	key := cache.GenerateKey("rvol:daily", symbol)
	if e.cache != nil {
		var cached cachedAverage
		if err := e.cache.Get(ctx, key, &cached); err == nil {
			return cached.Average, cached.BasisDays, cached.Note
		} else if !errors.Is(err, cache.ErrCacheMiss) {
			e.log.Warn("rvol cache read failed",
				logger.String("symbol", symbol), logger.Error(err))
		}
	}

	avg, basisDays, note = e.computeDailyAverage(ctx, symbol)

	if e.cache != nil {
		entry := cachedAverage{Average: avg, BasisDays: basisDays, Note: note}
		if err := e.cache.Set(ctx, key, entry, e.cfg.CacheTTL); err != nil {
			e.log.Warn("rvol cache write failed",
				logger.String("symbol", symbol), logger.Error(err))
		}
	}
	return avg, basisDays, note
}

func (e *RVOLEngine) computeDailyAverage(ctx context.Context, symbol string) (float64, int, string) {
	now := e.now()
	start := now.AddDate(0, 0, -2*e.cfg.BasisDays) // pad for weekends/holidays
	bars, err := e.bars.FetchDailyBars(ctx, symbol, start, now)
	if err != nil {
		e.metrics.RecordError("rvol_daily")
		e.log.Warn("rvol daily history failed",
			logger.String("symbol", symbol), logger.Error(err))
		return rvolDefaultAverage, 0, "no volume history; using default average"
	}

	// Newest-first accumulation, skipping today's partial bar.
	var sum float64
	var n int
	for i := len(bars) - 1; i >= 0 && n < e.cfg.BasisDays; i-- {
		b := bars[i]
		if util.SameTradingDate(b.Time, now) {
			continue
		}
		if b.Volume <= 0 || b.Volume > rvolVolumeCap {
			continue
		}
		sum += float64(b.Volume)
		n++
	}
	if n == 0 {
		return rvolDefaultAverage, 0, "no volume history; using default average"
	}
	return sum / float64(n), n, ""
}

// minuteProfile builds HH:MM -> average volume over the profile window.
func (e *RVOLEngine) minuteProfile(ctx context.Context, symbol string) (map[string]float64, error) {
	key := cache.GenerateKeyWithParams("rvol:intraday", symbol, e.cfg.IntradayDays)
	if e.cache != nil {
		var cached map[string]float64
		if err := e.cache.Get(ctx, key, &cached); err == nil {
			return cached, nil
		}
	}

	now := e.now()
	start := now.AddDate(0, 0, -e.cfg.IntradayDays)
	bars, err := e.bars.FetchMinuteBars(ctx, symbol, start, now)
	if err != nil {
		return nil, err
	}

	sums := make(map[string]int64)
	days := make(map[string]map[string]struct{})
	for _, b := range bars {
		if util.SameTradingDate(b.Time, now) {
			continue
		}
		bucket := util.MinuteBucket(b.Time)
		sums[bucket] += b.Volume
		day := util.TradingDate(b.Time).Format("2006-01-02")
		if days[bucket] == nil {
			days[bucket] = make(map[string]struct{})
		}
		days[bucket][day] = struct{}{}
	}

	profile := make(map[string]float64, len(sums))
	for bucket, sum := range sums {
		if n := len(days[bucket]); n > 0 {
			profile[bucket] = float64(sum) / float64(n)
		}
	}

	if e.cache != nil && len(profile) > 0 {
		if err := e.cache.Set(ctx, key, profile, e.cfg.CacheTTL); err != nil {
			e.log.Warn("rvol cache write failed",
				logger.String("symbol", symbol), logger.Error(err))
		}
	}
	return profile, nil
}

type cachedAverage struct {
	Average   float64 `json:"average"`
	BasisDays int     `json:"basis_days"`
	Note      string  `json:"note,omitempty"`
}
