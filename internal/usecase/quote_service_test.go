package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TradePulse/internal/domain/models"
)

type fakeIndicators struct {
	tc *models.TechnicalContext
}

func (fi *fakeIndicators) FetchTechnicals(context.Context, string) (*models.TechnicalContext, error) {
	return fi.tc, nil
}

func testQuoteService(r *Resolver, bars *fakeBars, tc *models.TechnicalContext) *QuoteService {
	tech := NewTechnicalsService(&fakeIndicators{tc: tc}, nil, nopMetrics{}, testLogger())
	rvol := NewRVOLEngine(bars, nil, nopMetrics{}, testLogger(), RVOLConfig{})
	rvol.now = func() time.Time { return testNow }
	return NewQuoteService(r, tech, rvol, nopMetrics{}, testLogger())
}

func TestScoreProducesBreakdownAndSignal(t *testing.T) {
	snaps := &fakeSnapshots{quotes: map[string]*models.Quote{
		"AAPL": snapshotQuote("AAPL", 189.50, 42_000_000),
	}}
	// No minute history, so the relative-volume ratio falls back to the
	// daily basis: 42M against a 42M average.
	bars := &fakeBars{daily: map[string][]models.Bar{
		"AAPL": {dailyBar(2, 40_000_000), dailyBar(1, 44_000_000)},
	}}
	r := testResolver(newFakeStream(), &fakeBars{}, snaps)
	svc := testQuoteService(r, bars, &models.TechnicalContext{})

	got := svc.Score(context.Background(), "AAPL", models.StrategyMomentum)
	require.Empty(t, got.Error)
	require.NotNil(t, got.Quote)
	require.NotNil(t, got.Breakdown)
	assert.Equal(t, "AAPL", got.Symbol)
	assert.NotEmpty(t, got.Signal)
	assert.GreaterOrEqual(t, got.Breakdown.Final, 0)
	assert.LessOrEqual(t, got.Breakdown.Final, 100)
	require.NotNil(t, got.RelativeVolume)
	assert.InDelta(t, 1.0, got.RelativeVolume.RelativeVolume, 1e-9)
}

func TestScoreUsesIntradayRelativeVolume(t *testing.T) {
	morning := func(daysAgo, hourUTC, min int, volume int64) models.Bar {
		day := testNow.AddDate(0, 0, -daysAgo)
		return models.Bar{
			Time:   time.Date(day.Year(), day.Month(), day.Day(), hourUTC, min, 0, 0, time.UTC),
			Close:  100,
			Volume: volume,
		}
	}
	snaps := &fakeSnapshots{quotes: map[string]*models.Quote{
		"AAPL": snapshotQuote("AAPL", 189.50, 8_000_000),
	}}
	// Intraday profile: avg(09:30 ET) = 2M, so 8M is 4x normal for this
	// minute of day. The daily average (16M) would call the same volume
	// a quiet 0.5x; the scorer must see the intraday measure.
	bars := &fakeBars{
		minute: map[string][]models.Bar{
			"AAPL": {
				morning(2, 13, 30, 1_000_000),
				morning(1, 13, 30, 3_000_000),
			},
		},
		daily: map[string][]models.Bar{
			"AAPL": {dailyBar(2, 14_000_000), dailyBar(1, 18_000_000)},
		},
	}
	r := testResolver(newFakeStream(), &fakeBars{}, snaps)
	svc := testQuoteService(r, bars, &models.TechnicalContext{})

	got := svc.Score(context.Background(), "AAPL", models.StrategyMomentum)
	require.Empty(t, got.Error)
	require.NotNil(t, got.RelativeVolume)
	assert.InDelta(t, 2_000_000, got.RelativeVolume.AverageVolume, 1e-6)
	assert.InDelta(t, 4.0, got.RelativeVolume.RelativeVolume, 1e-9)
}

func TestScoreResolutionFailureHasNoScore(t *testing.T) {
	r := testResolver(newFakeStream(), &fakeBars{}, &fakeSnapshots{})
	svc := testQuoteService(r, &fakeBars{}, &models.TechnicalContext{})

	got := svc.Score(context.Background(), "NOPE", models.StrategyMomentum)
	assert.NotEmpty(t, got.Error)
	assert.Nil(t, got.Quote)
	assert.Nil(t, got.Breakdown, "a missing quote must not surface as a scored zero")
	assert.Empty(t, got.Signal)
}

func TestScoreBatchMixesScoredAndFailedEntries(t *testing.T) {
	snaps := &fakeSnapshots{quotes: map[string]*models.Quote{
		"AAPL": snapshotQuote("AAPL", 189.50, 42_000_000),
	}}
	r := testResolver(newFakeStream(), &fakeBars{}, snaps)
	svc := testQuoteService(r, &fakeBars{}, &models.TechnicalContext{})

	got, err := svc.ScoreBatch(context.Background(), []string{"AAPL", "NOPE"}, models.StrategyBreakout)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.NotNil(t, got[0].Breakdown)
	assert.Nil(t, got[1].Breakdown)
	assert.NotEmpty(t, got[1].Error)
}

func TestGapPercent(t *testing.T) {
	gap, ok := gapPercent(&models.Quote{Open: 105, PreviousClose: 100})
	require.True(t, ok)
	assert.InDelta(t, 5.0, gap, 1e-9)

	_, ok = gapPercent(&models.Quote{Open: 105})
	assert.False(t, ok)
	_, ok = gapPercent(&models.Quote{PreviousClose: 100})
	assert.False(t, ok)
}
