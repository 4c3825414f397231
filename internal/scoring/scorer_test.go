package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TradePulse/internal/domain/models"
)

func f(v float64) *float64 { return &v }

func quote(price, changePercent float64) *models.Quote {
	return &models.Quote{
		Symbol:        "TEST",
		Close:         price,
		ChangePercent: changePercent,
	}
}

func bullishTechnicals(price float64) *models.TechnicalContext {
	// Stacked 20>50>200, all below price, MACD confirming.
	return &models.TechnicalContext{
		SMA20:      f(price * 0.95),
		SMA50:      f(price * 0.90),
		SMA200:     f(price * 0.80),
		MACD:       f(0.5),
		MACDSignal: f(0.2),
		MACDHist:   f(0.3),
	}
}

func TestScoreClampInvariant(t *testing.T) {
	// Extreme inputs in every direction still land in [0,100].
	cases := []struct {
		name string
		q    *models.Quote
		tc   *models.TechnicalContext
		enh  *models.Enhancement
	}{
		{"everything maximal", quote(50, 300), bullishTechnicals(50), &models.Enhancement{RelativeVolume: f(50), GapPercent: f(40), Premarket: true}},
		{"everything minimal", quote(0.50, -60), &models.TechnicalContext{SMA200: f(10), SMA50: f(10), SMA20: f(10), RSI14: f(95)}, &models.Enhancement{RelativeVolume: f(0.01), GapPercent: f(-40)}},
		{"no context at all", quote(10, 0), nil, nil},
	}
	for _, strategy := range []models.Strategy{models.StrategyMomentum, models.StrategyBreakout} {
		for _, c := range cases {
			bd := Score(c.q, c.tc, strategy, c.enh)
			assert.GreaterOrEqual(t, bd.Final, 0, "%s/%s", strategy, c.name)
			assert.LessOrEqual(t, bd.Final, 100, "%s/%s", strategy, c.name)
		}
	}
}

func TestComponentCaps(t *testing.T) {
	bd := Score(quote(50, 300), bullishTechnicals(50), models.StrategyMomentum,
		&models.Enhancement{RelativeVolume: f(50), GapPercent: f(40), Premarket: true})

	assert.LessOrEqual(t, bd.Price.Points, 35.0)
	assert.LessOrEqual(t, bd.Volume.Points, 25.0)
	assert.LessOrEqual(t, bd.Technical.Points, 23.0)
	assert.LessOrEqual(t, bd.Risk.Points, 0.0)
	assert.GreaterOrEqual(t, bd.Risk.Points, -20.0)
}

func TestPriceMonotonicityMomentum(t *testing.T) {
	// Holding all else fixed, increasing changePercent 0 -> 20 never
	// decreases the price component.
	prev := priceComponent(0, models.StrategyMomentum).Points
	for cp := 0.0; cp <= 20.0; cp += 0.25 {
		cur := priceComponent(cp, models.StrategyMomentum).Points
		require.GreaterOrEqual(t, cur, prev, "changePercent %.2f", cp)
		prev = cur
	}
}

func TestVolumeNeutralWithoutData(t *testing.T) {
	for _, rvol := range []*float64{nil, f(0), f(-1)} {
		c := volumeComponent(rvol)
		assert.Zero(t, c.Points)
		assert.Contains(t, c.Note, "volume unavailable")
	}
}

func TestTechnicalCapAndSMA200Penalty(t *testing.T) {
	// All averages below price, stacked, MACD confirming: at the cap.
	c := technicalComponent(5.00, bullishTechnicals(5.00))
	assert.Equal(t, 23.0, c.Points)

	// SMA200 violation is the harshest single penalty.
	below := technicalComponent(5.00, &models.TechnicalContext{SMA200: f(6.00)})
	assert.Equal(t, -8.0, below.Points)
	assert.Contains(t, below.Note, "SMA200")
}

func TestGapSignFlipsBySession(t *testing.T) {
	gap := f(12.0)

	pre := riskComponent(50, nil, gap, true)
	rth := riskComponent(50, nil, gap, false)

	// Same magnitude, opposite sign; risk component never exceeds zero so
	// the premarket bonus alone leaves it at the cap.
	assert.Equal(t, 0.0, pre.Points)
	assert.Equal(t, -4.0, rth.Points)

	// With a penny-stock penalty in play, the premarket bonus offsets it.
	preWithPenalty := riskComponent(1.50, nil, gap, true)
	rthWithPenalty := riskComponent(1.50, nil, gap, false)
	assert.Equal(t, -1.0, preWithPenalty.Points) // -5 penny + 4 gap
	assert.Equal(t, -9.0, rthWithPenalty.Points) // -5 penny - 4 gap
}

func TestScenarioStrongMomentum(t *testing.T) {
	// Quote{price=5.00, changePercent=12, rvol=6.0}, Momentum, all SMAs
	// below price: technical at its cap and a Strong-range final score.
	q := quote(5.00, 12)
	bd := Score(q, bullishTechnicals(5.00), models.StrategyMomentum,
		&models.Enhancement{RelativeVolume: f(6.0)})

	assert.Equal(t, 23.0, bd.Technical.Points)
	assert.Equal(t, 1.4, bd.Multiplier)
	assert.GreaterOrEqual(t, bd.Final, 70)
	assert.Equal(t, models.SignalStrong, Classify(bd.Final, models.StrategyMomentum))
}

func TestScenarioPennyDeclineAvoid(t *testing.T) {
	q := quote(1.20, -8)
	for _, strategy := range []models.Strategy{models.StrategyMomentum, models.StrategyBreakout} {
		bd := Score(q, nil, strategy, nil)
		assert.Negative(t, bd.Price.Points, "%s price component", strategy)
		assert.Equal(t, models.SignalAvoid, Classify(bd.Final, strategy))
	}
}

func TestMultiplierRequiresJointStrength(t *testing.T) {
	// Strong technicals but dead volume: no bonus.
	bd := Score(quote(50, 4), bullishTechnicals(50), models.StrategyMomentum,
		&models.Enhancement{RelativeVolume: f(0.5)})
	assert.Equal(t, 1.0, bd.Multiplier)

	// Strong volume but no technicals: no bonus either.
	bd = Score(quote(50, 4), nil, models.StrategyMomentum,
		&models.Enhancement{RelativeVolume: f(8)})
	assert.Equal(t, 1.0, bd.Multiplier)
}

func TestClassifyIdempotentAndThresholds(t *testing.T) {
	for score := 0; score <= 100; score++ {
		for _, strategy := range []models.Strategy{models.StrategyMomentum, models.StrategyBreakout} {
			first := Classify(score, strategy)
			second := Classify(score, strategy)
			assert.Equal(t, first, second, "score %d", score)
		}
	}

	assert.Equal(t, models.SignalStrong, Classify(70, models.StrategyMomentum))
	assert.Equal(t, models.SignalModerate, Classify(69, models.StrategyMomentum))
	assert.Equal(t, models.SignalModerate, Classify(70, models.StrategyBreakout))
	assert.Equal(t, models.SignalStrong, Classify(75, models.StrategyBreakout))
	assert.Equal(t, models.SignalWeak, Classify(30, models.StrategyMomentum))
	assert.Equal(t, models.SignalAvoid, Classify(29, models.StrategyMomentum))
	assert.Equal(t, models.SignalAvoid, Classify(34, models.StrategyBreakout))
}
