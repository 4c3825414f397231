package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TradePulse/internal/domain/models"
	"TradePulse/pkg/logger"
)

func testLogger() *logger.Logger {
	l, _ := logger.New(&logger.Config{Level: "error", Format: "console", Output: "stderr"})
	return l
}

// Tuesday 2025-06-10 10:00 ET, regular session.
var testNow = time.Date(2025, time.June, 10, 14, 0, 0, 0, time.UTC)

type fakeStream struct {
	mu           sync.Mutex
	ticks        chan models.Tick
	errs         chan error
	connectErr   error
	subscribeErr error
	subscribes   [][]string
	unsubscribes [][]string
}

func newFakeStream(ticks ...models.Tick) *fakeStream {
	fs := &fakeStream{
		ticks: make(chan models.Tick, 64),
		errs:  make(chan error, 4),
	}
	for _, t := range ticks {
		fs.ticks <- t
	}
	return fs
}

func (fs *fakeStream) Connect(context.Context) error { return fs.connectErr }

func (fs *fakeStream) Subscribe(_ context.Context, symbols ...string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if fs.subscribeErr != nil {
		return fs.subscribeErr
	}
	fs.subscribes = append(fs.subscribes, symbols)
	return nil
}

func (fs *fakeStream) Unsubscribe(_ context.Context, symbols ...string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.unsubscribes = append(fs.unsubscribes, symbols)
	return nil
}

func (fs *fakeStream) Ticks() <-chan models.Tick { return fs.ticks }
func (fs *fakeStream) Errs() <-chan error        { return fs.errs }
func (fs *fakeStream) IsConnected() bool         { return true }
func (fs *fakeStream) Close() error              { return nil }

type fakeBars struct {
	mu     sync.Mutex
	minute map[string][]models.Bar
	daily  map[string][]models.Bar
	err    error
}

func (fb *fakeBars) FetchMinuteBars(_ context.Context, symbol string, _, _ time.Time) ([]models.Bar, error) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	if fb.err != nil {
		return nil, fb.err
	}
	return fb.minute[symbol], nil
}

func (fb *fakeBars) FetchDailyBars(_ context.Context, symbol string, _, _ time.Time) ([]models.Bar, error) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	if fb.err != nil {
		return nil, fb.err
	}
	return fb.daily[symbol], nil
}

type fakeSnapshots struct {
	mu     sync.Mutex
	quotes map[string]*models.Quote
	calls  []string
}

func (fr *fakeSnapshots) FetchSnapshot(_ context.Context, symbol string) (*models.Quote, error) {
	fr.mu.Lock()
	defer fr.mu.Unlock()
	fr.calls = append(fr.calls, symbol)
	q, ok := fr.quotes[symbol]
	if !ok {
		return nil, errors.New("no snapshot")
	}
	// Callers mutate quotes; hand out a copy.
	cp := *q
	return &cp, nil
}

type nopMetrics struct{}

func (nopMetrics) RecordTick(string)               {}
func (nopMetrics) RecordTier(string)               {}
func (nopMetrics) RecordError(string)              {}
func (nopMetrics) RecordLastPrice(string, float64) {}
func (nopMetrics) RecordLatency(string, float64)   {}
func (nopMetrics) RecordStale(string)              {}
func (nopMetrics) RecordRecorded(string, string)   {}

func testResolver(stream *fakeStream, bars *fakeBars, snaps *fakeSnapshots) *Resolver {
	r := NewResolver(stream, bars, snaps, nil, nopMetrics{}, testLogger(), ResolverConfig{
		StreamTimeout: 50 * time.Millisecond,
		BatchWindow:   100 * time.Millisecond,
	})
	r.now = func() time.Time { return testNow }
	r.sessionAt = func(time.Time) models.MarketSession { return models.SessionRegular }
	return r
}

func snapshotQuote(symbol string, price float64, volume int64) *models.Quote {
	return &models.Quote{
		Symbol:        symbol,
		Timestamp:     testNow.Add(-time.Minute).Unix(),
		Close:         price,
		Volume:        volume,
		PreviousClose: price - 1,
		Source:        "snapshot",
	}
}

func TestResolveQuoteStreamTickWins(t *testing.T) {
	stream := newFakeStream(models.Tick{
		Symbol:    "AAPL",
		Price:     189.50,
		Volume:    42_000_000,
		Timestamp: testNow.UnixMilli(),
	})
	snaps := &fakeSnapshots{quotes: map[string]*models.Quote{
		"AAPL": snapshotQuote("AAPL", 180.00, 40_000_000),
	}}
	r := testResolver(stream, &fakeBars{}, snaps)

	q, err := r.ResolveQuote(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, "stream", q.Source)
	assert.Equal(t, 189.50, q.Close)
	assert.False(t, q.Stale)
	assert.Empty(t, snaps.calls, "fallback must not run when a tick arrived")
	require.Len(t, stream.unsubscribes, 1)
	assert.Equal(t, []string{"AAPL"}, stream.unsubscribes[0])
}

func TestResolveQuoteFallsBackToSnapshot(t *testing.T) {
	stream := newFakeStream()
	snaps := &fakeSnapshots{quotes: map[string]*models.Quote{
		"MSFT": snapshotQuote("MSFT", 412.30, 18_000_000),
	}}
	r := testResolver(stream, &fakeBars{}, snaps)

	q, err := r.ResolveQuote(context.Background(), "MSFT")
	require.NoError(t, err)
	assert.Equal(t, "snapshot", q.Source)
	assert.Equal(t, 412.30, q.Close)
}

func TestResolveQuoteNoData(t *testing.T) {
	r := testResolver(newFakeStream(), &fakeBars{}, &fakeSnapshots{})

	q, err := r.ResolveQuote(context.Background(), "NOPE")
	assert.Nil(t, q)
	assert.ErrorIs(t, err, ErrNoData)
}

func TestResolveQuotesBatchCompletes(t *testing.T) {
	symbols := []string{"AAPL", "MSFT", "NVDA", "AMD", "TSLA"}

	// Two symbols tick during the window, the rest must come from REST.
	stream := newFakeStream(
		models.Tick{Symbol: "AAPL", Price: 189.50, Volume: 42_000_000, Timestamp: testNow.UnixMilli()},
		models.Tick{Symbol: "NVDA", Price: 121.10, Volume: 80_000_000, Timestamp: testNow.UnixMilli()},
	)
	bars := &fakeBars{minute: map[string][]models.Bar{
		"MSFT": {
			{Time: testNow.Add(-18 * time.Hour), Close: 410.00, Volume: 1_000_000},
			{Time: testNow.Add(-time.Minute), Open: 411.0, High: 413.0, Low: 410.5, Close: 412.30, Volume: 2_500_000},
		},
	}}
	snaps := &fakeSnapshots{quotes: map[string]*models.Quote{
		"AMD":  snapshotQuote("AMD", 160.75, 30_000_000),
		"TSLA": snapshotQuote("TSLA", 244.40, 55_000_000),
	}}
	r := testResolver(stream, bars, snaps)

	start := time.Now()
	quotes, err := r.ResolveQuotes(context.Background(), symbols)
	elapsed := time.Since(start)

	require.NoError(t, err)
	require.Len(t, quotes, len(symbols))
	for i, q := range quotes {
		require.NotNil(t, q, "symbol %s", symbols[i])
		assert.Equal(t, symbols[i], q.Symbol)
	}
	assert.Equal(t, "stream", quotes[0].Source)
	assert.Equal(t, "bars", quotes[1].Source)
	assert.Equal(t, "stream", quotes[2].Source)
	assert.Equal(t, "snapshot", quotes[3].Source)
	assert.Equal(t, "snapshot", quotes[4].Source)

	// One subscription set for the whole batch, released afterwards.
	require.Len(t, stream.subscribes, 1)
	assert.Equal(t, symbols, stream.subscribes[0])
	require.Len(t, stream.unsubscribes, 1)
	assert.Equal(t, symbols, stream.unsubscribes[0])

	assert.Less(t, elapsed, time.Second, "batch must stay within window plus fallback budget")
}

func TestResolveQuotesOneFailureDoesNotAbortBatch(t *testing.T) {
	snaps := &fakeSnapshots{quotes: map[string]*models.Quote{
		"AAPL": snapshotQuote("AAPL", 189.50, 42_000_000),
	}}
	r := testResolver(newFakeStream(), &fakeBars{}, snaps)

	quotes, err := r.ResolveQuotes(context.Background(), []string{"AAPL", "NOPE"})
	require.NoError(t, err)
	require.Len(t, quotes, 2)
	assert.NotNil(t, quotes[0])
	assert.Nil(t, quotes[1])
}

func TestClosedSessionSkipsStream(t *testing.T) {
	stream := newFakeStream(models.Tick{
		Symbol: "AAPL", Price: 189.50, Timestamp: testNow.UnixMilli(),
	})
	snaps := &fakeSnapshots{quotes: map[string]*models.Quote{
		"AAPL": snapshotQuote("AAPL", 188.00, 42_000_000),
	}}
	r := testResolver(stream, &fakeBars{}, snaps)
	r.sessionAt = func(time.Time) models.MarketSession { return models.SessionClosed }

	q, err := r.ResolveQuote(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, "snapshot", q.Source)
	assert.Empty(t, stream.subscribes, "no subscription outside active sessions")
}

func TestStaleQuoteIsFlaggedNotDropped(t *testing.T) {
	stale := snapshotQuote("AAPL", 188.00, 42_000_000)
	stale.Timestamp = testNow.Add(-2 * time.Hour).Unix()
	snaps := &fakeSnapshots{quotes: map[string]*models.Quote{"AAPL": stale}}
	r := testResolver(newFakeStream(), &fakeBars{}, snaps)

	q, err := r.ResolveQuote(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.True(t, q.Stale)
	assert.NotEmpty(t, q.Notes)
	assert.Equal(t, 188.00, q.Close, "stale data is returned, not discarded")
}

func TestFreshQuoteNotStaleWhenClosed(t *testing.T) {
	// Two hours old is stale during trading but fine overnight.
	q := snapshotQuote("AAPL", 188.00, 42_000_000)
	q.Timestamp = testNow.Add(-2 * time.Hour).Unix()
	snaps := &fakeSnapshots{quotes: map[string]*models.Quote{"AAPL": q}}
	r := testResolver(newFakeStream(), &fakeBars{}, snaps)
	r.sessionAt = func(time.Time) models.MarketSession { return models.SessionClosed }

	got, err := r.ResolveQuote(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.False(t, got.Stale)
}

func TestMinuteBarTierDerivesChangeFromPriorDay(t *testing.T) {
	bars := &fakeBars{minute: map[string][]models.Bar{
		"MSFT": {
			// 16:00+ ET the previous day.
			{Time: testNow.Add(-18 * time.Hour), Close: 410.00, Volume: 500_000},
			{Time: testNow.Add(-time.Minute), Close: 412.30, Volume: 2_000_000},
		},
	}}
	r := testResolver(newFakeStream(), bars, &fakeSnapshots{})

	q, err := r.ResolveQuote(context.Background(), "MSFT")
	require.NoError(t, err)
	assert.Equal(t, "bars", q.Source)
	assert.Equal(t, 410.00, q.PreviousClose)
	assert.InDelta(t, 2.30, q.Change, 1e-9)
	assert.Equal(t, int64(2_500_000), q.Volume, "volume is the summed window")
}

func TestMinuteBarTierWithoutPriorDayNotesMissingChange(t *testing.T) {
	bars := &fakeBars{minute: map[string][]models.Bar{
		"MSFT": {
			{Time: testNow.Add(-30 * time.Minute), Close: 411.00, Volume: 800_000},
			{Time: testNow.Add(-time.Minute), Close: 412.30, Volume: 700_000},
		},
	}}
	r := testResolver(newFakeStream(), bars, &fakeSnapshots{})

	q, err := r.ResolveQuote(context.Background(), "MSFT")
	require.NoError(t, err)
	assert.Zero(t, q.PreviousClose)
	assert.Zero(t, q.Change)
	assert.NotEmpty(t, q.Notes)
}

func TestTickWithImplausibleVolumeIsReconciled(t *testing.T) {
	stream := newFakeStream(models.Tick{
		Symbol:    "AAPL",
		Price:     189.50,
		Volume:    0,
		Timestamp: testNow.UnixMilli(),
	})
	snaps := &fakeSnapshots{quotes: map[string]*models.Quote{
		"AAPL": snapshotQuote("AAPL", 189.00, 1_200_000),
	}}
	bars := &fakeBars{}
	rec := NewVolumeReconciler(snaps, bars, nopMetrics{}, testLogger())
	rec.now = func() time.Time { return testNow }

	r := testResolver(stream, bars, snaps)
	r.reconciler = rec

	q, err := r.ResolveQuote(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, "stream", q.Source)
	assert.Equal(t, 189.50, q.Close, "price still comes from the tick")
	assert.Equal(t, int64(1_200_000), q.Volume)
	assert.NotEmpty(t, q.Notes)
}
