package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"TradePulse/internal/domain/models"
	drepo "TradePulse/internal/domain/repository"
	"TradePulse/internal/service/session"
	"TradePulse/pkg/logger"
	"TradePulse/pkg/util"
)

// ErrNoData is returned when every tier of the fallback chain failed to
// produce a usable price for a symbol.
var ErrNoData = errors.New("no market data available")

// Source labels attached to resolved quotes.
const (
	sourceStream   = "stream"
	sourceBars     = "bars"
	sourceSnapshot = "snapshot"
)

// ResolverConfig tunes the tiered fallback chain.
type ResolverConfig struct {
	StreamTimeout   time.Duration // single-symbol wait for a tick
	BatchWindow     time.Duration // batch tick collection window
	ActiveStaleness time.Duration // staleness threshold during active sessions
	ClosedStaleness time.Duration // staleness threshold otherwise
}

func (c *ResolverConfig) setDefaults() {
	if c.StreamTimeout <= 0 {
		c.StreamTimeout = 1500 * time.Millisecond
	}
	if c.BatchWindow <= 0 {
		c.BatchWindow = 12 * time.Second
	}
	if c.ActiveStaleness <= 0 {
		c.ActiveStaleness = 15 * time.Minute
	}
	if c.ClosedStaleness <= 0 {
		c.ClosedStaleness = 24 * time.Hour
	}
}

// Resolver produces the freshest trustworthy quote per symbol within a
// bounded time budget: stream tick, then intraday bars, then REST snapshot.
// A later tier runs only when the earlier one yields no usable price.
type Resolver struct {
	stream     drepo.MarketStream
	bars       drepo.BarSource
	snapshots  drepo.SnapshotSource
	reconciler *VolumeReconciler
	metrics    drepo.Metrics
	log        *logger.Logger
	cfg        ResolverConfig

	now       func() time.Time
	sessionAt func(time.Time) models.MarketSession

	// The tick channel is a shared resource; one collection window owns it
	// at a time.
	collectMu sync.Mutex
}

// NewResolver builds a resolver around the shared stream handle and the
// REST sources.
func NewResolver(
	stream drepo.MarketStream,
	bars drepo.BarSource,
	snapshots drepo.SnapshotSource,
	reconciler *VolumeReconciler,
	metrics drepo.Metrics,
	log *logger.Logger,
	cfg ResolverConfig,
) *Resolver {
	cfg.setDefaults()
	return &Resolver{
		stream:     stream,
		bars:       bars,
		snapshots:  snapshots,
		reconciler: reconciler,
		metrics:    metrics,
		log:        log,
		cfg:        cfg,
		now:        time.Now,
		sessionAt:  session.Classify,
	}
}

// Session returns the market phase for the current instant.
func (r *Resolver) Session() models.MarketSession {
	return r.sessionAt(r.now())
}

// ResolveQuote resolves a single symbol. Returns ErrNoData when all tiers
// fail; stale data is returned flagged, never discarded.
func (r *Resolver) ResolveQuote(ctx context.Context, symbol string) (*models.Quote, error) {
	quotes, err := r.resolve(ctx, []string{symbol}, r.cfg.StreamTimeout, true)
	if err != nil {
		return nil, err
	}
	if quotes[0] == nil {
		return nil, fmt.Errorf("%s: %w", symbol, ErrNoData)
	}
	return quotes[0], nil
}

// ResolveQuotes resolves a batch. The result slice is parallel to symbols;
// a nil entry means that symbol produced no data. One symbol's failure
// never aborts the batch.
func (r *Resolver) ResolveQuotes(ctx context.Context, symbols []string) ([]*models.Quote, error) {
	if len(symbols) == 0 {
		return nil, nil
	}
	return r.resolve(ctx, symbols, r.cfg.BatchWindow, false)
}

func (r *Resolver) resolve(ctx context.Context, symbols []string, window time.Duration, earlyExit bool) ([]*models.Quote, error) {
	start := r.now()
	sess := r.sessionAt(start)

	var ticks map[string]models.Tick
	if sess.Active() && r.stream != nil {
		ticks = r.collect(ctx, symbols, window, earlyExit)
	} else {
		r.metrics.RecordTier("stream_skipped")
	}

	// Fallback chain runs concurrently, only for symbols without a tick.
	results := make([]*models.Quote, len(symbols))
	var wg sync.WaitGroup
	for i, sym := range symbols {
		wg.Add(1)
		go func(i int, sym string) {
			defer wg.Done()
			if tick, ok := ticks[sym]; ok {
				results[i] = r.quoteFromTick(ctx, tick)
			} else {
				results[i] = r.fallback(ctx, sym)
			}
			if results[i] != nil {
				r.flagStaleness(results[i], sess)
				r.metrics.RecordLastPrice(sym, results[i].Close)
			}
		}(i, sym)
	}
	wg.Wait()

	r.metrics.RecordLatency("resolve", time.Since(start).Seconds())
	return results, nil
}

// collect opens one subscription set and gathers ticks into a deduplicating
// map (last tick per symbol wins) until the window closes. Every subscribe
// is matched by an unsubscribe, including on error and timeout paths.
func (r *Resolver) collect(ctx context.Context, symbols []string, window time.Duration, earlyExit bool) map[string]models.Tick {
	got := make(map[string]models.Tick, len(symbols))

	if err := r.stream.Connect(ctx); err != nil {
		r.metrics.RecordError("stream_connect")
		r.log.Warn("stream connect failed, falling back", logger.Error(err))
		return got
	}

	r.collectMu.Lock()
	defer r.collectMu.Unlock()

	if err := r.stream.Subscribe(ctx, symbols...); err != nil {
		r.metrics.RecordError("stream_subscribe")
		r.log.Warn("stream subscribe failed, falling back", logger.Error(err))
		return got
	}
	defer func() {
		// Release subscriptions even when ctx is already canceled.
		_ = r.stream.Unsubscribe(context.WithoutCancel(ctx), symbols...)
	}()

	want := make(map[string]struct{}, len(symbols))
	for _, s := range symbols {
		want[s] = struct{}{}
	}

	timer := time.NewTimer(window)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return got
		case <-timer.C:
			return got
		case err := <-r.stream.Errs():
			if err != nil {
				r.metrics.RecordError("stream_read")
				r.log.Warn("stream error during collection", logger.Error(err))
			}
			return got
		case tick := <-r.stream.Ticks():
			if _, wanted := want[tick.Symbol]; !wanted || tick.Price <= 0 {
				continue
			}
			got[tick.Symbol] = tick
			r.metrics.RecordTick(tick.Symbol)
			if earlyExit && len(got) == len(want) {
				return got
			}
		}
	}
}

// quoteFromTick promotes a provisional tick to a quote. The tick's price
// wins, but streamed volume is usually last-trade size, so implausible
// volume is handed to the reconciler before the quote is returned.
func (r *Resolver) quoteFromTick(ctx context.Context, tick models.Tick) *models.Quote {
	r.metrics.RecordTier(sourceStream)
	q := &models.Quote{
		Symbol:    tick.Symbol,
		Timestamp: tick.Timestamp / 1000,
		Close:     tick.Price,
		Volume:    int64(tick.Volume),
		Source:    sourceStream,
	}
	if q.Timestamp <= 0 {
		q.Timestamp = r.now().Unix()
	}
	if q.Volume < ImplausibleVolume && r.reconciler != nil {
		r.reconciler.Reconcile(ctx, q)
	}
	return q
}

// fallback runs the REST tiers: minute bars since yesterday's close, then
// the snapshot endpoint. Returns nil when nothing produced a usable price.
func (r *Resolver) fallback(ctx context.Context, symbol string) *models.Quote {
	now := r.now()

	if q := r.fromMinuteBars(ctx, symbol, now); q != nil {
		return q
	}

	snap, err := r.snapshots.FetchSnapshot(ctx, symbol)
	if err != nil {
		r.metrics.RecordError("snapshot")
		r.log.Warn("snapshot tier failed", logger.String("symbol", symbol), logger.Error(err))
		return nil
	}
	if !snap.Valid(now) {
		return nil
	}
	r.metrics.RecordTier(sourceSnapshot)
	return snap
}

// fromMinuteBars builds a quote from the minute-bar window spanning
// yesterday 16:00 exchange time through now: the most recent bar is the
// price, the summed volume is the cumulative daily volume.
func (r *Resolver) fromMinuteBars(ctx context.Context, symbol string, now time.Time) *models.Quote {
	bars, err := r.bars.FetchMinuteBars(ctx, symbol, util.PriorCloseInstant(now), now)
	if err != nil {
		r.metrics.RecordError("minute_bars")
		r.log.Warn("minute-bar tier failed", logger.String("symbol", symbol), logger.Error(err))
		return nil
	}
	if len(bars) == 0 {
		return nil
	}

	last := bars[len(bars)-1]
	if last.Close <= 0 {
		return nil
	}

	var volume int64
	for _, b := range bars {
		volume += b.Volume
	}

	q := &models.Quote{
		Symbol:    symbol,
		Timestamp: last.Time.Unix(),
		Open:      last.Open,
		High:      last.High,
		Low:       last.Low,
		Close:     last.Close,
		Volume:    volume,
		Source:    sourceBars,
	}

	// The window starts at yesterday's close, so a first bar from a prior
	// trading date carries yesterday's closing price.
	if first := bars[0]; !util.SameTradingDate(first.Time, now) && first.Close > 0 {
		q.RecomputeChange(first.Close)
	} else {
		q.AddNote("change unavailable — no prior-day reference in bar window")
	}

	r.metrics.RecordTier(sourceBars)
	return q
}

// flagStaleness attaches the staleness flag; stale data is surfaced, not
// dropped.
func (r *Resolver) flagStaleness(q *models.Quote, sess models.MarketSession) {
	threshold := r.cfg.ClosedStaleness
	if sess.Active() {
		threshold = r.cfg.ActiveStaleness
	}
	if age := q.Age(r.now()); age > threshold {
		q.Stale = true
		q.AddNote(fmt.Sprintf("quote is %s old", age.Round(time.Second)))
		r.metrics.RecordStale(q.Symbol)
	}
}
