package repository

import (
	"context"
	"time"

	"TradePulse/internal/domain/models"
)

// MarketStream is the long-lived streaming quote feed. Ownership is
// explicit: the resolver holds the handle, lifecycle is
// connect -> subscribe* -> unsubscribe* -> close. Connect must be idempotent
// and every Subscribe must be matched by an Unsubscribe, including on
// timeout paths. Ticks are delivered on a channel rather than callbacks so
// "collect for N seconds" is a plain channel read with a deadline.
type MarketStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context, symbols ...string) error
	Unsubscribe(ctx context.Context, symbols ...string) error
	Ticks() <-chan models.Tick
	Errs() <-chan error
	IsConnected() bool
	Close() error
}

// SnapshotSource is the REST last-quote endpoint. No internal retries;
// fallback policy belongs to the resolver.
type SnapshotSource interface {
	FetchSnapshot(ctx context.Context, symbol string) (*models.Quote, error)
}

// BarSource serves intraday and daily OHLCV history.
type BarSource interface {
	FetchMinuteBars(ctx context.Context, symbol string, from, to time.Time) ([]models.Bar, error)
	FetchDailyBars(ctx context.Context, symbol string, from, to time.Time) ([]models.Bar, error)
}

// IndicatorSource serves externally computed indicator values. Missing
// indicators are nil fields, not errors.
type IndicatorSource interface {
	FetchTechnicals(ctx context.Context, symbol string) (*models.TechnicalContext, error)
}

// Publisher fans resolved quotes out to downstream journal consumers.
type Publisher interface {
	Publish(ctx context.Context, q *models.Quote) error
	PublishBatch(ctx context.Context, quotes []*models.Quote) error
	Close() error
}

// Storage persists resolved-quote history.
type Storage interface {
	Init(ctx context.Context) error
	Store(ctx context.Context, q *models.Quote) error
	StoreBatch(ctx context.Context, quotes []*models.Quote) error
	Query(ctx context.Context, symbol string, from, to time.Time, limit int) ([]*models.Quote, error)
	Health(ctx context.Context) error
	Close() error
}

// Metrics abstracts the observability recorder.
type Metrics interface {
	RecordTick(symbol string)
	RecordTier(tier string)
	RecordError(kind string)
	RecordLastPrice(symbol string, price float64)
	RecordLatency(op string, seconds float64)
	RecordStale(symbol string)
	RecordRecorded(backend, symbol string)
}
