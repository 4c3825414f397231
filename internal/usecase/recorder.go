package usecase

import (
	"context"
	"fmt"
	"time"

	"TradePulse/internal/domain/models"
	drepo "TradePulse/internal/domain/repository"
)

// Recorder backends.
const (
	BackendKafka      = "kafka"
	BackendClickHouse = "clickhouse"
)

// QuoteRecorder routes resolved quotes to the configured history backend:
// a Kafka topic for downstream journal consumers or ClickHouse for direct
// retention.
type QuoteRecorder struct {
	pub     drepo.Publisher
	store   drepo.Storage
	metrics drepo.Metrics
	backend string
}

// NewQuoteRecorder builds a recorder for the given backend. Only the
// matching sink needs to be non-nil.
func NewQuoteRecorder(pub drepo.Publisher, store drepo.Storage, metrics drepo.Metrics, backend string) *QuoteRecorder {
	return &QuoteRecorder{
		pub:     pub,
		store:   store,
		metrics: metrics,
		backend: backend,
	}
}

// Record persists a single resolved quote.
func (r *QuoteRecorder) Record(ctx context.Context, q *models.Quote) error {
	if q == nil {
		return fmt.Errorf("quote is nil")
	}

	start := time.Now()
	var err error
	switch r.backend {
	case BackendKafka:
		err = r.pub.Publish(ctx, q)
	case BackendClickHouse:
		err = r.store.Store(ctx, q)
	default:
		err = fmt.Errorf("unknown backend: %s", r.backend)
	}
	if err != nil {
		r.metrics.RecordError("record")
		return fmt.Errorf("record quote: %w", err)
	}

	r.metrics.RecordRecorded(r.backend, q.Symbol)
	r.metrics.RecordLatency("record", time.Since(start).Seconds())
	return nil
}

// RecordBatch persists a batch of resolved quotes. Nil entries (symbols
// that resolved to nothing) are skipped.
func (r *QuoteRecorder) RecordBatch(ctx context.Context, quotes []*models.Quote) error {
	kept := make([]*models.Quote, 0, len(quotes))
	for _, q := range quotes {
		if q != nil {
			kept = append(kept, q)
		}
	}
	if len(kept) == 0 {
		return nil
	}

	start := time.Now()
	var err error
	switch r.backend {
	case BackendKafka:
		err = r.pub.PublishBatch(ctx, kept)
	case BackendClickHouse:
		err = r.store.StoreBatch(ctx, kept)
	default:
		err = fmt.Errorf("unknown backend: %s", r.backend)
	}
	if err != nil {
		r.metrics.RecordError("record_batch")
		return fmt.Errorf("record batch: %w", err)
	}

	for _, q := range kept {
		r.metrics.RecordRecorded(r.backend, q.Symbol)
	}
	r.metrics.RecordLatency("record_batch", time.Since(start).Seconds())
	return nil
}

// Close releases whichever sink is attached.
func (r *QuoteRecorder) Close() {
	if r.pub != nil {
		_ = r.pub.Close()
	}
	if r.store != nil {
		_ = r.store.Close()
	}
}
