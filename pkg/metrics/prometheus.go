package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	ticksTotal    *prometheus.CounterVec
	tierTotal     *prometheus.CounterVec
	errorsTotal   *prometheus.CounterVec
	lastPrice     *prometheus.GaugeVec
	latency       *prometheus.HistogramVec
	staleTotal    *prometheus.CounterVec
	recordedTotal *prometheus.CounterVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		ticksTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradepulse_ticks_total",
				Help: "Total number of stream ticks accepted during collection",
			},
			[]string{"symbol"},
		),
		tierTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradepulse_resolution_tier_total",
				Help: "Quote resolutions by winning tier",
			},
			[]string{"tier"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradepulse_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		lastPrice: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "tradepulse_last_price",
				Help: "Last resolved price for a symbol",
			},
			[]string{"symbol"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tradepulse_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		staleTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradepulse_stale_quotes_total",
				Help: "Quotes returned with the stale flag set",
			},
			[]string{"symbol"},
		),
		recordedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradepulse_quotes_recorded_total",
				Help: "Resolved quotes recorded to the history backend",
			},
			[]string{"backend", "symbol"},
		),
	}
}

// RecordTick counts an accepted stream tick.
func (r *Recorder) RecordTick(symbol string) {
	r.ticksTotal.WithLabelValues(symbol).Inc()
}

// RecordTier counts which tier won a resolution.
func (r *Recorder) RecordTier(tier string) {
	r.tierTotal.WithLabelValues(tier).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLastPrice records the last resolved price for a symbol.
func (r *Recorder) RecordLastPrice(symbol string, price float64) {
	r.lastPrice.WithLabelValues(symbol).Set(price)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// RecordStale counts a quote that went out flagged stale.
func (r *Recorder) RecordStale(symbol string) {
	r.staleTotal.WithLabelValues(symbol).Inc()
}

// RecordRecorded counts a quote persisted to the history backend.
func (r *Recorder) RecordRecorded(backend, symbol string) {
	r.recordedTotal.WithLabelValues(backend, symbol).Inc()
}
