package usecase

import (
	"context"
	"fmt"
	"time"

	"TradePulse/internal/domain/models"
	drepo "TradePulse/internal/domain/repository"
	"TradePulse/pkg/logger"
	"TradePulse/pkg/util"
)

// ImplausibleVolume is the threshold below which a reported daily volume is
// treated as suspect. Feeds commonly report last-trade size where
// cumulative volume belongs, so a few thousand shares is a symptom, not a
// datum.
const ImplausibleVolume = 5000

// VolumeReconciler repairs missing or implausibly small volume on a
// resolved quote using secondary REST sources.
type VolumeReconciler struct {
	snapshots drepo.SnapshotSource
	bars      drepo.BarSource
	metrics   drepo.Metrics
	log       *logger.Logger
	now       func() time.Time
}

// NewVolumeReconciler builds a reconciler over the REST sources.
func NewVolumeReconciler(snapshots drepo.SnapshotSource, bars drepo.BarSource, metrics drepo.Metrics, log *logger.Logger) *VolumeReconciler {
	return &VolumeReconciler{
		snapshots: snapshots,
		bars:      bars,
		metrics:   metrics,
		log:       log,
		now:       time.Now,
	}
}

// Reconcile replaces q's volume with the larger of the snapshot's daily
// volume and the sum of today's minute bars. Under-counting is the dominant
// failure mode and bars restricted to today cannot overcount, so larger
// wins. Change fields are recomputed only when a trustworthy previousClose
// arrives; otherwise they keep their prior values rather than being
// fabricated.
func (vr *VolumeReconciler) Reconcile(ctx context.Context, q *models.Quote) {
	best := q.Volume
	var bestSource string

	var previousClose float64
	snap, err := vr.snapshots.FetchSnapshot(ctx, q.Symbol)
	if err != nil {
		vr.metrics.RecordError("reconcile_snapshot")
		vr.log.Warn("volume reconcile: snapshot failed",
			logger.String("symbol", q.Symbol), logger.Error(err))
	} else {
		if snap.Volume > best {
			best = snap.Volume
			bestSource = "snapshot"
		}
		previousClose = snap.PreviousClose
	}

	if best < ImplausibleVolume {
		if sum := vr.sumTodayBars(ctx, q.Symbol); sum > best {
			best = sum
			bestSource = "minute bars"
		}
	}

	if best > q.Volume {
		q.Volume = best
		q.AddNote(fmt.Sprintf("volume reconciled from %s", bestSource))
	}
	if q.Volume == 0 {
		q.AddNote("volume unavailable after reconciliation")
	}

	if previousClose > 0 {
		q.RecomputeChange(previousClose)
	}
}

// sumTodayBars sums minute-bar volume filtered to the current exchange
// trading date.
func (vr *VolumeReconciler) sumTodayBars(ctx context.Context, symbol string) int64 {
	now := vr.now()
	bars, err := vr.bars.FetchMinuteBars(ctx, symbol, util.TradingDate(now), now)
	if err != nil {
		vr.metrics.RecordError("reconcile_bars")
		return 0
	}
	var sum int64
	for _, b := range bars {
		if util.SameTradingDate(b.Time, now) {
			sum += b.Volume
		}
	}
	return sum
}
