package usecase

import (
	"context"
	"sync"

	"TradePulse/internal/domain/models"
	drepo "TradePulse/internal/domain/repository"
	"TradePulse/internal/scoring"
	"TradePulse/pkg/logger"
)

// ScoredQuote is a fully resolved and scored symbol. Quote is nil when no
// tier produced data; Error then carries the reason and no score is
// reported, because a fabricated zero would read as a real "avoid".
type ScoredQuote struct {
	Symbol         string                       `json:"symbol"`
	Quote          *models.Quote                `json:"quote,omitempty"`
	Technicals     *models.TechnicalContext     `json:"technicals,omitempty"`
	RelativeVolume *models.RelativeVolumeResult `json:"relative_volume,omitempty"`
	Breakdown      *models.ScoreBreakdown       `json:"breakdown,omitempty"`
	Signal         models.Signal                `json:"signal,omitempty"`
	Error          string                       `json:"error,omitempty"`
}

// QuoteService is the application facade: quote resolution, enhancement
// context, and composite scoring behind one door.
type QuoteService struct {
	resolver   *Resolver
	technicals *TechnicalsService
	rvol       *RVOLEngine
	metrics    drepo.Metrics
	log        *logger.Logger
}

func NewQuoteService(resolver *Resolver, technicals *TechnicalsService, rvol *RVOLEngine, metrics drepo.Metrics, log *logger.Logger) *QuoteService {
	return &QuoteService{
		resolver:   resolver,
		technicals: technicals,
		rvol:       rvol,
		metrics:    metrics,
		log:        log,
	}
}

// Session reports the current market session.
func (s *QuoteService) Session() models.MarketSession {
	return s.resolver.Session()
}

// Quote resolves a single symbol through the tiers.
func (s *QuoteService) Quote(ctx context.Context, symbol string) (*models.Quote, error) {
	return s.resolver.ResolveQuote(ctx, symbol)
}

// Quotes resolves a batch; entries are positionally aligned with symbols
// and nil where no data was found.
func (s *QuoteService) Quotes(ctx context.Context, symbols []string) ([]*models.Quote, error) {
	return s.resolver.ResolveQuotes(ctx, symbols)
}

// Score resolves symbol and runs the composite scorer for strategy.
func (s *QuoteService) Score(ctx context.Context, symbol string, strategy models.Strategy) ScoredQuote {
	q, err := s.resolver.ResolveQuote(ctx, symbol)
	if err != nil {
		s.metrics.RecordError("score_resolve")
		return ScoredQuote{Symbol: symbol, Error: err.Error()}
	}
	return s.scoreQuote(ctx, q, strategy)
}

// ScoreBatch resolves symbols in one batch window and scores each resolved
// quote. Symbols with no data come back as error entries, never as scored
// zeros.
func (s *QuoteService) ScoreBatch(ctx context.Context, symbols []string, strategy models.Strategy) ([]ScoredQuote, error) {
	quotes, err := s.resolver.ResolveQuotes(ctx, symbols)
	if err != nil {
		return nil, err
	}

	results := make([]ScoredQuote, len(symbols))
	var wg sync.WaitGroup
	for i, symbol := range symbols {
		if quotes[i] == nil {
			results[i] = ScoredQuote{Symbol: symbol, Error: ErrNoData.Error()}
			continue
		}
		wg.Add(1)
		go func(i int, q *models.Quote) {
			defer wg.Done()
			results[i] = s.scoreQuote(ctx, q, strategy)
		}(i, quotes[i])
	}
	wg.Wait()
	return results, nil
}

func (s *QuoteService) scoreQuote(ctx context.Context, q *models.Quote, strategy models.Strategy) ScoredQuote {
	tc := s.technicals.Context(ctx, q.Symbol)

	// Volume is judged against what is normal for this minute of day, not
	// for a full day; the daily ratio is the fallback when no intraday
	// profile exists for the symbol.
	rv := s.rvol.IntradayRelativeVolume(ctx, q.Symbol, q.Volume)
	if rv.AverageVolume <= 0 {
		rv = s.rvol.RelativeVolume(ctx, q.Symbol, q.Volume)
	}

	enh := models.Enhancement{
		Premarket: s.resolver.Session() == models.SessionPremarket,
	}
	if rv.AverageVolume > 0 {
		ratio := rv.RelativeVolume
		enh.RelativeVolume = &ratio
	}
	if gap, ok := gapPercent(q); ok {
		enh.GapPercent = &gap
	}

	breakdown := scoring.Score(q, tc, strategy, &enh)
	signal := scoring.Classify(breakdown.Final, strategy)

	return ScoredQuote{
		Symbol:         q.Symbol,
		Quote:          q,
		Technicals:     tc,
		RelativeVolume: &rv,
		Breakdown:      &breakdown,
		Signal:         signal,
	}
}

// gapPercent measures the open against the prior close. Only meaningful
// when both sides are known positive.
func gapPercent(q *models.Quote) (float64, bool) {
	if q.Open <= 0 || q.PreviousClose <= 0 {
		return 0, false
	}
	return (q.Open - q.PreviousClose) / q.PreviousClose * 100, true
}
