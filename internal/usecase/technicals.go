package usecase

import (
	"context"
	"time"

	"TradePulse/internal/domain/models"
	drepo "TradePulse/internal/domain/repository"
	"TradePulse/pkg/cache"
	"TradePulse/pkg/logger"
)

const technicalsCacheTTL = 10 * time.Minute

// TechnicalsService fetches indicator context with a short cache in front.
// Indicators are daily-granularity, so minutes-old values are fine and the
// cache absorbs repeated scoring of the same symbol.
type TechnicalsService struct {
	source  drepo.IndicatorSource
	cache   cache.Service
	metrics drepo.Metrics
	log     *logger.Logger
	ttl     time.Duration
}

func NewTechnicalsService(source drepo.IndicatorSource, cacheSvc cache.Service, metrics drepo.Metrics, log *logger.Logger) *TechnicalsService {
	return &TechnicalsService{
		source:  source,
		cache:   cacheSvc,
		metrics: metrics,
		log:     log,
		ttl:     technicalsCacheTTL,
	}
}

// Context returns the indicator set for symbol. A fetch failure returns an
// empty context rather than an error; scoring treats missing indicators as
// neutral.
func (s *TechnicalsService) Context(ctx context.Context, symbol string) *models.TechnicalContext {
	key := cache.GenerateKey("technicals", symbol)
	if s.cache != nil {
		var cached models.TechnicalContext
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			return &cached
		}
	}

	tc, err := s.source.FetchTechnicals(ctx, symbol)
	if err != nil {
		s.metrics.RecordError("technicals_fetch")
		s.log.Warn("technicals fetch failed",
			logger.String("symbol", symbol), logger.Error(err))
		return &models.TechnicalContext{}
	}
	if tc == nil {
		tc = &models.TechnicalContext{}
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, tc, s.ttl); err != nil {
			s.log.Warn("technicals cache write failed",
				logger.String("symbol", symbol), logger.Error(err))
		}
	}
	return tc
}
