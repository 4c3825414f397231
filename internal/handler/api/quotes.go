package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"TradePulse/internal/domain/models"
	domrepo "TradePulse/internal/domain/repository"
	"TradePulse/internal/usecase"
	xhttp "TradePulse/pkg/http"
	xlogger "TradePulse/pkg/logger"
	"TradePulse/pkg/util"

	"github.com/labstack/echo/v4"
)

// QuoteHandler exposes quote resolution and scoring over Echo.
type QuoteHandler struct {
	logger  *xlogger.Logger
	svc     *usecase.QuoteService
	limiter *rate.Limiter
	record  func(*models.Quote)
	history domrepo.Storage
}

func NewQuoteHandler(logger *xlogger.Logger, svc *usecase.QuoteService) *QuoteHandler {
	return &QuoteHandler{
		logger: logger,
		svc:    svc,
		// Batch endpoints hold a stream window open; cap the request rate
		// so collection windows do not queue unboundedly.
		limiter: rate.NewLimiter(rate.Limit(5), 10),
	}
}

// SetRecordFunc attaches the history recorder hook. Recording happens
// best-effort after the response is built.
func (h *QuoteHandler) SetRecordFunc(fn func(*models.Quote)) { h.record = fn }

// SetHistory attaches the recorded-quote store backing /quote/:symbol/history.
func (h *QuoteHandler) SetHistory(store domrepo.Storage) { h.history = store }

func (h *QuoteHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/session", h.Session)
	g.GET("/quote/:symbol", h.Quote)
	g.GET("/quote/:symbol/history", h.History)
	g.POST("/quotes", h.Quotes)
	g.POST("/score", h.Score)
	g.GET("/scan", h.Scan)
}

// SessionResponse reports the current market phase.
type SessionResponse struct {
	Session models.MarketSession `json:"session"`
	Active  bool                 `json:"active"`
}

func (h *QuoteHandler) Session(c echo.Context) error {
	sess := h.svc.Session()
	return xhttp.SuccessResponse(c, SessionResponse{Session: sess, Active: sess.Active()})
}

func (h *QuoteHandler) Quote(c echo.Context) error {
	symbols := util.SplitSymbols(c.Param("symbol"))
	if len(symbols) != 1 {
		return xhttp.BadRequestResponse(c, "exactly one symbol required")
	}

	q, err := h.svc.Quote(c.Request().Context(), symbols[0])
	if err != nil {
		if errors.Is(err, usecase.ErrNoData) {
			return xhttp.NotFoundResponse(c, err.Error())
		}
		h.logger.Error("quote resolve error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	h.recordQuote(q)
	return xhttp.SuccessResponse(c, q)
}

// History serves recorded quotes for a symbol, newest first. Only
// available when the recorder runs on the ClickHouse backend.
func (h *QuoteHandler) History(c echo.Context) error {
	if h.history == nil {
		return xhttp.NotFoundResponse(c, "quote history is not enabled")
	}

	symbols := util.SplitSymbols(c.Param("symbol"))
	if len(symbols) != 1 {
		return xhttp.BadRequestResponse(c, "exactly one symbol required")
	}

	now := time.Now()
	from := xhttp.ParseTimeDefault(c.QueryParam("from"), now.Add(-24*time.Hour))
	to := xhttp.ParseTimeDefault(c.QueryParam("to"), now)
	limit := xhttp.ParseIntDefault(c.QueryParam("limit"), 100)
	if limit <= 0 || limit > 1000 {
		return xhttp.BadRequestResponse(c, "limit must be between 1 and 1000")
	}

	quotes, err := h.history.Query(c.Request().Context(), symbols[0], from, to, limit)
	if err != nil {
		h.logger.Error("history query error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, quotes)
}

// QuotesRequest is the batch resolution request body.
type QuotesRequest struct {
	Symbols []string `json:"symbols" validate:"required,min=1,max=50,dive,required"`
}

// QuoteEntry pairs a requested symbol with its outcome.
type QuoteEntry struct {
	Symbol string        `json:"symbol"`
	Quote  *models.Quote `json:"quote,omitempty"`
	Error  string        `json:"error,omitempty"`
}

func (h *QuoteHandler) Quotes(c echo.Context) error {
	req := &QuotesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if !h.limiter.Allow() {
		return xhttp.DataResponse(c, http.StatusTooManyRequests, "rate limited")
	}

	symbols := normalizeSymbols(req.Symbols)
	quotes, err := h.svc.Quotes(c.Request().Context(), symbols)
	if err != nil {
		h.logger.Error("batch resolve error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}

	entries := make([]QuoteEntry, len(symbols))
	for i, sym := range symbols {
		entries[i] = QuoteEntry{Symbol: sym, Quote: quotes[i]}
		if quotes[i] == nil {
			entries[i].Error = usecase.ErrNoData.Error()
		} else {
			h.recordQuote(quotes[i])
		}
	}
	return xhttp.ListResponse(c, entries, int64(len(entries)))
}

// ScoreRequest is the batch scoring request body.
type ScoreRequest struct {
	Symbols  []string `json:"symbols" validate:"required,min=1,max=50,dive,required"`
	Strategy string   `json:"strategy" validate:"omitempty,oneof=momentum breakout" default:"momentum"`
}

func (h *QuoteHandler) Score(c echo.Context) error {
	req := &ScoreRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if !h.limiter.Allow() {
		return xhttp.DataResponse(c, http.StatusTooManyRequests, "rate limited")
	}

	return h.score(c, normalizeSymbols(req.Symbols), models.Strategy(req.Strategy))
}

// Scan is the GET variant of Score for dashboard polling:
// /api/scan?symbols=AAPL,TSLA&strategy=momentum
func (h *QuoteHandler) Scan(c echo.Context) error {
	symbols := util.SplitSymbols(c.QueryParam("symbols"))
	if len(symbols) == 0 {
		return xhttp.BadRequestResponse(c, "symbols required")
	}
	if len(symbols) > 50 {
		return xhttp.BadRequestResponse(c, "too many symbols")
	}

	strategy := models.Strategy(c.QueryParam("strategy"))
	if strategy == "" {
		strategy = models.StrategyMomentum
	}
	if !strategy.Valid() {
		return xhttp.BadRequestResponse(c, "unknown strategy")
	}
	if !h.limiter.Allow() {
		return xhttp.DataResponse(c, http.StatusTooManyRequests, "rate limited")
	}

	return h.score(c, symbols, strategy)
}

func (h *QuoteHandler) score(c echo.Context, symbols []string, strategy models.Strategy) error {
	scored, err := h.svc.ScoreBatch(c.Request().Context(), symbols, strategy)
	if err != nil {
		h.logger.Error("score error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	for _, s := range scored {
		if s.Quote != nil {
			h.recordQuote(s.Quote)
		}
	}
	return xhttp.ListResponse(c, scored, int64(len(scored)))
}

func (h *QuoteHandler) recordQuote(q *models.Quote) {
	if h.record != nil && q != nil {
		h.record(q)
	}
}

// normalizeSymbols uppercases and dedups while keeping request order.
func normalizeSymbols(in []string) []string {
	out := util.SplitSymbols(strings.Join(in, ","))
	if len(out) == 0 {
		return in
	}
	return out
}
