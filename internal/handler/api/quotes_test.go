package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TradePulse/internal/domain/models"
	"TradePulse/internal/usecase"
	xlogger "TradePulse/pkg/logger"
)

type stubSnapshots struct {
	quotes map[string]*models.Quote
}

func (s *stubSnapshots) FetchSnapshot(_ context.Context, symbol string) (*models.Quote, error) {
	q, ok := s.quotes[symbol]
	if !ok {
		return nil, errors.New("no snapshot")
	}
	cp := *q
	return &cp, nil
}

type stubBars struct{}

func (stubBars) FetchMinuteBars(context.Context, string, time.Time, time.Time) ([]models.Bar, error) {
	return nil, nil
}

func (stubBars) FetchDailyBars(context.Context, string, time.Time, time.Time) ([]models.Bar, error) {
	return nil, nil
}

type stubIndicators struct{}

func (stubIndicators) FetchTechnicals(context.Context, string) (*models.TechnicalContext, error) {
	return &models.TechnicalContext{}, nil
}

type nopMetrics struct{}

func (nopMetrics) RecordTick(string)               {}
func (nopMetrics) RecordTier(string)               {}
func (nopMetrics) RecordError(string)              {}
func (nopMetrics) RecordLastPrice(string, float64) {}
func (nopMetrics) RecordLatency(string, float64)   {}
func (nopMetrics) RecordStale(string)              {}
func (nopMetrics) RecordRecorded(string, string)   {}

func testHandler(t *testing.T, snaps *stubSnapshots) *QuoteHandler {
	t.Helper()
	log, err := xlogger.New(&xlogger.Config{Level: "error", Format: "console", Output: "stderr"})
	require.NoError(t, err)

	resolver := usecase.NewResolver(nil, stubBars{}, snaps, nil, nopMetrics{}, log, usecase.ResolverConfig{
		StreamTimeout: 10 * time.Millisecond,
		BatchWindow:   20 * time.Millisecond,
	})
	tech := usecase.NewTechnicalsService(stubIndicators{}, nil, nopMetrics{}, log)
	rvol := usecase.NewRVOLEngine(stubBars{}, nil, nopMetrics{}, log, usecase.RVOLConfig{})
	svc := usecase.NewQuoteService(resolver, tech, rvol, nopMetrics{}, log)
	return NewQuoteHandler(log, svc)
}

func freshQuote(symbol string, price float64) *models.Quote {
	return &models.Quote{
		Symbol:        symbol,
		Timestamp:     time.Now().Unix(),
		Close:         price,
		Volume:        20_000_000,
		PreviousClose: price - 2,
		Source:        "snapshot",
	}
}

type envelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func doRequest(t *testing.T, h *QuoteHandler, method, target, body string) envelope {
	t.Helper()
	e := echo.New()
	h.RegisterRoutes(e)

	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func TestSessionEndpoint(t *testing.T) {
	h := testHandler(t, &stubSnapshots{})

	env := doRequest(t, h, http.MethodGet, "/api/session", "")
	assert.Equal(t, http.StatusOK, env.Status)

	var resp SessionResponse
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	assert.NotEmpty(t, resp.Session)
}

func TestQuoteEndpoint(t *testing.T) {
	h := testHandler(t, &stubSnapshots{quotes: map[string]*models.Quote{
		"AAPL": freshQuote("AAPL", 189.50),
	}})

	env := doRequest(t, h, http.MethodGet, "/api/quote/aapl", "")
	require.Equal(t, http.StatusOK, env.Status)

	var q models.Quote
	require.NoError(t, json.Unmarshal(env.Data, &q))
	assert.Equal(t, "AAPL", q.Symbol, "symbols are uppercased")
	assert.Equal(t, 189.50, q.Close)
}

func TestQuoteEndpointNoData(t *testing.T) {
	h := testHandler(t, &stubSnapshots{})

	env := doRequest(t, h, http.MethodGet, "/api/quote/NOPE", "")
	assert.Equal(t, http.StatusNotFound, env.Status)
}

func TestQuotesBatchEndpoint(t *testing.T) {
	h := testHandler(t, &stubSnapshots{quotes: map[string]*models.Quote{
		"AAPL": freshQuote("AAPL", 189.50),
	}})

	env := doRequest(t, h, http.MethodPost, "/api/quotes", `{"symbols":["AAPL","NOPE"]}`)
	require.Equal(t, http.StatusOK, env.Status)

	var list struct {
		Rows  []QuoteEntry `json:"rows"`
		Total int64        `json:"total"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &list))
	require.Len(t, list.Rows, 2)
	assert.NotNil(t, list.Rows[0].Quote)
	assert.Nil(t, list.Rows[1].Quote)
	assert.NotEmpty(t, list.Rows[1].Error)
}

func TestQuotesBatchValidation(t *testing.T) {
	h := testHandler(t, &stubSnapshots{})

	env := doRequest(t, h, http.MethodPost, "/api/quotes", `{"symbols":[]}`)
	assert.Equal(t, http.StatusBadRequest, env.Status)
}

func TestScoreEndpoint(t *testing.T) {
	h := testHandler(t, &stubSnapshots{quotes: map[string]*models.Quote{
		"AAPL": freshQuote("AAPL", 189.50),
	}})

	env := doRequest(t, h, http.MethodPost, "/api/score", `{"symbols":["AAPL"],"strategy":"breakout"}`)
	require.Equal(t, http.StatusOK, env.Status)

	var list struct {
		Rows []usecase.ScoredQuote `json:"rows"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &list))
	require.Len(t, list.Rows, 1)
	require.NotNil(t, list.Rows[0].Breakdown)
	assert.Equal(t, models.StrategyBreakout, list.Rows[0].Breakdown.Strategy)
	assert.NotEmpty(t, list.Rows[0].Signal)
}

func TestScoreEndpointRejectsUnknownStrategy(t *testing.T) {
	h := testHandler(t, &stubSnapshots{})

	env := doRequest(t, h, http.MethodPost, "/api/score", `{"symbols":["AAPL"],"strategy":"yolo"}`)
	assert.Equal(t, http.StatusBadRequest, env.Status)
}

func TestScanEndpoint(t *testing.T) {
	h := testHandler(t, &stubSnapshots{quotes: map[string]*models.Quote{
		"AAPL": freshQuote("AAPL", 189.50),
	}})

	var recorded []*models.Quote
	h.SetRecordFunc(func(q *models.Quote) { recorded = append(recorded, q) })

	env := doRequest(t, h, http.MethodGet, "/api/scan?symbols=AAPL&strategy=momentum", "")
	require.Equal(t, http.StatusOK, env.Status)
	require.Len(t, recorded, 1)
	assert.Equal(t, "AAPL", recorded[0].Symbol)
}

func TestScanEndpointRequiresSymbols(t *testing.T) {
	h := testHandler(t, &stubSnapshots{})

	env := doRequest(t, h, http.MethodGet, "/api/scan", "")
	assert.Equal(t, http.StatusBadRequest, env.Status)
}

type stubHistory struct {
	quotes    []*models.Quote
	lastLimit int
}

func (s *stubHistory) Init(context.Context) error                        { return nil }
func (s *stubHistory) Store(context.Context, *models.Quote) error        { return nil }
func (s *stubHistory) StoreBatch(context.Context, []*models.Quote) error { return nil }
func (s *stubHistory) Health(context.Context) error                      { return nil }
func (s *stubHistory) Close() error                                      { return nil }

func (s *stubHistory) Query(_ context.Context, symbol string, _, _ time.Time, limit int) ([]*models.Quote, error) {
	s.lastLimit = limit
	var out []*models.Quote
	for _, q := range s.quotes {
		if q.Symbol == symbol {
			out = append(out, q)
		}
	}
	return out, nil
}

func TestHistoryEndpoint(t *testing.T) {
	h := testHandler(t, &stubSnapshots{})
	store := &stubHistory{quotes: []*models.Quote{
		freshQuote("AAPL", 189.50),
		freshQuote("TSLA", 244.10),
	}}
	h.SetHistory(store)

	env := doRequest(t, h, http.MethodGet, "/api/quote/AAPL/history?limit=25", "")
	require.Equal(t, http.StatusOK, env.Status)
	assert.Equal(t, 25, store.lastLimit)

	var quotes []*models.Quote
	require.NoError(t, json.Unmarshal(env.Data, &quotes))
	require.Len(t, quotes, 1)
	assert.Equal(t, "AAPL", quotes[0].Symbol)
}

func TestHistoryEndpointDisabled(t *testing.T) {
	h := testHandler(t, &stubSnapshots{})

	env := doRequest(t, h, http.MethodGet, "/api/quote/AAPL/history", "")
	assert.Equal(t, http.StatusNotFound, env.Status)
}

func TestHistoryEndpointRejectsBadLimit(t *testing.T) {
	h := testHandler(t, &stubSnapshots{})
	h.SetHistory(&stubHistory{})

	env := doRequest(t, h, http.MethodGet, "/api/quote/AAPL/history?limit=-1", "")
	assert.Equal(t, http.StatusBadRequest, env.Status)
}
