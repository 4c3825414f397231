// Package twelvedata implements the REST quote, bar-history, and indicator
// sources against the Twelve Data API.
package twelvedata

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"TradePulse/internal/domain/models"
	drepo "TradePulse/internal/domain/repository"
	xhttp "TradePulse/pkg/http"
	"TradePulse/pkg/util"
)

// Config holds the REST provider settings.
type Config struct {
	APIKey       string
	BaseURL      string
	Timeout      time.Duration
	CallInterval time.Duration // minimum spacing between REST calls
}

// Client is a thin adapter over the Twelve Data REST endpoints. It never
// retries; fallback policy lives in the resolver. Calls are spaced by a
// limiter to respect provider rate limits.
type Client struct {
	cfg     Config
	http    *xhttp.Client
	limiter *rate.Limiter
}

var (
	_ drepo.SnapshotSource  = (*Client)(nil)
	_ drepo.BarSource       = (*Client)(nil)
	_ drepo.IndicatorSource = (*Client)(nil)
)

// New creates a Twelve Data client.
func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.CallInterval <= 0 {
		cfg.CallInterval = 200 * time.Millisecond
	}
	return &Client{
		cfg:     cfg,
		http:    xhttp.NewClient(xhttp.WithTimeout(cfg.Timeout)),
		limiter: rate.NewLimiter(rate.Every(cfg.CallInterval), 1),
	}
}

// get performs one rate-limited GET and decodes the JSON body into dest.
func (c *Client) get(ctx context.Context, path string, params map[string][]string, dest any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate wait: %w", err)
	}
	params["apikey"] = []string{c.cfg.APIKey}
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method:      xhttp.MethodGet,
		URL:         c.cfg.BaseURL + path,
		QueryParams: params,
	}, dest)
	if err != nil {
		return fmt.Errorf("twelvedata %s: %w", path, err)
	}
	return nil
}

// FetchSnapshot returns the provider's last-quote view for one symbol,
// volume and timestamp taken as reported.
func (c *Client) FetchSnapshot(ctx context.Context, symbol string) (*models.Quote, error) {
	var raw map[string]any
	if err := c.get(ctx, "/quote", map[string][]string{
		"symbol":   {symbol},
		"timezone": {util.ExchangeTZ},
	}, &raw); err != nil {
		return nil, err
	}
	if status, _ := raw["status"].(string); status == "error" {
		msg, _ := raw["message"].(string)
		return nil, fmt.Errorf("twelvedata quote %s: %s", symbol, msg)
	}

	price, ok := pickFloat(raw, priceKeys)
	if !ok || price <= 0 {
		return nil, fmt.Errorf("twelvedata quote %s: no usable price", symbol)
	}

	q := &models.Quote{
		Symbol:        symbol,
		Close:         price,
		Open:          pickFloatDefault(raw, openKeys, 0),
		High:          pickFloatDefault(raw, highKeys, 0),
		Low:           pickFloatDefault(raw, lowKeys, 0),
		Volume:        int64(pickFloatDefault(raw, volumeKeys, 0)),
		PreviousClose: pickFloatDefault(raw, prevCloseKeys, 0),
		Change:        pickFloatDefault(raw, changeKeys, 0),
		ChangePercent: pickFloatDefault(raw, changePctKeys, 0),
		Source:        "snapshot",
	}
	if ts, ok := pickTime(raw, timeKeys); ok {
		q.Timestamp = ts.Unix()
	} else {
		q.Timestamp = time.Now().Unix()
	}
	return q, nil
}

// timeSeriesResponse is the shared shape of /time_series payloads.
type timeSeriesResponse struct {
	Status  string           `json:"status"`
	Message string           `json:"message,omitempty"`
	Values  []map[string]any `json:"values"`
}

// FetchMinuteBars returns 1-minute bars for [from, to], oldest first.
func (c *Client) FetchMinuteBars(ctx context.Context, symbol string, from, to time.Time) ([]models.Bar, error) {
	return c.fetchSeries(ctx, symbol, "1min", from, to)
}

// FetchDailyBars returns daily bars for [from, to], oldest first.
func (c *Client) FetchDailyBars(ctx context.Context, symbol string, from, to time.Time) ([]models.Bar, error) {
	return c.fetchSeries(ctx, symbol, "1day", from, to)
}

func (c *Client) fetchSeries(ctx context.Context, symbol, interval string, from, to time.Time) ([]models.Bar, error) {
	var body timeSeriesResponse
	params := map[string][]string{
		"symbol":     {symbol},
		"interval":   {interval},
		// Bounds and returned datetimes must share a zone: bar datetime
		// strings are parsed in exchange time (util.ParseTime), so the
		// request is pinned to the same zone.
		"start_date": {util.ExchangeTime(from).Format("2006-01-02 15:04:05")},
		"end_date":   {util.ExchangeTime(to).Format("2006-01-02 15:04:05")},
		"timezone":   {util.ExchangeTZ},
		"outputsize": {"5000"},
	}
	if err := c.get(ctx, "/time_series", params, &body); err != nil {
		return nil, err
	}
	if body.Status == "error" {
		return nil, fmt.Errorf("twelvedata series %s/%s: %s", symbol, interval, body.Message)
	}

	bars := make([]models.Bar, 0, len(body.Values))
	for _, v := range body.Values {
		ts, ok := pickTime(v, timeKeys)
		if !ok {
			continue
		}
		bar := models.Bar{
			Time:   ts,
			Open:   pickFloatDefault(v, openKeys, 0),
			High:   pickFloatDefault(v, highKeys, 0),
			Low:    pickFloatDefault(v, lowKeys, 0),
			Close:  pickFloatDefault(v, priceKeys, 0),
			Volume: int64(pickFloatDefault(v, volumeKeys, 0)),
		}
		if bar.Close <= 0 {
			continue
		}
		bars = append(bars, bar)
	}
	// Provider returns newest first; callers want chronological order.
	sort.Slice(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	return bars, nil
}

// indicatorResponse is the shared shape of indicator endpoint payloads.
type indicatorResponse struct {
	Status  string           `json:"status"`
	Message string           `json:"message,omitempty"`
	Values  []map[string]any `json:"values"`
}

// latestIndicator fetches one indicator endpoint and extracts the newest
// value under valueKey.
func (c *Client) latestIndicator(ctx context.Context, path, symbol, valueKey string, params map[string][]string) (*float64, error) {
	if params == nil {
		params = map[string][]string{}
	}
	params["symbol"] = []string{symbol}
	params["interval"] = []string{"1day"}
	params["outputsize"] = []string{"1"}

	var body indicatorResponse
	if err := c.get(ctx, path, params, &body); err != nil {
		return nil, err
	}
	if body.Status == "error" {
		return nil, fmt.Errorf("twelvedata %s %s: %s", path, symbol, body.Message)
	}
	if len(body.Values) == 0 {
		return nil, nil // absent is a valid state, not an error
	}
	if f, ok := pickFloat(body.Values[0], []string{valueKey}); ok {
		return &f, nil
	}
	return nil, nil
}

// FetchTechnicals retrieves SMA20/50/200, RSI14, and MACD concurrently.
// Each indicator fails independently; a missing one is a nil field.
func (c *Client) FetchTechnicals(ctx context.Context, symbol string) (*models.TechnicalContext, error) {
	tc := &models.TechnicalContext{Symbol: symbol}

	type fetch struct {
		assign func(*float64)
		run    func() (*float64, error)
	}
	smaParams := func(period int) map[string][]string {
		return map[string][]string{"time_period": {strconv.Itoa(period)}}
	}
	fetches := []fetch{
		{func(v *float64) { tc.SMA20 = v }, func() (*float64, error) {
			return c.latestIndicator(ctx, "/sma", symbol, "sma", smaParams(20))
		}},
		{func(v *float64) { tc.SMA50 = v }, func() (*float64, error) {
			return c.latestIndicator(ctx, "/sma", symbol, "sma", smaParams(50))
		}},
		{func(v *float64) { tc.SMA200 = v }, func() (*float64, error) {
			return c.latestIndicator(ctx, "/sma", symbol, "sma", smaParams(200))
		}},
		{func(v *float64) { tc.RSI14 = v }, func() (*float64, error) {
			return c.latestIndicator(ctx, "/rsi", symbol, "rsi", smaParams(14))
		}},
	}

	type result struct {
		idx int
		val *float64
	}
	ch := make(chan result, len(fetches)+1)
	for i, fx := range fetches {
		go func(i int, fx fetch) {
			v, err := fx.run()
			if err != nil {
				v = nil
			}
			ch <- result{i, v}
		}(i, fx)
	}

	macdCh := make(chan *models.TechnicalContext, 1)
	go func() {
		macd, err := c.fetchMACD(ctx, symbol)
		if err != nil {
			macd = nil
		}
		macdCh <- macd
	}()

	for range fetches {
		r := <-ch
		fetches[r.idx].assign(r.val)
	}
	if macd := <-macdCh; macd != nil {
		tc.MACD = macd.MACD
		tc.MACDSignal = macd.MACDSignal
		tc.MACDHist = macd.MACDHist
	}
	return tc, nil
}

func (c *Client) fetchMACD(ctx context.Context, symbol string) (*models.TechnicalContext, error) {
	var body indicatorResponse
	params := map[string][]string{
		"symbol":     {symbol},
		"interval":   {"1day"},
		"outputsize": {"1"},
	}
	if err := c.get(ctx, "/macd", params, &body); err != nil {
		return nil, err
	}
	if body.Status == "error" || len(body.Values) == 0 {
		return nil, nil
	}
	v := body.Values[0]
	out := &models.TechnicalContext{}
	if f, ok := pickFloat(v, []string{"macd"}); ok {
		out.MACD = &f
	}
	if f, ok := pickFloat(v, []string{"macd_signal", "signal"}); ok {
		out.MACDSignal = &f
	}
	if f, ok := pickFloat(v, []string{"macd_hist", "histogram", "hist"}); ok {
		out.MACDHist = &f
	}
	return out, nil
}
