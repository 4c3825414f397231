package positions

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
)

// epsilon filters float dust left over from fractional-share round trips.
const epsilon = 0.0001

// Position is a net open holding reconstructed from a broker statement.
type Position struct {
	Ticker    string
	Shares    float64
	LastPrice float64
	LastTime  string
}

// tradeActions are the Trading212 statement rows that move a position.
// Dividends, deposits, interest and FX rows are ignored.
var tradeActions = map[string]bool{
	"Market buy":      true,
	"Limit buy":       true,
	"Market sell":     true,
	"Limit sell":      true,
	"Stop limit sell": true,
}

// FromTrading212 replays a Trading212 transaction export and returns the
// net open positions, sorted by ticker. Only holdings with net positive
// shares survive; fully closed round trips cancel out.
func FromTrading212(r io.Reader) ([]Position, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.TrimSpace(name)] = i
	}
	for _, required := range []string{"Action", "Ticker", "Time", "No. of shares", "Price / share"} {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("missing column %q", required)
		}
	}

	open := make(map[string]*Position)
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}

		action := field(row, col, "Action")
		ticker := field(row, col, "Ticker")
		if ticker == "" || !tradeActions[action] {
			continue
		}

		shares := parseFloat(field(row, col, "No. of shares"))
		price := parseFloat(field(row, col, "Price / share"))

		p := open[ticker]
		if p == nil {
			p = &Position{Ticker: ticker}
			open[ticker] = p
		}
		if strings.Contains(strings.ToLower(action), "buy") {
			p.Shares += shares
		} else {
			p.Shares -= shares
		}
		p.LastPrice = price
		p.LastTime = field(row, col, "Time")
	}

	out := make([]Position, 0, len(open))
	for _, p := range open {
		if p.Shares > epsilon {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ticker < out[j].Ticker })
	return out, nil
}

// WriteCSV emits positions in the broker-import layout, one Buy row per
// open holding with a NASDAQ-prefixed symbol.
func WriteCSV(w io.Writer, positions []Position) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Symbol", "Side", "Qty", "Fill Price", "Commission", "Closing Time"}); err != nil {
		return err
	}
	for _, p := range positions {
		row := []string{
			"NASDAQ:" + p.Ticker,
			"Buy",
			strconv.FormatFloat(p.Shares, 'f', -1, 64),
			strconv.FormatFloat(p.LastPrice, 'f', -1, 64),
			"0",
			p.LastTime,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func field(row []string, col map[string]int, name string) string {
	i := col[name]
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func parseFloat(s string) float64 {
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}
