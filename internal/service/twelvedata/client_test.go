package twelvedata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestClient(handler http.HandlerFunc) (*Client, *httptest.Server) {
	server := httptest.NewServer(handler)
	client := New(Config{
		APIKey:       "test-key",
		BaseURL:      server.URL,
		Timeout:      5 * time.Second,
		CallInterval: time.Millisecond,
	})
	return client, server
}

func TestFetchSnapshot(t *testing.T) {
	t.Parallel()

	client, server := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/quote" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("apikey") != "test-key" {
			t.Errorf("missing apikey")
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"symbol": "AAPL",
			"close": "189.50",
			"open": "185.00",
			"high": "190.10",
			"low": "184.90",
			"volume": "52000000",
			"previous_close": "186.00",
			"change": "3.50",
			"percent_change": "1.88",
			"timestamp": 1750000000
		}`))
	})
	defer server.Close()

	q, err := client.FetchSnapshot(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.Close != 189.50 {
		t.Errorf("close = %v", q.Close)
	}
	if q.Volume != 52000000 {
		t.Errorf("volume = %v", q.Volume)
	}
	if q.PreviousClose != 186.00 {
		t.Errorf("previousClose = %v", q.PreviousClose)
	}
	if q.Timestamp != 1750000000 {
		t.Errorf("timestamp = %v", q.Timestamp)
	}
	if q.Source != "snapshot" {
		t.Errorf("source = %q", q.Source)
	}
}

func TestFetchSnapshotAlternateFieldNames(t *testing.T) {
	t.Parallel()

	// Some plan tiers report price/day_volume/last_quote_at instead of
	// close/volume/timestamp.
	client, server := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{
			"symbol": "TSLA",
			"price": "244.40",
			"day_volume": "91000000",
			"last_quote_at": 1750000123
		}`))
	})
	defer server.Close()

	q, err := client.FetchSnapshot(context.Background(), "TSLA")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.Close != 244.40 {
		t.Errorf("close = %v", q.Close)
	}
	if q.Volume != 91000000 {
		t.Errorf("volume = %v", q.Volume)
	}
	if q.Timestamp != 1750000123 {
		t.Errorf("timestamp = %v", q.Timestamp)
	}
}

func TestFetchSnapshotNoPrice(t *testing.T) {
	t.Parallel()

	client, server := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"symbol": "XXXX", "close": "0"}`))
	})
	defer server.Close()

	if _, err := client.FetchSnapshot(context.Background(), "XXXX"); err == nil {
		t.Fatal("expected error for zero price")
	}
}

func TestFetchSnapshotProviderError(t *testing.T) {
	t.Parallel()

	client, server := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status": "error", "message": "symbol not found"}`))
	})
	defer server.Close()

	if _, err := client.FetchSnapshot(context.Background(), "NOPE"); err == nil {
		t.Fatal("expected provider error")
	}
}

func TestFetchMinuteBarsChronological(t *testing.T) {
	t.Parallel()

	client, server := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("interval"); got != "1min" {
			t.Errorf("interval = %s", got)
		}
		// Newest first, as the provider sends them.
		_, _ = w.Write([]byte(`{
			"status": "ok",
			"values": [
				{"datetime": "2025-06-10 09:32:00", "open": "10.1", "high": "10.3", "low": "10.0", "close": "10.2", "volume": "4000"},
				{"datetime": "2025-06-10 09:31:00", "open": "10.0", "high": "10.2", "low": "9.9", "close": "10.1", "volume": "3000"}
			]
		}`))
	})
	defer server.Close()

	from := time.Date(2025, 6, 10, 13, 0, 0, 0, time.UTC)
	bars, err := client.FetchMinuteBars(context.Background(), "ABCD", from, from.Add(time.Hour))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(bars) != 2 {
		t.Fatalf("expected 2 bars, got %d", len(bars))
	}
	if !bars[0].Time.Before(bars[1].Time) {
		t.Errorf("bars not chronological: %v then %v", bars[0].Time, bars[1].Time)
	}
	if bars[1].Close != 10.2 || bars[1].Volume != 4000 {
		t.Errorf("unexpected newest bar: %+v", bars[1])
	}
}

func TestFetchMinuteBarsExchangeTimezone(t *testing.T) {
	t.Parallel()

	client, server := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		// Request bounds and returned datetimes must be in the same zone
		// the client parses with, or every bar shifts by the UTC offset.
		if got := r.URL.Query().Get("timezone"); got != "America/New_York" {
			t.Errorf("timezone = %s", got)
		}
		if got := r.URL.Query().Get("start_date"); got != "2025-06-10 09:00:00" {
			t.Errorf("start_date = %s", got)
		}
		_, _ = w.Write([]byte(`{
			"status": "ok",
			"values": [
				{"datetime": "2025-06-10 14:00:00", "open": "10.0", "high": "10.2", "low": "9.9", "close": "10.1", "volume": "3000"}
			]
		}`))
	})
	defer server.Close()

	from := time.Date(2025, 6, 10, 13, 0, 0, 0, time.UTC)
	bars, err := client.FetchMinuteBars(context.Background(), "ABCD", from, from.Add(6*time.Hour))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(bars) != 1 {
		t.Fatalf("expected 1 bar, got %d", len(bars))
	}
	// 14:00 New York is 18:00 UTC in June.
	want := time.Date(2025, 6, 10, 18, 0, 0, 0, time.UTC)
	if !bars[0].Time.Equal(want) {
		t.Errorf("bar time = %v, want %v", bars[0].Time.UTC(), want)
	}
}

func TestFetchTechnicalsPartialFailure(t *testing.T) {
	t.Parallel()

	client, server := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/sma":
			if r.URL.Query().Get("time_period") == "20" {
				_, _ = w.Write([]byte(`{"status":"ok","values":[{"datetime":"2025-06-10","sma":"184.2"}]}`))
				return
			}
			// 50 and 200 unavailable on this plan
			_, _ = w.Write([]byte(`{"status":"error","message":"upgrade required"}`))
		case "/rsi":
			_, _ = w.Write([]byte(`{"status":"ok","values":[{"datetime":"2025-06-10","rsi":"61.3"}]}`))
		case "/macd":
			_, _ = w.Write([]byte(`{"status":"ok","values":[{"datetime":"2025-06-10","macd":"1.2","macd_signal":"0.8","macd_hist":"0.4"}]}`))
		default:
			http.NotFound(w, r)
		}
	})
	defer server.Close()

	tc, err := client.FetchTechnicals(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tc.SMA20 == nil || *tc.SMA20 != 184.2 {
		t.Errorf("sma20 = %v", tc.SMA20)
	}
	if tc.SMA50 != nil || tc.SMA200 != nil {
		t.Errorf("expected nil sma50/sma200, got %v %v", tc.SMA50, tc.SMA200)
	}
	if tc.RSI14 == nil || *tc.RSI14 != 61.3 {
		t.Errorf("rsi = %v", tc.RSI14)
	}
	if tc.MACDHist == nil || *tc.MACDHist != 0.4 {
		t.Errorf("macd hist = %v", tc.MACDHist)
	}
}
