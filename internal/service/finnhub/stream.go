// Package finnhub implements the streaming quote feed over the Finnhub
// WebSocket API.
package finnhub

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"TradePulse/internal/domain/models"
	drepo "TradePulse/internal/domain/repository"
	"TradePulse/pkg/logger"
)

// Stream is the single long-lived streaming connection. It is owned by
// whoever constructs it and passed by handle to the resolver; lifecycle is
// Connect -> Subscribe*/Unsubscribe* -> Close. Connect is idempotent and
// subscriptions are reference counted so overlapping requests for the same
// symbol do not cancel each other.
type Stream struct {
	apiKey       string
	websocketURL string
	pingInterval time.Duration
	log          *logger.Logger

	mu        sync.Mutex
	conn      *websocket.Conn
	connected bool
	refs      map[string]int

	ticks chan models.Tick
	errs  chan error
}

var _ drepo.MarketStream = (*Stream)(nil)

// New creates a disconnected stream handle.
func New(apiKey, websocketURL string, pingInterval time.Duration, log *logger.Logger) *Stream {
	if pingInterval <= 0 {
		pingInterval = 20 * time.Second
	}
	return &Stream{
		apiKey:       apiKey,
		websocketURL: websocketURL,
		pingInterval: pingInterval,
		log:          log,
		refs:         make(map[string]int),
		ticks:        make(chan models.Tick, 1024),
		errs:         make(chan error, 8),
	}
}

// Connect dials the WebSocket. Safe to call when already connected.
func (s *Stream) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.connected {
		return nil
	}

	u := fmt.Sprintf("%s?token=%s", s.websocketURL, s.apiKey)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u, nil)
	if err != nil {
		return fmt.Errorf("finnhub connect: %w", err)
	}
	s.conn = conn
	s.connected = true

	go s.pingLoop(conn)
	go s.readLoop(conn)

	// Re-establish subscriptions that outlived a reconnect.
	for sym := range s.refs {
		if err := conn.WriteJSON(map[string]string{"type": "subscribe", "symbol": sym}); err != nil {
			s.log.Warn("resubscribe failed", logger.String("symbol", sym), logger.Error(err))
		}
	}
	s.log.Info("finnhub connected")
	return nil
}

// Subscribe registers interest in symbols. The wire subscription is sent
// only on the first reference.
func (s *Stream) Subscribe(ctx context.Context, symbols ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.connected || s.conn == nil {
		return fmt.Errorf("finnhub: not connected")
	}
	for _, sym := range symbols {
		s.refs[sym]++
		if s.refs[sym] > 1 {
			continue
		}
		if err := s.conn.WriteJSON(map[string]string{"type": "subscribe", "symbol": sym}); err != nil {
			s.refs[sym]--
			return fmt.Errorf("subscribe %s: %w", sym, err)
		}
	}
	return nil
}

// Unsubscribe releases interest in symbols. The wire unsubscription is sent
// when the last reference is released. Unsubscribing a symbol that was
// never subscribed is a no-op, so error paths can release unconditionally.
func (s *Stream) Unsubscribe(ctx context.Context, symbols ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sym := range symbols {
		n, ok := s.refs[sym]
		if !ok {
			continue
		}
		if n > 1 {
			s.refs[sym] = n - 1
			continue
		}
		delete(s.refs, sym)
		if s.connected && s.conn != nil {
			if err := s.conn.WriteJSON(map[string]string{"type": "unsubscribe", "symbol": sym}); err != nil {
				s.log.Warn("unsubscribe failed", logger.String("symbol", sym), logger.Error(err))
			}
		}
	}
	return nil
}

// Ticks returns the shared tick channel.
func (s *Stream) Ticks() <-chan models.Tick { return s.ticks }

// Errs returns the stream error channel.
func (s *Stream) Errs() <-chan error { return s.errs }

// IsConnected reports connection status.
func (s *Stream) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

// Close tears the connection down.
func (s *Stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = false
	if s.conn != nil {
		err := s.conn.Close()
		s.conn = nil
		return err
	}
	return nil
}

func (s *Stream) pingLoop(conn *websocket.Conn) {
	ticker := time.NewTicker(s.pingInterval)
	defer ticker.Stop()
	for range ticker.C {
		// The write must happen under the same mutex as the subscribe
		// writes; the connection allows only one concurrent writer.
		s.mu.Lock()
		if !s.connected || s.conn != conn {
			s.mu.Unlock()
			return
		}
		_ = conn.WriteMessage(websocket.PingMessage, nil)
		s.mu.Unlock()
	}
}

func (s *Stream) readLoop(conn *websocket.Conn) {
	for {
		_, b, err := conn.ReadMessage()
		if err != nil {
			s.mu.Lock()
			if s.conn == conn {
				s.connected = false
			}
			s.mu.Unlock()
			select {
			case s.errs <- fmt.Errorf("finnhub read: %w", err):
			default:
			}
			return
		}
		for _, tick := range parseTicks(b) {
			select {
			case s.ticks <- tick:
			default:
				// drop on backpressure; ticks are superseded constantly
			}
		}
	}
}

type tradeFrame struct {
	Type string `json:"type"`
	Data []struct {
		S string  `json:"s"`
		P float64 `json:"p"`
		V float64 `json:"v"`
		T int64   `json:"t"` // ms
	} `json:"data"`
}

// parseTicks extracts trade ticks from one WS frame. Non-trade frames
// (pings, acks) yield nothing.
func parseTicks(b []byte) []models.Tick {
	var frame tradeFrame
	if err := json.Unmarshal(b, &frame); err != nil || frame.Type != "trade" {
		return nil
	}
	out := make([]models.Tick, 0, len(frame.Data))
	for _, d := range frame.Data {
		if d.S == "" || d.P <= 0 {
			continue
		}
		out = append(out, models.Tick{
			Symbol:    d.S,
			Price:     d.P,
			Volume:    d.V,
			Timestamp: d.T,
		})
	}
	return out
}
