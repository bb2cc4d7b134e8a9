package bybit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/morroisback/exchange-observer/internal/venue"
)

const (
	// Public endpoints for spot market data
	StreamURL = "wss://stream.bybit.com/v5/public/spot"
	RestURL   = "https://api.bybit.com"
)

// Config overrides the production endpoints, mainly for tests
type Config struct {
	StreamURL  string
	RestURL    string
	HTTPClient *http.Client
}

// Adapter speaks the Bybit v5 spot public market data protocol
type Adapter struct {
	streamURL  string
	restURL    string
	httpClient *http.Client
}

// New creates a Bybit adapter
func New(cfg Config) *Adapter {
	if cfg.StreamURL == "" {
		cfg.StreamURL = StreamURL
	}
	if cfg.RestURL == "" {
		cfg.RestURL = RestURL
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Adapter{
		streamURL:  cfg.StreamURL,
		restURL:    cfg.RestURL,
		httpClient: cfg.HTTPClient,
	}
}

// Venue returns the venue identifier
func (a *Adapter) Venue() venue.Venue {
	return venue.Bybit
}

// StreamURL returns the market data WebSocket endpoint
func (a *Adapter) StreamURL() string {
	return a.streamURL
}

// FetchSymbols returns all spot symbols currently trading
func (a *Adapter) FetchSymbols(ctx context.Context) ([]string, error) {
	url := fmt.Sprintf("%s/v5/market/instruments-info?category=spot", a.restURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch instruments info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}

	var info instrumentsResponse
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("decode instruments info: %w", err)
	}
	if info.RetCode != 0 {
		return nil, fmt.Errorf("instruments info: %s (code %d)", info.RetMsg, info.RetCode)
	}

	symbols := make([]string, 0, len(info.Result.List))
	for _, inst := range info.Result.List {
		if inst.Status == "Trading" {
			symbols = append(symbols, inst.Symbol)
		}
	}
	return symbols, nil
}

// SubscribeFrame encodes a level-1 orderbook subscription for one chunk
func (a *Adapter) SubscribeFrame(symbols []string) ([]byte, error) {
	args := make([]string, 0, len(symbols))
	for _, s := range symbols {
		args = append(args, "orderbook.1."+s)
	}
	return json.Marshal(wsOperation{Op: "subscribe", Args: args})
}

// PingFrame encodes the application-level keepalive
func (a *Adapter) PingFrame() []byte {
	return []byte(`{"op":"ping"}`)
}

// IsPing detects a server keepalive by raw substring
func (a *Adapter) IsPing(frame []byte) bool {
	return bytes.Contains(frame, []byte(`"op":"ping"`))
}

// IsPong detects a keepalive acknowledgement by raw substring
func (a *Adapter) IsPong(frame []byte) bool {
	return bytes.Contains(frame, []byte(`"op":"pong"`))
}

// PongFrame encodes the reply to a server keepalive
func (a *Adapter) PongFrame([]byte) []byte {
	return []byte(`{"op":"pong"}`)
}

// ParseFrame decodes a level-1 orderbook update. Subscribe rejections
// surface as protocol NACK errors, acks and foreign topics decode to nothing.
func (a *Adapter) ParseFrame(frame []byte) ([]venue.Quote, error) {
	var env wsEnvelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return nil, venue.WrapError(venue.Bybit, venue.KindProtocolDecode,
			fmt.Errorf("decode frame: %w", err))
	}

	if env.Op == "subscribe" {
		if !env.Success {
			return nil, venue.Errorf(venue.Bybit, venue.KindProtocolNack,
				"subscription rejected: %s", env.RetMsg)
		}
		return nil, nil
	}

	if !strings.HasPrefix(env.Topic, "orderbook.") {
		return nil, nil
	}

	var book orderbookData
	if err := json.Unmarshal(env.Data, &book); err != nil {
		return nil, venue.WrapError(venue.Bybit, venue.KindProtocolDecode,
			fmt.Errorf("decode orderbook data: %w", err))
	}

	// Delta frames may carry one side only; those never become quotes
	if book.Symbol == "" || len(book.Bids) == 0 || len(book.Asks) == 0 {
		return nil, nil
	}

	q := venue.Quote{Venue: venue.Bybit, Symbol: book.Symbol}
	if len(book.Bids[0]) >= 2 {
		q.Bid = venue.ParseDecimal(book.Bids[0][0])
		q.BidQty = venue.ParseDecimal(book.Bids[0][1])
	}
	if len(book.Asks[0]) >= 2 {
		q.Ask = venue.ParseDecimal(book.Asks[0][0])
		q.AskQty = venue.ParseDecimal(book.Asks[0][1])
	}
	if !q.Bid.Valid && !q.Ask.Valid {
		return nil, nil
	}
	return []venue.Quote{q}, nil
}
