package gateio

import (
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
	StreamURL = "wss://api.gateio.ws/ws/v4/"
	RestURL   = "https://api.gateio.ws"
)

// Config overrides the production endpoints, mainly for tests
type Config struct {
	StreamURL  string
	RestURL    string
	HTTPClient *http.Client
}

// Adapter speaks the Gate.io v4 spot public market data protocol.
// Gate symbols are underscored pairs like BTC_USDT; subscriptions use the
// native form while emitted quotes carry the stripped BTCUSDT form so the
// scanner can match symbols across venues.
type Adapter struct {
	streamURL  string
	restURL    string
	httpClient *http.Client
}

// New creates a Gate.io adapter
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
	return venue.GateIO
}

// StreamURL returns the market data WebSocket endpoint
func (a *Adapter) StreamURL() string {
	return a.streamURL
}

// FetchSymbols returns all tradable spot pairs in venue-native form
func (a *Adapter) FetchSymbols(ctx context.Context) ([]string, error) {
	url := fmt.Sprintf("%s/api/v4/spot/currency_pairs", a.restURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch currency pairs: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}

	var pairs []currencyPair
	if err := json.NewDecoder(resp.Body).Decode(&pairs); err != nil {
		return nil, fmt.Errorf("decode currency pairs: %w", err)
	}

	symbols := make([]string, 0, len(pairs))
	for _, p := range pairs {
		if p.TradeStatus == "tradable" {
			symbols = append(symbols, p.ID)
		}
	}
	return symbols, nil
}

// SubscribeFrame encodes a book ticker subscription for one chunk
func (a *Adapter) SubscribeFrame(symbols []string) ([]byte, error) {
	return json.Marshal(wsRequest{
		Time:    time.Now().Unix(),
		Channel: "spot.book_ticker",
		Event:   "subscribe",
		Payload: symbols,
	})
}

// PingFrame encodes the application-level keepalive
func (a *Adapter) PingFrame() []byte {
	frame, _ := json.Marshal(wsRequest{Time: time.Now().Unix(), Channel: "spot.ping"})
	return frame
}

// IsPing detects a server keepalive by channel
func (a *Adapter) IsPing(frame []byte) bool {
	return frameChannel(frame) == "spot.ping"
}

// IsPong detects a keepalive acknowledgement by channel
func (a *Adapter) IsPong(frame []byte) bool {
	return frameChannel(frame) == "spot.pong"
}

// PongFrame encodes the reply to a server keepalive
func (a *Adapter) PongFrame([]byte) []byte {
	frame, _ := json.Marshal(wsRequest{Time: time.Now().Unix(), Channel: "spot.pong"})
	return frame
}

// ParseFrame decodes a book ticker update. Subscribe rejections surface
// as protocol NACK errors, acks and foreign channels decode to nothing.
func (a *Adapter) ParseFrame(frame []byte) ([]venue.Quote, error) {
	var env wsEnvelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return nil, venue.WrapError(venue.GateIO, venue.KindProtocolDecode,
			fmt.Errorf("decode frame: %w", err))
	}

	if env.Event == "subscribe" {
		if env.Error != nil {
			return nil, venue.Errorf(venue.GateIO, venue.KindProtocolNack,
				"subscription rejected: %s (code %d)", env.Error.Message, env.Error.Code)
		}
		return nil, nil
	}

	if env.Event != "update" || !strings.Contains(env.Channel, "book_ticker") {
		return nil, nil
	}

	var tick bookTicker
	if err := json.Unmarshal(env.Result, &tick); err != nil {
		return nil, venue.WrapError(venue.GateIO, venue.KindProtocolDecode,
			fmt.Errorf("decode book ticker: %w", err))
	}
	if tick.Symbol == "" {
		return nil, nil
	}

	q := venue.Quote{
		Venue:  venue.GateIO,
		Symbol: strings.ReplaceAll(tick.Symbol, "_", ""),
		Bid:    venue.ParseDecimal(tick.Bid),
		BidQty: venue.ParseDecimal(tick.BidQty),
		Ask:    venue.ParseDecimal(tick.Ask),
		AskQty: venue.ParseDecimal(tick.AskQty),
	}
	if !q.Bid.Valid && !q.Ask.Valid {
		return nil, nil
	}
	return []venue.Quote{q}, nil
}

// frameChannel extracts the channel field without decoding the whole frame
func frameChannel(frame []byte) string {
	var env struct {
		Channel string `json:"channel"`
	}
	if err := json.Unmarshal(frame, &env); err != nil {
		return ""
	}
	return env.Channel
}
