package binance

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/morroisback/exchange-observer/internal/venue"
)

const (
	// Public endpoints for spot market data
	StreamURL = "wss://stream.binance.com:9443/ws/!ticker@arr"
	RestURL   = "https://api.binance.com"
)

// Config overrides the production endpoints, mainly for tests
type Config struct {
	StreamURL  string
	RestURL    string
	HTTPClient *http.Client
}

// Adapter speaks the Binance spot public market data protocol. The
// combined all-tickers stream pushes the full book top for every symbol,
// so no subscription messages and no application-level pings are needed.
type Adapter struct {
	streamURL  string
	restURL    string
	httpClient *http.Client
}

// New creates a Binance adapter
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
	return venue.Binance
}

// StreamURL returns the market data WebSocket endpoint
func (a *Adapter) StreamURL() string {
	return a.streamURL
}

// FetchSymbols returns all spot symbols currently trading
func (a *Adapter) FetchSymbols(ctx context.Context) ([]string, error) {
	url := fmt.Sprintf("%s/api/v3/exchangeInfo?permissions=SPOT", a.restURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch exchange info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}

	var info exchangeInfoResponse
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("decode exchange info: %w", err)
	}

	symbols := make([]string, 0, len(info.Symbols))
	for _, s := range info.Symbols {
		if s.Status == "TRADING" {
			symbols = append(symbols, s.Symbol)
		}
	}
	return symbols, nil
}

// SubscribeFrame returns nil: the combined stream needs no subscription
func (a *Adapter) SubscribeFrame([]string) ([]byte, error) {
	return nil, nil
}

// PingFrame returns nil: Binance uses transport-level pings only
func (a *Adapter) PingFrame() []byte {
	return nil
}

// IsPing always reports false, keepalives never arrive as data frames
func (a *Adapter) IsPing([]byte) bool {
	return false
}

// IsPong always reports false
func (a *Adapter) IsPong([]byte) bool {
	return false
}

// PongFrame returns nil
func (a *Adapter) PongFrame([]byte) []byte {
	return nil
}

// ParseFrame decodes a 24hr ticker event batch. Combined-stream frames
// arrive as arrays, single-stream frames as bare objects.
func (a *Adapter) ParseFrame(frame []byte) ([]venue.Quote, error) {
	data := bytes.TrimSpace(frame)
	if len(data) == 0 {
		return nil, nil
	}

	var events []tickerEvent
	if data[0] == '[' {
		if err := json.Unmarshal(data, &events); err != nil {
			return nil, venue.WrapError(venue.Binance, venue.KindProtocolDecode,
				fmt.Errorf("decode ticker batch: %w", err))
		}
	} else {
		var ev tickerEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, venue.WrapError(venue.Binance, venue.KindProtocolDecode,
				fmt.Errorf("decode ticker event: %w", err))
		}
		events = append(events, ev)
	}

	quotes := make([]venue.Quote, 0, len(events))
	for _, ev := range events {
		if ev.Event != "24hrTicker" || ev.Symbol == "" {
			continue
		}
		q := venue.Quote{
			Venue:  venue.Binance,
			Symbol: ev.Symbol,
			Bid:    venue.ParseDecimal(ev.BidPrice),
			BidQty: venue.ParseDecimal(ev.BidQty),
			Ask:    venue.ParseDecimal(ev.AskPrice),
			AskQty: venue.ParseDecimal(ev.AskQty),
		}
		if !q.Bid.Valid && !q.Ask.Valid {
			continue
		}
		quotes = append(quotes, q)
	}
	return quotes, nil
}
