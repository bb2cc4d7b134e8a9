package venue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	// Session tuning shared by all venue clients
	MaxArgsPerMessage    = 10
	PingInterval         = 20 * time.Second
	ReadTimeout          = 25 * time.Second
	WriteTimeout         = 10 * time.Second
	DialTimeout          = 10 * time.Second
	ReconnectMaxDelay    = 120 * time.Second
	ReconnectMaxAttempts = 5
	ShutdownDeadline     = 5 * time.Second
)

// State represents the lifecycle phase of a venue session
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateSubscribing
	StateStreaming
	StateBackoff
	StateDisconnecting
)

// String returns the log-friendly name of the state
func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateSubscribing:
		return "subscribing"
	case StateStreaming:
		return "streaming"
	case StateBackoff:
		return "backoff"
	case StateDisconnecting:
		return "disconnecting"
	default:
		return "idle"
	}
}

// ClientConfig tunes a venue client. Zero values fall back to the package defaults.
type ClientConfig struct {
	DialTimeout          time.Duration
	PingInterval         time.Duration
	ReadTimeout          time.Duration
	WriteTimeout         time.Duration
	ReconnectMaxDelay    time.Duration
	ReconnectMaxAttempts int
	MaxArgsPerMessage    int
	ShutdownDeadline     time.Duration
}

func (cfg ClientConfig) withDefaults() ClientConfig {
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = DialTimeout
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = PingInterval
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = ReadTimeout
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = WriteTimeout
	}
	if cfg.ReconnectMaxDelay <= 0 {
		cfg.ReconnectMaxDelay = ReconnectMaxDelay
	}
	if cfg.ReconnectMaxAttempts <= 0 {
		cfg.ReconnectMaxAttempts = ReconnectMaxAttempts
	}
	if cfg.MaxArgsPerMessage <= 0 {
		cfg.MaxArgsPerMessage = MaxArgsPerMessage
	}
	if cfg.ShutdownDeadline <= 0 {
		cfg.ShutdownDeadline = ShutdownDeadline
	}
	return cfg
}

// Client maintains one long-lived market data session against a venue,
// reconnecting with exponential backoff until stopped. All listener
// callbacks for a session are delivered from a single goroutine in the
// order OnConnected, zero or more OnQuote/OnError, OnDisconnected.
type Client struct {
	adapter  Adapter
	listener Listener
	cfg      ClientConfig

	mu      sync.Mutex // guards lifecycle fields below
	running bool
	ctx     context.Context
	cancel  context.CancelFunc
	stopped chan struct{}
	conn    *websocket.Conn
	state   State

	writeMu sync.Mutex // serializes socket writes within a session
}

// NewClient creates a client for one venue. A nil listener discards events.
func NewClient(adapter Adapter, listener Listener, cfg ClientConfig) *Client {
	if listener == nil {
		listener = NopListener{}
	}
	return &Client{
		adapter:  adapter,
		listener: listener,
		cfg:      cfg.withDefaults(),
	}
}

// Venue returns the venue this client observes
func (c *Client) Venue() Venue {
	return c.adapter.Venue()
}

// State returns the current session state
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Start launches the session supervisor. Calling Start on a running
// client is a no-op.
func (c *Client) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return
	}
	c.running = true
	c.ctx, c.cancel = context.WithCancel(context.Background())
	c.stopped = make(chan struct{})
	go c.run(c.ctx, c.stopped)
	log.Info().Str("venue", string(c.adapter.Venue())).Msg("venue client started")
}

// Stop closes the live session and waits for the supervisor to exit,
// bounded by the shutdown deadline. Calling Stop on a stopped client is
// a no-op.
func (c *Client) Stop() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	c.running = false
	c.state = StateDisconnecting
	cancel := c.cancel
	stopped := c.stopped
	conn := c.conn
	c.mu.Unlock()

	cancel()
	if conn != nil {
		conn.Close()
	}

	select {
	case <-stopped:
	case <-time.After(c.cfg.ShutdownDeadline):
		log.Warn().Str("venue", string(c.adapter.Venue())).Msg("venue client did not stop within deadline")
	}

	c.setState(StateIdle)
	log.Info().Str("venue", string(c.adapter.Venue())).Msg("venue client stopped")
}

// run is the supervisor loop: dial, stream, back off, repeat
func (c *Client) run(ctx context.Context, stopped chan struct{}) {
	defer close(stopped)

	v := c.adapter.Venue()
	attempt := 0
	capReported := false

	for {
		if ctx.Err() != nil {
			return
		}

		c.setState(StateConnecting)
		conn, err := c.dial(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.listener.OnError(v, WrapError(v, KindTransientNetwork, err))
			attempt++
			if !c.backoff(ctx, v, attempt, &capReported) {
				return
			}
			continue
		}

		if !c.adoptConn(ctx, conn) {
			conn.Close()
			return
		}

		// Successful connect resets the backoff streak
		attempt = 0
		capReported = false
		log.Info().Str("venue", string(v)).Str("url", c.adapter.StreamURL()).Msg("connected to market data stream")
		c.listener.OnConnected(v)

		c.runSession(ctx, conn)

		c.releaseConn(conn)
		conn.Close()
		c.listener.OnDisconnected(v)
		log.Info().Str("venue", string(v)).Msg("market data session ended")

		if ctx.Err() != nil {
			return
		}
		attempt++
		if !c.backoff(ctx, v, attempt, &capReported) {
			return
		}
	}
}

// runSession discovers symbols, subscribes and pumps frames until the
// session dies or the client is stopped
func (c *Client) runSession(ctx context.Context, conn *websocket.Conn) {
	v := c.adapter.Venue()

	c.setState(StateSubscribing)

	symbols, err := c.adapter.FetchSymbols(ctx)
	if err != nil {
		if ctx.Err() == nil {
			c.listener.OnError(v, WrapError(v, KindSymbolDiscovery, err))
		}
		return
	}
	if len(symbols) == 0 {
		c.listener.OnError(v, Errorf(v, KindSymbolDiscovery, "no tradable symbols discovered"))
		return
	}
	log.Info().Str("venue", string(v)).Int("symbols", len(symbols)).Msg("discovered tradable symbols")

	if err := c.subscribe(conn, symbols); err != nil {
		if ctx.Err() == nil {
			c.listener.OnError(v, WrapError(v, KindTransientNetwork, err))
		}
		return
	}

	c.setState(StateStreaming)

	sessionDone := make(chan struct{})
	defer close(sessionDone)
	if c.adapter.PingFrame() != nil {
		go c.heartbeat(conn, sessionDone)
	}

	for {
		if ctx.Err() != nil {
			return
		}
		conn.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout))
		_, frame, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				c.listener.OnError(v, WrapError(v, KindTransientNetwork, fmt.Errorf("read failed: %w", err)))
			}
			return
		}
		c.handleFrame(conn, frame)
	}
}

// handleFrame classifies one inbound frame and dispatches it
func (c *Client) handleFrame(conn *websocket.Conn, frame []byte) {
	v := c.adapter.Venue()

	if c.adapter.IsPing(frame) {
		if pong := c.adapter.PongFrame(frame); pong != nil {
			if err := c.write(conn, pong); err != nil {
				log.Debug().Err(err).Str("venue", string(v)).Msg("pong write failed")
			}
		}
		return
	}
	if c.adapter.IsPong(frame) {
		return
	}

	quotes, err := c.adapter.ParseFrame(frame)
	if err != nil {
		var ve *Error
		if !errors.As(err, &ve) {
			err = WrapError(v, KindProtocolDecode, err)
		}
		c.listener.OnError(v, err)
		return
	}
	for _, q := range quotes {
		c.listener.OnQuote(q)
	}
}

// subscribe writes one subscription frame per symbol chunk, in order
func (c *Client) subscribe(conn *websocket.Conn, symbols []string) error {
	for _, chunk := range chunkSymbols(symbols, c.cfg.MaxArgsPerMessage) {
		frame, err := c.adapter.SubscribeFrame(chunk)
		if err != nil {
			return fmt.Errorf("encode subscribe request: %w", err)
		}
		if frame == nil {
			continue
		}
		if err := c.write(conn, frame); err != nil {
			return fmt.Errorf("send subscribe request: %w", err)
		}
	}
	return nil
}

// heartbeat sends application-level pings until the session ends
func (c *Client) heartbeat(conn *websocket.Conn, sessionDone <-chan struct{}) {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-sessionDone:
			return
		case <-ticker.C:
			frame := c.adapter.PingFrame()
			if frame == nil {
				return
			}
			if err := c.write(conn, frame); err != nil {
				log.Debug().Err(err).Str("venue", string(c.adapter.Venue())).Msg("ping write failed")
				return
			}
		}
	}
}

// write sends one text frame, serialized against other session writes
func (c *Client) write(conn *websocket.Conn, frame []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
	return conn.WriteMessage(websocket.TextMessage, frame)
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: c.cfg.DialTimeout}
	dialCtx, cancel := context.WithTimeout(ctx, c.cfg.DialTimeout)
	defer cancel()

	conn, _, err := dialer.DialContext(dialCtx, c.adapter.StreamURL(), nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial failed: %w", err)
	}
	return conn, nil
}

// adoptConn publishes the session socket so Stop can close it. Returns
// false when the client was stopped while dialing.
func (c *Client) adoptConn(ctx context.Context, conn *websocket.Conn) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running || ctx.Err() != nil {
		return false
	}
	c.conn = conn
	return true
}

func (c *Client) releaseConn(conn *websocket.Conn) {
	c.mu.Lock()
	if c.conn == conn {
		c.conn = nil
	}
	c.mu.Unlock()
}

func (c *Client) setState(s State) {
	c.mu.Lock()
	prev := c.state
	c.state = s
	c.mu.Unlock()
	if prev != s {
		log.Debug().
			Str("venue", string(c.adapter.Venue())).
			Str("from", prev.String()).
			Str("to", s.String()).
			Msg("session state changed")
	}
}

// backoff reports the capped streak once, then sleeps min(2^attempt
// seconds, max delay). Returns false when the client was stopped.
func (c *Client) backoff(ctx context.Context, v Venue, attempt int, capReported *bool) bool {
	if attempt > c.cfg.ReconnectMaxAttempts && !*capReported {
		*capReported = true
		c.listener.OnError(v, Errorf(v, KindTransientNetwork,
			"reconnect attempts exceeded %d, continuing with capped delay", c.cfg.ReconnectMaxAttempts))
	}

	delay := backoffDelay(attempt, c.cfg.ReconnectMaxDelay)
	c.setState(StateBackoff)
	log.Warn().Str("venue", string(v)).Int("attempt", attempt).Dur("delay", delay).Msg("reconnecting after backoff")

	t := time.NewTimer(delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// backoffDelay doubles per attempt and saturates at max
func backoffDelay(attempt int, max time.Duration) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 30 {
		return max
	}
	d := time.Duration(1<<uint(attempt)) * time.Second
	if d > max {
		d = max
	}
	return d
}

// chunkSymbols splits symbols into runs of at most size, preserving order
func chunkSymbols(symbols []string, size int) [][]string {
	if size <= 0 || len(symbols) == 0 {
		return nil
	}
	chunks := make([][]string, 0, (len(symbols)+size-1)/size)
	for start := 0; start < len(symbols); start += size {
		end := start + size
		if end > len(symbols) {
			end = len(symbols)
		}
		chunks = append(chunks, symbols[start:end])
	}
	return chunks
}
