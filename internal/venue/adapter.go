package venue

import "context"

// Adapter is a venue protocol codec. It owns no sockets: the Client dials,
// writes and reads, and the adapter translates between raw frames and quotes.
type Adapter interface {
	// Venue returns the venue this adapter speaks for
	Venue() Venue

	// StreamURL returns the public market data WebSocket endpoint
	StreamURL() string

	// FetchSymbols returns the venue's tradable spot symbols via REST.
	// An empty result is treated by the caller as a session-fatal error.
	FetchSymbols(ctx context.Context) ([]string, error)

	// SubscribeFrame encodes one subscription request for a chunk of
	// symbols. A nil frame means the venue needs no subscription message.
	SubscribeFrame(symbols []string) ([]byte, error)

	// PingFrame encodes an application-level keepalive, or nil when the
	// venue relies on transport-level pings only. Called once per ping
	// interval so time-stamped frames stay fresh.
	PingFrame() []byte

	// IsPing reports whether a frame is a server-initiated keepalive
	IsPing(frame []byte) bool

	// IsPong reports whether a frame acknowledges a client keepalive
	IsPong(frame []byte) bool

	// PongFrame encodes the reply to a server ping, or nil when none is expected
	PongFrame(frame []byte) []byte

	// ParseFrame decodes a data frame into zero or more quotes. Errors are
	// classified (decode failures, subscription rejections) and never end
	// the session.
	ParseFrame(frame []byte) ([]Quote, error)
}
