package venue

// Listener receives session lifecycle events and decoded quotes.
// For any single session the client guarantees the order
// OnConnected, zero or more OnQuote/OnError, OnDisconnected.
type Listener interface {
	// OnConnected is called after the WebSocket handshake succeeds
	OnConnected(v Venue)

	// OnDisconnected is called once per session after the socket is torn down
	OnDisconnected(v Venue)

	// OnError is called for non-fatal session errors; the session keeps
	// running or reconnects depending on the error kind
	OnError(v Venue, err error)

	// OnQuote is called for every decoded top-of-book update, in frame order
	OnQuote(q Quote)
}

// NopListener discards all events
type NopListener struct{}

func (NopListener) OnConnected(Venue)    {}
func (NopListener) OnDisconnected(Venue) {}
func (NopListener) OnError(Venue, error) {}
func (NopListener) OnQuote(Quote)        {}
