package app

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/morroisback/exchange-observer/internal/metrics"
	"github.com/morroisback/exchange-observer/internal/scanner"
	"github.com/morroisback/exchange-observer/internal/store"
	"github.com/morroisback/exchange-observer/internal/venue"
)

// StatusListener receives venue status changes, for embedders that
// surface connectivity in their own UI. Callbacks arrive on core
// goroutines; re-dispatching is the embedder's responsibility.
type StatusListener interface {
	VenueConnected(v venue.Venue)
	VenueDisconnected(v venue.Venue)
	VenueError(v venue.Venue, err error)
}

// Client is the venue session surface the manager drives
type Client interface {
	Venue() venue.Venue
	Start()
	Stop()
}

// Manager is the single hub between venue clients and the core: quotes
// flow into the store, status flows to logs, metrics and the optional
// status listener. It implements venue.Listener for all clients.
type Manager struct {
	store   *store.PriceStore
	scanner *scanner.Scanner
	clients []Client
	status  StatusListener

	mu      sync.Mutex
	running bool

	connMu   sync.Mutex
	connects map[venue.Venue]int
}

// NewManager creates a manager around an assembled store and scanner
func NewManager(st *store.PriceStore, sc *scanner.Scanner, status StatusListener) *Manager {
	return &Manager{
		store:    st,
		scanner:  sc,
		status:   status,
		connects: make(map[venue.Venue]int),
	}
}

// SetClients installs the venue clients the manager drives. Must be
// called before Start.
func (m *Manager) SetClients(clients []Client) {
	m.clients = clients
}

// Start brings up all venue clients in parallel, then the scanner.
// Calling Start on a running manager is a no-op.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return nil
	}
	if len(m.clients) == 0 {
		return errors.New("no venue clients configured")
	}

	log.Info().Int("venues", len(m.clients)).Msg("starting venue clients")

	var wg sync.WaitGroup
	for _, c := range m.clients {
		wg.Add(1)
		go func(c Client) {
			defer wg.Done()
			c.Start()
		}(c)
	}
	wg.Wait()

	m.scanner.Start()
	m.running = true
	return nil
}

// Stop halts the scanner first so no opportunities are emitted from a
// partially shut down book, then stops all clients in parallel. Calling
// Stop on a stopped manager is a no-op.
func (m *Manager) Stop(ctx context.Context) error {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return nil
	}
	m.running = false
	m.mu.Unlock()

	m.scanner.Stop()

	var wg sync.WaitGroup
	for _, c := range m.clients {
		wg.Add(1)
		go func(c Client) {
			defer wg.Done()
			c.Stop()
		}(c)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	log.Info().Msg("observer stopped")
	return nil
}

// OnQuote routes a decoded update into the price store
func (m *Manager) OnQuote(q venue.Quote) {
	m.store.Update(q)
	metrics.RecordQuoteUpdate(string(q.Venue))
	metrics.RecordStoreSize(m.store.Len())
}

// OnConnected records venue connectivity and forwards it
func (m *Manager) OnConnected(v venue.Venue) {
	m.connMu.Lock()
	m.connects[v]++
	reconnect := m.connects[v] > 1
	m.connMu.Unlock()

	metrics.RecordConnectionStatus(string(v), true)
	if reconnect {
		metrics.RecordReconnect(string(v))
	}
	if m.status != nil {
		m.status.VenueConnected(v)
	}
}

// OnDisconnected records venue connectivity and forwards it
func (m *Manager) OnDisconnected(v venue.Venue) {
	metrics.RecordConnectionStatus(string(v), false)
	if m.status != nil {
		m.status.VenueDisconnected(v)
	}
}

// OnError counts the error by kind and forwards it
func (m *Manager) OnError(v venue.Venue, err error) {
	metrics.RecordConnectionError(string(v), venue.KindOf(err).String())
	log.Warn().Err(err).Str("venue", string(v)).Msg("venue error")
	if m.status != nil {
		m.status.VenueError(v, err)
	}
}
