package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/morroisback/exchange-observer/internal/scanner"
	"github.com/morroisback/exchange-observer/internal/store"
	"github.com/morroisback/exchange-observer/internal/venue"
	"github.com/morroisback/exchange-observer/internal/venue/binance"
	"github.com/morroisback/exchange-observer/internal/venue/bybit"
	"github.com/morroisback/exchange-observer/internal/venue/gateio"
)

// Config describes one observer instance
type Config struct {
	Venues          []venue.Venue
	CheckInterval   time.Duration // scan period, at least 1s
	MinProfit       float64       // fraction, 0.001 = 0.1%
	MaxDataAge      time.Duration // quote freshness bound, at least 1s
	OnOpportunities func([]store.Opportunity)
	Status          StatusListener     // optional
	Session         venue.ClientConfig // optional session tuning
}

func (cfg Config) validate() error {
	if len(cfg.Venues) == 0 {
		return errors.New("no venues configured")
	}
	seen := make(map[venue.Venue]bool)
	for _, v := range cfg.Venues {
		if seen[v] {
			return fmt.Errorf("venue %q configured twice", v)
		}
		seen[v] = true
	}
	if cfg.CheckInterval < time.Second {
		return fmt.Errorf("check interval %s below the 1s minimum", cfg.CheckInterval)
	}
	if cfg.MaxDataAge < time.Second {
		return fmt.Errorf("max data age %s below the 1s minimum", cfg.MaxDataAge)
	}
	if cfg.MinProfit < 0 {
		return fmt.Errorf("min profit %g must not be negative", cfg.MinProfit)
	}
	return nil
}

// App wires the store, the scanner and one client per configured venue
// into a single observable unit
type App struct {
	store   *store.PriceStore
	manager *Manager
}

// New assembles an observer. Configuration errors are returned before
// anything is started.
func New(cfg Config) (*App, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.MinProfit >= store.MaxAcceptableProfit {
		log.Warn().
			Float64("min_profit", cfg.MinProfit).
			Float64("cap", store.MaxAcceptableProfit).
			Msg("min profit at or above the spread cap, scans will never emit")
	}

	st := store.New()
	sc := scanner.New(st, scanner.Config{
		Interval:        cfg.CheckInterval,
		MinProfit:       cfg.MinProfit,
		MaxAge:          cfg.MaxDataAge,
		OnOpportunities: cfg.OnOpportunities,
	})

	mgr := NewManager(st, sc, cfg.Status)
	clients := make([]Client, 0, len(cfg.Venues))
	for _, v := range cfg.Venues {
		adapter, err := newAdapter(v)
		if err != nil {
			return nil, err
		}
		clients = append(clients, venue.NewClient(adapter, mgr, cfg.Session))
	}
	mgr.SetClients(clients)

	return &App{store: st, manager: mgr}, nil
}

// newAdapter builds the protocol codec for a venue
func newAdapter(v venue.Venue) (venue.Adapter, error) {
	switch v {
	case venue.Binance:
		return binance.New(binance.Config{}), nil
	case venue.Bybit:
		return bybit.New(bybit.Config{}), nil
	case venue.GateIO:
		return gateio.New(gateio.Config{}), nil
	}
	return nil, fmt.Errorf("unknown venue %q", v)
}

// Start brings the observer up and returns once all sessions are
// supervised and the scanner is running. Idempotent.
func (a *App) Start(ctx context.Context) error {
	return a.manager.Start(ctx)
}

// Stop tears the observer down, scanner first. Idempotent.
func (a *App) Stop(ctx context.Context) error {
	return a.manager.Stop(ctx)
}

// Store exposes the live price store for embedders
func (a *App) Store() *store.PriceStore {
	return a.store
}
