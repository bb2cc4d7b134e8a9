package app

import (
	"testing"
	"time"

	"github.com/morroisback/exchange-observer/internal/venue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Validate(t *testing.T) {
	base := Config{
		Venues:        []venue.Venue{venue.Binance, venue.Bybit},
		CheckInterval: 10 * time.Second,
		MaxDataAge:    time.Minute,
		MinProfit:     0.001,
	}
	assert.NoError(t, base.validate())

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"no venues", func(c *Config) { c.Venues = nil }, "no venues"},
		{"duplicate venue", func(c *Config) { c.Venues = []venue.Venue{venue.Binance, venue.Binance} }, "configured twice"},
		{"short interval", func(c *Config) { c.CheckInterval = 500 * time.Millisecond }, "below the 1s minimum"},
		{"short max age", func(c *Config) { c.MaxDataAge = 0 }, "below the 1s minimum"},
		{"negative profit", func(c *Config) { c.MinProfit = -0.1 }, "must not be negative"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)
			err := cfg.validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestNew_BuildsClientPerVenue(t *testing.T) {
	observer, err := New(Config{
		Venues:        []venue.Venue{venue.Binance, venue.Bybit, venue.GateIO},
		CheckInterval: 10 * time.Second,
		MaxDataAge:    time.Minute,
		MinProfit:     0.001,
	})
	require.NoError(t, err)
	require.NotNil(t, observer)
	assert.NotNil(t, observer.Store())

	require.Len(t, observer.manager.clients, 3)
	assert.Equal(t, venue.Binance, observer.manager.clients[0].Venue())
	assert.Equal(t, venue.Bybit, observer.manager.clients[1].Venue())
	assert.Equal(t, venue.GateIO, observer.manager.clients[2].Venue())
}

func TestNew_UnknownVenue(t *testing.T) {
	_, err := New(Config{
		Venues:        []venue.Venue{venue.Venue("kraken")},
		CheckInterval: 10 * time.Second,
		MaxDataAge:    time.Minute,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown venue")
}

func TestNewAdapter(t *testing.T) {
	for _, v := range venue.Venues() {
		adapter, err := newAdapter(v)
		require.NoError(t, err)
		assert.Equal(t, v, adapter.Venue())
	}
}
