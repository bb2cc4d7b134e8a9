package venue

import (
	"fmt"
	"strings"
)

// Venue identifies a supported exchange
type Venue string

const (
	Binance Venue = "binance"
	Bybit   Venue = "bybit"
	GateIO  Venue = "gateio"
)

// Venues returns all supported venues in declaration order
func Venues() []Venue {
	return []Venue{Binance, Bybit, GateIO}
}

// ParseVenue resolves a case-insensitive venue name
func ParseVenue(name string) (Venue, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case string(Binance):
		return Binance, nil
	case string(Bybit):
		return Bybit, nil
	case string(GateIO), "gate", "gate.io":
		return GateIO, nil
	}
	return "", fmt.Errorf("unknown venue %q", name)
}
