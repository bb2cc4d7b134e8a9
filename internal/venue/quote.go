package venue

import (
	"bytes"
	"math"
	"strconv"
	"time"
)

// Decimal is an optional price or quantity. Partial book updates leave
// fields absent, so absence is modeled explicitly instead of overloading zero.
type Decimal struct {
	Value float64
	Valid bool
}

// ParseDecimal parses an exchange-native decimal string. Only finite,
// non-negative values are accepted; anything else yields an invalid Decimal.
func ParseDecimal(s string) Decimal {
	if s == "" {
		return Decimal{}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return Decimal{}
	}
	return Decimal{Value: v, Valid: true}
}

// NewDecimal wraps a float64 as a valid Decimal
func NewDecimal(v float64) Decimal {
	return Decimal{Value: v, Valid: true}
}

// MarshalJSON encodes a valid Decimal as a JSON number and an invalid one as null
func (d Decimal) MarshalJSON() ([]byte, error) {
	if !d.Valid {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatFloat(d.Value, 'f', -1, 64)), nil
}

// UnmarshalJSON decodes a JSON number, numeric string or null.
// Unparseable input decodes as an invalid Decimal rather than failing.
func (d *Decimal) UnmarshalJSON(data []byte) error {
	s := string(bytes.TrimSpace(data))
	if s == "null" {
		*d = Decimal{}
		return nil
	}
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	*d = ParseDecimal(s)
	return nil
}

// Quote is the top-of-book state for one symbol on one venue
type Quote struct {
	Venue     Venue     `json:"venue"`
	Symbol    string    `json:"symbol"` // venue-native, Gate.io underscores stripped
	Bid       Decimal   `json:"bid"`
	BidQty    Decimal   `json:"bid_qty"`
	Ask       Decimal   `json:"ask"`
	AskQty    Decimal   `json:"ask_qty"`
	UpdatedAt time.Time `json:"updated_at"` // stamped by the price store
}

// TwoSided reports whether both best prices are present
func (q Quote) TwoSided() bool {
	return q.Bid.Valid && q.Ask.Valid
}
