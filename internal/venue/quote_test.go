package venue

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDecimal(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		value float64
		valid bool
	}{
		{"price", "30000.5", 30000.5, true},
		{"zero", "0", 0, true},
		{"scientific", "1.5e-7", 1.5e-7, true},
		{"empty", "", 0, false},
		{"garbage", "abc", 0, false},
		{"negative", "-1", 0, false},
		{"nan", "NaN", 0, false},
		{"infinity", "Inf", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := ParseDecimal(tt.in)
			assert.Equal(t, tt.valid, d.Valid)
			if tt.valid {
				assert.InDelta(t, tt.value, d.Value, 1e-12)
			}
		})
	}
}

func TestDecimal_JSON(t *testing.T) {
	out, err := json.Marshal(NewDecimal(42.5))
	require.NoError(t, err)
	assert.Equal(t, "42.5", string(out))

	out, err = json.Marshal(Decimal{})
	require.NoError(t, err)
	assert.Equal(t, "null", string(out))

	var d Decimal
	require.NoError(t, json.Unmarshal([]byte("30000.1"), &d))
	assert.True(t, d.Valid)
	assert.InDelta(t, 30000.1, d.Value, 1e-9)

	require.NoError(t, json.Unmarshal([]byte(`"101.25"`), &d))
	assert.True(t, d.Valid)
	assert.InDelta(t, 101.25, d.Value, 1e-9)

	require.NoError(t, json.Unmarshal([]byte("null"), &d))
	assert.False(t, d.Valid)

	// unparseable input degrades to an invalid value instead of failing
	require.NoError(t, json.Unmarshal([]byte(`"not a number"`), &d))
	assert.False(t, d.Valid)
}

func TestQuote_TwoSided(t *testing.T) {
	assert.True(t, Quote{Bid: NewDecimal(1), Ask: NewDecimal(2)}.TwoSided())
	assert.False(t, Quote{Bid: NewDecimal(1)}.TwoSided())
	assert.False(t, Quote{Ask: NewDecimal(2)}.TwoSided())
	assert.False(t, Quote{}.TwoSided())
}

func TestQuote_JSONRoundTrip(t *testing.T) {
	q := Quote{
		Venue:     Bybit,
		Symbol:    "BTCUSDT",
		Bid:       NewDecimal(30000),
		BidQty:    NewDecimal(1.5),
		Ask:       NewDecimal(30010),
		AskQty:    NewDecimal(0.25),
		UpdatedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}

	raw, err := json.Marshal(q)
	require.NoError(t, err)

	var back Quote
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, q.Venue, back.Venue)
	assert.Equal(t, q.Symbol, back.Symbol)
	assert.InDelta(t, q.Bid.Value, back.Bid.Value, 1e-9)
	assert.InDelta(t, q.BidQty.Value, back.BidQty.Value, 1e-9)
	assert.InDelta(t, q.Ask.Value, back.Ask.Value, 1e-9)
	assert.InDelta(t, q.AskQty.Value, back.AskQty.Value, 1e-9)
	assert.True(t, back.UpdatedAt.Equal(q.UpdatedAt))
}
