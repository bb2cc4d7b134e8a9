package bybit

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/morroisback/exchange-observer/internal/venue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdapter_FetchSymbols(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v5/market/instruments-info", r.URL.Path)
		assert.Equal(t, "spot", r.URL.Query().Get("category"))
		w.Write([]byte(`{"retCode":0,"retMsg":"OK","result":{"list":[
			{"symbol":"BTCUSDT","status":"Trading"},
			{"symbol":"OLDUSDT","status":"Closed"},
			{"symbol":"ETHUSDT","status":"Trading"}
		]}}`))
	}))
	defer srv.Close()

	a := New(Config{RestURL: srv.URL})
	symbols, err := a.FetchSymbols(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"BTCUSDT", "ETHUSDT"}, symbols)
}

func TestAdapter_FetchSymbols_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"retCode":10002,"retMsg":"invalid category","result":{}}`))
	}))
	defer srv.Close()

	a := New(Config{RestURL: srv.URL})
	_, err := a.FetchSymbols(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid category")
	assert.Contains(t, err.Error(), "10002")
}

func TestAdapter_SubscribeFrame(t *testing.T) {
	a := New(Config{})
	frame, err := a.SubscribeFrame([]string{"BTCUSDT", "ETHUSDT"})
	require.NoError(t, err)

	var op wsOperation
	require.NoError(t, json.Unmarshal(frame, &op))
	assert.Equal(t, "subscribe", op.Op)
	assert.Equal(t, []string{"orderbook.1.BTCUSDT", "orderbook.1.ETHUSDT"}, op.Args)
}

func TestAdapter_SubscribeFrame_Batches(t *testing.T) {
	a := New(Config{})
	symbols := make([]string, 25)
	for i := range symbols {
		symbols[i] = fmt.Sprintf("SYM%dUSDT", i)
	}

	// sessions split symbol lists into batches of at most venue.MaxArgsPerMessage
	var argCounts []int
	for start := 0; start < len(symbols); start += venue.MaxArgsPerMessage {
		end := start + venue.MaxArgsPerMessage
		if end > len(symbols) {
			end = len(symbols)
		}
		frame, err := a.SubscribeFrame(symbols[start:end])
		require.NoError(t, err)

		var op wsOperation
		require.NoError(t, json.Unmarshal(frame, &op))
		argCounts = append(argCounts, len(op.Args))
	}
	assert.Equal(t, []int{10, 10, 5}, argCounts)
}

func TestAdapter_Keepalive(t *testing.T) {
	a := New(Config{})

	assert.Equal(t, `{"op":"ping"}`, string(a.PingFrame()))
	assert.Equal(t, `{"op":"pong"}`, string(a.PongFrame(nil)))
	assert.True(t, a.IsPing([]byte(`{"req_id":"1","op":"ping"}`)))
	assert.True(t, a.IsPong([]byte(`{"success":true,"ret_msg":"pong","op":"pong"}`)))
	assert.False(t, a.IsPing([]byte(`{"topic":"orderbook.1.BTCUSDT"}`)))
	assert.False(t, a.IsPong(a.PingFrame()))
}

func TestAdapter_ParseFrame_Orderbook(t *testing.T) {
	a := New(Config{})
	frame := []byte(`{"topic":"orderbook.1.BTCUSDT","type":"snapshot","data":{"s":"BTCUSDT","b":[["30000.5","1.2"]],"a":[["30001.0","0.8"]]}}`)

	quotes, err := a.ParseFrame(frame)
	require.NoError(t, err)
	require.Len(t, quotes, 1)

	q := quotes[0]
	assert.Equal(t, venue.Bybit, q.Venue)
	assert.Equal(t, "BTCUSDT", q.Symbol)
	assert.InDelta(t, 30000.5, q.Bid.Value, 1e-9)
	assert.InDelta(t, 1.2, q.BidQty.Value, 1e-9)
	assert.InDelta(t, 30001.0, q.Ask.Value, 1e-9)
	assert.InDelta(t, 0.8, q.AskQty.Value, 1e-9)
	assert.True(t, q.TwoSided())
}

func TestAdapter_ParseFrame_OneSidedDelta(t *testing.T) {
	a := New(Config{})

	// a delta touching only one book side never becomes a quote
	quotes, err := a.ParseFrame([]byte(`{"topic":"orderbook.1.BTCUSDT","type":"delta","data":{"s":"BTCUSDT","b":[["30000.5","1.2"]],"a":[]}}`))
	require.NoError(t, err)
	assert.Empty(t, quotes)

	quotes, err = a.ParseFrame([]byte(`{"topic":"orderbook.1.BTCUSDT","type":"delta","data":{"s":"BTCUSDT","b":[],"a":[["30001.0","0.8"]]}}`))
	require.NoError(t, err)
	assert.Empty(t, quotes)
}

func TestAdapter_ParseFrame_SubscribeAck(t *testing.T) {
	a := New(Config{})

	quotes, err := a.ParseFrame([]byte(`{"op":"subscribe","success":true,"ret_msg":"","conn_id":"abc"}`))
	require.NoError(t, err)
	assert.Empty(t, quotes)

	_, err = a.ParseFrame([]byte(`{"op":"subscribe","success":false,"ret_msg":"args size exceeded"}`))
	require.Error(t, err)
	assert.Equal(t, venue.KindProtocolNack, venue.KindOf(err))
	assert.Contains(t, err.Error(), "args size exceeded")
}

func TestAdapter_ParseFrame_ForeignTopic(t *testing.T) {
	a := New(Config{})
	quotes, err := a.ParseFrame([]byte(`{"topic":"tickers.BTCUSDT","data":{}}`))
	require.NoError(t, err)
	assert.Empty(t, quotes)
}

func TestAdapter_ParseFrame_Malformed(t *testing.T) {
	a := New(Config{})

	_, err := a.ParseFrame([]byte(`{"topic":`))
	require.Error(t, err)
	assert.Equal(t, venue.KindProtocolDecode, venue.KindOf(err))

	_, err = a.ParseFrame([]byte(`{"topic":"orderbook.1.BTCUSDT","data":"not an object"}`))
	require.Error(t, err)
	assert.Equal(t, venue.KindProtocolDecode, venue.KindOf(err))
}
