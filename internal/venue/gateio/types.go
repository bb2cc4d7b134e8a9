package gateio

import "encoding/json"

// currencyPair is the subset of GET /api/v4/spot/currency_pairs we read
type currencyPair struct {
	ID          string `json:"id"`
	TradeStatus string `json:"trade_status"`
}

// wsRequest is a client request on the v4 stream
type wsRequest struct {
	Time    int64    `json:"time"`
	Channel string   `json:"channel"`
	Event   string   `json:"event,omitempty"`
	Payload []string `json:"payload,omitempty"`
}

// wsEnvelope covers event acks and channel updates
type wsEnvelope struct {
	Time    int64           `json:"time"`
	Channel string          `json:"channel"`
	Event   string          `json:"event"`
	Error   *wsError        `json:"error"`
	Result  json.RawMessage `json:"result"`
}

type wsError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// bookTicker is a best bid/offer update
type bookTicker struct {
	Symbol string `json:"s"`
	Bid    string `json:"b"`
	BidQty string `json:"B"`
	Ask    string `json:"a"`
	AskQty string `json:"A"`
}
