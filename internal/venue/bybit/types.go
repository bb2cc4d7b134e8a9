package bybit

import "encoding/json"

// instrumentsResponse is the subset of GET /v5/market/instruments-info we read
type instrumentsResponse struct {
	RetCode int    `json:"retCode"`
	RetMsg  string `json:"retMsg"`
	Result  struct {
		List []instrument `json:"list"`
	} `json:"result"`
}

type instrument struct {
	Symbol string `json:"symbol"`
	Status string `json:"status"`
}

// wsOperation is a client request on the public stream
type wsOperation struct {
	Op   string   `json:"op"`
	Args []string `json:"args"`
}

// wsEnvelope covers both operation acks and topic pushes
type wsEnvelope struct {
	Op      string          `json:"op"`
	Success bool            `json:"success"`
	RetMsg  string          `json:"ret_msg"`
	Topic   string          `json:"topic"`
	Type    string          `json:"type"`
	Data    json.RawMessage `json:"data"`
}

// orderbookData is a level-1 book snapshot or delta, levels as [price, size]
type orderbookData struct {
	Symbol string     `json:"s"`
	Bids   [][]string `json:"b"`
	Asks   [][]string `json:"a"`
}
