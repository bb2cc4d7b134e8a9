package binance

// exchangeInfoResponse is the subset of GET /api/v3/exchangeInfo we read
type exchangeInfoResponse struct {
	Symbols []symbolInfo `json:"symbols"`
}

type symbolInfo struct {
	Symbol string `json:"symbol"`
	Status string `json:"status"`
}

// tickerEvent is a 24hr rolling window ticker from the !ticker@arr stream
type tickerEvent struct {
	Event    string `json:"e"`
	Symbol   string `json:"s"`
	BidPrice string `json:"b"`
	BidQty   string `json:"B"`
	AskPrice string `json:"a"`
	AskQty   string `json:"A"`
}
