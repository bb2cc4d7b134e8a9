package store

import (
	"sort"
	"time"

	"github.com/morroisback/exchange-observer/internal/venue"
)

// MaxAcceptableProfit is the fractional upper bound on reported spreads.
// Anything above it is almost always a stale or one-sided book, not money.
const MaxAcceptableProfit = 0.5

// Opportunity is one cross-venue spread observed during a scan
type Opportunity struct {
	Symbol        string        `json:"symbol"`
	BuyVenue      venue.Venue   `json:"buy_venue"`
	BuyPrice      float64       `json:"buy_price"` // ask at the buy venue
	SellVenue     venue.Venue   `json:"sell_venue"`
	SellPrice     float64       `json:"sell_price"` // bid at the sell venue
	ProfitPercent float64       `json:"profit_percent"`
	BuyUpdatedAt  time.Time     `json:"buy_updated_at"`
	SellUpdatedAt time.Time     `json:"sell_updated_at"`
	BuyAge        time.Duration `json:"buy_age"`
	SellAge       time.Duration `json:"sell_age"`
}

// FindOpportunities scans a snapshot of the store for cross-venue spreads.
// minProfit is a fraction (0.001 = 0.1%), compared before the percent
// scaling of the output. Quotes older than maxAge or missing a side are
// excluded from the scan. Results are ordered by (symbol, buy venue, sell
// venue) so repeated scans over the same snapshot are stable.
func (s *PriceStore) FindOpportunities(minProfit float64, maxAge time.Duration) []Opportunity {
	now := s.now().UTC()

	s.mu.RLock()
	quotes := make([]venue.Quote, 0, len(s.quotes))
	for _, q := range s.quotes {
		quotes = append(quotes, q)
	}
	s.mu.RUnlock()

	bySymbol := make(map[string][]venue.Quote)
	for _, q := range quotes {
		if now.Sub(q.UpdatedAt) > maxAge {
			continue
		}
		if !q.TwoSided() {
			continue
		}
		bySymbol[q.Symbol] = append(bySymbol[q.Symbol], q)
	}

	var opps []Opportunity
	for symbol, group := range bySymbol {
		if len(group) < 2 {
			continue
		}
		for _, buy := range group {
			if buy.Ask.Value <= 0 {
				continue
			}
			for _, sell := range group {
				if sell.Venue == buy.Venue {
					continue
				}
				profit := (sell.Bid.Value - buy.Ask.Value) / buy.Ask.Value
				if profit < minProfit || profit >= MaxAcceptableProfit {
					continue
				}
				opps = append(opps, Opportunity{
					Symbol:        symbol,
					BuyVenue:      buy.Venue,
					BuyPrice:      buy.Ask.Value,
					SellVenue:     sell.Venue,
					SellPrice:     sell.Bid.Value,
					ProfitPercent: profit * 100,
					BuyUpdatedAt:  buy.UpdatedAt,
					SellUpdatedAt: sell.UpdatedAt,
					BuyAge:        now.Sub(buy.UpdatedAt),
					SellAge:       now.Sub(sell.UpdatedAt),
				})
			}
		}
	}

	sort.Slice(opps, func(i, j int) bool {
		if opps[i].Symbol != opps[j].Symbol {
			return opps[i].Symbol < opps[j].Symbol
		}
		if opps[i].BuyVenue != opps[j].BuyVenue {
			return opps[i].BuyVenue < opps[j].BuyVenue
		}
		return opps[i].SellVenue < opps[j].SellVenue
	})
	return opps
}
