package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/morroisback/exchange-observer/internal/store"
)

const (
	// OpportunitiesChannel carries every emitted batch
	OpportunitiesChannel = "arbitrage:opportunities"

	opportunityChannelPrefix = "arbitrage:opportunity:"
	latestKey                = "arbitrage:opportunities:latest"
	latestTTL                = 5 * time.Minute
)

// Publisher fans opportunity batches out over Redis Pub/Sub for live
// consumers. Nothing is persisted: the only key written is a short-TTL
// cache of the latest batch.
type Publisher struct {
	client *redis.Client
}

// New connects to Redis and verifies the connection
func New(addr string) (*Publisher, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Publisher{client: client}, nil
}

// Client returns the underlying Redis client
func (p *Publisher) Client() *redis.Client {
	return p.client
}

// Close closes the Redis connection
func (p *Publisher) Close() error {
	return p.client.Close()
}

// PublishOpportunities pushes one batch: the whole batch on the shared
// channel plus per-symbol copies for symbol-scoped subscribers, and
// refreshes the expiring latest-batch key.
func (p *Publisher) PublishOpportunities(ctx context.Context, opps []store.Opportunity) error {
	if len(opps) == 0 {
		return nil
	}

	data, err := json.Marshal(opps)
	if err != nil {
		return err
	}

	if err := p.client.Publish(ctx, OpportunitiesChannel, string(data)).Err(); err != nil {
		return err
	}

	if err := p.client.Set(ctx, latestKey, data, latestTTL).Err(); err != nil {
		return err
	}

	// Per-symbol fan-out is best-effort
	bySymbol := make(map[string][]store.Opportunity)
	for _, o := range opps {
		bySymbol[o.Symbol] = append(bySymbol[o.Symbol], o)
	}
	for symbol, group := range bySymbol {
		payload, err := json.Marshal(group)
		if err != nil {
			continue
		}
		if err := p.client.Publish(ctx, opportunityChannelPrefix+symbol, string(payload)).Err(); err != nil {
			log.Warn().Err(err).Str("symbol", symbol).Msg("per-symbol publish failed")
		}
	}

	return nil
}
