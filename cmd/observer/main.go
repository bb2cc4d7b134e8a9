package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/morroisback/exchange-observer/internal/app"
	"github.com/morroisback/exchange-observer/internal/metrics"
	"github.com/morroisback/exchange-observer/internal/publisher"
	"github.com/morroisback/exchange-observer/internal/store"
	"github.com/morroisback/exchange-observer/internal/venue"
	"github.com/morroisback/exchange-observer/internal/worker"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// Setup logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	// Load config from environment
	exchangesEnv := getEnv("EXCHANGES", "binance,bybit,gateio")
	checkInterval := getDurationEnv("CHECK_INTERVAL", 10*time.Second)
	minProfitPct := getFloatEnv("MIN_PROFIT_PERCENT", 0.1)
	maxDataAge := getDurationEnv("MAX_DATA_AGE", 60*time.Second)
	metricsAddr := getEnv("METRICS_ADDR", ":9090")
	redisAddr := getEnv("REDIS_ADDR", "")

	venues := make([]venue.Venue, 0)
	for _, name := range strings.Split(exchangesEnv, ",") {
		v, err := venue.ParseVenue(name)
		if err != nil {
			log.Warn().Str("exchange", strings.TrimSpace(name)).Msg("Unknown exchange, skipping")
			continue
		}
		venues = append(venues, v)
	}

	log.Info().
		Str("exchanges", exchangesEnv).
		Dur("check_interval", checkInterval).
		Float64("min_profit_pct", minProfitPct).
		Dur("max_data_age", maxDataAge).
		Str("metrics", metricsAddr).
		Msg("Starting exchange observer")

	// Start metrics server
	metricsServer := metrics.NewServer(metricsAddr)
	go func() {
		if err := metricsServer.Start(); err != nil {
			log.Error().Err(err).Msg("Metrics server error")
		}
	}()

	// Create Redis publisher when an address is configured
	var pub *publisher.Publisher
	if redisAddr != "" {
		var err error
		pub, err = publisher.New(redisAddr)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create Redis publisher")
		}
		defer pub.Close()
		log.Info().Str("redis", redisAddr).Msg("Publishing opportunities to Redis")
	}

	// The scanner threshold is a fraction; the environment takes percent.
	observer, err := app.New(app.Config{
		Venues:          venues,
		CheckInterval:   checkInterval,
		MinProfit:       minProfitPct / 100,
		MaxDataAge:      maxDataAge,
		OnOpportunities: reportOpportunities(pub),
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	w := worker.New()
	startHandle, err := w.StartTask(observer)
	if err == nil {
		err = startHandle.Err()
	}
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to start observer")
	}

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info().Msg("Shutting down...")

	stopCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if stopHandle, err := w.StopTask(observer); err == nil {
		if err := stopHandle.Wait(stopCtx); err != nil {
			log.Error().Err(err).Msg("Error stopping observer")
		}
	}
	w.StopLoop()

	// Stop metrics server
	if err := metricsServer.Stop(); err != nil {
		log.Error().Err(err).Msg("Error stopping metrics server")
	}
}

// reportOpportunities logs every opportunity in a batch and, when a publisher
// is configured, pushes the batch to Redis.
func reportOpportunities(pub *publisher.Publisher) func([]store.Opportunity) {
	return func(opps []store.Opportunity) {
		for _, opp := range opps {
			log.Info().
				Str("symbol", opp.Symbol).
				Str("buy", string(opp.BuyVenue)).
				Float64("buy_price", opp.BuyPrice).
				Str("sell", string(opp.SellVenue)).
				Float64("sell_price", opp.SellPrice).
				Float64("profit_pct", opp.ProfitPercent).
				Msg("Arbitrage opportunity")
		}

		if pub == nil {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		timer := metrics.NewTimer()
		if err := pub.PublishOpportunities(ctx, opps); err != nil {
			log.Error().Err(err).Msg("Failed to publish opportunities")
			metrics.RedisPublishErrors.WithLabelValues("opportunities").Inc()
			return
		}
		timer.ObserveDuration(metrics.RedisPublishDuration, "opportunities")
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		log.Fatal().Err(err).Str("var", key).Msg("Invalid duration in environment")
	}
	return d
}

func getFloatEnv(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		log.Fatal().Err(err).Str("var", key).Msg("Invalid number in environment")
	}
	return f
}
