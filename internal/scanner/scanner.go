package scanner

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/morroisback/exchange-observer/internal/metrics"
	"github.com/morroisback/exchange-observer/internal/store"
)

// Finder yields opportunities for the current market state
type Finder interface {
	FindOpportunities(minProfit float64, maxAge time.Duration) []store.Opportunity
}

// Config holds the scan loop parameters
type Config struct {
	Interval        time.Duration
	MinProfit       float64 // fraction, 0.001 = 0.1%
	MaxAge          time.Duration
	OnOpportunities func([]store.Opportunity)
}

// Scanner runs one periodic task that scans the store and reports
// non-empty opportunity batches to the configured callback
type Scanner struct {
	finder Finder
	cfg    Config

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	stopped chan struct{}
}

// New creates a scanner around a finder
func New(finder Finder, cfg Config) *Scanner {
	return &Scanner{finder: finder, cfg: cfg}
}

// Start launches the scan loop. Calling Start on a running scanner is a no-op.
func (s *Scanner) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true

	var ctx context.Context
	ctx, s.cancel = context.WithCancel(context.Background())
	s.stopped = make(chan struct{})
	go s.run(ctx, s.stopped)
}

// Stop cancels the loop and waits for it to exit. Calling Stop on a
// stopped scanner is a no-op.
func (s *Scanner) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	cancel := s.cancel
	stopped := s.stopped
	s.mu.Unlock()

	cancel()
	<-stopped
	log.Info().Msg("arbitrage scanner stopped")
}

// run scans, then sleeps for whatever remains of the interval. The
// interval is a lower bound: an overlong scan triggers the next one
// immediately instead of accumulating drift.
func (s *Scanner) run(ctx context.Context, stopped chan struct{}) {
	defer close(stopped)

	log.Info().
		Dur("interval", s.cfg.Interval).
		Float64("min_profit", s.cfg.MinProfit).
		Dur("max_age", s.cfg.MaxAge).
		Msg("arbitrage scanner started")

	for {
		if ctx.Err() != nil {
			return
		}

		started := time.Now()
		s.scanOnce()

		sleep := s.cfg.Interval - time.Since(started)
		if sleep < 0 {
			sleep = 0
		}
		t := time.NewTimer(sleep)
		select {
		case <-ctx.Done():
			t.Stop()
			return
		case <-t.C:
		}
	}
}

// scanOnce runs a single scan iteration. Panics out of the finder or the
// callback are logged and swallowed so the loop keeps making progress.
func (s *Scanner) scanOnce() {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("scan iteration panicked")
		}
	}()

	started := time.Now()
	opps := s.finder.FindOpportunities(s.cfg.MinProfit, s.cfg.MaxAge)
	metrics.ScanDuration.Observe(time.Since(started).Seconds())
	metrics.RecordScanResult(len(opps))

	if len(opps) == 0 {
		return
	}
	log.Info().Int("count", len(opps)).Msg("arbitrage opportunities found")
	if s.cfg.OnOpportunities != nil {
		s.cfg.OnOpportunities(opps)
	}
}
