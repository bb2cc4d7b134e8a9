package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// Metrics for the arbitrage observer
var (
	// Quote flow metrics
	QuoteUpdates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "observer_quote_updates_total",
			Help: "Total number of top-of-book updates received",
		},
		[]string{"venue"},
	)

	StoreSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "observer_store_quotes",
			Help: "Number of (venue, symbol) quotes currently stored",
		},
	)

	// Connection metrics
	ConnectionStatus = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "observer_connection_status",
			Help: "WebSocket connection status (1=connected, 0=disconnected)",
		},
		[]string{"venue"},
	)

	ConnectionReconnects = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "observer_reconnects_total",
			Help: "Total number of session reconnects",
		},
		[]string{"venue"},
	)

	ConnectionErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "observer_connection_errors_total",
			Help: "Total number of venue errors by kind",
		},
		[]string{"venue", "kind"},
	)

	// Scan metrics
	ScanDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "observer_scan_duration_seconds",
			Help:    "Time to scan the store for opportunities",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		},
	)

	OpportunitiesFound = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "observer_opportunities_found",
			Help: "Number of opportunities found by the last scan",
		},
	)

	OpportunitiesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "observer_opportunities_total",
			Help: "Total number of opportunities emitted",
		},
	)

	// Redis metrics
	RedisPublishDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "observer_redis_publish_duration_seconds",
			Help:    "Time to publish a batch to Redis",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05},
		},
		[]string{"channel"},
	)

	RedisPublishErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "observer_redis_publish_errors_total",
			Help: "Total number of Redis publish errors",
		},
		[]string{"channel"},
	)
)

// Timer is a helper for measuring operation duration
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the elapsed time to a histogram
func (t *Timer) ObserveDuration(histogram *prometheus.HistogramVec, labels ...string) {
	histogram.WithLabelValues(labels...).Observe(time.Since(t.start).Seconds())
}

// RecordQuoteUpdate records one top-of-book update
func RecordQuoteUpdate(venue string) {
	QuoteUpdates.WithLabelValues(venue).Inc()
}

// RecordStoreSize records the current store size
func RecordStoreSize(n int) {
	StoreSize.Set(float64(n))
}

// RecordConnectionStatus records connection status
func RecordConnectionStatus(venue string, connected bool) {
	status := 0.0
	if connected {
		status = 1.0
	}
	ConnectionStatus.WithLabelValues(venue).Set(status)
}

// RecordReconnect records a session reconnect
func RecordReconnect(venue string) {
	ConnectionReconnects.WithLabelValues(venue).Inc()
}

// RecordConnectionError records a venue error by kind
func RecordConnectionError(venue, kind string) {
	ConnectionErrors.WithLabelValues(venue, kind).Inc()
}

// RecordScanResult records the outcome of one scan
func RecordScanResult(found int) {
	OpportunitiesFound.Set(float64(found))
	OpportunitiesTotal.Add(float64(found))
}

// Server exposes Prometheus metrics over HTTP
type Server struct {
	addr   string
	server *http.Server
}

// NewServer creates a new metrics server
func NewServer(addr string) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	return &Server{
		addr: addr,
		server: &http.Server{
			Addr:    addr,
			Handler: mux,
		},
	}
}

// Start starts the metrics server
func (s *Server) Start() error {
	log.Info().Str("addr", s.addr).Msg("Starting metrics server")
	return s.server.ListenAndServe()
}

// Stop stops the metrics server gracefully
func (s *Server) Stop() error {
	return s.server.Close()
}
