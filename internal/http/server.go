package http

import (
	"net/http"
	"time"

	"salesdash/internal/store"
)

// Stores groups the read-side ports the reporting endpoints use.
type Stores struct {
	Lister     store.TransactionLister
	Statistics store.StatisticsReader
	Buckets    store.PriceBucketCounter
	Categories store.CategoryReader
}

// Options tune server behavior. Zero values fall back to defaults.
type Options struct {
	// QueryTimeout bounds each request's store access.
	QueryTimeout time.Duration
	// RateLimitRPS and RateLimitBurst apply to the ingestion endpoint,
	// per client IP.
	RateLimitRPS   float64
	RateLimitBurst int
	// Now resolves "the current year" for month parameters; tests
	// inject a fixed clock.
	Now func() time.Time
}

const (
	defaultQueryTimeout   = 10 * time.Second
	defaultRateLimitRPS   = 1
	defaultRateLimitBurst = 3
)

type Server struct {
	http.Server
	stores       Stores
	ingester     IngestRunner
	limiter      *rateLimiter
	queryTimeout time.Duration
	now          func() time.Time
}

// NewServer configures routes and middleware, returning a ready-to-run
// http.Server.
func NewServer(addr string, ingester IngestRunner, stores Stores, opts Options) *Server {
	if opts.QueryTimeout <= 0 {
		opts.QueryTimeout = defaultQueryTimeout
	}
	if opts.RateLimitRPS <= 0 {
		opts.RateLimitRPS = defaultRateLimitRPS
	}
	if opts.RateLimitBurst <= 0 {
		opts.RateLimitBurst = defaultRateLimitBurst
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		stores:       stores,
		ingester:     ingester,
		limiter:      newRateLimiter(opts.RateLimitRPS, opts.RateLimitBurst),
		queryTimeout: opts.QueryTimeout,
		now:          opts.Now,
	}

	mux.HandleFunc("/urlData", s.withObservability(s.withRateLimit(s.handleIngest)))
	mux.HandleFunc("/transactions", s.withObservability(s.handleTransactions))
	mux.HandleFunc("/statistics", s.withObservability(s.handleStatistics))
	mux.HandleFunc("/priceRanges", s.withObservability(s.handlePriceRanges))
	mux.HandleFunc("/categoryDistribution", s.withObservability(s.handleCategoryDistribution))
	mux.HandleFunc("/combinedData", s.withObservability(s.handleCombinedData))
	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", handleReady)

	return s
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
