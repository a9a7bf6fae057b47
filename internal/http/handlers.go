package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"salesdash/internal/core"
	applog "salesdash/internal/log"
)

// IngestRunner fetches the remote feed and stores it, returning the raw
// payload as received.
type IngestRunner interface {
	FetchAndStore(ctx context.Context) ([]byte, error)
}

type transactionsResponse struct {
	Transactions      []core.Transaction `json:"transactions"`
	TotalPages        int64              `json:"totalPages"`
	CurrentPage       int                `json:"currentPage"`
	TotalTransactions int64              `json:"totalTransactions"`
}

type priceRangeCount struct {
	Range string `json:"range"`
	Count int64  `json:"count"`
}

type combinedResponse struct {
	Transactions         transactionsResponse `json:"transactions"`
	PriceRanges          []priceRangeCount    `json:"priceRanges"`
	CategoryDistribution []core.CategoryCount `json:"categoryDistribution"`
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody{Error: "Method not allowed"})
		return
	}

	raw, err := s.ingester.FetchAndStore(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Ingestion failed",
			applog.FieldOperation, applog.OpFetch,
			applog.FieldError, err)
		writeServerError(w)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(raw); err != nil {
		slog.ErrorContext(r.Context(), "Failed to write response", applog.FieldError, err)
	}
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody{Error: "Method not allowed"})
		return
	}

	q := r.URL.Query()
	query := core.ListQuery{Search: q.Get("search")}
	query.Page, query.PerPage = parsePagination(q)

	if month := q.Get("month"); month != "" {
		start, end, err := core.MonthRange(month, s.now())
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "Invalid month parameter"})
			return
		}
		query.Start, query.End, query.HasRange = start, end, true
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.queryTimeout)
	defer cancel()

	resp, err := s.listTransactions(ctx, query)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to list transactions",
			applog.FieldOperation, applog.OpList,
			applog.FieldSearch, query.Search,
			applog.FieldPage, query.Page,
			applog.FieldError, err)
		writeServerError(w)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) listTransactions(ctx context.Context, query core.ListQuery) (transactionsResponse, error) {
	transactions, total, err := s.stores.Lister.ListTransactions(ctx, query)
	if err != nil {
		return transactionsResponse{}, err
	}
	if transactions == nil {
		transactions = []core.Transaction{}
	}

	totalPages := total / int64(query.PerPage)
	if total%int64(query.PerPage) != 0 {
		totalPages++
	}

	return transactionsResponse{
		Transactions:      transactions,
		TotalPages:        totalPages,
		CurrentPage:       query.Page,
		TotalTransactions: total,
	}, nil
}

func (s *Server) handleStatistics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody{Error: "Method not allowed"})
		return
	}

	start, end, ok := s.requireMonth(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.queryTimeout)
	defer cancel()

	stats, err := s.stores.Statistics.ReadMonthStatistics(ctx, start, end)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to read statistics",
			applog.FieldOperation, applog.OpStatistics,
			applog.FieldError, err)
		writeServerError(w)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handlePriceRanges(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody{Error: "Method not allowed"})
		return
	}

	start, end, ok := s.requireMonth(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.queryTimeout)
	defer cancel()

	ranges, err := s.priceRanges(ctx, start, end)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to compute price ranges",
			applog.FieldOperation, applog.OpHistogram,
			applog.FieldError, err)
		writeServerError(w)
		return
	}
	writeJSON(w, http.StatusOK, ranges)
}

// priceRanges counts each bucket concurrently and preserves bucket order
// in the result.
func (s *Server) priceRanges(ctx context.Context, start, end time.Time) ([]priceRangeCount, error) {
	buckets := core.PriceBuckets()
	counts := make([]priceRangeCount, len(buckets))

	g, gctx := errgroup.WithContext(ctx)
	for i, bucket := range buckets {
		g.Go(func() error {
			count, err := s.stores.Buckets.CountPriceRange(gctx, start, end, bucket)
			if err != nil {
				return err
			}
			counts[i] = priceRangeCount{Range: bucket.Label, Count: count}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return counts, nil
}

func (s *Server) handleCategoryDistribution(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody{Error: "Method not allowed"})
		return
	}

	start, end, ok := s.requireMonth(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.queryTimeout)
	defer cancel()

	distribution, err := s.stores.Categories.CategoryDistribution(ctx, start, end)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to read category distribution",
			applog.FieldOperation, applog.OpCategories,
			applog.FieldError, err)
		writeServerError(w)
		return
	}
	if distribution == nil {
		distribution = []core.CategoryCount{}
	}
	writeJSON(w, http.StatusOK, distribution)
}

func (s *Server) handleCombinedData(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody{Error: "Method not allowed"})
		return
	}

	start, end, ok := s.requireMonth(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.queryTimeout)
	defer cancel()

	query := core.ListQuery{
		Start:    start,
		End:      end,
		HasRange: true,
		Page:     core.DefaultPage,
		PerPage:  core.DefaultPerPage,
	}

	var combined combinedResponse
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		resp, err := s.listTransactions(gctx, query)
		if err != nil {
			return err
		}
		combined.Transactions = resp
		return nil
	})
	g.Go(func() error {
		ranges, err := s.priceRanges(gctx, start, end)
		if err != nil {
			return err
		}
		combined.PriceRanges = ranges
		return nil
	})
	g.Go(func() error {
		distribution, err := s.stores.Categories.CategoryDistribution(gctx, start, end)
		if err != nil {
			return err
		}
		if distribution == nil {
			distribution = []core.CategoryCount{}
		}
		combined.CategoryDistribution = distribution
		return nil
	})
	if err := g.Wait(); err != nil {
		slog.ErrorContext(r.Context(), "Failed to build combined data",
			applog.FieldError, err)
		writeServerError(w)
		return
	}
	writeJSON(w, http.StatusOK, combined)
}

// requireMonth parses the mandatory month parameter, writes the error
// response itself and reports whether the handler should continue.
func (s *Server) requireMonth(w http.ResponseWriter, r *http.Request) (start, end time.Time, ok bool) {
	month := r.URL.Query().Get("month")
	if month == "" {
		writeMissingMonth(w)
		return time.Time{}, time.Time{}, false
	}
	start, end, err := core.MonthRange(month, s.now())
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "Invalid month parameter"})
		return time.Time{}, time.Time{}, false
	}
	return start, end, true
}
