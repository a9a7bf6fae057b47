package store

import (
	"context"
	"time"

	"salesdash/internal/core"
)

// Ports for the transaction store backends.
type (
	TransactionWriter interface {
		// BulkInsert appends all records in one operation. Records are
		// never deduplicated against existing rows.
		BulkInsert(ctx context.Context, txs []core.Transaction) error
	}

	TransactionLister interface {
		// ListTransactions returns one page of matches plus the total
		// number of records matching the query's filters.
		ListTransactions(ctx context.Context, q core.ListQuery) ([]core.Transaction, int64, error)
	}

	// StatisticsReader aggregates sold/unsold figures for a date range.
	StatisticsReader interface {
		ReadMonthStatistics(ctx context.Context, start, end time.Time) (core.MonthStatistics, error)
	}

	// PriceBucketCounter counts records in one price bucket for a date range.
	PriceBucketCounter interface {
		CountPriceRange(ctx context.Context, start, end time.Time, b core.PriceBucket) (int64, error)
	}

	// CategoryReader groups records by category for a date range.
	CategoryReader interface {
		CategoryDistribution(ctx context.Context, start, end time.Time) ([]core.CategoryCount, error)
	}
)
