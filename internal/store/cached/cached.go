// Package cached decorates a transaction store with an in-process cache
// for the monthly report reads. Listing stays uncached because search
// and pagination make the key space unbounded.
package cached

import (
	"context"
	"fmt"
	"time"

	"salesdash/internal/cache"
	"salesdash/internal/core"
	"salesdash/internal/store"
)

// Backend is the full store surface the decorator wraps.
type Backend interface {
	store.TransactionWriter
	store.TransactionLister
	store.StatisticsReader
	store.PriceBucketCounter
	store.CategoryReader
}

type Store struct {
	backend    Backend
	statistics *cache.Cache[core.MonthStatistics]
	buckets    *cache.Cache[int64]
	categories *cache.Cache[[]core.CategoryCount]
}

const (
	defaultMaxEntries = 256
	defaultTTL        = 5 * time.Minute
)

func New(backend Backend) *Store {
	return &Store{
		backend:    backend,
		statistics: cache.New[core.MonthStatistics](defaultMaxEntries, defaultTTL),
		buckets:    cache.New[int64](defaultMaxEntries, defaultTTL),
		categories: cache.New[[]core.CategoryCount](defaultMaxEntries, defaultTTL),
	}
}

// BulkInsert writes through and drops every cached report, since any
// month may have changed.
func (s *Store) BulkInsert(ctx context.Context, txs []core.Transaction) error {
	if err := s.backend.BulkInsert(ctx, txs); err != nil {
		return err
	}
	s.statistics.Clear()
	s.buckets.Clear()
	s.categories.Clear()
	return nil
}

func (s *Store) ListTransactions(ctx context.Context, q core.ListQuery) ([]core.Transaction, int64, error) {
	return s.backend.ListTransactions(ctx, q)
}

func (s *Store) ReadMonthStatistics(ctx context.Context, start, end time.Time) (core.MonthStatistics, error) {
	key := windowKey(start, end)
	if stats, ok := s.statistics.Get(key); ok {
		return stats, nil
	}
	stats, err := s.backend.ReadMonthStatistics(ctx, start, end)
	if err != nil {
		return core.MonthStatistics{}, err
	}
	s.statistics.Set(key, stats)
	return stats, nil
}

func (s *Store) CountPriceRange(ctx context.Context, start, end time.Time, b core.PriceBucket) (int64, error) {
	key := windowKey(start, end) + ":" + b.Label
	if count, ok := s.buckets.Get(key); ok {
		return count, nil
	}
	count, err := s.backend.CountPriceRange(ctx, start, end, b)
	if err != nil {
		return 0, err
	}
	s.buckets.Set(key, count)
	return count, nil
}

func (s *Store) CategoryDistribution(ctx context.Context, start, end time.Time) ([]core.CategoryCount, error) {
	key := windowKey(start, end)
	if dist, ok := s.categories.Get(key); ok {
		return dist, nil
	}
	dist, err := s.backend.CategoryDistribution(ctx, start, end)
	if err != nil {
		return nil, err
	}
	s.categories.Set(key, dist)
	return dist, nil
}

func windowKey(start, end time.Time) string {
	return fmt.Sprintf("%d:%d", start.Unix(), end.Unix())
}
