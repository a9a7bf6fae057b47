package cached

import (
	"context"
	"testing"
	"time"

	"salesdash/internal/core"
	"salesdash/internal/store/memory"
)

// countingBackend wraps the in-memory store and counts read calls.
type countingBackend struct {
	*memory.Store
	statisticsCalls int
	bucketCalls     int
	categoryCalls   int
}

func (b *countingBackend) ReadMonthStatistics(ctx context.Context, start, end time.Time) (core.MonthStatistics, error) {
	b.statisticsCalls++
	return b.Store.ReadMonthStatistics(ctx, start, end)
}

func (b *countingBackend) CountPriceRange(ctx context.Context, start, end time.Time, bucket core.PriceBucket) (int64, error) {
	b.bucketCalls++
	return b.Store.CountPriceRange(ctx, start, end, bucket)
}

func (b *countingBackend) CategoryDistribution(ctx context.Context, start, end time.Time) ([]core.CategoryCount, error) {
	b.categoryCalls++
	return b.Store.CategoryDistribution(ctx, start, end)
}

func ptr[T any](v T) *T { return &v }

func marchWindow() (time.Time, time.Time) {
	start := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0)
}

func seed(t *testing.T, s *Store) {
	t.Helper()
	err := s.BulkInsert(context.Background(), []core.Transaction{{
		ID:         1,
		Title:      "Jacket",
		Category:   "clothing",
		Price:      ptr(50.0),
		Sold:       ptr(true),
		DateOfSale: ptr(time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC)),
	}})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
}

func TestStatisticsCached(t *testing.T) {
	backend := &countingBackend{Store: memory.New()}
	s := New(backend)
	seed(t, s)
	start, end := marchWindow()

	for i := 0; i < 3; i++ {
		stats, err := s.ReadMonthStatistics(context.Background(), start, end)
		if err != nil {
			t.Fatalf("ReadMonthStatistics: %v", err)
		}
		if stats.TotalSoldItems != 1 {
			t.Errorf("totalSoldItems = %d, want 1", stats.TotalSoldItems)
		}
	}
	if backend.statisticsCalls != 1 {
		t.Errorf("backend calls = %d, want 1", backend.statisticsCalls)
	}
}

func TestBucketCountsCachedPerBucket(t *testing.T) {
	backend := &countingBackend{Store: memory.New()}
	s := New(backend)
	seed(t, s)
	start, end := marchWindow()

	buckets := core.PriceBuckets()
	for i := 0; i < 2; i++ {
		for _, b := range buckets {
			if _, err := s.CountPriceRange(context.Background(), start, end, b); err != nil {
				t.Fatalf("CountPriceRange(%s): %v", b.Label, err)
			}
		}
	}
	if backend.bucketCalls != len(buckets) {
		t.Errorf("backend calls = %d, want %d", backend.bucketCalls, len(buckets))
	}
}

func TestInsertInvalidatesCache(t *testing.T) {
	backend := &countingBackend{Store: memory.New()}
	s := New(backend)
	seed(t, s)
	start, end := marchWindow()

	if _, err := s.ReadMonthStatistics(context.Background(), start, end); err != nil {
		t.Fatalf("ReadMonthStatistics: %v", err)
	}
	if _, err := s.CategoryDistribution(context.Background(), start, end); err != nil {
		t.Fatalf("CategoryDistribution: %v", err)
	}

	err := s.BulkInsert(context.Background(), []core.Transaction{{
		ID:         2,
		Title:      "Drive",
		Category:   "electronics",
		Price:      ptr(150.0),
		Sold:       ptr(false),
		DateOfSale: ptr(time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC)),
	}})
	if err != nil {
		t.Fatalf("BulkInsert: %v", err)
	}

	stats, err := s.ReadMonthStatistics(context.Background(), start, end)
	if err != nil {
		t.Fatalf("ReadMonthStatistics: %v", err)
	}
	if stats.TotalNotSoldItems != 1 {
		t.Errorf("totalNotSoldItems = %d, want 1 after invalidation", stats.TotalNotSoldItems)
	}
	if backend.statisticsCalls != 2 {
		t.Errorf("backend calls = %d, want 2", backend.statisticsCalls)
	}

	dist, err := s.CategoryDistribution(context.Background(), start, end)
	if err != nil {
		t.Fatalf("CategoryDistribution: %v", err)
	}
	if len(dist) != 2 {
		t.Errorf("categories = %d, want 2 after invalidation", len(dist))
	}
}
