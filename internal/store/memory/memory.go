package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"salesdash/internal/core"
)

// Store keeps transactions in memory. It backs tests and local runs
// without a database file.
type Store struct {
	mu    sync.Mutex
	items []core.Transaction
}

func New() *Store {
	return &Store{}
}

// BulkInsert appends all records. Duplicates are kept.
func (s *Store) BulkInsert(_ context.Context, txs []core.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, txs...)
	return nil
}

// ListTransactions returns one page of matches plus the total match count.
func (s *Store) ListTransactions(_ context.Context, q core.ListQuery) ([]core.Transaction, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	matched := make([]core.Transaction, 0, len(s.items))
	for _, t := range s.items {
		if q.HasRange && !inRange(t.DateOfSale, q.Start, q.End) {
			continue
		}
		if q.Search != "" && !matchesSearch(t, q.Search) {
			continue
		}
		matched = append(matched, t)
	}

	total := int64(len(matched))
	offset := q.Offset()
	if offset >= len(matched) {
		return []core.Transaction{}, total, nil
	}
	end := offset + q.PerPage
	if end > len(matched) {
		end = len(matched)
	}
	page := make([]core.Transaction, end-offset)
	copy(page, matched[offset:end])
	return page, total, nil
}

// ReadMonthStatistics sums and counts sold records and counts unsold
// ones. Records without a sold flag count as neither.
func (s *Store) ReadMonthStatistics(_ context.Context, start, end time.Time) (core.MonthStatistics, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var stats core.MonthStatistics
	for _, t := range s.items {
		if !inRange(t.DateOfSale, start, end) || t.Sold == nil {
			continue
		}
		if *t.Sold {
			stats.TotalSoldItems++
			if t.Price != nil {
				stats.TotalSaleAmount += *t.Price
			}
		} else {
			stats.TotalNotSoldItems++
		}
	}
	return stats, nil
}

// CountPriceRange counts records whose price falls into the bucket.
func (s *Store) CountPriceRange(_ context.Context, start, end time.Time, b core.PriceBucket) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var count int64
	for _, t := range s.items {
		if !inRange(t.DateOfSale, start, end) || t.Price == nil {
			continue
		}
		if b.Contains(*t.Price) {
			count++
		}
	}
	return count, nil
}

// CategoryDistribution counts records per distinct category, sorted by
// descending count and then category name for stable output.
func (s *Store) CategoryDistribution(_ context.Context, start, end time.Time) ([]core.CategoryCount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	byCategory := make(map[string]int64)
	for _, t := range s.items {
		if !inRange(t.DateOfSale, start, end) {
			continue
		}
		byCategory[t.Category]++
	}

	out := make([]core.CategoryCount, 0, len(byCategory))
	for cat, n := range byCategory {
		out = append(out, core.CategoryCount{Category: cat, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Category < out[j].Category
	})
	return out, nil
}

// Len returns the number of stored records.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

func inRange(t *time.Time, start, end time.Time) bool {
	if t == nil {
		return false
	}
	return !t.Before(start) && t.Before(end)
}

func matchesSearch(t core.Transaction, search string) bool {
	needle := strings.ToLower(search)
	return strings.Contains(strings.ToLower(t.Title), needle) ||
		strings.Contains(strings.ToLower(t.Description), needle)
}
