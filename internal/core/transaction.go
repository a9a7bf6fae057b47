package core

import (
	"errors"
	"strconv"
	"strings"
	"time"
)

// Transaction is one product-sale record from the source feed.
// Pointer fields stay nil when the feed omits them; the store keeps
// them as NULL. A nil Sold means the record counts as neither sold
// nor unsold in the monthly statistics.
type Transaction struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Price       *float64   `json:"price,omitempty"`
	Description string     `json:"description"`
	Category    string     `json:"category"`
	Image       string     `json:"image"`
	Sold        *bool      `json:"sold,omitempty"`
	DateOfSale  *time.Time `json:"dateOfSale,omitempty"`
}

// MonthStatistics aggregates a single month of sales.
type MonthStatistics struct {
	TotalSaleAmount   float64 `json:"totalSaleAmount"`
	TotalSoldItems    int64   `json:"totalSoldItems"`
	TotalNotSoldItems int64   `json:"totalNotSoldItems"`
}

// CategoryCount is one row of the category distribution. The field is
// serialized as "_id" to keep the wire format the dashboard expects.
type CategoryCount struct {
	Category string `json:"_id"`
	Count    int64  `json:"count"`
}

// PriceBucket is one interval of the price histogram. Counting uses the
// half-open interval [Min, Max); a nil Max means unbounded above.
type PriceBucket struct {
	Label string
	Min   float64
	Max   *float64
}

// PriceBuckets returns the ten histogram buckets in output order. The
// labels reproduce the dashboard's historical text, while the counting
// intervals are contiguous so that every non-null price lands in exactly
// one bucket and a price equal to an upper boundary falls into the next.
func PriceBuckets() []PriceBucket {
	buckets := make([]PriceBucket, 0, 10)
	for i := 0; i < 9; i++ {
		min := float64(i * 100)
		max := float64((i + 1) * 100)
		label := "0 - 100"
		if i > 0 {
			label = strconv.Itoa(i*100+1) + " - " + strconv.Itoa((i+1)*100)
		}
		buckets = append(buckets, PriceBucket{Label: label, Min: min, Max: &max})
	}
	buckets = append(buckets, PriceBucket{Label: "901 - Infinity", Min: 900})
	return buckets
}

// Contains reports whether a price falls into the bucket.
func (b PriceBucket) Contains(price float64) bool {
	if price < b.Min {
		return false
	}
	return b.Max == nil || price < *b.Max
}

// ErrInvalidMonth is returned for month parameters outside "01".."12".
var ErrInvalidMonth = errors.New("invalid month: want a number between 01 and 12")

// MonthRange resolves a two-digit month parameter to the half-open
// interval [first of month, first of next month) in now's year, UTC.
// December ends at January 1st of the following year.
func MonthRange(month string, now time.Time) (start, end time.Time, err error) {
	m, convErr := strconv.Atoi(strings.TrimSpace(month))
	if convErr != nil || m < 1 || m > 12 {
		return time.Time{}, time.Time{}, ErrInvalidMonth
	}
	start = time.Date(now.Year(), time.Month(m), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0), nil
}

// Pagination defaults for transaction listings.
const (
	DefaultPage    = 1
	DefaultPerPage = 10
)

// ListQuery describes one paginated transaction listing. When HasRange
// is false the date filter is absent and all records match.
type ListQuery struct {
	Start    time.Time
	End      time.Time
	HasRange bool
	Search   string
	Page     int
	PerPage  int
}

// Offset returns how many matching records precede the requested page.
func (q ListQuery) Offset() int {
	return (q.Page - 1) * q.PerPage
}
