package ingest

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"salesdash/internal/core"
	"salesdash/internal/store/memory"
)

const feedBody = `[
	{"id":1,"title":"Jacket","price":50,"description":"warm","category":"clothing","image":"http://img/1.jpg","sold":true,"dateOfSale":"2024-03-05T00:00:00Z"},
	{"id":2,"title":"Drive","price":150,"description":"fast","category":"electronics","sold":false,"dateOfSale":"2024-03-10T00:00:00Z"},
	{"id":3,"title":"Mystery","description":"no price, no sold flag"}
]`

type failingWriter struct{}

func (failingWriter) BulkInsert(context.Context, []core.Transaction) error {
	return errors.New("disk full")
}

type recordingPublisher struct {
	source string
	count  int
	calls  int
}

func (p *recordingPublisher) PublishIngestCompleted(_ context.Context, source string, count int) error {
	p.source = source
	p.count = count
	p.calls++
	return nil
}

func TestFetchAndStore(t *testing.T) {
	src := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(feedBody))
	}))
	defer src.Close()

	st := memory.New()
	pub := &recordingPublisher{}
	svc := NewService(NewFetcher(src.URL, 5*time.Second), st, pub)

	raw, err := svc.FetchAndStore(context.Background())
	if err != nil {
		t.Fatalf("fetch and store: %v", err)
	}
	if !strings.Contains(string(raw), "Jacket") {
		t.Fatalf("raw payload not returned: %s", raw)
	}
	if st.Len() != 3 {
		t.Fatalf("stored %d records, want 3", st.Len())
	}
	if pub.calls != 1 || pub.count != 3 || pub.source != src.URL {
		t.Fatalf("publisher saw %+v, want one call with count 3", pub)
	}
}

func TestFetchAndStoreKeepsPartialRecords(t *testing.T) {
	src := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(feedBody))
	}))
	defer src.Close()

	st := memory.New()
	svc := NewService(NewFetcher(src.URL, 5*time.Second), st, nil)
	if _, err := svc.FetchAndStore(context.Background()); err != nil {
		t.Fatalf("fetch and store: %v", err)
	}

	// The third record has no price, sold flag or sale date; it must be
	// stored but excluded from sold/unsold statistics.
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	stats, err := st.ReadMonthStatistics(context.Background(), start, start.AddDate(0, 1, 0))
	if err != nil {
		t.Fatalf("statistics: %v", err)
	}
	if stats.TotalSoldItems != 1 || stats.TotalNotSoldItems != 1 {
		t.Fatalf("got %+v, want one sold and one unsold", stats)
	}
}

func TestFetchAndStoreSwallowsInsertError(t *testing.T) {
	src := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(feedBody))
	}))
	defer src.Close()

	pub := &recordingPublisher{}
	svc := NewService(NewFetcher(src.URL, 5*time.Second), failingWriter{}, pub)

	raw, err := svc.FetchAndStore(context.Background())
	if err != nil {
		t.Fatalf("insert failure must not fail the run: %v", err)
	}
	if len(raw) == 0 {
		t.Fatalf("payload must be returned even when persistence fails")
	}
	if pub.calls != 0 {
		t.Fatalf("no event should be published when the insert fails")
	}
}

func TestFetchAndStoreSourceErrors(t *testing.T) {
	cases := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"non-200 status", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}},
		{"not a JSON array", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"oops": true}`))
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			src := httptest.NewServer(tc.handler)
			defer src.Close()

			svc := NewService(NewFetcher(src.URL, 5*time.Second), memory.New(), nil)
			if _, err := svc.FetchAndStore(context.Background()); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestFetchUnreachableSource(t *testing.T) {
	svc := NewService(NewFetcher("http://127.0.0.1:1/feed.json", time.Second), memory.New(), nil)
	if _, err := svc.FetchAndStore(context.Background()); err == nil {
		t.Fatalf("expected error for unreachable source")
	}
}
