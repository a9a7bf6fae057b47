package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"salesdash/internal/core"
	"salesdash/internal/store"
)

// Fetcher downloads the source dataset over HTTP with a bounded timeout.
type Fetcher struct {
	client *http.Client
	url    string
}

func NewFetcher(sourceURL string, timeout time.Duration) *Fetcher {
	return &Fetcher{
		client: &http.Client{Timeout: timeout},
		url:    sourceURL,
	}
}

// Fetch returns the raw JSON body of the source feed.
func (f *Fetcher) Fetch(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request source: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("request source: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read source body: %w", err)
	}
	return body, nil
}

// Source returns the configured feed URL.
func (f *Fetcher) Source() string {
	return f.url
}

// EventPublisher announces completed ingestion runs. May be nil when
// eventing is disabled.
type EventPublisher interface {
	PublishIngestCompleted(ctx context.Context, source string, count int) error
}

// Service fetches the feed and bulk-inserts it into the store.
type Service struct {
	fetcher *Fetcher
	writer  store.TransactionWriter
	events  EventPublisher
}

func NewService(fetcher *Fetcher, writer store.TransactionWriter, events EventPublisher) *Service {
	return &Service{
		fetcher: fetcher,
		writer:  writer,
		events:  events,
	}
}

// FetchAndStore downloads the feed, decodes it as a transaction array
// and bulk-inserts the records. Insert failures are logged and swallowed:
// the fetched payload is still returned so the caller can serve it.
// Records are appended as-is; repeated runs duplicate data.
func (s *Service) FetchAndStore(ctx context.Context) ([]byte, error) {
	raw, err := s.fetcher.Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch transactions: %w", err)
	}

	var txs []core.Transaction
	if err := json.Unmarshal(raw, &txs); err != nil {
		return nil, fmt.Errorf("decode transactions: %w", err)
	}

	if err := s.writer.BulkInsert(ctx, txs); err != nil {
		slog.ErrorContext(ctx, "Failed to store fetched transactions",
			"error", err,
			"count", len(txs),
			"source", s.fetcher.Source())
		return raw, nil
	}

	slog.InfoContext(ctx, "Transactions ingested",
		"count", len(txs),
		"source", s.fetcher.Source())

	s.publishCompleted(ctx, len(txs))
	return raw, nil
}

func (s *Service) publishCompleted(ctx context.Context, count int) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishIngestCompleted(ctx, s.fetcher.Source(), count); err != nil {
		// Eventing is best effort; the records are already persisted.
		slog.ErrorContext(ctx, "Failed to publish ingest event", "error", err)
	}
}
