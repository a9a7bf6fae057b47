package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"salesdash/internal/core"

	_ "modernc.org/sqlite"
)

// Repository is the SQLite-backed transaction store. It implements all
// of the store ports.
type Repository struct {
	db *sql.DB
}

func NewRepository(dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// BulkInsert appends all records in one database transaction. Rows are
// never deduplicated: re-ingesting the same feed duplicates data.
func (r *Repository) BulkInsert(ctx context.Context, txs []core.Transaction) error {
	if len(txs) == 0 {
		return nil
	}

	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin bulk insert: %w", err)
	}
	defer dbTx.Rollback()

	stmt, err := dbTx.PrepareContext(ctx, `
		INSERT INTO transactions (external_id, title, description, category, image, price, sold, date_of_sale)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, t := range txs {
		if _, err := stmt.ExecContext(ctx,
			t.ID, t.Title, t.Description, t.Category, t.Image,
			nullFloat(t.Price), nullBool(t.Sold), nullUnix(t.DateOfSale),
		); err != nil {
			return fmt.Errorf("insert transaction %d: %w", t.ID, err)
		}
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("commit bulk insert: %w", err)
	}

	slog.InfoContext(ctx, "Transactions saved to SQLite", "count", len(txs))
	return nil
}

// ListTransactions returns one page of matches plus the total match count.
func (r *Repository) ListTransactions(ctx context.Context, q core.ListQuery) ([]core.Transaction, int64, error) {
	where, args := listFilters(q)

	var total int64
	countSQL := "SELECT COUNT(*) FROM transactions WHERE " + strings.Join(where, " AND ")
	if err := r.db.QueryRowContext(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count transactions: %w", err)
	}

	pageSQL := `
		SELECT external_id, title, description, category, image, price, sold, date_of_sale
		FROM transactions
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY id
		LIMIT ? OFFSET ?`
	rows, err := r.db.QueryContext(ctx, pageSQL, append(args, q.PerPage, q.Offset())...)
	if err != nil {
		return nil, 0, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	items := make([]core.Transaction, 0, q.PerPage)
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan transaction: %w", err)
		}
		items = append(items, t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate transactions: %w", err)
	}

	return items, total, nil
}

// ReadMonthStatistics sums and counts sold records and counts unsold
// ones within the range. Rows with a NULL sold flag are excluded from
// both figures.
func (r *Repository) ReadMonthStatistics(ctx context.Context, start, end time.Time) (core.MonthStatistics, error) {
	var stats core.MonthStatistics

	err := r.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(price), 0), COUNT(*)
		FROM transactions
		WHERE sold = 1 AND date_of_sale >= ? AND date_of_sale < ?`,
		start.Unix(), end.Unix(),
	).Scan(&stats.TotalSaleAmount, &stats.TotalSoldItems)
	if err != nil {
		return stats, fmt.Errorf("aggregate sold transactions: %w", err)
	}

	err = r.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM transactions
		WHERE sold = 0 AND date_of_sale >= ? AND date_of_sale < ?`,
		start.Unix(), end.Unix(),
	).Scan(&stats.TotalNotSoldItems)
	if err != nil {
		return stats, fmt.Errorf("count unsold transactions: %w", err)
	}

	return stats, nil
}

// CountPriceRange counts records in the bucket's half-open price interval.
func (r *Repository) CountPriceRange(ctx context.Context, start, end time.Time, b core.PriceBucket) (int64, error) {
	query := `
		SELECT COUNT(*)
		FROM transactions
		WHERE date_of_sale >= ? AND date_of_sale < ? AND price >= ?`
	args := []any{start.Unix(), end.Unix(), b.Min}
	if b.Max != nil {
		query += " AND price < ?"
		args = append(args, *b.Max)
	}

	var count int64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count price range %s: %w", b.Label, err)
	}
	return count, nil
}

// CategoryDistribution groups records in range by category.
func (r *Repository) CategoryDistribution(ctx context.Context, start, end time.Time) ([]core.CategoryCount, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT category, COUNT(*)
		FROM transactions
		WHERE date_of_sale >= ? AND date_of_sale < ?
		GROUP BY category
		ORDER BY COUNT(*) DESC, category ASC`,
		start.Unix(), end.Unix(),
	)
	if err != nil {
		return nil, fmt.Errorf("category distribution: %w", err)
	}
	defer rows.Close()

	out := make([]core.CategoryCount, 0, 8)
	for rows.Next() {
		var c core.CategoryCount
		if err := rows.Scan(&c.Category, &c.Count); err != nil {
			return nil, fmt.Errorf("scan category row: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate category rows: %w", err)
	}
	return out, nil
}

// CountAll returns the total number of stored records.
func (r *Repository) CountAll(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM transactions").Scan(&count); err != nil {
		return 0, fmt.Errorf("count all transactions: %w", err)
	}
	return count, nil
}

func listFilters(q core.ListQuery) (where []string, args []any) {
	where = []string{"1=1"}

	if q.HasRange {
		where = append(where, "date_of_sale >= ? AND date_of_sale < ?")
		args = append(args, q.Start.Unix(), q.End.Unix())
	}
	if q.Search != "" {
		pattern := "%" + escapeLike(strings.ToLower(q.Search)) + "%"
		where = append(where, `(LOWER(title) LIKE ? ESCAPE '\' OR LOWER(description) LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern)
	}
	return where, args
}

// escapeLike neutralizes LIKE metacharacters so caller-supplied search
// strings match literally.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}

func scanTransaction(rows *sql.Rows) (core.Transaction, error) {
	var (
		t     core.Transaction
		price sql.NullFloat64
		sold  sql.NullBool
		date  sql.NullInt64
	)
	if err := rows.Scan(&t.ID, &t.Title, &t.Description, &t.Category, &t.Image, &price, &sold, &date); err != nil {
		return core.Transaction{}, err
	}
	if price.Valid {
		t.Price = &price.Float64
	}
	if sold.Valid {
		t.Sold = &sold.Bool
	}
	if date.Valid {
		ts := time.Unix(date.Int64, 0).UTC()
		t.DateOfSale = &ts
	}
	return t, nil
}

func nullFloat(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullBool(v *bool) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullUnix(v *time.Time) any {
	if v == nil {
		return nil
	}
	return v.Unix()
}
