package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"txgather/internal/domain"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// Compile-time interface check.
var _ BarSink = (*SQLiteStore)(nil)

// SQLiteStore persists 1-minute bars in a SQLite database. Prices are stored
// as decimal text so no precision is lost. The (series, bucket) pair is the
// upsert key: re-running a range rewrites the same rows.
type SQLiteStore struct {
	db *sql.DB
}

const barsSchema = `
CREATE TABLE IF NOT EXISTS bars (
	series     TEXT    NOT NULL,
	bucket_utc INTEGER NOT NULL, -- minute-aligned bucket start, unix seconds
	open       TEXT    NOT NULL,
	high       TEXT    NOT NULL,
	low        TEXT    NOT NULL,
	close      TEXT    NOT NULL,
	volume     INTEGER NOT NULL,
	PRIMARY KEY (series, bucket_utc)
);`

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and ensures
// the bars table exists.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}
	if _, err := db.Exec(barsSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating bars table: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// WriteBars upserts the batch under the given series name in one
// transaction.
func (s *SQLiteStore) WriteBars(ctx context.Context, name string, bars []domain.Bar) error {
	if len(bars) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning bar write tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO bars (series, bucket_utc, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (series, bucket_utc) DO UPDATE SET
			open = excluded.open,
			high = excluded.high,
			low = excluded.low,
			close = excluded.close,
			volume = excluded.volume`)
	if err != nil {
		return fmt.Errorf("preparing bar insert: %w", err)
	}
	defer stmt.Close()

	for _, b := range bars {
		if _, err := stmt.ExecContext(ctx, name, b.TS.Unix(),
			b.Open.String(), b.High.String(), b.Low.String(), b.Close.String(), b.Volume); err != nil {
			return fmt.Errorf("inserting bar %s/%s: %w", name, b.TS.Format(time.RFC3339), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing bar write: %w", err)
	}
	return nil
}

// ReadBars returns all bars for a series within [start, end], ascending.
func (s *SQLiteStore) ReadBars(ctx context.Context, name string, start, end time.Time) ([]domain.Bar, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT bucket_utc, open, high, low, close, volume
		FROM bars
		WHERE series = ? AND bucket_utc BETWEEN ? AND ?
		ORDER BY bucket_utc`,
		name, start.Unix(), end.Unix())
	if err != nil {
		return nil, fmt.Errorf("querying bars %s: %w", name, err)
	}
	defer rows.Close()

	var bars []domain.Bar
	for rows.Next() {
		var bucket int64
		var open, high, low, cls string
		var volume int64
		if err := rows.Scan(&bucket, &open, &high, &low, &cls, &volume); err != nil {
			return nil, fmt.Errorf("scanning bar row: %w", err)
		}

		bar := domain.Bar{TS: time.Unix(bucket, 0).UTC(), Volume: volume}
		for _, f := range []struct {
			dst *decimal.Decimal
			src string
		}{
			{&bar.Open, open}, {&bar.High, high}, {&bar.Low, low}, {&bar.Close, cls},
		} {
			d, err := decimal.NewFromString(f.src)
			if err != nil {
				return nil, fmt.Errorf("parsing stored price %q: %w", f.src, err)
			}
			*f.dst = d
		}
		bars = append(bars, bar)
	}
	return bars, rows.Err()
}
