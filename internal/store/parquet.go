package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/shopspring/decimal"

	"txgather/internal/domain"
)

// Compile-time interface check.
var _ TickSink = (*ParquetStore)(nil)

// ParquetStore persists tick output units as Parquet files on disk.
// Layout: <DataDir>/txf/ticks/<name>.parquet
type ParquetStore struct {
	DataDir string
}

// NewParquetStore creates a ParquetStore rooted at the given data directory.
func NewParquetStore(dataDir string) *ParquetStore {
	return &ParquetStore{DataDir: dataDir}
}

// tickRecord is the on-disk Parquet schema for raw ticks.
type tickRecord struct {
	Timestamp int64   `parquet:"timestamp,timestamp(nanosecond)"`
	Price     float64 `parquet:"price"`
	Volume    int64   `parquet:"volume"`
	TickType  string  `parquet:"tick_type"`
}

// WriteTicks writes (or replaces) one named tick file.
func (s *ParquetStore) WriteTicks(_ context.Context, name string, ticks []domain.Tick) error {
	records := make([]tickRecord, len(ticks))
	for i, t := range ticks {
		records[i] = tickRecord{
			Timestamp: t.TS.UnixNano(),
			Price:     t.Price.InexactFloat64(),
			Volume:    t.Volume,
			TickType:  t.TickType,
		}
	}

	path := s.tickPath(name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating ticks dir: %w", err)
	}
	if err := parquet.WriteFile(path, records); err != nil {
		return fmt.Errorf("writing ticks %s: %w", name, err)
	}
	return nil
}

// ReadTicks reads back one named tick file.
func (s *ParquetStore) ReadTicks(name string) ([]domain.Tick, error) {
	records, err := parquet.ReadFile[tickRecord](s.tickPath(name))
	if err != nil {
		return nil, fmt.Errorf("reading ticks %s: %w", name, err)
	}

	ticks := make([]domain.Tick, len(records))
	for i, r := range records {
		ticks[i] = domain.Tick{
			TS:       time.Unix(0, r.Timestamp).UTC(),
			Price:    decimal.NewFromFloat(r.Price),
			Volume:   r.Volume,
			TickType: r.TickType,
		}
	}
	return ticks, nil
}

func (s *ParquetStore) tickPath(name string) string {
	return filepath.Join(s.DataDir, "txf", "ticks", name+".parquet")
}
