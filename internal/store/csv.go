package store

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"txgather/internal/domain"
)

// Compile-time interface checks.
var _ TickSink = (*CSVStore)(nil)
var _ BarSink = (*CSVStore)(nil)

// CSVStore writes ticks and bars as CSV files under a single directory,
// one file per named output unit. Timestamps are rendered in Taipei time,
// where the instrument trades.
type CSVStore struct {
	Dir string
	loc *time.Location
}

// NewCSVStore creates a CSVStore rooted at dir.
func NewCSVStore(dir string) *CSVStore {
	return &CSVStore{Dir: dir, loc: taipei()}
}

// taipei resolves the display zone; hosts without tzdata fall back to the
// fixed +08:00 offset (Taiwan observes no DST).
func taipei() *time.Location {
	loc, err := time.LoadLocation("Asia/Taipei")
	if err != nil {
		return time.FixedZone("Asia/Taipei", 8*3600)
	}
	return loc
}

// utf8BOM prefixes every file so spreadsheet tools detect the encoding.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// WriteTicks writes one tick file <dir>/<name>.csv with columns
// datetime, close, volume, tick_type.
func (s *CSVStore) WriteTicks(_ context.Context, name string, ticks []domain.Tick) error {
	return s.writeRows(name, []string{"datetime", "close", "volume", "tick_type"},
		len(ticks), func(i int) []string {
			t := ticks[i]
			return []string{
				t.TS.In(s.loc).Format("2006-01-02 15:04:05.000000-07:00"),
				t.Price.String(),
				strconv.FormatInt(t.Volume, 10),
				t.TickType,
			}
		})
}

// WriteBars writes one bar file <dir>/<name>.csv with columns
// datetime, Open, High, Low, Close, Volume.
func (s *CSVStore) WriteBars(_ context.Context, name string, bars []domain.Bar) error {
	return s.writeRows(name, []string{"datetime", "Open", "High", "Low", "Close", "Volume"},
		len(bars), func(i int) []string {
			b := bars[i]
			return []string{
				b.TS.In(s.loc).Format("2006-01-02 15:04:05-07:00"),
				b.Open.String(),
				b.High.String(),
				b.Low.String(),
				b.Close.String(),
				strconv.FormatInt(b.Volume, 10),
			}
		})
}

func (s *CSVStore) writeRows(name string, header []string, n int, row func(i int) []string) error {
	path := filepath.Join(s.Dir, name+".csv")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating csv dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	if _, err := f.Write(utf8BOM); err != nil {
		return fmt.Errorf("writing BOM to %s: %w", path, err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("writing header to %s: %w", path, err)
	}
	for i := 0; i < n; i++ {
		if err := w.Write(row(i)); err != nil {
			return fmt.Errorf("writing row to %s: %w", path, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flushing %s: %w", path, err)
	}
	return f.Close()
}
