// Package store defines the persistence collaborators the acquisition
// pipeline writes through, plus the CSV, Parquet, SQLite, and Firestore
// implementations.
//
// Every write targets a named output unit and either fully succeeds or
// returns an error; sinks make no partial-row guarantees.
package store

import (
	"context"

	"txgather/internal/domain"
)

// TickSink persists a named batch of raw trade ticks. The name identifies
// the output unit (one day or one week of the continuous series) and a
// repeated write for the same name replaces the unit.
type TickSink interface {
	WriteTicks(ctx context.Context, name string, ticks []domain.Tick) error
}

// BarSink persists a named batch of 1-minute OHLCV bars.
type BarSink interface {
	WriteBars(ctx context.Context, name string, bars []domain.Bar) error
}
