// Package resample aggregates raw trade ticks into fixed-width OHLCV bars.
package resample

import (
	"sort"
	"time"

	"txgather/internal/domain"
)

// ToMinuteBars groups ticks into 1-minute buckets and emits one OHLCV bar
// per non-empty bucket, in ascending time order. Within a bucket the open is
// the first tick's price and the close is the last tick's price in
// chronological order; ticks sharing a timestamp keep their arrival order
// (stable sort). An empty input returns nil: no trading is not a fault.
//
// Buckets with zero ticks produce no bar. Consumers must not assume the
// output is minute-dense.
func ToMinuteBars(ticks []domain.Tick) []domain.Bar {
	if len(ticks) == 0 {
		return nil
	}

	sorted := make([]domain.Tick, len(ticks))
	copy(sorted, ticks)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].TS.Before(sorted[j].TS)
	})

	var bars []domain.Bar
	for _, t := range sorted {
		bucket := t.TS.Truncate(time.Minute)
		if len(bars) == 0 || !bars[len(bars)-1].TS.Equal(bucket) {
			bars = append(bars, domain.Bar{
				TS:     bucket,
				Open:   t.Price,
				High:   t.Price,
				Low:    t.Price,
				Close:  t.Price,
				Volume: t.Volume,
			})
			continue
		}

		b := &bars[len(bars)-1]
		if t.Price.GreaterThan(b.High) {
			b.High = t.Price
		}
		if t.Price.LessThan(b.Low) {
			b.Low = t.Price
		}
		b.Close = t.Price
		b.Volume += t.Volume
	}

	return bars
}
