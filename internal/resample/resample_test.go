package resample

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"txgather/internal/domain"
)

func tick(hh, mm, ss int, price int64, volume int64) domain.Tick {
	return domain.Tick{
		TS:       time.Date(2025, 11, 20, hh, mm, ss, 0, time.UTC),
		Price:    decimal.NewFromInt(price),
		Volume:   volume,
		TickType: domain.TickTypeDeal,
	}
}

func TestToMinuteBars(t *testing.T) {
	ticks := []domain.Tick{
		tick(9, 1, 10, 100, 10),
		tick(9, 1, 25, 120, 5),
		tick(9, 1, 50, 110, 8),
		tick(9, 2, 5, 115, 20),
	}

	bars := ToMinuteBars(ticks)
	require.Len(t, bars, 2)

	first := bars[0]
	assert.Equal(t, time.Date(2025, 11, 20, 9, 1, 0, 0, time.UTC), first.TS)
	assert.True(t, first.Open.Equal(decimal.NewFromInt(100)), "open %s", first.Open)
	assert.True(t, first.High.Equal(decimal.NewFromInt(120)), "high %s", first.High)
	assert.True(t, first.Low.Equal(decimal.NewFromInt(100)), "low %s", first.Low)
	assert.True(t, first.Close.Equal(decimal.NewFromInt(110)), "close %s", first.Close)
	assert.Equal(t, int64(23), first.Volume)

	second := bars[1]
	assert.Equal(t, time.Date(2025, 11, 20, 9, 2, 0, 0, time.UTC), second.TS)
	assert.True(t, second.Open.Equal(decimal.NewFromInt(115)))
	assert.True(t, second.High.Equal(decimal.NewFromInt(115)))
	assert.True(t, second.Low.Equal(decimal.NewFromInt(115)))
	assert.True(t, second.Close.Equal(decimal.NewFromInt(115)))
	assert.Equal(t, int64(20), second.Volume)
}

func TestToMinuteBarsEmpty(t *testing.T) {
	assert.Nil(t, ToMinuteBars(nil))
	assert.Nil(t, ToMinuteBars([]domain.Tick{}))
}

func TestToMinuteBarsUnsortedInput(t *testing.T) {
	ticks := []domain.Tick{
		tick(9, 2, 5, 115, 20),
		tick(9, 1, 50, 110, 8),
		tick(9, 1, 10, 100, 10),
		tick(9, 1, 25, 120, 5),
	}

	bars := ToMinuteBars(ticks)
	require.Len(t, bars, 2)
	assert.True(t, bars[0].Open.Equal(decimal.NewFromInt(100)))
	assert.True(t, bars[0].Close.Equal(decimal.NewFromInt(110)))
}

func TestToMinuteBarsSameTimestampPreservesArrivalOrder(t *testing.T) {
	// Two ticks at the identical instant: open/close follow feed arrival
	// order, which the stable sort must not disturb.
	ticks := []domain.Tick{
		tick(9, 1, 10, 100, 1),
		tick(9, 1, 10, 105, 1),
	}

	bars := ToMinuteBars(ticks)
	require.Len(t, bars, 1)
	assert.True(t, bars[0].Open.Equal(decimal.NewFromInt(100)))
	assert.True(t, bars[0].Close.Equal(decimal.NewFromInt(105)))
}

func TestToMinuteBarsGapsProduceNoSyntheticBars(t *testing.T) {
	ticks := []domain.Tick{
		tick(9, 1, 10, 100, 1),
		tick(9, 30, 0, 101, 2),
	}

	bars := ToMinuteBars(ticks)
	require.Len(t, bars, 2)
	assert.Equal(t, time.Date(2025, 11, 20, 9, 1, 0, 0, time.UTC), bars[0].TS)
	assert.Equal(t, time.Date(2025, 11, 20, 9, 30, 0, 0, time.UTC), bars[1].TS)
}

func TestToMinuteBarsDoesNotMutateInput(t *testing.T) {
	ticks := []domain.Tick{
		tick(9, 2, 5, 115, 20),
		tick(9, 1, 10, 100, 10),
	}
	ToMinuteBars(ticks)
	assert.Equal(t, time.Date(2025, 11, 20, 9, 2, 5, 0, time.UTC), ticks[0].TS)
}

func TestToMinuteBarsInvariants(t *testing.T) {
	ticks := []domain.Tick{
		tick(9, 1, 1, 103, 2),
		tick(9, 1, 2, 99, 3),
		tick(9, 1, 3, 107, 4),
		tick(9, 1, 4, 101, 1),
	}

	bars := ToMinuteBars(ticks)
	require.Len(t, bars, 1)
	b := bars[0]
	assert.True(t, b.Low.LessThanOrEqual(b.Open))
	assert.True(t, b.Low.LessThanOrEqual(b.Close))
	assert.True(t, b.High.GreaterThanOrEqual(b.Open))
	assert.True(t, b.High.GreaterThanOrEqual(b.Close))
	assert.True(t, b.Low.LessThanOrEqual(b.High))
	assert.Equal(t, int64(10), b.Volume)
}
