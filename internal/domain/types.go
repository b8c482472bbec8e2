// Package domain defines the core value types shared across the acquisition
// pipeline: futures contracts, trade ticks, and OHLCV bars.
package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Contract identifies one futures instrument instance. Contracts are
// immutable and supplied by the brokerage contract catalog.
type Contract struct {
	Code         string    // unique contract code, e.g. "TXFK5"
	Name         string    // human-readable name
	DeliveryDate time.Time // last valid trading day (UTC midnight)
}

// spreadSuffixes are the code suffixes of calendar-spread contracts, which
// never participate in continuous-series stitching.
var spreadSuffixes = []string{"R1", "R2"}

// IsSpread reports whether the contract is a calendar-spread instrument.
func (c Contract) IsSpread() bool {
	for _, s := range spreadSuffixes {
		if strings.HasSuffix(c.Code, s) {
			return true
		}
	}
	return false
}

// Tick is one recorded trade execution.
type Tick struct {
	TS       time.Time       // nanosecond-resolution trade instant (UTC)
	Price    decimal.Decimal // deal price
	Volume   int64           // contracts traded, never negative
	TickType string          // categorical; "Deal" when the feed omits it
}

// TickTypeDeal is the default tick type assigned when the data feed does not
// report one.
const TickTypeDeal = "Deal"

// Bar is one OHLCV record for a closed 1-minute interval. TS is the
// minute-aligned bucket start.
type Bar struct {
	TS     time.Time
	Open   decimal.Decimal
	High   decimal.Decimal
	Low    decimal.Decimal
	Close  decimal.Decimal
	Volume int64
}

// DateRange is an inclusive calendar-day range.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Day normalizes t to its calendar day: UTC midnight.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
