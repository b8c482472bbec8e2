// Package plan partitions a requested date range across a sequence of
// expiring futures contracts into a gap-free, non-overlapping query plan.
//
// The rollover rule: a contract owns every calendar day from the day after
// its predecessor's delivery date through its own delivery date.
package plan

import (
	"errors"
	"sort"
	"time"

	"txgather/internal/domain"
)

// ErrNoApplicableContract indicates that no regular contract in the catalog
// is still valid on or after the requested start date.
var ErrNoApplicableContract = errors.New("no applicable contract covers the requested range")

// Segment assigns one contract to an inclusive sub-range of the request.
type Segment struct {
	Contract domain.Contract
	Start    time.Time // inclusive, UTC midnight
	End      time.Time // inclusive, UTC midnight
}

// Days returns the number of calendar days the segment spans.
func (s Segment) Days() int {
	return int(s.End.Sub(s.Start).Hours()/24) + 1
}

// Segments builds the ordered query plan covering [start, end]. Spread
// contracts are excluded; the remainder is walked in delivery-date order.
// Within the returned plan, segment i+1 starts exactly one day after segment
// i ends, the first segment starts at start and the last ends at end.
//
// Overlapping or duplicate delivery dates in the catalog are caller error
// and produce an unspecified plan.
func Segments(contracts []domain.Contract, start, end time.Time) ([]Segment, error) {
	start, end = domain.Day(start), domain.Day(end)

	regular := make([]domain.Contract, 0, len(contracts))
	for _, c := range contracts {
		if !c.IsSpread() {
			regular = append(regular, c)
		}
	}
	if len(regular) == 0 {
		return nil, ErrNoApplicableContract
	}

	sort.Slice(regular, func(i, j int) bool {
		return regular[i].DeliveryDate.Before(regular[j].DeliveryDate)
	})

	// First contract still alive on or after the requested start.
	first := -1
	for i, c := range regular {
		if !domain.Day(c.DeliveryDate).Before(start) {
			first = i
			break
		}
	}
	if first < 0 {
		return nil, ErrNoApplicableContract
	}

	var segments []Segment
	for i := first; i < len(regular); i++ {
		c := regular[i]
		delivery := domain.Day(c.DeliveryDate)

		rangeStart := start
		if i > first {
			rangeStart = domain.Day(regular[i-1].DeliveryDate).AddDate(0, 0, 1)
		}

		effStart := rangeStart
		if effStart.Before(start) {
			effStart = start
		}
		effEnd := delivery
		if effEnd.After(end) {
			effEnd = end
		}

		if !effStart.After(effEnd) {
			segments = append(segments, Segment{Contract: c, Start: effStart, End: effEnd})
		}

		if !delivery.Before(end) {
			break
		}
	}

	return segments, nil
}
