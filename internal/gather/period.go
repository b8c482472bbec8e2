package gather

import (
	"fmt"
	"time"

	"txgather/internal/domain"
)

// Period presets accepted by PeriodRange.
const (
	PeriodLastDay   = "last_day"
	PeriodWeek      = "week"
	PeriodMonth     = "month"
	PeriodSixMonths = "6_months"
	PeriodYear      = "year"
	PeriodFiveYears = "5_years"
	PeriodCustom    = "custom"
)

// PeriodRange resolves a period preset to an inclusive calendar-day range
// ending today. "custom" requires both start and end in YYYY-MM-DD form. An
// empty period defaults to the last five days.
func PeriodRange(period, start, end string, now time.Time) (domain.DateRange, error) {
	today := domain.Day(now)

	switch period {
	case PeriodCustom:
		if start == "" || end == "" {
			return domain.DateRange{}, fmt.Errorf("period %q requires both start and end dates", period)
		}
		s, err := time.Parse("2006-01-02", start)
		if err != nil {
			return domain.DateRange{}, fmt.Errorf("parsing start date %q: %w", start, err)
		}
		e, err := time.Parse("2006-01-02", end)
		if err != nil {
			return domain.DateRange{}, fmt.Errorf("parsing end date %q: %w", end, err)
		}
		if e.Before(s) {
			return domain.DateRange{}, fmt.Errorf("end date %s precedes start date %s", end, start)
		}
		return domain.DateRange{Start: domain.Day(s), End: domain.Day(e)}, nil

	case PeriodLastDay:
		// Walk back from yesterday to the most recent weekday.
		d := today.AddDate(0, 0, -1)
		for d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			d = d.AddDate(0, 0, -1)
		}
		return domain.DateRange{Start: d, End: d}, nil

	case PeriodWeek:
		offset := (int(today.Weekday()) + 6) % 7 // Monday = 0
		return domain.DateRange{Start: today.AddDate(0, 0, -offset), End: today}, nil

	case PeriodMonth:
		first := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC)
		return domain.DateRange{Start: first, End: today}, nil

	case PeriodSixMonths:
		return domain.DateRange{Start: today.AddDate(0, 0, -180), End: today}, nil

	case PeriodYear:
		return domain.DateRange{Start: today.AddDate(0, 0, -365), End: today}, nil

	case PeriodFiveYears:
		return domain.DateRange{Start: today.AddDate(0, 0, -365*5), End: today}, nil

	case "":
		return domain.DateRange{Start: today.AddDate(0, 0, -5), End: today}, nil

	default:
		return domain.DateRange{}, fmt.Errorf("unknown period %q", period)
	}
}
