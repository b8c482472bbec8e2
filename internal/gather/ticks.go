package gather

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"txgather/internal/domain"
	"txgather/internal/fetch"
	"txgather/internal/plan"
	"txgather/internal/resample"
	"txgather/internal/session"
	"txgather/internal/store"
	"txgather/internal/util"
)

// Compile-time interface checks.
var _ Gatherer = (*TickGatherer)(nil)
var _ Gatherer = (*KBarGatherer)(nil)

// Weekly output-unit naming schemes. "span" names each week file after the
// first and last tick actually present in the bucket; "canonical" names it
// after the week's Monday.
const (
	WeeklySpan      = "span"
	WeeklyCanonical = "canonical"
)

// weeklyThresholdDays is the accumulated-span size above which week-bucket
// output units are produced in addition to the daily ones.
const weeklyThresholdDays = 7

// TickGatherer downloads trade ticks for the continuous futures series day
// by day, checkpointing each day before it is attempted so an interrupted
// run resumes at exactly that day.
type TickGatherer struct {
	session      session.Session
	checkpoint   *Checkpoint
	limiter      *util.RateLimiter
	rng          domain.DateRange
	symbol       string
	weeklyNaming string
	tickSinks    []store.TickSink
	barSinks     []store.BarSink
	log          *slog.Logger
}

// NewTickGatherer creates a TickGatherer for the given range and sinks.
func NewTickGatherer(sess session.Session, cp *Checkpoint, limiter *util.RateLimiter,
	rng domain.DateRange, symbol, weeklyNaming string,
	tickSinks []store.TickSink, barSinks []store.BarSink) *TickGatherer {
	if weeklyNaming == "" {
		weeklyNaming = WeeklySpan
	}
	return &TickGatherer{
		session:      sess,
		checkpoint:   cp,
		limiter:      limiter,
		rng:          rng,
		symbol:       symbol,
		weeklyNaming: weeklyNaming,
		tickSinks:    tickSinks,
		barSinks:     barSinks,
		log:          slog.Default().With("gatherer", "ticks"),
	}
}

// Name returns the gatherer identifier.
func (g *TickGatherer) Name() string { return "ticks" }

// Run executes the acquisition loop. A day whose fetch fails even after the
// reauthentication retry halts the loop with the checkpoint left in place;
// re-invoking Run later resumes from exactly that day. After the whole
// range completes, the checkpoint is cleared, week-bucket units are emitted
// when the accumulated span exceeds seven days, and the accumulated ticks
// are resampled into 1-minute bars for the bar sinks.
func (g *TickGatherer) Run(ctx context.Context) error {
	contracts, err := fetch.Execute(ctx, g.session, "contracts", func(ctx context.Context) ([]domain.Contract, error) {
		return g.session.Contracts(ctx, g.symbol)
	})
	if err != nil {
		return fmt.Errorf("fetching contract catalog: %w", err)
	}

	segments, err := plan.Segments(contracts, g.rng.Start, g.rng.End)
	if err != nil {
		return fmt.Errorf("planning query segments: %w", err)
	}

	// Resume takes priority over the originally requested start, but never
	// extends past the originally requested end.
	effStart := g.rng.Start
	if day, ok := g.checkpoint.Read(); ok && !day.After(g.rng.End) {
		effStart = day
		g.log.Info("resuming from checkpoint", "date", day.Format("2006-01-02"))
	}

	g.log.Info("starting download plan",
		"start", effStart.Format("2006-01-02"),
		"end", g.rng.End.Format("2006-01-02"),
		"segments", len(segments),
	)

	var all []domain.Tick
	for _, seg := range segments {
		for day := seg.Start; !day.After(seg.End); day = day.AddDate(0, 0, 1) {
			if day.Before(effStart) {
				continue
			}
			if err := ctx.Err(); err != nil {
				return err
			}

			ticks, err := g.fetchDay(ctx, seg.Contract, day)
			if err != nil {
				g.log.Error("halting: day could not be fetched, checkpoint retained for resume",
					"contract", seg.Contract.Code,
					"date", day.Format("2006-01-02"),
					"error", err,
				)
				return err
			}
			if len(ticks) == 0 {
				g.log.Debug("no trading", "contract", seg.Contract.Code, "date", day.Format("2006-01-02"))
				continue
			}

			name := fmt.Sprintf("%s_ticks_%s_%s", g.symbol, seg.Contract.Code, day.Format("2006-01-02"))
			for _, sink := range g.tickSinks {
				if err := sink.WriteTicks(ctx, name, ticks); err != nil {
					return fmt.Errorf("persisting ticks %s: %w", name, err)
				}
			}
			all = append(all, ticks...)

			g.log.Info("day downloaded",
				"contract", seg.Contract.Code,
				"date", day.Format("2006-01-02"),
				"ticks", len(ticks),
			)
		}
	}

	if err := g.checkpoint.Clear(); err != nil {
		return fmt.Errorf("clearing checkpoint: %w", err)
	}

	if len(all) == 0 {
		g.log.Warn("no ticks in the requested range, nothing to persist")
		return nil
	}

	if err := g.writeWeekly(ctx, all); err != nil {
		return err
	}

	// A resumed run accumulated only the days from the checkpoint onward, so
	// the unit name must not claim the originally requested start.
	bars := resample.ToMinuteBars(all)
	name := fmt.Sprintf("%s_1m_data_%s_to_%s",
		g.symbol, effStart.Format("2006-01-02"), g.rng.End.Format("2006-01-02"))
	for _, sink := range g.barSinks {
		if err := sink.WriteBars(ctx, name, bars); err != nil {
			return fmt.Errorf("persisting bars %s: %w", name, err)
		}
	}

	g.log.Info("complete", "ticks", len(all), "bars", len(bars))
	return nil
}

// fetchDay retrieves one day of ticks through the rate limiter and the
// reauthentication-retry executor. Checkpoint lands before the attempt.
func (g *TickGatherer) fetchDay(ctx context.Context, contract domain.Contract, day time.Time) ([]domain.Tick, error) {
	if err := g.checkpoint.Write(day); err != nil {
		return nil, fmt.Errorf("writing checkpoint: %w", err)
	}
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	op := fmt.Sprintf("ticks %s %s", contract.Code, day.Format("2006-01-02"))
	return fetch.Execute(ctx, g.session, op, func(ctx context.Context) ([]domain.Tick, error) {
		return g.session.Ticks(ctx, contract, day)
	})
}

// writeWeekly partitions the accumulated ticks into Monday-start calendar
// weeks and persists one unit per week, but only when the accumulated span
// exceeds the weekly threshold. Ticks arrive here already in day order.
func (g *TickGatherer) writeWeekly(ctx context.Context, ticks []domain.Tick) error {
	first, last := ticks[0].TS, ticks[len(ticks)-1].TS
	if util.DaysBetween(first, last) <= weeklyThresholdDays {
		return nil
	}

	buckets := make(map[time.Time][]domain.Tick)
	var order []time.Time
	for _, t := range ticks {
		week := util.WeekStart(t.TS)
		if _, seen := buckets[week]; !seen {
			order = append(order, week)
		}
		buckets[week] = append(buckets[week], t)
	}

	for _, week := range order {
		bucket := buckets[week]

		var name string
		if g.weeklyNaming == WeeklyCanonical {
			name = fmt.Sprintf("%s_ticks_week_%s", g.symbol, week.Format("2006-01-02"))
		} else {
			name = fmt.Sprintf("%s_ticks_%s_to_%s", g.symbol,
				bucket[0].TS.Format("2006-01-02"),
				bucket[len(bucket)-1].TS.Format("2006-01-02"))
		}

		for _, sink := range g.tickSinks {
			if err := sink.WriteTicks(ctx, name, bucket); err != nil {
				return fmt.Errorf("persisting weekly ticks %s: %w", name, err)
			}
		}
		g.log.Info("week written", "unit", name, "ticks", len(bucket))
	}
	return nil
}
