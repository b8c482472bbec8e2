package gather

import (
	"context"
	"fmt"
	"log/slog"

	"txgather/internal/domain"
	"txgather/internal/fetch"
	"txgather/internal/plan"
	"txgather/internal/session"
	"txgather/internal/store"
)

// KBarGatherer downloads provider-built 1-minute k-bars with one range
// query per contract segment. There is no checkpoint: a run either writes
// the whole range or fails, and re-running it is idempotent.
type KBarGatherer struct {
	session  session.Session
	rng      domain.DateRange
	symbol   string
	barSinks []store.BarSink
	log      *slog.Logger
}

// NewKBarGatherer creates a KBarGatherer for the given range and sinks.
func NewKBarGatherer(sess session.Session, rng domain.DateRange, symbol string, barSinks []store.BarSink) *KBarGatherer {
	return &KBarGatherer{
		session:  sess,
		rng:      rng,
		symbol:   symbol,
		barSinks: barSinks,
		log:      slog.Default().With("gatherer", "kbars"),
	}
}

// Name returns the gatherer identifier.
func (g *KBarGatherer) Name() string { return "kbars" }

// Run fetches k-bars segment by segment and writes the concatenation as a
// single output unit covering the requested range.
func (g *KBarGatherer) Run(ctx context.Context) error {
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

	var all []domain.Bar
	for _, seg := range segments {
		op := fmt.Sprintf("kbars %s %s..%s", seg.Contract.Code,
			seg.Start.Format("2006-01-02"), seg.End.Format("2006-01-02"))

		bars, err := fetch.Execute(ctx, g.session, op, func(ctx context.Context) ([]domain.Bar, error) {
			return g.session.KBars(ctx, seg.Contract, seg.Start, seg.End)
		})
		if err != nil {
			return err
		}

		g.log.Info("segment downloaded",
			"contract", seg.Contract.Code,
			"start", seg.Start.Format("2006-01-02"),
			"end", seg.End.Format("2006-01-02"),
			"bars", len(bars),
		)
		all = append(all, bars...)
	}

	if len(all) == 0 {
		g.log.Warn("no k-bars in the requested range, nothing to persist")
		return nil
	}

	name := fmt.Sprintf("%s_1m_data_%s_to_%s",
		g.symbol, g.rng.Start.Format("2006-01-02"), g.rng.End.Format("2006-01-02"))
	for _, sink := range g.barSinks {
		if err := sink.WriteBars(ctx, name, all); err != nil {
			return fmt.Errorf("persisting bars %s: %w", name, err)
		}
	}

	g.log.Info("complete", "bars", len(all))
	return nil
}
