package gather

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"txgather/internal/domain"
	"txgather/internal/fetch"
	"txgather/internal/plan"
	"txgather/internal/store"
	"txgather/internal/util"
)

// fakeSession serves canned catalog and tick data and can be told to fail
// specific day fetches a given number of times.
type fakeSession struct {
	contracts []domain.Contract
	ticks     map[string][]domain.Tick // key: "<code> <YYYY-MM-DD>"
	kbars     map[string][]domain.Bar  // key: contract code
	failures  map[string]int           // remaining failures per ticks key
	logins    int
	loginErr  error
	tickCalls []string
}

func dayKey(code string, day time.Time) string {
	return code + " " + day.Format("2006-01-02")
}

func (s *fakeSession) Login(ctx context.Context) error {
	s.logins++
	return s.loginErr
}

func (s *fakeSession) Contracts(ctx context.Context, symbol string) ([]domain.Contract, error) {
	return s.contracts, nil
}

func (s *fakeSession) Ticks(ctx context.Context, contract domain.Contract, day time.Time) ([]domain.Tick, error) {
	key := dayKey(contract.Code, day)
	s.tickCalls = append(s.tickCalls, key)
	if s.failures[key] > 0 {
		s.failures[key]--
		return nil, fmt.Errorf("token expired")
	}
	return s.ticks[key], nil
}

func (s *fakeSession) KBars(ctx context.Context, contract domain.Contract, start, end time.Time) ([]domain.Bar, error) {
	return s.kbars[contract.Code], nil
}

// memSink records every write keyed by output-unit name.
type memSink struct {
	ticks map[string][]domain.Tick
	bars  map[string][]domain.Bar
}

func newMemSink() *memSink {
	return &memSink{ticks: map[string][]domain.Tick{}, bars: map[string][]domain.Bar{}}
}

func (m *memSink) WriteTicks(ctx context.Context, name string, ticks []domain.Tick) error {
	m.ticks[name] = ticks
	return nil
}

func (m *memSink) WriteBars(ctx context.Context, name string, bars []domain.Bar) error {
	m.bars[name] = bars
	return nil
}

func day(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

func tickAt(ts string, price float64) domain.Tick {
	t, err := time.Parse("2006-01-02 15:04:05", ts)
	if err != nil {
		panic(err)
	}
	return domain.Tick{TS: t, Price: decimal.NewFromFloat(price), Volume: 1, TickType: domain.TickTypeDeal}
}

func decContract(code, delivery string) domain.Contract {
	return domain.Contract{Code: code, Name: code, DeliveryDate: day(delivery)}
}

func newTickGatherer(sess *fakeSession, cp *Checkpoint, sink *memSink, rng domain.DateRange, naming string) *TickGatherer {
	return NewTickGatherer(sess, cp, util.NewRateLimiter(0), rng, "TXF", naming,
		[]store.TickSink{sink}, []store.BarSink{sink})
}

func TestTickGathererFullRange(t *testing.T) {
	sess := &fakeSession{
		contracts: []domain.Contract{decContract("TXFL5", "2025-12-17")},
		ticks: map[string][]domain.Tick{
			"TXFL5 2025-11-18": {tickAt("2025-11-18 09:01:10", 100), tickAt("2025-11-18 09:01:40", 110)},
			"TXFL5 2025-11-20": {tickAt("2025-11-20 09:02:05", 115)},
		},
	}
	cp := NewCheckpoint(t.TempDir())
	sink := newMemSink()
	rng := domain.DateRange{Start: day("2025-11-18"), End: day("2025-11-20")}

	g := newTickGatherer(sess, cp, sink, rng, WeeklySpan)
	require.NoError(t, g.Run(context.Background()))

	// One daily unit per day that traded; the empty 19th yields nothing.
	assert.Len(t, sink.ticks["TXF_ticks_TXFL5_2025-11-18"], 2)
	assert.Len(t, sink.ticks["TXF_ticks_TXFL5_2025-11-20"], 1)
	assert.NotContains(t, sink.ticks, "TXF_ticks_TXFL5_2025-11-19")

	// Span <= 7 days: no weekly units.
	assert.Len(t, sink.ticks, 2)

	// Resampled bars cover the whole requested range under one name.
	bars := sink.bars["TXF_1m_data_2025-11-18_to_2025-11-20"]
	require.Len(t, bars, 2)
	assert.Equal(t, "100", bars[0].Open.String())
	assert.Equal(t, "110", bars[0].Close.String())

	// Completed range clears the checkpoint.
	_, ok := cp.Read()
	assert.False(t, ok)
}

func TestTickGathererResumesFromCheckpoint(t *testing.T) {
	sess := &fakeSession{
		contracts: []domain.Contract{decContract("TXFL5", "2025-12-17")},
		ticks: map[string][]domain.Tick{
			"TXFL5 2025-11-18": {tickAt("2025-11-18 09:00:00", 100)},
			"TXFL5 2025-11-19": {tickAt("2025-11-19 09:00:00", 101)},
			"TXFL5 2025-11-20": {tickAt("2025-11-20 09:00:00", 102)},
		},
	}
	cp := NewCheckpoint(t.TempDir())
	require.NoError(t, cp.Write(day("2025-11-19")))
	sink := newMemSink()
	rng := domain.DateRange{Start: day("2025-11-18"), End: day("2025-11-20")}

	g := newTickGatherer(sess, cp, sink, rng, WeeklySpan)
	require.NoError(t, g.Run(context.Background()))

	// The checkpointed day is re-attempted; everything before it is skipped.
	assert.Equal(t, []string{"TXFL5 2025-11-19", "TXFL5 2025-11-20"}, sess.tickCalls)
	assert.NotContains(t, sink.ticks, "TXF_ticks_TXFL5_2025-11-18")
	assert.Contains(t, sink.ticks, "TXF_ticks_TXFL5_2025-11-19")

	// The bar unit covers only the resumed days and is named accordingly.
	assert.NotContains(t, sink.bars, "TXF_1m_data_2025-11-18_to_2025-11-20")
	assert.Len(t, sink.bars["TXF_1m_data_2025-11-19_to_2025-11-20"], 2)
}

func TestTickGathererIgnoresStaleCheckpoint(t *testing.T) {
	sess := &fakeSession{
		contracts: []domain.Contract{decContract("TXFL5", "2025-12-17")},
		ticks: map[string][]domain.Tick{
			"TXFL5 2025-11-18": {tickAt("2025-11-18 09:00:00", 100)},
		},
	}
	cp := NewCheckpoint(t.TempDir())
	// Checkpoint past the requested end belongs to some other run.
	require.NoError(t, cp.Write(day("2025-12-31")))
	sink := newMemSink()
	rng := domain.DateRange{Start: day("2025-11-18"), End: day("2025-11-18")}

	g := newTickGatherer(sess, cp, sink, rng, WeeklySpan)
	require.NoError(t, g.Run(context.Background()))
	assert.Contains(t, sink.ticks, "TXF_ticks_TXFL5_2025-11-18")
}

func TestTickGathererHaltsAndRetainsCheckpoint(t *testing.T) {
	sess := &fakeSession{
		contracts: []domain.Contract{decContract("TXFL5", "2025-12-17")},
		ticks: map[string][]domain.Tick{
			"TXFL5 2025-11-18": {tickAt("2025-11-18 09:00:00", 100)},
			"TXFL5 2025-11-20": {tickAt("2025-11-20 09:00:00", 102)},
		},
		// Fails the first attempt and the post-re-login retry.
		failures: map[string]int{"TXFL5 2025-11-19": 2},
	}
	cp := NewCheckpoint(t.TempDir())
	sink := newMemSink()
	rng := domain.DateRange{Start: day("2025-11-18"), End: day("2025-11-20")}

	g := newTickGatherer(sess, cp, sink, rng, WeeklySpan)
	err := g.Run(context.Background())
	require.Error(t, err)

	var rce *fetch.RemoteCallError
	assert.ErrorAs(t, err, &rce)

	// Exactly one attempt plus one retry for the failing day, one re-login,
	// and no progress past it.
	assert.Equal(t, []string{"TXFL5 2025-11-18", "TXFL5 2025-11-19", "TXFL5 2025-11-19"}, sess.tickCalls)
	assert.Equal(t, 1, sess.logins)

	// The checkpoint still names the failed day so a re-run resumes there.
	got, ok := cp.Read()
	require.True(t, ok)
	assert.Equal(t, "2025-11-19", got.Format("2006-01-02"))

	// Nothing downstream of the failure was produced.
	assert.NotContains(t, sink.ticks, "TXF_ticks_TXFL5_2025-11-20")
	assert.Empty(t, sink.bars)
}

func TestTickGathererRecoversAfterRelogin(t *testing.T) {
	sess := &fakeSession{
		contracts: []domain.Contract{decContract("TXFL5", "2025-12-17")},
		ticks: map[string][]domain.Tick{
			"TXFL5 2025-11-18": {tickAt("2025-11-18 09:00:00", 100)},
		},
		// First attempt fails, retry after re-login succeeds.
		failures: map[string]int{"TXFL5 2025-11-18": 1},
	}
	cp := NewCheckpoint(t.TempDir())
	sink := newMemSink()
	rng := domain.DateRange{Start: day("2025-11-18"), End: day("2025-11-18")}

	g := newTickGatherer(sess, cp, sink, rng, WeeklySpan)
	require.NoError(t, g.Run(context.Background()))
	assert.Equal(t, 1, sess.logins)
	assert.Contains(t, sink.ticks, "TXF_ticks_TXFL5_2025-11-18")
}

func TestTickGathererWeeklyPartitioning(t *testing.T) {
	// 2025-11-10 is a Monday; the range spans two calendar weeks.
	sess := &fakeSession{
		contracts: []domain.Contract{decContract("TXFL5", "2025-12-17")},
		ticks: map[string][]domain.Tick{
			"TXFL5 2025-11-10": {tickAt("2025-11-10 09:00:00", 100)},
			"TXFL5 2025-11-12": {tickAt("2025-11-12 09:00:00", 101)},
			"TXFL5 2025-11-17": {tickAt("2025-11-17 09:00:00", 102)},
			"TXFL5 2025-11-19": {tickAt("2025-11-19 09:00:00", 103)},
		},
	}
	rng := domain.DateRange{Start: day("2025-11-10"), End: day("2025-11-19")}

	t.Run("span naming", func(t *testing.T) {
		sink := newMemSink()
		g := newTickGatherer(sess, NewCheckpoint(t.TempDir()), sink, rng, WeeklySpan)
		require.NoError(t, g.Run(context.Background()))

		assert.Len(t, sink.ticks["TXF_ticks_2025-11-10_to_2025-11-12"], 2)
		assert.Len(t, sink.ticks["TXF_ticks_2025-11-17_to_2025-11-19"], 2)
	})

	t.Run("canonical naming", func(t *testing.T) {
		sink := newMemSink()
		g := newTickGatherer(sess, NewCheckpoint(t.TempDir()), sink, rng, WeeklyCanonical)
		require.NoError(t, g.Run(context.Background()))

		assert.Len(t, sink.ticks["TXF_ticks_week_2025-11-10"], 2)
		assert.Len(t, sink.ticks["TXF_ticks_week_2025-11-17"], 2)
	})
}

func TestTickGathererWeeklyThresholdBoundary(t *testing.T) {
	// 2025-11-10 is a Monday. A first-to-last tick span of exactly seven
	// calendar days stays daily-only; one more day crosses into weekly
	// output.
	newSess := func(lastDay string) *fakeSession {
		return &fakeSession{
			contracts: []domain.Contract{decContract("TXFL5", "2025-12-17")},
			ticks: map[string][]domain.Tick{
				"TXFL5 2025-11-10": {tickAt("2025-11-10 09:00:00", 100)},
				"TXFL5 " + lastDay: {tickAt(lastDay+" 09:00:00", 101)},
			},
		}
	}

	t.Run("span of exactly seven days", func(t *testing.T) {
		sink := newMemSink()
		g := newTickGatherer(newSess("2025-11-17"), NewCheckpoint(t.TempDir()), sink,
			domain.DateRange{Start: day("2025-11-10"), End: day("2025-11-17")}, WeeklySpan)
		require.NoError(t, g.Run(context.Background()))

		assert.Len(t, sink.ticks, 2, "daily units only")
		assert.NotContains(t, sink.ticks, "TXF_ticks_2025-11-10_to_2025-11-10")
		assert.NotContains(t, sink.ticks, "TXF_ticks_2025-11-17_to_2025-11-17")
	})

	t.Run("span of eight days", func(t *testing.T) {
		sink := newMemSink()
		g := newTickGatherer(newSess("2025-11-18"), NewCheckpoint(t.TempDir()), sink,
			domain.DateRange{Start: day("2025-11-10"), End: day("2025-11-18")}, WeeklySpan)
		require.NoError(t, g.Run(context.Background()))

		assert.Len(t, sink.ticks, 4, "daily plus weekly units")
		assert.Len(t, sink.ticks["TXF_ticks_2025-11-10_to_2025-11-10"], 1)
		assert.Len(t, sink.ticks["TXF_ticks_2025-11-18_to_2025-11-18"], 1)
	})
}

func TestTickGathererRolloverCrossesContracts(t *testing.T) {
	sess := &fakeSession{
		contracts: []domain.Contract{
			decContract("TXFK5", "2025-11-19"),
			decContract("TXFL5", "2025-12-17"),
		},
		ticks: map[string][]domain.Tick{
			"TXFK5 2025-11-19": {tickAt("2025-11-19 09:00:00", 100)},
			"TXFL5 2025-11-20": {tickAt("2025-11-20 09:00:00", 101)},
		},
	}
	cp := NewCheckpoint(t.TempDir())
	sink := newMemSink()
	rng := domain.DateRange{Start: day("2025-11-19"), End: day("2025-11-20")}

	g := newTickGatherer(sess, cp, sink, rng, WeeklySpan)
	require.NoError(t, g.Run(context.Background()))

	// Delivery day belongs to the expiring contract, the day after to its
	// successor.
	assert.Equal(t, []string{"TXFK5 2025-11-19", "TXFL5 2025-11-20"}, sess.tickCalls)
	assert.Contains(t, sink.ticks, "TXF_ticks_TXFK5_2025-11-19")
	assert.Contains(t, sink.ticks, "TXF_ticks_TXFL5_2025-11-20")
}

func TestTickGathererNoApplicableContract(t *testing.T) {
	sess := &fakeSession{
		contracts: []domain.Contract{decContract("TXFK5", "2025-10-15")},
	}
	cp := NewCheckpoint(t.TempDir())
	g := newTickGatherer(sess, cp, newMemSink(),
		domain.DateRange{Start: day("2025-11-18"), End: day("2025-11-20")}, WeeklySpan)

	err := g.Run(context.Background())
	assert.ErrorIs(t, err, plan.ErrNoApplicableContract)
}

func TestKBarGathererConcatenatesSegments(t *testing.T) {
	sess := &fakeSession{
		contracts: []domain.Contract{
			decContract("TXFK5", "2025-11-19"),
			decContract("TXFL5", "2025-12-17"),
		},
		kbars: map[string][]domain.Bar{
			"TXFK5": {{TS: day("2025-11-18"), Close: decimal.NewFromInt(100), Volume: 5}},
			"TXFL5": {{TS: day("2025-11-20"), Close: decimal.NewFromInt(101), Volume: 7}},
		},
	}
	sink := newMemSink()
	rng := domain.DateRange{Start: day("2025-11-18"), End: day("2025-11-21")}

	g := NewKBarGatherer(sess, rng, "TXF", []store.BarSink{sink})
	require.NoError(t, g.Run(context.Background()))

	bars := sink.bars["TXF_1m_data_2025-11-18_to_2025-11-21"]
	require.Len(t, bars, 2)
	assert.Equal(t, "100", bars[0].Close.String())
	assert.Equal(t, "101", bars[1].Close.String())
}

func TestKBarGathererPropagatesTerminalFailure(t *testing.T) {
	sess := &fakeSession{
		contracts: []domain.Contract{decContract("TXFK5", "2025-10-15")},
	}
	g := NewKBarGatherer(sess,
		domain.DateRange{Start: day("2025-11-18"), End: day("2025-11-20")}, "TXF", nil)

	err := g.Run(context.Background())
	assert.True(t, errors.Is(err, plan.ErrNoApplicableContract))
}
