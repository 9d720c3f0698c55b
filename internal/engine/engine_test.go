package engine

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seenimoa/bazaar/internal/datasource"
	"github.com/seenimoa/bazaar/pkg/models"
)

func snapshotRows() []datasource.IndexRow {
	return []datasource.IndexRow{
		{Index: "NIFTY 50", IndexSymbol: "NIFTY 50", Last: fv(22500), PreviousClose: fv(22000), Open: fv(22100), High: fv(22550), Low: fv(22050), TotalTradedVolume: fv(123456)},
		{Index: "NIFTY BANK", IndexSymbol: "NIFTY BANK", Last: fv(48000), PreviousClose: fv(48480)},
		{Index: "NIFTY MIDCAP 100", IndexSymbol: "NIFTY MIDCAP 100", Last: fv(51000), PreviousClose: fv(50000)},
		{Index: "NIFTY SMLCAP 250", IndexSymbol: "NIFTY SMLCAP 250", Last: fv(16000)},
		{Index: "INDIA VIX", IndexSymbol: "INDIA VIX", Last: fv(13.5), PreviousClose: fv(15)},
	}
}

func TestMarketStatusAt(t *testing.T) {
	ist := time.FixedZone("IST", 5*3600+1800)
	tests := []struct {
		at   time.Time
		want models.MarketStatus
	}{
		{time.Date(2026, 3, 2, 9, 14, 59, 0, ist), models.MarketClosed},
		{time.Date(2026, 3, 2, 9, 15, 0, 0, ist), models.MarketOpen},
		{time.Date(2026, 3, 2, 15, 30, 59, 0, ist), models.MarketOpen},
		{time.Date(2026, 3, 2, 15, 31, 0, 0, ist), models.MarketClosed},
		{time.Date(2026, 3, 7, 11, 0, 0, 0, ist), models.MarketClosed}, // Saturday
		{time.Date(2026, 3, 2, 5, 30, 0, 0, time.UTC), models.MarketOpen},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, MarketStatusAt(tt.at), tt.at.String())
	}
}

func TestGetMarketSnapshot(t *testing.T) {
	e := newTestEngine(&fakeLive{indices: snapshotRows()}, &fakeHistory{})

	snap, err := e.GetMarketSnapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.MarketOpen, snap.MarketStatus)
	assert.Equal(t, fixedNow, snap.AsOf)
	require.Len(t, snap.Indices, 4)

	n := snap.Indices["NIFTY50"]
	assert.Equal(t, "NIFTY 50", n.Name)
	assert.Equal(t, 22500.0, n.Price)
	assert.Equal(t, 500.0, n.Change)
	assert.InDelta(t, 2.2727, n.ChangePct, 1e-3)
	assert.Equal(t, int64(123456), n.Volume)

	// Missing previous close gives no change rather than -100%.
	s := snap.Indices["SMALLCAP250"]
	assert.Zero(t, s.Change)
	assert.Zero(t, s.ChangePct)
}

func TestGetMarketSnapshotOmitsFailedIndex(t *testing.T) {
	live := &fakeLive{indices: snapshotRows(), failIndex: map[string]bool{"NIFTY MIDCAP 100": true}}
	e := newTestEngine(live, &fakeHistory{}, WithClock(func() time.Time {
		return time.Date(2026, 3, 7, 5, 30, 0, 0, time.UTC) // Saturday
	}))

	snap, err := e.GetMarketSnapshot(context.Background())
	require.NoError(t, err)
	assert.Len(t, snap.Indices, 3)
	assert.NotContains(t, snap.Indices, "MIDCAP100")
	assert.Contains(t, snap.Indices, "NIFTY50")
	assert.Equal(t, models.MarketClosed, snap.MarketStatus)
}

func TestGetVix(t *testing.T) {
	e := newTestEngine(&fakeLive{indices: snapshotRows()}, &fakeHistory{})

	vix, err := e.GetVix(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "INDIA VIX", vix.Name)
	assert.InDelta(t, -10, vix.ChangePct, 1e-9)

	e = newTestEngine(&fakeLive{failIndex: map[string]bool{VIXIndex: true}}, &fakeHistory{})
	_, err = e.GetVix(context.Background())
	assert.ErrorIs(t, err, ErrUpstream)
}

// --- movers ---

func niftyConstituents() []datasource.ConstituentRow {
	return []datasource.ConstituentRow{
		{Symbol: "NIFTY 50", LastPrice: fv(22500), PChange: fv(0.5)},
		{Symbol: "RELIANCE", LastPrice: fv(2950), PChange: fv(1.5)},
		{Symbol: "TCS", LastPrice: fv(3900), PChange: fv(-0.8)},
		{Symbol: "INFY", LastPrice: fv(1550), PChange: fv(2.4)},
		{Symbol: "HDFCBANK", LastPrice: fv(0), PChange: fv(9.9)},
		{Symbol: "ITC", LastPrice: fv(420), PChange: fv(-2.1)},
		{Symbol: "SBIN", LastPrice: fv(780), PChange: fv(0.1)},
	}
}

func TestGetMoversIntraday(t *testing.T) {
	live := &fakeLive{constituents: map[string][]datasource.ConstituentRow{"NIFTY 50": niftyConstituents()}}
	e := newTestEngine(live, &fakeHistory{})

	m, err := e.GetMovers(context.Background(), "nifty50", models.PeriodIntraday, 2)
	require.NoError(t, err)
	assert.Equal(t, "NIFTY50", m.Index)
	assert.False(t, m.Degraded)

	assert.Equal(t, []models.MoverRecord{
		{Symbol: "INFY", Price: 1550, ChangePct: 2.4},
		{Symbol: "RELIANCE", Price: 2950, ChangePct: 1.5},
	}, m.Gainers)
	assert.Equal(t, []models.MoverRecord{
		{Symbol: "ITC", Price: 420, ChangePct: -2.1},
		{Symbol: "TCS", Price: 3900, ChangePct: -0.8},
	}, m.Losers)

	for _, r := range append(m.Gainers, m.Losers...) {
		assert.NotEqual(t, "HDFCBANK", r.Symbol, "non-positive price never ranked")
		assert.NotEqual(t, "NIFTY 50", r.Symbol, "aggregate row never ranked")
	}
}

func TestGetMoversOrderingProperty(t *testing.T) {
	live := &fakeLive{constituents: map[string][]datasource.ConstituentRow{"NIFTY 50": niftyConstituents()}}
	e := newTestEngine(live, &fakeHistory{})

	for _, limit := range []int{1, 3, 5, 50} {
		m, err := e.GetMovers(context.Background(), "NIFTY50", models.PeriodIntraday, limit)
		require.NoError(t, err)
		assert.LessOrEqual(t, len(m.Gainers), limit)
		assert.LessOrEqual(t, len(m.Losers), limit)
		for i := 1; i < len(m.Gainers); i++ {
			assert.Greater(t, m.Gainers[i-1].ChangePct, m.Gainers[i].ChangePct)
		}
		for i := 1; i < len(m.Losers); i++ {
			assert.Less(t, m.Losers[i-1].ChangePct, m.Losers[i].ChangePct)
		}
	}
}

func TestGetMoversDefaultLimit(t *testing.T) {
	rows := []datasource.ConstituentRow{{Symbol: "NIFTY 50"}}
	for i := range 30 {
		rows = append(rows, datasource.ConstituentRow{Symbol: fmt.Sprintf("S%02d", i), LastPrice: fv(100), PChange: fv(float64(i))})
	}
	live := &fakeLive{constituents: map[string][]datasource.ConstituentRow{"NIFTY 50": rows}}
	e := newTestEngine(live, &fakeHistory{})

	m, err := e.GetMovers(context.Background(), "NIFTY50", models.PeriodIntraday, 0)
	require.NoError(t, err)
	assert.Len(t, m.Gainers, 10)
	assert.Len(t, m.Losers, 10)
	assert.Equal(t, "S29", m.Gainers[0].Symbol)
	assert.Equal(t, "S00", m.Losers[0].Symbol)
}

func TestGetMoversUnknownIndex(t *testing.T) {
	e := newTestEngine(&fakeLive{}, &fakeHistory{})
	_, err := e.GetMovers(context.Background(), "SENSEX", models.PeriodIntraday, 5)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetMoversConstituentFailure(t *testing.T) {
	e := newTestEngine(&fakeLive{}, &fakeHistory{})
	_, err := e.GetMovers(context.Background(), "BANKNIFTY", models.PeriodWeek, 5)
	assert.ErrorIs(t, err, ErrUpstream)
}

func TestGetMoversHistorical(t *testing.T) {
	live := &fakeLive{constituents: map[string][]datasource.ConstituentRow{"NIFTY 50": niftyConstituents()}}
	hist := &fakeHistory{
		series: map[string][]models.OHLCV{
			"RELIANCE": closes(100, 105, 110),
			"TCS":      closes(200, 190),
			"INFY":     closes(50),    // one point
			"HDFCBANK": closes(0, 10), // non-positive first close
			"ITC":      closes(400, 400, 440),
		},
		chartFail: map[string]bool{"SBIN": true},
	}
	e := newTestEngine(live, hist)

	m, err := e.GetMovers(context.Background(), "NIFTY50", models.PeriodMonth, 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"RELIANCE", "ITC", "TCS"}, symbols(m.Gainers), "ties keep constituent order")
	assert.Equal(t, 110.0, m.Gainers[0].Price)
	assert.InDelta(t, 10, m.Gainers[0].ChangePct, 1e-9)
	assert.InDelta(t, -5, m.Gainers[2].ChangePct, 1e-9)
	assert.Equal(t, []string{"TCS", "RELIANCE", "ITC"}, symbols(m.Losers))

	calls := hist.chartCalls()
	require.NotEmpty(t, calls)
	for _, c := range calls {
		assert.Equal(t, "1d", c.interval)
		assert.Equal(t, fixedNow, c.to)
		assert.Equal(t, fixedNow.AddDate(0, 0, -30), c.from)
	}
}

func TestGetMoversHistoricalEmptyIsDegraded(t *testing.T) {
	live := &fakeLive{constituents: map[string][]datasource.ConstituentRow{"NIFTY 50": niftyConstituents()}}
	e := newTestEngine(live, &fakeHistory{})

	m, err := e.GetMovers(context.Background(), "NIFTY50", models.PeriodYear, 5)
	require.NoError(t, err)
	assert.True(t, m.Degraded)
	assert.NotNil(t, m.Gainers)
	assert.NotNil(t, m.Losers)
	assert.Empty(t, m.Gainers)
	assert.Empty(t, m.Losers)
}

func TestHistoricalMoversBatching(t *testing.T) {
	rows := []datasource.ConstituentRow{{Symbol: "NIFTY SMLCAP 250"}}
	series := make(map[string][]models.OHLCV)
	for i := range 120 {
		sym := fmt.Sprintf("SYM%03d", i)
		rows = append(rows, datasource.ConstituentRow{Symbol: sym})
		series[sym] = closes(100, 100+float64(i))
	}
	live := &fakeLive{constituents: map[string][]datasource.ConstituentRow{"NIFTY SMLCAP 250": rows}}
	hist := &fakeHistory{series: series, delay: time.Millisecond}
	sleeper := &sleepRecorder{hist: hist}
	e := newTestEngine(live, hist, WithSleeper(sleeper.Sleep), WithPolicy(Policy{BatchWidth: 50, BatchPause: 200 * time.Millisecond}))

	m, err := e.GetMovers(context.Background(), "SMALLCAP250", models.PeriodWeek, 3)
	require.NoError(t, err)

	assert.Len(t, hist.chartCalls(), 120)
	assert.Equal(t, []time.Duration{200 * time.Millisecond, 200 * time.Millisecond}, sleeper.calls, "3 batches, pause between each")
	assert.Equal(t, []int32{50, 100}, sleeper.seen, "each pause follows a complete batch")
	assert.LessOrEqual(t, hist.maxInFlight.Load(), int32(50))

	assert.Equal(t, "SYM119", m.Gainers[0].Symbol)
	assert.Equal(t, "SYM000", m.Losers[0].Symbol)
}

func TestHistoricalMoversStopsWhenCancelled(t *testing.T) {
	rows := []datasource.ConstituentRow{{Symbol: "NIFTY 50"}}
	for i := range 60 {
		rows = append(rows, datasource.ConstituentRow{Symbol: fmt.Sprintf("SYM%03d", i)})
	}
	live := &fakeLive{constituents: map[string][]datasource.ConstituentRow{"NIFTY 50": rows}}
	hist := &fakeHistory{}
	e := newTestEngine(live, hist, WithSleeper(func(context.Context, time.Duration) error {
		return context.Canceled
	}))

	m, err := e.GetMovers(context.Background(), "NIFTY50", models.PeriodWeek, 3)
	require.NoError(t, err)
	assert.Len(t, hist.chartCalls(), 50, "second batch never started")
	assert.True(t, m.Degraded)
}

func TestRankMoversLosersKeepTieOrder(t *testing.T) {
	records := []models.MoverRecord{
		{Symbol: "A", Price: 1, ChangePct: -1},
		{Symbol: "B", Price: 1, ChangePct: -1},
		{Symbol: "C", Price: 1, ChangePct: 3},
		{Symbol: "D", Price: -1, ChangePct: -9},
	}
	gainers, losers := rankMovers(records, 2)
	assert.Equal(t, []string{"C", "A"}, symbols(gainers))
	assert.Equal(t, []string{"A", "B"}, symbols(losers))
}

func symbols(rs []models.MoverRecord) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.Symbol
	}
	return out
}

// --- sectors ---

func TestGetSectorPerformanceIntraday(t *testing.T) {
	rows := []datasource.IndexRow{
		{Index: "NIFTY IT", Last: fv(110), PreviousClose: fv(100)},
		{Index: "NIFTY BANK", Last: fv(95), PreviousClose: fv(100)},
		{Index: "NIFTY AUTO", Last: fv(0), PreviousClose: fv(100)},
		{Index: "NIFTY PHARMA", IndexSymbol: "NIFTY PHARMA", Last: fv(102), PreviousClose: fv(100)},
	}
	hist := &fakeHistory{}
	e := newTestEngine(&fakeLive{indices: rows}, hist)

	perf, err := e.GetSectorPerformance(context.Background(), models.PeriodIntraday)
	require.NoError(t, err)
	require.Len(t, perf.Sectors, 3)
	assert.Equal(t, "IT", perf.Sectors[0].Sector)
	assert.InDelta(t, 10, perf.Sectors[0].ChangePct, 1e-9)
	assert.Equal(t, "Pharma", perf.Sectors[1].Sector)
	assert.Equal(t, "Bank", perf.Sectors[2].Sector)
	assert.True(t, perf.Degraded)
	assert.Empty(t, hist.chartCalls(), "intraday never touches history")
}

func TestGetSectorPerformanceIntradayUpstreamFailure(t *testing.T) {
	e := newTestEngine(&fakeLive{indicesErr: errBoom}, &fakeHistory{})
	_, err := e.GetSectorPerformance(context.Background(), models.PeriodIntraday)
	assert.ErrorIs(t, err, ErrUpstream)
}

func TestGetSectorPerformanceHistorical(t *testing.T) {
	series := map[string][]models.OHLCV{}
	for i, s := range Sectors {
		series[s.YahooSymbol] = closes(100, 100+float64(i))
	}
	delete(series, "^CNXAUTO")
	hist := &fakeHistory{series: series, chartFail: map[string]bool{"^CNXMETAL": true}}
	e := newTestEngine(&fakeLive{}, hist)

	perf, err := e.GetSectorPerformance(context.Background(), models.PeriodSixMonths)
	require.NoError(t, err)
	assert.Len(t, perf.Sectors, len(Sectors)-2)
	assert.Equal(t, "Media", perf.Sectors[0].Sector)
	for i := 1; i < len(perf.Sectors); i++ {
		assert.GreaterOrEqual(t, perf.Sectors[i-1].ChangePct, perf.Sectors[i].ChangePct)
	}
	for _, s := range perf.Sectors {
		assert.NotEqual(t, "Auto", s.Sector)
		assert.NotEqual(t, "Metal", s.Sector)
		assert.Positive(t, s.Price)
	}

	calls := hist.chartCalls()
	assert.Len(t, calls, len(Sectors))
	assert.Equal(t, fixedNow.AddDate(0, 0, -180), calls[0].from)
}
