package engine

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/seenimoa/bazaar/internal/datasource"
	"github.com/seenimoa/bazaar/internal/refcache"
	"github.com/seenimoa/bazaar/pkg/models"
)

var errBoom = errors.New("boom")

type fakeLive struct {
	indices      []datasource.IndexRow
	indicesErr   error
	failIndex    map[string]bool
	constituents map[string][]datasource.ConstituentRow
	details      map[string]*datasource.EquityDetail
	detailErr    error
	corp         *datasource.CorporateInfo
	corpErr      error
	preOpen      []datasource.PreOpenRow
	preOpenErr   error

	preOpenCalls atomic.Int32
}

func (f *fakeLive) AllIndices(context.Context) ([]datasource.IndexRow, error) {
	if f.indicesErr != nil {
		return nil, f.indicesErr
	}
	return f.indices, nil
}

func (f *fakeLive) Index(_ context.Context, name string) (datasource.IndexRow, error) {
	if f.failIndex[name] {
		return datasource.IndexRow{}, &datasource.NSEError{Op: "index", Symbol: name, Err: errBoom}
	}
	for _, r := range f.indices {
		if r.Index == name || r.IndexSymbol == name {
			return r, nil
		}
	}
	return datasource.IndexRow{}, &datasource.NSEError{Op: "index", Symbol: name, Err: datasource.ErrTickerNotFound}
}

func (f *fakeLive) IndexConstituents(_ context.Context, name string) ([]datasource.ConstituentRow, error) {
	rows, ok := f.constituents[name]
	if !ok {
		return nil, &datasource.NSEError{Op: "index constituents", Symbol: name, Err: datasource.ErrEmptyResponse}
	}
	return rows, nil
}

func (f *fakeLive) EquityDetail(_ context.Context, symbol string) (*datasource.EquityDetail, error) {
	if f.detailErr != nil {
		return nil, f.detailErr
	}
	d, ok := f.details[symbol]
	if !ok {
		return nil, &datasource.NSEError{Op: "equity detail", Symbol: symbol, Err: datasource.ErrTickerNotFound}
	}
	return d, nil
}

func (f *fakeLive) CorporateInfo(context.Context, string) (*datasource.CorporateInfo, error) {
	if f.corpErr != nil {
		return nil, f.corpErr
	}
	return f.corp, nil
}

func (f *fakeLive) PreOpen(context.Context) ([]datasource.PreOpenRow, error) {
	f.preOpenCalls.Add(1)
	if f.preOpenErr != nil {
		return nil, f.preOpenErr
	}
	return f.preOpen, nil
}

type chartCall struct {
	symbol   string
	from, to time.Time
	interval string
}

type fakeHistory struct {
	mu        sync.Mutex
	series    map[string][]models.OHLCV
	chartFail map[string]bool
	calls     []chartCall
	summary   *datasource.QuoteSummary
	sumErr    error
	desc      string
	descErr   error

	inFlight    atomic.Int32
	maxInFlight atomic.Int32
	completed   atomic.Int32
	delay       time.Duration
}

func (f *fakeHistory) Chart(_ context.Context, symbol string, from, to time.Time, interval string) ([]models.OHLCV, error) {
	n := f.inFlight.Add(1)
	for {
		m := f.maxInFlight.Load()
		if n <= m || f.maxInFlight.CompareAndSwap(m, n) {
			break
		}
	}
	defer func() {
		f.inFlight.Add(-1)
		f.completed.Add(1)
	}()
	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	f.mu.Lock()
	f.calls = append(f.calls, chartCall{symbol, from, to, interval})
	bars, ok := f.series[symbol]
	fail := f.chartFail[symbol]
	f.mu.Unlock()

	if fail {
		return nil, &datasource.YFinanceError{Op: "chart", Symbol: symbol, Err: datasource.ErrRateLimited}
	}
	if !ok {
		return []models.OHLCV{}, nil
	}
	return bars, nil
}

func (f *fakeHistory) QuoteSummary(context.Context, string) (*datasource.QuoteSummary, error) {
	if f.sumErr != nil {
		return nil, f.sumErr
	}
	return f.summary, nil
}

func (f *fakeHistory) Description(context.Context, string) (string, error) {
	if f.descErr != nil {
		return "", f.descErr
	}
	return f.desc, nil
}

func (f *fakeHistory) chartCalls() []chartCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]chartCall(nil), f.calls...)
}

// --- builders ---

func fv(v float64) datasource.FlexFloat64 { return datasource.FlexFloat64(v) }

func yv(v float64) datasource.YFValue { return datasource.YFValue{Raw: &v} }

func closes(values ...float64) []models.OHLCV {
	base := time.Date(2026, 3, 2, 3, 45, 0, 0, time.UTC)
	bars := make([]models.OHLCV, len(values))
	for i, v := range values {
		c := v
		bars[i] = models.OHLCV{Timestamp: base.AddDate(0, 0, i), Close: &c, Volume: int64(1000 * (i + 1))}
	}
	return bars
}

// fixedNow is Monday 2 March 2026, 11:00 IST.
var fixedNow = time.Date(2026, 3, 2, 5, 30, 0, 0, time.UTC)

type sleepRecorder struct {
	mu    sync.Mutex
	calls []time.Duration
	seen  []int32
	hist  *fakeHistory
}

func (s *sleepRecorder) Sleep(_ context.Context, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, d)
	if s.hist != nil {
		s.seen = append(s.seen, s.hist.completed.Load())
	}
	return nil
}

func newTestEngine(live *fakeLive, hist *fakeHistory, opts ...Option) *Engine {
	refs := refcache.New(live, time.Hour, func() time.Time { return fixedNow }, nil)
	base := []Option{
		WithClock(func() time.Time { return fixedNow }),
		WithSleeper(func(context.Context, time.Duration) error { return nil }),
	}
	return New(live, hist, refs, append(base, opts...)...)
}
