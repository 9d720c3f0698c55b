// Package engine is the Aggregation Engine. It picks the live or historical
// data path per request, fans bulk historical lookups out in bounded
// batches, and merges the two adapters into normalised results.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/seenimoa/bazaar/internal/datasource"
	"github.com/seenimoa/bazaar/internal/infra"
	"github.com/seenimoa/bazaar/internal/logging"
	"github.com/seenimoa/bazaar/internal/refcache"
	"github.com/seenimoa/bazaar/pkg/models"
)

// Hard failure taxonomy. Everything else degrades.
var (
	ErrNotFound        = errors.New("not found")
	ErrUpstream        = errors.New("upstream error")
	ErrInvalidArgument = errors.New("invalid argument")
)

// LiveSource is the live-quote adapter.
type LiveSource interface {
	AllIndices(ctx context.Context) ([]datasource.IndexRow, error)
	Index(ctx context.Context, name string) (datasource.IndexRow, error)
	IndexConstituents(ctx context.Context, indexName string) ([]datasource.ConstituentRow, error)
	EquityDetail(ctx context.Context, symbol string) (*datasource.EquityDetail, error)
	CorporateInfo(ctx context.Context, symbol string) (*datasource.CorporateInfo, error)
	PreOpen(ctx context.Context) ([]datasource.PreOpenRow, error)
}

// HistorySource is the historical/fundamentals adapter.
type HistorySource interface {
	Chart(ctx context.Context, symbol string, from, to time.Time, interval string) ([]models.OHLCV, error)
	QuoteSummary(ctx context.Context, symbol string) (*datasource.QuoteSummary, error)
	Description(ctx context.Context, symbol string) (string, error)
}

// Constituents resolves index membership.
type Constituents interface {
	Get(ctx context.Context, key string) (models.ConstituentSet, error)
}

// Policy is the backpressure and sizing policy of the engine.
type Policy struct {
	// BatchWidth is the number of concurrent historical fetches per batch.
	BatchWidth int
	// BatchPause is slept between consecutive batches, never after the last.
	BatchPause time.Duration
	// CallTimeout bounds every single upstream call.
	CallTimeout time.Duration

	DefaultLimit  int
	SearchLimit   int
	TrendingLimit int
}

// DefaultPolicy returns the production policy.
func DefaultPolicy() Policy {
	return Policy{
		BatchWidth:    50,
		BatchPause:    200 * time.Millisecond,
		CallTimeout:   10 * time.Second,
		DefaultLimit:  10,
		SearchLimit:   10,
		TrendingLimit: 5,
	}
}

func (p Policy) withDefaults() Policy {
	d := DefaultPolicy()
	if p.BatchWidth <= 0 {
		p.BatchWidth = d.BatchWidth
	}
	if p.BatchPause < 0 {
		p.BatchPause = 0
	}
	if p.CallTimeout <= 0 {
		p.CallTimeout = d.CallTimeout
	}
	if p.DefaultLimit <= 0 {
		p.DefaultLimit = d.DefaultLimit
	}
	if p.SearchLimit <= 0 {
		p.SearchLimit = d.SearchLimit
	}
	if p.TrendingLimit <= 0 {
		p.TrendingLimit = d.TrendingLimit
	}
	return p
}

// Engine serves the read operations consumed by the API and CLI.
type Engine struct {
	live    LiveSource
	history HistorySource
	refs    Constituents
	policy  Policy
	now     infra.Clock
	sleep   infra.Sleeper
	log     *logging.Entry
}

// Option configures an Engine.
type Option func(*Engine)

// WithPolicy overrides the default policy. Zero fields keep their defaults.
func WithPolicy(p Policy) Option {
	return func(e *Engine) { e.policy = p.withDefaults() }
}

// WithClock sets the clock used for windows and market status.
func WithClock(c infra.Clock) Option {
	return func(e *Engine) { e.now = c }
}

// WithSleeper sets the function used for inter-batch pauses.
func WithSleeper(s infra.Sleeper) Option {
	return func(e *Engine) { e.sleep = s }
}

// WithLogger sets the logger.
func WithLogger(l *logging.Log) Option {
	return func(e *Engine) { e.log = l.WithComponent("engine") }
}

// New creates an Engine over the two adapters and the Reference Cache.
func New(live LiveSource, history HistorySource, refs Constituents, opts ...Option) *Engine {
	e := &Engine{
		live:    live,
		history: history,
		refs:    refs,
		policy:  DefaultPolicy(),
		now:     infra.SystemClock,
		sleep:   infra.Sleep,
		log:     logging.Discard().WithComponent("engine"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Policy returns the effective policy.
func (e *Engine) Policy() Policy { return e.policy }

// Constituents returns the cached member list of a tracked index.
func (e *Engine) Constituents(ctx context.Context, indexKey string) (models.ConstituentSet, error) {
	set, err := e.refs.Get(ctx, indexKey)
	if err != nil {
		return models.ConstituentSet{}, classify("constituents", err)
	}
	return set, nil
}

// classify wraps err with ErrNotFound or ErrUpstream so callers can branch
// with errors.Is while keeping the adapter cause in the chain.
func classify(op string, err error) error {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrUpstream), errors.Is(err, ErrInvalidArgument):
		return fmt.Errorf("%s: %w", op, err)
	case errors.Is(err, datasource.ErrTickerNotFound), errors.Is(err, refcache.ErrUnknownIndex):
		return fmt.Errorf("%s: %w: %w", op, ErrNotFound, err)
	default:
		return fmt.Errorf("%s: %w: %w", op, ErrUpstream, err)
	}
}

// bestEffort runs fn under the per-call timeout and downgrades a failure to
// an absent value. Used for every enrichment source.
func bestEffort[T any](ctx context.Context, e *Engine, what string, fn func(context.Context) (T, error)) (T, bool) {
	cctx, cancel := context.WithTimeout(ctx, e.policy.CallTimeout)
	defer cancel()
	v, err := fn(cctx)
	if err != nil {
		e.log.WithError(err).WithField("source", what).Debug("best-effort fetch failed")
		var zero T
		return zero, false
	}
	return v, true
}

// call runs fn under the per-call timeout.
func call[T any](ctx context.Context, e *Engine, fn func(context.Context) (T, error)) (T, error) {
	cctx, cancel := context.WithTimeout(ctx, e.policy.CallTimeout)
	defer cancel()
	return fn(cctx)
}
