package engine

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/seenimoa/bazaar/internal/datasource"
	"github.com/seenimoa/bazaar/pkg/models"
	"github.com/seenimoa/bazaar/pkg/utils"
)

// MarketStatusAt is OPEN on weekdays between 09:15 and 15:30 IST inclusive.
func MarketStatusAt(now time.Time) models.MarketStatus {
	if utils.IsMarketOpenAt(now) {
		return models.MarketOpen
	}
	return models.MarketClosed
}

// GetMarketSnapshot fetches every snapshot index in parallel. An index whose
// fetch fails is left out of the map; the market status is always set.
func (e *Engine) GetMarketSnapshot(ctx context.Context) (*models.MarketSnapshot, error) {
	now := e.now()
	snap := &models.MarketSnapshot{
		Indices:      make(map[string]models.IndexQuote),
		MarketStatus: MarketStatusAt(now),
		AsOf:         now,
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for _, idx := range SnapshotIndices() {
		g.Go(func() error {
			row, err := call(gctx, e, func(ctx context.Context) (datasource.IndexRow, error) {
				return e.live.Index(ctx, idx.Name)
			})
			if err != nil {
				e.log.WithError(err).WithField("index", idx.Key).Warn("index quote unavailable")
				return nil // non-fatal
			}
			q := indexQuote(idx.Name, row)
			mu.Lock()
			snap.Indices[idx.Key] = q
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return snap, nil
}

// GetVix returns the India VIX quote.
func (e *Engine) GetVix(ctx context.Context) (*models.IndexQuote, error) {
	row, err := call(ctx, e, func(ctx context.Context) (datasource.IndexRow, error) {
		return e.live.Index(ctx, VIXIndex)
	})
	if err != nil {
		return nil, classify("vix", err)
	}
	q := indexQuote(VIXIndex, row)
	return &q, nil
}

// indexQuote normalises an allIndices row. A missing previous close falls
// back to the current value, giving a zero change.
func indexQuote(name string, row datasource.IndexRow) models.IndexQuote {
	last := row.Last.Float()
	prev := orElse(row.PreviousClose.Float(), last)
	return models.IndexQuote{
		Name:      name,
		Price:     last,
		Change:    last - prev,
		ChangePct: pctChange(prev, last),
		Open:      row.Open.Float(),
		High:      row.High.Float(),
		Low:       row.Low.Float(),
		Volume:    int64(row.TotalTradedVolume.Float()),
	}
}
