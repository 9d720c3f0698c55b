package engine

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/seenimoa/bazaar/pkg/models"
)

// seriesChange fetches daily bars for symbol over [from, to] and returns the
// last close and the first-to-last percentage change. Series with fewer than
// two closes, or with a non-positive endpoint, are rejected.
func (e *Engine) seriesChange(ctx context.Context, symbol string, from, to time.Time) (last, changePct float64, ok bool) {
	bars, ok := bestEffort(ctx, e, "chart "+symbol, func(ctx context.Context) ([]models.OHLCV, error) {
		return e.history.Chart(ctx, symbol, from, to, "1d")
	})
	if !ok {
		return 0, 0, false
	}

	closes := make([]float64, 0, len(bars))
	for _, b := range bars {
		if b.Close != nil {
			closes = append(closes, *b.Close)
		}
	}
	if len(closes) < 2 {
		return 0, 0, false
	}
	first, last := closes[0], closes[len(closes)-1]
	if first <= 0 || last <= 0 {
		return 0, 0, false
	}
	return last, pctChange(first, last), true
}

// historicalMovers computes the period change of every symbol in batches of
// Policy.BatchWidth concurrent fetches, pausing Policy.BatchPause between
// batches. Failed symbols are dropped; output keeps input order.
func (e *Engine) historicalMovers(ctx context.Context, symbols []string, period models.Period) []models.MoverRecord {
	from, to := period.Window(e.now())
	width := e.policy.BatchWidth

	results := make([]*models.MoverRecord, len(symbols))
	batches := 0
	for start := 0; start < len(symbols); start += width {
		if start > 0 {
			if err := e.sleep(ctx, e.policy.BatchPause); err != nil {
				e.log.WithError(err).Debug("historical batch loop interrupted")
				break
			}
		}
		end := min(start+width, len(symbols))

		var g errgroup.Group
		g.SetLimit(width)
		for i := start; i < end; i++ {
			g.Go(func() error {
				last, chg, ok := e.seriesChange(ctx, symbols[i], from, to)
				if !ok {
					return nil // dropped, never retried
				}
				results[i] = &models.MoverRecord{Symbol: symbols[i], Price: last, ChangePct: chg}
				return nil
			})
		}
		_ = g.Wait()
		batches++
	}

	out := make([]models.MoverRecord, 0, len(symbols))
	for _, r := range results {
		if r != nil {
			out = append(out, *r)
		}
	}
	e.log.WithField("symbols", len(symbols)).WithField("batches", batches).
		WithField("usable", len(out)).Debug("historical movers fetched")
	return out
}
