package engine

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/seenimoa/bazaar/internal/datasource"
	"github.com/seenimoa/bazaar/internal/refcache"
	"github.com/seenimoa/bazaar/pkg/models"
	"github.com/seenimoa/bazaar/pkg/utils"
)

// GetMovers ranks the constituents of indexKey by percentage change over
// period. Intraday uses the live index rows; longer periods use historical
// bars. Zero usable records is a degraded result, not an error.
func (e *Engine) GetMovers(ctx context.Context, indexKey string, period models.Period, limit int) (*models.Movers, error) {
	idx, ok := refcache.LookupIndex(indexKey)
	if !ok {
		return nil, fmt.Errorf("movers: %w: unknown index %q", ErrNotFound, indexKey)
	}
	if limit <= 0 {
		limit = e.policy.DefaultLimit
	}

	set, err := e.refs.Get(ctx, idx.Key)
	if err != nil {
		return nil, classify("movers "+idx.Key, err)
	}

	var records []models.MoverRecord
	if period.IsIntraday() {
		rows, err := call(ctx, e, func(ctx context.Context) ([]datasource.ConstituentRow, error) {
			return e.live.IndexConstituents(ctx, idx.Name)
		})
		if err != nil {
			return nil, classify("movers "+idx.Key, err)
		}
		records = liveMovers(set, rows)
	} else {
		records = e.historicalMovers(ctx, set.Symbols, period)
	}

	gainers, losers := rankMovers(records, limit)
	return &models.Movers{
		Index:    idx.Key,
		Period:   period,
		Gainers:  gainers,
		Losers:   losers,
		Degraded: len(records) == 0,
	}, nil
}

// liveMovers keeps the rows that are members of set and have a positive
// price, in row order.
func liveMovers(set models.ConstituentSet, rows []datasource.ConstituentRow) []models.MoverRecord {
	out := make([]models.MoverRecord, 0, len(rows))
	for _, r := range rows {
		sym := utils.NormalizeSymbol(r.Symbol)
		price := r.LastPrice.Float()
		if price <= 0 || !set.Contains(sym) {
			continue
		}
		out = append(out, models.MoverRecord{Symbol: sym, Price: price, ChangePct: r.PChange.Float()})
	}
	return out
}

// rankMovers returns the limit highest changes, best first, and the limit
// lowest, worst first. Equal changes keep their input order in both lists.
// Non-positive prices never reach the output.
func rankMovers(records []models.MoverRecord, limit int) (gainers, losers []models.MoverRecord) {
	usable := make([]models.MoverRecord, 0, len(records))
	for _, r := range records {
		if r.Price > 0 {
			usable = append(usable, r)
		}
	}

	desc := slices.Clone(usable)
	slices.SortStableFunc(desc, func(a, b models.MoverRecord) int { return cmp.Compare(b.ChangePct, a.ChangePct) })
	asc := slices.Clone(usable)
	slices.SortStableFunc(asc, func(a, b models.MoverRecord) int { return cmp.Compare(a.ChangePct, b.ChangePct) })

	n := min(limit, len(usable))
	return slices.Clip(desc[:n]), slices.Clip(asc[:n])
}
