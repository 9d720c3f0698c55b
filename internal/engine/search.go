package engine

import (
	"cmp"
	"context"
	"slices"
	"strings"

	"github.com/seenimoa/bazaar/internal/datasource"
	"github.com/seenimoa/bazaar/pkg/models"
)

// Search matches query case-insensitively against the symbol and company
// name of every pre-open instrument and returns the first matches in
// upstream order. A blank query returns an empty list without a fetch.
func (e *Engine) Search(ctx context.Context, query string) ([]models.SearchResult, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return []models.SearchResult{}, nil
	}

	rows, err := call(ctx, e, e.live.PreOpen)
	if err != nil {
		return nil, classify("search", err)
	}

	out := make([]models.SearchResult, 0, e.policy.SearchLimit)
	for _, r := range rows {
		name := firstNonEmpty(r.CompanyName, r.Identifier)
		if !strings.Contains(strings.ToLower(r.Symbol), q) && !strings.Contains(strings.ToLower(name), q) {
			continue
		}
		out = append(out, searchResult(r))
		if len(out) == e.policy.SearchLimit {
			break
		}
	}
	return out, nil
}

// Trending returns the limit pre-open instruments with the highest
// turnover. Rows without a symbol, turnover or price are skipped.
func (e *Engine) Trending(ctx context.Context, limit int) ([]models.SearchResult, error) {
	if limit <= 0 {
		limit = e.policy.TrendingLimit
	}

	rows, err := call(ctx, e, e.live.PreOpen)
	if err != nil {
		return nil, classify("trending", err)
	}

	active := make([]datasource.PreOpenRow, 0, len(rows))
	for _, r := range rows {
		if r.Symbol == "" || !valid(r.TotalTurnover.Float()) || !valid(r.LastPrice.Float()) {
			continue
		}
		active = append(active, r)
	}
	slices.SortStableFunc(active, func(a, b datasource.PreOpenRow) int {
		return cmp.Compare(b.TotalTurnover.Float(), a.TotalTurnover.Float())
	})

	out := make([]models.SearchResult, 0, min(limit, len(active)))
	for _, r := range active[:min(limit, len(active))] {
		out = append(out, searchResult(r))
	}
	return out, nil
}

func searchResult(r datasource.PreOpenRow) models.SearchResult {
	return models.SearchResult{
		Symbol:      r.Symbol,
		CompanyName: firstNonEmpty(r.CompanyName, r.Identifier),
		LastPrice:   r.LastPrice.Float(),
		Change:      r.Change.Float(),
		ChangePct:   r.PChange.Float(),
	}
}
