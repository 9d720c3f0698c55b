package engine

import (
	"context"
	"fmt"

	"github.com/seenimoa/bazaar/internal/datasource"
	"github.com/seenimoa/bazaar/pkg/models"
	"github.com/seenimoa/bazaar/pkg/utils"
)

// GetQuote answers a watchlist point lookup. Intraday change is against the
// previous close; longer periods compare against the oldest close in the
// lookback window, falling back to the live day change when history is
// unavailable.
func (e *Engine) GetQuote(ctx context.Context, symbol string, period models.Period) (*models.WatchQuote, error) {
	sym := utils.NormalizeTicker(symbol)
	if sym == "" {
		return nil, fmt.Errorf("quote: %w: empty symbol", ErrInvalidArgument)
	}

	d, err := call(ctx, e, func(ctx context.Context) (*datasource.EquityDetail, error) {
		return e.live.EquityDetail(ctx, sym)
	})
	if err != nil {
		return nil, classify("quote "+sym, err)
	}

	price := d.PriceInfo.LastPrice.Float()
	q := &models.WatchQuote{Symbol: sym, Price: price, Period: period}

	if period.IsIntraday() {
		prev := orElse(d.PriceInfo.PreviousClose.Float(), price)
		q.ChangePct = pctChange(prev, price)
		return q, nil
	}

	q.ChangePct = d.PriceInfo.PChange.Float()
	from, to := period.Window(e.now())
	bars, ok := bestEffort(ctx, e, "chart "+sym, func(ctx context.Context) ([]models.OHLCV, error) {
		return e.history.Chart(ctx, sym, from, to, "1d")
	})
	if !ok {
		return q, nil
	}
	for _, b := range bars {
		if b.Close == nil {
			continue
		}
		if oldest := *b.Close; oldest > 0 {
			q.ChangePct = pctChange(oldest, price)
		}
		break
	}
	return q, nil
}
