package engine

import (
	"context"
	"fmt"

	"github.com/seenimoa/bazaar/pkg/models"
	"github.com/seenimoa/bazaar/pkg/utils"
)

// GetChartSeries builds the label/price/volume series for symbol over
// period. Bars without a close are dropped from all three sequences; an
// empty upstream series gives empty sequences.
func (e *Engine) GetChartSeries(ctx context.Context, symbol string, period models.Period) (*models.ChartSeries, error) {
	sym := utils.NormalizeTicker(symbol)
	if sym == "" {
		return nil, fmt.Errorf("chart: %w: empty symbol", ErrInvalidArgument)
	}

	from, to := period.Window(e.now())
	bars, err := call(ctx, e, func(ctx context.Context) ([]models.OHLCV, error) {
		return e.history.Chart(ctx, sym, from, to, period.Interval())
	})
	if err != nil {
		return nil, classify("chart "+sym, err)
	}

	series := &models.ChartSeries{
		Symbol:  sym,
		Period:  period,
		Labels:  make([]string, 0, len(bars)),
		Prices:  make([]float64, 0, len(bars)),
		Volumes: make([]int64, 0, len(bars)),
	}
	layout := period.LabelLayout()
	for _, b := range bars {
		if b.Close == nil {
			continue
		}
		series.Labels = append(series.Labels, utils.ToIST(b.Timestamp).Format(layout))
		series.Prices = append(series.Prices, *b.Close)
		series.Volumes = append(series.Volumes, b.Volume)
	}
	return series, nil
}
