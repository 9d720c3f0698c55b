package engine

import (
	"cmp"
	"context"
	"slices"

	"github.com/seenimoa/bazaar/internal/datasource"
	"github.com/seenimoa/bazaar/pkg/models"
)

// GetSectorPerformance ranks the tracked sectors by change over period,
// best first. Intraday reads one allIndices snapshot; longer periods fetch
// each sector's history in turn and leave out sectors that fail.
func (e *Engine) GetSectorPerformance(ctx context.Context, period models.Period) (*models.SectorPerformance, error) {
	var records []models.SectorRecord
	if period.IsIntraday() {
		rows, err := call(ctx, e, e.live.AllIndices)
		if err != nil {
			return nil, classify("sectors", err)
		}
		records = liveSectors(rows)
	} else {
		records = e.historicalSectors(ctx, period)
	}

	slices.SortStableFunc(records, func(a, b models.SectorRecord) int { return cmp.Compare(b.ChangePct, a.ChangePct) })
	return &models.SectorPerformance{
		Period:   period,
		Sectors:  records,
		Degraded: len(records) < len(Sectors),
	}, nil
}

func liveSectors(rows []datasource.IndexRow) []models.SectorRecord {
	byName := make(map[string]datasource.IndexRow, len(rows))
	for _, r := range rows {
		byName[r.Index] = r
		if r.IndexSymbol != "" {
			byName[r.IndexSymbol] = r
		}
	}

	out := make([]models.SectorRecord, 0, len(Sectors))
	for _, s := range Sectors {
		r, ok := byName[s.NSEIndex]
		if !ok {
			continue
		}
		last := r.Last.Float()
		if last <= 0 {
			continue
		}
		prev := orElse(r.PreviousClose.Float(), last)
		out = append(out, models.SectorRecord{Sector: s.Name, Price: last, ChangePct: pctChange(prev, last)})
	}
	return out
}

func (e *Engine) historicalSectors(ctx context.Context, period models.Period) []models.SectorRecord {
	from, to := period.Window(e.now())
	out := make([]models.SectorRecord, 0, len(Sectors))
	for _, s := range Sectors {
		if ctx.Err() != nil {
			break
		}
		last, chg, ok := e.seriesChange(ctx, s.YahooSymbol, from, to)
		if !ok {
			e.log.WithField("sector", s.Name).Debug("sector history unavailable, omitted")
			continue
		}
		out = append(out, models.SectorRecord{Sector: s.Name, Price: last, ChangePct: chg})
	}
	return out
}
