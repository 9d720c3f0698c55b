package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/seenimoa/bazaar/internal/datasource"
	"github.com/seenimoa/bazaar/pkg/models"
	"github.com/seenimoa/bazaar/pkg/utils"
)

// GetProfile assembles the instrument profile for symbol. The live equity
// detail is required; corporate financials and fundamentals are
// best-effort and only degrade fields to null when they fail.
func (e *Engine) GetProfile(ctx context.Context, symbol string) (*models.InstrumentProfile, error) {
	sym := utils.NormalizeTicker(symbol)
	if sym == "" {
		return nil, fmt.Errorf("profile: %w: empty symbol", ErrInvalidArgument)
	}

	var (
		mu      sync.Mutex
		src     profileSources
		missing []string
	)
	g, gctx := errgroup.WithContext(ctx)

	// 1. Live snapshot (primary).
	g.Go(func() error {
		d, err := call(gctx, e, func(ctx context.Context) (*datasource.EquityDetail, error) {
			return e.live.EquityDetail(ctx, sym)
		})
		if err != nil {
			return err
		}
		mu.Lock()
		src.detail = d
		mu.Unlock()
		return nil
	})

	// 2. Corporate financials.
	g.Go(func() error {
		info, ok := bestEffort(gctx, e, "corporate info", func(ctx context.Context) (*datasource.CorporateInfo, error) {
			return e.live.CorporateInfo(ctx, sym)
		})
		latest, has := info.Latest()
		mu.Lock()
		defer mu.Unlock()
		if !ok || !has {
			missing = append(missing, "corporate")
			return nil // non-fatal
		}
		src.corp = &latest
		return nil
	})

	// 3. Fundamentals.
	g.Go(func() error {
		qs, ok := bestEffort(gctx, e, "quote summary", func(ctx context.Context) (*datasource.QuoteSummary, error) {
			return e.history.QuoteSummary(ctx, sym)
		})
		mu.Lock()
		defer mu.Unlock()
		if !ok {
			missing = append(missing, "fundamentals")
			return nil // non-fatal
		}
		src.summary = qs
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, classify("profile "+sym, err)
	}

	p := assembleProfile(sym, &src)
	if p.Description == "" {
		if text, ok := bestEffort(ctx, e, "description", func(ctx context.Context) (string, error) {
			return e.history.Description(ctx, sym)
		}); ok {
			p.Description = text
		}
	}

	p.Unavailable = unavailableFields(p)
	p.Degraded = len(missing) > 0 || len(p.Unavailable) > 0
	if len(missing) > 0 {
		e.log.WithField("symbol", sym).WithField("sources", strings.Join(missing, ",")).Debug("profile assembled without some sources")
	}
	return p, nil
}

func assembleProfile(sym string, s *profileSources) *models.InstrumentProfile {
	d := s.detail
	var ap datasource.YFAssetProfile
	if s.summary != nil && s.summary.AssetProfile != nil {
		ap = *s.summary.AssetProfile
	}

	pi := d.PriceInfo
	p := &models.InstrumentProfile{
		Symbol:      firstNonEmpty(d.Info.Symbol, sym),
		CompanyName: firstNonEmpty(d.Info.CompanyName, sym),
		Industry:    firstNonEmpty(d.IndustryInfo.Industry, d.Info.Industry, d.Metadata.Industry, ap.Industry),
		Sector:      firstNonEmpty(d.IndustryInfo.Sector, d.IndustryInfo.Macro, ap.Sector),
		ISIN:        firstNonEmpty(d.Info.ISIN, d.Metadata.ISIN),
		Description: strings.TrimSpace(ap.LongBusinessSummary),

		CurrentPrice:     pi.LastPrice.Float(),
		Change:           pi.Change.Float(),
		ChangePct:        pi.PChange.Float(),
		PreviousClose:    pi.PreviousClose.Float(),
		Open:             pi.Open.Float(),
		High:             pi.IntraDayHighLow.Max.Float(),
		Low:              pi.IntraDayHighLow.Min.Float(),
		Volume:           int64(pi.TotalTradedVolume.Float()),
		TotalTradedValue: pi.TotalTradedValue.Float(),

		Week52High: resolve(s, weekHighChain...),
		Week52Low:  resolve(s, weekLowChain...),

		MarketCap:     resolve(s, marketCapChain...),
		BookValue:     resolve(s, bookValueChain...),
		FaceValue:     resolve(s, faceValueChain...),
		PERatio:       resolve(s, peChain...),
		PBRatio:       resolveWhere(s, plausiblePB, pbChain...),
		EPS:           resolve(s, epsChain...),
		DividendYield: resolve(s, dividendChain...),
		Beta:          resolve(s, betaChain...),
		DebtToEquity:  resolve(s, deChain...),
		ROE:           resolve(s, roeChain...),
		ROA:           resolve(s, roaChain...),
		Revenue:       resolve(s, revenueChain...),
		NetProfit:     resolve(s, netProfitChain...),

		LastUpdateTime: d.Metadata.LastUpdateTime,
	}
	return p
}

// unavailableFields lists the JSON names of the unresolved fields.
func unavailableFields(p *models.InstrumentProfile) []string {
	fields := []struct {
		name string
		v    *float64
	}{
		{"week_52_high", p.Week52High},
		{"week_52_low", p.Week52Low},
		{"market_cap", p.MarketCap},
		{"book_value", p.BookValue},
		{"face_value", p.FaceValue},
		{"pe_ratio", p.PERatio},
		{"pb_ratio", p.PBRatio},
		{"eps", p.EPS},
		{"dividend_yield", p.DividendYield},
		{"beta", p.Beta},
		{"debt_to_equity", p.DebtToEquity},
		{"roe", p.ROE},
		{"roa", p.ROA},
		{"revenue", p.Revenue},
		{"net_profit", p.NetProfit},
	}
	var out []string
	for _, f := range fields {
		if f.v == nil {
			out = append(out, f.name)
		}
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
