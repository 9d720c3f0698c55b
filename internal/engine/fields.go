package engine

import (
	"math"

	"github.com/seenimoa/bazaar/internal/datasource"
)

// A zero reading counts as absent throughout: upstream sends 0 for
// "no data" far more often than for a genuine zero.

// valid reports whether v is a usable reading.
func valid(v float64) bool {
	return v != 0 && !math.IsNaN(v) && !math.IsInf(v, 0)
}

// orElse returns v when valid, otherwise fallback.
func orElse(v, fallback float64) float64 {
	if valid(v) {
		return v
	}
	return fallback
}

// pctChange is (to-from)/from*100, or 0 when from is not positive.
func pctChange(from, to float64) float64 {
	if from <= 0 {
		return 0
	}
	return (to - from) / from * 100
}

// toPercent scales a fraction (|v| < 1) to percent. Values already on the
// percent scale pass through.
func toPercent(v float64) float64 {
	if math.Abs(v) < 1 {
		return v * 100
	}
	return v
}

// toFraction is the inverse of toPercent.
func toFraction(v float64) float64 {
	if math.Abs(v) < 1 {
		return v
	}
	return v / 100
}

// PB plausibility bound, exclusive on both ends.
const (
	minPlausiblePB = 0.1
	maxPlausiblePB = 50
)

func plausiblePB(v float64) bool {
	return v > minPlausiblePB && v < maxPlausiblePB
}

// profileSources is everything a profile field may be resolved from. Any
// source other than detail may be nil.
type profileSources struct {
	detail  *datasource.EquityDetail
	corp    *datasource.FinancialResult
	summary *datasource.QuoteSummary
}

// accessor reads one candidate value for a field from one source.
type accessor func(s *profileSources) (float64, bool)

// resolve evaluates chain in order and returns the first valid value.
func resolve(s *profileSources, chain ...accessor) *float64 {
	return resolveWhere(s, valid, chain...)
}

// resolveWhere is resolve with an extra acceptance test. A candidate that is
// present but rejected moves evaluation on to the next accessor.
func resolveWhere(s *profileSources, accept func(float64) bool, chain ...accessor) *float64 {
	for _, get := range chain {
		v, ok := get(s)
		if !ok || !valid(v) || !accept(v) {
			continue
		}
		return &v
	}
	return nil
}

func present(v float64) (float64, bool) { return v, valid(v) }

func price(s *profileSources) float64 {
	if s.detail == nil {
		return 0
	}
	return s.detail.PriceInfo.LastPrice.Float()
}

// --- live snapshot ---

func livePE(s *profileSources) (float64, bool) {
	if s.detail == nil {
		return 0, false
	}
	return present(s.detail.Metadata.SymbolPE.Float())
}

func liveMarketCap(s *profileSources) (float64, bool) {
	if s.detail == nil {
		return 0, false
	}
	return present(s.detail.SecurityInfo.IssuedSize.Float() * price(s))
}

func liveFaceValue(s *profileSources) (float64, bool) {
	if s.detail == nil {
		return 0, false
	}
	return present(s.detail.SecurityInfo.FaceValue.Float())
}

func liveWeekHigh(s *profileSources) (float64, bool) {
	if s.detail == nil {
		return 0, false
	}
	return present(s.detail.PriceInfo.WeekHighLow.Max.Float())
}

func liveWeekLow(s *profileSources) (float64, bool) {
	if s.detail == nil {
		return 0, false
	}
	return present(s.detail.PriceInfo.WeekHighLow.Min.Float())
}

// --- corporate financials ---

func corpEPS(s *profileSources) (float64, bool) {
	if s.corp == nil {
		return 0, false
	}
	return present(s.corp.ReDilEPS.Float())
}

func corpPE(s *profileSources) (float64, bool) {
	eps, ok := corpEPS(s)
	p := price(s)
	if !ok || !valid(p) {
		return 0, false
	}
	return p / eps, true
}

func corpROA(s *profileSources) (float64, bool) {
	if s.corp == nil || !valid(s.corp.Income.Float()) {
		return 0, false
	}
	return present(s.corp.ProLossAftTax.Float() / s.corp.Income.Float() * 100)
}

func corpRevenue(s *profileSources) (float64, bool) {
	if s.corp == nil {
		return 0, false
	}
	return present(s.corp.Income.Float())
}

func corpNetProfit(s *profileSources) (float64, bool) {
	if s.corp == nil {
		return 0, false
	}
	return present(s.corp.ProLossAftTax.Float())
}

// --- fundamentals ---

func keyStat(pick func(*datasource.YFKeyStatistics) datasource.YFValue) accessor {
	return func(s *profileSources) (float64, bool) {
		if s.summary == nil || s.summary.KeyStatistics == nil {
			return 0, false
		}
		return pick(s.summary.KeyStatistics).Value()
	}
}

func finData(pick func(*datasource.YFFinancialData) datasource.YFValue) accessor {
	return func(s *profileSources) (float64, bool) {
		if s.summary == nil || s.summary.FinancialData == nil {
			return 0, false
		}
		return pick(s.summary.FinancialData).Value()
	}
}

func sumDetail(pick func(*datasource.YFSummaryDetail) datasource.YFValue) accessor {
	return func(s *profileSources) (float64, bool) {
		if s.summary == nil || s.summary.SummaryDetail == nil {
			return 0, false
		}
		return pick(s.summary.SummaryDetail).Value()
	}
}

// percent wraps an accessor so its value is normalised to percent scale.
func percent(get accessor) accessor {
	return func(s *profileSources) (float64, bool) {
		v, ok := get(s)
		if !ok {
			return 0, false
		}
		return toPercent(v), true
	}
}

var (
	fundTrailingPE = sumDetail(func(d *datasource.YFSummaryDetail) datasource.YFValue { return d.TrailingPE })
	fundForwardPE  = keyStat(func(k *datasource.YFKeyStatistics) datasource.YFValue { return k.ForwardPE })
	fundPB         = keyStat(func(k *datasource.YFKeyStatistics) datasource.YFValue { return k.PriceToBook })
	fundROE        = finData(func(f *datasource.YFFinancialData) datasource.YFValue { return f.ReturnOnEquity })
	fundROA        = finData(func(f *datasource.YFFinancialData) datasource.YFValue { return f.ReturnOnAssets })
)

// estimatedPB is P/E × ROE with ROE as a fraction. P/B = P/E × E/B. Only
// positive P/E and ROE give an estimate; two negatives would multiply into
// a plausible looking ratio for a loss-making company.
func estimatedPB(s *profileSources) (float64, bool) {
	pe := resolve(s, peChain...)
	roe, ok := fundROE(s)
	if pe == nil || *pe <= 0 || !ok || !valid(roe) || roe <= 0 {
		return 0, false
	}
	return *pe * toFraction(roe), true
}

// Precedence chains, highest priority first.
var (
	peChain = []accessor{
		livePE,
		corpPE,
		fundTrailingPE,
		keyStat(func(k *datasource.YFKeyStatistics) datasource.YFValue { return k.TrailingPE }),
		fundForwardPE,
		sumDetail(func(d *datasource.YFSummaryDetail) datasource.YFValue { return d.ForwardPE }),
	}
	pbChain = []accessor{
		fundPB,
		sumDetail(func(d *datasource.YFSummaryDetail) datasource.YFValue { return d.PriceToBook }),
		estimatedPB,
	}
	epsChain = []accessor{
		corpEPS,
		keyStat(func(k *datasource.YFKeyStatistics) datasource.YFValue { return k.TrailingEps }),
		finData(func(f *datasource.YFFinancialData) datasource.YFValue { return f.TrailingEps }),
		keyStat(func(k *datasource.YFKeyStatistics) datasource.YFValue { return k.ForwardEps }),
	}
	roeChain = []accessor{percent(fundROE)}
	roaChain = []accessor{percent(fundROA), corpROA}
	deChain  = []accessor{
		finData(func(f *datasource.YFFinancialData) datasource.YFValue { return f.DebtToEquity }),
	}
	betaChain = []accessor{
		keyStat(func(k *datasource.YFKeyStatistics) datasource.YFValue { return k.Beta }),
		sumDetail(func(d *datasource.YFSummaryDetail) datasource.YFValue { return d.Beta }),
	}
	dividendChain = []accessor{
		percent(sumDetail(func(d *datasource.YFSummaryDetail) datasource.YFValue { return d.DividendYield })),
		percent(keyStat(func(k *datasource.YFKeyStatistics) datasource.YFValue { return k.DividendYield })),
	}
	marketCapChain = []accessor{
		liveMarketCap,
		func(s *profileSources) (float64, bool) {
			shares, ok := keyStat(func(k *datasource.YFKeyStatistics) datasource.YFValue { return k.SharesOutstanding })(s)
			if !ok {
				return 0, false
			}
			return shares * price(s), true
		},
		sumDetail(func(d *datasource.YFSummaryDetail) datasource.YFValue { return d.MarketCap }),
	}
	bookValueChain = []accessor{
		keyStat(func(k *datasource.YFKeyStatistics) datasource.YFValue { return k.BookValue }),
	}
	faceValueChain = []accessor{liveFaceValue}
	weekHighChain  = []accessor{
		liveWeekHigh,
		sumDetail(func(d *datasource.YFSummaryDetail) datasource.YFValue { return d.FiftyTwoWeekHigh }),
	}
	weekLowChain = []accessor{
		liveWeekLow,
		sumDetail(func(d *datasource.YFSummaryDetail) datasource.YFValue { return d.FiftyTwoWeekLow }),
	}
	revenueChain   = []accessor{corpRevenue}
	netProfitChain = []accessor{corpNetProfit}
)
