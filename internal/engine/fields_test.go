package engine

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seenimoa/bazaar/internal/datasource"
)

func constant(v float64, ok bool) accessor {
	return func(*profileSources) (float64, bool) { return v, ok }
}

func TestResolveFirstValidWins(t *testing.T) {
	got := resolve(&profileSources{}, constant(0, false), constant(12.3, true), constant(9.9, true))
	require.NotNil(t, got)
	assert.Equal(t, 12.3, *got)
}

func TestResolveSkipsInvalidReadings(t *testing.T) {
	tests := []struct {
		name  string
		chain []accessor
		want  *float64
	}{
		{"zero is absent", []accessor{constant(0, true), constant(4, true)}, ptr(4)},
		{"NaN rejected", []accessor{constant(math.NaN(), true), constant(5, true)}, ptr(5)},
		{"Inf rejected", []accessor{constant(math.Inf(1), true), constant(6, true)}, ptr(6)},
		{"nothing valid", []accessor{constant(0, false), constant(0, true)}, nil},
		{"empty chain", nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, resolve(&profileSources{}, tt.chain...))
		})
	}
}

func TestPBPlausibility(t *testing.T) {
	src := &profileSources{
		detail: &datasource.EquityDetail{Metadata: datasource.EquityMetadata{SymbolPE: fv(20)}},
		summary: &datasource.QuoteSummary{
			KeyStatistics: &datasource.YFKeyStatistics{PriceToBook: yv(120)},
			FinancialData: &datasource.YFFinancialData{ReturnOnEquity: yv(0.08)},
		},
	}
	pb := resolveWhere(src, plausiblePB, pbChain...)
	require.NotNil(t, pb)
	assert.InDelta(t, 1.6, *pb, 1e-9)

	// ROE on the percent scale yields the same estimate.
	src.summary.FinancialData.ReturnOnEquity = yv(8)
	pb = resolveWhere(src, plausiblePB, pbChain...)
	require.NotNil(t, pb)
	assert.InDelta(t, 1.6, *pb, 1e-9)

	// An implausible estimate is not guessed further.
	src.detail.Metadata.SymbolPE = fv(1000)
	assert.Nil(t, resolveWhere(src, plausiblePB, pbChain...))

	// Negative P/E or ROE give no estimate, even when both are negative.
	src.detail.Metadata.SymbolPE = fv(-20)
	src.summary.FinancialData.ReturnOnEquity = yv(-0.08)
	assert.Nil(t, resolveWhere(src, plausiblePB, pbChain...), "negative P/E and ROE")
	src.detail.Metadata.SymbolPE = fv(20)
	assert.Nil(t, resolveWhere(src, plausiblePB, pbChain...), "negative ROE")
	src.detail.Metadata.SymbolPE = fv(-20)
	src.summary.FinancialData.ReturnOnEquity = yv(0.08)
	assert.Nil(t, resolveWhere(src, plausiblePB, pbChain...), "negative P/E")

	// A plausible direct value wins over the estimate.
	src.summary.KeyStatistics.PriceToBook = yv(7.9)
	pb = resolveWhere(src, plausiblePB, pbChain...)
	require.NotNil(t, pb)
	assert.Equal(t, 7.9, *pb)
}

func TestPlausiblePBBounds(t *testing.T) {
	assert.False(t, plausiblePB(0.1))
	assert.True(t, plausiblePB(0.11))
	assert.True(t, plausiblePB(49.9))
	assert.False(t, plausiblePB(50))
}

func TestPEChainOrder(t *testing.T) {
	src := &profileSources{
		detail: &datasource.EquityDetail{PriceInfo: datasource.EquityPriceInfo{LastPrice: fv(300)}},
		corp:   &datasource.FinancialResult{ReDilEPS: fv(10)},
		summary: &datasource.QuoteSummary{
			SummaryDetail: &datasource.YFSummaryDetail{TrailingPE: yv(25)},
			KeyStatistics: &datasource.YFKeyStatistics{ForwardPE: yv(22)},
		},
	}
	pe := resolve(src, peChain...)
	require.NotNil(t, pe)
	assert.Equal(t, 30.0, *pe, "price / corporate EPS before fundamentals")

	src.corp = nil
	pe = resolve(src, peChain...)
	require.NotNil(t, pe)
	assert.Equal(t, 25.0, *pe)

	src.summary.SummaryDetail = nil
	pe = resolve(src, peChain...)
	require.NotNil(t, pe)
	assert.Equal(t, 22.0, *pe)
}

func TestPercentNormalisation(t *testing.T) {
	assert.InDelta(t, 31.2, toPercent(0.312), 1e-9)
	assert.Equal(t, 31.2, toPercent(31.2))
	assert.InDelta(t, -4, toPercent(-0.04), 1e-9)
	assert.InDelta(t, 0.312, toFraction(31.2), 1e-9)
	assert.Equal(t, 0.312, toFraction(0.312))

	// Applied exactly once along a chain.
	src := &profileSources{summary: &datasource.QuoteSummary{
		FinancialData: &datasource.YFFinancialData{ReturnOnEquity: yv(0.5)},
	}}
	roe := resolve(src, roeChain...)
	require.NotNil(t, roe)
	assert.Equal(t, 50.0, *roe)
}

func TestROAFallsBackToCorporate(t *testing.T) {
	src := &profileSources{corp: &datasource.FinancialResult{Income: fv(200), ProLossAftTax: fv(30)}}
	roa := resolve(src, roaChain...)
	require.NotNil(t, roa)
	assert.InDelta(t, 15, *roa, 1e-9)
}

func TestPctChange(t *testing.T) {
	assert.InDelta(t, 10, pctChange(100, 110), 1e-9)
	assert.Zero(t, pctChange(0, 110))
	assert.Zero(t, pctChange(-5, 110))
	assert.Equal(t, 7.0, orElse(0, 7))
	assert.Equal(t, 3.0, orElse(3, 7))
}

func ptr(v float64) *float64 { return &v }
