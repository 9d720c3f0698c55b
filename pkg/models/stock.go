// Package models defines the result types served by the aggregation engine.
// Everything here is JSON-serialisable and carries no behaviour beyond small
// accessors.
package models

import (
	"iter"
	"time"
)

// OHLCV represents a single bar of a historical series.
// Close is nil when the upstream reported no close for the bar.
type OHLCV struct {
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     *float64  `json:"close"`
	Volume    int64     `json:"volume"`
}

// ClosePrice returns the bar close, or 0 when it is missing.
func (o OHLCV) ClosePrice() float64 {
	if o.Close == nil {
		return 0
	}
	return *o.Close
}

// MoverRecord is one ranked instrument in a gainers/losers response.
type MoverRecord struct {
	Symbol    string  `json:"symbol"`
	Price     float64 `json:"price"`
	ChangePct float64 `json:"change_pct"`
}

// Movers holds the two ranked slices produced for one index and period.
// Losers are worst-first.
type Movers struct {
	Index    string        `json:"index"`
	Period   Period        `json:"period"`
	Gainers  []MoverRecord `json:"gainers"`
	Losers   []MoverRecord `json:"losers"`
	Degraded bool          `json:"degraded,omitempty"`
}

// SearchResult is one row of a symbol search or trending listing.
type SearchResult struct {
	Symbol      string  `json:"symbol"`
	CompanyName string  `json:"company_name"`
	LastPrice   float64 `json:"last_price"`
	Change      float64 `json:"change"`
	ChangePct   float64 `json:"change_pct"`
}

// WatchQuote answers a point lookup for a symbol on a UI watchlist.
type WatchQuote struct {
	Symbol    string  `json:"symbol"`
	Price     float64 `json:"price"`
	ChangePct float64 `json:"change_pct"`
	Period    Period  `json:"period"`
}

// ChartSeries is three index-aligned sequences built from a historical series.
type ChartSeries struct {
	Symbol  string    `json:"symbol"`
	Period  Period    `json:"period"`
	Labels  []string  `json:"labels"`
	Prices  []float64 `json:"prices"`
	Volumes []int64   `json:"volumes"`
}

// ChartPoint is a single position of a ChartSeries.
type ChartPoint struct {
	Label  string
	Price  float64
	Volume int64
}

// Len returns the number of points in the series.
func (c ChartSeries) Len() int { return len(c.Prices) }

// Points yields the series positions in order.
func (c ChartSeries) Points() iter.Seq2[int, ChartPoint] {
	return func(yield func(int, ChartPoint) bool) {
		for i := range c.Prices {
			if !yield(i, ChartPoint{Label: c.Labels[i], Price: c.Prices[i], Volume: c.Volumes[i]}) {
				return
			}
		}
	}
}
