package models

import "time"

// MarketStatus is the trading-window flag attached to a snapshot.
type MarketStatus string

const (
	MarketOpen   MarketStatus = "OPEN"
	MarketClosed MarketStatus = "CLOSED"
)

// IndexQuote is the live quote of one named index.
type IndexQuote struct {
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Change    float64 `json:"change"`
	ChangePct float64 `json:"change_pct"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Volume    int64   `json:"volume"`
}

// MarketSnapshot maps index keys to their quotes. Indices whose upstream
// fetch failed are absent from the map.
type MarketSnapshot struct {
	Indices      map[string]IndexQuote `json:"indices"`
	MarketStatus MarketStatus          `json:"market_status"`
	AsOf         time.Time             `json:"as_of"`
}

// ConstituentSet lists the member symbols of one tracked index.
type ConstituentSet struct {
	IndexKey  string    `json:"index_key"`
	Symbols   []string  `json:"symbols"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Contains reports whether symbol is a member of the set.
func (c ConstituentSet) Contains(symbol string) bool {
	for _, s := range c.Symbols {
		if s == symbol {
			return true
		}
	}
	return false
}

// SectorRecord is the performance of one sector index over a period.
type SectorRecord struct {
	Sector    string  `json:"sector"`
	Price     float64 `json:"price"`
	ChangePct float64 `json:"change_pct"`
}

// SectorPerformance is the ranked list of sectors for one period, best first.
type SectorPerformance struct {
	Period   Period         `json:"period"`
	Sectors  []SectorRecord `json:"sectors"`
	Degraded bool           `json:"degraded,omitempty"`
}
