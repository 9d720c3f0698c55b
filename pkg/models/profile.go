package models

// InstrumentProfile is the merged per-instrument record. Pointer fields are
// nil (JSON null) when no source produced a valid value; their JSON names are
// listed in Unavailable.
type InstrumentProfile struct {
	Symbol      string `json:"symbol"`
	CompanyName string `json:"company_name"`
	Industry    string `json:"industry"`
	Sector      string `json:"sector"`
	ISIN        string `json:"isin"`
	Description string `json:"description"`

	CurrentPrice     float64 `json:"current_price"`
	Change           float64 `json:"change"`
	ChangePct        float64 `json:"change_pct"`
	PreviousClose    float64 `json:"previous_close"`
	Open             float64 `json:"open"`
	High             float64 `json:"high"`
	Low              float64 `json:"low"`
	Volume           int64   `json:"volume"`
	TotalTradedValue float64 `json:"total_traded_value"`

	Week52High *float64 `json:"week_52_high"`
	Week52Low  *float64 `json:"week_52_low"`

	MarketCap     *float64 `json:"market_cap"`
	BookValue     *float64 `json:"book_value"`
	FaceValue     *float64 `json:"face_value"`
	PERatio       *float64 `json:"pe_ratio"`
	PBRatio       *float64 `json:"pb_ratio"`
	EPS           *float64 `json:"eps"`
	DividendYield *float64 `json:"dividend_yield"`
	Beta          *float64 `json:"beta"`
	DebtToEquity  *float64 `json:"debt_to_equity"`
	ROE           *float64 `json:"roe"`
	ROA           *float64 `json:"roa"`
	Revenue       *float64 `json:"revenue"`
	NetProfit     *float64 `json:"net_profit"`

	LastUpdateTime string   `json:"last_update_time"`
	Unavailable    []string `json:"unavailable,omitempty"`
	Degraded       bool     `json:"degraded,omitempty"`
}
