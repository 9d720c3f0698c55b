package datasource

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"

	"github.com/seenimoa/bazaar/internal/logging"
	"github.com/seenimoa/bazaar/pkg/models"
	"github.com/seenimoa/bazaar/pkg/utils"
)

// Default Yahoo Finance endpoints.
const (
	DefaultYFChartURL   = "https://query1.finance.yahoo.com/v8/finance/chart"
	DefaultYFSummaryURL = "https://query2.finance.yahoo.com/v10/finance/quoteSummary"
	DefaultYFProfileURL = "https://finance.yahoo.com/quote"
	yfDefaultRate       = 20
)

// summaryModules are the quoteSummary modules a profile needs.
const summaryModules = "defaultKeyStatistics,financialData,summaryDetail,assetProfile"

// YFEndpoints groups the Yahoo Finance base URLs.
type YFEndpoints struct {
	ChartURL   string
	SummaryURL string
	ProfileURL string
}

// YFinance is the historical/fundamentals adapter backed by Yahoo Finance.
type YFinance struct {
	ep      YFEndpoints
	client  HTTPClient
	limiter *rate.Limiter
	log     *logging.Entry
}

// NewYFinance creates the Yahoo Finance adapter. Empty endpoints fall back
// to the public defaults.
func NewYFinance(ep YFEndpoints, opts ...Option) *YFinance {
	o := buildOptions(yfDefaultRate, opts)
	if o.client == nil {
		o.client = &http.Client{Timeout: o.timeout}
	}
	ep.ChartURL = strings.TrimRight(coalesce(ep.ChartURL, DefaultYFChartURL), "/")
	ep.SummaryURL = strings.TrimRight(coalesce(ep.SummaryURL, DefaultYFSummaryURL), "/")
	ep.ProfileURL = strings.TrimRight(coalesce(ep.ProfileURL, DefaultYFProfileURL), "/")
	return &YFinance{
		ep:      ep,
		client:  o.client,
		limiter: o.limiter,
		log:     o.log.WithComponent("yfinance"),
	}
}

// Name returns the data source name.
func (y *YFinance) Name() string { return "Yahoo Finance" }

// --- Yahoo Finance API types ---

type yfChartResponse struct {
	Chart struct {
		Result []yfChartResult `json:"result"`
		Error  *yfError        `json:"error"`
	} `json:"chart"`
}

type yfChartResult struct {
	Meta       yfChartMeta  `json:"meta"`
	Timestamp  []int64      `json:"timestamp"`
	Indicators yfIndicators `json:"indicators"`
}

type yfChartMeta struct {
	Symbol             string  `json:"symbol"`
	Currency           string  `json:"currency"`
	RegularMarketPrice float64 `json:"regularMarketPrice"`
}

type yfIndicators struct {
	Quote []yfOHLCV `json:"quote"`
}

type yfOHLCV struct {
	Open   []*float64 `json:"open"`
	High   []*float64 `json:"high"`
	Low    []*float64 `json:"low"`
	Close  []*float64 `json:"close"`
	Volume []*int64   `json:"volume"`
}

type yfError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

func (e *yfError) err() error {
	if strings.EqualFold(e.Code, "Not Found") {
		return fmt.Errorf("%w: %s", ErrTickerNotFound, e.Description)
	}
	return fmt.Errorf("API error %s: %s", e.Code, e.Description)
}

// YFValue is a quoteSummary number. Yahoo sends either {"raw":1.2,"fmt":"1.20"},
// an empty object, or a bare number.
type YFValue struct {
	Raw *float64 `json:"raw"`
	Fmt string   `json:"fmt"`
}

func (v *YFValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] != '{' {
		var n *float64
		if err := json.Unmarshal(data, &n); err != nil {
			// Strings such as "Infinity" carry no usable value.
			v.Raw = nil
			return nil
		}
		v.Raw = n
		return nil
	}
	type plain YFValue
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*v = YFValue(p)
	return nil
}

// Value returns the raw number and whether it was present.
func (v YFValue) Value() (float64, bool) {
	if v.Raw == nil {
		return 0, false
	}
	return *v.Raw, true
}

// YFKeyStatistics is the defaultKeyStatistics module.
type YFKeyStatistics struct {
	TrailingPE        YFValue `json:"trailingPE"`
	ForwardPE         YFValue `json:"forwardPE"`
	PriceToBook       YFValue `json:"priceToBook"`
	TrailingEps       YFValue `json:"trailingEps"`
	ForwardEps        YFValue `json:"forwardEps"`
	BookValue         YFValue `json:"bookValue"`
	Beta              YFValue `json:"beta"`
	SharesOutstanding YFValue `json:"sharesOutstanding"`
	DividendYield     YFValue `json:"dividendYield"`
}

// YFFinancialData is the financialData module.
type YFFinancialData struct {
	CurrentPrice   YFValue `json:"currentPrice"`
	ReturnOnEquity YFValue `json:"returnOnEquity"`
	ReturnOnAssets YFValue `json:"returnOnAssets"`
	DebtToEquity   YFValue `json:"debtToEquity"`
	TotalRevenue   YFValue `json:"totalRevenue"`
	TrailingEps    YFValue `json:"trailingEps"`
}

// YFSummaryDetail is the summaryDetail module.
type YFSummaryDetail struct {
	TrailingPE       YFValue `json:"trailingPE"`
	ForwardPE        YFValue `json:"forwardPE"`
	PriceToBook      YFValue `json:"priceToBook"`
	DividendYield    YFValue `json:"dividendYield"`
	Beta             YFValue `json:"beta"`
	MarketCap        YFValue `json:"marketCap"`
	FiftyTwoWeekHigh YFValue `json:"fiftyTwoWeekHigh"`
	FiftyTwoWeekLow  YFValue `json:"fiftyTwoWeekLow"`
}

// YFAssetProfile is the assetProfile module.
type YFAssetProfile struct {
	LongBusinessSummary string `json:"longBusinessSummary"`
	Sector              string `json:"sector"`
	Industry            string `json:"industry"`
	Website             string `json:"website"`
}

// QuoteSummary holds the modules requested by QuoteSummary. Any of them may
// be nil when Yahoo omits it.
type QuoteSummary struct {
	KeyStatistics *YFKeyStatistics `json:"defaultKeyStatistics"`
	FinancialData *YFFinancialData `json:"financialData"`
	SummaryDetail *YFSummaryDetail `json:"summaryDetail"`
	AssetProfile  *YFAssetProfile  `json:"assetProfile"`
}

type yfSummaryResponse struct {
	QuoteSummary struct {
		Result []QuoteSummary `json:"result"`
		Error  *yfError       `json:"error"`
	} `json:"quoteSummary"`
}

// --- Public methods ---

// Chart returns bars for symbol between from and to at the given interval
// ("1h", "1d", ...). Bars with a missing close are kept with a nil Close.
// An empty upstream result is an empty slice, not an error.
func (y *YFinance) Chart(ctx context.Context, symbol string, from, to time.Time, interval string) ([]models.OHLCV, error) {
	yfTicker := utils.ToYFinanceTicker(symbol)

	u := fmt.Sprintf("%s/%s?period1=%d&period2=%d&interval=%s",
		y.ep.ChartURL, url.PathEscape(yfTicker), from.Unix(), to.Unix(), url.QueryEscape(interval))

	data, err := doGet(ctx, y.client, y.limiter, u, map[string]string{"Accept": "application/json"})
	if err != nil {
		return nil, &YFinanceError{Op: "chart", Symbol: yfTicker, Err: err}
	}

	var resp yfChartResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, &YFinanceError{Op: "chart", Symbol: yfTicker, Err: fmt.Errorf("parse response: %w", err)}
	}
	if resp.Chart.Error != nil {
		return nil, &YFinanceError{Op: "chart", Symbol: yfTicker, Err: resp.Chart.Error.err()}
	}
	if len(resp.Chart.Result) == 0 {
		return []models.OHLCV{}, nil
	}
	return parseYFCandles(resp.Chart.Result[0]), nil
}

// QuoteSummary returns key statistics, financial data, summary detail and
// the asset profile for symbol.
func (y *YFinance) QuoteSummary(ctx context.Context, symbol string) (*QuoteSummary, error) {
	yfTicker := utils.ToYFinanceTicker(symbol)

	u := fmt.Sprintf("%s/%s?modules=%s", y.ep.SummaryURL, url.PathEscape(yfTicker), summaryModules)
	data, err := doGet(ctx, y.client, y.limiter, u, map[string]string{"Accept": "application/json"})
	if err != nil {
		return nil, &YFinanceError{Op: "quote summary", Symbol: yfTicker, Err: err}
	}

	var resp yfSummaryResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, &YFinanceError{Op: "quote summary", Symbol: yfTicker, Err: fmt.Errorf("parse response: %w", err)}
	}
	if resp.QuoteSummary.Error != nil {
		return nil, &YFinanceError{Op: "quote summary", Symbol: yfTicker, Err: resp.QuoteSummary.Error.err()}
	}
	if len(resp.QuoteSummary.Result) == 0 {
		return nil, &YFinanceError{Op: "quote summary", Symbol: yfTicker, Err: ErrTickerNotFound}
	}
	return &resp.QuoteSummary.Result[0], nil
}

// Description scrapes the business summary from the public profile page.
// Used when quoteSummary carries no assetProfile text.
func (y *YFinance) Description(ctx context.Context, symbol string) (string, error) {
	yfTicker := utils.ToYFinanceTicker(symbol)

	u := fmt.Sprintf("%s/%s/profile", y.ep.ProfileURL, url.PathEscape(yfTicker))
	data, err := doGet(ctx, y.client, y.limiter, u, map[string]string{"Accept": "text/html"})
	if err != nil {
		return "", &YFinanceError{Op: "description", Symbol: yfTicker, Err: err}
	}

	text, err := parseProfileDescription(data)
	if err != nil {
		return "", &YFinanceError{Op: "description", Symbol: yfTicker, Err: err}
	}
	return text, nil
}

// --- Helpers ---

// descriptionSelectors are tried in order against the profile page.
var descriptionSelectors = []string{
	`section[data-testid="description"] p`,
	`section.quote-sub-section p`,
	`div.description p`,
}

func parseProfileDescription(html []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("parse profile page: %w", err)
	}
	for _, sel := range descriptionSelectors {
		var parts []string
		doc.Find(sel).Each(func(_ int, s *goquery.Selection) {
			if t := strings.TrimSpace(s.Text()); t != "" {
				parts = append(parts, t)
			}
		})
		if len(parts) > 0 {
			return strings.Join(parts, "\n\n"), nil
		}
	}
	return "", ErrEmptyResponse
}

func parseYFCandles(result yfChartResult) []models.OHLCV {
	if len(result.Indicators.Quote) == 0 {
		return []models.OHLCV{}
	}

	q := result.Indicators.Quote[0]
	candles := make([]models.OHLCV, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		c := models.OHLCV{
			Timestamp: time.Unix(ts, 0),
		}
		if i < len(q.Open) && q.Open[i] != nil {
			c.Open = *q.Open[i]
		}
		if i < len(q.High) && q.High[i] != nil {
			c.High = *q.High[i]
		}
		if i < len(q.Low) && q.Low[i] != nil {
			c.Low = *q.Low[i]
		}
		if i < len(q.Close) && q.Close[i] != nil {
			v := *q.Close[i]
			c.Close = &v
		}
		if i < len(q.Volume) && q.Volume[i] != nil {
			c.Volume = *q.Volume[i]
		}
		candles = append(candles, c)
	}
	return candles
}

func coalesce(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
