package datasource

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/seenimoa/bazaar/internal/infra"
	"github.com/seenimoa/bazaar/internal/logging"
)

const (
	// DefaultNSEBaseURL is the public NSE India site.
	DefaultNSEBaseURL = "https://www.nseindia.com"
	// DefaultNSECookieTTL is how long a homepage cookie warmup is trusted.
	DefaultNSECookieTTL = 5 * time.Minute
	nseDefaultRate      = 3 // max requests per second
)

// NSE is the live-quote adapter for NSE India.
type NSE struct {
	baseURL   string
	client    HTTPClient
	limiter   *rate.Limiter
	log       *logging.Entry
	now       infra.Clock
	timeout   time.Duration
	cookieTTL time.Duration

	mu           sync.Mutex
	cookieExpiry time.Time

	indices singleflight.Group
}

// NewNSE creates the NSE adapter. A non-positive cookieTTL disables the
// homepage cookie warmup.
func NewNSE(baseURL string, cookieTTL time.Duration, opts ...Option) *NSE {
	o := buildOptions(nseDefaultRate, opts)
	if baseURL == "" {
		baseURL = DefaultNSEBaseURL
	}
	if o.timeout <= 0 {
		o.timeout = 30 * time.Second
	}
	if o.client == nil {
		jar, _ := cookiejar.New(nil)
		o.client = &http.Client{Timeout: o.timeout, Jar: jar}
	}
	return &NSE{
		baseURL:   strings.TrimRight(baseURL, "/"),
		client:    o.client,
		limiter:   o.limiter,
		log:       o.log.WithComponent("nse"),
		now:       o.now,
		timeout:   o.timeout,
		cookieTTL: cookieTTL,
	}
}

// Name returns the data source name.
func (n *NSE) Name() string { return "NSE India" }

// --- NSE JSON response types ---

// IndexRow is one entry of /api/allIndices.
type IndexRow struct {
	Index             string      `json:"index"`
	IndexSymbol       string      `json:"indexSymbol"`
	Last              FlexFloat64 `json:"last"`
	Variation         FlexFloat64 `json:"variation"`
	PercentChange     FlexFloat64 `json:"percentChange"`
	Open              FlexFloat64 `json:"open"`
	High              FlexFloat64 `json:"high"`
	Low               FlexFloat64 `json:"low"`
	PreviousClose     FlexFloat64 `json:"previousClose"`
	TotalTradedVolume FlexFloat64 `json:"totalTradedVolume"`
}

// ConstituentRow is one entry of /api/equity-stockIndices. The first row of
// a response is the index itself.
type ConstituentRow struct {
	Symbol            string      `json:"symbol"`
	Identifier        string      `json:"identifier"`
	Priority          int         `json:"priority"`
	LastPrice         FlexFloat64 `json:"lastPrice"`
	Change            FlexFloat64 `json:"change"`
	PChange           FlexFloat64 `json:"pChange"`
	PreviousClose     FlexFloat64 `json:"previousClose"`
	TotalTradedVolume FlexFloat64 `json:"totalTradedVolume"`
}

// HighLow is a min/max pair.
type HighLow struct {
	Min FlexFloat64 `json:"min"`
	Max FlexFloat64 `json:"max"`
}

// EquityInfo is the identity block of /api/quote-equity.
type EquityInfo struct {
	Symbol      string `json:"symbol"`
	CompanyName string `json:"companyName"`
	Industry    string `json:"industry"`
	ISIN        string `json:"isin"`
}

// EquityMetadata is the metadata block of /api/quote-equity.
type EquityMetadata struct {
	Series         string      `json:"series"`
	Symbol         string      `json:"symbol"`
	ISIN           string      `json:"isin"`
	Status         string      `json:"status"`
	ListingDate    string      `json:"listingDate"`
	Industry       string      `json:"industry"`
	LastUpdateTime string      `json:"lastUpdateTime"`
	SectorIndex    string      `json:"pdSectorInd"`
	SymbolPE       FlexFloat64 `json:"pdSymbolPe"`
	SectorPE       FlexFloat64 `json:"pdSectorPe"`
}

// EquitySecurityInfo carries share count and face value.
type EquitySecurityInfo struct {
	IssuedSize FlexFloat64 `json:"issuedSize"`
	FaceValue  FlexFloat64 `json:"faceValue"`
}

// EquityPriceInfo is the price block of /api/quote-equity.
type EquityPriceInfo struct {
	LastPrice         FlexFloat64 `json:"lastPrice"`
	Change            FlexFloat64 `json:"change"`
	PChange           FlexFloat64 `json:"pChange"`
	PreviousClose     FlexFloat64 `json:"previousClose"`
	Open              FlexFloat64 `json:"open"`
	Close             FlexFloat64 `json:"close"`
	VWAP              FlexFloat64 `json:"vwap"`
	IntraDayHighLow   HighLow     `json:"intraDayHighLow"`
	WeekHighLow       HighLow     `json:"weekHighLow"`
	TotalTradedVolume FlexFloat64 `json:"totalTradedVolume"`
	TotalTradedValue  FlexFloat64 `json:"totalTradedValue"`
}

// EquityIndustryInfo is the classification block of /api/quote-equity.
type EquityIndustryInfo struct {
	Macro         string `json:"macro"`
	Sector        string `json:"sector"`
	Industry      string `json:"industry"`
	BasicIndustry string `json:"basicIndustry"`
}

// EquityDetail is the full /api/quote-equity payload.
type EquityDetail struct {
	Info         EquityInfo         `json:"info"`
	Metadata     EquityMetadata     `json:"metadata"`
	SecurityInfo EquitySecurityInfo `json:"securityInfo"`
	PriceInfo    EquityPriceInfo    `json:"priceInfo"`
	IndustryInfo EquityIndustryInfo `json:"industryInfo"`
}

// FinancialResult is one reported period of corporate financials.
type FinancialResult struct {
	FromDate      string      `json:"from_date"`
	ToDate        string      `json:"to_date"`
	Income        FlexFloat64 `json:"income"`
	ProLossAftTax FlexFloat64 `json:"proLossAftTax"`
	ReDilEPS      FlexFloat64 `json:"reDilEPS"`
}

// CorporateInfo is the subset of /api/top-corp-info used for profiles.
type CorporateInfo struct {
	FinancialResults struct {
		Data []FinancialResult `json:"data"`
	} `json:"financial_results"`
}

// Latest returns the most recent financial result, if any.
func (c *CorporateInfo) Latest() (FinancialResult, bool) {
	if c == nil || len(c.FinancialResults.Data) == 0 {
		return FinancialResult{}, false
	}
	return c.FinancialResults.Data[0], true
}

// PreOpenRow is the metadata of one /api/market-data-pre-open entry.
type PreOpenRow struct {
	Symbol        string      `json:"symbol"`
	Identifier    string      `json:"identifier"`
	CompanyName   string      `json:"companyName"`
	LastPrice     FlexFloat64 `json:"lastPrice"`
	Change        FlexFloat64 `json:"change"`
	PChange       FlexFloat64 `json:"pChange"`
	PreviousClose FlexFloat64 `json:"previousClose"`
	FinalQuantity FlexFloat64 `json:"finalQuantity"`
	TotalTurnover FlexFloat64 `json:"totalTurnover"`
}

type nseIndicesResponse struct {
	Data []IndexRow `json:"data"`
}

type nseConstituentsResponse struct {
	Name string           `json:"name"`
	Data []ConstituentRow `json:"data"`
}

type nsePreOpenResponse struct {
	Data []struct {
		Metadata *PreOpenRow `json:"metadata"`
	} `json:"data"`
}

// --- Public methods ---

// AllIndices returns every index row of /api/allIndices. Concurrent callers
// share one in-flight request. The shared fetch is detached from any single
// caller's cancellation and bounded by the adapter timeout; each caller
// still stops waiting when its own ctx is done.
func (n *NSE) AllIndices(ctx context.Context) ([]IndexRow, error) {
	ch := n.indices.DoChan("allIndices", func() (any, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), n.timeout)
		defer cancel()

		var resp nseIndicesResponse
		if err := n.getJSON(fctx, "/api/allIndices", &resp); err != nil {
			return nil, err
		}
		if len(resp.Data) == 0 {
			return nil, ErrEmptyResponse
		}
		return resp.Data, nil
	})

	select {
	case <-ctx.Done():
		return nil, &NSEError{Op: "all indices", Err: ctx.Err()}
	case res := <-ch:
		if res.Err != nil {
			return nil, &NSEError{Op: "all indices", Err: res.Err}
		}
		if res.Shared {
			n.log.Debug("allIndices response shared between concurrent callers")
		}
		return res.Val.([]IndexRow), nil
	}
}

// Index returns the allIndices row whose indexSymbol or index equals name.
func (n *NSE) Index(ctx context.Context, name string) (IndexRow, error) {
	rows, err := n.AllIndices(ctx)
	if err != nil {
		return IndexRow{}, err
	}
	for _, r := range rows {
		if r.IndexSymbol == name || r.Index == name {
			return r, nil
		}
	}
	return IndexRow{}, &NSEError{Op: "index", Symbol: name, Err: ErrTickerNotFound}
}

// IndexConstituents returns the raw rows of /api/equity-stockIndices for the
// named index, aggregate row included.
func (n *NSE) IndexConstituents(ctx context.Context, indexName string) ([]ConstituentRow, error) {
	var resp nseConstituentsResponse
	if err := n.getJSON(ctx, "/api/equity-stockIndices?index="+queryEscape(indexName), &resp); err != nil {
		return nil, &NSEError{Op: "index constituents", Symbol: indexName, Err: err}
	}
	if len(resp.Data) == 0 {
		return nil, &NSEError{Op: "index constituents", Symbol: indexName, Err: ErrEmptyResponse}
	}
	return resp.Data, nil
}

// EquityDetail returns the /api/quote-equity payload for symbol.
func (n *NSE) EquityDetail(ctx context.Context, symbol string) (*EquityDetail, error) {
	var resp EquityDetail
	if err := n.getJSON(ctx, "/api/quote-equity?symbol="+queryEscape(symbol), &resp); err != nil {
		return nil, &NSEError{Op: "equity detail", Symbol: symbol, Err: err}
	}
	// NSE answers unknown symbols with an empty object.
	if resp.Info.Symbol == "" && resp.PriceInfo.LastPrice == 0 {
		return nil, &NSEError{Op: "equity detail", Symbol: symbol, Err: ErrTickerNotFound}
	}
	return &resp, nil
}

// CorporateInfo returns the corporate financials summary for symbol.
func (n *NSE) CorporateInfo(ctx context.Context, symbol string) (*CorporateInfo, error) {
	var resp CorporateInfo
	path := "/api/top-corp-info?symbol=" + queryEscape(symbol) + "&market=equities"
	if err := n.getJSON(ctx, path, &resp); err != nil {
		return nil, &NSEError{Op: "corporate info", Symbol: symbol, Err: err}
	}
	return &resp, nil
}

// PreOpen returns the pre-open market rows for all actively traded
// instruments. Rows without metadata are skipped.
func (n *NSE) PreOpen(ctx context.Context) ([]PreOpenRow, error) {
	var resp nsePreOpenResponse
	if err := n.getJSON(ctx, "/api/market-data-pre-open?key=ALL", &resp); err != nil {
		return nil, &NSEError{Op: "pre-open", Err: err}
	}
	rows := make([]PreOpenRow, 0, len(resp.Data))
	for _, d := range resp.Data {
		if d.Metadata == nil || d.Metadata.Symbol == "" {
			continue
		}
		rows = append(rows, *d.Metadata)
	}
	return rows, nil
}

// --- Internal helpers ---

// ensureCookies visits the NSE homepage to get session cookies.
// NSE requires valid cookies for API access.
func (n *NSE) ensureCookies(ctx context.Context) error {
	if n.cookieTTL <= 0 {
		return nil
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.now().Before(n.cookieExpiry) {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.baseURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", DefaultUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch NSE homepage for cookies: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body) //nolint:errcheck // drain body

	n.cookieExpiry = n.now().Add(n.cookieTTL)
	n.log.Debug("refreshed NSE session cookies")
	return nil
}

// getJSON performs a GET request to the NSE API with proper headers and
// decodes the body into out.
func (n *NSE) getJSON(ctx context.Context, path string, out any) error {
	if err := n.ensureCookies(ctx); err != nil {
		return fmt.Errorf("cookie refresh: %w", err)
	}
	data, err := doGet(ctx, n.client, n.limiter, n.baseURL+path, map[string]string{
		"Accept":           "application/json",
		"Referer":          n.baseURL,
		"X-Requested-With": "XMLHttpRequest",
	})
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}

// queryEscape escapes a query value with %20 for spaces, the form NSE expects.
func queryEscape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
