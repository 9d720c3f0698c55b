package engine

import "github.com/seenimoa/bazaar/internal/refcache"

// Sector is a tracked sector index: the NSE name used in the live snapshot
// and the Yahoo symbol used for history.
type Sector struct {
	Name        string
	NSEIndex    string
	YahooSymbol string
}

// Sectors is the tracked sector universe in display order.
var Sectors = []Sector{
	{Name: "IT", NSEIndex: "NIFTY IT", YahooSymbol: "^CNXIT"},
	{Name: "Bank", NSEIndex: "NIFTY BANK", YahooSymbol: "^NSEBANK"},
	{Name: "Auto", NSEIndex: "NIFTY AUTO", YahooSymbol: "^CNXAUTO"},
	{Name: "Pharma", NSEIndex: "NIFTY PHARMA", YahooSymbol: "^CNXPHARMA"},
	{Name: "Metal", NSEIndex: "NIFTY METAL", YahooSymbol: "^CNXMETAL"},
	{Name: "FMCG", NSEIndex: "NIFTY FMCG", YahooSymbol: "^CNXFMCG"},
	{Name: "Realty", NSEIndex: "NIFTY REALTY", YahooSymbol: "^CNXREALTY"},
	{Name: "Energy", NSEIndex: "NIFTY ENERGY", YahooSymbol: "^CNXENERGY"},
	{Name: "Infra", NSEIndex: "NIFTY INFRASTRUCTURE", YahooSymbol: "^CNXINFRA"},
	{Name: "Media", NSEIndex: "NIFTY MEDIA", YahooSymbol: "^CNXMEDIA"},
}

// VIXIndex is the NSE name of the volatility index.
const VIXIndex = "INDIA VIX"

// SnapshotIndices are the indices included in a market snapshot.
func SnapshotIndices() []refcache.Index {
	return refcache.TrackedIndices
}
