package utils

import (
	"strings"
)

// Common shorthand that users type instead of the listed NSE symbol.
var tickerAliases = map[string]string{
	"RIL":           "RELIANCE",
	"INFOSYS":       "INFY",
	"HDFC BANK":     "HDFCBANK",
	"ICICI BANK":    "ICICIBANK",
	"SBI":           "SBIN",
	"AIRTEL":        "BHARTIARTL",
	"BAJAJ FIN":     "BAJFINANCE",
	"L&T":           "LT",
	"TATA MOTORS":   "TATAMOTORS",
	"TATA STEEL":    "TATASTEEL",
	"HCL TECH":      "HCLTECH",
	"KOTAK":         "KOTAKBANK",
	"AXIS BANK":     "AXISBANK",
	"SUN PHARMA":    "SUNPHARMA",
	"ASIAN PAINTS":  "ASIANPAINT",
	"NESTLE":        "NESTLEIND",
	"ULTRATECH":     "ULTRACEMCO",
	"TECH MAHINDRA": "TECHM",
	"MAHINDRA":      "M&M",
	"HUL":           "HINDUNILVR",
	"COAL INDIA":    "COALINDIA",
}

// Yahoo symbols for NSE index names.
var yahooIndexSymbols = map[string]string{
	"NIFTY 50":             "^NSEI",
	"NIFTY BANK":           "^NSEBANK",
	"NIFTY IT":             "^CNXIT",
	"NIFTY AUTO":           "^CNXAUTO",
	"NIFTY PHARMA":         "^CNXPHARMA",
	"NIFTY METAL":          "^CNXMETAL",
	"NIFTY FMCG":           "^CNXFMCG",
	"NIFTY REALTY":         "^CNXREALTY",
	"NIFTY ENERGY":         "^CNXENERGY",
	"NIFTY INFRASTRUCTURE": "^CNXINFRA",
	"NIFTY MEDIA":          "^CNXMEDIA",
	"INDIA VIX":            "^INDIAVIX",
}

// NormalizeSymbol canonicalises an exchange symbol: trimmed, upper-cased,
// without a leading "$" or an exchange suffix.
func NormalizeSymbol(symbol string) string {
	symbol = strings.TrimSpace(strings.ToUpper(symbol))
	symbol = strings.TrimPrefix(symbol, "$")
	return FromYFinanceTicker(symbol)
}

// NormalizeTicker normalizes user input to the canonical NSE symbol,
// resolving common aliases.
func NormalizeTicker(ticker string) string {
	ticker = NormalizeSymbol(ticker)
	if canonical, ok := tickerAliases[ticker]; ok {
		return canonical
	}
	return ticker
}

// ToYFinanceTicker converts an NSE symbol or index name to Yahoo Finance
// format. Symbols already in Yahoo form ("^NSEI", "TCS.NS") pass through.
func ToYFinanceTicker(ticker string) string {
	ticker = strings.TrimSpace(strings.ToUpper(ticker))
	if strings.HasPrefix(ticker, "^") || strings.HasSuffix(ticker, ".NS") || strings.HasSuffix(ticker, ".BO") {
		return ticker
	}
	if sym, ok := yahooIndexSymbols[ticker]; ok {
		return sym
	}
	return NormalizeSymbol(ticker) + ".NS"
}

// FromYFinanceTicker strips the .NS or .BO suffix to get the NSE/BSE ticker.
func FromYFinanceTicker(yfTicker string) string {
	yfTicker = strings.TrimSuffix(yfTicker, ".NS")
	yfTicker = strings.TrimSuffix(yfTicker, ".BO")
	return yfTicker
}
