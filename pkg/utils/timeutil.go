package utils

import (
	"time"
)

// IST is the Indian Standard Time location (UTC+5:30).
var IST *time.Location

func init() {
	var err error
	IST, err = time.LoadLocation("Asia/Kolkata")
	if err != nil {
		// No tz database on the host.
		IST = time.FixedZone("IST", 5*60*60+30*60)
	}
}

// Trading window, minutes after midnight IST. Both ends are inclusive.
const (
	marketOpenMinute  = 9*60 + 15
	marketCloseMinute = 15*60 + 30
)

// NowIST returns the current time in IST.
func NowIST() time.Time {
	return time.Now().In(IST)
}

// ToIST converts a time.Time to IST.
func ToIST(t time.Time) time.Time {
	return t.In(IST)
}

// MarketOpenTime returns the NSE opening time (09:15 IST) for the given date.
func MarketOpenTime(date time.Time) time.Time {
	d := date.In(IST)
	return time.Date(d.Year(), d.Month(), d.Day(), 9, 15, 0, 0, IST)
}

// MarketCloseTime returns the NSE closing time (15:30 IST) for the given date.
func MarketCloseTime(date time.Time) time.Time {
	d := date.In(IST)
	return time.Date(d.Year(), d.Month(), d.Day(), 15, 30, 0, 0, IST)
}

// IsMarketOpenAt reports whether t falls on a weekday between 09:15 and
// 15:30 IST at minute resolution, so 15:30:59 still counts as open.
// Exchange holidays are not consulted.
func IsMarketOpenAt(t time.Time) bool {
	t = t.In(IST)
	if t.Weekday() == time.Saturday || t.Weekday() == time.Sunday {
		return false
	}
	m := t.Hour()*60 + t.Minute()
	return m >= marketOpenMinute && m <= marketCloseMinute
}

// MarketSessionAt returns a human-readable session label for t, used by the
// CLI status output.
func MarketSessionAt(t time.Time) string {
	t = t.In(IST)
	switch {
	case t.Weekday() == time.Saturday || t.Weekday() == time.Sunday:
		return "CLOSED (Weekend)"
	case IsMarketOpenAt(t):
		return "OPEN"
	case t.Hour()*60+t.Minute() < marketOpenMinute:
		return "PRE-MARKET"
	default:
		return "CLOSED"
	}
}

// FormatDateIST formats a time.Time to "2006-01-02" in IST.
func FormatDateIST(t time.Time) string {
	return t.In(IST).Format("2006-01-02")
}

// FormatDateTimeIST formats a time.Time to "2006-01-02 15:04:05 IST".
func FormatDateTimeIST(t time.Time) string {
	return t.In(IST).Format("2006-01-02 15:04:05 IST")
}
