package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Period selects the lookback window of a request.
type Period string

const (
	PeriodIntraday  Period = "intraday"
	PeriodWeek      Period = "week"
	PeriodMonth     Period = "month"
	PeriodSixMonths Period = "6months"
	PeriodYear      Period = "year"
)

// ErrInvalidPeriod is returned by ParsePeriod for unrecognised input.
var ErrInvalidPeriod = errors.New("invalid period")

var periodAliases = map[string]Period{
	"intraday": PeriodIntraday,
	"1d":       PeriodIntraday,
	"week":     PeriodWeek,
	"1week":    PeriodWeek,
	"1w":       PeriodWeek,
	"month":    PeriodMonth,
	"1month":   PeriodMonth,
	"1m":       PeriodMonth,
	"6months":  PeriodSixMonths,
	"6m":       PeriodSixMonths,
	"year":     PeriodYear,
	"1year":    PeriodYear,
	"1y":       PeriodYear,
}

// ParsePeriod accepts both the canonical names and the UI spellings
// ("1D", "1Week", "1Month", "6Months", "1Year"). Empty input means intraday.
func ParsePeriod(s string) (Period, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return PeriodIntraday, nil
	}
	if p, ok := periodAliases[s]; ok {
		return p, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidPeriod, s)
}

// IsIntraday reports whether the period is served from the live snapshot.
func (p Period) IsIntraday() bool { return p == PeriodIntraday }

// LookbackDays returns the length of the historical window in days.
func (p Period) LookbackDays() int {
	switch p {
	case PeriodWeek:
		return 7
	case PeriodMonth:
		return 30
	case PeriodSixMonths:
		return 180
	case PeriodYear:
		return 365
	default:
		return 1
	}
}

// Window returns the [from, to] range ending at now.
func (p Period) Window(now time.Time) (time.Time, time.Time) {
	return now.AddDate(0, 0, -p.LookbackDays()), now
}

// Interval returns the bar granularity used for chart series.
func (p Period) Interval() string {
	if p == PeriodIntraday {
		return "1h"
	}
	return "1d"
}

// LabelLayout returns the time layout for chart labels.
func (p Period) LabelLayout() string {
	switch p {
	case PeriodIntraday:
		return "15:04"
	case PeriodWeek:
		return "Mon 2"
	default:
		return "Jan 2"
	}
}
