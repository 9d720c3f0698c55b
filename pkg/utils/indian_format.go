// Package utils holds IST clock helpers, the NSE trading-window policy,
// symbol normalisation and Indian number formatting.
package utils

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// FormatINR formats a number in Indian Rupee format (₹12,34,567.89).
// Uses the Indian numbering system: last 3 digits, then groups of 2.
func FormatINR(amount float64) string {
	prefix := "₹"
	if amount < 0 {
		prefix = "-₹"
	}
	paise := int64(math.Round(math.Abs(amount) * 100))
	return fmt.Sprintf("%s%s.%02d", prefix, groupIndian(paise/100), paise%100)
}

// FormatINRCompact formats a number in compact Indian notation.
// e.g., 1927345 → "₹19.27 L", 192734500000 → "₹19273.45 Cr"
func FormatINRCompact(amount float64) string {
	prefix := "₹"
	if amount < 0 {
		prefix = "-₹"
	}
	amount = math.Abs(amount)

	switch {
	case amount >= 1e12:
		return prefix + trimDecimals(amount/1e12) + " L Cr"
	case amount >= 1e7:
		return prefix + trimDecimals(amount/1e7) + " Cr"
	case amount >= 1e5:
		return prefix + trimDecimals(amount/1e5) + " L"
	case amount >= 1e3:
		return prefix + trimDecimals(amount/1e3) + " K"
	default:
		return fmt.Sprintf("%s%.2f", prefix, amount)
	}
}

// FormatPct formats a percentage value with sign and suffix.
// e.g., 2.45 → "+2.45%", -1.23 → "-1.23%"
func FormatPct(pct float64) string {
	if pct >= 0 {
		return fmt.Sprintf("+%.2f%%", pct)
	}
	return fmt.Sprintf("%.2f%%", pct)
}

// FormatVolume formats volume in human-readable Indian format.
// e.g., 1500000 → "15.00 L", 25000000 → "2.50 Cr"
func FormatVolume(volume int64) string {
	v := float64(volume)
	switch {
	case v >= 1e7:
		return fmt.Sprintf("%.2f Cr", v/1e7)
	case v >= 1e5:
		return fmt.Sprintf("%.2f L", v/1e5)
	case v >= 1e3:
		return fmt.Sprintf("%.2f K", v/1e3)
	default:
		return strconv.FormatInt(volume, 10)
	}
}

// FormatOptional renders an optional value with format, or "N/A" when nil.
func FormatOptional(v *float64, format func(float64) string) string {
	if v == nil {
		return "N/A"
	}
	return format(*v)
}

// FormatRatio renders a plain ratio with two decimals.
func FormatRatio(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func groupIndian(n int64) string {
	s := strconv.FormatInt(n, 10)
	if len(s) <= 3 {
		return s
	}
	head, tail := s[:len(s)-3], s[len(s)-3:]
	var groups []string
	for len(head) > 2 {
		groups = append([]string{head[len(head)-2:]}, groups...)
		head = head[:len(head)-2]
	}
	if head != "" {
		groups = append([]string{head}, groups...)
	}
	return strings.Join(append(groups, tail), ",")
}

func trimDecimals(n float64) string {
	s := fmt.Sprintf("%.2f", n)
	s = strings.TrimRight(s, "0")
	return strings.TrimRight(s, ".")
}
