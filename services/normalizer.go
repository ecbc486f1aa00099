package services

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"report-tables/models"
)

var (
	// cellNumberRegexp admits shapes like "-1,234.5" and "12%". A sign
	// separated by spaces passes here but fails ParseFloat, so "- 3" is Missing.
	cellNumberRegexp = regexp.MustCompile(`^-?\s*[\d,]+(?:\.\d+)?\s*%?$`)
	// plainNumberRegexp is what a time axis value may look like.
	plainNumberRegexp = regexp.MustCompile(`^[+-]?(?:\d+(?:\.\d*)?|\.\d+)(?:[eE][+-]?\d+)?$`)
)

// NormalizeCell converts one raw cell into a number. Thousands separators are
// dropped and a trailing % divides by 100 and sets IsPercent. Anything that
// does not match the number pattern end to end is models.Missing.
func NormalizeCell(text string) models.NumericValue {
	s := strings.TrimSpace(text)
	if s == "" || !cellNumberRegexp.MatchString(s) {
		return models.Missing
	}

	isPct := strings.HasSuffix(s, "%")
	s = strings.ReplaceAll(s, "%", "")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)

	val, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(val, 0) || math.IsNaN(val) {
		return models.Missing
	}
	if isPct {
		return models.NumericValue{Value: val / 100.0, Valid: true, IsPercent: true}
	}
	return models.NumericValue{Value: val, Valid: true}
}

// ParseTimeValue parses a time axis cell as a plain number: no separators,
// no percent sign.
func ParseTimeValue(text string) (float64, bool) {
	s := strings.TrimSpace(text)
	if !plainNumberRegexp.MatchString(s) {
		return 0, false
	}
	val, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(val, 0) {
		return 0, false
	}
	return val, true
}

// parseYearHeader reports whether a column name is an integer year within
// [lo, hi] and returns it.
func parseYearHeader(name string, lo, hi int) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(name))
	if err != nil {
		return 0, false
	}
	return n, n >= lo && n <= hi
}
