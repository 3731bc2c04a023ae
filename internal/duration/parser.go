// Package duration parses the human durations used in reminder requests,
// such as "3 days", "2weeks" or "90min".
package duration

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	day   = 24 * time.Hour
	week  = 7 * day
	month = 2_630_016 * time.Second  // 30.44 days
	year  = 31_557_600 * time.Second // 365.25 days
)

var units = map[string]time.Duration{
	"s": time.Second, "sec": time.Second, "secs": time.Second, "second": time.Second, "seconds": time.Second,
	"m": time.Minute, "min": time.Minute, "mins": time.Minute, "minute": time.Minute, "minutes": time.Minute,
	"h": time.Hour, "hr": time.Hour, "hrs": time.Hour, "hour": time.Hour, "hours": time.Hour,
	"d": day, "day": day, "days": day,
	"w": week, "wk": week, "wks": week, "week": week, "weeks": week,
	"month": month, "months": month,
	"y": year, "yr": year, "yrs": year, "year": year, "years": year,
}

// "M" is months and "m" is minutes; every other unit ignores case.
var caseSensitiveUnits = map[string]time.Duration{
	"M": month,
}

var tokenPattern = regexp.MustCompile(`^(\d+)([A-Za-z]+)$`)

// ParseError reports text that is not a positive "<int><unit>" duration.
type ParseError struct {
	Text   string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid duration %q: %s", e.Text, e.Reason)
}

// Parse converts text such as "3 days" into a strictly positive duration.
// All whitespace is removed before parsing.
func Parse(text string) (time.Duration, error) {
	compact := strings.Join(strings.Fields(text), "")
	if compact == "" {
		return 0, &ParseError{Text: text, Reason: "empty"}
	}

	m := tokenPattern.FindStringSubmatch(compact)
	if m == nil {
		return 0, &ParseError{Text: text, Reason: "expected <number><unit>"}
	}

	unit, ok := lookupUnit(m[2])
	if !ok {
		return 0, &ParseError{Text: text, Reason: fmt.Sprintf("unknown unit %q", m[2])}
	}

	n, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, &ParseError{Text: text, Reason: "magnitude out of range"}
	}
	if n <= 0 {
		return 0, &ParseError{Text: text, Reason: "must be positive"}
	}
	if n > math.MaxInt64/int64(unit) {
		return 0, &ParseError{Text: text, Reason: "magnitude out of range"}
	}

	return time.Duration(n) * unit, nil
}

func lookupUnit(name string) (time.Duration, bool) {
	if unit, ok := caseSensitiveUnits[name]; ok {
		return unit, true
	}
	unit, ok := units[strings.ToLower(name)]
	return unit, ok
}
