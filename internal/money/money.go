// Package money converts between decimal price strings and integer minor
// currency units. Amounts never pass through floating point.
package money

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidAmount is returned for strings that are not a non-negative
// decimal with at most two fractional digits.
var ErrInvalidAmount = errors.New("invalid amount")

// ParseCents parses "199", "199.5" or "199.00" into 19900-style minor units.
func ParseCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.HasPrefix(s, "-") || strings.HasPrefix(s, "+") {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}

	whole, frac, hasDot := strings.Cut(s, ".")
	if whole == "" || (hasDot && (frac == "" || len(frac) > 2)) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	for len(frac) < 2 {
		frac += "0"
	}

	units, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	cents, err := strconv.ParseInt(frac, 10, 64)
	if err != nil || cents < 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if units > (1<<63-1-cents)/100 {
		return 0, fmt.Errorf("%w: %q overflows", ErrInvalidAmount, s)
	}
	return units*100 + cents, nil
}

// Format renders minor units as a decimal string, e.g. 19900 -> "199.00".
func Format(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}

// Display renders an amount with its upper-cased currency code, e.g. "199.00 USD".
func Display(cents int64, currency string) string {
	return Format(cents) + " " + strings.ToUpper(currency)
}
