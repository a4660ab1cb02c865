// Package phone provides phone number utilities.
// This is part of the platform layer and contains no business logic.
package phone

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// RegionUnknown is the sentinel region code for phones with fewer than
// two digits.
const RegionUnknown = "XX"

// countryPrefix is the international prefix that receives special
// treatment during region derivation. Other prefixes deliberately do not.
const countryPrefix = "55"

// Digits strips every non-digit character from the input.
func Digits(input string) string {
	var b strings.Builder
	b.Grow(len(input))
	for _, r := range input {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Region derives the two-digit region code from a raw phone string:
//
//	11 digits                  -> first two digits
//	13 digits starting "55"    -> digits three and four
//	at least 2 digits          -> first two digits
//	otherwise                  -> RegionUnknown
//
// The result is derived once at contact creation and never recomputed.
func Region(rawPhone string) string {
	digits := Digits(rawPhone)
	switch {
	case len(digits) == 11:
		return digits[:2]
	case len(digits) == 13 && strings.HasPrefix(digits, countryPrefix):
		return digits[2:4]
	case len(digits) >= 2:
		return digits[:2]
	default:
		return RegionUnknown
	}
}

// NormalizeE164 formats a phone number to E.164 for the given default
// region. If parsing fails, it returns the trimmed input.
func NormalizeE164(input, defaultRegion string) string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return trimmed
	}

	number, err := phonenumbers.Parse(trimmed, defaultRegion)
	if err != nil {
		return trimmed
	}

	if !phonenumbers.IsValidNumber(number) {
		return trimmed
	}

	return phonenumbers.Format(number, phonenumbers.E164)
}
