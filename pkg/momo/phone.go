package momo

import (
	"regexp"
	"strings"
)

// South Sudan numbering: +211 country code, mobile prefixes by operator.
const countryCode = "+211"

var (
	mobilePattern = regexp.MustCompile(`^\+211(91|92|95|97)\d{7}$`)
	nonDigit      = regexp.MustCompile(`[^\d+]`)
)

// Normalize converts a raw subscriber number to canonical +211 form.
// "0912345678" becomes "+211912345678"; already-canonical input is returned
// unchanged apart from formatting characters.
func Normalize(raw string) string {
	n := nonDigit.ReplaceAllString(strings.TrimSpace(raw), "")

	switch {
	case strings.HasPrefix(n, countryCode):
		return n
	case strings.HasPrefix(n, "211"):
		return "+" + n
	case strings.HasPrefix(n, "0"):
		return countryCode + n[1:]
	default:
		return countryCode + n
	}
}

// ValidateNumber reports whether the number normalizes to a recognized
// mobile-money MSISDN.
func ValidateNumber(raw string) bool {
	return mobilePattern.MatchString(Normalize(raw))
}
