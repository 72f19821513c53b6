// Package strutil holds small string helpers shared by the config, keyer,
// and drill layers.
package strutil

import "strings"

// NormalizeUpper trims surrounding whitespace and upper-cases the rest.
// Drill charsets and generated callsign text are handled in upper case, the
// case the Morse table is keyed by.
func NormalizeUpper(value string) string {
	return strings.ToUpper(strings.TrimSpace(value))
}

// NormalizeLower trims surrounding whitespace and lower-cases the rest.
// Keyer mode names arriving from configuration or client frames are matched
// in lower case.
func NormalizeLower(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}
