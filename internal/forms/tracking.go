package forms

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	prefixLength = 3
	// MaxTrackingCodeLength bounds the complaint number accepted by lookups.
	MaxTrackingCodeLength = 20
	minSequenceDigits     = 5
)

// Tracking codes are the type prefix plus the per-type sequence, zero-padded
// to five digits and growing past that when needed.
var trackingCodePattern = regexp.MustCompile(`^[A-Z]{3}\d{5,17}$`)

// LegacyTrackingCodePattern matches the timestamped codes older form handlers
// generated (PREFIX + yyyyMMdd-HHmmss-rrr). They are never issued and never
// accepted.
var LegacyTrackingCodePattern = regexp.MustCompile(`^[A-Z]{3}\d{8}-\d{6}-\d{3}$`)

// FormatTrackingCode renders the canonical code for a sequence value.
func FormatTrackingCode(prefix string, seq int64) string {
	return fmt.Sprintf("%s%0*d", prefix, minSequenceDigits, seq)
}

// NormalizeTrackingCode trims and upper-cases user input.
func NormalizeTrackingCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ValidTrackingCode checks the canonical shape against the built-in forms.
func ValidTrackingCode(code string) bool {
	return len(code) <= MaxTrackingCodeLength && builtin.ValidTrackingCode(code)
}
