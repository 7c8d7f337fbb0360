package media

import (
	"math"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// TimestampLayout is the second-resolution layout used in file and folder names.
const TimestampLayout = "2006-01-02_15-04-05"

// FormatTimestamp renders t in UTC using TimestampLayout.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// Sanitize strips every character that is not an ASCII letter, digit,
// '-', '_' or '.'. Accented letters are folded to their base letter first.
func Sanitize(s string) string {
	// transform.Chain is stateful, build one per call.
	fold := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if folded, _, err := transform.String(fold, s); err == nil {
		s = folded
	}

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if isSafeRune(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func isSafeRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '-', r == '_', r == '.':
		return true
	}
	return false
}

// BytesToMB converts a byte count to mebibytes rounded to three decimals.
func BytesToMB(b int64) float64 {
	if b <= 0 {
		return 0
	}
	return math.Round(float64(b)/1024/1024*1000) / 1000
}
