package feed

import (
	"strings"
	"unicode"
)

// StripArtifacts removes U+FFFD replacement characters and non-printable
// runes left behind by the legacy encoding, then trims surrounding space.
// Both feed values and outbound free-text fields go through this so that
// business-key lookups never miss on encoding artifacts.
func StripArtifacts(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r == '�' {
			continue
		}
		if !unicode.IsPrint(r) && r != ' ' {
			continue
		}
		b.WriteRune(r)
	}
	return strings.TrimSpace(b.String())
}

// CleanField normalizes one raw feed column: artifact stripping plus removal
// of stray quote characters carried over from the export.
func CleanField(s string) string {
	s = strings.ReplaceAll(s, `"`, "")
	return StripArtifacts(s)
}

// NormalizeKey normalizes a business key (barcode or product code) with the
// same rules applied to feed values, so index lookups are exact.
func NormalizeKey(s string) string {
	return StripArtifacts(s)
}

// TruncateRunes shortens s to at most n runes.
func TruncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
