package utils // package utils provides small text helpers shared by the file readers

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// FoldKey lower-cases s and drops accents, spaces, underscores and dashes,
// so "Localização", "range_start" and "Range Start" compare equal to
// "localizacao", "rangestart" and "rangestart".  A leading UTF-8 byte order
// mark is also removed.
func FoldKey(s string) string {
	s = strings.TrimPrefix(s, "\ufeff")
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	out = strings.ToLower(strings.TrimSpace(out))
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '_', '-':
			return -1
		}
		return r
	}, out)
}

// FindColumn returns the index of the first header cell whose folded form
// equals one of aliases, or -1.  Aliases must already be folded.
func FindColumn(header []string, aliases ...string) int {
	for i, h := range header {
		folded := FoldKey(h)
		for _, a := range aliases {
			if folded == a {
				return i
			}
		}
	}
	return -1
}

// Cell returns row[col], or "" when the row is short or col is negative.
func Cell(row []string, col int) string {
	if col >= 0 && col < len(row) {
		return row[col]
	}
	return ""
}

// IsBlankRow reports whether every cell of row is empty or whitespace.
func IsBlankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
