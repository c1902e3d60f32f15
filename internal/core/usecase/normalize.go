package usecase

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stripMarks removes combining diacritics so "Résident" and "Resident"
// compare equal after OCR.
var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// normalizeLines canonicalizes OCR output for cue matching: lowercase,
// diacritics stripped, punctuation collapsed to spaces (hyphens survive
// because ID numbers carry them), runs of whitespace folded, empty lines
// dropped. The function is idempotent.
func normalizeLines(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if n := normalizeLine(line); n != "" {
			out = append(out, n)
		}
	}
	return out
}

func normalizeLine(line string) string {
	lowered := strings.ToLower(line)
	if stripped, _, err := transform.String(stripMarks, lowered); err == nil {
		lowered = stripped
	}

	var b strings.Builder
	b.Grow(len(lowered))
	for _, r := range lowered {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}

	return strings.Join(strings.Fields(b.String()), " ")
}

// tokenCount counts whitespace-separated tokens across all lines.
func tokenCount(lines []string) int {
	n := 0
	for _, line := range lines {
		n += len(strings.Fields(line))
	}
	return n
}

// charCount sums line lengths excluding spaces.
func charCount(lines []string) int {
	n := 0
	for _, line := range lines {
		for _, r := range line {
			if r != ' ' {
				n++
			}
		}
	}
	return n
}
