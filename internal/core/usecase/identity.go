package usecase

import (
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/agext/levenshtein"

	"github.com/docverity/docverity/internal/core/domain"
)

var (
	prIDPattern  = regexp.MustCompile(`\b\d{4}-\d{4}\b`)
	uciPattern   = regexp.MustCompile(`\b\d{2}-\d{4}-\d{4}\b`)
	dlIDPattern  = regexp.MustCompile(`\b[a-z]\d{4}-\d{5}-\d{5}\b`)
	datePattern  = regexp.MustCompile(`\b\d{4}[/-]\d{2}[/-]\d{2}\b`)
	digitPattern = regexp.MustCompile(`\d`)
)

// nameLabels are field captions on the card itself; the line after (or the
// remainder of) a label line is the strongest name candidate.
var nameLabels = []string{"name", "nom", "full name", "surname", "given name", "nom complet"}

// nameStopwords mark lines that are card boilerplate rather than a holder
// name, used by the alpha-ratio fallback.
var nameStopwords = map[string]struct{}{
	"canada": {}, "resident": {}, "permanent": {}, "card": {}, "carte": {},
	"government": {}, "gouvernement": {}, "govemment": {}, "goverment": {},
	"immigration": {}, "citizenship": {},
	"driver": {}, "licence": {}, "license": {}, "class": {}, "expiry": {},
	"birth": {}, "sex": {}, "height": {}, "id": {},
}

// matchIdentity compares what the document says against the registrant's
// claim. Name comparison is fuzzy and word-order-insensitive to absorb OCR
// noise and "Surname, Given" layouts; ID comparison is exact once dashes
// and spaces are removed. An absent extraction leaves the corresponding
// matched flag false without being treated as a contradiction.
func matchIdentity(lines []string, claim domain.IdentityClaim, threshold float64) domain.IdentityMatch {
	match := domain.IdentityMatch{
		ExtractedName: extractName(lines),
		ExtractedID:   extractIDToken(lines),
	}
	if claim.IsZero() {
		return match
	}

	if claim.FullName != "" && match.ExtractedName != "" {
		claimed := normalizeLine(claim.FullName)
		match.NameMatched = nameSimilarity(match.ExtractedName, claimed) >= threshold
	}
	if claim.IDNumber != "" && match.ExtractedID != "" {
		match.IDMatched = stripSeparators(match.ExtractedID) == stripSeparators(normalizeLine(claim.IDNumber))
	}
	return match
}

// extractName scans normalized lines for the document holder's name: first
// the remainder or follower of a field label, then the line that looks most
// like a bare name (all-alphabetic, no boilerplate words).
func extractName(lines []string) string {
	for i, line := range lines {
		for _, label := range nameLabels {
			if line == label {
				if next := nextNameLike(lines, i+1); next != "" {
					return next
				}
			}
			if rest, ok := strings.CutPrefix(line, label+" "); ok && isNameLike(rest) {
				return rest
			}
		}
	}

	best := ""
	bestRatio := 0.0
	for _, line := range lines {
		if !isNameLike(line) {
			continue
		}
		ratio := alphaRatio(line)
		if ratio > bestRatio {
			best = line
			bestRatio = ratio
		}
	}
	return best
}

func nextNameLike(lines []string, from int) string {
	for _, line := range lines[min(from, len(lines)):] {
		if isNameLike(line) {
			return line
		}
	}
	return ""
}

// isNameLike accepts short all-alphabetic lines free of boilerplate words.
func isNameLike(line string) bool {
	tokens := strings.Fields(line)
	if len(tokens) < 2 || len(tokens) > 4 {
		return false
	}
	for _, tok := range tokens {
		if digitPattern.MatchString(tok) {
			return false
		}
		if _, stop := nameStopwords[tok]; stop {
			return false
		}
	}
	return true
}

func alphaRatio(line string) float64 {
	total, alpha := 0, 0
	for _, r := range line {
		if r == ' ' {
			continue
		}
		total++
		if unicode.IsLetter(r) {
			alpha++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(alpha) / float64(total)
}

// nameSimilarity compares two normalized names independent of word order:
// "doe jane" and "jane doe" are the same person.
func nameSimilarity(a, b string) float64 {
	return levenshtein.Similarity(sortTokens(a), sortTokens(b), nil)
}

func sortTokens(s string) string {
	tokens := strings.Fields(s)
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}

// extractIDToken returns the best document-number candidate in the text.
func extractIDToken(lines []string) string {
	text := strings.Join(lines, " ")
	if id := prIDPattern.FindString(text); id != "" {
		return id
	}
	return dlIDPattern.FindString(text)
}

func stripSeparators(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '-' || r == ' ' {
			return -1
		}
		return r
	}, s)
}

// extractFields pulls every recognizable field out of the text for the
// audit payload. Only present fields appear in the map.
func extractFields(lines []string, match domain.IdentityMatch) map[string]string {
	fields := make(map[string]string)
	if match.ExtractedName != "" {
		fields["name"] = match.ExtractedName
	}
	if match.ExtractedID != "" {
		fields["id_number"] = match.ExtractedID
	}

	text := strings.Join(lines, " ")
	if uci := uciPattern.FindString(text); uci != "" {
		fields["uci"] = uci
	}
	if dl := dlIDPattern.FindString(text); dl != "" {
		fields["dl_number"] = dl
	}
	if dates := datePattern.FindAllString(text, 2); len(dates) > 0 {
		fields["date_1"] = dates[0]
		if len(dates) > 1 {
			fields["date_2"] = dates[1]
		}
	}
	if len(fields) == 0 {
		return nil
	}
	return fields
}
