package usecase

import (
	"sort"

	"github.com/docverity/docverity/internal/core/domain"
)

// cardBorderBonus is added to card-shaped hypotheses when the structural
// analysis found a rectangular frame. No hypothesis is ever penalized.
const cardBorderBonus = 0.08

type classification struct {
	Scores           domain.CueScores
	Hits             []cueHit
	Ranked           []domain.DocType
	InsufficientText bool
}

// classifyLines scores every hypothesis against the normalized text and the
// structural signals. A reading with fewer tokens than minTokens is flagged
// as insufficient and all scores are capped at ceiling, keeping "nothing to
// read" distinct from "clearly some other document".
func classifyLines(table *cueTable, lines []string, signals domain.ImageSignals, minTokens int, ceiling float64) classification {
	scores, hits := table.score(lines)

	if signals.HasCardBorder {
		for _, docType := range []domain.DocType{domain.DocTypePRCard, domain.DocTypeDriversLicense} {
			if s, ok := scores[docType]; ok {
				scores[docType] = capScore(s + cardBorderBonus)
			}
		}
	}

	insufficient := tokenCount(lines) < minTokens
	if insufficient {
		for docType, s := range scores {
			if s > ceiling {
				scores[docType] = ceiling
			}
		}
	}

	return classification{
		Scores:           scores,
		Hits:             hits,
		Ranked:           rankHypotheses(scores),
		InsufficientText: insufficient,
	}
}

// rankHypotheses orders hypotheses by descending score; ties go to the
// document of interest first.
func rankHypotheses(scores domain.CueScores) []domain.DocType {
	ranked := make([]domain.DocType, 0, len(scores))
	for docType := range scores {
		ranked = append(ranked, docType)
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if scores[ranked[i]] != scores[ranked[j]] {
			return scores[ranked[i]] > scores[ranked[j]]
		}
		return domain.HypothesisPriority(ranked[i]) < domain.HypothesisPriority(ranked[j])
	})
	return ranked
}

func capScore(s float64) float64 {
	if s > 1 {
		return 1
	}
	return s
}
