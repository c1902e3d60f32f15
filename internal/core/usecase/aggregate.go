package usecase

import (
	"fmt"

	"github.com/docverity/docverity/internal/core/domain"
)

const (
	reasonAccepted        = "PR Card Check confidence is higher than the threshold."
	reasonLowConfidence   = "PR Card Keyword found confidence is lower than the threshold."
	reasonHandwritten     = "Very little structured text; likely hand-written note"
	reasonNameMismatch    = "Extracted name does not match the claimed full name."
	reasonIDMismatch      = "Extracted PR No. does not match user input."
	reasonNameUnextracted = "No name field could be extracted for the identity check."
	reasonIDUnextracted   = "No document number could be extracted for the identity check."
)

func reasonDriversLicense(score float64) string {
	return fmt.Sprintf("Driver’s licence cues (score=%.2f)", score)
}

type decisionInput struct {
	Classification classification
	Match          domain.IdentityMatch
	Claim          domain.IdentityClaim
	LowQuality     bool
	RawText        []string
	Extracted      map[string]string
}

type thresholds struct {
	PRCard         float64
	DriversLicense float64

	// UnreadableCeiling caps the confidence of the unreadable-upload
	// outcome so it can never look like a near-acceptance.
	UnreadableCeiling float64
}

// aggregate turns the scored hypotheses into the final decision. The policy
// is ordered and the first applicable rule wins:
//
//  1. unreadable upload (insufficient text or degenerate image)
//  2. a rejected alternate document clears its own threshold and outscores
//     the document of interest
//  3. document-of-interest score below the acceptance threshold
//  4. score clears the threshold but the extracted identity contradicts
//     the claim
//  5. accepted
//
// Confidence is always the top-ranked hypothesis's score except in rules 3
// and 4, where it is the document of interest's own score. A mismatch is
// reported, never used to zero the confidence: the document may be genuine,
// just unverified against this registrant.
func aggregate(in decisionInput, th thresholds) *domain.IdentificationResult {
	cls := in.Classification
	result := &domain.IdentificationResult{
		DocType:   cls.Ranked,
		RawText:   in.RawText,
		Extracted: in.Extracted,
	}
	if result.RawText == nil {
		result.RawText = []string{}
	}

	prScore := cls.Scores[domain.DocTypePRCard]
	dlScore := cls.Scores[domain.DocTypeDriversLicense]

	// 1. Nothing readable.
	if cls.InsufficientText || in.LowQuality {
		result.Confidence = cls.Scores[cls.Ranked[0]]
		if result.Confidence > th.UnreadableCeiling {
			result.Confidence = th.UnreadableCeiling
		}
		result.Reasons = []string{reasonHandwritten}
		return result
	}

	// 2. A different document was uploaded.
	if dlScore >= th.DriversLicense && dlScore > prScore {
		result.Confidence = cls.Scores[cls.Ranked[0]]
		result.Reasons = []string{reasonDriversLicense(dlScore)}
		return result
	}

	// 3. Not enough evidence for the document of interest. A very short
	// reading with no strong cues is the hand-written-note category rather
	// than "some other document".
	if prScore < th.PRCard {
		result.Confidence = prScore
		if looksHandwritten(in.RawText) {
			result.Reasons = []string{reasonHandwritten}
		} else {
			result.Reasons = []string{reasonLowConfidence}
		}
		return result
	}

	// 4. Document accepted but identity contradicts the claim.
	result.Confidence = prScore
	var identityReasons []string
	if !in.Claim.IsZero() {
		if in.Claim.FullName != "" {
			switch {
			case in.Match.ExtractedName == "":
				identityReasons = append(identityReasons, reasonNameUnextracted)
			case !in.Match.NameMatched:
				result.Reasons = append(result.Reasons, reasonNameMismatch)
			}
		}
		if in.Claim.IDNumber != "" {
			switch {
			case in.Match.ExtractedID == "":
				identityReasons = append(identityReasons, reasonIDUnextracted)
			case !in.Match.IDMatched:
				result.Reasons = append(result.Reasons, reasonIDMismatch)
			}
		}
	}
	if len(result.Reasons) > 0 {
		result.Reasons = append(result.Reasons, identityReasons...)
		return result
	}

	// 5. Accepted.
	result.IsValid = true
	result.Reasons = append([]string{reasonAccepted}, identityReasons...)
	return result
}

// looksHandwritten flags readings too small to be machine-printed card
// text: a dozen words or fewer adding up to under sixty characters.
func looksHandwritten(lines []string) bool {
	return tokenCount(lines) <= 12 && charCount(lines) < 60
}
