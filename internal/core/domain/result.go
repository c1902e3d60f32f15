package domain

// DocType is one candidate document-type hypothesis.
type DocType string

const (
	DocTypePRCard         DocType = "PR_CARD"
	DocTypeDriversLicense DocType = "DRIVERS_LICENSE"
	DocTypeOther          DocType = "OTHER"
)

// HypothesisPriority breaks score ties: the document of interest wins over
// rejected alternates, which win over the catch-all.
func HypothesisPriority(t DocType) int {
	switch t {
	case DocTypePRCard:
		return 0
	case DocTypeDriversLicense:
		return 1
	default:
		return 2
	}
}

// OCRText is what an OCR engine produced for one image: reading-order lines
// and the engine's self-reported confidence in [0,1]. Empty Lines is a
// valid state meaning no text was detected.
type OCRText struct {
	Lines      []string
	Confidence float64
	Engine     string
}

// CueScores maps every hypothesis to its match strength in [0,1]. All
// hypotheses are always present so reasons can cite runner-up matches.
type CueScores map[DocType]float64

// IdentificationResult is the engine's sole output.
//
// Confidence is monotonically derived: it never exceeds the winning
// hypothesis's cue score and is only ever lowered by contradicting
// evidence, never raised.
type IdentificationResult struct {
	DocType    []DocType         `json:"doc_type"`
	IsValid    bool              `json:"is_valid"`
	Confidence float64           `json:"confidence"`
	Reasons    []string          `json:"reasons"`
	RawText    []string          `json:"raw_text"`
	Extracted  map[string]string `json:"extracted,omitempty"`
}
