package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/docverity/docverity/internal/core/domain"
	"github.com/docverity/docverity/internal/core/ports"
)

// IdentifyConfig carries the tunable decision knobs. The insufficient-text
// floor and the acceptance threshold are independent values: they drive two
// different review outcomes.
type IdentifyConfig struct {
	MinTokens               int
	InsufficientTextCeiling float64
	PRCardThreshold         float64
	DriversLicenseThreshold float64
	NameMatchThreshold      float64
}

// IdentifyDocumentUseCase runs the full pipeline for one image: load,
// structural analysis, OCR, normalization, cue scoring, identity matching,
// and the final decision. It holds no cross-call state; concurrent calls
// are independent.
type IdentifyDocumentUseCase struct {
	loader   ports.ImageLoader
	analyzer ports.ImageAnalyzer
	ocr      ports.OCREngine
	table    *cueTable
	cfg      IdentifyConfig
	logger   *slog.Logger
}

func NewIdentifyDocumentUseCase(
	loader ports.ImageLoader,
	analyzer ports.ImageAnalyzer,
	ocr ports.OCREngine,
	cfg IdentifyConfig,
	logger *slog.Logger,
) (*IdentifyDocumentUseCase, error) {
	table, err := loadCueTable()
	if err != nil {
		return nil, fmt.Errorf("load cue table: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &IdentifyDocumentUseCase{
		loader:   loader,
		analyzer: analyzer,
		ocr:      ocr,
		table:    table,
		cfg:      cfg,
		logger:   logger,
	}, nil
}

// Identify decides what the referenced image is and whether it corroborates
// the claim. Fetch and decode failures abort the call; an unavailable OCR
// stack degrades to an empty reading and a low-confidence decision.
func (uc *IdentifyDocumentUseCase) Identify(ctx context.Context, ref domain.ImageRef, claim domain.IdentityClaim) (*domain.IdentificationResult, error) {
	img, err := uc.loader.Load(ctx, ref)
	if err != nil {
		return nil, err
	}

	signals := uc.analyzer.Analyze(img)

	text, err := uc.ocr.Recognize(ctx, img)
	if err != nil {
		if !domain.IsKind(err, domain.ErrOCRUnavailable) {
			return nil, err
		}
		uc.logger.Warn("ocr_unavailable", "source", img.Source, "error", err)
		text = domain.OCRText{}
	}

	lines := normalizeLines(text.Lines)
	cls := classifyLines(uc.table, lines, signals, uc.cfg.MinTokens, uc.cfg.InsufficientTextCeiling)
	match := matchIdentity(lines, claim, uc.cfg.NameMatchThreshold)

	result := aggregate(decisionInput{
		Classification: cls,
		Match:          match,
		Claim:          claim,
		LowQuality:     signals.LowQuality,
		RawText:        lines,
		Extracted:      extractFields(lines, match),
	}, thresholds{
		PRCard:            uc.cfg.PRCardThreshold,
		DriversLicense:    uc.cfg.DriversLicenseThreshold,
		UnreadableCeiling: uc.cfg.InsufficientTextCeiling,
	})

	uc.logger.Info("document_identified",
		"source", img.Source,
		"engine", text.Engine,
		"doc_type", result.DocType[0],
		"is_valid", result.IsValid,
		"confidence", result.Confidence,
		"lines", len(lines),
	)
	return result, nil
}
