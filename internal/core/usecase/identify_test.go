package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"reflect"
	"strings"
	"testing"

	"github.com/docverity/docverity/internal/core/domain"
)

type loaderFake struct {
	img *domain.DocumentImage
	err error
}

func (f *loaderFake) Load(context.Context, domain.ImageRef) (*domain.DocumentImage, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.img, nil
}

type analyzerFake struct {
	signals domain.ImageSignals
}

func (f *analyzerFake) Analyze(*domain.DocumentImage) domain.ImageSignals { return f.signals }

type ocrFake struct {
	text domain.OCRText
	err  error
}

func (f *ocrFake) Name() string { return "fake" }

func (f *ocrFake) Recognize(context.Context, *domain.DocumentImage) (domain.OCRText, error) {
	if f.err != nil {
		return domain.OCRText{}, f.err
	}
	return f.text, nil
}

func testConfig() IdentifyConfig {
	return IdentifyConfig{
		MinTokens:               5,
		InsufficientTextCeiling: 0.25,
		PRCardThreshold:         0.55,
		DriversLicenseThreshold: 0.50,
		NameMatchThreshold:      0.75,
	}
}

func newTestEngine(t *testing.T, lines []string, signals domain.ImageSignals) *IdentifyDocumentUseCase {
	t.Helper()
	uc, err := NewIdentifyDocumentUseCase(
		&loaderFake{img: &domain.DocumentImage{Width: 640, Height: 400, Source: "test"}},
		&analyzerFake{signals: signals},
		&ocrFake{text: domain.OCRText{Lines: lines, Confidence: 0.9, Engine: "fake"}},
		testConfig(),
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
	if err != nil {
		t.Fatalf("build engine: %v", err)
	}
	return uc
}

func TestIdentifyAcceptsPRCardWithMatchingClaim(t *testing.T) {
	uc := newTestEngine(t, []string{"canada", "permanent resident", "name", "doe, jane", "1234-5678"}, domain.ImageSignals{})
	claim := domain.IdentityClaim{FullName: "Jane Doe", IDNumber: "1234-5678"}

	result, err := uc.Identify(context.Background(), domain.RefBytes([]byte("img")), claim)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsValid {
		t.Fatalf("expected valid, got %+v", result)
	}
	if result.DocType[0] != domain.DocTypePRCard {
		t.Fatalf("doc_type: got %v", result.DocType)
	}
	if result.Confidence < 0.55 {
		t.Fatalf("confidence below acceptance threshold: %v", result.Confidence)
	}
	if result.Reasons[0] != reasonAccepted {
		t.Fatalf("reasons: got %v", result.Reasons)
	}
	if result.Extracted["name"] != "doe jane" || result.Extracted["id_number"] != "1234-5678" {
		t.Fatalf("extracted fields: got %v", result.Extracted)
	}
}

func TestIdentifyRejectsDriversLicense(t *testing.T) {
	uc := newTestEngine(t, []string{"driver", "licence class g", "ontario"}, domain.ImageSignals{})

	result, err := uc.Identify(context.Background(), domain.RefBytes([]byte("img")), domain.IdentityClaim{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsValid {
		t.Fatal("expected invalid for a driver's licence")
	}
	if result.DocType[0] != domain.DocTypeDriversLicense {
		t.Fatalf("doc_type: got %v", result.DocType)
	}
	if !strings.Contains(result.Reasons[0], "licence cues") {
		t.Fatalf("reason must cite the detected licence cues, got %v", result.Reasons)
	}
}

func TestIdentifyEmptyReadingIsHandwritten(t *testing.T) {
	uc := newTestEngine(t, nil, domain.ImageSignals{})

	result, err := uc.Identify(context.Background(), domain.RefBytes([]byte("img")), domain.IdentityClaim{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsValid {
		t.Fatal("empty reading must not validate")
	}
	if result.Reasons[0] != reasonHandwritten {
		t.Fatalf("reasons: got %v", result.Reasons)
	}
	if result.Confidence >= 0.55 {
		t.Fatalf("confidence must stay below the acceptance threshold: %v", result.Confidence)
	}
	if len(result.RawText) != 0 {
		t.Fatalf("raw_text must be empty, got %v", result.RawText)
	}
	if len(result.DocType) == 0 {
		t.Fatal("doc_type must never be empty")
	}
}

func TestIdentifyReportsIdentityMismatch(t *testing.T) {
	uc := newTestEngine(t, []string{"permanent resident", "government of canada", "name", "doe, jane", "1234-5678"}, domain.ImageSignals{})
	claim := domain.IdentityClaim{FullName: "John Smith"}

	result, err := uc.Identify(context.Background(), domain.RefBytes([]byte("img")), claim)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsValid {
		t.Fatal("mismatching name must not validate")
	}
	if result.DocType[0] != domain.DocTypePRCard {
		t.Fatalf("mismatch must not change the detected type, got %v", result.DocType)
	}
	if result.Reasons[0] != reasonNameMismatch {
		t.Fatalf("reasons: got %v", result.Reasons)
	}
	if result.Confidence < 0.55 {
		t.Fatalf("mismatch must not zero the cue score, got %v", result.Confidence)
	}
}

func TestIdentifyValidWithoutClaim(t *testing.T) {
	uc := newTestEngine(t, []string{"canada", "permanent resident", "name", "doe, jane", "1234-5678"}, domain.ImageSignals{})

	result, err := uc.Identify(context.Background(), domain.RefBytes([]byte("img")), domain.IdentityClaim{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsValid {
		t.Fatalf("no claim means no mismatch is possible: %+v", result)
	}
}

func TestIdentifyIsIdempotent(t *testing.T) {
	lines := []string{"canada", "permanent resident", "1234-5678", "name", "doe, jane"}
	uc := newTestEngine(t, lines, domain.ImageSignals{HasCardBorder: true})
	claim := domain.IdentityClaim{FullName: "Jane Doe"}

	first, err := uc.Identify(context.Background(), domain.RefBytes([]byte("img")), claim)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := uc.Identify(context.Background(), domain.RefBytes([]byte("img")), claim)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("identical input must yield identical results:\n%+v\n%+v", first, second)
	}
}

func TestIdentifyLowQualityImage(t *testing.T) {
	uc := newTestEngine(t, []string{"permanent resident", "government of canada", "some more text here"}, domain.ImageSignals{LowQuality: true})

	result, err := uc.Identify(context.Background(), domain.RefBytes([]byte("img")), domain.IdentityClaim{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsValid {
		t.Fatal("low-quality image must not validate")
	}
	if result.Reasons[0] != reasonHandwritten {
		t.Fatalf("reasons: got %v", result.Reasons)
	}
}

func TestIdentifyDegradesWhenOCRUnavailable(t *testing.T) {
	uc, err := NewIdentifyDocumentUseCase(
		&loaderFake{img: &domain.DocumentImage{Width: 640, Height: 400, Source: "test"}},
		&analyzerFake{},
		&ocrFake{err: domain.WrapError(domain.ErrOCRUnavailable, "ocr chain", errors.New("all engines down"))},
		testConfig(),
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
	if err != nil {
		t.Fatalf("build engine: %v", err)
	}

	result, err := uc.Identify(context.Background(), domain.RefBytes([]byte("img")), domain.IdentityClaim{})
	if err != nil {
		t.Fatalf("ocr outage must degrade, not fail: %v", err)
	}
	if result.IsValid || result.Reasons[0] != reasonHandwritten {
		t.Fatalf("expected unreadable outcome, got %+v", result)
	}
}

func TestIdentifyPropagatesFetchFailure(t *testing.T) {
	fetchErr := domain.WrapError(domain.ErrImageFetch, "fetch", errors.New("404"))
	uc, err := NewIdentifyDocumentUseCase(
		&loaderFake{err: fetchErr},
		&analyzerFake{},
		&ocrFake{},
		testConfig(),
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
	if err != nil {
		t.Fatalf("build engine: %v", err)
	}

	_, err = uc.Identify(context.Background(), domain.RefURL("http://host/card.jpg"), domain.IdentityClaim{})
	if !domain.IsKind(err, domain.ErrImageFetch) {
		t.Fatalf("expected ErrImageFetch, got %v", err)
	}
}

func TestIdentifyConfidenceWithinBounds(t *testing.T) {
	cases := [][]string{
		{"permanent resident", "government of canada", "immigration", "citizenship", "canada", "1234-5678"},
		{"driver licence", "ontario", "class g", "a1234-56789-01234"},
		{"grocery list", "milk eggs bread", "call mom tomorrow"},
	}
	for _, lines := range cases {
		uc := newTestEngine(t, lines, domain.ImageSignals{HasCardBorder: true})
		result, err := uc.Identify(context.Background(), domain.RefBytes([]byte("img")), domain.IdentityClaim{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Confidence < 0 || result.Confidence > 1 {
			t.Fatalf("confidence out of bounds for %v: %v", lines, result.Confidence)
		}
		if len(result.DocType) == 0 {
			t.Fatalf("doc_type must be non-empty for %v", lines)
		}
	}
}
