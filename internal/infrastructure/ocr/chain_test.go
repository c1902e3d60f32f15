package ocr

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/docverity/docverity/internal/core/domain"
)

type fakeEngine struct {
	name  string
	text  domain.OCRText
	err   error
	calls int
}

func (f *fakeEngine) Name() string { return f.name }

func (f *fakeEngine) Recognize(_ context.Context, _ *domain.DocumentImage) (domain.OCRText, error) {
	f.calls++
	return f.text, f.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestChainReturnsFirstConfidentReading(t *testing.T) {
	local := &fakeEngine{name: "local", text: domain.OCRText{
		Lines: []string{"permanent resident card"}, Confidence: 0.85, Engine: "local",
	}}
	remote := &fakeEngine{name: "remote"}

	chain := NewChain(testLogger(), 0.6, local, remote)
	got, err := chain.Recognize(context.Background(), &domain.DocumentImage{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Engine != "local" {
		t.Fatalf("expected local reading, got %q", got.Engine)
	}
	if remote.calls != 0 {
		t.Fatal("remote engine must not run when local is confident")
	}
}

func TestChainFallsBackOnLowConfidence(t *testing.T) {
	local := &fakeEngine{name: "local", text: domain.OCRText{
		Lines: []string{"garbled"}, Confidence: 0.2, Engine: "local",
	}}
	remote := &fakeEngine{name: "remote", text: domain.OCRText{
		Lines: []string{"permanent resident card"}, Confidence: 1.0, Engine: "remote",
	}}

	chain := NewChain(testLogger(), 0.6, local, remote)
	got, err := chain.Recognize(context.Background(), &domain.DocumentImage{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Engine != "remote" {
		t.Fatalf("expected remote reading, got %q", got.Engine)
	}
}

func TestChainFallsBackOnEngineError(t *testing.T) {
	local := &fakeEngine{name: "local", err: errors.New("binary missing")}
	remote := &fakeEngine{name: "remote", text: domain.OCRText{
		Lines: []string{"some text"}, Confidence: 1.0, Engine: "remote",
	}}

	chain := NewChain(testLogger(), 0.6, local, remote)
	got, err := chain.Recognize(context.Background(), &domain.DocumentImage{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Engine != "remote" {
		t.Fatalf("expected remote reading, got %q", got.Engine)
	}
}

func TestChainKeepsBestLowConfidenceReading(t *testing.T) {
	local := &fakeEngine{name: "local", text: domain.OCRText{
		Lines: []string{"faint text"}, Confidence: 0.3, Engine: "local",
	}}
	remote := &fakeEngine{name: "remote", err: errors.New("quota exceeded")}

	chain := NewChain(testLogger(), 0.6, local, remote)
	got, err := chain.Recognize(context.Background(), &domain.DocumentImage{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Engine != "local" || got.Confidence != 0.3 {
		t.Fatalf("expected low-confidence local reading kept, got %+v", got)
	}
}

func TestChainFailsWhenAllEnginesError(t *testing.T) {
	local := &fakeEngine{name: "local", err: errors.New("binary missing")}
	remote := &fakeEngine{name: "remote", err: errors.New("quota exceeded")}

	chain := NewChain(testLogger(), 0.6, local, remote)
	_, err := chain.Recognize(context.Background(), &domain.DocumentImage{})
	if !domain.IsKind(err, domain.ErrOCRUnavailable) {
		t.Fatalf("expected ErrOCRUnavailable, got %v", err)
	}
}

func TestChainEmptyReadingIsValid(t *testing.T) {
	local := &fakeEngine{name: "local", text: domain.OCRText{Engine: "local"}}
	remote := &fakeEngine{name: "remote", text: domain.OCRText{Engine: "remote"}}

	chain := NewChain(testLogger(), 0.6, local, remote)
	got, err := chain.Recognize(context.Background(), &domain.DocumentImage{})
	if err != nil {
		t.Fatalf("a blank document is not an error: %v", err)
	}
	if len(got.Lines) != 0 {
		t.Fatalf("expected empty reading, got %v", got.Lines)
	}
}
