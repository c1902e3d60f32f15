package ports

import (
	"context"
	"io"

	"github.com/docverity/docverity/internal/core/domain"
)

// ImageLoader resolves an image reference to decoded pixels. URL references
// may involve one or two outbound fetches (HTML unwrap is a single hop).
type ImageLoader interface {
	Load(ctx context.Context, ref domain.ImageRef) (*domain.DocumentImage, error)
}

// ImageAnalyzer derives the structural cue bundle from decoded pixels.
// It never fails: degenerate input yields a low-quality signal instead.
type ImageAnalyzer interface {
	Analyze(img *domain.DocumentImage) domain.ImageSignals
}

// OCREngine turns an image into recognized text lines. Implementations
// report their own confidence so callers can decide whether to fall back
// to another engine.
type OCREngine interface {
	Name() string
	Recognize(ctx context.Context, img *domain.DocumentImage) (domain.OCRText, error)
}

// VerificationRepository persists and reads verification state.
type VerificationRepository interface {
	Create(ctx context.Context, v *domain.Verification) error
	GetByID(ctx context.Context, id string) (*domain.Verification, error)
	UpdateStatus(ctx context.Context, id string, status domain.VerificationStatus, errMessage string) error
	SaveResult(ctx context.Context, id string, result domain.IdentificationResult) error
}

// ObjectStorage stores uploaded document images.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// MessageQueue publishes/consumes verification submission events.
type MessageQueue interface {
	PublishVerificationSubmitted(ctx context.Context, verificationID string) error
	SubscribeVerificationSubmitted(ctx context.Context, handler func(context.Context, string) error) error
}
