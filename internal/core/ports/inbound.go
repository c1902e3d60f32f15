package ports

import (
	"context"

	"github.com/docverity/docverity/internal/core/domain"
)

// DocumentIdentifier is the inbound contract for one synchronous
// identification call: (image, claim) in, explainable decision out.
type DocumentIdentifier interface {
	Identify(ctx context.Context, ref domain.ImageRef, claim domain.IdentityClaim) (*domain.IdentificationResult, error)
}

// VerificationSubmitter accepts a verification for asynchronous processing.
type VerificationSubmitter interface {
	Submit(ctx context.Context, ref domain.ImageRef, claim domain.IdentityClaim) (*domain.Verification, error)
}

// VerificationProcessor runs the engine for a previously submitted
// verification and persists the outcome.
type VerificationProcessor interface {
	ProcessByID(ctx context.Context, verificationID string) error
}

// VerificationReader is the inbound read model for verification state.
type VerificationReader interface {
	GetByID(ctx context.Context, id string) (*domain.Verification, error)
}
