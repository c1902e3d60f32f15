package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/docverity/docverity/internal/core/domain"
	"github.com/docverity/docverity/internal/core/ports"
)

type SubmitVerificationUseCase struct {
	repo    ports.VerificationRepository
	storage ports.ObjectStorage
	queue   ports.MessageQueue
}

func NewSubmitVerificationUseCase(
	repo ports.VerificationRepository,
	storage ports.ObjectStorage,
	queue ports.MessageQueue,
) *SubmitVerificationUseCase {
	return &SubmitVerificationUseCase{
		repo:    repo,
		storage: storage,
		queue:   queue,
	}
}

// Submit records a verification and queues it for processing. URL
// references are fetched later by the worker; uploaded bytes are written to
// object storage now so the queue carries only the verification ID.
func (uc *SubmitVerificationUseCase) Submit(ctx context.Context, ref domain.ImageRef, claim domain.IdentityClaim) (*domain.Verification, error) {
	if ref.IsZero() {
		return nil, domain.WrapError(domain.ErrInvalidInput, "submit verification", errors.New("no image reference"))
	}

	id := uuid.NewString()
	now := time.Now().UTC()
	v := &domain.Verification{
		ID:        id,
		Claim:     claim,
		Status:    domain.StatusSubmitted,
		CreatedAt: now,
		UpdatedAt: now,
	}

	switch ref.Kind {
	case domain.RefKindURL:
		v.ImageURL = ref.URL
	case domain.RefKindBytes:
		v.StorageKey = fmt.Sprintf("%s_document.bin", id)
		if err := uc.storage.Save(ctx, v.StorageKey, bytes.NewReader(ref.Bytes)); err != nil {
			return nil, fmt.Errorf("save to object storage: %w", err)
		}
	default:
		return nil, domain.WrapError(domain.ErrInvalidInput, "submit verification", errors.New("only URL and upload references are accepted"))
	}

	if err := uc.repo.Create(ctx, v); err != nil {
		return nil, fmt.Errorf("create verification record: %w", err)
	}

	if err := uc.queue.PublishVerificationSubmitted(ctx, v.ID); err != nil {
		return nil, fmt.Errorf("publish submission event: %w", err)
	}

	return v, nil
}
