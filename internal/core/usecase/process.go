package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/docverity/docverity/internal/core/domain"
	"github.com/docverity/docverity/internal/core/ports"
)

type ProcessVerificationUseCase struct {
	repo       ports.VerificationRepository
	storage    ports.ObjectStorage
	identifier ports.DocumentIdentifier
}

func NewProcessVerificationUseCase(
	repo ports.VerificationRepository,
	storage ports.ObjectStorage,
	identifier ports.DocumentIdentifier,
) *ProcessVerificationUseCase {
	return &ProcessVerificationUseCase{
		repo:       repo,
		storage:    storage,
		identifier: identifier,
	}
}

// ProcessByID runs the identification engine for a submitted verification
// and persists the outcome. An engine error marks the record failed; the
// error is still returned so the queue can decide whether to retry.
func (uc *ProcessVerificationUseCase) ProcessByID(ctx context.Context, verificationID string) error {
	if err := uc.repo.UpdateStatus(ctx, verificationID, domain.StatusProcessing, ""); err != nil {
		return fmt.Errorf("set status=processing: %w", err)
	}

	result, err := uc.runEngine(ctx, verificationID)
	if err != nil {
		if failErr := uc.markFailed(ctx, verificationID, err); failErr != nil {
			return fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return err
	}

	if err := uc.repo.SaveResult(ctx, verificationID, *result); err != nil {
		if failErr := uc.markFailed(ctx, verificationID, err); failErr != nil {
			return fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return fmt.Errorf("save result: %w", err)
	}

	if err := uc.repo.UpdateStatus(ctx, verificationID, domain.StatusCompleted, ""); err != nil {
		return fmt.Errorf("set status=completed: %w", err)
	}
	return nil
}

func (uc *ProcessVerificationUseCase) runEngine(ctx context.Context, verificationID string) (*domain.IdentificationResult, error) {
	v, err := uc.repo.GetByID(ctx, verificationID)
	if err != nil {
		return nil, fmt.Errorf("fetch verification by id: %w", err)
	}

	ref, err := uc.imageRef(ctx, v)
	if err != nil {
		return nil, err
	}

	result, err := uc.identifier.Identify(ctx, ref, v.Claim)
	if err != nil {
		return nil, fmt.Errorf("identify document: %w", err)
	}
	return result, nil
}

func (uc *ProcessVerificationUseCase) imageRef(ctx context.Context, v *domain.Verification) (domain.ImageRef, error) {
	if v.StorageKey != "" {
		reader, err := uc.storage.Open(ctx, v.StorageKey)
		if err != nil {
			return domain.ImageRef{}, fmt.Errorf("open stored image: %w", err)
		}
		defer reader.Close()

		raw, err := io.ReadAll(reader)
		if err != nil {
			return domain.ImageRef{}, fmt.Errorf("read stored image: %w", err)
		}
		return domain.RefBytes(raw), nil
	}
	if v.ImageURL != "" {
		return domain.RefURL(v.ImageURL), nil
	}
	return domain.ImageRef{}, domain.WrapError(domain.ErrInvalidInput, "resolve image", errors.New("verification has no image reference"))
}

func (uc *ProcessVerificationUseCase) markFailed(ctx context.Context, verificationID string, processErr error) error {
	if processErr == nil {
		return nil
	}
	return uc.repo.UpdateStatus(ctx, verificationID, domain.StatusFailed, processErr.Error())
}
