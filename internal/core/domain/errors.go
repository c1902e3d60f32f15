package domain

import (
	"errors"
	"fmt"
)

var (
	// Fetch/decode-stage failures. Fatal to the identification call: no
	// result can be produced without pixels.
	ErrImageFetch  = errors.New("image fetch failed")
	ErrImageDecode = errors.New("image decode failed")
	ErrHTMLUnwrap  = errors.New("html page contains no image")

	// ErrOCRUnavailable marks every configured OCR engine as failed or
	// unconfigured. Non-fatal: the pipeline degrades to an empty line set.
	ErrOCRUnavailable = errors.New("ocr unavailable")

	ErrVerificationNotFound = errors.New("verification not found")
	ErrInvalidInput         = errors.New("invalid input")
	ErrTemporary            = errors.New("temporary failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
