package ocr

import (
	"context"
	"errors"
	"log/slog"

	"github.com/docverity/docverity/internal/core/domain"
	"github.com/docverity/docverity/internal/core/ports"
)

// Chain tries OCR engines in order and returns the first reading that is
// non-empty and at least as confident as the floor. When every engine falls
// short, the best non-empty reading still wins over nothing; only when all
// engines error out does the chain fail.
type Chain struct {
	engines         []ports.OCREngine
	confidenceFloor float64
	logger          *slog.Logger
}

func NewChain(logger *slog.Logger, confidenceFloor float64, engines ...ports.OCREngine) *Chain {
	if logger == nil {
		logger = slog.Default()
	}
	return &Chain{
		engines:         engines,
		confidenceFloor: confidenceFloor,
		logger:          logger,
	}
}

func (c *Chain) Name() string { return "chain" }

func (c *Chain) Recognize(ctx context.Context, img *domain.DocumentImage) (domain.OCRText, error) {
	if len(c.engines) == 0 {
		return domain.OCRText{}, domain.WrapError(domain.ErrOCRUnavailable, "ocr chain", errors.New("no engines configured"))
	}

	var fallback domain.OCRText
	var lastErr error
	failures := 0

	for _, engine := range c.engines {
		text, err := engine.Recognize(ctx, img)
		if err != nil {
			failures++
			lastErr = err
			c.logger.Warn("ocr_engine_failed", "engine", engine.Name(), "error", err)
			if ctx.Err() != nil {
				break
			}
			continue
		}

		if len(text.Lines) > 0 && text.Confidence >= c.confidenceFloor {
			return text, nil
		}
		c.logger.Info("ocr_engine_below_floor",
			"engine", engine.Name(),
			"confidence", text.Confidence,
			"lines", len(text.Lines),
			"floor", c.confidenceFloor,
		)
		if len(text.Lines) > 0 && len(fallback.Lines) == 0 {
			fallback = text
		}
	}

	if len(fallback.Lines) > 0 {
		return fallback, nil
	}
	if failures == len(c.engines) {
		return domain.OCRText{}, domain.WrapError(domain.ErrOCRUnavailable, "ocr chain", lastErr)
	}
	// Every engine ran but nobody saw text: that is a valid empty reading.
	return domain.OCRText{Engine: c.engines[len(c.engines)-1].Name()}, nil
}
