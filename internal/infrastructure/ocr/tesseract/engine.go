package tesseract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/png"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/docverity/docverity/internal/core/domain"
)

// Engine shells out to the tesseract binary and reads its TSV output. The
// luminance plane is piped through stdin so nothing touches the filesystem.
type Engine struct {
	binary  string
	timeout time.Duration
}

func New(binary string, timeout time.Duration) *Engine {
	if binary == "" {
		binary = "tesseract"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Engine{binary: binary, timeout: timeout}
}

func (e *Engine) Name() string { return "tesseract" }

func (e *Engine) Recognize(ctx context.Context, img *domain.DocumentImage) (domain.OCRText, error) {
	if img == nil || img.Gray == nil {
		return domain.OCRText{}, domain.WrapError(domain.ErrOCRUnavailable, "tesseract", errors.New("no luminance plane"))
	}

	var input bytes.Buffer
	if err := png.Encode(&input, img.Gray); err != nil {
		return domain.OCRText{}, domain.WrapError(domain.ErrOCRUnavailable, "tesseract encode", err)
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, e.binary, "stdin", "stdout", "tsv")
	cmd.Stdin = &input
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return domain.OCRText{}, domain.WrapError(domain.ErrOCRUnavailable, "tesseract", err)
		}
		return domain.OCRText{}, domain.WrapError(domain.ErrOCRUnavailable, "tesseract run",
			fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr.String())))
	}

	lines, confidence := parseTSV(stdout.String())
	return domain.OCRText{Lines: lines, Confidence: confidence, Engine: e.Name()}, nil
}

// parseTSV groups tesseract word rows into reading-order lines keyed by
// (block, paragraph, line) and averages the word confidences. Rows with a
// negative confidence are layout markers, not words.
func parseTSV(out string) ([]string, float64) {
	var lines []string
	var words []string
	var lastKey string
	var confSum float64
	var confCount int

	flush := func() {
		if len(words) > 0 {
			lines = append(lines, strings.Join(words, " "))
			words = words[:0]
		}
	}

	for i, row := range strings.Split(out, "\n") {
		if i == 0 {
			continue // header
		}
		cols := strings.Split(row, "\t")
		if len(cols) < 12 {
			continue
		}
		conf, err := strconv.ParseFloat(cols[10], 64)
		if err != nil || conf < 0 {
			continue
		}
		word := strings.TrimSpace(cols[11])
		if word == "" {
			continue
		}

		key := cols[2] + "/" + cols[3] + "/" + cols[4]
		if key != lastKey {
			flush()
			lastKey = key
		}
		words = append(words, word)
		confSum += conf
		confCount++
	}
	flush()

	if confCount == 0 {
		return nil, 0
	}
	return lines, confSum / float64(confCount) / 100
}
