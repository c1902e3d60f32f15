package ninjas

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/docverity/docverity/internal/core/domain"
	"github.com/docverity/docverity/internal/infrastructure/resilience"
)

const defaultURL = "https://api.api-ninjas.com/v1/imagetotext"

type Options struct {
	URL     string
	APIKey  string
	Timeout time.Duration

	// RequestsPerMinute throttles outbound calls; the hosted tier enforces
	// a hard quota and returns 429 past it.
	RequestsPerMinute int

	Executor *resilience.Executor
}

// Client reads text from an image through the hosted image-to-text API.
// The API reports word boxes with no confidence, so any non-empty reading
// is returned with full confidence.
type Client struct {
	url      string
	apiKey   string
	client   *http.Client
	limiter  *rate.Limiter
	executor *resilience.Executor
}

func New(opts Options) *Client {
	url := opts.URL
	if url == "" {
		url = defaultURL
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	rpm := opts.RequestsPerMinute
	if rpm <= 0 {
		rpm = 30
	}
	return &Client{
		url:      url,
		apiKey:   opts.APIKey,
		client:   &http.Client{Timeout: timeout},
		limiter:  rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), 1),
		executor: opts.Executor,
	}
}

func (c *Client) Name() string { return "api-ninjas" }

func (c *Client) Recognize(ctx context.Context, img *domain.DocumentImage) (domain.OCRText, error) {
	if c.apiKey == "" {
		return domain.OCRText{}, domain.WrapError(domain.ErrOCRUnavailable, "remote ocr", errors.New("no api key configured"))
	}
	if img == nil || len(img.Raw) == 0 {
		return domain.OCRText{}, domain.WrapError(domain.ErrOCRUnavailable, "remote ocr", errors.New("no image bytes"))
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return domain.OCRText{}, domain.WrapError(domain.ErrOCRUnavailable, "remote ocr rate limit", err)
	}

	var words []word
	call := func(ctx context.Context) error {
		var err error
		words, err = c.post(ctx, img.Raw)
		return err
	}

	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, "ocr.remote", call, classifyError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return domain.OCRText{}, domain.WrapError(domain.ErrOCRUnavailable, "remote ocr", err)
	}

	lines := assembleLines(words)
	text := domain.OCRText{Lines: lines, Engine: c.Name()}
	if len(lines) > 0 {
		text.Confidence = 1.0
	}
	return text, nil
}

type boundingBox struct {
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

type word struct {
	Text        string      `json:"text"`
	BoundingBox boundingBox `json:"bounding_box"`
}

func (c *Client) post(ctx context.Context, raw []byte) ([]word, error) {
	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	part, err := form.CreateFormFile("image", "document.png")
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(raw); err != nil {
		return nil, fmt.Errorf("write form file: %w", err)
	}
	if err := form.Close(); err != nil {
		return nil, fmt.Errorf("close form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, &body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.Header.Set("X-Api-Key", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http post: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &statusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(payload))}
	}

	var words []word
	if err := json.Unmarshal(payload, &words); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return words, nil
}

// assembleLines stitches word boxes back into reading-order lines: a word
// starts a new line when its box no longer vertically overlaps the current
// line's midpoint.
func assembleLines(words []word) []string {
	var lines []string
	var current []string
	lineTop, lineBottom := 0, 0

	for _, w := range words {
		text := strings.TrimSpace(w.Text)
		if text == "" {
			continue
		}
		mid := (w.BoundingBox.Y1 + w.BoundingBox.Y2) / 2
		if len(current) > 0 && (mid < lineTop || mid > lineBottom) {
			lines = append(lines, strings.Join(current, " "))
			current = current[:0]
		}
		if len(current) == 0 {
			lineTop, lineBottom = w.BoundingBox.Y1, w.BoundingBox.Y2
		}
		current = append(current, text)
	}
	if len(current) > 0 {
		lines = append(lines, strings.Join(current, " "))
	}
	return lines
}

type statusError struct {
	StatusCode int
	Body       string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Body)
}

func classifyError(err error) resilience.ErrorClassification {
	if err == nil {
		return resilience.ErrorClassification{}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return resilience.ErrorClassification{}
	}

	var statusErr *statusError
	if errors.As(err, &statusErr) {
		switch statusErr.StatusCode {
		case http.StatusTooManyRequests, http.StatusInternalServerError,
			http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
		default:
			return resilience.ErrorClassification{RecordFailure: false}
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	}
	return resilience.ErrorClassification{RecordFailure: true}
}
