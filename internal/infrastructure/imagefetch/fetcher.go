package imagefetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/docverity/docverity/internal/core/domain"
	"github.com/docverity/docverity/internal/infrastructure/resilience"
)

const maxBodyBytes = 32 << 20

// Some upload hosts reject requests without a browser-looking agent.
const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/58.0.3029.110 Safari/537.3"

type Options struct {
	Timeout time.Duration

	// AccessToken is appended as an apiKey query parameter when the URL
	// belongs to one of FormsHosts. Empty token disables this entirely.
	AccessToken string
	FormsHosts  []string

	Executor *resilience.Executor
}

// Fetcher downloads document images over HTTP. URLs that resolve to an HTML
// page are unwrapped exactly once: the first <img src> is extracted and
// fetched instead.
type Fetcher struct {
	client      *http.Client
	accessToken string
	formsHosts  []string
	executor    *resilience.Executor
}

func New(opts Options) *Fetcher {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	hosts := opts.FormsHosts
	if hosts == nil {
		hosts = []string{"jotform.com"}
	}
	return &Fetcher{
		client:      &http.Client{Timeout: timeout},
		accessToken: opts.AccessToken,
		formsHosts:  hosts,
		executor:    opts.Executor,
	}
}

func (f *Fetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	return f.fetch(ctx, rawURL, true)
}

func (f *Fetcher) fetch(ctx context.Context, rawURL string, allowUnwrap bool) ([]byte, error) {
	target := f.withAccessToken(rawURL)

	var body []byte
	var contentType string
	call := func(ctx context.Context) error {
		var err error
		body, contentType, err = f.get(ctx, target)
		return err
	}

	var err error
	if f.executor != nil {
		err = f.executor.Execute(ctx, "image.fetch", call, classifyFetchError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return nil, domain.WrapError(domain.ErrImageFetch, "fetch "+rawURL, err)
	}

	if strings.Contains(contentType, "text/html") {
		if !allowUnwrap {
			return nil, domain.WrapError(domain.ErrHTMLUnwrap, "unwrap "+rawURL, errors.New("nested html page"))
		}
		imgURL, err := firstImageURL(body)
		if err != nil {
			return nil, domain.WrapError(domain.ErrHTMLUnwrap, "unwrap "+rawURL, err)
		}
		resolved, err := resolveAgainst(rawURL, imgURL)
		if err != nil {
			return nil, domain.WrapError(domain.ErrHTMLUnwrap, "unwrap "+rawURL, err)
		}
		return f.fetch(ctx, resolved, false)
	}

	return body, nil
}

func (f *Fetcher) get(ctx context.Context, target string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("http get: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, "", &HTTPStatusError{StatusCode: resp.StatusCode, Status: resp.Status}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, "", fmt.Errorf("read body: %w", err)
	}
	return body, resp.Header.Get("Content-Type"), nil
}

func (f *Fetcher) withAccessToken(rawURL string) string {
	if f.accessToken == "" {
		return rawURL
	}
	parsed, err := url.Parse(rawURL)
	if err != nil || !f.isFormsHost(parsed.Hostname()) {
		return rawURL
	}
	q := parsed.Query()
	q.Set("apiKey", f.accessToken)
	parsed.RawQuery = q.Encode()
	return parsed.String()
}

func (f *Fetcher) isFormsHost(host string) bool {
	host = strings.ToLower(host)
	for _, known := range f.formsHosts {
		if host == known || strings.HasSuffix(host, "."+known) {
			return true
		}
	}
	return false
}

// firstImageURL returns the src of the first <img> tag in the document.
func firstImageURL(page []byte) (string, error) {
	doc, err := html.Parse(strings.NewReader(string(page)))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}

	var walk func(*html.Node) string
	walk = func(n *html.Node) string {
		if n.Type == html.ElementNode && n.Data == "img" {
			for _, attr := range n.Attr {
				if attr.Key == "src" && attr.Val != "" {
					return attr.Val
				}
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			if src := walk(child); src != "" {
				return src
			}
		}
		return ""
	}

	if src := walk(doc); src != "" {
		return src, nil
	}
	return "", errors.New("no <img> tag with src attribute")
}

func resolveAgainst(pageURL, imgURL string) (string, error) {
	if strings.HasPrefix(imgURL, "http://") || strings.HasPrefix(imgURL, "https://") {
		return imgURL, nil
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return "", fmt.Errorf("parse page url: %w", err)
	}
	rel, err := url.Parse(imgURL)
	if err != nil {
		return "", fmt.Errorf("parse image url: %w", err)
	}
	return base.ResolveReference(rel).String(), nil
}

type HTTPStatusError struct {
	StatusCode int
	Status     string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("unexpected status: %s", e.Status)
}

func classifyFetchError(err error) resilience.ErrorClassification {
	if err == nil {
		return resilience.ErrorClassification{}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return resilience.ErrorClassification{Retryable: false, RecordFailure: false}
	}

	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		switch statusErr.StatusCode {
		case http.StatusRequestTimeout, http.StatusTooManyRequests,
			http.StatusInternalServerError, http.StatusBadGateway,
			http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
		default:
			return resilience.ErrorClassification{Retryable: false, RecordFailure: false}
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	}
	return resilience.ErrorClassification{Retryable: false, RecordFailure: true}
}
