package crawler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"
)

var blankLines = regexp.MustCompile(`\n{3,}`)

// CollyConfig controls the static fetcher.
type CollyConfig struct {
	UserAgent string
	Timeout   time.Duration
}

// CollyFetcher implements Fetcher with plain HTTP requests for sites
// that render server-side. It ignores the wait condition since there is
// no JavaScript to settle.
type CollyFetcher struct {
	cfg    CollyConfig
	logger *zap.Logger
}

// NewCollyFetcher constructs a static fetcher.
func NewCollyFetcher(cfg CollyConfig, logger *zap.Logger) *CollyFetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CollyFetcher{cfg: cfg, logger: logger}
}

// Fetch downloads the page body over HTTP and extracts visible text and
// anchor hrefs from the parsed document. An expired fetch deadline is
// reported in the result; only a canceled caller context surfaces as an
// error.
func (f *CollyFetcher) Fetch(ctx context.Context, request FetchRequest) (FetchResult, error) {
	collector := colly.NewCollector(colly.UserAgent(f.cfg.UserAgent))
	timeout := request.Timeout
	if timeout <= 0 {
		timeout = f.cfg.Timeout
	}
	// Clamp the request timeout to the context's remaining time so the
	// underlying request ends with the fetch deadline instead of
	// lingering past it.
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}
	if timeout <= 0 {
		return FetchResult{Success: false, ErrorMessage: "fetch deadline exceeded"}, nil
	}
	collector.SetRequestTimeout(timeout)

	var body []byte
	collector.OnResponse(func(r *colly.Response) {
		body = append([]byte(nil), r.Body...)
	})

	var fetchErr error
	collector.OnError(func(_ *colly.Response, err error) {
		fetchErr = err
	})

	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(request.URL)
	}()
	select {
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.Canceled) {
			return FetchResult{}, fmt.Errorf("static fetch canceled: %w", ctx.Err())
		}
		// Deadline expiry fails this page only; the request winds down
		// on its own since its timeout is clamped to the deadline.
		return FetchResult{Success: false, ErrorMessage: "fetch deadline exceeded"}, nil
	case err := <-done:
		if err != nil {
			return FetchResult{Success: false, ErrorMessage: err.Error()}, nil
		}
	}

	if fetchErr != nil {
		return FetchResult{Success: false, ErrorMessage: fetchErr.Error()}, nil
	}
	if len(body) == 0 {
		return FetchResult{Success: false, ErrorMessage: "empty response body"}, nil
	}

	content, links, err := parseDocument(body)
	if err != nil {
		return FetchResult{Success: false, ErrorMessage: err.Error()}, nil
	}
	return FetchResult{Success: true, Content: content, Links: links}, nil
}

// parseDocument extracts cleaned visible text and anchor hrefs.
func parseDocument(body []byte) (string, []string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", nil, fmt.Errorf("parse html: %w", err)
	}

	doc.Find("script, style, noscript").Remove()

	var links []string
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		if href, ok := sel.Attr("href"); ok && strings.TrimSpace(href) != "" {
			links = append(links, strings.TrimSpace(href))
		}
	})

	var b strings.Builder
	doc.Find("body").Contents().Each(func(_ int, sel *goquery.Selection) {
		text := strings.TrimSpace(sel.Text())
		if text != "" {
			b.WriteString(text)
			b.WriteString("\n")
		}
	})
	content := blankLines.ReplaceAllString(strings.TrimSpace(b.String()), "\n\n")
	return content, links, nil
}
