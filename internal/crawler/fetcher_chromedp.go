package crawler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// settledBodyChars is the body-text length the extended wait condition
// polls for before giving up on a client-rendered shell.
const settledBodyChars = 500

// ChromedpConfig controls the headless fetcher.
type ChromedpConfig struct {
	UserAgent   string
	NavTimeout  time.Duration
	MaxParallel int
}

// ChromedpFetcher implements Fetcher with a headless browser so that
// client-rendered storefronts produce real content.
type ChromedpFetcher struct {
	cfg         ChromedpConfig
	limiter     chan struct{}
	allocator   context.Context
	allocCancel context.CancelFunc
	logger      *zap.Logger
}

// NewChromedpFetcher creates a headless fetcher backed by chromedp.
func NewChromedpFetcher(cfg ChromedpConfig, logger *zap.Logger) (*ChromedpFetcher, error) {
	if cfg.MaxParallel < 0 {
		return nil, fmt.Errorf("max parallel must be >= 0")
	}
	if cfg.NavTimeout <= 0 {
		cfg.NavTimeout = 90 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	var limiter chan struct{}
	if cfg.MaxParallel > 0 {
		limiter = make(chan struct{}, cfg.MaxParallel)
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", "new"),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("enable-automation", false),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)

	return &ChromedpFetcher{
		cfg:         cfg,
		limiter:     limiter,
		allocator:   allocCtx,
		allocCancel: allocCancel,
		logger:      logger,
	}, nil
}

// Close cancels the allocator context.
func (f *ChromedpFetcher) Close() {
	f.allocCancel()
}

// Fetch navigates with a headless browser and returns the rendered body
// text plus every anchor href in the document. Navigation failures and
// expired fetch deadlines are reported in the result; only a canceled
// session surfaces as an error.
func (f *ChromedpFetcher) Fetch(ctx context.Context, request FetchRequest) (FetchResult, error) {
	if err := f.acquire(ctx); err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			return FetchResult{}, err
		}
		return FetchResult{Success: false, ErrorMessage: err.Error()}, nil
	}
	defer f.release()

	taskCtx, taskCancel := chromedp.NewContext(f.allocator)
	defer taskCancel()

	timeout := request.Timeout
	if timeout <= 0 {
		timeout = f.cfg.NavTimeout
	}
	taskCtx, cancel := context.WithTimeout(taskCtx, timeout)
	defer cancel()

	// Tie the tab's lifetime to the caller's context so a per-page
	// cancellation tears down only this navigation.
	stop := context.AfterFunc(ctx, taskCancel)
	defer stop()

	var (
		text    string
		links   []string
		settled bool
	)
	actions := []chromedp.Action{
		f.sessionSetupAction(),
		chromedp.Navigate(request.URL),
		chromedp.WaitReady("body", chromedp.ByQuery),
	}
	if request.Wait == WaitSettled {
		actions = append(actions, chromedp.Poll(
			fmt.Sprintf("document.body.innerText.length > %d", settledBodyChars),
			&settled,
			chromedp.WithPollingTimeout(timeout/2),
		))
	} else {
		actions = append(actions, chromedp.Sleep(500*time.Millisecond))
	}
	actions = append(actions,
		chromedp.Evaluate("document.body.innerText", &text),
		chromedp.Evaluate(
			`Array.from(document.querySelectorAll("a[href]")).map(a => a.getAttribute("href"))`,
			&links,
		),
	)

	if err := chromedp.Run(taskCtx, actions...); err != nil {
		// A per-fetch deadline expiring is a failure of this page only;
		// a canceled caller context ends the whole session.
		if errors.Is(ctx.Err(), context.Canceled) {
			return FetchResult{}, fmt.Errorf("headless session: %w", err)
		}
		return FetchResult{Success: false, ErrorMessage: err.Error()}, nil
	}

	return FetchResult{Success: true, Content: text, Links: links}, nil
}

func (f *ChromedpFetcher) sessionSetupAction() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if err := network.Enable().Do(ctx); err != nil {
			return fmt.Errorf("enable network domain: %w", err)
		}
		if f.cfg.UserAgent != "" {
			if err := emulation.SetUserAgentOverride(f.cfg.UserAgent).Do(ctx); err != nil {
				return fmt.Errorf("set user-agent: %w", err)
			}
		}
		return nil
	})
}

func (f *ChromedpFetcher) acquire(ctx context.Context) error {
	if f.limiter == nil {
		return nil
	}
	select {
	case f.limiter <- struct{}{}:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("headless slot wait canceled: %w", ctx.Err())
	}
}

func (f *ChromedpFetcher) release() {
	if f.limiter == nil {
		return
	}
	select {
	case <-f.limiter:
	default:
	}
}
