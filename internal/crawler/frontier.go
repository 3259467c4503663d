package crawler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/retailradar/storesync/internal/urlutil"
)

// Config holds the settings for one crawl session.
type Config struct {
	// Concurrency bounds the number of fetches dispatched per round.
	Concurrency int
	// FetchTimeout is the independent timeout applied to each fetch.
	FetchTimeout time.Duration
	// RoundPause is inserted between rounds to avoid overwhelming the
	// remote origin.
	RoundPause time.Duration
	// MinContentChars is the floor below which a page is considered a
	// placeholder shell and refetched with an extended wait.
	MinContentChars int
	// DomainRPS throttles fetches against the session's domain. Zero
	// disables throttling.
	DomainRPS float64
}

// Frontier performs breadth-first traversal of a single site. The
// visited set and pending queue are owned and mutated only by the
// control loop in Crawl; fetch workers report results back and never
// touch frontier state.
type Frontier struct {
	fetcher Fetcher
	policy  *ExclusionPolicy
	cfg     Config
	logger  *zap.Logger
}

// NewFrontier constructs a Frontier.
func NewFrontier(fetcher Fetcher, policy *ExclusionPolicy, cfg Config, logger *zap.Logger) *Frontier {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 90 * time.Second
	}
	if cfg.MinContentChars <= 0 {
		cfg.MinContentChars = 100
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Frontier{fetcher: fetcher, policy: policy, cfg: cfg, logger: logger}
}

// Crawl traverses the site rooted at seedURL breadth-first, returning up
// to maxPages fetched pages. Single-page failures are logged and
// skipped; a fatal fetch-session failure ends the traversal and returns
// whatever was collected.
func (f *Frontier) Crawl(ctx context.Context, seedURL string, maxPages int) ([]PageResult, error) {
	seed, err := urlutil.Normalize(seedURL)
	if err != nil {
		return nil, fmt.Errorf("normalize seed url: %w", err)
	}
	if maxPages <= 0 {
		return nil, fmt.Errorf("max pages must be positive")
	}

	var limiter *rate.Limiter
	if f.cfg.DomainRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(f.cfg.DomainRPS), f.cfg.Concurrency)
	}

	visited := make(map[string]struct{})
	pending := map[string]struct{}{seed: {}}
	queue := []Task{{URL: seed, Depth: 0}}
	var pages []PageResult

	for len(queue) > 0 && len(visited) < maxPages {
		round := f.nextRound(&queue, pending, visited, maxPages)
		if len(round) == 0 {
			break
		}

		outcomes := make([]fetchOutcome, len(round))
		g, gctx := errgroup.WithContext(ctx)
		for i, task := range round {
			g.Go(func() error {
				if limiter != nil {
					if err := limiter.Wait(gctx); err != nil {
						return fmt.Errorf("rate limit wait: %w", err)
					}
				}
				outcome, err := f.fetchPage(gctx, task)
				if err != nil {
					return err
				}
				outcomes[i] = outcome
				return nil
			})
		}
		fatal := g.Wait()

		for i, task := range round {
			outcome := outcomes[i]
			if !outcome.ok {
				if outcome.errMsg != "" {
					pagesFailed.Inc()
					f.logger.Warn("page fetch failed, skipping",
						zap.String("url", task.URL),
						zap.String("error", outcome.errMsg),
					)
				}
				continue
			}
			pagesFetched.Inc()
			pages = append(pages, PageResult{URL: task.URL, Content: outcome.content, Links: outcome.links})
			f.enqueueLinks(task, outcome.links, seed, visited, pending, &queue)
		}

		if fatal != nil {
			f.logger.Error("crawl session failed, returning partial results", zap.Error(fatal))
			return pages, nil
		}

		if len(queue) > 0 && f.cfg.RoundPause > 0 {
			select {
			case <-ctx.Done():
				return pages, nil
			case <-time.After(f.cfg.RoundPause):
			}
		}
	}
	return pages, nil
}

// nextRound pops up to Concurrency admissible tasks off the queue,
// marking each visited before dispatch so no URL is ever fetched twice.
func (f *Frontier) nextRound(queue *[]Task, pending, visited map[string]struct{}, maxPages int) []Task {
	var round []Task
	for len(*queue) > 0 && len(round) < f.cfg.Concurrency && len(visited) < maxPages {
		task := (*queue)[0]
		*queue = (*queue)[1:]
		delete(pending, task.URL)

		if _, seen := visited[task.URL]; seen {
			continue
		}
		if f.policy.Excluded(task.URL) {
			pagesExcluded.Inc()
			continue
		}
		visited[task.URL] = struct{}{}
		round = append(round, task)
	}
	return round
}

type fetchOutcome struct {
	ok      bool
	content string
	links   []string
	errMsg  string
}

func (f *Frontier) fetchPage(ctx context.Context, task Task) (fetchOutcome, error) {
	result, err := f.fetchOnce(ctx, task.URL, WaitBody)
	if err != nil {
		return fetchOutcome{}, err
	}

	if result.Success && len(strings.TrimSpace(result.Content)) < f.cfg.MinContentChars {
		fetchRetries.Inc()
		f.logger.Debug("content short, retrying with extended wait", zap.String("url", task.URL))
		retry, err := f.fetchOnce(ctx, task.URL, WaitSettled)
		if err != nil {
			return fetchOutcome{}, err
		}
		if retry.Success {
			result = retry
		}
	}

	if !result.Success {
		msg := result.ErrorMessage
		if msg == "" {
			msg = "fetch failed"
		}
		return fetchOutcome{errMsg: msg}, nil
	}
	return fetchOutcome{ok: true, content: result.Content, links: result.Links}, nil
}

func (f *Frontier) fetchOnce(ctx context.Context, url string, wait WaitCondition) (FetchResult, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, f.cfg.FetchTimeout)
	defer cancel()
	return f.fetcher.Fetch(fetchCtx, FetchRequest{URL: url, Wait: wait, Timeout: f.cfg.FetchTimeout})
}

// enqueueLinks resolves a page's discovered links and admits same-site,
// non-excluded, unseen URLs to the queue.
func (f *Frontier) enqueueLinks(task Task, links []string, seed string, visited, pending map[string]struct{}, queue *[]Task) {
	for _, link := range links {
		resolved, err := urlutil.Resolve(task.URL, link)
		if err != nil {
			continue
		}
		normalized, err := urlutil.Normalize(resolved)
		if err != nil {
			continue
		}
		if !strings.HasPrefix(normalized, "http://") && !strings.HasPrefix(normalized, "https://") {
			continue
		}
		if !urlutil.SameHost(seed, normalized) {
			continue
		}
		if f.policy.Excluded(normalized) {
			pagesExcluded.Inc()
			continue
		}
		if _, seen := visited[normalized]; seen {
			continue
		}
		if _, queued := pending[normalized]; queued {
			continue
		}
		pending[normalized] = struct{}{}
		*queue = append(*queue, Task{URL: normalized, Depth: task.Depth + 1})
	}
}
