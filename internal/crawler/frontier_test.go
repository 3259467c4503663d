package crawler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeFetcher serves canned pages and records every dispatched URL.
type fakeFetcher struct {
	mu      sync.Mutex
	pages   map[string]FetchResult
	fetched []string
	// shortFirst makes the first fetch of each URL return content below
	// the minimum floor, exercising the extended-wait retry.
	shortFirst map[string]bool
	fatalAfter int
}

func (f *fakeFetcher) Fetch(_ context.Context, request FetchRequest) (FetchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.fatalAfter > 0 && len(f.fetched) >= f.fatalAfter {
		return FetchResult{}, errors.New("browser session crashed")
	}
	f.fetched = append(f.fetched, request.URL)

	if f.shortFirst[request.URL] && request.Wait == WaitBody {
		return FetchResult{Success: true, Content: "shell"}, nil
	}
	result, ok := f.pages[request.URL]
	if !ok {
		return FetchResult{Success: false, ErrorMessage: "not found"}, nil
	}
	return result, nil
}

func (f *fakeFetcher) dispatchCount(url string, wait WaitCondition) int {
	_ = wait
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, u := range f.fetched {
		if u == url {
			n++
		}
	}
	return n
}

func page(content string, links ...string) FetchResult {
	return FetchResult{Success: true, Content: content, Links: links}
}

func longContent(tag string) string {
	return tag + " " + strings.Repeat("kids shoes and toys catalog ", 10)
}

func newTestFrontier(fetcher Fetcher) *Frontier {
	return NewFrontier(fetcher, NewExclusionPolicy(), Config{
		Concurrency:     3,
		FetchTimeout:    time.Second,
		MinContentChars: 100,
	}, zap.NewNop())
}

func TestFrontierCrawlBFS(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{pages: map[string]FetchResult{
		"https://shop.in/":  page(longContent("root"), "/a", "/b"),
		"https://shop.in/a": page(longContent("a"), "/c"),
		"https://shop.in/b": page(longContent("b")),
		"https://shop.in/c": page(longContent("c")),
	}}

	pages, err := newTestFrontier(fetcher).Crawl(context.Background(), "https://shop.in/", 10)
	require.NoError(t, err)
	require.Len(t, pages, 4)
	// Seed completes in round one, its children in round two.
	require.Equal(t, "https://shop.in/", pages[0].URL)
}

func TestFrontierRespectsMaxPagesWithExclusions(t *testing.T) {
	t.Parallel()

	links := []string{
		"/kids/1", "/kids/2", "/kids/3", "/kids/4", "/kids/5",
		"/kids/6", "/kids/7", "/kids/8",
		"/customer/login", "/cart/view",
	}
	pages := map[string]FetchResult{
		"https://shop.in/": page(longContent("root"), links...),
	}
	for i := 1; i <= 8; i++ {
		pages[fmt.Sprintf("https://shop.in/kids/%d", i)] = page(longContent("kid"))
	}
	fetcher := &fakeFetcher{pages: pages}

	results, err := newTestFrontier(fetcher).Crawl(context.Background(), "https://shop.in/", 5)
	require.NoError(t, err)
	require.Len(t, results, 5)

	for _, url := range fetcher.fetched {
		require.NotContains(t, url, "login")
		require.NotContains(t, url, "cart")
		require.True(t, strings.HasPrefix(url, "https://shop.in/"))
	}
}

func TestFrontierNeverDispatchesTwice(t *testing.T) {
	t.Parallel()

	// Every page links back to every other page.
	fetcher := &fakeFetcher{pages: map[string]FetchResult{
		"https://shop.in/":  page(longContent("root"), "/a", "/b", "/", "/a"),
		"https://shop.in/a": page(longContent("a"), "/", "/b"),
		"https://shop.in/b": page(longContent("b"), "/a", "/"),
	}}

	_, err := newTestFrontier(fetcher).Crawl(context.Background(), "https://shop.in/", 10)
	require.NoError(t, err)

	for _, url := range []string{"https://shop.in/", "https://shop.in/a", "https://shop.in/b"} {
		require.Equal(t, 1, fetcher.dispatchCount(url, WaitBody), "url %s dispatched more than once", url)
	}
}

func TestFrontierDropsOffSiteLinks(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{pages: map[string]FetchResult{
		"https://shop.in/": page(longContent("root"),
			"https://other.example.net/kids", "mailto:team@shop.in", "/local"),
		"https://shop.in/local": page(longContent("local")),
	}}

	results, err := newTestFrontier(fetcher).Crawl(context.Background(), "https://shop.in/", 10)
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, url := range fetcher.fetched {
		require.True(t, strings.HasPrefix(url, "https://shop.in/"))
	}
}

func TestFrontierRetriesShortContent(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{
		pages: map[string]FetchResult{
			"https://shop.in/": page(longContent("hydrated")),
		},
		shortFirst: map[string]bool{"https://shop.in/": true},
	}

	results, err := newTestFrontier(fetcher).Crawl(context.Background(), "https://shop.in/", 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Contains(t, results[0].Content, "hydrated")
	// One body-wait fetch plus one settled-wait retry.
	require.Equal(t, 2, fetcher.dispatchCount("https://shop.in/", WaitBody))
}

func TestFrontierSkipsFailedPage(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{pages: map[string]FetchResult{
		"https://shop.in/":   page(longContent("root"), "/ok", "/broken"),
		"https://shop.in/ok": page(longContent("ok")),
		// /broken is absent, so the fetch reports failure.
	}}

	results, err := newTestFrontier(fetcher).Crawl(context.Background(), "https://shop.in/", 10)
	require.NoError(t, err)
	require.Len(t, results, 2)
}

func TestFrontierReturnsPartialOnFatalFailure(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{
		pages: map[string]FetchResult{
			"https://shop.in/":  page(longContent("root"), "/a", "/b"),
			"https://shop.in/a": page(longContent("a")),
			"https://shop.in/b": page(longContent("b")),
		},
		fatalAfter: 1,
	}

	frontier := NewFrontier(fetcher, NewExclusionPolicy(), Config{
		Concurrency:     1,
		FetchTimeout:    time.Second,
		MinContentChars: 10,
	}, zap.NewNop())

	results, err := frontier.Crawl(context.Background(), "https://shop.in/", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "https://shop.in/", results[0].URL)
}

func TestFrontierDedupesBareOriginAndRoot(t *testing.T) {
	t.Parallel()

	// "/" and the bare origin are the same page and must share one
	// visited-set entry.
	fetcher := &fakeFetcher{pages: map[string]FetchResult{
		"https://shop.in/":  page(longContent("root"), "https://shop.in", "/", "/a"),
		"https://shop.in/a": page(longContent("a"), "https://shop.in/"),
	}}

	results, err := newTestFrontier(fetcher).Crawl(context.Background(), "https://shop.in", 10)
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Equal(t, 1, fetcher.dispatchCount("https://shop.in/", WaitBody))
	require.Equal(t, 0, fetcher.dispatchCount("https://shop.in", WaitBody))
}

func TestFrontierContinuesPastTimedOutPage(t *testing.T) {
	t.Parallel()

	rootPage := `<html><body><p>` + longContent("root") + `</p>
<a href="/slow">slow</a><a href="/fast">fast</a></body></html>`
	fastPage := `<html><body><p>` + longContent("fast") + `</p></body></html>`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/":
			fmt.Fprint(w, rootPage)
		case "/slow":
			select {
			case <-time.After(2 * time.Second):
			case <-r.Context().Done():
				return
			}
			fmt.Fprint(w, fastPage)
		case "/fast":
			fmt.Fprint(w, fastPage)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	fetcher := NewCollyFetcher(CollyConfig{UserAgent: "storesync-test"}, zap.NewNop())
	frontier := NewFrontier(fetcher, NewExclusionPolicy(), Config{
		Concurrency:     3,
		FetchTimeout:    200 * time.Millisecond,
		MinContentChars: 10,
	}, zap.NewNop())

	results, err := frontier.Crawl(context.Background(), server.URL+"/", 10)
	require.NoError(t, err)

	// The slow page times out and is skipped; its sibling still lands.
	urls := make([]string, len(results))
	for i, p := range results {
		urls[i] = p.URL
	}
	require.Contains(t, urls, server.URL+"/")
	require.Contains(t, urls, server.URL+"/fast")
	require.NotContains(t, urls, server.URL+"/slow")
}

func TestFrontierRejectsBadInput(t *testing.T) {
	t.Parallel()

	frontier := newTestFrontier(&fakeFetcher{})
	_, err := frontier.Crawl(context.Background(), "", 5)
	require.Error(t, err)
	_, err = frontier.Crawl(context.Background(), "https://shop.in/", 0)
	require.Error(t, err)
}
