// Package crawler implements the bounded-concurrency crawl frontier and
// the page-fetch drivers behind it.
package crawler

import (
	"context"
	"time"
)

// WaitCondition tells a Fetcher how long to let a page settle before
// reading its content.
type WaitCondition string

const (
	// WaitBody waits until the document body is ready.
	WaitBody WaitCondition = "body"
	// WaitSettled additionally waits until the body has accumulated a
	// meaningful amount of text. Sites serving placeholder shells need
	// the extra settle time.
	WaitSettled WaitCondition = "settled"
)

// Task is one pending unit of crawl work. Created when enqueued,
// consumed exactly once, never mutated.
type Task struct {
	URL   string
	Depth int
}

// PageResult is the frontier's output for one successfully fetched page.
// Immutable after creation.
type PageResult struct {
	URL     string
	Content string
	Links   []string
}

// FetchRequest captures everything needed to fetch one URL.
type FetchRequest struct {
	URL     string
	Wait    WaitCondition
	Timeout time.Duration
}

// FetchResult is returned by a Fetcher implementation. A failed fetch
// reports Success=false with ErrorMessage set; a returned error means
// the fetch session itself is unusable.
type FetchResult struct {
	Success      bool
	Content      string
	Links        []string
	ErrorMessage string
}

// Fetcher fetches a URL and returns cleaned page text plus the raw
// internal links discovered in the document.
type Fetcher interface {
	Fetch(ctx context.Context, request FetchRequest) (FetchResult, error)
}
