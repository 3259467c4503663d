package crawler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// pagesFetched tracks pages successfully fetched and handed downstream.
	pagesFetched = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storesync_pages_fetched_total",
		Help: "The total number of pages successfully fetched by the frontier.",
	})
	// pagesFailed tracks per-page fetch failures that were skipped.
	pagesFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storesync_pages_failed_total",
		Help: "The total number of page fetches that failed and were dropped.",
	})
	// pagesExcluded tracks URLs rejected by the exclusion policy.
	pagesExcluded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storesync_pages_excluded_total",
		Help: "The total number of URLs rejected by the exclusion denylist.",
	})
	// fetchRetries tracks settle-time retries for short content.
	fetchRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storesync_fetch_retries_total",
		Help: "The total number of fetches retried with an extended wait.",
	})
)
