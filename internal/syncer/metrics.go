package syncer

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	pagesProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storesync_sync_pages_processed_total",
		Help: "Pages that completed the extract/mirror/ingest pipeline.",
	})
	pagesAbandoned = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storesync_sync_pages_abandoned_total",
		Help: "Pages abandoned due to per-page timeout or pipeline error.",
	})
	recordsIngested = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storesync_sync_records_ingested_total",
		Help: "Product records written to the knowledge store.",
	})
)
