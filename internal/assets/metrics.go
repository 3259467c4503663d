package assets

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	assetsMirrored = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storesync_assets_mirrored_total",
		Help: "The total number of assets downloaded and durably stored.",
	})
	assetsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storesync_assets_failed_total",
		Help: "The total number of assets that could not be mirrored.",
	})
	assetCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storesync_asset_cache_hits_total",
		Help: "The total number of asset lookups served from the URL cache.",
	})
)
