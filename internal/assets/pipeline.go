// Package assets resolves, downloads, validates, and durably mirrors the
// media referenced by extracted records. Upstream image URLs are
// frequently transient, rate-limited, or geofenced, so nothing is served
// to a consumer unless it has been re-hosted first.
package assets

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/retailradar/storesync/internal/extract"
	"github.com/retailradar/storesync/internal/storage"
	"github.com/retailradar/storesync/internal/urlcache"
	"github.com/retailradar/storesync/internal/urlutil"
)

// maxAssetBytes caps a single download so a mislabelled video or tarball
// cannot blow up memory.
const maxAssetBytes = 20 << 20

// Config controls download behavior and storage-key layout.
type Config struct {
	DownloadTimeout time.Duration
	ProxyURL        string
	KeyPrefix       string
}

// Pipeline attaches durably stored asset URLs to extracted records.
type Pipeline struct {
	client *http.Client
	cache  urlcache.Cache
	blobs  storage.BlobStore
	cfg    Config
	logger *zap.Logger

	// newKeySuffix and repairURL are swapped out in tests.
	newKeySuffix func() string
	repairURL    func(string) string
}

// New builds a Pipeline. ProxyURL, when set, routes all downloads
// through the given upstream proxy.
func New(cache urlcache.Cache, blobs storage.BlobStore, cfg Config, logger *zap.Logger) (*Pipeline, error) {
	if cfg.DownloadTimeout <= 0 {
		cfg.DownloadTimeout = 10 * time.Second
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "products"
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.ProxyURL != "" {
		proxy, err := url.Parse(cfg.ProxyURL)
		if err != nil {
			return nil, fmt.Errorf("parse proxy url: %w", err)
		}
		transport.Proxy = http.ProxyURL(proxy)
	}

	return &Pipeline{
		client: &http.Client{
			Timeout:   cfg.DownloadTimeout,
			Transport: transport,
		},
		cache:        cache,
		blobs:        blobs,
		cfg:          cfg,
		logger:       logger,
		newKeySuffix: uuid.NewString,
		repairURL:    urlutil.RepairImageURL,
	}, nil
}

// Process mirrors each record's image and sets StoredURL on success.
// Records whose asset could not be mirrored come back with StoredURL
// empty; an individual asset failure is never a hard error.
func (p *Pipeline) Process(ctx context.Context, records []extract.Record) []extract.Record {
	processed := make([]extract.Record, 0, len(records))
	for _, record := range records {
		if record.ImageURL != nil {
			p.processOne(ctx, &record)
		}
		processed = append(processed, record)
	}
	return processed
}

func (p *Pipeline) processOne(ctx context.Context, record *extract.Record) {
	original, err := urlutil.Normalize(*record.ImageURL)
	if err != nil {
		p.logger.Debug("unusable image url", zap.String("url", *record.ImageURL), zap.Error(err))
		return
	}
	cleaned := p.repairURL(original)
	record.ImageURL = &cleaned

	if stored, ok, err := p.cache.Get(ctx, cleaned); err != nil {
		p.logger.Warn("asset cache lookup failed", zap.String("url", cleaned), zap.Error(err))
	} else if ok {
		assetCacheHits.Inc()
		record.StoredURL = stored
		return
	}

	if !strings.HasPrefix(cleaned, "http") || !urlutil.HasImageExtension(cleaned) {
		p.logger.Debug("skipping non-image asset", zap.String("url", cleaned))
		return
	}

	body, contentType, fetchedURL, err := p.download(ctx, cleaned)
	if err != nil && cleaned != original {
		// Some CDNs only serve the mangled thumbnail form the page
		// actually referenced. Fall back to the original URL once.
		p.logger.Warn("cleaned url failed, retrying original",
			zap.String("cleaned", cleaned),
			zap.String("original", original),
			zap.Error(err),
		)
		body, contentType, fetchedURL, err = p.download(ctx, original)
	}
	if err != nil {
		assetsFailed.Inc()
		p.logger.Warn("asset download failed", zap.String("url", cleaned), zap.Error(err))
		return
	}

	key := fmt.Sprintf("%s/%s.%s", p.cfg.KeyPrefix, p.newKeySuffix(), keyExtension(fetchedURL))
	stored, err := p.blobs.Upload(ctx, key, contentType, body)
	if err != nil {
		assetsFailed.Inc()
		p.logger.Warn("asset upload failed", zap.String("url", fetchedURL), zap.Error(err))
		return
	}

	if err := p.cache.Set(ctx, cleaned, stored); err != nil {
		p.logger.Warn("asset cache write failed", zap.String("url", cleaned), zap.Error(err))
	}
	assetsMirrored.Inc()
	record.StoredURL = stored
}

// download fetches rawURL with a rotated browser identity and returns
// the body, content type, and the URL that actually succeeded.
func (p *Pipeline) download(ctx context.Context, rawURL string) ([]byte, string, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", "", fmt.Errorf("build request: %w", err)
	}
	req.Header = browserHeaders(rawURL)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, "", "", fmt.Errorf("fetch asset: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, "", "", fmt.Errorf("asset status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxAssetBytes))
	if err != nil {
		return nil, "", "", fmt.Errorf("read asset body: %w", err)
	}
	if len(body) == 0 {
		return nil, "", "", fmt.Errorf("empty asset body")
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/jpeg"
	}
	return body, contentType, rawURL, nil
}

// keyExtension pulls a storage-key extension off the fetched URL,
// falling back to jpg when the path yields something implausible.
func keyExtension(rawURL string) string {
	path := rawURL
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	dot := strings.LastIndex(path, ".")
	if dot < 0 || dot == len(path)-1 {
		return "jpg"
	}
	ext := strings.ToLower(path[dot+1:])
	if len(ext) > 4 || strings.Contains(ext, "/") {
		return "jpg"
	}
	return ext
}
