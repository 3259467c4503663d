// Package syncer orchestrates one store sync end to end: crawl the
// site, extract records from each page, mirror their images, and write
// the results to the knowledge store.
package syncer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/retailradar/storesync/internal/crawler"
	"github.com/retailradar/storesync/internal/extract"
)

// Crawler walks a site breadth-first from a seed URL.
type Crawler interface {
	Crawl(ctx context.Context, seedURL string, maxPages int) ([]crawler.PageResult, error)
}

// Extractor turns page text into structured records.
type Extractor interface {
	Extract(ctx context.Context, pageContent, targetCategory string) ([]extract.Record, error)
}

// AssetPipeline mirrors record images and attaches stored URLs.
type AssetPipeline interface {
	Process(ctx context.Context, records []extract.Record) []extract.Record
}

// Ingestor writes records to the knowledge store.
type Ingestor interface {
	IngestRecords(ctx context.Context, pageURL string, records []extract.Record) (int, error)
}

// Config bounds per-page processing.
type Config struct {
	// PageConcurrency caps how many pages run the extract/mirror/ingest
	// pipeline at once.
	PageConcurrency int
	// PageTimeout bounds one page's pipeline. A page that exceeds it is
	// abandoned, not retried.
	PageTimeout time.Duration
	// RequireImage drops records that never received a stored image URL.
	RequireImage bool
}

// SyncReport summarizes one sync run.
type SyncReport struct {
	PagesCrawled     int
	PagesProcessed   int
	PagesAbandoned   int
	RecordsExtracted int
	RecordsIngested  int
	ChunksWritten    int
}

// Service wires the pipeline stages together.
type Service struct {
	crawler   Crawler
	extractor Extractor
	assets    AssetPipeline
	ingestor  Ingestor
	cfg       Config
	logger    *zap.Logger
}

// New builds a sync service. Zero config fields get working defaults.
func New(c Crawler, e Extractor, a AssetPipeline, i Ingestor, cfg Config, logger *zap.Logger) *Service {
	if cfg.PageConcurrency <= 0 {
		cfg.PageConcurrency = 5
	}
	if cfg.PageTimeout <= 0 {
		cfg.PageTimeout = 60 * time.Second
	}
	return &Service{crawler: c, extractor: e, assets: a, ingestor: i, cfg: cfg, logger: logger}
}

// SyncStore crawls seedURL and runs every fetched page through the
// extract/mirror/ingest pipeline. Individual page failures are logged
// and counted but never abort the sync; only a failed crawl or a
// canceled context returns an error.
func (s *Service) SyncStore(ctx context.Context, seedURL string, maxPages int, targetCategory string) (SyncReport, error) {
	pages, err := s.crawler.Crawl(ctx, seedURL, maxPages)
	if err != nil {
		return SyncReport{}, fmt.Errorf("syncer: crawl %s: %w", seedURL, err)
	}
	s.logger.Info("crawl complete",
		zap.String("seed", seedURL),
		zap.Int("pages", len(pages)))

	report := SyncReport{PagesCrawled: len(pages)}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.PageConcurrency)
	for _, page := range pages {
		g.Go(func() error {
			extracted, ingested, chunks, err := s.processPage(gctx, page, targetCategory)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				report.PagesAbandoned++
				pagesAbandoned.Inc()
				s.logger.Warn("page abandoned", zap.String("url", page.URL), zap.Error(err))
				return nil
			}
			report.PagesProcessed++
			report.RecordsExtracted += extracted
			report.RecordsIngested += ingested
			report.ChunksWritten += chunks
			pagesProcessed.Inc()
			recordsIngested.Add(float64(ingested))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return report, err
	}
	if err := ctx.Err(); err != nil {
		return report, err
	}
	s.logger.Info("sync complete",
		zap.String("seed", seedURL),
		zap.Int("pages_processed", report.PagesProcessed),
		zap.Int("records_ingested", report.RecordsIngested))
	return report, nil
}

func (s *Service) processPage(ctx context.Context, page crawler.PageResult, targetCategory string) (extracted, ingested, chunks int, err error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.PageTimeout)
	defer cancel()

	records, err := s.extractor.Extract(ctx, page.Content, targetCategory)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("extract: %w", err)
	}
	extracted = len(records)
	if extracted == 0 {
		return 0, 0, 0, nil
	}

	records = s.assets.Process(ctx, records)
	if s.cfg.RequireImage {
		records = withImages(records)
	}
	if len(records) == 0 {
		return extracted, 0, 0, nil
	}

	chunks, err = s.ingestor.IngestRecords(ctx, page.URL, records)
	if err != nil {
		return extracted, 0, 0, fmt.Errorf("ingest: %w", err)
	}
	return extracted, len(records), chunks, nil
}

func withImages(records []extract.Record) []extract.Record {
	kept := records[:0]
	for _, r := range records {
		if r.StoredURL != "" {
			kept = append(kept, r)
		}
	}
	return kept
}
