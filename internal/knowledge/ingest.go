package knowledge

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/tmc/langchaingo/textsplitter"
	"go.uber.org/zap"

	"github.com/retailradar/storesync/internal/extract"
)

// Markdown and inline HTML image references carry no retrievable text
// and bloat embeddings, so they are removed before chunking.
var (
	markdownImages = regexp.MustCompile(`!\[[^\]]*\]\([^)]*\)`)
	htmlImages     = regexp.MustCompile(`(?i)<img[^>]*>`)
)

// IngestConfig controls chunking and write batching.
type IngestConfig struct {
	ChunkSize    int
	ChunkOverlap int
	BatchSize    int
}

// Ingestor chunks extracted records and writes them to the knowledge
// store in batches.
type Ingestor struct {
	store    Store
	splitter textsplitter.TextSplitter
	cfg      IngestConfig
	logger   *zap.Logger
}

// NewIngestor builds an ingestor over store with the given chunking
// parameters.
func NewIngestor(store Store, cfg IngestConfig, logger *zap.Logger) *Ingestor {
	return &Ingestor{
		store: store,
		splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(cfg.ChunkSize),
			textsplitter.WithChunkOverlap(cfg.ChunkOverlap),
		),
		cfg:    cfg,
		logger: logger,
	}
}

// IngestRecords chunks each record's description and writes the chunks
// with per-record metadata. It returns the number of chunks written.
func (i *Ingestor) IngestRecords(ctx context.Context, pageURL string, records []extract.Record) (int, error) {
	var chunks []Chunk
	for _, rec := range records {
		texts, err := i.split(rec.Description())
		if err != nil {
			return 0, fmt.Errorf("splitting record %q: %w", rec.Name, err)
		}
		meta := recordMetadata(pageURL, rec)
		for _, text := range texts {
			chunks = append(chunks, Chunk{Text: text, Metadata: meta})
		}
	}
	if err := i.write(ctx, chunks); err != nil {
		return 0, err
	}
	i.logger.Info("records ingested",
		zap.String("page", pageURL),
		zap.Int("records", len(records)),
		zap.Int("chunks", len(chunks)))
	return len(chunks), nil
}

// IngestPage chunks raw page text and writes it with page-level
// metadata. Used for pages that carry useful prose but no structured
// records.
func (i *Ingestor) IngestPage(ctx context.Context, pageURL, content string, extra map[string]any) (int, error) {
	texts, err := i.split(content)
	if err != nil {
		return 0, fmt.Errorf("splitting page %s: %w", pageURL, err)
	}
	meta := map[string]any{"source": pageURL}
	for k, v := range extra {
		meta[k] = v
	}
	chunks := make([]Chunk, 0, len(texts))
	for _, text := range texts {
		chunks = append(chunks, Chunk{Text: text, Metadata: meta})
	}
	if err := i.write(ctx, chunks); err != nil {
		return 0, err
	}
	return len(chunks), nil
}

func (i *Ingestor) split(text string) ([]string, error) {
	text = markdownImages.ReplaceAllString(text, "")
	text = htmlImages.ReplaceAllString(text, "")
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}
	return i.splitter.SplitText(text)
}

func (i *Ingestor) write(ctx context.Context, chunks []Chunk) error {
	batch := i.cfg.BatchSize
	if batch <= 0 {
		batch = len(chunks)
	}
	for start := 0; start < len(chunks); start += batch {
		end := start + batch
		if end > len(chunks) {
			end = len(chunks)
		}
		if err := i.store.AddChunks(ctx, chunks[start:end]); err != nil {
			return fmt.Errorf("writing chunk batch: %w", err)
		}
	}
	return nil
}

// recordMetadata maps a record onto flat chunk metadata. The source key
// prefers the record's own URL and falls back to the page it came from.
func recordMetadata(pageURL string, rec extract.Record) map[string]any {
	source := pageURL
	if rec.SourceURL != nil && *rec.SourceURL != "" {
		source = *rec.SourceURL
	}
	meta := map[string]any{
		"source": source,
		"name":   rec.Name,
	}
	if rec.Brand != "" {
		meta["brand"] = rec.Brand
	}
	if rec.Category != "" {
		meta["category"] = rec.Category
	}
	if rec.Subcategory != "" {
		meta["subcategory"] = rec.Subcategory
	}
	if rec.AgeGroup != "" {
		meta["age_group"] = rec.AgeGroup
	}
	if rec.StoredURL != "" {
		meta["image_url"] = rec.StoredURL
	}
	return meta
}
