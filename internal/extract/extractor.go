package extract

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/retailradar/storesync/internal/urlutil"
)

const (
	extractSystem = "You are a structured data extractor. Return a JSON list of products. " +
		"Return ONLY the JSON list. NEVER hallucinate URLs."
	discoverSystem = "You are a retail discovery expert. Output a JSON list of REAL store URLs. " +
		"NEVER hallucinate URLs. Return ONLY the JSON list."
)

// Config controls extraction input handling.
type Config struct {
	// ContentBudget truncates page text before it is sent, to stay
	// under the service's per-call token limit.
	ContentBudget int
}

// Extractor converts raw page text into product records through the
// resilient caller.
type Extractor struct {
	caller *Caller
	cfg    Config
	logger *zap.Logger
}

// New constructs an Extractor.
func New(caller *Caller, cfg Config, logger *zap.Logger) *Extractor {
	if cfg.ContentBudget <= 0 {
		cfg.ContentBudget = 8000
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{caller: caller, cfg: cfg, logger: logger}
}

// Extract returns the product records found in pageContent, possibly
// empty and never nil on success. Malformed model output degrades to an
// empty list; only a retry-exhausted service error is returned.
func (e *Extractor) Extract(ctx context.Context, pageContent, targetCategory string) ([]Record, error) {
	if strings.TrimSpace(pageContent) == "" {
		return []Record{}, nil
	}
	if targetCategory == "" {
		targetCategory = "relevant"
	}

	prompt := fmt.Sprintf(
		"Extract all %s products from this page text. For each product include: "+
			"name, price (convert to a number), currency, age_group, brand, absolute image_url, "+
			"and the direct product page url if available.\n\n"+
			"IMPORTANT: Only extract URLs that are EXPLICITLY present in the text. "+
			"NEVER make up URLs like example.com. If no product URL is found, omit the url field.\n\n"+
			"Page text:\n%s",
		targetCategory, truncate(pageContent, e.cfg.ContentBudget),
	)

	raw, err := e.caller.Generate(ctx, extractSystem, prompt)
	if err != nil {
		return nil, err
	}

	recovered, ok := RecoverJSON(raw)
	if !ok {
		e.logger.Warn("extraction output unparsable, yielding no records",
			zap.Int("response_chars", len(raw)))
		return []Record{}, nil
	}
	records := decodeList[Record](recovered, "products")
	for i := range records {
		sanitizeRecord(&records[i])
	}
	if records == nil {
		records = []Record{}
	}
	return records, nil
}

// DiscoverStores asks the reasoning service for real storefront URLs for
// a location and product type, dropping anything hallucinated.
func (e *Extractor) DiscoverStores(ctx context.Context, location, productType string) ([]string, error) {
	prompt := fmt.Sprintf(
		"Find the best 5 %s retail store website URLs in %s. "+
			"IMPORTANT: Only provide valid, direct, real online shopping URLs. "+
			"NEVER provide example.com or placeholder URLs. Output ONLY a JSON list.",
		productType, location,
	)

	raw, err := e.caller.Generate(ctx, discoverSystem, prompt)
	if err != nil {
		return nil, err
	}

	recovered, ok := RecoverJSON(raw)
	if !ok {
		return []string{}, nil
	}
	candidates := decodeList[string](recovered, "urls")
	valid := make([]string, 0, len(candidates))
	for _, u := range candidates {
		if !urlutil.IsSentinel(u) && strings.HasPrefix(u, "http") {
			valid = append(valid, u)
		}
	}
	return valid, nil
}

// sanitizeRecord nulls hallucinated URL fields instead of dropping the
// whole record; the rest of the extraction is usually still good.
func sanitizeRecord(r *Record) {
	if r.ImageURL != nil && urlutil.IsSentinel(*r.ImageURL) {
		r.ImageURL = nil
	}
	if r.SourceURL != nil && urlutil.IsSentinel(*r.SourceURL) {
		r.SourceURL = nil
	}
}

// truncate cuts s to at most budget runes without splitting a rune.
func truncate(s string, budget int) string {
	if len(s) <= budget {
		return s
	}
	runes := []rune(s)
	if len(runes) <= budget {
		return s
	}
	return string(runes[:budget])
}
