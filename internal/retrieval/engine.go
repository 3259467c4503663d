// Package retrieval answers free-text queries against the knowledge
// store, re-ranking the store's native distances with domain heuristics
// before applying a relevance cutoff.
package retrieval

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/retailradar/storesync/internal/knowledge"
)

// Params controls one query. Zero-valued fields fall back to the
// package defaults via Normalize.
type Params struct {
	// Threshold is the cutoff on the adjusted distance: results at or
	// above it are discarded.
	Threshold float64
	// K is how many nearest chunks to pull from the store before
	// re-ranking.
	K int
	// Category, when set, restricts the search to chunks whose category
	// metadata matches exactly.
	Category string
	// PreferredSource boosts chunks whose source URL contains this
	// fragment, case-insensitively.
	PreferredSource string
	// SourceBonus and ImageBonus are subtracted from the native
	// distance when the corresponding heuristic fires.
	SourceBonus float64
	ImageBonus  float64
}

// Default re-ranking parameters. Distances are L2-style, lower is
// better, so bonuses subtract.
const (
	DefaultThreshold   = 2.2
	DefaultK           = 25
	DefaultSourceBonus = 0.4
	DefaultImageBonus  = 0.3
)

// Normalize fills unset numeric fields with the package defaults.
func (p Params) Normalize() Params {
	if p.Threshold == 0 {
		p.Threshold = DefaultThreshold
	}
	if p.K <= 0 {
		p.K = DefaultK
	}
	if p.SourceBonus == 0 {
		p.SourceBonus = DefaultSourceBonus
	}
	if p.ImageBonus == 0 {
		p.ImageBonus = DefaultImageBonus
	}
	return p
}

// Result is one retrieved chunk with both its store-native distance and
// the adjusted distance the ranking used.
type Result struct {
	Chunk    knowledge.Chunk
	Native   float64
	Adjusted float64
}

// Engine runs scored retrieval over a knowledge store.
type Engine struct {
	store  knowledge.Store
	logger *zap.Logger
}

// NewEngine builds an engine over store.
func NewEngine(store knowledge.Store, logger *zap.Logger) *Engine {
	return &Engine{store: store, logger: logger}
}

// Query fetches the k nearest chunks for text, applies the source and
// image bonuses, drops everything at or beyond the threshold, and
// returns the survivors ordered best-first. Duplicate chunks (same text
// and source) keep only their best-ranked occurrence.
func (e *Engine) Query(ctx context.Context, text string, p Params) ([]Result, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("retrieval: empty query")
	}
	p = p.Normalize()

	var filter map[string]any
	if p.Category != "" {
		filter = map[string]any{"category": p.Category}
	}
	scored, err := e.store.SimilaritySearchWithScore(ctx, text, p.K, filter)
	if err != nil {
		return nil, fmt.Errorf("retrieval: search: %w", err)
	}

	results := make([]Result, 0, len(scored))
	for _, sc := range scored {
		adjusted := e.adjust(sc, p)
		if adjusted >= p.Threshold {
			continue
		}
		results = append(results, Result{Chunk: sc.Chunk, Native: sc.Score, Adjusted: adjusted})
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Adjusted < results[j].Adjusted
	})
	results = dedupe(results)

	e.logger.Debug("query ranked",
		zap.String("query", text),
		zap.Int("candidates", len(scored)),
		zap.Int("kept", len(results)))
	return results, nil
}

func (e *Engine) adjust(sc knowledge.ScoredChunk, p Params) float64 {
	adjusted := sc.Score
	if p.PreferredSource != "" &&
		strings.Contains(strings.ToLower(sc.Chunk.Source()), strings.ToLower(p.PreferredSource)) {
		adjusted -= p.SourceBonus
	}
	if sc.Chunk.ImageRef() != "" {
		adjusted -= p.ImageBonus
	}
	return adjusted
}

// dedupe keeps the first (best-ranked) occurrence of each text+source
// pair. Input must already be sorted.
func dedupe(results []Result) []Result {
	seen := make(map[string]struct{}, len(results))
	out := results[:0]
	for _, r := range results {
		key := r.Chunk.Source() + "\x00" + r.Chunk.Text
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, r)
	}
	return out
}
