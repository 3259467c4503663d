// Package knowledge defines the knowledge-store boundary and the
// ingestion sink that writes chunked content into it.
package knowledge

import (
	"context"
	"errors"
)

// ErrDeleteUnsupported is returned by DeleteAll when the backing store
// cannot drop its collection.
var ErrDeleteUnsupported = errors.New("knowledge: store does not support deletion")

// Chunk is one unit of ingested text plus its scalar metadata. The
// "source" metadata key is always populated from the originating URL.
type Chunk struct {
	Text     string
	Metadata map[string]any
}

// ScoredChunk pairs a chunk with the store's native distance for a
// query. Lower is more relevant.
type ScoredChunk struct {
	Chunk Chunk
	Score float64
}

// Store is the knowledge-store collaborator. Writes are append-only and
// batched; the store serializes concurrent writers internally.
type Store interface {
	// AddChunks writes one batch of chunks.
	AddChunks(ctx context.Context, chunks []Chunk) error
	// SimilaritySearchWithScore returns up to k nearest chunks by the
	// store's native distance metric, optionally pre-filtered by exact
	// metadata matches.
	SimilaritySearchWithScore(ctx context.Context, query string, k int, filter map[string]any) ([]ScoredChunk, error)
	// DeleteAll removes every chunk, returning how many were deleted
	// when the backend can report it.
	DeleteAll(ctx context.Context) (int, error)
}

// Source returns the chunk's originating URL.
func (c Chunk) Source() string {
	if s, ok := c.Metadata["source"].(string); ok {
		return s
	}
	return ""
}

// ImageRef returns the chunk's stored image URL, if any.
func (c Chunk) ImageRef() string {
	if s, ok := c.Metadata["image_url"].(string); ok {
		return s
	}
	return ""
}
