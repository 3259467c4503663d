package knowledge

import (
	"context"

	"github.com/tmc/langchaingo/schema"
	"github.com/tmc/langchaingo/vectorstores"
	"go.uber.org/zap"
)

// collectionRemover is implemented by vector-store backends that can
// drop their whole collection (e.g. chroma).
type collectionRemover interface {
	RemoveCollection() error
}

// LangchainStore adapts a langchaingo vector store to the Store
// interface. Scores are passed through as the backend's native
// distances.
type LangchainStore struct {
	store  vectorstores.VectorStore
	logger *zap.Logger
}

// NewLangchainStore wraps store. The logger may not be nil.
func NewLangchainStore(store vectorstores.VectorStore, logger *zap.Logger) *LangchainStore {
	return &LangchainStore{store: store, logger: logger}
}

func (s *LangchainStore) AddChunks(ctx context.Context, chunks []Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	docs := make([]schema.Document, len(chunks))
	for i, c := range chunks {
		docs[i] = schema.Document{PageContent: c.Text, Metadata: c.Metadata}
	}
	_, err := s.store.AddDocuments(ctx, docs)
	return err
}

func (s *LangchainStore) SimilaritySearchWithScore(ctx context.Context, query string, k int, filter map[string]any) ([]ScoredChunk, error) {
	var opts []vectorstores.Option
	if len(filter) > 0 {
		opts = append(opts, vectorstores.WithFilters(filter))
	}
	docs, err := s.store.SimilaritySearch(ctx, query, k, opts...)
	if err != nil {
		return nil, err
	}
	out := make([]ScoredChunk, len(docs))
	for i, doc := range docs {
		out[i] = ScoredChunk{
			Chunk: Chunk{Text: doc.PageContent, Metadata: doc.Metadata},
			Score: float64(doc.Score),
		}
	}
	return out, nil
}

// DeleteAll drops the backing collection when the backend supports it.
// Backends do not report a count, so the count is zero on success.
func (s *LangchainStore) DeleteAll(ctx context.Context) (int, error) {
	remover, ok := s.store.(collectionRemover)
	if !ok {
		return 0, ErrDeleteUnsupported
	}
	if err := remover.RemoveCollection(); err != nil {
		return 0, err
	}
	s.logger.Info("knowledge collection removed")
	return 0, nil
}
