package retrieval

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/retailradar/storesync/internal/knowledge"
)

// scriptedStore returns a fixed scored result set and records the
// filter it was queried with.
type scriptedStore struct {
	results    []knowledge.ScoredChunk
	err        error
	lastK      int
	lastFilter map[string]any
}

func (s *scriptedStore) AddChunks(context.Context, []knowledge.Chunk) error { return nil }

func (s *scriptedStore) SimilaritySearchWithScore(_ context.Context, _ string, k int, filter map[string]any) ([]knowledge.ScoredChunk, error) {
	s.lastK = k
	s.lastFilter = filter
	return s.results, s.err
}

func (s *scriptedStore) DeleteAll(context.Context) (int, error) { return 0, nil }

func chunk(text, source, image string) knowledge.Chunk {
	meta := map[string]any{"source": source}
	if image != "" {
		meta["image_url"] = image
	}
	return knowledge.Chunk{Text: text, Metadata: meta}
}

func TestQueryAppliesThresholdAfterBonuses(t *testing.T) {
	store := &scriptedStore{results: []knowledge.ScoredChunk{
		// 2.4 native, but source match (−0.4) pulls it under 2.2.
		{Chunk: chunk("boosted by source", "https://firstcry.com/toys/1", ""), Score: 2.4},
		// 2.4 native, image bonus (−0.3) still leaves it at 2.1.
		{Chunk: chunk("boosted by image", "https://other.example/2", "img://a"), Score: 2.4},
		// 2.2 native with no bonuses is at the cutoff and must go.
		{Chunk: chunk("at cutoff", "https://other.example/3", ""), Score: 2.2},
		// 3.0 stays out even with both bonuses.
		{Chunk: chunk("hopeless", "https://firstcry.com/toys/4", "img://b"), Score: 3.0},
	}}
	eng := NewEngine(store, zap.NewNop())

	got, err := eng.Query(context.Background(), "wooden toys", Params{PreferredSource: "firstcry.com"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "boosted by source", got[0].Chunk.Text)
	require.InDelta(t, 2.0, got[0].Adjusted, 1e-9)
	require.InDelta(t, 2.4, got[0].Native, 1e-9)
	require.Equal(t, "boosted by image", got[1].Chunk.Text)
	require.InDelta(t, 2.1, got[1].Adjusted, 1e-9)
}

func TestQueryResultsAscendingAndDeduped(t *testing.T) {
	dup := chunk("same chunk", "https://a.example/p", "")
	store := &scriptedStore{results: []knowledge.ScoredChunk{
		{Chunk: chunk("worst kept", "https://a.example/x", ""), Score: 1.9},
		{Chunk: dup, Score: 1.2},
		{Chunk: dup, Score: 1.5},
		{Chunk: chunk("best", "https://a.example/y", ""), Score: 0.4},
	}}
	eng := NewEngine(store, zap.NewNop())

	got, err := eng.Query(context.Background(), "anything", Params{})
	require.NoError(t, err)
	require.Len(t, got, 3)
	require.Equal(t, "best", got[0].Chunk.Text)
	require.Equal(t, "same chunk", got[1].Chunk.Text)
	require.InDelta(t, 1.2, got[1].Adjusted, 1e-9)
	require.Equal(t, "worst kept", got[2].Chunk.Text)
	for i := 1; i < len(got); i++ {
		require.LessOrEqual(t, got[i-1].Adjusted, got[i].Adjusted)
	}
}

func TestQueryCategoryFilterAndDefaults(t *testing.T) {
	store := &scriptedStore{}
	eng := NewEngine(store, zap.NewNop())

	_, err := eng.Query(context.Background(), "blocks", Params{Category: "toys"})
	require.NoError(t, err)
	require.Equal(t, DefaultK, store.lastK)
	require.Equal(t, map[string]any{"category": "toys"}, store.lastFilter)

	_, err = eng.Query(context.Background(), "blocks", Params{})
	require.NoError(t, err)
	require.Nil(t, store.lastFilter)
}

func TestQuerySourceMatchIsCaseInsensitive(t *testing.T) {
	store := &scriptedStore{results: []knowledge.ScoredChunk{
		{Chunk: chunk("x", "https://Shop.Example.IN/toys", ""), Score: 2.4},
	}}
	eng := NewEngine(store, zap.NewNop())

	got, err := eng.Query(context.Background(), "q", Params{PreferredSource: "shop.example.in"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.InDelta(t, 2.0, got[0].Adjusted, 1e-9)
}

func TestQueryEmptyTextAndStoreError(t *testing.T) {
	eng := NewEngine(&scriptedStore{}, zap.NewNop())
	_, err := eng.Query(context.Background(), "   ", Params{})
	require.Error(t, err)

	boom := errors.New("backend down")
	eng = NewEngine(&scriptedStore{err: boom}, zap.NewNop())
	_, err = eng.Query(context.Background(), "q", Params{})
	require.ErrorIs(t, err, boom)
}
