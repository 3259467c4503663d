package knowledge

import (
	"context"
	"strings"
	"sync"
)

// MemoryStore is an in-memory Store used in tests and for local runs
// without a vector database. Search scores substring matches with a
// small synthetic distance so scored retrieval stays exercisable.
type MemoryStore struct {
	mu     sync.Mutex
	chunks []Chunk

	// ScoreFn overrides the synthetic scorer when set. It receives the
	// query and a candidate chunk and returns the distance.
	ScoreFn func(query string, c Chunk) float64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) AddChunks(_ context.Context, chunks []Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chunks = append(s.chunks, chunks...)
	return nil
}

func (s *MemoryStore) SimilaritySearchWithScore(_ context.Context, query string, k int, filter map[string]any) ([]ScoredChunk, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []ScoredChunk
	for _, c := range s.chunks {
		if !matchesFilter(c, filter) {
			continue
		}
		out = append(out, ScoredChunk{Chunk: c, Score: s.score(query, c)})
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].Score < out[j-1].Score; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	if len(out) > k {
		out = out[:k]
	}
	return out, nil
}

func (s *MemoryStore) DeleteAll(context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.chunks)
	s.chunks = nil
	return n, nil
}

// Len reports how many chunks the store holds.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.chunks)
}

// Chunks returns a copy of the stored chunks in insertion order.
func (s *MemoryStore) Chunks() []Chunk {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Chunk, len(s.chunks))
	copy(out, s.chunks)
	return out
}

func (s *MemoryStore) score(query string, c Chunk) float64 {
	if s.ScoreFn != nil {
		return s.ScoreFn(query, c)
	}
	if strings.Contains(strings.ToLower(c.Text), strings.ToLower(query)) {
		return 0.5
	}
	return 1.5
}

func matchesFilter(c Chunk, filter map[string]any) bool {
	for key, want := range filter {
		if c.Metadata[key] != want {
			return false
		}
	}
	return true
}
