package vector

import "context"

// VectorIndex defines vector storage and similarity search.
type VectorIndex interface {
	Add(ctx context.Context, ids []string, vectors [][]float32) error
	Search(ctx context.Context, query []float32, k int) ([]*VectorResult, error)
	Size() int
	Close() error
}

// VectorResult is a single vector search hit. Position is the insertion order of the entry.
type VectorResult struct {
	ID       string
	Position int
	Score    float64 // cosine similarity in [-1, 1]
}
