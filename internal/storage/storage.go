// Package storage defines persistence for reference question embeddings.
package storage

import "context"

// EmbeddingStore persists embeddings keyed by model key and text. The model key
// must change whenever the model, tokenizer or pooling changes, so vectors from
// different configurations never mix.
type EmbeddingStore interface {
	// GetEmbeddings returns the stored vectors for texts; missing texts are absent from the map.
	GetEmbeddings(ctx context.Context, modelKey string, texts []string) (map[string][]float32, error)
	// PutEmbeddings stores vectors for texts, replacing existing entries.
	PutEmbeddings(ctx context.Context, modelKey string, texts []string, vectors [][]float32) error
	// CountEmbeddings returns the number of vectors stored for modelKey.
	CountEmbeddings(ctx context.Context, modelKey string) (int64, error)

	Close() error
}
