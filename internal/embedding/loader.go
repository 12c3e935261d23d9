package embedding

import (
	"context"
	"fmt"

	"github.com/hyperjump/navmatch/internal/artifacts"
	"github.com/hyperjump/navmatch/internal/config"
)

// NewONNXLoader returns a Loader that fetches the configured model's artifacts
// if they are missing, reads the WordPiece vocabulary and opens an ONNX session.
// Every failure is reported as a *ModelLoadError.
func NewONNXLoader(cfg *config.EmbeddingConfig, fetcher *artifacts.Fetcher) Loader {
	return func(ctx context.Context) (Embedder, error) {
		fail := func(err error) (Embedder, error) {
			return nil, &ModelLoadError{Model: cfg.Model, Err: err}
		}
		pooler, err := NewPooler(cfg.Pooling)
		if err != nil {
			return fail(err)
		}
		set, err := artifacts.Resolve(cfg)
		if err != nil {
			return fail(err)
		}
		if err := fetcher.Ensure(ctx, set); err != nil {
			return fail(fmt.Errorf("fetch artifacts: %w", err))
		}
		vocab, err := LoadVocab(set.VocabPath)
		if err != nil {
			return fail(err)
		}
		emb, err := NewONNXEmbedder(ONNXOptions{
			ModelPath:          set.ModelPath,
			RuntimeLibraryPath: cfg.RuntimeLibraryPath,
			OutputName:         cfg.OutputName,
			Dimensions:         cfg.Dimensions,
			MaxTokens:          cfg.MaxTokens,
			CacheSize:          cfg.CacheSize,
			Tokenizer:          NewWordPieceTokenizer(vocab, cfg.LowercaseOrDefault()),
			Pooler:             pooler,
		})
		if err != nil {
			return fail(err)
		}
		return emb, nil
	}
}
