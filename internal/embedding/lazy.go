package embedding

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/navmatch/pkg/utils"
)

// Loader constructs the underlying embedder. It runs at most once successfully
// per LazyEmbedder.
type Loader func(ctx context.Context) (Embedder, error)

// LazyEmbedder defers model initialization until the first embedding request
// and then reuses the same handle for the rest of the process. Concurrent first
// calls block on a single initialization. A failed load is reported as a
// *ModelLoadError and is not remembered, so a later call starts a fresh attempt.
type LazyEmbedder struct {
	model      string
	dimensions int
	load       Loader
	logger     *zap.Logger

	mu      sync.Mutex
	current atomic.Pointer[loadedEmbedder]
	loads   atomic.Int64
}

type loadedEmbedder struct {
	Embedder
}

// LazyOption configures a LazyEmbedder.
type LazyOption func(*LazyEmbedder)

// WithLazyLogger sets the logger used for model load notifications.
func WithLazyLogger(l *zap.Logger) LazyOption {
	return func(e *LazyEmbedder) { e.logger = l }
}

// NewLazyEmbedder returns an embedder that calls load on first use. model names
// the model in logs and errors; dimensions is reported before the model loads.
func NewLazyEmbedder(model string, dimensions int, load Loader, opts ...LazyOption) *LazyEmbedder {
	e := &LazyEmbedder{
		model:      model,
		dimensions: dimensions,
		load:       load,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = utils.OrNop(e.logger)
	return e
}

func (e *LazyEmbedder) get(ctx context.Context) (Embedder, error) {
	if l := e.current.Load(); l != nil {
		return l.Embedder, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if l := e.current.Load(); l != nil {
		return l.Embedder, nil
	}

	e.logger.Info("loading embedding model", zap.String("model", e.model))
	start := time.Now()
	// Detached from caller cancellation; the loaded model outlives the request.
	inner, err := e.load(context.WithoutCancel(ctx))
	if err == nil && inner == nil {
		err = errors.New("loader returned no embedder")
	}
	if err != nil {
		e.logger.Error("embedding model load failed", zap.String("model", e.model), zap.Error(err))
		var loadErr *ModelLoadError
		if errors.As(err, &loadErr) {
			return nil, err
		}
		return nil, &ModelLoadError{Model: e.model, Err: err}
	}
	e.current.Store(&loadedEmbedder{inner})
	e.loads.Add(1)
	e.logger.Info("embedding model loaded",
		zap.String("model", e.model),
		zap.Duration("duration", time.Since(start)),
	)
	return inner, nil
}

// Embed returns the embedding for text, loading the model first if needed.
func (e *LazyEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	inner, err := e.get(ctx)
	if err != nil {
		return nil, err
	}
	return inner.Embed(ctx, text)
}

// EmbedBatch returns embeddings for texts, loading the model first if needed.
func (e *LazyEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	inner, err := e.get(ctx)
	if err != nil {
		return nil, err
	}
	return inner.EmbedBatch(ctx, texts)
}

// Dimensions returns the loaded model's dimension, or the configured one before load.
func (e *LazyEmbedder) Dimensions() int {
	if l := e.current.Load(); l != nil {
		return l.Dimensions()
	}
	return e.dimensions
}

// Model returns the model identifier.
func (e *LazyEmbedder) Model() string {
	return e.model
}

// Loaded reports whether the model has been initialized.
func (e *LazyEmbedder) Loaded() bool {
	return e.current.Load() != nil
}

// Loads returns the number of successful model initializations (0 or 1).
func (e *LazyEmbedder) Loads() int64 {
	return e.loads.Load()
}

// Close releases the loaded model, if any.
func (e *LazyEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	l := e.current.Load()
	if l == nil {
		return nil
	}
	return l.Close()
}
