// Package matcher maps free-form text to the closest canonical reference question.
package matcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/hyperjump/navmatch/internal/config"
	"github.com/hyperjump/navmatch/internal/embedding"
	"github.com/hyperjump/navmatch/internal/models"
	"github.com/hyperjump/navmatch/internal/questions"
	"github.com/hyperjump/navmatch/internal/storage"
	"github.com/hyperjump/navmatch/internal/vector"
	"github.com/hyperjump/navmatch/pkg/utils"
)

// Matcher scores a query against every reference question by cosine similarity
// and accepts the best one when its score exceeds the threshold. The reference
// set and its embeddings are loaded once, on first use, and never change; only
// the query is embedded per call.
type Matcher struct {
	embedder  embedding.Embedder
	source    questions.Source
	threshold float64
	store     storage.EmbeddingStore
	modelKey  string
	logger    *zap.Logger

	mu   sync.Mutex
	refs atomic.Pointer[referenceSet]
}

// referenceSet is immutable once published. index is nil for an empty set.
type referenceSet struct {
	questions []string
	index     vector.VectorIndex
}

// Option configures a Matcher.
type Option func(*Matcher)

// WithThreshold sets the acceptance threshold (default 0.7). A match requires
// a similarity strictly greater than the threshold.
func WithThreshold(threshold float64) Option {
	return func(m *Matcher) { m.threshold = threshold }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(m *Matcher) { m.logger = l }
}

// WithStore persists reference embeddings under modelKey so restarts skip
// recomputing them. modelKey must identify the model configuration.
func WithStore(store storage.EmbeddingStore, modelKey string) Option {
	return func(m *Matcher) {
		m.store = store
		m.modelKey = modelKey
	}
}

// New creates a Matcher. Nothing is loaded until the first call that needs it.
func New(embedder embedding.Embedder, source questions.Source, opts ...Option) *Matcher {
	m := &Matcher{
		embedder:  embedder,
		source:    source,
		threshold: config.DefaultThreshold,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = utils.OrNop(m.logger)
	return m
}

// Threshold returns the acceptance threshold.
func (m *Matcher) Threshold() float64 {
	return m.threshold
}

// Match returns the best matching reference question and true, or "" and
// false when no reference scores above the threshold.
func (m *Matcher) Match(ctx context.Context, query string) (string, bool, error) {
	res, err := m.Evaluate(ctx, query)
	if err != nil {
		return "", false, err
	}
	return res.Question, res.Matched, nil
}

// Evaluate is Match with the score and threshold attached. Among references
// with equal top scores the one loaded first wins.
func (m *Matcher) Evaluate(ctx context.Context, query string) (*models.MatchResult, error) {
	res := &models.MatchResult{Query: query, Threshold: m.threshold}
	refs, err := m.references(ctx)
	if err != nil {
		return nil, err
	}
	if refs.index == nil {
		m.logger.Debug("no reference questions; skipping match", zap.String("query", utils.Truncate(query, 80)))
		return res, nil
	}

	queryVec, err := m.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	top, err := refs.index.Search(ctx, queryVec, 1)
	if err != nil {
		return nil, fmt.Errorf("score references: %w", err)
	}
	if len(top) == 0 {
		return res, nil
	}
	res.Score = top[0].Score
	if top[0].Score > m.threshold {
		res.Question = refs.questions[top[0].Position]
		res.Matched = true
	}
	m.logger.Debug("match evaluated",
		zap.String("query", utils.Truncate(query, 80)),
		zap.String("best", refs.questions[top[0].Position]),
		zap.Float64("score", top[0].Score),
		zap.Float64("threshold", m.threshold),
		zap.Bool("matched", res.Matched),
	)
	return res, nil
}

// Candidates returns up to k reference questions ordered by similarity to
// query, best first; ties keep load order. The threshold is not applied.
func (m *Matcher) Candidates(ctx context.Context, query string, k int) ([]models.Candidate, error) {
	refs, err := m.references(ctx)
	if err != nil {
		return nil, err
	}
	if refs.index == nil || k <= 0 {
		return []models.Candidate{}, nil
	}
	queryVec, err := m.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	hits, err := refs.index.Search(ctx, queryVec, k)
	if err != nil {
		return nil, fmt.Errorf("score references: %w", err)
	}
	out := make([]models.Candidate, len(hits))
	for i, h := range hits {
		out[i] = models.Candidate{Question: refs.questions[h.Position], Score: h.Score, Position: h.Position}
	}
	return out, nil
}

// Questions returns a copy of the reference set in load order.
func (m *Matcher) Questions(ctx context.Context) ([]string, error) {
	refs, err := m.loadQuestions(ctx)
	if err != nil {
		return nil, err
	}
	return append([]string{}, refs...), nil
}

// Warm loads the reference set and its embeddings ahead of the first query.
func (m *Matcher) Warm(ctx context.Context) error {
	_, err := m.references(ctx)
	return err
}

// loadQuestions returns the published question list, or loads it without
// embedding anything.
func (m *Matcher) loadQuestions(ctx context.Context) ([]string, error) {
	if refs := m.refs.Load(); refs != nil {
		return refs.questions, nil
	}
	qs, err := m.source.Load(ctx)
	if err != nil {
		return nil, asConfigurationError(err)
	}
	return qs, nil
}

func (m *Matcher) references(ctx context.Context) (*referenceSet, error) {
	if refs := m.refs.Load(); refs != nil {
		return refs, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if refs := m.refs.Load(); refs != nil {
		return refs, nil
	}

	qs, err := m.source.Load(ctx)
	if err != nil {
		return nil, asConfigurationError(err)
	}
	refs := &referenceSet{questions: qs}
	if len(qs) > 0 {
		vectors, err := m.referenceEmbeddings(ctx, qs)
		if err != nil {
			return nil, err
		}
		idx, err := vector.NewMemoryIndex(len(vectors[0]))
		if err != nil {
			return nil, fmt.Errorf("build reference index: %w", err)
		}
		if err := idx.Add(ctx, qs, vectors); err != nil {
			return nil, fmt.Errorf("build reference index: %w", err)
		}
		refs.index = idx
	}
	m.refs.Store(refs)
	m.logger.Info("reference questions loaded", zap.Int("count", len(qs)))
	return refs, nil
}

// referenceEmbeddings returns one vector per question, reusing stored vectors
// of the embedder's dimension where available. Store failures only cost
// recomputation.
func (m *Matcher) referenceEmbeddings(ctx context.Context, qs []string) ([][]float32, error) {
	stored := map[string][]float32{}
	if m.store != nil {
		got, err := m.store.GetEmbeddings(ctx, m.modelKey, qs)
		if err != nil {
			m.logger.Warn("reading stored reference embeddings failed", zap.Error(err))
		} else {
			stored = got
		}
	}
	dims := m.embedder.Dimensions()
	for q, vec := range stored {
		if len(vec) != dims {
			m.logger.Warn("discarding stored reference embedding with wrong dimensions",
				zap.String("question", utils.Truncate(q, 80)),
				zap.Int("got", len(vec)),
				zap.Int("want", dims),
			)
			delete(stored, q)
		}
	}

	var missing []string
	seen := make(map[string]bool)
	for _, q := range qs {
		if _, ok := stored[q]; !ok && !seen[q] {
			missing = append(missing, q)
			seen[q] = true
		}
	}
	if len(missing) > 0 {
		computed, err := m.embedder.EmbedBatch(ctx, missing)
		if err != nil {
			return nil, err
		}
		for i, q := range missing {
			stored[q] = computed[i]
		}
		if m.store != nil {
			if err := m.store.PutEmbeddings(ctx, m.modelKey, missing, computed); err != nil {
				m.logger.Warn("persisting reference embeddings failed", zap.Error(err))
			}
		}
	}
	m.logger.Debug("reference embeddings ready",
		zap.Int("stored", len(qs)-len(missing)),
		zap.Int("computed", len(missing)),
	)

	vectors := make([][]float32, len(qs))
	for i, q := range qs {
		vectors[i] = stored[q]
	}
	return vectors, nil
}

func asConfigurationError(err error) error {
	var cfgErr *questions.ConfigurationError
	if errors.As(err, &cfgErr) {
		return err
	}
	return &questions.ConfigurationError{Err: err}
}
