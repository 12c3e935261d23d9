// Package artifacts resolves a model identifier to local model files and
// downloads them on first use.
package artifacts

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/navmatch/internal/config"
	"github.com/hyperjump/navmatch/pkg/utils"
)

// Remote file names under a model repository.
const (
	remoteModelFile = "onnx/model.onnx"
	remoteVocabFile = "vocab.txt"
)

// Set is the resolved location of a model's files.
type Set struct {
	Model     string
	ModelPath string
	VocabPath string
	// BaseURL is the artifact host; empty disables downloading.
	BaseURL string
}

// Resolve maps the configured model identifier to local paths. Explicit
// model_path / vocab_path settings win over <model_dir>/<model>/.
func Resolve(cfg *config.EmbeddingConfig) (*Set, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("model identifier is empty")
	}
	if strings.Contains(cfg.Model, "..") || filepath.IsAbs(cfg.Model) {
		return nil, fmt.Errorf("invalid model identifier: %s", cfg.Model)
	}
	dir := filepath.Join(cfg.ModelDir, filepath.FromSlash(cfg.Model))
	set := &Set{
		Model:     cfg.Model,
		ModelPath: cfg.ModelPath,
		VocabPath: cfg.VocabPath,
		BaseURL:   strings.TrimRight(cfg.ArtifactBaseURL, "/"),
	}
	if set.ModelPath == "" {
		set.ModelPath = filepath.Join(dir, "model.onnx")
	}
	if set.VocabPath == "" {
		set.VocabPath = filepath.Join(dir, "vocab.txt")
	}
	return set, nil
}

// Fetcher downloads missing artifacts.
type Fetcher struct {
	client *http.Client
	logger *zap.Logger
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithHTTPClient sets the HTTP client used for downloads.
func WithHTTPClient(c *http.Client) FetcherOption {
	return func(f *Fetcher) { f.client = c }
}

// WithLogger sets the logger for download progress.
func WithLogger(l *zap.Logger) FetcherOption {
	return func(f *Fetcher) { f.logger = l }
}

// NewFetcher creates a Fetcher. The default client has a 10 minute timeout.
func NewFetcher(opts ...FetcherOption) *Fetcher {
	f := &Fetcher{client: &http.Client{Timeout: 10 * time.Minute}}
	for _, opt := range opts {
		opt(f)
	}
	f.logger = utils.OrNop(f.logger)
	return f
}

// Ensure makes sure the model and vocabulary files exist locally, downloading
// whichever are missing. Existing files are never re-downloaded.
func (f *Fetcher) Ensure(ctx context.Context, set *Set) error {
	files := []struct {
		local  string
		remote string
	}{
		{set.ModelPath, remoteModelFile},
		{set.VocabPath, remoteVocabFile},
	}
	for _, file := range files {
		if _, err := os.Stat(file.local); err == nil {
			continue
		} else if !os.IsNotExist(err) {
			return fmt.Errorf("stat %s: %w", file.local, err)
		}
		if set.BaseURL == "" {
			return fmt.Errorf("%s not found and no artifact source configured", file.local)
		}
		url := fmt.Sprintf("%s/%s/resolve/main/%s", set.BaseURL, set.Model, file.remote)
		if err := f.download(ctx, url, file.local); err != nil {
			return err
		}
	}
	return nil
}

func (f *Fetcher) download(ctx context.Context, url, dest string) error {
	f.logger.Info("downloading model artifact", zap.String("url", url), zap.String("dest", dest))
	start := time.Now()

	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return fmt.Errorf("create artifact dir: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch %s: server returned %d", url, resp.StatusCode)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), filepath.Base(dest)+".part-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	n, copyErr := io.Copy(tmp, resp.Body)
	closeErr := tmp.Close()
	if copyErr != nil || closeErr != nil {
		_ = os.Remove(tmpName)
		if copyErr != nil {
			return fmt.Errorf("write %s: %w", dest, copyErr)
		}
		return fmt.Errorf("write %s: %w", dest, closeErr)
	}
	if err := os.Rename(tmpName, dest); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("move %s into place: %w", dest, err)
	}
	f.logger.Info("model artifact downloaded",
		zap.String("dest", dest),
		zap.Int64("bytes", n),
		zap.Duration("duration", time.Since(start)),
	)
	return nil
}
