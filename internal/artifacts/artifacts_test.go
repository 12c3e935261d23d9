package artifacts

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/hyperjump/navmatch/internal/config"
)

func TestResolve(t *testing.T) {
	cfg := &config.EmbeddingConfig{
		Model:           "sentence-transformers/all-MiniLM-L6-v2",
		ModelDir:        "/var/models",
		ArtifactBaseURL: "https://example.test/",
	}
	set, err := Resolve(cfg)
	if err != nil {
		t.Fatal(err)
	}
	wantDir := filepath.Join("/var/models", "sentence-transformers", "all-MiniLM-L6-v2")
	if set.ModelPath != filepath.Join(wantDir, "model.onnx") {
		t.Errorf("ModelPath = %s", set.ModelPath)
	}
	if set.VocabPath != filepath.Join(wantDir, "vocab.txt") {
		t.Errorf("VocabPath = %s", set.VocabPath)
	}
	if set.BaseURL != "https://example.test" {
		t.Errorf("BaseURL = %s", set.BaseURL)
	}
}

func TestResolve_ExplicitPathsWin(t *testing.T) {
	cfg := &config.EmbeddingConfig{Model: "m", ModelDir: "/d", ModelPath: "/x/model.onnx", VocabPath: "/x/vocab.txt"}
	set, err := Resolve(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if set.ModelPath != "/x/model.onnx" || set.VocabPath != "/x/vocab.txt" {
		t.Errorf("explicit paths ignored: %+v", set)
	}
}

func TestResolve_InvalidIdentifier(t *testing.T) {
	for _, model := range []string{"", "../etc", "/abs/model"} {
		if _, err := Resolve(&config.EmbeddingConfig{Model: model, ModelDir: "/d"}); err == nil {
			t.Errorf("Resolve(%q) should fail", model)
		}
	}
}

func TestFetcher_EnsureDownloadsMissingOnce(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		switch r.URL.Path {
		case "/org/model/resolve/main/onnx/model.onnx":
			_, _ = w.Write([]byte("onnx-bytes"))
		case "/org/model/resolve/main/vocab.txt":
			_, _ = w.Write([]byte("[PAD]\n[UNK]\n"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	dir := t.TempDir()
	set, err := Resolve(&config.EmbeddingConfig{Model: "org/model", ModelDir: dir, ArtifactBaseURL: srv.URL})
	if err != nil {
		t.Fatal(err)
	}
	f := NewFetcher()
	if err := f.Ensure(context.Background(), set); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(set.ModelPath)
	if err != nil || string(data) != "onnx-bytes" {
		t.Fatalf("model file: %q, %v", data, err)
	}
	if hits.Load() != 2 {
		t.Errorf("hits = %d, want 2", hits.Load())
	}

	if err := f.Ensure(context.Background(), set); err != nil {
		t.Fatal(err)
	}
	if hits.Load() != 2 {
		t.Errorf("existing files should not be re-downloaded; hits = %d", hits.Load())
	}
}

func TestFetcher_EnsureServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	dir := t.TempDir()
	set, _ := Resolve(&config.EmbeddingConfig{Model: "org/model", ModelDir: dir, ArtifactBaseURL: srv.URL})
	if err := NewFetcher().Ensure(context.Background(), set); err == nil {
		t.Fatal("expected error for 404")
	}
	entries, _ := os.ReadDir(filepath.Join(dir, "org", "model"))
	if len(entries) != 0 {
		t.Errorf("no partial files should remain, found %d", len(entries))
	}
}

func TestFetcher_EnsureNoSource(t *testing.T) {
	set := &Set{Model: "m", ModelPath: filepath.Join(t.TempDir(), "model.onnx"), VocabPath: "v"}
	if err := NewFetcher().Ensure(context.Background(), set); err == nil {
		t.Fatal("expected error when files are missing and no base URL is set")
	}
}
