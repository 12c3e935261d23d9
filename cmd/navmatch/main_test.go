package main

import (
	"encoding/json"
	"flag"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/hyperjump/navmatch/internal/config"
	"github.com/hyperjump/navmatch/internal/models"
)

func testFlagSet() *flag.FlagSet {
	fs := flag.NewFlagSet("match", flag.ContinueOnError)
	fs.String("config", defaultConfigPath, "")
	fs.String("output", "text", "")
	fs.Int("candidates", 0, "")
	fs.Bool("verbose", false, "")
	return fs
}

func TestArgsReorder(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected []string
	}{
		{
			name:     "flags after query are moved first",
			args:     []string{"WHERE IS THE LIBRARY", "-candidates", "3"},
			expected: []string{"-candidates", "3", "WHERE IS THE LIBRARY"},
		},
		{
			name:     "flags first returns unchanged",
			args:     []string{"-candidates", "3", "WHERE IS THE LIBRARY"},
			expected: []string{"-candidates", "3", "WHERE IS THE LIBRARY"},
		},
		{
			name:     "query only returns unchanged",
			args:     []string{"WHERE IS THE LIBRARY"},
			expected: []string{"WHERE IS THE LIBRARY"},
		},
		{
			name:     "empty args returns unchanged",
			args:     []string{},
			expected: []string{},
		},
		{
			name:     "multiple positionals then flags",
			args:     []string{"WHERE", "IS", "-output", "json"},
			expected: []string{"-output", "json", "WHERE", "IS"},
		},
		{
			name:     "flag between query words keeps word order",
			args:     []string{"WHERE", "-candidates", "3", "IS", "THE", "LIBRARY"},
			expected: []string{"-candidates", "3", "WHERE", "IS", "THE", "LIBRARY"},
		},
		{
			name:     "flag with equals takes no separate value",
			args:     []string{"WHERE", "--output=json", "IS"},
			expected: []string{"--output=json", "WHERE", "IS"},
		},
		{
			name:     "bool flag takes no value",
			args:     []string{"WHERE", "-verbose", "IS"},
			expected: []string{"-verbose", "WHERE", "IS"},
		},
		{
			name:     "double dash ends flags",
			args:     []string{"-candidates", "2", "--", "-WHERE", "IS"},
			expected: []string{"-candidates", "2", "--", "-WHERE", "IS"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := argsReorder(testFlagSet(), tt.args)
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("argsReorder() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestArgsReorder_ParsesQueryInOrder(t *testing.T) {
	fs := testFlagSet()
	if err := fs.Parse(argsReorder(fs, []string{"WHERE", "-candidates", "3", "IS", "THE", "LIBRARY"})); err != nil {
		t.Fatal(err)
	}
	if got := fs.Lookup("candidates").Value.String(); got != "3" {
		t.Errorf("candidates = %s, want 3", got)
	}
	if got := buildQuery(fs.Args()); got != "WHERE IS THE LIBRARY" {
		t.Errorf("query = %q, want %q", got, "WHERE IS THE LIBRARY")
	}
}

func TestBuildQuery(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected string
	}{
		{"single word", []string{"LIBRARY"}, "LIBRARY"},
		{"multiple words", []string{"WHERE", "IS", "THE", "LIBRARY"}, "WHERE IS THE LIBRARY"},
		{"single quoted phrase", []string{"WHERE IS THE LIBRARY"}, "WHERE IS THE LIBRARY"},
		{"empty args", []string{}, ""},
		{"blank args", []string{"  ", "  "}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := buildQuery(tt.args)
			if got != tt.expected {
				t.Errorf("buildQuery(%v) = %q, want %q", tt.args, got, tt.expected)
			}
		})
	}
}

func TestModelKey(t *testing.T) {
	base := config.EmbeddingConfig{
		Model: "sentence-transformers/all-MiniLM-L6-v2", MaxTokens: 256,
		Dimensions: 384, OutputName: "last_hidden_state",
	}
	want := "sentence-transformers/all-MiniLM-L6-v2|mean|256|lower=true|dims=384|out=last_hidden_state|model=|vocab="
	if got := modelKey(&base); got != want {
		t.Errorf("modelKey() = %q, want %q", got, want)
	}

	no := false
	variants := map[string]func(c *config.EmbeddingConfig){
		"pooling":     func(c *config.EmbeddingConfig) { c.Pooling = "cls" },
		"lowercase":   func(c *config.EmbeddingConfig) { c.Lowercase = &no },
		"max tokens":  func(c *config.EmbeddingConfig) { c.MaxTokens = 128 },
		"model path":  func(c *config.EmbeddingConfig) { c.ModelPath = "/m/finetuned.onnx" },
		"vocab path":  func(c *config.EmbeddingConfig) { c.VocabPath = "/m/vocab.txt" },
		"output name": func(c *config.EmbeddingConfig) { c.OutputName = "token_embeddings" },
		"dimensions":  func(c *config.EmbeddingConfig) { c.Dimensions = 768 },
	}
	seen := map[string]string{modelKey(&base): "base"}
	for name, change := range variants {
		c := base
		change(&c)
		k := modelKey(&c)
		if prev, dup := seen[k]; dup {
			t.Errorf("%s: model key %q collides with %s", name, k, prev)
		}
		seen[k] = name
	}
}

func TestLoadConfig_prefersCwdConfigWhenDefaultPath(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	content := `
debug: true
server:
  host: "localhost"
  port: 5001
matcher:
  questions_path: "./questions.json"
`
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	origWd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = os.Chdir(origWd) }()
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}

	cfg, resolved, err := loadConfig(defaultConfigPath)
	if err != nil {
		t.Fatal(err)
	}
	// On macOS, cwd can be /private/var/... while configPath from t.TempDir() is /var/...; compare canonical paths.
	resolvedCanon, _ := filepath.EvalSymlinks(resolved)
	configPathCanon, _ := filepath.EvalSymlinks(configPath)
	if resolvedCanon != configPathCanon {
		t.Errorf("resolved path = %s (canon %s), want %s (canon %s)", resolved, resolvedCanon, configPath, configPathCanon)
	}
	if !cfg.Debug {
		t.Error("debug should be true from cwd config.yaml")
	}
}

func TestLoadConfig_usesExplicitPath(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	content := `
server:
  host: "127.0.0.1"
  port: 9000
`
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, resolved, err := loadConfig(configPath)
	if err != nil {
		t.Fatal(err)
	}
	if resolved != configPath {
		t.Errorf("resolved path = %s, want %s", resolved, configPath)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9000 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
}

func TestMatchDirect_EmptyReferenceSetSkipsModel(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	content := `
embedding:
  model_dir: "./models"
  artifact_base_url: "http://127.0.0.1:1"
matcher:
  questions_path: "./questions.json"
storage:
  database_path: "./navmatch.db"
`
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "questions.json"), []byte(`{"questions": []}`), 0600); err != nil {
		t.Fatal(err)
	}

	resp, err := matchDirect(configPath, "WHERE IS THE LIBRARY", 3)
	if err != nil {
		t.Fatal(err)
	}
	if resp.Matched || resp.Question != "" || len(resp.Candidates) != 0 {
		t.Errorf("unexpected response %+v", resp)
	}
	if _, err := os.Stat(filepath.Join(dir, "models")); !os.IsNotExist(err) {
		t.Error("model artifacts should not be fetched for an empty reference set")
	}
}

func TestMatchDirect_MissingQuestions(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("matcher:\n  questions_path: \"./missing.json\"\n"), 0600); err != nil {
		t.Fatal(err)
	}
	_, err := matchDirect(configPath, "WHERE IS THE LIBRARY", 0)
	if err == nil || !strings.Contains(err.Error(), "missing.json") {
		t.Errorf("expected questions error naming the file, got %v", err)
	}
}

func TestMatchViaHTTP(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/match" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		var req models.MatchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad", http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(models.MatchResponse{MatchResult: models.MatchResult{
			Query: req.Query, Question: "WHERE IS THE LIBRARY", Score: 0.91, Threshold: 0.7, Matched: true,
		}})
	}))
	defer ts.Close()

	resp, err := matchViaHTTP(ts.URL+"/", &models.MatchRequest{Query: "WHERE'S THE LIBRARY"})
	if err != nil {
		t.Fatal(err)
	}
	if !resp.Matched || resp.Question != "WHERE IS THE LIBRARY" || resp.Query != "WHERE'S THE LIBRARY" {
		t.Errorf("unexpected response %+v", resp)
	}
}

func TestMatchViaHTTP_ServerError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
	}))
	defer ts.Close()
	_, err := matchViaHTTP(ts.URL, &models.MatchRequest{Query: "X"})
	if err == nil || !strings.Contains(err.Error(), "500") {
		t.Errorf("expected status error, got %v", err)
	}
}
