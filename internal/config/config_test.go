package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  host: "127.0.0.1"
  port: 9000
matcher:
  questions_path: "questions.json"
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9000 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
	if cfg.Matcher.QuestionsPath == "" {
		t.Error("questions_path should be set")
	}
	if cfg.Matcher.ThresholdOrDefault() != DefaultThreshold {
		t.Errorf("threshold: got %f, want %f", cfg.Matcher.ThresholdOrDefault(), DefaultThreshold)
	}
	if cfg.Debug {
		t.Error("debug should default to false when unset")
	}
}

func TestLoad_missingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestLoad_expandPathDotSlashRelativeToConfigDir(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
storage:
  database_path: "./data/embeddings.db"
matcher:
  questions_path: "./data/questions.json"
embedding:
  model_dir: "./models"
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(dir, "data", "embeddings.db"); cfg.Storage.DatabasePath != want {
		t.Errorf("database_path = %s, want %s", cfg.Storage.DatabasePath, want)
	}
	if want := filepath.Join(dir, "data", "questions.json"); cfg.Matcher.QuestionsPath != want {
		t.Errorf("questions_path = %s, want %s", cfg.Matcher.QuestionsPath, want)
	}
	if want := filepath.Join(dir, "models"); cfg.Embedding.ModelDir != want {
		t.Errorf("model_dir = %s, want %s", cfg.Embedding.ModelDir, want)
	}
	if cfg.Embedding.ModelPath != "" {
		t.Errorf("unset model_path should stay empty, got %s", cfg.Embedding.ModelPath)
	}
}

func TestLoad_envOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: 9000\n"), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("NAVMATCH_PORT", "7000")
	t.Setenv("NAVMATCH_THRESHOLD", "0.85")
	t.Setenv("NAVMATCH_CORS_ORIGINS", "http://a.test, http://b.test")
	t.Setenv("NAVMATCH_DEBUG", "true")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Port != 7000 {
		t.Errorf("port: got %d, want 7000", cfg.Server.Port)
	}
	if cfg.Matcher.ThresholdOrDefault() != 0.85 {
		t.Errorf("threshold: got %f", cfg.Matcher.ThresholdOrDefault())
	}
	if len(cfg.Server.CORSOrigins) != 2 || cfg.Server.CORSOrigins[1] != "http://b.test" {
		t.Errorf("cors origins: got %v", cfg.Server.CORSOrigins)
	}
	if !cfg.Debug {
		t.Error("debug should be enabled by NAVMATCH_DEBUG")
	}
}

func TestLoad_invalidEnvPort(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("debug: false\n"), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("NAVMATCH_PORT", "not-a-port")
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for invalid NAVMATCH_PORT")
	}
}

func TestLoad_dotEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("debug: false\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("NAVMATCH_MODEL=custom/model\n"), 0600); err != nil {
		t.Fatal(err)
	}
	_ = os.Unsetenv("NAVMATCH_MODEL")
	t.Cleanup(func() { _ = os.Unsetenv("NAVMATCH_MODEL") })

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Embedding.Model != "custom/model" {
		t.Errorf("model: got %s, want custom/model", cfg.Embedding.Model)
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	if cfg.Server.Host != "localhost" {
		t.Errorf("default host: got %s", cfg.Server.Host)
	}
	if cfg.Server.Port != 5001 {
		t.Errorf("default port: got %d", cfg.Server.Port)
	}
	if cfg.Embedding.Model != DefaultModel {
		t.Errorf("default model: got %s", cfg.Embedding.Model)
	}
	if cfg.Embedding.Dimensions != 384 || cfg.Embedding.MaxTokens != 256 {
		t.Errorf("embedding defaults: %+v", cfg.Embedding)
	}
	if cfg.Embedding.Pooling != "mean" {
		t.Errorf("default pooling: got %s", cfg.Embedding.Pooling)
	}
	if cfg.Matcher.Threshold != nil || cfg.Matcher.ThresholdOrDefault() != 0.7 {
		t.Errorf("default threshold: got %f", cfg.Matcher.ThresholdOrDefault())
	}
	if cfg.Storage.DatabasePath != "" {
		t.Error("storage should stay disabled by default")
	}
}

func TestEmbeddingConfig_LowercaseOrDefault(t *testing.T) {
	t.Run("nil_returns_true", func(t *testing.T) {
		e := &EmbeddingConfig{}
		if !e.LowercaseOrDefault() {
			t.Error("LowercaseOrDefault() = false, want true")
		}
	})
	t.Run("false_returns_false", func(t *testing.T) {
		f := false
		e := &EmbeddingConfig{Lowercase: &f}
		if e.LowercaseOrDefault() {
			t.Error("LowercaseOrDefault() = true, want false")
		}
	})
}

func TestSave(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "saved.yaml")
	threshold := 0.8
	cfg := &Config{
		Server:  ServerConfig{Host: "localhost", Port: 9090},
		Matcher: MatcherConfig{QuestionsPath: "/tmp/questions.json", Threshold: &threshold},
	}
	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Server.Port != 9090 {
		t.Errorf("loaded port: got %d", loaded.Server.Port)
	}
	if loaded.Matcher.ThresholdOrDefault() != 0.8 {
		t.Errorf("loaded threshold: got %f", loaded.Matcher.ThresholdOrDefault())
	}
}

func TestLoad_ZeroThresholdIsKept(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("matcher:\n  threshold: 0\n"), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Matcher.Threshold == nil || cfg.Matcher.ThresholdOrDefault() != 0 {
		t.Errorf("threshold: got %v, want explicit 0", cfg.Matcher.Threshold)
	}
}
