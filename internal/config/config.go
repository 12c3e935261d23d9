// Package config provides configuration loading and structs for the navmatch server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Matcher   MatcherConfig   `yaml:"matcher"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host        string   `yaml:"host"`
	Port        int      `yaml:"port"`
	CORSOrigins []string `yaml:"cors_origins"`
}

// StorageConfig holds the path of the reference embedding store. An empty
// DatabasePath disables persistence.
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// EmbeddingConfig holds model and ONNX embedder settings.
type EmbeddingConfig struct {
	Model              string `yaml:"model"`
	ModelDir           string `yaml:"model_dir"`
	ModelPath          string `yaml:"model_path"`
	VocabPath          string `yaml:"vocab_path"`
	ArtifactBaseURL    string `yaml:"artifact_base_url"`
	RuntimeLibraryPath string `yaml:"runtime_library_path"`
	Dimensions         int    `yaml:"dimensions"`
	MaxTokens          int    `yaml:"max_tokens"`
	CacheSize          int    `yaml:"cache_size"`
	Pooling            string `yaml:"pooling"`
	OutputName         string `yaml:"output_name"`
	Lowercase          *bool  `yaml:"lowercase"`
}

// LowercaseOrDefault returns whether the tokenizer lowercases input; defaults to true when unset.
func (e *EmbeddingConfig) LowercaseOrDefault() bool {
	if e.Lowercase != nil {
		return *e.Lowercase
	}
	return true
}

// MatcherConfig holds reference question and acceptance settings.
type MatcherConfig struct {
	QuestionsPath string   `yaml:"questions_path"`
	Threshold     *float64 `yaml:"threshold"`
	MaxCandidates int      `yaml:"max_candidates"`
}

// ThresholdOrDefault returns the acceptance threshold; defaults to DefaultThreshold when unset.
// An explicit 0 is kept.
func (m *MatcherConfig) ThresholdOrDefault() float64 {
	if m.Threshold != nil {
		return *m.Threshold
	}
	return DefaultThreshold
}

// Load reads and parses the config file at path, applies environment overrides,
// expands paths, and applies defaults.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	configDir := filepath.Dir(path)
	if err := ApplyEnv(&cfg, configDir); err != nil {
		return nil, err
	}
	ApplyDefaults(&cfg)

	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Embedding.ModelDir = expandPath(cfg.Embedding.ModelDir, configDir)
	cfg.Embedding.ModelPath = expandPath(cfg.Embedding.ModelPath, configDir)
	cfg.Embedding.VocabPath = expandPath(cfg.Embedding.VocabPath, configDir)
	cfg.Embedding.RuntimeLibraryPath = expandPath(cfg.Embedding.RuntimeLibraryPath, configDir)
	cfg.Matcher.QuestionsPath = expandPath(cfg.Matcher.QuestionsPath, configDir)

	return &cfg, nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory. Empty paths stay empty.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
