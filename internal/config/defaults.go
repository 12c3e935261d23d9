package config

// DefaultThreshold is the minimum cosine similarity a reference question must
// exceed to be accepted as a match.
const DefaultThreshold = 0.7

// DefaultModel is the pretrained sentence embedding model identifier.
const DefaultModel = "sentence-transformers/all-MiniLM-L6-v2"

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 5001
	}
	if cfg.Server.CORSOrigins == nil {
		cfg.Server.CORSOrigins = []string{"http://localhost:3000"}
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = DefaultModel
	}
	if cfg.Embedding.ModelDir == "" {
		cfg.Embedding.ModelDir = "/usr/local/var/navmatch/models"
	}
	if cfg.Embedding.ArtifactBaseURL == "" {
		cfg.Embedding.ArtifactBaseURL = "https://huggingface.co"
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 384
	}
	if cfg.Embedding.MaxTokens == 0 {
		cfg.Embedding.MaxTokens = 256
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 10000
	}
	if cfg.Embedding.Pooling == "" {
		cfg.Embedding.Pooling = "mean"
	}
	if cfg.Embedding.OutputName == "" {
		cfg.Embedding.OutputName = "last_hidden_state"
	}
	if cfg.Matcher.QuestionsPath == "" {
		cfg.Matcher.QuestionsPath = "/usr/local/etc/navmatch/questions.json"
	}
	if cfg.Matcher.MaxCandidates == 0 {
		cfg.Matcher.MaxCandidates = 5
	}
}
