package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// ApplyEnv loads a .env file from dir (if present) without overriding variables
// already set in the process, then applies NAVMATCH_* overrides to cfg.
func ApplyEnv(cfg *Config, dir string) error {
	envFile := filepath.Join(dir, ".env")
	if _, err := os.Stat(envFile); err == nil {
		if err := godotenv.Load(envFile); err != nil {
			return fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	if v := os.Getenv("NAVMATCH_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("NAVMATCH_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid NAVMATCH_PORT %q: %w", v, err)
		}
		cfg.Server.Port = port
	}
	if v := os.Getenv("NAVMATCH_CORS_ORIGINS"); v != "" {
		cfg.Server.CORSOrigins = splitList(v)
	}
	if v := os.Getenv("NAVMATCH_DEBUG"); v != "" {
		debug, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid NAVMATCH_DEBUG %q: %w", v, err)
		}
		cfg.Debug = debug
	}
	if v := os.Getenv("NAVMATCH_QUESTIONS_PATH"); v != "" {
		cfg.Matcher.QuestionsPath = v
	}
	if v := os.Getenv("NAVMATCH_MODEL"); v != "" {
		cfg.Embedding.Model = v
	}
	if v := os.Getenv("NAVMATCH_THRESHOLD"); v != "" {
		threshold, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid NAVMATCH_THRESHOLD %q: %w", v, err)
		}
		cfg.Matcher.Threshold = &threshold
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
