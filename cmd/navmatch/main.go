// Package main is the navmatch CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/navmatch/internal/artifacts"
	"github.com/hyperjump/navmatch/internal/cli"
	"github.com/hyperjump/navmatch/internal/config"
	"github.com/hyperjump/navmatch/internal/embedding"
	"github.com/hyperjump/navmatch/internal/matcher"
	"github.com/hyperjump/navmatch/internal/models"
	"github.com/hyperjump/navmatch/internal/questions"
	"github.com/hyperjump/navmatch/internal/server"
	"github.com/hyperjump/navmatch/internal/storage"
	"github.com/hyperjump/navmatch/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/navmatch/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks for
// config.yaml in the current directory (for development); if that exists it is used.
// Returns the config and the path that was actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "match":
		runMatch()
	case "questions":
		runQuestions()
	case "fetch-model":
		runFetchModel()
	case "version", "--version", "-v":
		fmt.Printf("navmatch version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging (per-match scores, model loading)")
	warm := fs.Bool("warm", false, "load the model and reference embeddings before serving")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	if *warm {
		if err := components.Matcher.Warm(context.Background()); err != nil {
			logger.Fatal("Failed to warm matcher", zap.Error(err))
		}
	}

	srv := server.NewServer(components.Matcher, &cfg.Server, cfg.Matcher.MaxCandidates, logger)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

func printMatchUsage(fs *flag.FlagSet) {
	fmt.Fprintf(fs.Output(), "Usage: navmatch match [flags] <query>\n\n")
	fmt.Fprintf(fs.Output(), "Query is all remaining arguments joined by spaces. It is matched as given, without case folding.\n\n")
	fs.PrintDefaults()
	fmt.Fprintf(fs.Output(), `
Examples:
  navmatch match WHERE IS THE LIBRARY
  navmatch match -candidates 3 "WHEN DOES THE CAFETERIA OPEN"
  navmatch match -server http://localhost:5001 -output json WHERE IS THE GYM
`)
}

// buildQuery joins all positional args with spaces so multi-word queries
// work the same with or without shell quoting.
func buildQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// argsReorder moves flags (and their values) ahead of the positional
// arguments so that flag.Parse() sees flags given after the query. Go's flag
// package stops at the first non-flag argument. Positionals keep their order,
// and "--" is kept ahead of them when given so everything after it stays positional.
func argsReorder(fs *flag.FlagSet, args []string) []string {
	flags := make([]string, 0, len(args))
	positionals := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		a := args[i]
		if a == "--" {
			flags = append(flags, a)
			positionals = append(positionals, args[i+1:]...)
			break
		}
		if len(a) < 2 || a[0] != '-' {
			positionals = append(positionals, a)
			continue
		}
		flags = append(flags, a)
		if strings.Contains(a, "=") || isBoolFlag(fs, a) {
			continue
		}
		if i+1 < len(args) {
			i++
			flags = append(flags, args[i])
		}
	}
	return append(flags, positionals...)
}

// isBoolFlag reports whether arg names a boolean flag of fs, which takes no separate value.
func isBoolFlag(fs *flag.FlagSet, arg string) bool {
	f := fs.Lookup(strings.TrimLeft(arg, "-"))
	if f == nil {
		return false
	}
	b, ok := f.Value.(interface{ IsBoolFlag() bool })
	return ok && b.IsBoolFlag()
}

func runMatch() {
	fs := flag.NewFlagSet("match", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "", "server URL (empty = load the model in-process)")
	candidates := fs.Int("candidates", 0, "also list the top N reference questions with scores")
	outputFormat := fs.String("output", "text", "output format: text or json")
	fs.Usage = func() { printMatchUsage(fs) }
	_ = fs.Parse(argsReorder(fs, os.Args[2:]))

	query := buildQuery(fs.Args())
	if query == "" {
		printMatchUsage(fs)
		os.Exit(1)
	}
	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	var response *models.MatchResponse
	if *serverURL != "" {
		response, err = matchViaHTTP(*serverURL, &models.MatchRequest{Query: query, Limit: *candidates})
	} else {
		response, err = matchDirect(*configPath, query, *candidates)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Match failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteMatch(os.Stdout, response, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func matchDirect(configPath, query string, candidates int) (*models.MatchResponse, error) {
	cfg, _, err := loadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		return nil, err
	}
	defer components.Close()

	ctx := context.Background()
	res, err := components.Matcher.Evaluate(ctx, query)
	if err != nil {
		return nil, err
	}
	response := &models.MatchResponse{MatchResult: *res}
	if candidates > 0 {
		response.Candidates, err = components.Matcher.Candidates(ctx, query, candidates)
		if err != nil {
			return nil, err
		}
	}
	return response, nil
}

func matchViaHTTP(serverURL string, req *models.MatchRequest) (*models.MatchResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	resp, err := http.Post(strings.TrimRight(serverURL, "/")+"/api/v1/match", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var response models.MatchResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &response, nil
}

func runQuestions() {
	fs := flag.NewFlagSet("questions", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	qs, err := questions.NewFileSource(cfg.Matcher.QuestionsPath).Load(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteQuestions(os.Stdout, qs, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runFetchModel() {
	fs := flag.NewFlagSet("fetch-model", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	_ = fs.Parse(os.Args[2:])

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	set, err := artifacts.Resolve(&cfg.Embedding)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	fetcher := artifacts.NewFetcher(artifacts.WithLogger(logger))
	if err := fetcher.Ensure(context.Background(), set); err != nil {
		fmt.Fprintf(os.Stderr, "Fetch failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Model %s ready\n  model: %s\n  vocab: %s\n", set.Model, set.ModelPath, set.VocabPath)
}

// Components holds initialized services.
type Components struct {
	Store    storage.EmbeddingStore
	Embedder *embedding.LazyEmbedder
	Matcher  *matcher.Matcher
}

func (c *Components) Close() {
	if c.Store != nil {
		_ = c.Store.Close()
	}
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
}

// modelKey identifies stored reference embeddings. Anything that changes the
// vectors a model produces must be part of it.
func modelKey(cfg *config.EmbeddingConfig) string {
	pooling := cfg.Pooling
	if pooling == "" {
		pooling = "mean"
	}
	return fmt.Sprintf("%s|%s|%d|lower=%t|dims=%d|out=%s|model=%s|vocab=%s",
		cfg.Model, pooling, cfg.MaxTokens, cfg.LowercaseOrDefault(),
		cfg.Dimensions, cfg.OutputName, cfg.ModelPath, cfg.VocabPath)
}

// initializeComponents wires the matcher. The model is not loaded here; it loads
// on the first query.
func initializeComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	fetcher := artifacts.NewFetcher(artifacts.WithLogger(logger))
	embedder := embedding.NewLazyEmbedder(
		cfg.Embedding.Model,
		cfg.Embedding.Dimensions,
		embedding.NewONNXLoader(&cfg.Embedding, fetcher),
		embedding.WithLazyLogger(logger),
	)

	opts := []matcher.Option{
		matcher.WithThreshold(cfg.Matcher.ThresholdOrDefault()),
		matcher.WithLogger(logger),
	}
	var store storage.EmbeddingStore
	if cfg.Storage.DatabasePath != "" {
		sqlStore, err := storage.NewSQLiteStore(cfg.Storage.DatabasePath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize storage: %w", err)
		}
		store = sqlStore
		opts = append(opts, matcher.WithStore(store, modelKey(&cfg.Embedding)))
	}

	m := matcher.New(embedder, questions.NewFileSource(cfg.Matcher.QuestionsPath), opts...)
	return &Components{Store: store, Embedder: embedder, Matcher: m}, nil
}

func printUsage() {
	fmt.Println(`navmatch - Semantic matcher from free-form questions to canonical navigation questions

Usage:
  navmatch server [flags]           Start the HTTP server
  navmatch match [flags] <query>    Match a query against the reference questions
  navmatch questions [flags]        List the reference questions
  navmatch fetch-model [flags]      Download the embedding model artifacts
  navmatch version                  Show version
  navmatch help                     Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/navmatch/config.yaml)
  --debug            Enable debug logging (per-match scores, model loading)
  --warm             Load the model and reference embeddings before serving

Match Flags:
  --config string    Config file path
  --server string    Server URL; empty loads the model in-process (default: "")
  --candidates int   Also list the top N reference questions with scores
  --output string    Output format: text or json (default: text)

Questions Flags:
  --config string    Config file path
  --output string    Output format: text or json (default: text)

Examples:
  navmatch server
  navmatch match WHERE IS THE LIBRARY
  navmatch match --candidates 3 --output json "WHEN DOES THE CAFETERIA OPEN"
  navmatch fetch-model
  navmatch questions`)
}
