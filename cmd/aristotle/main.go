// Package main is the Aristotle CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/carlsnewton/aristotle/internal/cli"
	"github.com/carlsnewton/aristotle/internal/config"
	"github.com/carlsnewton/aristotle/internal/cost"
	"github.com/carlsnewton/aristotle/internal/embedding"
	"github.com/carlsnewton/aristotle/internal/generation"
	"github.com/carlsnewton/aristotle/internal/ingest"
	"github.com/carlsnewton/aristotle/internal/knowledge"
	"github.com/carlsnewton/aristotle/internal/models"
	"github.com/carlsnewton/aristotle/internal/prompt"
	"github.com/carlsnewton/aristotle/internal/retrieval"
	"github.com/carlsnewton/aristotle/internal/server"
	"github.com/carlsnewton/aristotle/internal/tutor"
	"github.com/carlsnewton/aristotle/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/aristotle/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks
// for config.yaml in the current directory (for development); if that exists
// it is used.
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
	case "ask":
		runAsk()
	case "ingest":
		runIngest()
	case "search":
		runSearch()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("aristotle version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`AI-stotle: the wise AI science tutor for Carls Newton

Usage:
  aristotle server [-config path] [-debug]       Run the HTTP API server
  aristotle ask [-server url] [-age n] QUESTION  Ask a question via a running server
  aristotle ingest [-config path] FILE...        Ingest knowledge files (JSON or XLSX)
  aristotle search [-config path] [-limit n] QUERY  Search experiments locally
  aristotle status [-server url]                 Show server and knowledge base status
  aristotle version                              Print version`)
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
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

	components, err := initializeComponents(cfg, logger, debugMode)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	generator, err := buildGenerator(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to configure providers", zap.Error(err))
	}
	tutorOpts := []tutor.Option{}
	if debugMode {
		tutorOpts = append(tutorOpts, tutor.WithLogger(logger))
	}
	tut := tutor.New(components.Retriever, components.Assembler, generator, components.Tracker, tutorOpts...)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Knowledge.Watch && cfg.Knowledge.Dir != "" {
		watchOpts := []ingest.WatcherOption{}
		if debugMode {
			watchOpts = append(watchOpts, ingest.WithWatchLogger(logger))
		}
		w := ingest.NewWatcher(cfg.Knowledge.Dir, components.Ingester, watchOpts...)
		if err := w.Start(ctx); err != nil {
			logger.Fatal("Failed to start knowledge watcher", zap.Error(err))
		}
		defer w.Stop()
	}

	srv := server.NewServer(tut, components.Retriever, components.Store, components.Tracker, &cfg.Server, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	case sig := <-sigCh:
		logger.Info("Shutting down", zap.String("signal", sig.String()))
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := srv.Stop(shutdownCtx); err != nil {
			logger.Warn("Shutdown error", zap.Error(err))
		}
		if err := components.Store.Save(); err != nil {
			logger.Warn("Failed to persist indexes", zap.Error(err))
		}
	}
}

func runAsk() {
	fs := flag.NewFlagSet("ask", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8000", "server URL")
	age := fs.Int("age", 0, "student age")
	_ = fs.Parse(os.Args[2:])

	question := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if question == "" {
		fmt.Println("Usage: aristotle ask [-server url] [-age n] QUESTION")
		os.Exit(1)
	}

	body, err := json.Marshal(models.QuestionRequest{Question: question, StudentAge: *age})
	if err != nil {
		fmt.Printf("Failed to encode request: %v\n", err)
		os.Exit(1)
	}
	resp, err := http.Post(*serverURL+"/ask", "application/json", bytes.NewReader(body))
	if err != nil {
		fmt.Printf("Request failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		fmt.Printf("Server error (%d): %s\n", resp.StatusCode, apiErr.Error)
		os.Exit(1)
	}
	var answer models.QuestionResponse
	if err := json.NewDecoder(resp.Body).Decode(&answer); err != nil {
		fmt.Printf("Failed to decode response: %v\n", err)
		os.Exit(1)
	}
	cli.PrintAnswer(os.Stdout, &answer)
}

func runIngest() {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() == 0 {
		fmt.Println("Usage: aristotle ingest [-config path] FILE...")
		os.Exit(1)
	}

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug || *debug)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger, cfg.Debug || *debug)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	ctx := context.Background()
	for _, path := range fs.Args() {
		counts, err := components.Ingester.IngestFile(ctx, path)
		if err != nil {
			fmt.Printf("Ingest %s failed: %v\n", path, err)
			os.Exit(1)
		}
		fmt.Printf("%s: %d experiments, %d qa pairs, %d concepts, %d passages\n",
			path, counts.Experiments, counts.QAPairs, counts.Concepts, counts.Passages)
	}
}

func runSearch() {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	limit := fs.Int("limit", 5, "max results")
	_ = fs.Parse(os.Args[2:])

	query := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if query == "" {
		fmt.Println("Usage: aristotle search [-config path] [-limit n] QUERY")
		os.Exit(1)
	}

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

	components, err := initializeComponents(cfg, logger, cfg.Debug)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	results, err := components.Retriever.SearchExperiments(context.Background(), query, *limit)
	if err != nil {
		fmt.Printf("Search failed: %v\n", err)
		os.Exit(1)
	}
	cli.PrintExperiments(os.Stdout, results)
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8000", "server URL")
	_ = fs.Parse(os.Args[2:])

	u, err := url.JoinPath(*serverURL, "stats")
	if err != nil {
		fmt.Printf("Bad server URL: %v\n", err)
		os.Exit(1)
	}
	resp, err := http.Get(u)
	if err != nil {
		fmt.Printf("Server unreachable: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	var body struct {
		KnowledgeBase models.KnowledgeBaseStats `json:"knowledge_base"`
		Usage         cost.UsageStats           `json:"usage"`
		DiskBytes     int64                     `json:"disk_usage_bytes"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		fmt.Printf("Failed to decode response: %v\n", err)
		os.Exit(1)
	}
	cli.PrintStats(os.Stdout, body.KnowledgeBase, body.Usage, body.DiskBytes)
}

// Components holds the shared pipeline pieces built from config.
type Components struct {
	Store     *knowledge.Store
	Embedder  embedding.Embedder
	Retriever *retrieval.Retriever
	Assembler *prompt.Assembler
	Ingester  *ingest.Ingester
	Tracker   *cost.Tracker
}

// Close releases component resources.
func (c *Components) Close() {
	if c.Store != nil {
		_ = c.Store.Close()
	}
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger, debug bool) (*Components, error) {
	var embedder embedding.Embedder
	if cfg.Embedding.UseMock {
		embedder = embedding.NewMockEmbedder(cfg.Embedding.Dimensions)
		logger.Info("using mock embedder")
	} else {
		onnxEmbedder, err := embedding.NewONNXEmbedder(
			cfg.Embedding.ModelPath,
			cfg.Embedding.ModelID,
			cfg.Embedding.Dimensions,
			cfg.Embedding.MaxTokens,
			cfg.Embedding.CacheSize,
		)
		if err != nil {
			logger.Warn("ONNX embedder unavailable, falling back to mock embedder",
				zap.String("model_path", cfg.Embedding.ModelPath),
				zap.Error(err))
			embedder = embedding.NewMockEmbedder(cfg.Embedding.Dimensions)
		} else {
			embedder = onnxEmbedder
		}
	}

	storeOpts := []knowledge.StoreOption{}
	if debug {
		storeOpts = append(storeOpts, knowledge.WithLogger(logger))
	}
	store, err := knowledge.NewStore(
		cfg.Storage.DatabasePath,
		cfg.Storage.IndexDir,
		embedder.ModelID(),
		embedder.Dimensions(),
		storeOpts...,
	)
	if err != nil {
		_ = embedder.Close()
		return nil, fmt.Errorf("failed to initialize knowledge store: %w", err)
	}

	retrieverOpts := []retrieval.Option{retrieval.WithTopK(cfg.Retrieval.TopK)}
	if debug {
		retrieverOpts = append(retrieverOpts, retrieval.WithLogger(logger))
	}
	retriever := retrieval.NewRetriever(embedder, store, retrieverOpts...)

	ingestOpts := []ingest.Option{}
	if debug {
		ingestOpts = append(ingestOpts, ingest.WithLogger(logger))
	}

	return &Components{
		Store:     store,
		Embedder:  embedder,
		Retriever: retriever,
		Assembler: prompt.NewAssembler(prompt.WithCharBudget(cfg.Prompt.CharBudget)),
		Ingester:  ingest.NewIngester(embedder, store, ingestOpts...),
		Tracker:   cost.NewTracker(),
	}, nil
}

// buildGenerator constructs providers in the configured fallback order. A
// provider with no API key in the environment is skipped; at least one must
// remain.
func buildGenerator(cfg *config.Config, logger *zap.Logger) (*generation.Generator, error) {
	var providers []generation.Provider
	for _, name := range cfg.Generation.Providers {
		switch name {
		case "deepseek":
			key := os.Getenv(cfg.Generation.DeepSeek.APIKeyEnv)
			if key == "" {
				logger.Warn("skipping provider, api key not set",
					zap.String("provider", name),
					zap.String("env", cfg.Generation.DeepSeek.APIKeyEnv))
				continue
			}
			p, err := generation.NewDeepSeekProvider(generation.DeepSeekConfig{
				BaseURL:     cfg.Generation.DeepSeek.BaseURL,
				APIKey:      key,
				Model:       cfg.Generation.DeepSeek.Model,
				MaxTokens:   cfg.Generation.DeepSeek.MaxTokens,
				Temperature: cfg.Generation.DeepSeek.Temperature,
			})
			if err != nil {
				return nil, err
			}
			providers = append(providers, p)
		case "claude":
			key := os.Getenv(cfg.Generation.Claude.APIKeyEnv)
			if key == "" {
				logger.Warn("skipping provider, api key not set",
					zap.String("provider", name),
					zap.String("env", cfg.Generation.Claude.APIKeyEnv))
				continue
			}
			p, err := generation.NewClaudeProvider(generation.ClaudeConfig{
				BaseURL:     cfg.Generation.Claude.BaseURL,
				APIKey:      key,
				Model:       cfg.Generation.Claude.Model,
				MaxTokens:   cfg.Generation.Claude.MaxTokens,
				Temperature: cfg.Generation.Claude.Temperature,
			})
			if err != nil {
				return nil, err
			}
			providers = append(providers, p)
		default:
			return nil, fmt.Errorf("unknown provider %q in config", name)
		}
	}
	if len(providers) == 0 {
		return nil, fmt.Errorf("no providers available: set %s or %s",
			cfg.Generation.DeepSeek.APIKeyEnv, cfg.Generation.Claude.APIKeyEnv)
	}

	return generation.NewGenerator(providers,
		generation.WithAttemptTimeout(time.Duration(cfg.Generation.AttemptTimeoutMS)*time.Millisecond),
		generation.WithRetryBackoff(time.Duration(cfg.Generation.RetryBackoffMS)*time.Millisecond),
		generation.WithGeneratorLogger(logger),
	)
}
