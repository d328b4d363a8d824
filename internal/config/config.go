// Package config provides configuration loading and structs for the Aristotle server.
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
	Debug      bool             `yaml:"debug"`
	Server     ServerConfig     `yaml:"server"`
	Storage    StorageConfig    `yaml:"storage"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Retrieval  RetrievalConfig  `yaml:"retrieval"`
	Prompt     PromptConfig     `yaml:"prompt"`
	Generation GenerationConfig `yaml:"generation"`
	Knowledge  KnowledgeConfig  `yaml:"knowledge"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host        string   `yaml:"host"`
	Port        int      `yaml:"port"`
	CORSEnabled *bool    `yaml:"cors_enabled"`
	CORSOrigins []string `yaml:"cors_origins"`
}

// CORSEnabledOrDefault reports whether CORS headers are served; defaults to true.
func (s *ServerConfig) CORSEnabledOrDefault() bool {
	if s.CORSEnabled != nil {
		return *s.CORSEnabled
	}
	return true
}

// StorageConfig holds paths for the document database and vector indexes.
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
	IndexDir     string `yaml:"index_dir"`
}

// EmbeddingConfig holds ONNX embedder settings.
type EmbeddingConfig struct {
	ModelPath  string `yaml:"model_path"`
	ModelID    string `yaml:"model_id"`
	Dimensions int    `yaml:"dimensions"`
	MaxTokens  int    `yaml:"max_tokens"`
	CacheSize  int    `yaml:"cache_size"`
	// UseMock swaps in the deterministic embedder; for development without
	// the ONNX model file.
	UseMock bool `yaml:"use_mock"`
}

// RetrievalConfig holds retrieval settings.
type RetrievalConfig struct {
	TopK int `yaml:"top_k"`
}

// PromptConfig holds prompt assembly settings.
type PromptConfig struct {
	CharBudget int `yaml:"char_budget"`
}

// ProviderConfig holds one LLM provider's settings. The API key is read from
// the environment variable named by APIKeyEnv, never from the file.
type ProviderConfig struct {
	BaseURL     string  `yaml:"base_url"`
	Model       string  `yaml:"model"`
	APIKeyEnv   string  `yaml:"api_key_env"`
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`
}

// GenerationConfig holds provider order and retry settings.
type GenerationConfig struct {
	// Providers is the fallback order; recognized names are "deepseek" and
	// "claude".
	Providers        []string       `yaml:"providers"`
	DeepSeek         ProviderConfig `yaml:"deepseek"`
	Claude           ProviderConfig `yaml:"claude"`
	AttemptTimeoutMS int            `yaml:"attempt_timeout_ms"`
	RetryBackoffMS   int            `yaml:"retry_backoff_ms"`
}

// KnowledgeConfig holds curated knowledge file settings.
type KnowledgeConfig struct {
	// Dir is watched for JSON/XLSX knowledge files when Watch is true.
	Dir   string `yaml:"dir"`
	Watch bool   `yaml:"watch"`
}

// Load reads and parses the config file at path, expands paths, and applies defaults.
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

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Storage.IndexDir = expandPath(cfg.Storage.IndexDir, configDir)
	cfg.Embedding.ModelPath = expandPath(cfg.Embedding.ModelPath, configDir)
	if cfg.Knowledge.Dir != "" {
		cfg.Knowledge.Dir = expandPath(cfg.Knowledge.Dir, configDir)
	}

	return &cfg, nil
}

// Default returns a config with every default applied, for running without a
// config file.
func Default() *Config {
	var cfg Config
	ApplyDefaults(&cfg)
	return &cfg
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
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
