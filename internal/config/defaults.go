package config

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8000
	}
	if cfg.Server.CORSOrigins == nil {
		cfg.Server.CORSOrigins = []string{"*"}
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/aristotle/data/db/knowledge.db"
	}
	if cfg.Storage.IndexDir == "" {
		cfg.Storage.IndexDir = "/usr/local/var/aristotle/data/indices"
	}
	if cfg.Embedding.ModelPath == "" {
		cfg.Embedding.ModelPath = "/usr/local/var/aristotle/data/models/all-MiniLM-L6-v2.onnx"
	}
	if cfg.Embedding.ModelID == "" {
		cfg.Embedding.ModelID = "all-MiniLM-L6-v2"
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
	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = 5
	}
	if cfg.Prompt.CharBudget == 0 {
		cfg.Prompt.CharBudget = 2400
	}
	if len(cfg.Generation.Providers) == 0 {
		cfg.Generation.Providers = []string{"deepseek", "claude"}
	}
	if cfg.Generation.DeepSeek.APIKeyEnv == "" {
		cfg.Generation.DeepSeek.APIKeyEnv = "DEEPSEEK_API_KEY"
	}
	if cfg.Generation.Claude.APIKeyEnv == "" {
		cfg.Generation.Claude.APIKeyEnv = "ANTHROPIC_API_KEY"
	}
	if cfg.Generation.AttemptTimeoutMS == 0 {
		cfg.Generation.AttemptTimeoutMS = 30000
	}
	if cfg.Generation.RetryBackoffMS == 0 {
		cfg.Generation.RetryBackoffMS = 500
	}
}
