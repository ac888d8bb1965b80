// Package config loads brandstudio configuration from YAML with
// environment overrides. A missing config file yields defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all brandstudio configuration.
type Config struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	Server       ServerConfig    `yaml:"server"`
	LLM          LLMConfig       `yaml:"llm"`
	Embedding    EmbeddingConfig `yaml:"embedding"`
	Knowledge    KnowledgeConfig `yaml:"knowledge"`
	Index        IndexConfig     `yaml:"index"`
	Regeneration RegenConfig     `yaml:"regeneration"`
	Store        StoreConfig     `yaml:"store"`
	Cache        CacheConfig     `yaml:"cache"`
	Logging      LoggingConfig   `yaml:"logging"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	RequestTimeout string `yaml:"request_timeout"`
}

// LLMConfig configures the content-generation collaborator.
type LLMConfig struct {
	Provider string `yaml:"provider"` // genai
	APIKey   string `yaml:"api_key"`
	Model    string `yaml:"model"`
	Timeout  string `yaml:"timeout"`
}

// EmbeddingConfig configures the embedding provider.
type EmbeddingConfig struct {
	Provider       string `yaml:"provider"` // ollama or genai
	OllamaEndpoint string `yaml:"ollama_endpoint"`
	OllamaModel    string `yaml:"ollama_model"`
	GenAIAPIKey    string `yaml:"genai_api_key"`
	GenAIModel     string `yaml:"genai_model"`
}

// KnowledgeConfig locates the brand knowledge base.
type KnowledgeConfig struct {
	Path  string `yaml:"path"`
	Watch bool   `yaml:"watch"` // invalidate cache on file changes
}

// IndexConfig configures chunking and index persistence.
type IndexConfig struct {
	VectorPath    string `yaml:"vector_path"`
	DocsPath      string `yaml:"docs_path"`
	MinChunkChars int    `yaml:"min_chunk_chars"`
	WindowWords   int    `yaml:"window_words"`
	OverlapWords  int    `yaml:"overlap_words"`
	TopK          int    `yaml:"top_k"`
}

// RegenConfig configures the regeneration loop.
type RegenConfig struct {
	MaxAttempts int `yaml:"max_attempts"`
}

// StoreConfig configures campaign persistence.
type StoreConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// CacheConfig configures the generation response cache.
type CacheConfig struct {
	Dir         string `yaml:"dir"`
	ExpiryHours int    `yaml:"expiry_hours"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
	Dir   string `yaml:"dir"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "brandstudio",
		Version: "0.3.0",

		Server: ServerConfig{
			Host:           "0.0.0.0",
			Port:           8000,
			RequestTimeout: "120s",
		},
		LLM: LLMConfig{
			Provider: "genai",
			Model:    "gemini-2.5-flash",
			Timeout:  "120s",
		},
		Embedding: EmbeddingConfig{
			Provider:       "ollama",
			OllamaEndpoint: "http://localhost:11434",
			OllamaModel:    "embeddinggemma",
			GenAIModel:     "gemini-embedding-001",
		},
		Knowledge: KnowledgeConfig{
			Path:  "brand_kb",
			Watch: true,
		},
		Index: IndexConfig{
			VectorPath:    "data/brand_index.bin",
			DocsPath:      "data/brand_docs.json",
			MinChunkChars: 20,
			WindowWords:   512,
			OverlapWords:  50,
			TopK:          3,
		},
		Regeneration: RegenConfig{
			MaxAttempts: 3,
		},
		Store: StoreConfig{
			DatabasePath: "data/brandstudio.db",
		},
		Cache: CacheConfig{
			Dir:         "data/cache",
			ExpiryHours: 24,
		},
		Logging: LoggingConfig{
			Level: "info",
			Dir:   "data",
		},
	}
}

// Load loads configuration from a YAML file. A missing file returns
// defaults; a malformed file is an error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save writes the configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0644)
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.LLM.APIKey = key
		c.Embedding.GenAIAPIKey = key
	}
	if ep := os.Getenv("OLLAMA_ENDPOINT"); ep != "" {
		c.Embedding.OllamaEndpoint = ep
	}
	if p := os.Getenv("STUDIO_KB_PATH"); p != "" {
		c.Knowledge.Path = p
	}
	if p := os.Getenv("STUDIO_DB"); p != "" {
		c.Store.DatabasePath = p
	}
	if p := os.Getenv("STUDIO_PORT"); p != "" {
		var port int
		if _, err := fmt.Sscanf(p, "%d", &port); err == nil && port > 0 {
			c.Server.Port = port
		}
	}
}

// Validate checks settings that have no safe fallback.
func (c *Config) Validate() error {
	if c.Regeneration.MaxAttempts < 1 {
		return fmt.Errorf("regeneration.max_attempts must be at least 1, got %d", c.Regeneration.MaxAttempts)
	}
	switch c.Embedding.Provider {
	case "ollama", "genai":
	default:
		return fmt.Errorf("invalid embedding provider: %s (use 'ollama' or 'genai')", c.Embedding.Provider)
	}
	if c.Embedding.Provider == "genai" && c.Embedding.GenAIAPIKey == "" {
		return fmt.Errorf("embedding provider genai requires an API key (set GEMINI_API_KEY)")
	}
	return nil
}

// Addr returns the host:port the server binds to.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// GetLLMTimeout returns the LLM timeout as a duration.
func (c *Config) GetLLMTimeout() time.Duration {
	d, err := time.ParseDuration(c.LLM.Timeout)
	if err != nil {
		return 120 * time.Second
	}
	return d
}

// GetRequestTimeout returns the HTTP request timeout as a duration.
func (c *Config) GetRequestTimeout() time.Duration {
	d, err := time.ParseDuration(c.Server.RequestTimeout)
	if err != nil {
		return 120 * time.Second
	}
	return d
}
