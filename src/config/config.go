package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"graph-context/src/internal/constants"
	"graph-context/src/internal/registry"
)

// Config contains graph-context retriever configuration
type Config struct {
	Servers   map[string]*ServerConfig `yaml:"servers"`
	Cache     CacheConfig              `yaml:"cache"`
	Limiter   LimiterConfig            `yaml:"limiter"`
	Retriever RetrieverConfig          `yaml:"retriever"`
}

// ServerConfig contains configuration for a single language server
type ServerConfig struct {
	Command    string   `yaml:"command"`
	Args       []string `yaml:"args"`
	WorkingDir string   `yaml:"working_dir,omitempty"`
}

// CacheConfig bounds the definition and location caches.
type CacheConfig struct {
	MaxDocuments     int `yaml:"max_documents"`
	MaxEntriesPerDoc int `yaml:"max_entries_per_doc"`
}

// LimiterConfig bounds concurrent provider calls.
type LimiterConfig struct {
	Concurrency int           `yaml:"concurrency"`
	CallTimeout time.Duration `yaml:"call_timeout"`
}

// RetrieverConfig tunes the expansion engine.
type RetrieverConfig struct {
	RecursionDepth        int   `yaml:"recursion_depth"`
	WindowLines           int32 `yaml:"window_lines"`
	MaxSymbolRequests     int   `yaml:"max_symbol_requests"`
	MaxSnippetIdentifiers int   `yaml:"max_snippet_identifiers"`
}

// LoadConfig loads configuration from a YAML file
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := GetDefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return config, nil
}

// SaveConfig saves configuration to a YAML file
func SaveConfig(config *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// GetDefaultConfig returns the stock configuration: the registry's default
// server commands plus the constants package's limits.
func GetDefaultConfig() *Config {
	servers := make(map[string]*ServerConfig, len(registry.DefaultServers))
	for lang, srv := range registry.DefaultServers {
		servers[lang] = &ServerConfig{Command: srv.Command, Args: srv.Args}
	}
	return &Config{
		Servers: servers,
		Cache: CacheConfig{
			MaxDocuments:     constants.DefaultCacheDocuments,
			MaxEntriesPerDoc: constants.DefaultCacheEntriesPerDoc,
		},
		Limiter: LimiterConfig{
			Concurrency: constants.DefaultProviderConcurrency,
			CallTimeout: constants.DefaultProviderTimeout,
		},
		Retriever: RetrieverConfig{
			RecursionDepth:        constants.DefaultRecursionDepth,
			WindowLines:           constants.RetrieverWindowLines,
			MaxSymbolRequests:     constants.MaxSymbolRequests,
			MaxSnippetIdentifiers: constants.MaxSnippetIdentifiers,
		},
	}
}

func validateConfig(config *Config) error {
	for lang, srv := range config.Servers {
		if srv == nil || srv.Command == "" {
			return fmt.Errorf("server for %q has no command", lang)
		}
	}
	if config.Cache.MaxDocuments <= 0 {
		return fmt.Errorf("cache.max_documents must be positive")
	}
	if config.Cache.MaxEntriesPerDoc <= 0 {
		return fmt.Errorf("cache.max_entries_per_doc must be positive")
	}
	if config.Limiter.Concurrency <= 0 {
		return fmt.Errorf("limiter.concurrency must be positive")
	}
	if config.Retriever.RecursionDepth < 0 {
		return fmt.Errorf("retriever.recursion_depth must not be negative")
	}
	return nil
}
