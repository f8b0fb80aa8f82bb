// Package config provides configuration loading and management for Dealflow.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/c360studio/dealflow/llm"
)

// Config represents the complete Dealflow configuration
type Config struct {
	Generator GeneratorConfig `yaml:"generator"`
	Search    SearchConfig    `yaml:"search"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Analytics AnalyticsConfig `yaml:"analytics"`
	NATS      NATSConfig      `yaml:"nats"`
	HTTP      HTTPConfig      `yaml:"http"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
}

// GeneratorConfig configures the text-generation endpoints. Endpoints are
// tried in order until one succeeds.
type GeneratorConfig struct {
	Endpoints []llm.Endpoint `yaml:"endpoints"`
	// Temperature controls randomness (0.0-1.0, default: 0.2)
	Temperature float64 `yaml:"temperature"`
	// Timeout is the maximum time to wait for generator responses
	Timeout time.Duration `yaml:"timeout"`
}

// SearchConfig configures the citation-search provider.
type SearchConfig struct {
	// URL is the search API base URL (default: Perplexity)
	URL string `yaml:"url"`
	// Model is the search model name
	Model string `yaml:"model"`
}

// EmbeddingConfig configures the sector-embedding provider.
type EmbeddingConfig struct {
	// URL is the embedding API base URL (default: local Ollama)
	URL string `yaml:"url"`
	// Model is the embedding model name
	Model string `yaml:"model"`
	// Enabled toggles embedding-based sector scoring; lexical scoring is
	// used when false.
	Enabled bool `yaml:"enabled"`
}

// AnalyticsConfig configures the product-analytics reporting API.
type AnalyticsConfig struct {
	// URL is the reporting API base URL (empty = Google Analytics Data API)
	URL string `yaml:"url"`
}

// NATSConfig configures the NATS connection
type NATSConfig struct {
	// URL is the NATS server URL
	URL string `yaml:"url"`
}

// HTTPConfig configures the upload API surface.
type HTTPConfig struct {
	// Listen is the address the HTTP server binds to
	Listen string `yaml:"listen"`
	// BaseURL prefixes download links returned to uploaders
	BaseURL string `yaml:"base_url"`
	// Prefix is the route prefix, with trailing slash
	Prefix string `yaml:"prefix"`
}

// PipelineConfig configures stage behavior.
type PipelineConfig struct {
	// Force reruns stages whose output documents already exist
	Force bool `yaml:"force"`
	// MinScore filters matches below this raw score (0-1 scale)
	MinScore float64 `yaml:"min_score"`
	// CatalogPath is an optional investor catalog JSON file to watch
	CatalogPath string `yaml:"catalog_path"`
	// CatalogTTL bounds how long the investor cache is served unrefreshed
	CatalogTTL time.Duration `yaml:"catalog_ttl"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Generator: GeneratorConfig{
			Endpoints: []llm.Endpoint{
				{Provider: "ollama", Model: "qwen2.5:32b", URL: "http://localhost:11434"},
			},
			Temperature: 0.2,
			Timeout:     5 * time.Minute,
		},
		Search: SearchConfig{
			URL:   "https://api.perplexity.ai",
			Model: "sonar",
		},
		Embedding: EmbeddingConfig{
			URL:     "http://localhost:11434",
			Model:   "nomic-embed-text",
			Enabled: false,
		},
		NATS: NATSConfig{
			URL: "nats://localhost:4222",
		},
		HTTP: HTTPConfig{
			Listen: ":8080",
			Prefix: "/dealflow/",
		},
		Pipeline: PipelineConfig{
			MinScore:   0.30,
			CatalogTTL: 5 * time.Minute,
		},
	}
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if len(c.Generator.Endpoints) == 0 {
		return fmt.Errorf("generator.endpoints is required")
	}
	for i, ep := range c.Generator.Endpoints {
		if ep.Model == "" || ep.URL == "" {
			return fmt.Errorf("generator.endpoints[%d] needs model and url", i)
		}
	}
	if c.Generator.Temperature < 0 || c.Generator.Temperature > 1 {
		return fmt.Errorf("generator.temperature must be between 0 and 1")
	}
	if c.NATS.URL == "" {
		return fmt.Errorf("nats.url is required")
	}
	if c.Pipeline.MinScore < 0 || c.Pipeline.MinScore > 1 {
		return fmt.Errorf("pipeline.min_score must be between 0 and 1")
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a YAML file
func (c *Config) SaveToFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Merge merges another config into this one (other takes precedence for non-zero values)
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	if len(other.Generator.Endpoints) > 0 {
		c.Generator.Endpoints = other.Generator.Endpoints
	}
	if other.Generator.Temperature != 0 {
		c.Generator.Temperature = other.Generator.Temperature
	}
	if other.Generator.Timeout != 0 {
		c.Generator.Timeout = other.Generator.Timeout
	}

	if other.Search.URL != "" {
		c.Search.URL = other.Search.URL
	}
	if other.Search.Model != "" {
		c.Search.Model = other.Search.Model
	}

	if other.Embedding.URL != "" {
		c.Embedding.URL = other.Embedding.URL
	}
	if other.Embedding.Model != "" {
		c.Embedding.Model = other.Embedding.Model
	}
	if other.Embedding.Enabled {
		c.Embedding.Enabled = true
	}

	if other.Analytics.URL != "" {
		c.Analytics.URL = other.Analytics.URL
	}

	if other.NATS.URL != "" {
		c.NATS.URL = other.NATS.URL
	}

	if other.HTTP.Listen != "" {
		c.HTTP.Listen = other.HTTP.Listen
	}
	if other.HTTP.BaseURL != "" {
		c.HTTP.BaseURL = other.HTTP.BaseURL
	}
	if other.HTTP.Prefix != "" {
		c.HTTP.Prefix = other.HTTP.Prefix
	}

	if other.Pipeline.Force {
		c.Pipeline.Force = true
	}
	if other.Pipeline.MinScore != 0 {
		c.Pipeline.MinScore = other.Pipeline.MinScore
	}
	if other.Pipeline.CatalogPath != "" {
		c.Pipeline.CatalogPath = other.Pipeline.CatalogPath
	}
	if other.Pipeline.CatalogTTL != 0 {
		c.Pipeline.CatalogTTL = other.Pipeline.CatalogTTL
	}
}
