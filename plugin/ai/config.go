// Package ai provides the narrow AI capability layer consumed by the memory
// engine: structured classification and text embedding. Conversational reply
// generation is out of scope and intentionally has no interface here.
package ai

import (
	"errors"

	"github.com/hrygo/mnemos/internal/profile"
)

// Config represents AI capability configuration.
type Config struct {
	Enabled bool

	Classifier ClassifierConfig
	Embedding  EmbeddingConfig
}

// ClassifierConfig represents structured classification configuration.
type ClassifierConfig struct {
	Model   string // Qwen/Qwen2.5-7B-Instruct
	APIKey  string
	BaseURL string
}

// EmbeddingConfig represents vector embedding configuration.
type EmbeddingConfig struct {
	Model      string // BAAI/bge-m3
	Dimensions int    // 1024
	APIKey     string
	BaseURL    string
}

// NewConfigFromProfile creates AI config from profile.
func NewConfigFromProfile(p *profile.Profile) *Config {
	cfg := &Config{
		Enabled: p.AIEnabled,
	}

	if !cfg.Enabled {
		return cfg
	}

	cfg.Classifier = ClassifierConfig{
		Model:   p.AIClassifierModel,
		APIKey:  p.AIClassifierAPIKey,
		BaseURL: p.AIClassifierBaseURL,
	}

	cfg.Embedding = EmbeddingConfig{
		Model:      p.AIEmbeddingModel,
		Dimensions: p.AIEmbeddingDimensions,
		APIKey:     p.AIEmbeddingAPIKey,
		BaseURL:    p.AIEmbeddingBaseURL,
	}
	if cfg.Embedding.Dimensions <= 0 {
		cfg.Embedding.Dimensions = 1024
	}

	return cfg
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}

	if c.Classifier.Model == "" {
		return errors.New("classifier model is required")
	}
	if c.Classifier.APIKey == "" {
		return errors.New("classifier API key is required")
	}
	if c.Embedding.Model == "" {
		return errors.New("embedding model is required")
	}
	if c.Embedding.APIKey == "" {
		return errors.New("embedding API key is required")
	}
	if c.Embedding.Dimensions <= 0 {
		return errors.New("embedding dimensions must be positive")
	}

	return nil
}
