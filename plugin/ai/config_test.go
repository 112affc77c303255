package ai

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hrygo/mnemos/internal/profile"
)

func TestNewConfigFromProfile(t *testing.T) {
	p := &profile.Profile{
		AIEnabled:             true,
		AIClassifierAPIKey:    "sk-class",
		AIClassifierModel:     "Qwen/Qwen2.5-7B-Instruct",
		AIClassifierBaseURL:   "https://api.siliconflow.cn/v1",
		AIEmbeddingAPIKey:     "sk-embed",
		AIEmbeddingModel:      "BAAI/bge-m3",
		AIEmbeddingDimensions: 1024,
	}

	cfg := NewConfigFromProfile(p)
	assert.True(t, cfg.Enabled)
	assert.Equal(t, "sk-class", cfg.Classifier.APIKey)
	assert.Equal(t, 1024, cfg.Embedding.Dimensions)
	assert.NoError(t, cfg.Validate())
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name:    "disabled config is always valid",
			cfg:     Config{Enabled: false},
			wantErr: false,
		},
		{
			name: "missing classifier key",
			cfg: Config{
				Enabled:    true,
				Classifier: ClassifierConfig{Model: "m"},
				Embedding:  EmbeddingConfig{Model: "e", APIKey: "k", Dimensions: 8},
			},
			wantErr: true,
		},
		{
			name: "missing embedding dimensions",
			cfg: Config{
				Enabled:    true,
				Classifier: ClassifierConfig{Model: "m", APIKey: "k"},
				Embedding:  EmbeddingConfig{Model: "e", APIKey: "k", Dimensions: 0},
			},
			wantErr: true,
		},
		{
			name: "complete config",
			cfg: Config{
				Enabled:    true,
				Classifier: ClassifierConfig{Model: "m", APIKey: "k"},
				Embedding:  EmbeddingConfig{Model: "e", APIKey: "k", Dimensions: 1024},
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestStripCodeFence(t *testing.T) {
	assert.Equal(t, `{"a":1}`, stripCodeFence("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripCodeFence(`{"a":1}`))
}

func TestMockEmbeddingDeterministic(t *testing.T) {
	svc := NewMockEmbeddingService(16)

	a1, err := svc.Embed(context.Background(), "docker deployment")
	assert.NoError(t, err)
	a2, err := svc.Embed(context.Background(), "docker deployment")
	assert.NoError(t, err)
	b, err := svc.Embed(context.Background(), "gardening tips")
	assert.NoError(t, err)

	assert.Equal(t, a1, a2)
	assert.NotEqual(t, a1, b)
	assert.Len(t, a1, 16)
}
