package profile

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Profile is the configuration to start the mnemos server.
type Profile struct {
	// Mode can be "prod" or "dev" or "demo"
	Mode string
	// Addr is the binding address for server
	Addr string
	// Port is the binding port for server
	Port int
	// Driver is the database driver (sqlite or postgres)
	Driver string
	// DSN points to where mnemos stores its own data
	DSN string
	// Version is the current version of server
	Version string

	// AI capability configuration
	AIEnabled             bool   // MNEMOS_AI_ENABLED
	AIClassifierAPIKey    string // MNEMOS_AI_CLASSIFIER_API_KEY
	AIClassifierBaseURL   string // MNEMOS_AI_CLASSIFIER_BASE_URL (default: https://api.siliconflow.cn/v1)
	AIClassifierModel     string // MNEMOS_AI_CLASSIFIER_MODEL (default: Qwen/Qwen2.5-7B-Instruct)
	AIEmbeddingAPIKey     string // MNEMOS_AI_EMBEDDING_API_KEY
	AIEmbeddingBaseURL    string // MNEMOS_AI_EMBEDDING_BASE_URL
	AIEmbeddingModel      string // MNEMOS_AI_EMBEDDING_MODEL (default: BAAI/bge-m3)
	AIEmbeddingDimensions int    // MNEMOS_AI_EMBEDDING_DIMENSIONS (default: 1024)

	// Consolidation tunables
	IncrementalThreshold int           // MNEMOS_INCREMENTAL_THRESHOLD (default: 10)
	QueueWorkers         int           // MNEMOS_QUEUE_WORKERS (default: 2)
	SweepSchedule        string        // MNEMOS_SWEEP_SCHEDULE cron expression (default: "@every 30m")
	SurfacingThreshold   float64       // MNEMOS_SURFACING_THRESHOLD (default: 0.8)
	DecayHalfLife        time.Duration // MNEMOS_DECAY_HALF_LIFE, informational only
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// IsAIEnabled returns true if AI is enabled and at least one API key is configured.
func (p *Profile) IsAIEnabled() bool {
	return p.AIEnabled && (p.AIClassifierAPIKey != "" || p.AIEmbeddingAPIKey != "")
}

// getEnvOrDefault returns the environment variable value or the default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnvOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

// FromEnv loads configuration from MNEMOS_* environment variables.
func (p *Profile) FromEnv() {
	p.AIEnabled = os.Getenv("MNEMOS_AI_ENABLED") == "true"
	p.AIClassifierAPIKey = os.Getenv("MNEMOS_AI_CLASSIFIER_API_KEY")
	p.AIClassifierBaseURL = getEnvOrDefault("MNEMOS_AI_CLASSIFIER_BASE_URL", "https://api.siliconflow.cn/v1")
	p.AIClassifierModel = getEnvOrDefault("MNEMOS_AI_CLASSIFIER_MODEL", "Qwen/Qwen2.5-7B-Instruct")
	p.AIEmbeddingAPIKey = os.Getenv("MNEMOS_AI_EMBEDDING_API_KEY")
	p.AIEmbeddingBaseURL = getEnvOrDefault("MNEMOS_AI_EMBEDDING_BASE_URL", "https://api.siliconflow.cn/v1")
	p.AIEmbeddingModel = getEnvOrDefault("MNEMOS_AI_EMBEDDING_MODEL", "BAAI/bge-m3")
	p.AIEmbeddingDimensions = getIntEnvOrDefault("MNEMOS_AI_EMBEDDING_DIMENSIONS", 1024)

	p.IncrementalThreshold = getIntEnvOrDefault("MNEMOS_INCREMENTAL_THRESHOLD", 10)
	p.QueueWorkers = getIntEnvOrDefault("MNEMOS_QUEUE_WORKERS", 2)
	p.SweepSchedule = getEnvOrDefault("MNEMOS_SWEEP_SCHEDULE", "@every 30m")
	if v := os.Getenv("MNEMOS_SURFACING_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 && f <= 1 {
			p.SurfacingThreshold = f
		}
	}
	if p.SurfacingThreshold == 0 {
		p.SurfacingThreshold = 0.8
	}
}

// Validate validates the profile and fills defaults.
func (p *Profile) Validate() error {
	if p.Mode != "demo" && p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "demo"
	}

	switch strings.ToLower(p.Driver) {
	case "sqlite", "postgres":
	case "":
		p.Driver = "sqlite"
	default:
		return errors.Errorf("unsupported database driver %q", p.Driver)
	}

	if p.Driver == "postgres" && p.DSN == "" {
		return errors.New("postgres driver requires a DSN")
	}
	if p.Driver == "sqlite" && p.DSN == "" {
		p.DSN = "mnemos.db"
	}

	if p.Port <= 0 {
		p.Port = 8081
	}
	if p.IncrementalThreshold <= 0 {
		p.IncrementalThreshold = 10
	}
	if p.QueueWorkers <= 0 {
		p.QueueWorkers = 2
	}
	if p.SweepSchedule == "" {
		p.SweepSchedule = "@every 30m"
	}
	if p.SurfacingThreshold <= 0 || p.SurfacingThreshold > 1 {
		p.SurfacingThreshold = 0.8
	}
	return nil
}

func (p *Profile) String() string {
	return fmt.Sprintf("mode=%s addr=%s:%d driver=%s", p.Mode, p.Addr, p.Port, p.Driver)
}
