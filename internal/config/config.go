package config

import (
	_ "embed"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

//go:embed screens.yaml
var screensYAML []byte

// Config holds everything the service reads from the environment.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Storage   StorageConfig
	Pipeline  PipelineConfig
	Gemini    GeminiConfig
	OpenAI    OpenAIConfig
	Emotion   EmotionConfig
	Faces     FacesConfig
	Embedding EmbeddingConfig
}

type ServerConfig struct {
	Host string
	Port int
}

type DatabaseConfig struct {
	// URL selects the PostgreSQL backend when set. Empty URL falls back
	// to the embedded SQLite file at SQLitePath.
	URL          string
	SQLitePath   string
	MaxOpenConns int
	MaxIdleConns int
}

type StorageConfig struct {
	UploadDir       string
	MaxUploadSizeMB int
}

type PipelineConfig struct {
	Workers          int
	QueueSize        int
	StageTimeoutSec  int
	CaptionBudgetSec int
}

type GeminiConfig struct {
	APIKey string
	Model  string
}

type OpenAIConfig struct {
	APIKey string
}

type EmotionConfig struct {
	URL    string
	APIKey string
}

type FacesConfig struct {
	URL string
}

type EmbeddingConfig struct {
	URL     string
	Dim     int
	FaceDim int
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: envInt("SERVER_PORT", 8080),
		},
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			SQLitePath:   getEnv("SQLITE_PATH", "fotofindr.db"),
			MaxOpenConns: envInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns: envInt("DB_MAX_IDLE_CONNS", 5),
		},
		Storage: StorageConfig{
			UploadDir:       getEnv("UPLOAD_DIR", "uploads"),
			MaxUploadSizeMB: envInt("MAX_UPLOAD_SIZE_MB", 20),
		},
		Pipeline: PipelineConfig{
			Workers:          envInt("PIPELINE_WORKERS", 4),
			QueueSize:        envInt("PIPELINE_QUEUE_SIZE", 256),
			StageTimeoutSec:  envInt("PIPELINE_STAGE_TIMEOUT_SEC", 30),
			CaptionBudgetSec: envInt("PIPELINE_CAPTION_BUDGET_SEC", 10),
		},
		Gemini: GeminiConfig{
			APIKey: os.Getenv("GEMINI_API_KEY"),
			Model:  getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		},
		OpenAI: OpenAIConfig{
			APIKey: os.Getenv("OPENAI_API_KEY"),
		},
		Emotion: EmotionConfig{
			URL:    os.Getenv("EMOTION_API_URL"),
			APIKey: os.Getenv("EMOTION_API_KEY"),
		},
		Faces: FacesConfig{
			URL: os.Getenv("FACE_API_URL"),
		},
		Embedding: EmbeddingConfig{
			URL:     getEnv("EMBEDDING_API_URL", "http://localhost:8000"),
			Dim:     envInt("EMBEDDING_DIM", 512),
			FaceDim: envInt("FACE_EMBEDDING_DIM", 512),
		},
	}

	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return nil, fmt.Errorf("invalid SERVER_PORT: %d", cfg.Server.Port)
	}
	if cfg.Pipeline.Workers <= 0 {
		return nil, fmt.Errorf("invalid PIPELINE_WORKERS: %d", cfg.Pipeline.Workers)
	}

	return cfg, nil
}

// ScreenResolution is one known device screen size.
type ScreenResolution struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// ScreenResolutions returns the embedded list of known device screen
// sizes used by the quality scorer for screenshot detection.
func ScreenResolutions() ([]ScreenResolution, error) {
	var parsed struct {
		Resolutions []ScreenResolution `yaml:"resolutions"`
	}
	if err := yaml.Unmarshal(screensYAML, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse embedded screens.yaml: %w", err)
	}
	return parsed.Resolutions, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
