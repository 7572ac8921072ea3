package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type BaseEnv struct {
	Env      string `envconfig:"ENV" default:"local"`
	HTTPHost string `envconfig:"HTTP_HOST" default:""`
	HTTPPort string `envconfig:"HTTP_PORT" default:"3100"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"debug"`
	// Empty disables API key authentication.
	APIKey string `envconfig:"API_KEY"`
}

type StorageEnv struct {
	Backend string `envconfig:"STORE_BACKEND" default:"blob"`
	Type    string `envconfig:"STORAGE_TYPE" default:"local"`
	BaseDir string `envconfig:"STORAGE_BASE_DIR" default:".notevault/data"`
	// S3 settings (used when Type == "s3")
	S3Bucket string `envconfig:"S3_BUCKET"`
	S3Prefix string `envconfig:"S3_PREFIX" default:"notevault/"`
	S3Region string `envconfig:"S3_REGION" default:"ap-northeast-1"`

	BoltPath       string `envconfig:"BOLT_PATH" default:".notevault/vault.db"`
	ChromaURL      string `envconfig:"CHROMA_URL" default:"http://localhost:8000"`
	ChromaTenant   string `envconfig:"CHROMA_TENANT" default:"default_tenant"`
	ChromaDatabase string `envconfig:"CHROMA_DATABASE" default:"default_database"`
	SQLitePath     string `envconfig:"SQLITE_PATH" default:".notevault/vault.sqlite"`

	Seed bool `envconfig:"SEED" default:"true"`
}

type AgentEnv struct {
	BaseURL          string        `envconfig:"AGENT_BASE_URL" default:"https://api.groq.com/openai/v1"`
	APIKey           string        `envconfig:"AGENT_API_KEY"`
	Model            string        `envconfig:"AGENT_MODEL" default:"openai/gpt-oss-120b"`
	Temperature      float64       `envconfig:"AGENT_TEMPERATURE" default:"0"`
	MaxRounds        int           `envconfig:"AGENT_MAX_ROUNDS" default:"15"`
	ModelTimeout     time.Duration `envconfig:"AGENT_MODEL_TIMEOUT" default:"60s"`
	SystemPrompt     string        `envconfig:"AGENT_SYSTEM_PROMPT"`
	SystemPromptFile string        `envconfig:"AGENT_SYSTEM_PROMPT_FILE"`
	IncludeSystem    bool          `envconfig:"AGENT_INCLUDE_SYSTEM" default:"false"`
}

type Env struct {
	BaseEnv
	StorageEnv
	AgentEnv
}

const namespace = "NOTEVAULT"

// LoadEnv reads .env files (when present) and then the process environment.
// Variables already set in the environment win over .env values.
func LoadEnv(dotenvFiles ...string) (*Env, error) {
	if len(dotenvFiles) == 0 {
		dotenvFiles = []string{".env"}
	}
	for _, f := range dotenvFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	var env Env
	if err := envconfig.Process(namespace, &env); err != nil {
		return nil, fmt.Errorf("failed to load env: %w", err)
	}
	if err := env.validate(); err != nil {
		return nil, err
	}
	return &env, nil
}

func (e *Env) validate() error {
	switch e.StorageEnv.Backend {
	case "blob", "bolt", "chroma", "sqlite":
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", e.StorageEnv.Backend)
	}
	switch e.StorageEnv.Type {
	case "local":
	case "s3":
		if e.S3Bucket == "" {
			return errors.New("S3_BUCKET is required when STORAGE_TYPE=s3")
		}
	default:
		return fmt.Errorf("unknown STORAGE_TYPE %q", e.StorageEnv.Type)
	}
	return nil
}

func (e *BaseEnv) SlogLevel() slog.Level {
	if e == nil {
		return slog.LevelDebug
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(e.LogLevel)); err != nil {
		return slog.LevelDebug
	}
	return level
}

func BaseEnvFromEnv(env *Env) *BaseEnv {
	return &env.BaseEnv
}

func StorageEnvFromEnv(env *Env) *StorageEnv {
	return &env.StorageEnv
}

func AgentEnvFromEnv(env *Env) *AgentEnv {
	return &env.AgentEnv
}
