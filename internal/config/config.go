// Package config loads teamgraph configuration from an optional YAML file
// and environment variables. Environment variables win over the file.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Provider selects the LLM backend for role/task extraction.
type Provider string

const (
	ProviderOllama    Provider = "ollama"
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
	ProviderBedrock   Provider = "bedrock"
)

// Config holds all configuration values.
type Config struct {
	Server    ServerConfig   `yaml:"server"`
	SurrealDB SurrealConfig  `yaml:"surrealdb"`
	LLM       LLMConfig      `yaml:"llm"`
	Documents DocumentConfig `yaml:"documents"`
	Log       LogConfig      `yaml:"log"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port string `yaml:"port"`
}

// SurrealConfig holds SurrealDB connection settings. Workspace databases
// live under Namespace; SystemDatabase is used for catalog operations.
type SurrealConfig struct {
	URL            string `yaml:"url"`
	Namespace      string `yaml:"namespace"`
	SystemDatabase string `yaml:"system_database"`
	Username       string `yaml:"username"`
	Password       string `yaml:"password"`
}

// LLMConfig holds extractor model settings.
type LLMConfig struct {
	Provider        Provider `yaml:"provider"`
	Model           string   `yaml:"model"`
	OllamaHost      string   `yaml:"ollama_host"`
	OpenAIAPIKey    string   `yaml:"openai_api_key"`
	AnthropicAPIKey string   `yaml:"anthropic_api_key"`
	AWSRegion       string   `yaml:"aws_region"`
}

// DocumentConfig holds document chunking settings.
type DocumentConfig struct {
	ChunkSize    int `yaml:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	File  string `yaml:"file"`
	Level string `yaml:"level"`
}

// SlogLevel parses the configured log level, defaulting to INFO.
func (l LogConfig) SlogLevel() slog.Level {
	switch strings.ToUpper(l.Level) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Default returns the built-in configuration defaults.
func Default() Config {
	return Config{
		Server: ServerConfig{Port: "8080"},
		SurrealDB: SurrealConfig{
			URL:            "ws://localhost:8000/rpc",
			Namespace:      "teamgraph",
			SystemDatabase: "system",
			Username:       "root",
			Password:       "root",
		},
		LLM: LLMConfig{
			Provider:   ProviderOllama,
			Model:      "llama3.1",
			OllamaHost: "http://localhost:11434",
		},
		Documents: DocumentConfig{
			ChunkSize:    10000,
			ChunkOverlap: 1000,
		},
		Log: LogConfig{
			File:  "/tmp/teamgraph.log",
			Level: "INFO",
		},
	}
}

// Load builds the configuration from defaults, then the YAML file at path
// (or $TEAMGRAPH_CONFIG if path is empty), then environment overrides.
// A missing config file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv("TEAMGRAPH_CONFIG")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return cfg, fmt.Errorf("read config file: %w", err)
			}
		} else if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	setEnv(&cfg.Server.Port, "TEAMGRAPH_PORT")

	setEnv(&cfg.SurrealDB.URL, "SURREALDB_URL")
	setEnv(&cfg.SurrealDB.Namespace, "SURREALDB_NAMESPACE")
	setEnv(&cfg.SurrealDB.SystemDatabase, "SURREALDB_SYSTEM_DATABASE")
	setEnv(&cfg.SurrealDB.Username, "SURREALDB_USER")
	setEnv(&cfg.SurrealDB.Password, "SURREALDB_PASS")

	if v := os.Getenv("TEAMGRAPH_LLM_PROVIDER"); v != "" {
		cfg.LLM.Provider = Provider(v)
	}
	setEnv(&cfg.LLM.Model, "TEAMGRAPH_LLM_MODEL")
	setEnv(&cfg.LLM.OllamaHost, "OLLAMA_HOST")
	setEnv(&cfg.LLM.OpenAIAPIKey, "OPENAI_API_KEY")
	setEnv(&cfg.LLM.AnthropicAPIKey, "ANTHROPIC_API_KEY")
	setEnv(&cfg.LLM.AWSRegion, "AWS_REGION")

	setEnvInt(&cfg.Documents.ChunkSize, "TEAMGRAPH_CHUNK_SIZE")
	setEnvInt(&cfg.Documents.ChunkOverlap, "TEAMGRAPH_CHUNK_OVERLAP")

	setEnv(&cfg.Log.File, "TEAMGRAPH_LOG_FILE")
	setEnv(&cfg.Log.Level, "TEAMGRAPH_LOG_LEVEL")
}

func setEnv(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setEnvInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}
