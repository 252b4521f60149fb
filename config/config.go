// Package config provides application configuration. Settings come from an
// optional YAML file overlaid with environment variables; the environment
// always wins so deployments can override a committed file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Addr           string      `yaml:"addr"`
	DBPath         string      `yaml:"db_path"`
	ArtifactDir    string      `yaml:"artifact_dir"`
	ArtifactURL    string      `yaml:"artifact_url"`
	DocsDir        string      `yaml:"docs_dir"`
	WeatherBaseURL string      `yaml:"weather_base_url"`
	LogLevel       string      `yaml:"log_level"`
	Model          ModelConfig `yaml:"model"`
	Agent          AgentConfig `yaml:"agent"`
}

// ModelConfig selects and configures the language model backend.
type ModelConfig struct {
	// Provider is one of "openai", "anthropic" or "ollama".
	Provider string `yaml:"provider"`
	Name     string `yaml:"name"`
	BaseURL  string `yaml:"base_url"`
	APIKey   string `yaml:"api_key"`
}

// AgentConfig tunes the turn loop.
type AgentConfig struct {
	MaxIterations int           `yaml:"max_iterations"`
	StepTimeout   time.Duration `yaml:"step_timeout"`
}

// Load reads configuration from the YAML file at path (skipped when path
// is empty or the file does not exist) and then from environment
// variables.
func Load(path string) (*Config, error) {
	cfg := &Config{
		Addr:           ":8080",
		DBPath:         "./data/docuchat.db",
		ArtifactDir:    "./data/artifacts",
		ArtifactURL:    "/artifacts",
		WeatherBaseURL: "https://wttr.in",
		LogLevel:       "info",
		Model: ModelConfig{
			Provider: "ollama",
			Name:     "llama3.1",
			BaseURL:  "http://localhost:11434",
		},
		Agent: AgentConfig{
			MaxIterations: 5,
			StepTimeout:   60 * time.Second,
		},
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config file: %w", err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Addr = getEnv("DOCUCHAT_ADDR", c.Addr)
	c.DBPath = getEnv("DOCUCHAT_DB_PATH", c.DBPath)
	c.ArtifactDir = getEnv("DOCUCHAT_ARTIFACT_DIR", c.ArtifactDir)
	c.ArtifactURL = getEnv("DOCUCHAT_ARTIFACT_URL", c.ArtifactURL)
	c.DocsDir = getEnv("DOCUCHAT_DOCS_DIR", c.DocsDir)
	c.WeatherBaseURL = getEnv("DOCUCHAT_WEATHER_BASE_URL", c.WeatherBaseURL)
	c.LogLevel = getEnv("DOCUCHAT_LOG_LEVEL", c.LogLevel)

	c.Model.Provider = getEnv("DOCUCHAT_MODEL_PROVIDER", c.Model.Provider)
	c.Model.Name = getEnv("DOCUCHAT_MODEL_NAME", c.Model.Name)
	c.Model.BaseURL = getEnv("DOCUCHAT_MODEL_BASE_URL", c.Model.BaseURL)
	c.Model.APIKey = getEnv("DOCUCHAT_MODEL_API_KEY", c.Model.APIKey)

	c.Agent.MaxIterations = getEnvInt("DOCUCHAT_AGENT_MAX_ITERATIONS", c.Agent.MaxIterations)
	c.Agent.StepTimeout = getEnvDuration("DOCUCHAT_AGENT_STEP_TIMEOUT", c.Agent.StepTimeout)
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("addr cannot be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("db_path cannot be empty")
	}
	switch c.Model.Provider {
	case "openai", "anthropic":
		if c.Model.APIKey == "" {
			return fmt.Errorf("model provider %q requires an API key", c.Model.Provider)
		}
	case "ollama":
		if c.Model.BaseURL == "" {
			return fmt.Errorf("model provider ollama requires a base URL")
		}
	default:
		return fmt.Errorf("unknown model provider %q", c.Model.Provider)
	}
	if c.Model.Name == "" {
		return fmt.Errorf("model name cannot be empty")
	}
	if c.Agent.MaxIterations <= 0 {
		return fmt.Errorf("agent max_iterations must be > 0")
	}
	if c.Agent.StepTimeout <= 0 {
		return fmt.Errorf("agent step_timeout must be > 0")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
