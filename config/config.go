package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the agent backend.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Agent     AgentConfig     `mapstructure:"agent"`
	Tools     ToolsConfig     `mapstructure:"tools"`
	Artifacts ArtifactsConfig `mapstructure:"artifacts"`
	Sessions  SessionsConfig  `mapstructure:"sessions"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Address     string   `mapstructure:"address"`
	CORSOrigins []string `mapstructure:"cors_origins"`
}

// LLMConfig contains the model provider configuration.
type LLMConfig struct {
	APIKey      string        `mapstructure:"api_key"`
	BaseURL     string        `mapstructure:"base_url"`
	Model       string        `mapstructure:"model"`
	Temperature float64       `mapstructure:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// AgentConfig contains execution loop settings.
type AgentConfig struct {
	Name          string `mapstructure:"name"`
	Description   string `mapstructure:"description"`
	MaxIterations int    `mapstructure:"max_iterations"`
}

// ToolsConfig contains per-toolkit settings.
type ToolsConfig struct {
	Search SearchConfig `mapstructure:"search"`
	Fetch  FetchConfig  `mapstructure:"fetch"`
}

// SearchConfig selects and configures the web search provider.
type SearchConfig struct {
	Provider     string        `mapstructure:"provider"` // serper or brave
	SerperAPIKey string        `mapstructure:"serper_api_key"`
	BraveAPIKey  string        `mapstructure:"brave_api_key"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

// FetchConfig configures the headless page fetcher.
type FetchConfig struct {
	TimeoutMS int `mapstructure:"timeout_ms"`
	MaxChars  int `mapstructure:"max_chars"`
}

// ArtifactsConfig configures artifact file export.
type ArtifactsConfig struct {
	Dir string `mapstructure:"dir"`
}

// SessionsConfig bounds the in-memory session registry.
// MaxSessions == 0 means unbounded.
type SessionsConfig struct {
	MaxSessions int `mapstructure:"max_sessions"`
}

// TelemetryConfig toggles prometheus metrics.
type TelemetryConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

func setDefaults() {
	viper.SetDefault("server.address", ":8000")
	viper.SetDefault("server.cors_origins", []string{"*"})
	viper.SetDefault("llm.model", "gpt-4o-mini")
	viper.SetDefault("llm.temperature", 0.7)
	viper.SetDefault("llm.max_tokens", 4096)
	viper.SetDefault("llm.timeout", "120s")
	viper.SetDefault("agent.name", "Atlas")
	viper.SetDefault("agent.description", "a general-purpose AI agent capable of web research, data analysis, and document creation")
	viper.SetDefault("agent.max_iterations", 10)
	viper.SetDefault("tools.search.provider", "serper")
	viper.SetDefault("tools.search.timeout", "15s")
	viper.SetDefault("tools.fetch.timeout_ms", 15000)
	viper.SetDefault("tools.fetch.max_chars", 20000)
	viper.SetDefault("artifacts.dir", "./artifacts_storage")
	viper.SetDefault("sessions.max_sessions", 0)
	viper.SetDefault("telemetry.enabled", true)
}

// Load reads configuration from the given path (or the working directory when
// empty), applying ATLAS_* environment overrides on top of file values.
func Load(path string) (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("json")
	if path != "" {
		viper.AddConfigPath(path)
	}
	viper.AddConfigPath(".")
	setDefaults()

	viper.SetEnvPrefix("ATLAS")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		// A missing config file is fine; defaults plus env cover it.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.Tools.Search.SerperAPIKey == "" {
		cfg.Tools.Search.SerperAPIKey = os.Getenv("SERPER_API_KEY")
	}
	if cfg.Tools.Search.BraveAPIKey == "" {
		cfg.Tools.Search.BraveAPIKey = os.Getenv("BRAVE_API_KEY")
	}
	return &cfg, nil
}
