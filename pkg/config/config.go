// Package config loads the orchestrator configuration from YAML with
// environment variable fallbacks for credentials.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration for YAML fields written as "4m" or "30s".
type Duration time.Duration

// UnmarshalYAML parses a duration string.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML renders the duration string.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// AsDuration returns the wrapped time.Duration.
func (d Duration) AsDuration() time.Duration {
	return time.Duration(d)
}

// Config represents the application configuration
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Orchestration OrchestrationConfig `yaml:"orchestration"`
	Session       SessionConfig       `yaml:"session"`
	Providers     ProvidersConfig     `yaml:"providers"`
	Agents        []AgentConfig       `yaml:"agents"`
}

// ServerConfig holds the HTTP listener configuration
type ServerConfig struct {
	// Port is the chat API port.
	Port int `yaml:"port"`
	// ObservabilityPort serves /metrics and /health.
	ObservabilityPort int `yaml:"observability_port"`
}

// OrchestrationConfig tunes the engine
type OrchestrationConfig struct {
	// Deadline bounds each request (default 4m).
	Deadline Duration `yaml:"deadline"`
	// DefaultAgent handles requests with no resolvable candidates.
	DefaultAgent string `yaml:"default_agent"`
	// GenericAgent is the designated synthesis/fallback agent.
	GenericAgent string `yaml:"generic_agent"`
	// MaxAgents caps auto-selected candidates (0 = no cap).
	MaxAgents int `yaml:"max_agents"`
	// RateLimit caps agent invocations per second (0 = unlimited).
	RateLimit float64 `yaml:"rate_limit"`
	// RateBurst is the rate limiter burst size.
	RateBurst int `yaml:"rate_burst"`
}

// SessionConfig holds session storage configuration
type SessionConfig struct {
	// Store selects the backend: "memory", "file", or "redis".
	Store string `yaml:"store"`
	// BaseDir is the base directory for file storage.
	BaseDir string `yaml:"base_dir"`
	// MaxAge is the idle age after which sessions are swept (default 24h).
	MaxAge Duration `yaml:"max_age"`
	// CleanupSchedule is the sweeper cron expression (default "@hourly").
	CleanupSchedule string `yaml:"cleanup_schedule"`
	// Redis holds connection settings for the redis store.
	Redis RedisConfig `yaml:"redis"`
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// ProvidersConfig holds per-provider credentials and models
type ProvidersConfig struct {
	// Default is the provider agents use when their definition names none.
	Default string `yaml:"default"`

	OpenAI  OpenAIConfig  `yaml:"openai"`
	Bedrock BedrockConfig `yaml:"bedrock"`
	Gemini  GeminiConfig  `yaml:"gemini"`
}

// OpenAIConfig holds OpenAI / Azure OpenAI settings
type OpenAIConfig struct {
	APIKey        string `yaml:"api_key"`
	Model         string `yaml:"model"`
	AzureEndpoint string `yaml:"azure_endpoint"`
}

// BedrockConfig holds Amazon Bedrock settings
type BedrockConfig struct {
	Region string `yaml:"region"`
	Model  string `yaml:"model"`
}

// GeminiConfig holds Google Gemini settings
type GeminiConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

// AgentConfig holds configuration for a single agent
type AgentConfig struct {
	Name         string  `yaml:"name"`
	Type         string  `yaml:"type"`
	Provider     string  `yaml:"provider"`
	Model        string  `yaml:"model"`
	Instructions string  `yaml:"instructions"`
	Temperature  float64 `yaml:"temperature"`
	MaxTokens    int     `yaml:"max_tokens"`
}

// Load loads configuration from a YAML file. An empty path yields the
// defaults plus environment fallbacks.
func Load(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		data, err := os.ReadFile(path) // #nosec G304 - operator-supplied path
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyDefaults()
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ObservabilityPort == 0 {
		c.Server.ObservabilityPort = 9090
	}
	if c.Orchestration.Deadline == 0 {
		c.Orchestration.Deadline = Duration(4 * time.Minute)
	}
	if c.Orchestration.DefaultAgent == "" {
		c.Orchestration.DefaultAgent = "generic_agent"
	}
	if c.Orchestration.GenericAgent == "" {
		c.Orchestration.GenericAgent = "generic_agent"
	}
	if c.Session.Store == "" {
		c.Session.Store = "memory"
	}
	if c.Session.MaxAge == 0 {
		c.Session.MaxAge = Duration(24 * time.Hour)
	}
	if c.Session.CleanupSchedule == "" {
		c.Session.CleanupSchedule = "@hourly"
	}
	if c.Providers.Default == "" {
		c.Providers.Default = "openai"
	}
}

func (c *Config) applyEnv() {
	if c.Providers.OpenAI.APIKey == "" {
		c.Providers.OpenAI.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if c.Providers.OpenAI.AzureEndpoint == "" {
		c.Providers.OpenAI.AzureEndpoint = os.Getenv("AZURE_OPENAI_ENDPOINT")
	}
	if c.Providers.Bedrock.Region == "" {
		c.Providers.Bedrock.Region = os.Getenv("AWS_REGION")
	}
	if c.Providers.Gemini.APIKey == "" {
		c.Providers.Gemini.APIKey = os.Getenv("GOOGLE_API_KEY")
	}
	if c.Session.Redis.Addr == "" {
		c.Session.Redis.Addr = os.Getenv("REDIS_ADDR")
	}
	if c.Session.Redis.Password == "" {
		c.Session.Redis.Password = os.Getenv("REDIS_PASSWORD")
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	switch c.Session.Store {
	case "memory", "file", "redis":
	default:
		return fmt.Errorf("unknown session store %q (expected memory, file, or redis)", c.Session.Store)
	}

	if c.Session.Store == "redis" && c.Session.Redis.Addr == "" {
		return fmt.Errorf("session store is redis but no address is configured")
	}

	seen := make(map[string]bool, len(c.Agents))
	for _, a := range c.Agents {
		if a.Name == "" {
			return fmt.Errorf("agent definition missing name")
		}
		if seen[a.Name] {
			return fmt.Errorf("duplicate agent name %q", a.Name)
		}
		seen[a.Name] = true
	}

	return nil
}

// Save writes the configuration to a YAML file
func Save(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
