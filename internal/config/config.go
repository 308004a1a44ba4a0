// Package config provides configuration for catai.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Backend names accepted by CATAI_BACKEND.
const (
	BackendMock    = "mock"
	BackendOpenAI  = "openai"
	BackendGateway = "gateway"
)

// Unknown tool policies accepted by UNKNOWN_TOOL_POLICY.
const (
	UnknownToolReport = "report"
	UnknownToolSkip   = "skip"
)

// Config holds the catai configuration.
type Config struct {
	// Assistant backend
	Backend       string
	OpenAIAPIKey  string
	OpenAIBaseURL string
	AssistantID   string
	Model         string
	GatewayURL    string

	// Image provider
	CatAPIURL string
	CatAPIKey string
	MaxImages int

	// Timing
	PollInterval time.Duration
	HTTPTimeout  time.Duration
	ToolTimeout  time.Duration

	// Tool dispatch
	UnknownToolPolicy string

	// Server settings
	HTTPPort  int
	WatchPort int

	// Mock backend storage
	DatabaseURL string

	// Logging
	LogLevel string
}

// Load loads configuration from environment variables.
func Load() *Config {
	cfg := &Config{
		Backend:           getEnv("CATAI_BACKEND", BackendMock),
		OpenAIAPIKey:      getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:     getEnv("OPENAI_BASE_URL", ""),
		AssistantID:       getEnv("OPENAI_ASSISTANT_ID", ""),
		Model:             getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		GatewayURL:        getEnv("GATEWAY_URL", "http://localhost:8000"),
		CatAPIURL:         getEnv("CAT_API_URL", "https://api.thecatapi.com/v1"),
		CatAPIKey:         getEnv("CAT_API_KEY", ""),
		MaxImages:         getEnvInt("MAX_IMAGES", 10),
		PollInterval:      time.Duration(getEnvInt("POLL_INTERVAL_MS", 500)) * time.Millisecond,
		HTTPTimeout:       time.Duration(getEnvInt("HTTP_TIMEOUT_MS", 30000)) * time.Millisecond,
		ToolTimeout:       time.Duration(getEnvInt("TOOL_TIMEOUT_MS", 15000)) * time.Millisecond,
		UnknownToolPolicy: getEnv("UNKNOWN_TOOL_POLICY", UnknownToolReport),
		HTTPPort:          getEnvInt("HTTP_PORT", 8000),
		WatchPort:         getEnvInt("WATCH_PORT", 0),
		DatabaseURL:       getEnv("DATABASE_URL", ":memory:"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
	}
	return cfg
}

// fileConfig mirrors Config for YAML overlays. Nil fields leave the current value alone.
type fileConfig struct {
	Backend           *string `yaml:"backend"`
	OpenAIAPIKey      *string `yaml:"openai_api_key"`
	OpenAIBaseURL     *string `yaml:"openai_base_url"`
	AssistantID       *string `yaml:"assistant_id"`
	Model             *string `yaml:"model"`
	GatewayURL        *string `yaml:"gateway_url"`
	CatAPIURL         *string `yaml:"cat_api_url"`
	CatAPIKey         *string `yaml:"cat_api_key"`
	MaxImages         *int    `yaml:"max_images"`
	PollIntervalMs    *int    `yaml:"poll_interval_ms"`
	HTTPTimeoutMs     *int    `yaml:"http_timeout_ms"`
	ToolTimeoutMs     *int    `yaml:"tool_timeout_ms"`
	UnknownToolPolicy *string `yaml:"unknown_tool_policy"`
	HTTPPort          *int    `yaml:"http_port"`
	WatchPort         *int    `yaml:"watch_port"`
	DatabaseURL       *string `yaml:"database_url"`
	LogLevel          *string `yaml:"log_level"`
}

// ApplyFile overlays the values found in a YAML file. ${VAR} references are expanded.
func (c *Config) ApplyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &fc); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	setString(&c.Backend, fc.Backend)
	setString(&c.OpenAIAPIKey, fc.OpenAIAPIKey)
	setString(&c.OpenAIBaseURL, fc.OpenAIBaseURL)
	setString(&c.AssistantID, fc.AssistantID)
	setString(&c.Model, fc.Model)
	setString(&c.GatewayURL, fc.GatewayURL)
	setString(&c.CatAPIURL, fc.CatAPIURL)
	setString(&c.CatAPIKey, fc.CatAPIKey)
	setInt(&c.MaxImages, fc.MaxImages)
	setMillis(&c.PollInterval, fc.PollIntervalMs)
	setMillis(&c.HTTPTimeout, fc.HTTPTimeoutMs)
	setMillis(&c.ToolTimeout, fc.ToolTimeoutMs)
	setString(&c.UnknownToolPolicy, fc.UnknownToolPolicy)
	setInt(&c.HTTPPort, fc.HTTPPort)
	setInt(&c.WatchPort, fc.WatchPort)
	setString(&c.DatabaseURL, fc.DatabaseURL)
	setString(&c.LogLevel, fc.LogLevel)
	return nil
}

// Validate checks enumerated values and bounds.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendMock, BackendGateway:
	case BackendOpenAI:
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required for the openai backend")
		}
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}
	switch c.UnknownToolPolicy {
	case UnknownToolReport, UnknownToolSkip:
	default:
		return fmt.Errorf("unknown tool policy %q", c.UnknownToolPolicy)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive")
	}
	if c.MaxImages <= 0 {
		return fmt.Errorf("max images must be positive")
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(strings.TrimSpace(val)); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setMillis(dst *time.Duration, v *int) {
	if v != nil {
		*dst = time.Duration(*v) * time.Millisecond
	}
}
