package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	SelectionLazy  = "lazy"
	SelectionEager = "eager"
)

// DefaultProviders is the candidate order used when LLM_PROVIDERS is unset.
var DefaultProviders = []string{
	"groq:llama-3.1-70b-versatile",
	"groq:llama-3.1-8b-instant",
	"groq:llama3-groq-70b-8192-tool-use-preview",
	"groq:llama3-groq-8b-8192-tool-use-preview",
	"groq:gemma2-9b-it",
	"gemini:gemini-2.5-flash",
	"bedrock",
}

// Config holds application configuration
type Config struct {
	Port      string
	Env       string
	LogLevel  string
	LogFormat string

	Providers     []ProviderSpec
	GroqAPIKey    string
	GroqBaseURL   string
	OpenAIAPIKey  string
	OpenAIBaseURL string
	GeminiAPIKey  string

	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string
	BedrockModelID      string

	Temperature       float32
	MaxTokens         int
	ProbeTimeout      time.Duration
	CallTimeout       time.Duration
	ProviderSelection string

	RedisAddr     string
	RedisPassword string
	RedisTLS      bool
	ReplyCacheTTL time.Duration

	CORSAllowedOrigins []string
	MetricsEnabled     bool
}

// ProviderSpec is one entry of LLM_PROVIDERS: "kind" or "kind:model".
// Priority is the entry's position in the list.
type ProviderSpec struct {
	Kind     string
	Model    string
	Priority int
}

// Name is the display name used in logs, metrics and responses.
func (s ProviderSpec) Name() string {
	if s.Model == "" {
		return s.Kind
	}
	return s.Kind + ":" + s.Model
}

// Load reads configuration from environment variables.
func Load() *Config {
	return &Config{
		Port:      getEnv("PORT", "8004"),
		Env:       getEnv("ENV", "development"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		Providers:     ParseProviders(getEnvAsList("LLM_PROVIDERS", DefaultProviders)),
		GroqAPIKey:    getEnv("GROQ_API_KEY", ""),
		GroqBaseURL:   getEnv("GROQ_BASE_URL", "https://api.groq.com/openai/v1"),
		OpenAIAPIKey:  getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL: getEnv("OPENAI_BASE_URL", ""),
		GeminiAPIKey:  getEnv("GEMINI_API_KEY", getEnv("GOOGLE_API_KEY", "")),

		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),
		BedrockModelID:      getEnv("BEDROCK_MODEL_ID", ""),

		Temperature:       getEnvAsFloat32("LLM_TEMPERATURE", 0.7),
		MaxTokens:         getEnvAsInt("LLM_MAX_TOKENS", 512),
		ProbeTimeout:      getEnvAsDuration("PROVIDER_PROBE_TIMEOUT", 5*time.Second),
		CallTimeout:       getEnvAsDuration("PROVIDER_CALL_TIMEOUT", 30*time.Second),
		ProviderSelection: strings.ToLower(strings.TrimSpace(getEnv("PROVIDER_SELECTION", SelectionLazy))),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),
		ReplyCacheTTL: getEnvAsDuration("REPLY_CACHE_TTL", 0),

		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		MetricsEnabled:     getEnvAsBool("METRICS_ENABLED", true),
	}
}

// Validate reports settings that cannot be honored.
func (c *Config) Validate() error {
	switch c.ProviderSelection {
	case SelectionLazy, SelectionEager:
	default:
		return fmt.Errorf("config: PROVIDER_SELECTION must be %q or %q, got %q", SelectionLazy, SelectionEager, c.ProviderSelection)
	}
	if c.ProbeTimeout <= 0 || c.CallTimeout <= 0 {
		return fmt.Errorf("config: provider timeouts must be positive")
	}
	return nil
}

// ReplyCacheEnabled reports whether replies should be cached in Redis.
func (c *Config) ReplyCacheEnabled() bool {
	return strings.TrimSpace(c.RedisAddr) != "" && c.ReplyCacheTTL > 0
}

// ParseProviders turns "kind[:model]" entries into specs. Blank entries are
// skipped; kinds are lower-cased.
func ParseProviders(entries []string) []ProviderSpec {
	specs := make([]ProviderSpec, 0, len(entries))
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		kind, model, _ := strings.Cut(entry, ":")
		specs = append(specs, ProviderSpec{
			Kind:     strings.ToLower(strings.TrimSpace(kind)),
			Model:    strings.TrimSpace(model),
			Priority: len(specs),
		})
	}
	return specs
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 32); err == nil {
		return float32(value)
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsList splits a comma-separated variable, dropping blank items.
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if strings.TrimSpace(valueStr) == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(valueStr, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
