package bootstrap

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/redis/go-redis/v9"

	appconfig "github.com/rahi-platform/rahi-assistant/internal/config"
	"github.com/rahi-platform/rahi-assistant/internal/conversation"
	"github.com/rahi-platform/rahi-assistant/internal/observability/metrics"
	"github.com/rahi-platform/rahi-assistant/pkg/logging"
)

// Provider kinds accepted in LLM_PROVIDERS.
const (
	KindGroq    = "groq"
	KindOpenAI  = "openai"
	KindGemini  = "gemini"
	KindBedrock = "bedrock"
)

// AWSConfigLoader resolves AWS SDK configuration for Bedrock.
type AWSConfigLoader func(ctx context.Context, cfg *appconfig.Config) (aws.Config, error)

// Deps carries the optional collaborators used while wiring the pipeline.
type Deps struct {
	Logger   *logging.Logger
	Metrics  *metrics.ChatMetrics
	LoadAWS  AWSConfigLoader
	Redis    *redis.Client
	Preamble *conversation.Message
	Degraded conversation.Provider
}

// Pipeline is the wired reply pipeline.
type Pipeline struct {
	Selector     *conversation.Selector
	Orchestrator *conversation.Orchestrator
}

// BuildCandidates maps each configured provider spec to a candidate. Missing
// credentials are not an error here: the candidate's constructor fails and
// the selector records it as unavailable.
func BuildCandidates(cfg *appconfig.Config, deps Deps) []conversation.Candidate {
	if cfg == nil {
		return nil
	}
	params := conversation.InferenceParams{
		Temperature: cfg.Temperature,
		MaxTokens:   int32(cfg.MaxTokens),
	}

	candidates := make([]conversation.Candidate, 0, len(cfg.Providers))
	for _, spec := range cfg.Providers {
		candidates = append(candidates, conversation.Candidate{
			Config: conversation.ProviderConfig{
				Name:     spec.Name(),
				Kind:     spec.Kind,
				Model:    spec.Model,
				Priority: spec.Priority,
			},
			Build: buildFunc(cfg, spec, params, deps),
		})
	}
	return candidates
}

func buildFunc(cfg *appconfig.Config, spec appconfig.ProviderSpec, params conversation.InferenceParams, deps Deps) conversation.BuildFunc {
	name := spec.Name()
	switch spec.Kind {
	case KindGroq:
		return openAICompatible(name, spec.Model, cfg.GroqAPIKey, cfg.GroqBaseURL, "GROQ_API_KEY", params)
	case KindOpenAI:
		return openAICompatible(name, spec.Model, cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, "OPENAI_API_KEY", params)
	case KindGemini:
		return func(ctx context.Context) (conversation.Provider, error) {
			if strings.TrimSpace(cfg.GeminiAPIKey) == "" {
				return nil, errors.New("bootstrap: GEMINI_API_KEY is not set")
			}
			// The client must outlive the probe's deadline.
			return conversation.NewGeminiProvider(context.WithoutCancel(ctx), name, cfg.GeminiAPIKey, spec.Model, params)
		}
	case KindBedrock:
		return func(ctx context.Context) (conversation.Provider, error) {
			if deps.LoadAWS == nil {
				return nil, errors.New("bootstrap: no AWS config loader")
			}
			awsCfg, err := deps.LoadAWS(ctx, cfg)
			if err != nil {
				return nil, fmt.Errorf("bootstrap: load aws config: %w", err)
			}
			model := spec.Model
			if model == "" {
				model = cfg.BedrockModelID
			}
			return conversation.NewBedrockProvider(name, bedrockruntime.NewFromConfig(awsCfg), model, params), nil
		}
	default:
		return func(context.Context) (conversation.Provider, error) {
			return nil, fmt.Errorf("bootstrap: unknown provider kind %q", spec.Kind)
		}
	}
}

func openAICompatible(name, model, apiKey, baseURL, keyName string, params conversation.InferenceParams) conversation.BuildFunc {
	return func(context.Context) (conversation.Provider, error) {
		if strings.TrimSpace(model) == "" {
			return nil, fmt.Errorf("bootstrap: %s requires a model", name)
		}
		if strings.TrimSpace(apiKey) == "" {
			return nil, fmt.Errorf("bootstrap: %s is not set", keyName)
		}
		client, err := conversation.NewOpenAICompatibleClient(apiKey, baseURL)
		if err != nil {
			return nil, err
		}
		return conversation.NewOpenAIProvider(name, model, client, params), nil
	}
}

// BuildPipeline wires the selector and orchestrator from config.
func BuildPipeline(cfg *appconfig.Config, deps Deps) (*Pipeline, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = logging.Default()
	}

	selector := conversation.NewSelector(
		BuildCandidates(cfg, deps),
		conversation.WithProbeTimeout(cfg.ProbeTimeout),
		conversation.WithSelectorLogger(logger),
		conversation.WithSelectorMetrics(deps.Metrics),
	)

	opts := []conversation.OrchestratorOption{
		conversation.WithCallTimeout(cfg.CallTimeout),
		conversation.WithOrchestratorLogger(logger),
		conversation.WithOrchestratorMetrics(deps.Metrics),
	}
	if deps.Preamble != nil {
		opts = append(opts, conversation.WithPreamble(*deps.Preamble))
	}
	if deps.Degraded != nil {
		opts = append(opts, conversation.WithDegraded(deps.Degraded))
	}
	if cfg.ReplyCacheEnabled() && deps.Redis != nil {
		opts = append(opts, conversation.WithReplyCache(conversation.NewRedisReplyCache(deps.Redis, cfg.ReplyCacheTTL)))
		logger.Info("reply cache enabled", "redis", cfg.RedisAddr, "ttl", cfg.ReplyCacheTTL.String())
	}

	logger.Info("provider candidates configured",
		"count", len(cfg.Providers),
		"selection", cfg.ProviderSelection,
	)
	return &Pipeline{
		Selector:     selector,
		Orchestrator: conversation.NewOrchestrator(selector, opts...),
	}, nil
}

// BuildRedisClient returns a Redis client when REDIS_ADDR is set. With verify,
// an unreachable server yields nil so callers run without the cache.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	redisOptions := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(redisOptions)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available; reply cache disabled", "error", err)
		_ = client.Close()
		return nil
	}
	return client
}
