package bootstrap

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/aws/aws-sdk-go-v2/aws"
	appconfig "github.com/rahi-platform/rahi-assistant/internal/config"
	"github.com/rahi-platform/rahi-assistant/internal/conversation"
	"github.com/rahi-platform/rahi-assistant/pkg/logging"
)

func testConfig(providers ...string) *appconfig.Config {
	return &appconfig.Config{
		Providers:         appconfig.ParseProviders(providers),
		GroqBaseURL:       "https://api.groq.com/openai/v1",
		Temperature:       0.7,
		MaxTokens:         512,
		ProbeTimeout:      time.Second,
		CallTimeout:       time.Second,
		ProviderSelection: appconfig.SelectionLazy,
	}
}

func TestBuildPipelineRequiresConfig(t *testing.T) {
	if _, err := BuildPipeline(nil, Deps{}); err == nil {
		t.Fatalf("expected error for nil config")
	}
}

func TestBuildCandidatesKeepsOrderAndNames(t *testing.T) {
	cfg := testConfig("groq:llama-3.1-8b-instant", "gemini:gemini-2.5-flash", "bedrock")
	candidates := BuildCandidates(cfg, Deps{})

	want := []string{"groq:llama-3.1-8b-instant", "gemini:gemini-2.5-flash", "bedrock"}
	if len(candidates) != len(want) {
		t.Fatalf("expected %d candidates, got %d", len(want), len(candidates))
	}
	for i, c := range candidates {
		if c.Config.Name != want[i] || c.Config.Priority != i {
			t.Fatalf("candidate %d = %#v", i, c.Config)
		}
	}
}

func TestBuildCandidatesMissingCredentialsFailAtBuild(t *testing.T) {
	cfg := testConfig("groq:llama-3.1-8b-instant", "openai:gpt-4o-mini", "gemini", "bedrock", "mistral:large")
	for _, c := range BuildCandidates(cfg, Deps{}) {
		p, err := c.Build(context.Background())
		if err == nil || p != nil {
			t.Fatalf("%s: expected build error without credentials", c.Config.Name)
		}
	}
}

func TestBuildCandidatesGroqWithKey(t *testing.T) {
	cfg := testConfig("groq:gemma2-9b-it")
	cfg.GroqAPIKey = "gsk-test"

	p, err := BuildCandidates(cfg, Deps{})[0].Build(context.Background())
	if err != nil {
		t.Fatalf("unexpected build error: %v", err)
	}
	if p.Name() != "groq:gemma2-9b-it" {
		t.Fatalf("unexpected provider name %q", p.Name())
	}
}

func TestBuildCandidatesBedrockUsesLoader(t *testing.T) {
	cfg := testConfig("bedrock")
	cfg.BedrockModelID = "anthropic.claude-3-haiku-20240307-v1:0"

	var called bool
	deps := Deps{LoadAWS: func(context.Context, *appconfig.Config) (aws.Config, error) {
		called = true
		return aws.Config{Region: "us-east-1"}, nil
	}}
	p, err := BuildCandidates(cfg, deps)[0].Build(context.Background())
	if err != nil || p == nil || !called {
		t.Fatalf("expected bedrock provider, got %v (loader called %v)", err, called)
	}

	failing := Deps{LoadAWS: func(context.Context, *appconfig.Config) (aws.Config, error) {
		return aws.Config{}, errors.New("no credentials")
	}}
	if _, err := BuildCandidates(cfg, failing)[0].Build(context.Background()); err == nil {
		t.Fatalf("expected loader error to surface")
	}
}

func TestBuildPipelineFallsBackToDegraded(t *testing.T) {
	cfg := testConfig("groq:llama-3.1-8b-instant")
	pipeline, err := BuildPipeline(cfg, Deps{Logger: logging.New("error")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	reply := pipeline.Orchestrator.RespondDetailed(context.Background(), "I need an electrician")
	if reply.Source != conversation.DegradedProviderName {
		t.Fatalf("expected degraded source, got %q", reply.Source)
	}
	if !strings.Contains(reply.Text, "find an electrician") {
		t.Fatalf("unexpected reply %q", reply.Text)
	}
	if sel, ok := pipeline.Selector.Peek(); !ok || sel.Available() {
		t.Fatalf("expected cached unavailable selection")
	}
}

func TestBuildRedisClient(t *testing.T) {
	if client := BuildRedisClient(context.Background(), &appconfig.Config{}, nil, true); client != nil {
		t.Fatalf("expected nil client without REDIS_ADDR")
	}

	mr := miniredis.RunT(t)
	addr := mr.Addr()
	client := BuildRedisClient(context.Background(), &appconfig.Config{RedisAddr: addr}, nil, true)
	if client == nil {
		t.Fatalf("expected client for reachable redis")
	}
	defer client.Close()

	// Addr is unusable once the server is closed.
	mr.Close()
	if dead := BuildRedisClient(context.Background(), &appconfig.Config{RedisAddr: addr}, logging.New("error"), true); dead != nil {
		t.Fatalf("expected nil client for unreachable redis")
	}
}
