package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/rahi-platform/rahi-assistant/cmd/mainconfig"
	"github.com/rahi-platform/rahi-assistant/internal/api/router"
	"github.com/rahi-platform/rahi-assistant/internal/app/bootstrap"
	appconfig "github.com/rahi-platform/rahi-assistant/internal/config"
	"github.com/rahi-platform/rahi-assistant/internal/conversation"
	"github.com/rahi-platform/rahi-assistant/internal/observability/metrics"
	"github.com/rahi-platform/rahi-assistant/internal/webchat"
	"github.com/rahi-platform/rahi-assistant/pkg/logging"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Load configuration
	cfg := appconfig.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	// Initialize logger
	logger := logging.NewWithOptions(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})
	logger.Info("starting RAHI chatbot service",
		"env", cfg.Env,
		"port", cfg.Port,
		"selection", cfg.ProviderSelection,
	)

	ctx := context.Background()
	app, err := setupApp(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize service", "error", err)
		os.Exit(1)
	}
	defer app.close()

	if cfg.ProviderSelection == appconfig.SelectionEager {
		sel := app.pipeline.Selector.Select(ctx)
		if sel.Available() {
			logger.Info("provider selected at startup", "provider", sel.Provider.Name())
		} else {
			logger.Warn("no provider available at startup; serving degraded replies", "error", sel.Err())
		}
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      app.handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: writeTimeout(cfg),
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}

// writeTimeout covers the worst lazy first request: every candidate probed to
// its timeout, then one live call, plus headroom for writing the response.
func writeTimeout(cfg *appconfig.Config) time.Duration {
	return time.Duration(len(cfg.Providers))*cfg.ProbeTimeout + cfg.CallTimeout + 15*time.Second
}

type app struct {
	handler  http.Handler
	pipeline *bootstrap.Pipeline
	redis    *redis.Client
}

func (a *app) close() {
	if a.redis != nil {
		_ = a.redis.Close()
	}
}

// setupApp wires the pipeline and its transports into a single handler.
func setupApp(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (*app, error) {
	metricsHandler, chatMetrics := setupMetrics(cfg.MetricsEnabled)

	var redisClient *redis.Client
	if cfg.ReplyCacheEnabled() {
		redisClient = bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	}

	pipeline, err := bootstrap.BuildPipeline(cfg, bootstrap.Deps{
		Logger:  logger,
		Metrics: chatMetrics,
		LoadAWS: mainconfig.LoadAWSConfig,
		Redis:   redisClient,
	})
	if err != nil {
		if redisClient != nil {
			_ = redisClient.Close()
		}
		return nil, err
	}

	handler := router.New(&router.Config{
		Logger:              logger,
		ConversationHandler: conversation.NewHandler(pipeline.Orchestrator, pipeline.Selector, logger),
		WebChatHandler:      webchat.NewHandler(pipeline.Orchestrator, logger),
		MetricsHandler:      metricsHandler,
		CORSAllowedOrigins:  cfg.CORSAllowedOrigins,
	})
	return &app{handler: handler, pipeline: pipeline, redis: redisClient}, nil
}

// setupMetrics returns a nil handler when metrics are disabled; the returned
// ChatMetrics is then nil too and every observation is a no-op.
func setupMetrics(enabled bool) (http.Handler, *metrics.ChatMetrics) {
	if !enabled {
		return nil, nil
	}
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	chatMetrics := metrics.NewChatMetrics(reg)
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), chatMetrics
}
