// Command llmtest probes the configured LLM providers and sends one-off
// questions through the reply pipeline.
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/rahi-platform/rahi-assistant/cmd/mainconfig"
	"github.com/rahi-platform/rahi-assistant/internal/app/bootstrap"
	appconfig "github.com/rahi-platform/rahi-assistant/internal/config"
	"github.com/rahi-platform/rahi-assistant/internal/conversation"
	"github.com/rahi-platform/rahi-assistant/internal/observability/metrics"
	"github.com/rahi-platform/rahi-assistant/pkg/logging"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}
	if err := newRootCmd(os.Stdout, appconfig.Load).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer, load func() *appconfig.Config) *cobra.Command {
	var logLevel string

	root := &cobra.Command{
		Use:          "llmtest",
		Short:        "Probe LLM providers and test the reply pipeline",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "error", "log level (debug, info, warn, error)")

	setup := func() (*appconfig.Config, *logging.Logger, error) {
		cfg := load()
		if err := cfg.Validate(); err != nil {
			return nil, nil, err
		}
		return cfg, logging.NewWithOptions(logging.Options{Level: logLevel, Format: "text", Output: os.Stderr}), nil
	}

	root.AddCommand(&cobra.Command{
		Use:   "probe",
		Short: "Build and probe every configured provider",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			candidates := bootstrap.BuildCandidates(cfg, bootstrap.Deps{Logger: logger, LoadAWS: mainconfig.LoadAWSConfig})
			return runProbe(cmd.Context(), out, candidates, cfg.ProbeTimeout)
		},
	})

	var count int
	ask := &cobra.Command{
		Use:   "ask <text>",
		Short: "Send one message through the reply pipeline",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			reg := prometheus.NewRegistry()
			pipeline, err := bootstrap.BuildPipeline(cfg, bootstrap.Deps{
				Logger:  logger,
				Metrics: metrics.NewChatMetrics(reg),
				LoadAWS: mainconfig.LoadAWSConfig,
			})
			if err != nil {
				return err
			}
			return runAsk(cmd.Context(), out, pipeline.Orchestrator, reg, strings.Join(args, " "), count)
		},
	}
	ask.Flags().IntVarP(&count, "count", "n", 1, "send the message n times and print a latency summary")
	root.AddCommand(ask)

	return root
}

// runProbe probes every candidate in order. Unlike selection it does not stop
// at the first success.
func runProbe(ctx context.Context, out io.Writer, candidates []conversation.Candidate, timeout time.Duration) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if len(candidates) == 0 {
		return conversation.ErrNoProviders
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PRIORITY\tPROVIDER\tRESULT\tLATENCY\tDETAIL")
	available := 0
	for _, c := range candidates {
		provider, result := conversation.Probe(ctx, c, timeout)
		status, detail := "ok", ""
		if result.OK() {
			available++
			if closer, ok := provider.(io.Closer); ok {
				_ = closer.Close()
			}
		} else {
			status, detail = "fail", result.Err.Error()
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", result.Priority, result.Candidate, status, result.Duration.Round(time.Millisecond), detail)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(out, "\n%d of %d providers available\n", available, len(candidates))
	return nil
}

func runAsk(ctx context.Context, out io.Writer, responder conversation.DetailedResponder, gatherer prometheus.Gatherer, text string, count int) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if count < 1 {
		return fmt.Errorf("count must be at least 1, got %d", count)
	}
	for i := 0; i < count; i++ {
		start := time.Now()
		reply := responder.RespondDetailed(ctx, text)
		fmt.Fprintf(out, "[%s] (%s)\n%s\n", reply.Source, time.Since(start).Round(time.Millisecond), reply.Text)
	}
	if count == 1 {
		return nil
	}

	snap := metrics.SnapshotReplyLatency(gatherer)
	fmt.Fprintf(out, "\n%d replies, p50 %.0fms, p95 %.0fms\n", snap.Total, snap.P50Ms, snap.P95Ms)
	sources := make([]string, 0, len(snap.BySource))
	for source := range snap.BySource {
		sources = append(sources, source)
	}
	sort.Strings(sources)
	for _, source := range sources {
		fmt.Fprintf(out, "  %s: %d\n", source, snap.BySource[source])
	}
	return nil
}
