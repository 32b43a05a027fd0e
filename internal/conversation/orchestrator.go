package conversation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rahi-platform/rahi-assistant/internal/observability/metrics"
	"github.com/rahi-platform/rahi-assistant/pkg/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

const DefaultCallTimeout = 30 * time.Second

var orchestratorTracer = otel.Tracer("rahi.internal.conversation.orchestrator")

// Responder is the inbound contract used by every transport.
type Responder interface {
	Respond(ctx context.Context, text string) string
}

// Reply is a produced answer plus where it came from.
type Reply struct {
	Text   string
	Source string
	Cached bool
	// Err is the invocation failure an apology was built from, if any.
	Err error
}

type orchestratorConfig struct {
	logger      *logging.Logger
	callTimeout time.Duration
	preamble    Message
	degraded    Provider
	cache       ReplyCache
	metrics     *metrics.ChatMetrics
}

// OrchestratorOption configures the orchestrator.
type OrchestratorOption func(*orchestratorConfig)

// WithCallTimeout bounds each live provider call.
func WithCallTimeout(d time.Duration) OrchestratorOption {
	return func(cfg *orchestratorConfig) {
		if d > 0 {
			cfg.callTimeout = d
		}
	}
}

// WithPreamble overrides the first-turn system message.
func WithPreamble(m Message) OrchestratorOption {
	return func(cfg *orchestratorConfig) {
		cfg.preamble = m
	}
}

// WithDegraded overrides the provider used when selection finds nothing.
func WithDegraded(p Provider) OrchestratorOption {
	return func(cfg *orchestratorConfig) {
		if p != nil {
			cfg.degraded = p
		}
	}
}

// WithReplyCache enables caching of successful model replies.
func WithReplyCache(c ReplyCache) OrchestratorOption {
	return func(cfg *orchestratorConfig) {
		cfg.cache = c
	}
}

func WithOrchestratorLogger(logger *logging.Logger) OrchestratorOption {
	return func(cfg *orchestratorConfig) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}

func WithOrchestratorMetrics(m *metrics.ChatMetrics) OrchestratorOption {
	return func(cfg *orchestratorConfig) {
		cfg.metrics = m
	}
}

// Orchestrator turns one user message into one reply. Each call builds its
// own conversation; the selection source is the only shared state.
type Orchestrator struct {
	source SelectionSource
	logger *logging.Logger
	cfg    orchestratorConfig
}

var _ Responder = (*Orchestrator)(nil)

// NewOrchestrator wires the reply pipeline around a selection source.
func NewOrchestrator(source SelectionSource, opts ...OrchestratorOption) *Orchestrator {
	if source == nil {
		panic("conversation: selection source cannot be nil")
	}
	cfg := orchestratorConfig{
		logger:      logging.Default(),
		callTimeout: DefaultCallTimeout,
		preamble:    SystemPreamble,
		degraded:    NewDegradedResponder(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Orchestrator{source: source, logger: cfg.logger, cfg: cfg}
}

// Respond returns a non-empty reply for text. It never fails.
func (o *Orchestrator) Respond(ctx context.Context, text string) string {
	return o.RespondDetailed(ctx, text).Text
}

// RespondDetailed is Respond plus the serving source.
//
// The provider call runs on a context detached from the caller: if the
// caller goes away the call still runs to completion, bounded by the call
// timeout.
func (o *Orchestrator) RespondDetailed(ctx context.Context, text string) (reply Reply) {
	ctx, span := orchestratorTracer.Start(ctx, "conversation.respond")
	defer span.End()

	start := time.Now()
	defer func() {
		outcome := "ok"
		switch {
		case reply.Err != nil:
			outcome = "apology"
			span.RecordError(reply.Err)
		case reply.Cached:
			outcome = "cached"
		}
		span.SetAttributes(
			attribute.String("rahi.source", reply.Source),
			attribute.String("rahi.outcome", outcome),
		)
		o.cfg.metrics.ObserveReply(reply.Source, outcome, time.Since(start).Seconds())
	}()

	conv := NewConversation(UserMessage(text))
	msgs := o.Assemble(conv)

	sel := o.source.Select(ctx)
	provider := sel.ProviderOr(o.cfg.degraded)
	source := provider.Name()

	if sel.Available() {
		if cached, ok := o.cachedReply(ctx, source, text); ok {
			return Reply{Text: cached, Source: source, Cached: true}
		}
	}

	out, err := o.invoke(ctx, provider, msgs)
	if err == nil {
		var normalized string
		normalized, err = Normalize(out.Content)
		if err == nil && strings.TrimSpace(normalized) == "" {
			err = ErrEmptyReply
		}
		if err == nil {
			if sel.Available() {
				o.storeReply(ctx, source, text, normalized)
			}
			return Reply{Text: normalized, Source: source}
		}
		err = &ProviderError{Provider: source, Op: "normalize", Err: err}
	}

	o.logger.Error("provider invocation failed",
		"provider", source,
		"error", err.Error(),
	)
	return Reply{Text: apologyText(err), Source: source, Err: err}
}

// Assemble returns the message sequence sent to the provider for conv. The
// preamble is prepended only when conv holds exactly one user message, i.e.
// this is the first turn. conv itself is not modified.
func (o *Orchestrator) Assemble(conv *Conversation) []Message {
	msgs := conv.Messages()
	if conv.UserTurns() != 1 {
		return msgs
	}
	out := make([]Message, 0, len(msgs)+1)
	out = append(out, o.cfg.preamble)
	return append(out, msgs...)
}

func (o *Orchestrator) invoke(ctx context.Context, p Provider, msgs []Message) (out Message, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &ProviderError{Provider: p.Name(), Op: "invoke", Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.cfg.callTimeout)
	defer cancel()

	out, err = p.Invoke(callCtx, msgs)
	if err != nil {
		return Message{}, err
	}
	return out, nil
}

func (o *Orchestrator) cachedReply(ctx context.Context, source, text string) (string, bool) {
	if o.cfg.cache == nil {
		return "", false
	}
	reply, ok, err := o.cfg.cache.Get(ctx, source, text)
	if err != nil {
		o.logger.Warn("reply cache lookup failed", "provider", source, "error", err)
		return "", false
	}
	if !ok || strings.TrimSpace(reply) == "" {
		return "", false
	}
	return reply, true
}

func (o *Orchestrator) storeReply(ctx context.Context, source, text, reply string) {
	if o.cfg.cache == nil {
		return
	}
	if err := o.cfg.cache.Put(context.WithoutCancel(ctx), source, text, reply); err != nil {
		o.logger.Warn("reply cache write failed", "provider", source, "error", err)
	}
}

func apologyText(err error) string {
	return fmt.Sprintf("I'm having trouble processing your request right now. Please try again later. Error: %v. You can try navigating to %s for bookings.", err, PathServices)
}
