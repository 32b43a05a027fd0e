package conversation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rahi-platform/rahi-assistant/internal/observability/metrics"
	"github.com/rahi-platform/rahi-assistant/pkg/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

const (
	DefaultProbeTimeout = 5 * time.Second
	probeText           = "Test"
)

var selectorTracer = otel.Tracer("rahi.internal.conversation.selector")

// ProbeResult is the outcome of building and probing one candidate.
type ProbeResult struct {
	Candidate string
	Priority  int
	Err       error
	Duration  time.Duration
}

func (r ProbeResult) OK() bool {
	return r.Err == nil
}

// Selection is the cached outcome of provider selection. Provider is nil when
// every candidate failed.
type Selection struct {
	Provider  Provider
	Candidate string
	Attempts  []ProbeResult
}

func (s Selection) Available() bool {
	return s.Provider != nil
}

// ProviderOr returns the selected provider, or fallback when none is available.
func (s Selection) ProviderOr(fallback Provider) Provider {
	if s.Provider != nil {
		return s.Provider
	}
	return fallback
}

// Err summarizes why no provider is available, or nil.
func (s Selection) Err() error {
	if s.Available() {
		return nil
	}
	if len(s.Attempts) == 0 {
		return fmt.Errorf("%w: no candidates configured", ErrNoProviders)
	}
	errs := make([]error, 0, len(s.Attempts)+1)
	errs = append(errs, ErrNoProviders)
	for _, a := range s.Attempts {
		errs = append(errs, a.Err)
	}
	return errors.Join(errs...)
}

// SelectionSource yields the provider selection used by the orchestrator.
type SelectionSource interface {
	Select(ctx context.Context) Selection
}

type selectionState struct {
	once   sync.Once
	result Selection
	done   atomic.Bool
}

// Selector probes candidates in priority order and memoizes the first that
// works. Probing happens at most once per generation; Reset starts a new one.
type Selector struct {
	candidates   []Candidate
	probeTimeout time.Duration
	logger       *logging.Logger
	metrics      *metrics.ChatMetrics

	state atomic.Pointer[selectionState]
}

type SelectorOption func(*Selector)

func WithProbeTimeout(d time.Duration) SelectorOption {
	return func(s *Selector) {
		if d > 0 {
			s.probeTimeout = d
		}
	}
}

func WithSelectorLogger(logger *logging.Logger) SelectorOption {
	return func(s *Selector) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithSelectorMetrics(m *metrics.ChatMetrics) SelectorOption {
	return func(s *Selector) {
		s.metrics = m
	}
}

// NewSelector orders candidates by ascending priority; ties keep list order.
func NewSelector(candidates []Candidate, opts ...SelectorOption) *Selector {
	ordered := make([]Candidate, len(candidates))
	copy(ordered, candidates)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Config.Priority < ordered[j].Config.Priority
	})

	s := &Selector{
		candidates:   ordered,
		probeTimeout: DefaultProbeTimeout,
		logger:       logging.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.state.Store(&selectionState{})
	return s
}

// Candidates returns the candidates in probe order.
func (s *Selector) Candidates() []Candidate {
	out := make([]Candidate, len(s.candidates))
	copy(out, s.candidates)
	return out
}

// Select returns the cached selection, probing on first use. Concurrent first
// callers wait for a single probe pass. The pass is detached from the
// caller's cancellation so an abandoned request cannot decide the outcome for
// the whole process; each probe is still bounded by the probe timeout.
func (s *Selector) Select(ctx context.Context) Selection {
	st := s.state.Load()
	st.once.Do(func() {
		st.result = s.selectFirst(context.WithoutCancel(ctx))
		st.done.Store(true)
	})
	return st.result
}

// Peek returns the cached selection without probing. ok is false while no
// selection has completed in the current generation.
func (s *Selector) Peek() (Selection, bool) {
	st := s.state.Load()
	if !st.done.Load() {
		return Selection{}, false
	}
	return st.result, true
}

// Reset discards the cached selection; the next Select probes again.
func (s *Selector) Reset() {
	s.state.Store(&selectionState{})
	s.logger.Info("provider selection reset")
}

func (s *Selector) selectFirst(ctx context.Context) Selection {
	ctx, span := selectorTracer.Start(ctx, "conversation.select")
	defer span.End()

	sel := Selection{Attempts: make([]ProbeResult, 0, len(s.candidates))}
	for _, c := range s.candidates {
		provider, result := Probe(ctx, c, s.probeTimeout)
		sel.Attempts = append(sel.Attempts, result)
		s.metrics.ObserveProbe(result.Candidate, result.OK(), result.Duration.Seconds())

		if !result.OK() {
			s.logger.Warn("provider candidate unavailable",
				"provider", result.Candidate,
				"priority", result.Priority,
				"error", result.Err.Error(),
				"duration_ms", result.Duration.Milliseconds(),
			)
			continue
		}

		sel.Provider = provider
		sel.Candidate = result.Candidate
		span.SetAttributes(attribute.String("rahi.provider", result.Candidate))
		s.logger.Info("provider selected",
			"provider", result.Candidate,
			"priority", result.Priority,
			"attempts", len(sel.Attempts),
			"duration_ms", result.Duration.Milliseconds(),
		)
		return sel
	}

	span.SetAttributes(attribute.String("rahi.provider", DegradedProviderName))
	span.RecordError(sel.Err())
	s.logger.Warn("no provider available; replies will use the degraded responder",
		"candidates", len(s.candidates),
	)
	return sel
}

// Probe builds one candidate and issues a single minimal invocation against
// it. Construction and the probe call share the timeout.
func Probe(ctx context.Context, c Candidate, timeout time.Duration) (Provider, ProbeResult) {
	result := ProbeResult{Candidate: c.Config.Name, Priority: c.Config.Priority}
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}

	ctx, span := selectorTracer.Start(ctx, "conversation.probe")
	defer span.End()
	span.SetAttributes(attribute.String("rahi.provider", c.Config.Name))

	probeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	provider, err := probeCandidate(probeCtx, c)
	result.Duration = time.Since(start)
	if err != nil {
		result.Err = err
		span.RecordError(err)
		return nil, result
	}
	return provider, result
}

func probeCandidate(ctx context.Context, c Candidate) (provider Provider, err error) {
	defer func() {
		if r := recover(); r != nil {
			provider = nil
			err = &ProviderError{Provider: c.Config.Name, Op: "probe", Err: fmt.Errorf("%w: panic: %v", ErrProviderUnavailable, r)}
		}
	}()

	if c.Build == nil {
		return nil, &ProviderError{Provider: c.Config.Name, Op: "build", Err: fmt.Errorf("%w: no constructor", ErrProviderUnavailable)}
	}
	provider, err = c.Build(ctx)
	if err != nil {
		return nil, &ProviderError{Provider: c.Config.Name, Op: "build", Err: fmt.Errorf("%w: %w", ErrProviderUnavailable, err)}
	}
	if provider == nil {
		return nil, &ProviderError{Provider: c.Config.Name, Op: "build", Err: fmt.Errorf("%w: constructor returned nil", ErrProviderUnavailable)}
	}
	if _, err := provider.Invoke(ctx, []Message{UserMessage(probeText)}); err != nil {
		if closer, ok := provider.(io.Closer); ok {
			_ = closer.Close()
		}
		return nil, &ProviderError{Provider: c.Config.Name, Op: "probe", Err: fmt.Errorf("%w: %w", ErrProviderUnavailable, err)}
	}
	return provider, nil
}
