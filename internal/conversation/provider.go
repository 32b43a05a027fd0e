package conversation

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrNoProviders means no candidate could be built or probed successfully.
	ErrNoProviders = errors.New("conversation: no conversational provider available")
	// ErrProviderUnavailable marks a single candidate that failed construction or probing.
	ErrProviderUnavailable = errors.New("conversation: provider unavailable")
	// ErrEmptyReply is returned when a provider answers with no text.
	ErrEmptyReply = errors.New("conversation: provider returned an empty reply")
	// ErrUnrecognizedContent is returned by Normalize for content outside the known shapes.
	ErrUnrecognizedContent = errors.New("conversation: unrecognized content shape")
)

// Provider is a conversational backend. Real model clients and the degraded
// responder both satisfy it.
type Provider interface {
	Name() string
	Invoke(ctx context.Context, msgs []Message) (Message, error)
}

// ProviderError describes a failure of one provider operation.
type ProviderError struct {
	Provider string
	Op       string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Provider, e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// ProviderConfig is the static description of one candidate backend.
// Lower Priority values are tried first.
type ProviderConfig struct {
	Name     string
	Kind     string
	Model    string
	Priority int
}

// BuildFunc constructs a provider client from configured credentials.
type BuildFunc func(ctx context.Context) (Provider, error)

// Candidate pairs a provider config with its constructor.
type Candidate struct {
	Config ProviderConfig
	Build  BuildFunc
}

// InferenceParams are the sampling parameters shared by all real providers.
type InferenceParams struct {
	Temperature float32
	MaxTokens   int32
}

// DefaultInferenceParams mirrors the settings the assistant was tuned with.
func DefaultInferenceParams() InferenceParams {
	return InferenceParams{Temperature: 0.7, MaxTokens: 512}
}
