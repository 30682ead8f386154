package provider

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies a provider failure.
type Kind string

const (
	KindTimeout            Kind = "timeout"
	KindRateLimited        Kind = "rate-limited"
	KindInvalidCredentials Kind = "invalid-credentials"
	KindProviderError      Kind = "provider-error"
)

// Error is a structured provider failure. It is an expected runtime outcome,
// returned as a value, never panicked.
type Error struct {
	Kind     Kind   `json:"kind"`
	Provider string `json:"provider"`
	Model    string `json:"model,omitempty"`
	Message  string `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("provider %s (%s): %s: %s", e.Provider, e.Model, e.Kind, e.Message)
}

// IsKind reports whether err is a provider Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var pe *Error
	return errors.As(err, &pe) && pe.Kind == kind
}

// Request is a single call to a named provider/model.
type Request struct {
	Provider string         `json:"provider"`
	Model    string         `json:"model"`
	Prompt   string         `json:"prompt,omitempty"`
	System   string         `json:"system,omitempty"`
	// Payload carries non-text inputs such as image or audio references.
	Payload map[string]any `json:"payload,omitempty"`
}

// Response is a provider result. Text is set for text-producing calls; Data
// carries structured results (image URLs, transcription segments).
type Response struct {
	Text string         `json:"text,omitempty"`
	Data map[string]any `json:"data,omitempty"`
}

// Client is the injected capability executors use to reach AI providers.
// Implementations must honor ctx cancellation and deadlines.
type Client interface {
	// Generate produces text or structured output from a prompt.
	Generate(ctx context.Context, req Request) (*Response, error)
	// Transcribe converts an audio payload to text.
	Transcribe(ctx context.Context, req Request) (*Response, error)
}
