// Package llm abstracts the chat model behind a small tool-calling
// interface so the conversation loop never depends on a concrete vendor
// SDK.
package llm

import (
	"context"
	"errors"

	"github.com/strikeview/strikeview/internal/models"
	"github.com/strikeview/strikeview/internal/persona"
)

// ErrNoAPIKey is returned before any network activity when the provider
// credential is missing. Callers surface it as a needs-configuration
// signal, not a generic failure.
var ErrNoAPIKey = errors.New("llm: no API key configured")

// Response is one model round: plain content, tool invocation requests,
// or both.
type Response struct {
	Content   string
	ToolCalls []models.ToolCall
}

// Provider submits conversation history plus the persona's tool set and
// returns the model's next move.
type Provider interface {
	ChatWithTools(ctx context.Context, history []models.Turn, tools []persona.ToolSpec) (*Response, error)
	GetName() string
	GetModel() string
}

// Options carries the provider credential and model selection.
type Options struct {
	APIKey string
	Model  string
	// BaseURL overrides the API host, for OpenAI-compatible gateways and
	// tests.
	BaseURL string
}
