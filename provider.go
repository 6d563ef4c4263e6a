package edabot

import (
	"context"
	"fmt"
)

// Provider is a strategy pattern interface for LLM providers.
type Provider interface {
	Stream(ctx context.Context, req Request) (Stream, error)
}

// Request carries model selection and generation parameters.
// The provider uses its own defaults when fields are zero/nil.
type Request struct {
	Model       string // model ID, provider-specific; empty = provider default
	Turns       Conversation
	MaxTokens   int      // 0 = provider default
	Temperature *float64 // nil = provider default
}

// Validate checks universal constraints on Request.
// Provider implementations may apply additional provider-specific validation.
func (r Request) Validate() error {
	if len(r.Turns) == 0 {
		return fmt.Errorf("request has no turns: %w", ErrValidation)
	}
	if r.Temperature != nil {
		if *r.Temperature < 0 || *r.Temperature > 2 {
			return fmt.Errorf("temperature must be in [0, 2], got %g: %w", *r.Temperature, ErrValidation)
		}
	}
	if r.MaxTokens < 0 {
		return fmt.Errorf("max_tokens must be non-negative, got %d: %w", r.MaxTokens, ErrValidation)
	}
	for i, t := range r.Turns {
		switch t.Role {
		case RoleSystem, RoleUser, RoleAssistant:
		default:
			return fmt.Errorf("turn %d has unknown role %q: %w", i, t.Role, ErrValidation)
		}
	}
	return nil
}

// SystemText joins the content of all system turns, in order, separated by a
// blank line. Providers with a dedicated system field use it.
func (r Request) SystemText() string {
	var out string
	for _, t := range r.Turns {
		if t.Role != RoleSystem {
			continue
		}
		if out != "" {
			out += "\n\n"
		}
		out += t.Content
	}
	return out
}
