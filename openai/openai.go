// Package openai implements [edabot.Provider] for OpenAI-compatible chat
// completion APIs using the eino ChatModel abstraction.
package openai

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	einoopenai "github.com/cloudwego/eino-ext/components/model/openai"

	"github.com/fwojciec/edabot"
)

const defaultModel = "gpt-4o-mini"

// Interface compliance check.
var _ edabot.Provider = (*Client)(nil)

// Client implements [edabot.Provider] on top of an eino chat model.
type Client struct {
	model model.BaseChatModel
}

// Option configures the underlying chat model.
type Option func(*einoopenai.ChatModelConfig)

// WithBaseURL points the client at an OpenAI-compatible endpoint.
func WithBaseURL(url string) Option {
	return func(c *einoopenai.ChatModelConfig) { c.BaseURL = url }
}

// WithModel sets the default model ID, used when a request names none.
func WithModel(m string) Option {
	return func(c *einoopenai.ChatModelConfig) { c.Model = m }
}

// New creates a [Client] backed by the eino OpenAI chat model.
func New(ctx context.Context, apiKey string, opts ...Option) (*Client, error) {
	cfg := &einoopenai.ChatModelConfig{
		APIKey: apiKey,
		Model:  defaultModel,
	}
	for _, o := range opts {
		o(cfg)
	}
	cm, err := einoopenai.NewChatModel(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("openai: %w", err)
	}
	return &Client{model: cm}, nil
}

// NewFromChatModel wraps an existing eino chat model.
func NewFromChatModel(m model.BaseChatModel) *Client {
	return &Client{model: m}
}

// Stream opens a streaming completion and returns an [edabot.Stream] of text
// deltas.
func (c *Client) Stream(ctx context.Context, req edabot.Request) (edabot.Stream, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("openai: %w", err)
	}
	reader, err := c.model.Stream(ctx, ConvertTurns(req.Turns), CallOptions(req)...)
	if err != nil {
		return nil, fmt.Errorf("openai: %w", err)
	}
	return newStream(ctx, reader), nil
}

// CallOptions maps request parameters onto per-call model options.
func CallOptions(req edabot.Request) []model.Option {
	var opts []model.Option
	if req.Model != "" {
		opts = append(opts, model.WithModel(req.Model))
	}
	if req.MaxTokens > 0 {
		opts = append(opts, model.WithMaxTokens(req.MaxTokens))
	}
	if req.Temperature != nil {
		opts = append(opts, model.WithTemperature(float32(*req.Temperature)))
	}
	return opts
}

// ConvertTurns converts a conversation to eino messages. All system turns are
// merged into one leading system message.
func ConvertTurns(turns edabot.Conversation) []*schema.Message {
	var msgs []*schema.Message
	if sys := (edabot.Request{Turns: turns}).SystemText(); sys != "" {
		msgs = append(msgs, schema.SystemMessage(sys))
	}
	for _, t := range turns {
		switch t.Role {
		case edabot.RoleUser:
			msgs = append(msgs, schema.UserMessage(t.Content))
		case edabot.RoleAssistant:
			msgs = append(msgs, schema.AssistantMessage(t.Content, nil))
		}
	}
	return msgs
}
