package gemini

import (
	"context"
	"fmt"

	"github.com/fwojciec/edabot"
	"google.golang.org/genai"
)

// Interface compliance check.
var _ edabot.Provider = (*Client)(nil)

// Client implements [edabot.Provider] for the Google Gemini API.
type Client struct {
	client *genai.Client
	model  string
}

// Option configures a [Client].
type Option func(*Client)

// WithModel sets the default model ID, used when a request names none.
func WithModel(model string) Option {
	return func(c *Client) { c.model = model }
}

// New creates a new Gemini [Client] with the given API key and options.
func New(ctx context.Context, apiKey string, opts ...Option) (*Client, error) {
	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}
	c := &Client{
		client: gc,
		model:  defaultModel,
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// Stream starts a streaming generation and returns an [edabot.Stream] of
// text deltas.
func (c *Client) Stream(ctx context.Context, req edabot.Request) (edabot.Stream, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}
	model := req.Model
	if model == "" {
		model = c.model
	}
	it := c.client.Models.GenerateContentStream(ctx, model, ConvertTurns(req.Turns), BuildConfig(req))
	return newStream(ctx, it), nil
}

// BuildConfig maps request parameters onto a generation config. System turns
// become the system instruction.
func BuildConfig(req edabot.Request) *genai.GenerateContentConfig {
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = defaultMaxTokens
	}
	config := &genai.GenerateContentConfig{
		MaxOutputTokens: int32(maxTokens),
	}
	if sys := req.SystemText(); sys != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: sys}},
		}
	}
	if req.Temperature != nil {
		temp := float32(*req.Temperature)
		config.Temperature = &temp
	}
	return config
}

// ConvertTurns converts user and assistant turns to genai Contents. System
// turns are carried by BuildConfig instead.
func ConvertTurns(turns edabot.Conversation) []*genai.Content {
	var result []*genai.Content
	for _, t := range turns {
		var role genai.Role
		switch t.Role {
		case edabot.RoleUser:
			role = genai.RoleUser
		case edabot.RoleAssistant:
			role = genai.RoleModel
		default:
			continue
		}
		result = append(result, &genai.Content{
			Role:  string(role),
			Parts: []*genai.Part{{Text: t.Content}},
		})
	}
	return result
}
