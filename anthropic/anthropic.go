// Package anthropic implements [edabot.Provider] for the Anthropic Messages
// API.
//
// Requests are sent with stream enabled and the SSE response is parsed one
// event at a time behind the pull-based [edabot.Stream] interface. Only text
// content is requested and surfaced.
package anthropic

const (
	defaultBaseURL   = "https://api.anthropic.com"
	defaultModel     = "claude-sonnet-4-20250514"
	defaultMaxTokens = 4096
	apiVersion       = "2023-06-01"
	messagesPath     = "/v1/messages"
)

// apiRequest is the JSON body sent to the Anthropic Messages API.
type apiRequest struct {
	Model       string       `json:"model"`
	MaxTokens   int          `json:"max_tokens"`
	Stream      bool         `json:"stream"`
	System      []apiText    `json:"system,omitempty"`
	Messages    []apiMessage `json:"messages"`
	Temperature *float64     `json:"temperature,omitempty"`
}

type apiMessage struct {
	Role    string    `json:"role"`
	Content []apiText `json:"content"`
}

type apiText struct {
	Type string `json:"type"` // always "text"
	Text string `json:"text"`
}

// SSE response types.

type sseMessageStart struct {
	Message struct {
		Usage sseUsage `json:"usage"`
	} `json:"message"`
}

// Cache fields are nullable per the API schema.
type sseUsage struct {
	InputTokens              int  `json:"input_tokens"`
	OutputTokens             int  `json:"output_tokens"`
	CacheCreationInputTokens *int `json:"cache_creation_input_tokens"`
	CacheReadInputTokens     *int `json:"cache_read_input_tokens"`
}

type sseContentBlockDelta struct {
	Index int `json:"index"`
	Delta struct {
		Type string `json:"type"`
		Text string `json:"text,omitempty"`
	} `json:"delta"`
}

type sseMessageDelta struct {
	Delta struct {
		StopReason *string `json:"stop_reason"`
	} `json:"delta"`
	Usage struct {
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

type sseErrorDetail struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// sseError is also the body of non-200 HTTP responses.
type sseError struct {
	Error sseErrorDetail `json:"error"`
}
