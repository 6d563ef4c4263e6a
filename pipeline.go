package edabot

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Defaults applied by NewPipeline.
const (
	DefaultTemperature       = 0.1
	DefaultCompletionTimeout = 2 * time.Minute
)

// Pipeline answers one question about an attached dataset per call to
// Answer. A Pipeline holds no per-request state and may serve concurrent
// requests.
type Pipeline struct {
	loader   DatasetLoader
	provider Provider
	engine   *Engine
	logger   *zap.Logger

	model       string
	maxTokens   int
	temperature float64
	timeout     time.Duration
	previewRows int
	limit       int
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithModel sets the model identifier sent with every completion request.
func WithModel(model string) PipelineOption {
	return func(p *Pipeline) { p.model = model }
}

// WithMaxTokens bounds the completion length. Zero leaves the provider
// default in place.
func WithMaxTokens(n int) PipelineOption {
	return func(p *Pipeline) { p.maxTokens = n }
}

// WithTemperature sets the sampling temperature that overrides any value
// supplied by the caller.
func WithTemperature(t float64) PipelineOption {
	return func(p *Pipeline) { p.temperature = t }
}

// WithCompletionTimeout bounds how long the completion call may take.
func WithCompletionTimeout(d time.Duration) PipelineOption {
	return func(p *Pipeline) { p.timeout = d }
}

// WithPreviewRows sets how many head rows are shown to the model.
func WithPreviewRows(n int) PipelineOption {
	return func(p *Pipeline) { p.previewRows = n }
}

// WithResponseLimit sets the character ceiling on response text.
func WithResponseLimit(n int) PipelineOption {
	return func(p *Pipeline) { p.limit = n }
}

// WithLogger sets the pipeline logger.
func WithLogger(l *zap.Logger) PipelineOption {
	return func(p *Pipeline) { p.logger = l }
}

// NewPipeline creates a Pipeline from its collaborators.
func NewPipeline(loader DatasetLoader, provider Provider, engine *Engine, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		loader:      loader,
		provider:    provider,
		engine:      engine,
		logger:      zap.NewNop(),
		temperature: DefaultTemperature,
		timeout:     DefaultCompletionTimeout,
		previewRows: DefaultPreviewRows,
		limit:       DefaultResponseLimit,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Answer runs the pipeline for conv and returns the response envelope.
//
// Every outcome except a failed completion call is reported through the
// envelope. A failed or empty completion is returned as an error and no
// partial response is produced; transports render it with
// FormatStreamFailure. conv is not modified.
func (p *Pipeline) Answer(ctx context.Context, conv Conversation) (Envelope, error) {
	log := p.logger.With(zap.String("request_id", uuid.NewString()))

	att, ok := FindAttachment(conv)
	if !ok {
		log.Info("no attachment")
		return p.bound(FormatNoAttachment()), nil
	}

	log.Debug("loading dataset", zap.String("name", att.Name), zap.String("url", att.URL))
	ds, err := p.loader.Load(ctx, att)
	if err != nil {
		log.Warn("dataset retrieval failed", zap.Error(err))
		return p.bound(FormatRetrievalFailure(err)), nil
	}
	log.Debug("dataset loaded", zap.Int("rows", ds.Len()), zap.Int("columns", len(ds.Columns)))

	turns := InjectSystemTurn(conv.Clone())
	query, err := RewriteLatestUserTurn(turns, ds, p.previewRows)
	if err != nil {
		return Envelope{}, err
	}
	plot := HasPlotMarker(query)

	comp, err := p.complete(ctx, turns)
	if err != nil {
		log.Error("completion failed", zap.Error(err))
		return Envelope{}, fmt.Errorf("completion: %w", err)
	}
	log.Debug("completion received",
		zap.String("stop_reason", string(comp.StopReason)),
		zap.Int("output_tokens", comp.Usage.OutputTokens))

	code := ExtractCode(comp.Text, "python")
	res, err := p.engine.Execute(ctx, NewExecContext(ds, code, plot))
	if err != nil {
		log.Info("no code produced")
		return p.bound(FormatNoCode(comp.Text)), nil
	}
	if !res.OK {
		log.Info("execution failed", zap.String("error", res.Err))
		return p.bound(FormatFailure(code, res.Err)), nil
	}

	log.Info("answered", zap.Bool("plot", plot), zap.Int("output_lines", len(res.Lines)))
	return p.bound(FormatAnswer(res, comp.Text, plot)), nil
}

func (p *Pipeline) complete(ctx context.Context, turns Conversation) (Completion, error) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	temp := p.temperature
	return Complete(ctx, p.provider, Request{
		Model:       p.model,
		Turns:       turns,
		MaxTokens:   p.maxTokens,
		Temperature: &temp,
	})
}

// bound applies the response ceiling to env.
func (p *Pipeline) bound(env Envelope) Envelope {
	env.Text = Truncate(env.Text, p.limit)
	return env
}

// Settings describes the bot to chat front ends.
type Settings struct {
	IntroductionMessage string         `json:"introduction_message"`
	AllowAttachments    bool           `json:"allow_attachments"`
	Dependencies        map[string]int `json:"server_bot_dependencies,omitempty"`
}

// Settings returns the bot settings advertised to front ends.
func (p *Pipeline) Settings() Settings {
	s := Settings{IntroductionMessage: IntroductionMessage, AllowAttachments: true}
	if p.model != "" {
		s.Dependencies = map[string]int{p.model: 1}
	}
	return s
}
