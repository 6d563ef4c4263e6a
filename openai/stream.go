package openai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/cloudwego/eino/schema"

	"github.com/fwojciec/edabot"
)

// stream implements [edabot.Stream] over an eino message stream reader.
type stream struct {
	ctx    context.Context
	reader *schema.StreamReader[*schema.Message]
	state  edabot.StreamState
	text   strings.Builder
	comp   edabot.Completion
	err    error
}

// Interface compliance check.
var _ edabot.Stream = (*stream)(nil)

func newStream(ctx context.Context, reader *schema.StreamReader[*schema.Message]) *stream {
	return &stream{ctx: ctx, reader: reader, state: edabot.StreamStateNew}
}

func (s *stream) Next() (edabot.Event, error) {
	switch s.state {
	case edabot.StreamStateComplete:
		return nil, io.EOF
	case edabot.StreamStateError:
		return nil, s.err
	case edabot.StreamStateClosed:
		return nil, fmt.Errorf("openai: %w", edabot.ErrStreamClosed)
	}

	for {
		chunk, err := s.reader.Recv()
		if errors.Is(err, io.EOF) {
			s.state = edabot.StreamStateComplete
			if s.comp.StopReason == "" {
				s.comp.StopReason = edabot.StopEndTurn
			}
			return nil, io.EOF
		}
		s.state = edabot.StreamStateStreaming
		if err != nil {
			s.fail(err)
			return nil, s.err
		}
		s.absorbMeta(chunk)
		if chunk == nil || chunk.Content == "" {
			continue
		}
		s.text.WriteString(chunk.Content)
		return edabot.EventTextDelta{Delta: chunk.Content}, nil
	}
}

func (s *stream) absorbMeta(chunk *schema.Message) {
	if chunk == nil || chunk.ResponseMeta == nil {
		return
	}
	meta := chunk.ResponseMeta
	if meta.FinishReason != "" {
		s.comp.RawStopReason = meta.FinishReason
		s.comp.StopReason = mapFinishReason(meta.FinishReason)
	}
	if u := meta.Usage; u != nil {
		s.comp.Usage.InputTokens = u.PromptTokens
		s.comp.Usage.OutputTokens = u.CompletionTokens
	}
}

func (s *stream) fail(err error) {
	s.state = edabot.StreamStateError
	s.err = fmt.Errorf("openai: %w", err)
	if s.ctx.Err() != nil {
		s.comp.StopReason = edabot.StopAborted
		s.comp.RawStopReason = "aborted"
		return
	}
	s.comp.StopReason = edabot.StopError
	s.comp.RawStopReason = "error"
}

func (s *stream) State() edabot.StreamState {
	return s.state
}

func (s *stream) Completion() (edabot.Completion, error) {
	if s.state == edabot.StreamStateNew {
		return edabot.Completion{}, fmt.Errorf("openai: %w", edabot.ErrStreamNotReady)
	}
	c := s.comp
	c.Text = s.text.String()
	return c, nil
}

func (s *stream) Close() error {
	if s.state != edabot.StreamStateComplete && s.state != edabot.StreamStateError {
		s.state = edabot.StreamStateClosed
		s.comp.StopReason = edabot.StopAborted
		s.comp.RawStopReason = "aborted"
	}
	s.reader.Close()
	return nil
}

func mapFinishReason(r string) edabot.StopReason {
	switch r {
	case "stop":
		return edabot.StopEndTurn
	case "length":
		return edabot.StopLength
	default:
		return edabot.StopUnknown
	}
}
