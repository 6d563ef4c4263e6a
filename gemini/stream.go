package gemini

import (
	"context"
	"fmt"
	"io"
	"iter"
	"strings"

	"github.com/fwojciec/edabot"
	"google.golang.org/genai"
)

// stream implements [edabot.Stream] over the SDK's streaming iterator. Each
// chunk may carry several text parts; they are queued and handed out one per
// Next call.
type stream struct {
	ctx     context.Context
	pull    func() (*genai.GenerateContentResponse, error, bool)
	stop    func()
	state   edabot.StreamState
	pending []string
	text    strings.Builder
	comp    edabot.Completion
	err     error
}

// Interface compliance check.
var _ edabot.Stream = (*stream)(nil)

func newStream(ctx context.Context, it iter.Seq2[*genai.GenerateContentResponse, error]) *stream {
	next, stop := iter.Pull2(it)
	return &stream{
		ctx:   ctx,
		pull:  next,
		stop:  stop,
		state: edabot.StreamStateNew,
	}
}

func (s *stream) Next() (edabot.Event, error) {
	switch s.state {
	case edabot.StreamStateComplete:
		return nil, io.EOF
	case edabot.StreamStateError:
		return nil, s.err
	case edabot.StreamStateClosed:
		return nil, fmt.Errorf("gemini: %w", edabot.ErrStreamClosed)
	}

	for len(s.pending) == 0 {
		resp, err, ok := s.pull()
		if !ok {
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
		s.absorb(resp)
	}

	delta := s.pending[0]
	s.pending = s.pending[1:]
	s.text.WriteString(delta)
	return edabot.EventTextDelta{Delta: delta}, nil
}

// absorb queues the text parts of the first candidate and records finish
// reason and usage. Thought parts are skipped.
func (s *stream) absorb(resp *genai.GenerateContentResponse) {
	if resp == nil {
		return
	}
	if u := resp.UsageMetadata; u != nil {
		// PromptTokenCount includes cached tokens.
		s.comp.Usage.InputTokens = max(int(u.PromptTokenCount-u.CachedContentTokenCount), 0)
		s.comp.Usage.OutputTokens = int(u.CandidatesTokenCount)
		s.comp.Usage.CacheReadTokens = int(u.CachedContentTokenCount)
	}
	if len(resp.Candidates) == 0 {
		return
	}
	cand := resp.Candidates[0]
	if cand.FinishReason != "" {
		s.comp.RawStopReason = string(cand.FinishReason)
		s.comp.StopReason = mapFinishReason(cand.FinishReason)
	}
	if cand.Content == nil {
		return
	}
	for _, p := range cand.Content.Parts {
		if p == nil || p.Thought || p.Text == "" {
			continue
		}
		s.pending = append(s.pending, p.Text)
	}
}

func (s *stream) fail(err error) {
	s.state = edabot.StreamStateError
	s.err = fmt.Errorf("gemini: %w", err)
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
		return edabot.Completion{}, fmt.Errorf("gemini: %w", edabot.ErrStreamNotReady)
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
	s.stop()
	return nil
}

func mapFinishReason(r genai.FinishReason) edabot.StopReason {
	switch r {
	case genai.FinishReasonStop:
		return edabot.StopEndTurn
	case genai.FinishReasonMaxTokens:
		return edabot.StopLength
	default:
		return edabot.StopUnknown
	}
}
