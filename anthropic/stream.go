package anthropic

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fwojciec/edabot"
)

// stream implements [edabot.Stream] by parsing SSE events from an HTTP
// response body.
type stream struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
	ctx     context.Context
	state   edabot.StreamState
	text    strings.Builder
	comp    edabot.Completion
	err     error // terminal error, if any
}

// Interface compliance check.
var _ edabot.Stream = (*stream)(nil)

func newStream(ctx context.Context, body io.ReadCloser) *stream {
	return &stream{
		body:    body,
		scanner: bufio.NewScanner(body),
		ctx:     ctx,
		state:   edabot.StreamStateNew,
	}
}

// Next reads the next text delta from the SSE stream.
// Returns io.EOF when the stream completes normally.
func (s *stream) Next() (edabot.Event, error) {
	switch s.state {
	case edabot.StreamStateComplete:
		return nil, io.EOF
	case edabot.StreamStateError:
		return nil, s.err
	case edabot.StreamStateClosed:
		return nil, fmt.Errorf("anthropic: %w", edabot.ErrStreamClosed)
	}

	for {
		eventType, data, err := s.readSSEEvent()
		if err != nil {
			s.terminate(err)
			return nil, s.err
		}

		s.state = edabot.StreamStateStreaming

		evt, err := s.processEvent(eventType, data)
		if err != nil {
			s.terminate(err)
			return nil, s.err
		}

		// processEvent may set a terminal state (message_stop).
		if s.state == edabot.StreamStateComplete {
			return nil, io.EOF
		}

		if evt != nil {
			return evt, nil
		}
		// ping, message_start and friends carry no text.
	}
}

// State returns the current stream state.
func (s *stream) State() edabot.StreamState {
	return s.state
}

// Completion returns the text assembled so far.
func (s *stream) Completion() (edabot.Completion, error) {
	if s.state == edabot.StreamStateNew {
		return edabot.Completion{}, fmt.Errorf("anthropic: %w", edabot.ErrStreamNotReady)
	}
	c := s.comp
	c.Text = s.text.String()
	return c, nil
}

// Close closes the underlying HTTP response body.
func (s *stream) Close() error {
	if s.state != edabot.StreamStateComplete && s.state != edabot.StreamStateError {
		s.state = edabot.StreamStateClosed
		s.comp.StopReason = edabot.StopAborted
		s.comp.RawStopReason = "aborted"
	}
	return s.body.Close()
}

// terminate records a terminal error and sets the stop reason.
func (s *stream) terminate(err error) {
	s.state = edabot.StreamStateError
	if err == io.EOF {
		// message_stop completes the stream before a clean EOF is reached.
		s.err = fmt.Errorf("anthropic: unexpected end of stream")
		s.comp.StopReason = edabot.StopError
		s.comp.RawStopReason = "error"
		return
	}
	s.err = err
	if s.ctx.Err() != nil {
		s.comp.StopReason = edabot.StopAborted
		s.comp.RawStopReason = "aborted"
	} else {
		s.comp.StopReason = edabot.StopError
		s.comp.RawStopReason = "error"
	}
}

// readSSEEvent reads lines until a complete SSE event is assembled.
func (s *stream) readSSEEvent() (string, string, error) {
	var eventType string
	var dataBuf strings.Builder

	for s.scanner.Scan() {
		line := s.scanner.Text()

		if line == "" {
			if dataBuf.Len() > 0 {
				return eventType, dataBuf.String(), nil
			}
			continue
		}

		if v, ok := strings.CutPrefix(line, "event: "); ok {
			eventType = v
		} else if v, ok := strings.CutPrefix(line, "data: "); ok {
			if dataBuf.Len() > 0 {
				dataBuf.WriteByte('\n')
			}
			dataBuf.WriteString(v)
		}
		// Comments and unknown fields are ignored.
	}

	if err := s.scanner.Err(); err != nil {
		return "", "", fmt.Errorf("anthropic: %w", err)
	}
	if dataBuf.Len() > 0 {
		return eventType, dataBuf.String(), nil
	}
	return "", "", io.EOF
}

// processEvent maps an SSE event to an edabot.Event. Returns a nil event for
// events that carry no text.
func (s *stream) processEvent(eventType, data string) (edabot.Event, error) {
	switch eventType {
	case "message_start":
		return nil, s.handleMessageStart(data)
	case "content_block_delta":
		return s.handleContentBlockDelta(data)
	case "message_delta":
		return nil, s.handleMessageDelta(data)
	case "message_stop":
		s.state = edabot.StreamStateComplete
		return nil, nil
	case "error":
		return nil, s.handleError(data)
	default:
		// ping, content_block_start/stop and unknown types.
		return nil, nil
	}
}

func (s *stream) handleMessageStart(data string) error {
	var evt sseMessageStart
	if err := json.Unmarshal([]byte(data), &evt); err != nil {
		return fmt.Errorf("anthropic: failed to parse message_start: %w", err)
	}
	u := evt.Message.Usage
	s.comp.Usage.InputTokens = u.InputTokens
	if u.CacheReadInputTokens != nil {
		s.comp.Usage.CacheReadTokens = *u.CacheReadInputTokens
	}
	if u.CacheCreationInputTokens != nil {
		s.comp.Usage.CacheWriteTokens = *u.CacheCreationInputTokens
	}
	return nil
}

func (s *stream) handleContentBlockDelta(data string) (edabot.Event, error) {
	var evt sseContentBlockDelta
	if err := json.Unmarshal([]byte(data), &evt); err != nil {
		return nil, fmt.Errorf("anthropic: failed to parse content_block_delta: %w", err)
	}
	if evt.Delta.Type != "text_delta" {
		return nil, nil
	}
	s.text.WriteString(evt.Delta.Text)
	return edabot.EventTextDelta{Delta: evt.Delta.Text}, nil
}

func (s *stream) handleMessageDelta(data string) error {
	var evt sseMessageDelta
	if err := json.Unmarshal([]byte(data), &evt); err != nil {
		return fmt.Errorf("anthropic: failed to parse message_delta: %w", err)
	}
	s.comp.Usage.OutputTokens = evt.Usage.OutputTokens
	if evt.Delta.StopReason != nil {
		s.comp.RawStopReason = *evt.Delta.StopReason
		s.comp.StopReason = mapStopReason(*evt.Delta.StopReason)
	}
	return nil
}

func (s *stream) handleError(data string) error {
	var evt sseError
	if err := json.Unmarshal([]byte(data), &evt); err != nil {
		return fmt.Errorf("anthropic: failed to parse error event: %w", err)
	}
	return fmt.Errorf("anthropic: %s: %s", evt.Error.Type, evt.Error.Message)
}

func mapStopReason(raw string) edabot.StopReason {
	switch raw {
	case "end_turn", "stop_sequence":
		return edabot.StopEndTurn
	case "max_tokens":
		return edabot.StopLength
	default:
		return edabot.StopUnknown
	}
}
