package mock

import (
	"io"

	"github.com/fwojciec/edabot"
)

// Interface compliance check.
var _ edabot.Stream = (*Stream)(nil)

// Stream is a test double for edabot.Stream.
// NextFn and CompletionFn panic when nil to catch missing setup. CloseFn and
// StateFn are nil-safe because callers always defer Close.
type Stream struct {
	NextFn       func() (edabot.Event, error)
	StateFn      func() edabot.StreamState
	CompletionFn func() (edabot.Completion, error)
	CloseFn      func() error
}

// Next delegates to NextFn.
func (s *Stream) Next() (edabot.Event, error) {
	return s.NextFn()
}

// State delegates to StateFn. Returns StreamStateNew when StateFn is nil.
func (s *Stream) State() edabot.StreamState {
	if s.StateFn == nil {
		return edabot.StreamStateNew
	}
	return s.StateFn()
}

// Completion delegates to CompletionFn.
func (s *Stream) Completion() (edabot.Completion, error) {
	return s.CompletionFn()
}

// Close delegates to CloseFn. Returns nil when CloseFn is not set.
func (s *Stream) Close() error {
	if s.CloseFn == nil {
		return nil
	}
	return s.CloseFn()
}

// TextStream returns a Stream that yields one EventTextDelta per delta, then
// io.EOF. Completion reports StopEndTurn.
func TextStream(deltas ...string) *Stream {
	i := 0
	return &Stream{
		NextFn: func() (edabot.Event, error) {
			if i >= len(deltas) {
				return nil, io.EOF
			}
			d := deltas[i]
			i++
			return edabot.EventTextDelta{Delta: d}, nil
		},
		CompletionFn: func() (edabot.Completion, error) {
			return edabot.Completion{StopReason: edabot.StopEndTurn}, nil
		},
	}
}
