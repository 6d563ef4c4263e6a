package edabot

// Event is a sealed interface representing a streaming event.
// Events are purely semantic. Transport/protocol errors come from
// Next()'s error return, not from events.
type Event interface {
	event()
}

// EventTextDelta represents an incremental chunk of completion text.
type EventTextDelta struct {
	Delta string
}

func (EventTextDelta) event() {}

// Interface compliance check.
var _ Event = EventTextDelta{}
