package player

import "github.com/Garik-/midiplay/pkg/midi"

// Sink receives fired events one at a time. A blocking Send blocks Update.
type Sink interface {
	Send(e midi.Event)
}

type SinkFunc func(e midi.Event)

func (f SinkFunc) Send(e midi.Event) {
	f(e)
}

// ChanSink pushes every event into a channel, blocking while it is full.
type ChanSink chan<- midi.Event

func (c ChanSink) Send(e midi.Event) {
	c <- e
}

// Queue collects events in memory in the order they were sent.
type Queue struct {
	events []midi.Event
}

func (q *Queue) Send(e midi.Event) {
	q.events = append(q.events, e)
}

func (q *Queue) Len() int {
	return len(q.events)
}

// Events returns a copy of the queued events.
func (q *Queue) Events() []midi.Event {
	return append([]midi.Event(nil), q.events...)
}

// Drain returns the queued events and empties the queue.
func (q *Queue) Drain() []midi.Event {
	events := q.events
	q.events = nil
	return events
}
