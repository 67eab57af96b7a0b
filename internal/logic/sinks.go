package logic

// EventSink observes the edges produced by a SampledInput.
type EventSink interface {
	HandleEvent(e Event)
}

// EventSinkFunc adapts a plain function to EventSink.
type EventSinkFunc func(e Event)

// HandleEvent calls f(e).
func (f EventSinkFunc) HandleEvent(e Event) {
	f(e)
}

// Sinks fans an event out to every sink in order. NONE events are delivered
// too; sinks that only care about edges ignore them.
type Sinks []EventSink

// HandleEvent delivers e to each sink.
func (s Sinks) HandleEvent(e Event) {
	for _, sink := range s {
		sink.HandleEvent(e)
	}
}

// PressCounter counts press and release edges.
type PressCounter struct {
	Presses  uint64
	Releases uint64
}

// HandleEvent increments the matching counter.
func (c *PressCounter) HandleEvent(e Event) {
	switch e {
	case EventPress:
		c.Presses++
	case EventRelease:
		c.Releases++
	}
}
