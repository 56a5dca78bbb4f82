// Package stream turns the byte stream of a flow run into tagged events.
//
// Two framings are understood: the sentinel framing
// (::result::NAME::<newline>, text<newline>, ::end::<newline>) and
// server-sent events (data: {...}\n\n, data: [DONE]). Both decode to the same
// grammar of Start, Chunk, End and Done events. Decoders buffer partial
// frames across Feed calls, so the events produced depend only on the
// concatenated bytes and never on how they were split.
package stream

import "fmt"

// Kind is the tag of an Event
type Kind int

const (
	// Start opens an agent's result and marks it running
	Start Kind = iota
	// Chunk carries text for the open agent
	Chunk
	// End completes the open agent
	End
	// Done marks the end of the stream
	Done
)

func (k Kind) String() string {
	switch k {
	case Start:
		return "start"
	case Chunk:
		return "chunk"
	case End:
		return "end"
	case Done:
		return "done"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Event is a single decoded stream event. Agent is set on Start and may be
// set on Chunk and End when the framing names it.
type Event struct {
	Kind  Kind   `json:"kind"`
	Agent string `json:"agent,omitempty"`
	Text  string `json:"text,omitempty"`
}

// Decoder reassembles events from arbitrarily split chunks
type Decoder interface {
	// Feed buffers p and returns the events completed by it
	Feed(p []byte) []Event
	// Close flushes any trailing fragment and returns the final events,
	// always ending with Done. Calls after the first return nil.
	Close() []Event
}
