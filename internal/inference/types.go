package inference

import (
	"context"
	"fmt"
	"math/rand"
	"time"
)

// EventKind tags an event of a generation stream.
type EventKind int

const (
	// EventToken carries one chunk of generated text.
	EventToken EventKind = iota
	// EventEnd means the model finished on its own.
	EventEnd
	// EventAborted means generation was cancelled before it finished.
	EventAborted
)

func (k EventKind) String() string {
	switch k {
	case EventToken:
		return "token"
	case EventEnd:
		return "end"
	case EventAborted:
		return "aborted"
	default:
		return fmt.Sprintf("event(%d)", int(k))
	}
}

// Event is one item of a generation stream. Err holds the cancellation
// cause for EventAborted.
type Event struct {
	Kind EventKind
	Text string
	Err  error
}

// Feedback tells the engine whether to keep generating.
type Feedback int

const (
	Continue Feedback = iota
	Halt
)

// StreamFunc receives events in order. Engines deliver zero or more token
// events and then exactly one EventEnd or EventAborted, unless the callback
// returns Halt first, in which case nothing further is delivered.
type StreamFunc func(ev Event) Feedback

// Engine generates text for a prompt. Implementations are not safe for
// concurrent use; callers hold exclusive access for the whole call.
type Engine interface {
	Generate(ctx context.Context, req *Request, stream StreamFunc) (*Result, error)
	Close() error
}

// Request is a single generation call. Rand is the sampling source; engines
// must not draw randomness from anywhere else.
type Request struct {
	Prompt string

	MaxTokens int

	Temperature   float64
	TopK          int
	TopP          float64
	MinP          float64
	RepeatPenalty float64
	RepeatLastN   int

	Rand *rand.Rand
}

type Stats struct {
	PromptTokens    int
	TokensGenerated int
	Duration        time.Duration
	TPS             float64
}

func (s *Stats) finish(start time.Time) {
	s.Duration = time.Since(start)
	if s.Duration.Seconds() > 0 {
		s.TPS = float64(s.TokensGenerated) / s.Duration.Seconds()
	}
}

// Result summarizes a finished call. Halted is set when the stream callback
// stopped generation.
type Result struct {
	Stats  Stats
	Halted bool
}
