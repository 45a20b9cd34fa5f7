// Package stopseq assembles a reply from streamed chunks while cutting it at
// a stop marker that may arrive split across several chunks.
package stopseq

import (
	"fmt"
	"strings"
)

// State is the matcher's position in the stream.
type State int

const (
	// Empty means nothing is held back.
	Empty State = iota
	// PartialMatch means the pending buffer is a proper prefix of the marker.
	PartialMatch
	// Halted means the marker was matched; no further input is accepted.
	Halted
	// Ended means the stream finished without the marker completing.
	Ended
)

func (s State) String() string {
	switch s {
	case Empty:
		return "empty"
	case PartialMatch:
		return "partial"
	case Halted:
		return "halted"
	case Ended:
		return "ended"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Terminal reports whether the matcher will ignore further chunks.
func (s State) Terminal() bool {
	return s == Halted || s == Ended
}

// Matcher is a single-use state machine for one reply. Text is only ever
// emitted once it is known not to be part of the marker.
type Matcher struct {
	marker  string
	pending string
	out     strings.Builder
	state   State
	emit    func(string)
}

// New returns a matcher cutting at marker. An empty marker never matches.
func New(marker string) *Matcher {
	return &Matcher{marker: marker}
}

// OnEmit registers fn to receive every piece of confirmed output as it is
// appended. It must be set before the first Push.
func (m *Matcher) OnEmit(fn func(string)) {
	m.emit = fn
}

// Push feeds one chunk and returns the resulting state.
func (m *Matcher) Push(chunk string) State {
	if m.state.Terminal() || chunk == "" {
		return m.state
	}
	if m.marker == "" {
		m.write(chunk)
		return m.state
	}

	candidate := m.pending + chunk
	switch {
	case candidate == m.marker:
		m.pending = ""
		m.state = Halted
	case strings.HasPrefix(m.marker, candidate):
		m.pending = candidate
		m.state = PartialMatch
	default:
		m.pending = ""
		m.state = Empty
		m.write(candidate)
	}
	return m.state
}

// End marks the end of the stream. A pending partial match never completed
// the marker, so it is flushed as literal text.
func (m *Matcher) End() State {
	if m.state.Terminal() {
		return m.state
	}
	if m.pending != "" {
		p := m.pending
		m.pending = ""
		m.write(p)
	}
	m.state = Ended
	return m.state
}

func (m *Matcher) State() State {
	return m.state
}

// Pending returns the text currently held back as a possible marker prefix.
func (m *Matcher) Pending() string {
	return m.pending
}

// Text returns the confirmed output so far.
func (m *Matcher) Text() string {
	return m.out.String()
}

func (m *Matcher) write(s string) {
	m.out.WriteString(s)
	if m.emit != nil {
		m.emit(s)
	}
}
