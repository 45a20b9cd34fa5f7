package api

import (
	"fmt"
	"io"
	"strings"
	"unicode"

	json "github.com/goccy/go-json"
	"github.com/labstack/echo/v5"
)

// SSEStreamWriter writes one turn as Server-Sent Events: a delta event per
// confirmed piece of reply text, then either the final reply or an error,
// then [DONE]. Leading whitespace is dropped and trailing whitespace held
// back, so the joined deltas equal the final reply.
type SSEStreamWriter struct {
	w       io.Writer
	flusher func()
	begun   bool
	text    bool
	held    string
	err     error
}

func NewSSEStreamWriter(c *echo.Context) (*SSEStreamWriter, error) {
	res := c.Response()
	flusher, ok := res.(interface{ Flush() })
	if !ok {
		return nil, fmt.Errorf("streaming unsupported")
	}

	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set("Cache-Control", "no-cache")
	res.Header().Set("Connection", "keep-alive")

	return &SSEStreamWriter{
		w:       res,
		flusher: flusher.Flush,
	}, nil
}

// Started reports whether any event has been written.
func (s *SSEStreamWriter) Started() bool {
	return s.begun
}

// EmitDelta is safe to use as an agent.DeltaFunc. After the first write
// error further deltas are dropped; see Err.
func (s *SSEStreamWriter) EmitDelta(delta string) {
	if s.err != nil {
		return
	}
	if !s.text {
		delta = strings.TrimLeftFunc(delta, unicode.IsSpace)
		if delta == "" {
			return
		}
		s.text = true
	}
	body := strings.TrimRightFunc(delta, unicode.IsSpace)
	if body == "" {
		s.held += delta
		return
	}
	out := s.held + body
	s.held = delta[len(body):]
	s.err = s.send(streamDelta{Delta: out})
}

func (s *SSEStreamWriter) Complete(reply string, turn int) error {
	if err := s.send(streamFinal{Reply: reply, Turn: turn}); err != nil {
		return err
	}
	return s.done()
}

func (s *SSEStreamWriter) Failed(errType string, err error) error {
	if sendErr := s.send(streamError{Error: ErrorBody{Message: err.Error(), Type: errType}}); sendErr != nil {
		return sendErr
	}
	return s.done()
}

func (s *SSEStreamWriter) Err() error {
	return s.err
}

func (s *SSEStreamWriter) send(payload any) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return s.write("data: " + string(b) + "\n\n")
}

func (s *SSEStreamWriter) done() error {
	return s.write("data: [DONE]\n\n")
}

func (s *SSEStreamWriter) write(event string) error {
	s.begun = true
	if _, err := io.WriteString(s.w, event); err != nil {
		return err
	}
	if s.flusher != nil {
		s.flusher()
	}
	return nil
}
