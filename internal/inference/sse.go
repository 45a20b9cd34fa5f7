package inference

import (
	"bufio"
	"io"
	"strings"
)

// sseReader splits a Server-Sent Events body into the data payloads of its
// events. Event types, ids and comments are ignored.
type sseReader struct {
	r    *bufio.Reader
	data string
	err  error
}

func newSSEReader(r io.Reader) *sseReader {
	return &sseReader{r: bufio.NewReaderSize(r, 64*1024)}
}

// Next advances to the next event carrying data. It returns false at the end
// of the body or on a read error; see Err.
func (s *sseReader) Next() bool {
	if s.err != nil {
		return false
	}
	var lines []string
	for {
		line, err := s.r.ReadString('\n')
		if err != nil && line == "" {
			s.err = err
			if len(lines) > 0 {
				s.data = strings.Join(lines, "\n")
				return true
			}
			return false
		}
		line = strings.TrimRight(line, "\r\n")

		if line == "" {
			if len(lines) > 0 {
				s.data = strings.Join(lines, "\n")
				return true
			}
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue
		}
		field, value, _ := strings.Cut(line, ":")
		if field == "data" {
			lines = append(lines, strings.TrimPrefix(value, " "))
		}
	}
}

func (s *sseReader) Data() string {
	return s.data
}

// Err returns the read error that ended the stream, or nil at a clean EOF.
func (s *sseReader) Err() error {
	if s.err == io.EOF {
		return nil
	}
	return s.err
}
