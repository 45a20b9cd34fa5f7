package main

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode"
)

type StreamMode string

const (
	StreamInstant    StreamMode = "instant"
	StreamSmooth     StreamMode = "smooth"
	StreamTypewriter StreamMode = "typewriter"
	StreamQuiet      StreamMode = "quiet"
)

func parseStreamMode(s string) (StreamMode, error) {
	switch m := StreamMode(strings.ToLower(strings.TrimSpace(s))); m {
	case StreamInstant, StreamSmooth, StreamTypewriter, StreamQuiet:
		return m, nil
	case "":
		return StreamInstant, nil
	default:
		return "", fmt.Errorf("unknown stream mode %q (instant, smooth, typewriter, quiet)", s)
	}
}

// StreamWriter prints one reply as its text is confirmed. Leading whitespace
// is dropped and trailing whitespace is held back until more text follows,
// so what reaches the terminal matches the stored, trimmed reply.
type StreamWriter struct {
	mode   StreamMode
	buffer *bufio.Writer

	mu            sync.Mutex
	batch         strings.Builder
	lastFlush     time.Time
	flushInterval time.Duration
	batchSize     int // flush after N words

	accumulator strings.Builder
	started     bool
	held        string

	rawOutput bool
	done      chan struct{}
	closeOnce sync.Once
}

func NewStreamWriter(out io.Writer, mode StreamMode, rawOutput bool) *StreamWriter {
	w := &StreamWriter{
		mode:          mode,
		buffer:        bufio.NewWriterSize(out, 4096),
		flushInterval: 50 * time.Millisecond,
		batchSize:     5,
		lastFlush:     time.Now(),
		rawOutput:     rawOutput,
		done:          make(chan struct{}),
	}

	if mode == StreamSmooth {
		go w.backgroundFlusher()
	}

	return w
}

// Write takes one confirmed delta. Its signature matches agent.DeltaFunc.
func (w *StreamWriter) Write(delta string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.started {
		delta = strings.TrimLeftFunc(delta, unicode.IsSpace)
		if delta == "" {
			return
		}
		w.started = true
	}
	body := strings.TrimRightFunc(delta, unicode.IsSpace)
	if body == "" {
		w.held += delta
		return
	}
	text := w.held + body
	w.held = delta[len(body):]

	w.accumulator.WriteString(text)
	switch w.mode {
	case StreamSmooth:
		w.writeSmooth(text)
	case StreamTypewriter:
		w.writeTypewriter(text)
	case StreamQuiet:
	default:
		w.writeInstant(text)
	}
}

// Close flushes pending output, stops the smooth-mode flusher and returns
// the text that was shown.
func (w *StreamWriter) Close() string {
	w.closeOnce.Do(func() { close(w.done) })

	w.mu.Lock()
	defer w.mu.Unlock()

	switch w.mode {
	case StreamQuiet:
		w.emit(w.accumulator.String())
	case StreamSmooth:
		w.flushBatch()
	}
	_ = w.buffer.Flush()
	return w.accumulator.String()
}

func (w *StreamWriter) writeInstant(text string) {
	w.emit(text)
	_ = w.buffer.Flush()
}

// writeSmooth batches output and flushes on size or elapsed time.
func (w *StreamWriter) writeSmooth(text string) {
	w.batch.WriteString(text)

	wordCount := strings.Count(w.batch.String(), " ") + 1
	if wordCount >= w.batchSize || time.Since(w.lastFlush) >= w.flushInterval {
		w.flushBatch()
	}
}

func (w *StreamWriter) writeTypewriter(text string) {
	for _, r := range text {
		if w.rawOutput {
			_, _ = w.buffer.WriteString(escapeRawOutputRune(r))
		} else {
			_, _ = w.buffer.WriteRune(r)
		}
		_ = w.buffer.Flush()
	}
}

// flushBatch writes the pending batch (must hold lock).
func (w *StreamWriter) flushBatch() {
	if w.batch.Len() == 0 {
		return
	}
	w.emit(w.batch.String())
	_ = w.buffer.Flush()
	w.batch.Reset()
	w.lastFlush = time.Now()
}

func (w *StreamWriter) emit(text string) {
	if w.rawOutput {
		text = escapeRawOutput(text)
	}
	_, _ = w.buffer.WriteString(text)
}

func (w *StreamWriter) backgroundFlusher() {
	ticker := time.NewTicker(w.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return
		case <-ticker.C:
			w.mu.Lock()
			if time.Since(w.lastFlush) >= w.flushInterval && w.batch.Len() > 0 {
				w.flushBatch()
			}
			w.mu.Unlock()
		}
	}
}

func escapeRawOutput(s string) string {
	var b strings.Builder
	for _, r := range s {
		b.WriteString(escapeRawOutputRune(r))
	}
	return b.String()
}

func escapeRawOutputRune(r rune) string {
	switch r {
	case '\n':
		return `\n`
	case '\r':
		return `\r`
	case '\t':
		return `\t`
	case '\\':
		return `\\`
	default:
		if strconv.IsPrint(r) {
			return string(r)
		}
		return fmt.Sprintf(`\u%04x`, r)
	}
}
