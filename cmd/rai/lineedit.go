package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

var (
	interactiveHistory []string
	stdinReader        = bufio.NewReader(os.Stdin)
)

// readPipedLine reads one line from a non-terminal stdin. A final line
// without a newline is returned before io.EOF.
func readPipedLine(prompt string) (string, error) {
	fmt.Print(prompt)
	s, err := stdinReader.ReadString('\n')
	if err != nil && (err != io.EOF || s == "") {
		return "", err
	}
	return trimTrailingNewline(s), nil
}

func trimTrailingNewline(s string) string {
	if len(s) > 0 && s[len(s)-1] == '\n' {
		s = s[:len(s)-1]
	}
	if len(s) > 0 && s[len(s)-1] == '\r' {
		s = s[:len(s)-1]
	}
	return s
}

// lineEditor is the key handling of the raw-mode prompt: cursor motion,
// word editing and history. It is fed one byte at a time and redraws to out.
type lineEditor struct {
	out     io.Writer
	prompt  string
	history *[]string

	line   []byte
	cursor int

	escState int
	escBuf   strings.Builder

	histPos      int
	histBrowsing bool
	histDraft    string
}

func newLineEditor(out io.Writer, prompt string, history *[]string) *lineEditor {
	return &lineEditor{
		out:     out,
		prompt:  prompt,
		history: history,
		line:    make([]byte, 0, 256),
		histPos: len(*history),
	}
}

// feed handles one input byte. It reports done when the line was submitted;
// io.EOF means the user asked to leave (Ctrl+C, or Ctrl+D on an empty line).
func (e *lineEditor) feed(b byte) (done bool, err error) {
	if e.escState != 0 {
		e.feedEscape(b)
		return false, nil
	}

	switch b {
	case 27: // ESC
		e.escState = 1
	case '\r', '\n':
		_, _ = fmt.Fprint(e.out, "\r\n")
		if out := string(e.line); strings.TrimSpace(out) != "" {
			*e.history = append(*e.history, out)
		}
		return true, nil
	case 3: // Ctrl+C
		_, _ = fmt.Fprint(e.out, "^C\r\n")
		return false, io.EOF
	case 4: // Ctrl+D
		if len(e.line) == 0 {
			_, _ = fmt.Fprint(e.out, "\r\n")
			return false, io.EOF
		}
	case 127, 8: // backspace
		if e.cursor > 0 {
			e.line = append(e.line[:e.cursor-1], e.line[e.cursor:]...)
			e.cursor--
			e.redraw()
		}
	case 1: // Ctrl+A
		e.cursor = 0
		e.redraw()
	case 5: // Ctrl+E
		e.cursor = len(e.line)
		e.redraw()
	case 23: // Ctrl+W
		e.deleteWordBack()
	default:
		if b >= 32 {
			e.insert(b)
		}
	}
	return false, nil
}

func (e *lineEditor) text() string {
	return string(e.line)
}

func (e *lineEditor) feedEscape(b byte) {
	switch e.escState {
	case 1:
		e.escState = 0
		switch b {
		case '[':
			e.escState = 2
			e.escBuf.Reset()
		case 'b', 'B': // Alt+b
			e.moveWordLeft()
		case 'f', 'F': // Alt+f
			e.moveWordRight()
		case 127: // Alt+Backspace
			e.deleteWordBack()
		}
	case 2:
		e.escBuf.WriteByte(b)
		if (b >= 'A' && b <= 'Z') || (b >= 'a' && b <= 'z') || b == '~' {
			e.handleCSI(e.escBuf.String())
			e.escState = 0
		}
	}
}

func (e *lineEditor) handleCSI(seq string) {
	switch seq {
	case "A":
		e.historyUp()
	case "B":
		e.historyDown()
	case "D":
		if e.cursor > 0 {
			e.cursor--
			e.redraw()
		}
	case "C":
		if e.cursor < len(e.line) {
			e.cursor++
			e.redraw()
		}
	case "H":
		e.cursor = 0
		e.redraw()
	case "F":
		e.cursor = len(e.line)
		e.redraw()
	case "3~":
		if e.cursor < len(e.line) {
			e.line = append(e.line[:e.cursor], e.line[e.cursor+1:]...)
			e.redraw()
		}
	case "1;5D", "5D":
		e.moveWordLeft()
	case "1;5C", "5C":
		e.moveWordRight()
	case "3;5~":
		e.deleteWordForward()
	}
}

func (e *lineEditor) insert(b byte) {
	if e.cursor == len(e.line) {
		e.line = append(e.line, b)
	} else {
		e.line = append(e.line, 0)
		copy(e.line[e.cursor+1:], e.line[e.cursor:])
		e.line[e.cursor] = b
	}
	e.cursor++
	e.redraw()
}

func (e *lineEditor) historyUp() {
	h := *e.history
	if len(h) == 0 {
		return
	}
	if !e.histBrowsing {
		e.histDraft = string(e.line)
		e.histBrowsing = true
		e.histPos = len(h)
	}
	if e.histPos > 0 {
		e.histPos--
		e.line = append(e.line[:0], h[e.histPos]...)
		e.cursor = len(e.line)
		e.redraw()
	}
}

func (e *lineEditor) historyDown() {
	if !e.histBrowsing {
		return
	}
	h := *e.history
	if e.histPos < len(h)-1 {
		e.histPos++
		e.line = append(e.line[:0], h[e.histPos]...)
	} else {
		e.histPos = len(h)
		e.line = append(e.line[:0], e.histDraft...)
		e.histBrowsing = false
	}
	e.cursor = len(e.line)
	e.redraw()
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t'
}

func (e *lineEditor) moveWordLeft() {
	if e.cursor == 0 {
		return
	}
	e.cursor = e.wordStart(e.cursor)
	e.redraw()
}

func (e *lineEditor) moveWordRight() {
	if e.cursor >= len(e.line) {
		return
	}
	e.cursor = e.wordEnd(e.cursor)
	e.redraw()
}

func (e *lineEditor) deleteWordBack() {
	if e.cursor == 0 {
		return
	}
	start := e.wordStart(e.cursor)
	e.line = append(e.line[:start], e.line[e.cursor:]...)
	e.cursor = start
	e.redraw()
}

func (e *lineEditor) deleteWordForward() {
	if e.cursor >= len(e.line) {
		return
	}
	end := e.wordEnd(e.cursor)
	e.line = append(e.line[:e.cursor], e.line[end:]...)
	e.redraw()
}

func (e *lineEditor) wordStart(i int) int {
	for i > 0 && isSpace(e.line[i-1]) {
		i--
	}
	for i > 0 && !isSpace(e.line[i-1]) {
		i--
	}
	return i
}

func (e *lineEditor) wordEnd(i int) int {
	for i < len(e.line) && isSpace(e.line[i]) {
		i++
	}
	for i < len(e.line) && !isSpace(e.line[i]) {
		i++
	}
	return i
}

func (e *lineEditor) redraw() {
	_, _ = fmt.Fprintf(e.out, "\r%s%s\x1b[K", e.prompt, e.line)
	if e.cursor < len(e.line) {
		_, _ = fmt.Fprintf(e.out, "\r%s%s", e.prompt, e.line[:e.cursor])
	}
}
