package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestStreamWriterTrimsLikeStoredReply(t *testing.T) {
	t.Parallel()

	for _, mode := range []StreamMode{StreamInstant, StreamTypewriter, StreamSmooth, StreamQuiet} {
		var buf bytes.Buffer
		w := NewStreamWriter(&buf, mode, false)
		for _, d := range []string{" ", " Sure", ",", " Hugo", ".", "\n", " "} {
			w.Write(d)
		}
		shown := w.Close()
		if shown != "Sure, Hugo." {
			t.Fatalf("%s: shown = %q", mode, shown)
		}
		if buf.String() != "Sure, Hugo." {
			t.Fatalf("%s: output = %q", mode, buf.String())
		}
	}
}

func TestStreamWriterKeepsInnerWhitespace(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	w := NewStreamWriter(&buf, StreamInstant, false)
	w.Write("line one\n")
	if buf.String() != "line one" {
		t.Fatalf("trailing newline should be held, got %q", buf.String())
	}
	w.Write("line two")
	w.Close()
	if buf.String() != "line one\nline two" {
		t.Fatalf("unexpected output %q", buf.String())
	}
}

func TestStreamWriterQuietPrintsOnClose(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	w := NewStreamWriter(&buf, StreamQuiet, false)
	w.Write("hello")
	if buf.Len() != 0 {
		t.Fatalf("quiet mode wrote early: %q", buf.String())
	}
	w.Close()
	if buf.String() != "hello" {
		t.Fatalf("unexpected output %q", buf.String())
	}
}

func TestStreamWriterRawOutput(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	w := NewStreamWriter(&buf, StreamInstant, true)
	w.Write("a\tb\\c\x01")
	w.Write("d")
	w.Close()
	if got, want := buf.String(), `a\tb\\c\u0001d`; got != want {
		t.Fatalf("raw output = %q, want %q", got, want)
	}
}

func TestStreamWriterCloseTwice(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	w := NewStreamWriter(&buf, StreamSmooth, false)
	w.Write(strings.Repeat("word ", 3))
	w.Close()
	w.Close()
	if buf.String() != "word word word" {
		t.Fatalf("unexpected output %q", buf.String())
	}
}
