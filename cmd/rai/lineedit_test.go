package main

import (
	"errors"
	"io"
	"testing"
)

func feedAll(t *testing.T, e *lineEditor, input string) (bool, error) {
	t.Helper()
	for i := 0; i < len(input); i++ {
		done, err := e.feed(input[i])
		if done || err != nil {
			return done, err
		}
	}
	return false, nil
}

func TestLineEditorEditing(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "hello\r", "hello"},
		{"backspace", "helo\x7f\x7flo\r", "hello"},
		{"insert after cursor moves", "hllo\x01\x1b[Ce\r", "hello"},
		{"ctrl-w deletes word", "hello world\x17there\r", "hello there"},
		{"delete key", "hxello\x01\x1b[C\x1b[3~\r", "hello"},
		{"alt-b then insert", "big world\x1bbold \r", "big old world"},
		{"ctrl-e returns to end", "ab\x01\x05c\r", "abc"},
		{"ctrl-right word jump", "one two\x01\x1b[1;5C!\r", "one! two"},
		{"ctrl-delete deletes word ahead", "one two three\x01\x1b[1;5C\x1b[3;5~\r", "one three"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			var history []string
			e := newLineEditor(io.Discard, "> ", &history)
			done, err := feedAll(t, e, tc.input)
			if err != nil || !done {
				t.Fatalf("expected submitted line, done=%v err=%v", done, err)
			}
			if got := e.text(); got != tc.want {
				t.Fatalf("text = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestLineEditorHistory(t *testing.T) {
	t.Parallel()

	history := []string{"first", "second"}
	e := newLineEditor(io.Discard, "> ", &history)
	if _, err := feedAll(t, e, "dra\x1b[A\x1b[A"); err != nil {
		t.Fatal(err)
	}
	if e.text() != "first" {
		t.Fatalf("expected oldest entry, got %q", e.text())
	}
	if _, err := feedAll(t, e, "\x1b[B\x1b[B"); err != nil {
		t.Fatal(err)
	}
	if e.text() != "dra" {
		t.Fatalf("expected draft restored, got %q", e.text())
	}
	if _, err := feedAll(t, e, "ft\r"); err != nil {
		t.Fatal(err)
	}
	if len(history) != 3 || history[2] != "draft" {
		t.Fatalf("expected submitted line in history, got %v", history)
	}
}

func TestLineEditorExitKeys(t *testing.T) {
	t.Parallel()

	var history []string
	e := newLineEditor(io.Discard, "> ", &history)
	if _, err := feedAll(t, e, "\x04"); !errors.Is(err, io.EOF) {
		t.Fatalf("ctrl-d on empty line should be EOF, got %v", err)
	}

	e = newLineEditor(io.Discard, "> ", &history)
	if _, err := feedAll(t, e, "x\x04"); err != nil {
		t.Fatalf("ctrl-d with text should be ignored, got %v", err)
	}
	if _, err := feedAll(t, e, "\x03"); !errors.Is(err, io.EOF) {
		t.Fatalf("ctrl-c should be EOF, got %v", err)
	}
	if len(history) != 0 {
		t.Fatalf("abandoned lines must not enter history: %v", history)
	}
}

func TestTrimTrailingNewline(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]string{"a\r\n": "a", "a\n": "a", "a": "a", "\n": ""} {
		if got := trimTrailingNewline(in); got != want {
			t.Errorf("trimTrailingNewline(%q) = %q, want %q", in, got, want)
		}
	}
}
