package agent

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/samcharles93/rai/internal/conversation"
	"github.com/samcharles93/rai/internal/inference"
	"github.com/samcharles93/rai/internal/toy"
)

// scriptedEngine replays fixed chunk lists, one per call.
type scriptedEngine struct {
	replies  [][]string
	err      error
	abort    bool
	prompts  []string
	consumed []int
	closed   bool
}

func (e *scriptedEngine) Generate(ctx context.Context, req *inference.Request, stream inference.StreamFunc) (*inference.Result, error) {
	e.prompts = append(e.prompts, req.Prompt)
	if e.err != nil {
		return nil, e.err
	}
	if e.abort {
		stream(inference.Event{Kind: inference.EventAborted, Err: context.Canceled})
		return &inference.Result{}, nil
	}
	chunks := e.replies[len(e.prompts)-1]
	for i, c := range chunks {
		if stream(inference.Event{Kind: inference.EventToken, Text: c}) == inference.Halt {
			e.consumed = append(e.consumed, i+1)
			return &inference.Result{Halted: true}, nil
		}
	}
	e.consumed = append(e.consumed, len(chunks))
	stream(inference.Event{Kind: inference.EventEnd})
	return &inference.Result{}, nil
}

func (e *scriptedEngine) Close() error {
	e.closed = true
	return nil
}

func TestGreetUsesPurposeOnlyPrompt(t *testing.T) {
	t.Parallel()

	eng := &scriptedEngine{replies: [][]string{{"Hello", ".", "\n", "Human"}}}
	s := New(eng, WithPurpose("Answer questions."), WithSeed(1))

	reply, err := s.Greet(context.Background(), nil)
	if err != nil {
		t.Fatalf("greet: %v", err)
	}
	if reply != "Hello." {
		t.Fatalf("reply got %q", reply)
	}

	want := "A chat between a Human and an AI.\nHuman:Answer questions.\n\nAI:"
	if eng.prompts[0] != want {
		t.Fatalf("prompt got %q want %q", eng.prompts[0], want)
	}

	msgs := s.Messages()
	if len(msgs) != 1 || msgs[0].Speaker != conversation.Agent || msgs[0].Text != "Hello." {
		t.Fatalf("unexpected conversation: %+v", msgs)
	}

	again, err := s.Greet(context.Background(), nil)
	if err != nil || again != "Hello." || len(eng.prompts) != 1 {
		t.Fatalf("second greet should be a no-op: reply=%q err=%v calls=%d", again, err, len(eng.prompts))
	}
}

func TestPromptStopsAtSplitMarker(t *testing.T) {
	t.Parallel()

	eng := &scriptedEngine{replies: [][]string{
		{" Sure", ",", " Hugo", ".", "\n", "Hu", "man", ":", "ignored"},
	}}
	s := New(eng, WithStopMarker("Human:"))

	var deltas []string
	reply, err := s.Prompt(context.Background(), "hi\n", func(d string) { deltas = append(deltas, d) })
	if err != nil {
		t.Fatalf("prompt: %v", err)
	}
	if reply != "Sure, Hugo." {
		t.Fatalf("reply got %q", reply)
	}
	if eng.consumed[0] != 8 {
		t.Fatalf("engine should stop at the marker, consumed %d chunks", eng.consumed[0])
	}
	if joined := strings.Join(deltas, ""); joined != " Sure, Hugo.\n" {
		t.Fatalf("deltas got %q", joined)
	}
	for _, d := range deltas {
		if strings.Contains(d, "Hu") && !strings.Contains(d, "Hugo") {
			t.Fatalf("marker prefix leaked in delta %q", d)
		}
	}

	if !strings.Contains(eng.prompts[0], "\nAI:hi\n") {
		t.Fatalf("user message not rendered under agent label: %q", eng.prompts[0])
	}
}

func TestPromptImmediateMarkerYieldsEmptyReply(t *testing.T) {
	t.Parallel()

	eng := &scriptedEngine{replies: [][]string{{"Human"}}}
	s := New(eng)

	reply, err := s.Prompt(context.Background(), "hello", nil)
	if err != nil {
		t.Fatalf("prompt: %v", err)
	}
	if reply != "" {
		t.Fatalf("expected empty reply, got %q", reply)
	}
	if got := s.Messages(); len(got) != 2 || got[1].Text != "" {
		t.Fatalf("unexpected conversation: %+v", got)
	}
}

func TestPromptFlushesPendingOnEnd(t *testing.T) {
	t.Parallel()

	eng := &scriptedEngine{replies: [][]string{{"Bye", " ", "Hum"}}}
	s := New(eng)

	reply, err := s.Prompt(context.Background(), "go", nil)
	if err != nil {
		t.Fatalf("prompt: %v", err)
	}
	if reply != "Bye Hum" {
		t.Fatalf("reply got %q", reply)
	}
}

func TestPromptStoresMatcherTextVerbatim(t *testing.T) {
	t.Parallel()

	eng := &scriptedEngine{replies: [][]string{
		{" Write ", "<think>", " to open a block and ", "</s>", " to close.\n", "Human"},
	}}
	s := New(eng)

	var deltas []string
	reply, err := s.Prompt(context.Background(), "markup?", func(d string) { deltas = append(deltas, d) })
	if err != nil {
		t.Fatalf("prompt: %v", err)
	}
	want := "Write <think> to open a block and </s> to close."
	if reply != want {
		t.Fatalf("reply got %q want %q", reply, want)
	}
	if got := strings.TrimSpace(strings.Join(deltas, "")); got != want {
		t.Fatalf("trimmed deltas got %q want %q", got, want)
	}
	last, ok := s.Last()
	if !ok || last.Speaker != conversation.Agent || last.Text != want {
		t.Fatalf("stored reply got %+v", last)
	}
}

func TestPromptDropsInputLineEnding(t *testing.T) {
	t.Parallel()

	eng := &scriptedEngine{replies: [][]string{{"ok", "Human"}}}
	s := New(eng)

	if _, err := s.Prompt(context.Background(), "hi\r\n", nil); err != nil {
		t.Fatalf("prompt: %v", err)
	}
	if got := s.Messages()[0].Text; got != "hi" {
		t.Fatalf("stored input got %q", got)
	}
	if !strings.HasSuffix(eng.prompts[0], "\nAI:hi\n\nAI:") {
		t.Fatalf("prompt layout got %q", eng.prompts[0])
	}
}

func TestPromptTurnReportsUserTurn(t *testing.T) {
	t.Parallel()

	eng := &scriptedEngine{replies: [][]string{
		{"Hello", "Human"},
		{"r1", "Human"},
		{"r2", "Human"},
	}}
	s := New(eng)
	if _, err := s.Greet(context.Background(), nil); err != nil {
		t.Fatalf("greet: %v", err)
	}

	for want := 1; want <= 2; want++ {
		_, turn, err := s.PromptTurn(context.Background(), "q", nil)
		if err != nil {
			t.Fatalf("turn %d: %v", want, err)
		}
		if turn != want {
			t.Fatalf("turn got %d want %d", turn, want)
		}
	}

	eng.err = errors.New("down")
	if _, turn, err := s.PromptTurn(context.Background(), "q", nil); err == nil || turn != 0 {
		t.Fatalf("failed turn got turn=%d err=%v", turn, err)
	}
}

func TestFailedTurnLeavesConversationUntouched(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	eng := &scriptedEngine{replies: [][]string{{"Hi", "Human"}}}
	s := New(eng)
	if _, err := s.Prompt(context.Background(), "first", nil); err != nil {
		t.Fatalf("prompt: %v", err)
	}
	before := s.Messages()

	eng.err = boom
	if _, err := s.Prompt(context.Background(), "second", nil); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped engine error, got %v", err)
	}

	eng.err = nil
	eng.abort = true
	if _, err := s.Prompt(context.Background(), "third", nil); !errors.Is(err, ErrTurnAborted) || !errors.Is(err, context.Canceled) {
		t.Fatalf("expected ErrTurnAborted wrapping context.Canceled, got %v", err)
	}

	after := s.Messages()
	if len(after) != len(before) {
		t.Fatalf("conversation changed: before=%d after=%d", len(before), len(after))
	}
	for i := range before {
		if before[i] != after[i] {
			t.Fatalf("message %d changed: %+v -> %+v", i, before[i], after[i])
		}
	}
}

func TestPromptRejectsBlankInput(t *testing.T) {
	t.Parallel()

	eng := &scriptedEngine{}
	s := New(eng)
	if _, err := s.Prompt(context.Background(), "  \n", nil); !errors.Is(err, ErrEmptyPrompt) {
		t.Fatalf("expected ErrEmptyPrompt, got %v", err)
	}
	if len(eng.prompts) != 0 {
		t.Fatal("engine called for blank input")
	}
}

func TestTurnsAppendInCallOrder(t *testing.T) {
	t.Parallel()

	eng := &scriptedEngine{replies: [][]string{
		{"r1", "Human"},
		{"r2", "Human"},
		{"r3", "Human"},
	}}
	s := New(eng)

	inputs := []string{"u1", "u2", "u3"}
	for _, in := range inputs {
		if _, err := s.Prompt(context.Background(), in, nil); err != nil {
			t.Fatalf("prompt %q: %v", in, err)
		}
	}

	msgs := s.Messages()
	if len(msgs) != 2*len(inputs) {
		t.Fatalf("got %d messages", len(msgs))
	}
	for i, in := range inputs {
		u, a := msgs[2*i], msgs[2*i+1]
		if u.Speaker != conversation.User || u.Text != in {
			t.Fatalf("entry %d: %+v", 2*i, u)
		}
		if a.Speaker != conversation.Agent || a.Text != "r"+in[1:] {
			t.Fatalf("entry %d: %+v", 2*i+1, a)
		}
	}

	// Each prompt extends the previous transcript.
	for i := 1; i < len(eng.prompts); i++ {
		prev := strings.TrimSuffix(eng.prompts[i-1], "\nAI:")
		if !strings.HasPrefix(eng.prompts[i], prev) {
			t.Fatalf("prompt %d does not extend prompt %d", i, i-1)
		}
	}
}

func TestStopMarkerDefaultsToUserLabel(t *testing.T) {
	t.Parallel()

	s := New(&scriptedEngine{})
	if s.StopMarker() != "Human" {
		t.Fatalf("default marker got %q", s.StopMarker())
	}

	s = New(&scriptedEngine{}, WithLabels(conversation.Labels{User: "Q"}))
	if s.StopMarker() != "Q" || s.Labels().Agent != "AI" {
		t.Fatalf("labels/marker got %+v %q", s.Labels(), s.StopMarker())
	}

	s = New(&scriptedEngine{}, WithStopMarker(""))
	if s.StopMarker() != "" {
		t.Fatalf("explicit empty marker not kept: %q", s.StopMarker())
	}
}

func TestCloseReleasesEngine(t *testing.T) {
	t.Parallel()

	eng := &scriptedEngine{}
	s := New(eng)
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if !eng.closed {
		t.Fatal("engine not closed")
	}
	if _, err := s.Prompt(context.Background(), "hi", nil); err == nil {
		t.Fatal("expected error after close")
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
}

func TestSessionWithLocalEngine(t *testing.T) {
	t.Parallel()

	m, err := toy.Train(strings.Repeat("Human:hi\nAI:hello\n", 4), 3)
	if err != nil {
		t.Fatalf("train: %v", err)
	}
	zero := 0.0
	maxTokens := 16
	s := New(inference.NewLocalEngine(m, nil),
		WithSeed(7),
		WithOptions(inference.Options{Temperature: &zero, MaxTokens: &maxTokens}),
	)

	reply, err := s.Greet(context.Background(), nil)
	if err != nil {
		t.Fatalf("greet: %v", err)
	}
	if reply != "hello" {
		t.Fatalf("greeting got %q", reply)
	}

	reply, err = s.Prompt(context.Background(), "hi", nil)
	if err != nil {
		t.Fatalf("prompt: %v", err)
	}
	if strings.Contains(reply, "Human") {
		t.Fatalf("reply contains the stop marker: %q", reply)
	}
	if n := len(s.Messages()); n != 3 {
		t.Fatalf("expected 3 messages, got %d", n)
	}
}
