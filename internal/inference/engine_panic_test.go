package inference

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/samcharles93/rai/internal/logits"
)

type panicModel struct{}

func (panicModel) ForwardToken(int) ([]float32, error) {
	panic("boom")
}

func (panicModel) Reset() {}

type errOnSecondModel struct {
	calls int
}

func (m *errOnSecondModel) ForwardToken(int) ([]float32, error) {
	m.calls++
	if m.calls == 2 {
		return nil, errors.New("forced forward failure")
	}
	return []float32{1, 0}, nil
}

func (m *errOnSecondModel) Reset() {
	m.calls = 0
}

type digitTokenizer struct{}

func (digitTokenizer) Decode(ids []int) (string, error) {
	var b strings.Builder
	for _, id := range ids {
		b.WriteByte(byte('0' + id))
	}
	return b.String(), nil
}

func newGreedySampler() *logits.Sampler {
	return logits.NewSampler(logits.SamplerConfig{Temperature: 0}, nil)
}

func collect(events *[]Event) StreamFunc {
	return func(ev Event) Feedback {
		*events = append(*events, ev)
		return Continue
	}
}

func TestRunConvertsForwardPanicToError(t *testing.T) {
	t.Parallel()

	g := &Generator{Model: panicModel{}, Sampler: newGreedySampler(), Tokenizer: digitTokenizer{}}
	var events []Event
	_, err := g.Run(context.Background(), []int{1}, 1, collect(&events))
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "panic in ForwardToken") {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("no events expected on failure, got %v", events)
	}
}

func TestRunReturnsForwardError(t *testing.T) {
	t.Parallel()

	g := &Generator{Model: &errOnSecondModel{}, Sampler: newGreedySampler(), Tokenizer: digitTokenizer{}}
	var events []Event
	_, err := g.Run(context.Background(), []int{1}, 2, collect(&events))
	if err == nil {
		t.Fatalf("expected forward error")
	}
	if !strings.Contains(err.Error(), "forced forward failure") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRunConvertsSamplerPanicToError(t *testing.T) {
	t.Parallel()

	g := &Generator{Model: &errOnSecondModel{}, Sampler: nil, Tokenizer: digitTokenizer{}}
	var events []Event
	_, err := g.Run(context.Background(), []int{1}, 1, collect(&events))
	if err == nil {
		t.Fatalf("expected sampler error")
	}
	if !strings.Contains(err.Error(), "panic in Sample") {
		t.Fatalf("unexpected error: %v", err)
	}
}

type constModel struct {
	logits []float32
	fed    []int
	resets int
}

func (m *constModel) ForwardToken(id int) ([]float32, error) {
	m.fed = append(m.fed, id)
	return append([]float32(nil), m.logits...), nil
}

func (m *constModel) Reset() {
	m.resets++
	m.fed = m.fed[:0]
}

func TestRunEmitsTokensThenEnd(t *testing.T) {
	t.Parallel()

	g := &Generator{Model: &constModel{logits: []float32{0, 0, 5}}, Sampler: newGreedySampler(), Tokenizer: digitTokenizer{}}
	var events []Event
	res, err := g.Run(context.Background(), []int{1}, 3, collect(&events))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(events) != 4 {
		t.Fatalf("expected 3 tokens and an end event, got %v", events)
	}
	for _, ev := range events[:3] {
		if ev.Kind != EventToken || ev.Text != "2" {
			t.Fatalf("unexpected event %+v", ev)
		}
	}
	if events[3].Kind != EventEnd {
		t.Fatalf("expected end event, got %+v", events[3])
	}
	if res.Stats.TokensGenerated != 3 || res.Stats.PromptTokens != 1 || res.Halted {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestRunStopsOnStopToken(t *testing.T) {
	t.Parallel()

	g := &Generator{
		Model:      &constModel{logits: []float32{0, 0, 5}},
		Sampler:    newGreedySampler(),
		Tokenizer:  digitTokenizer{},
		StopTokens: []int{2},
	}
	var events []Event
	if _, err := g.Run(context.Background(), []int{1}, 5, collect(&events)); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(events) != 1 || events[0].Kind != EventEnd {
		t.Fatalf("expected only an end event, got %v", events)
	}
}

func TestRunHaltsWhenCallbackAsks(t *testing.T) {
	t.Parallel()

	g := &Generator{Model: &constModel{logits: []float32{5}}, Sampler: newGreedySampler(), Tokenizer: digitTokenizer{}}
	n := 0
	res, err := g.Run(context.Background(), []int{0}, -1, func(ev Event) Feedback {
		n++
		if n == 2 {
			return Halt
		}
		return Continue
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !res.Halted || n != 2 {
		t.Fatalf("expected halt after 2 events, got halted=%v n=%d", res.Halted, n)
	}
}

func TestRunReportsCancellationAsAbortedEvent(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	g := &Generator{Model: &constModel{logits: []float32{5}}, Sampler: newGreedySampler(), Tokenizer: digitTokenizer{}}
	var events []Event
	if _, err := g.Run(ctx, []int{0}, 4, collect(&events)); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(events) != 1 || events[0].Kind != EventAborted || !errors.Is(events[0].Err, context.Canceled) {
		t.Fatalf("expected a single aborted event, got %v", events)
	}
}

func TestRunReusesContextPrefix(t *testing.T) {
	t.Parallel()

	m := &constModel{logits: []float32{5}}
	g := &Generator{Model: m, Sampler: newGreedySampler(), Tokenizer: digitTokenizer{}}
	discard := func(Event) Feedback { return Continue }

	if _, err := g.Run(context.Background(), []int{0, 0}, 0, discard); err != nil {
		t.Fatalf("run: %v", err)
	}
	m.fed = m.fed[:0]
	if _, err := g.Run(context.Background(), []int{0, 0, 0}, 0, discard); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(m.fed) != 1 {
		t.Fatalf("expected only the new token to be fed, fed %v", m.fed)
	}

	if _, err := g.Run(context.Background(), []int{0}, 0, discard); err != nil {
		t.Fatalf("run: %v", err)
	}
	if m.resets == 0 {
		t.Fatal("expected reset on shorter prompt")
	}
}

func TestRunRejectsEmptyPrompt(t *testing.T) {
	t.Parallel()

	g := &Generator{Model: &constModel{logits: []float32{5}}, Sampler: newGreedySampler(), Tokenizer: digitTokenizer{}}
	if _, err := g.Run(context.Background(), nil, 1, func(Event) Feedback { return Continue }); err == nil {
		t.Fatal("expected error for empty prompt")
	}
}
