package inference

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/samcharles93/rai/internal/logits"
)

// Model is the per-token forward pass the Generator drives.
type Model interface {
	ForwardToken(id int) ([]float32, error)
	Reset()
}

// Generator runs the token loop for one model. It remembers the tokens
// already fed so a prompt that extends the previous one only pays for the
// new suffix.
type Generator struct {
	Model     Model
	Sampler   *logits.Sampler
	Tokenizer interface {
		Decode([]int) (string, error)
	}
	ContextTokens []int
	StopTokens    []int
}

// Run feeds allTokens, then samples up to steps tokens (negative means no
// limit), decoding each into a token event for stream.
func (g *Generator) Run(ctx context.Context, allTokens []int, steps int, stream StreamFunc) (*Result, error) {
	res := &Result{}
	start := time.Now()
	defer res.Stats.finish(start)

	if len(allTokens) == 0 {
		return nil, fmt.Errorf("empty prompt")
	}
	if len(allTokens) < len(g.ContextTokens) || !slices.Equal(g.ContextTokens, allTokens[:len(g.ContextTokens)]) {
		if err := safeReset(g.Model); err != nil {
			return nil, err
		}
		g.ContextTokens = g.ContextTokens[:0]
	}

	newTokens := allTokens[len(g.ContextTokens):]
	if len(newTokens) == 0 {
		// Already consumed; replay the prompt to get logits for the next step.
		if err := safeReset(g.Model); err != nil {
			return nil, err
		}
		g.ContextTokens = g.ContextTokens[:0]
		newTokens = allTokens
	}
	res.Stats.PromptTokens = len(allTokens)

	var (
		logitsVec []float32
		err       error
	)
	for _, id := range newTokens {
		logitsVec, err = safeForward(g.Model, id)
		if err != nil {
			return nil, fmt.Errorf("forward error during prefill: %w", err)
		}
	}
	g.ContextTokens = append(g.ContextTokens, newTokens...)

	limit := steps
	if limit < 0 {
		limit = 1 << 30
	}

	for i := 0; i < limit; i++ {
		if err := ctx.Err(); err != nil {
			stream(Event{Kind: EventAborted, Err: err})
			return res, nil
		}

		next, err := safeSample(g.Sampler, logitsVec, g.ContextTokens, g.StopTokens)
		if err != nil {
			return nil, err
		}
		if slices.Contains(g.StopTokens, next) {
			break
		}
		g.ContextTokens = append(g.ContextTokens, next)
		res.Stats.TokensGenerated++

		text, err := g.Tokenizer.Decode([]int{next})
		if err != nil {
			return nil, fmt.Errorf("decode token %d: %w", next, err)
		}
		if stream(Event{Kind: EventToken, Text: text}) == Halt {
			res.Halted = true
			return res, nil
		}

		logitsVec, err = safeForward(g.Model, next)
		if err != nil {
			return nil, fmt.Errorf("forward error during generation step %d: %w", i, err)
		}
	}

	stream(Event{Kind: EventEnd})
	return res, nil
}

func safeForward(m Model, id int) (out []float32, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic in ForwardToken: %v", rec)
		}
	}()
	return m.ForwardToken(id)
}

func safeSample(s *logits.Sampler, vec []float32, recent, exclude []int) (id int, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic in Sample: %v", rec)
		}
	}()
	return s.Sample(vec, recent, exclude), nil
}

func safeReset(m Model) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic in Reset: %v", rec)
		}
	}()
	m.Reset()
	return nil
}
