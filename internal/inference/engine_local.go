package inference

import (
	"context"
	"fmt"

	"github.com/samcharles93/rai/internal/logger"
	"github.com/samcharles93/rai/internal/logits"
	"github.com/samcharles93/rai/internal/toy"
)

// LocalEngine generates in-process with a toy n-gram model.
type LocalEngine struct {
	model *toy.Model
	gen   *Generator
	log   logger.Logger
}

func NewLocalEngine(m *toy.Model, log logger.Logger) *LocalEngine {
	if log == nil {
		log = logger.Discard()
	}
	return &LocalEngine{
		model: m,
		gen: &Generator{
			Model:     m,
			Tokenizer: m.Vocab,
		},
		log: log.With("engine", "local"),
	}
}

func (e *LocalEngine) Generate(ctx context.Context, req *Request, stream StreamFunc) (*Result, error) {
	if ctx == nil {
		return nil, fmt.Errorf("context is required")
	}
	if req == nil {
		return nil, fmt.Errorf("request is required")
	}
	if stream == nil {
		return nil, fmt.Errorf("stream callback is required")
	}
	if err := ctx.Err(); err != nil {
		stream(Event{Kind: EventAborted, Err: err})
		return &Result{}, nil
	}

	ids := e.model.Vocab.Encode(req.Prompt)
	e.gen.Sampler = logits.NewSampler(logits.SamplerConfig{
		Temperature:   float32(req.Temperature),
		TopK:          req.TopK,
		TopP:          float32(req.TopP),
		MinP:          float32(req.MinP),
		RepeatPenalty: float32(req.RepeatPenalty),
		RepeatLastN:   req.RepeatLastN,
	}, req.Rand)

	res, err := e.gen.Run(ctx, ids, req.MaxTokens, stream)
	if err != nil {
		return nil, err
	}
	e.log.Debug("generation finished",
		"prompt_tokens", res.Stats.PromptTokens,
		"tokens", res.Stats.TokensGenerated,
		"halted", res.Halted,
		"tps", res.Stats.TPS,
	)
	return res, nil
}

func (e *LocalEngine) Close() error {
	return nil
}
