package inference

import "math/rand"

// Options holds generation settings where nil means "use the default".
type Options struct {
	MaxTokens *int

	Temperature   *float64
	TopK          *int
	TopP          *float64
	MinP          *float64
	RepeatPenalty *float64
	RepeatLastN   *int
}

const DefaultMaxTokens = 256

// ResolveRequest fills a Request for prompt from opts and built-in defaults.
func ResolveRequest(prompt string, opts Options, rng *rand.Rand) Request {
	req := Request{
		Prompt:        prompt,
		MaxTokens:     DefaultMaxTokens,
		Temperature:   0.8,
		TopK:          40,
		TopP:          0.95,
		MinP:          0.05,
		RepeatPenalty: 1.1,
		RepeatLastN:   64,
		Rand:          rng,
	}

	if opts.MaxTokens != nil {
		req.MaxTokens = *opts.MaxTokens
	}
	if opts.Temperature != nil {
		req.Temperature = *opts.Temperature
	}
	if opts.TopK != nil {
		req.TopK = *opts.TopK
	}
	if opts.TopP != nil && *opts.TopP > 0 && *opts.TopP <= 1 {
		req.TopP = *opts.TopP
	}
	if opts.MinP != nil {
		req.MinP = *opts.MinP
	}
	if opts.RepeatPenalty != nil && *opts.RepeatPenalty > 0 {
		req.RepeatPenalty = *opts.RepeatPenalty
	}
	if opts.RepeatLastN != nil {
		req.RepeatLastN = *opts.RepeatLastN
	}

	return req
}
