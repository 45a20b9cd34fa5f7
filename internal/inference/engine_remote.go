package inference

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"github.com/samcharles93/rai/internal/logger"
)

// RemoteEngine streams completions from an OpenAI-compatible server, such
// as llama.cpp's server or vLLM, over Server-Sent Events.
type RemoteEngine struct {
	client   *http.Client
	endpoint string
	model    string
	log      logger.Logger
}

type completionRequest struct {
	Model         string  `json:"model,omitempty"`
	Prompt        string  `json:"prompt"`
	Stream        bool    `json:"stream"`
	MaxTokens     int     `json:"max_tokens,omitempty"`
	Temperature   float64 `json:"temperature"`
	TopK          int     `json:"top_k,omitempty"`
	TopP          float64 `json:"top_p,omitempty"`
	MinP          float64 `json:"min_p,omitempty"`
	RepeatPenalty float64 `json:"repeat_penalty,omitempty"`
	Seed          *int64  `json:"seed,omitempty"`
}

type completionChunk struct {
	Choices []struct {
		Text         string  `json:"text"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// NewRemoteEngine targets baseURL. A URL that already ends in /completions
// is used as is; otherwise /v1/completions is appended.
func NewRemoteEngine(baseURL, model string, client *http.Client, log logger.Logger) *RemoteEngine {
	if client == nil {
		client = &http.Client{}
	}
	if log == nil {
		log = logger.Discard()
	}
	endpoint := strings.TrimRight(baseURL, "/")
	if !strings.HasSuffix(endpoint, "/completions") {
		endpoint += "/v1/completions"
	}
	return &RemoteEngine{
		client:   client,
		endpoint: endpoint,
		model:    model,
		log:      log.With("engine", "remote", "endpoint", endpoint),
	}
}

func (e *RemoteEngine) Endpoint() string {
	return e.endpoint
}

func (e *RemoteEngine) Generate(ctx context.Context, req *Request, stream StreamFunc) (*Result, error) {
	if ctx == nil {
		return nil, fmt.Errorf("context is required")
	}
	if req == nil {
		return nil, fmt.Errorf("request is required")
	}
	if stream == nil {
		return nil, fmt.Errorf("stream callback is required")
	}

	body := completionRequest{
		Model:         e.model,
		Prompt:        req.Prompt,
		Stream:        true,
		MaxTokens:     req.MaxTokens,
		Temperature:   req.Temperature,
		TopK:          req.TopK,
		TopP:          req.TopP,
		MinP:          req.MinP,
		RepeatPenalty: req.RepeatPenalty,
	}
	if body.MaxTokens < 0 {
		body.MaxTokens = 0
	}
	if req.Rand != nil {
		seed := req.Rand.Int63()
		body.Seed = &seed
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode completion request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build completion request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")

	res := &Result{}
	start := time.Now()
	defer res.Stats.finish(start)

	resp, err := e.client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			stream(Event{Kind: EventAborted, Err: ctx.Err()})
			return res, nil
		}
		return nil, fmt.Errorf("completion request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("completion request: %s: %s", resp.Status, strings.TrimSpace(string(msg)))
	}

	events := newSSEReader(resp.Body)
	for events.Next() {
		data := events.Data()
		if data == "[DONE]" {
			stream(Event{Kind: EventEnd})
			return res, nil
		}

		var chunk completionChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			return nil, fmt.Errorf("decode completion chunk: %w", err)
		}
		if chunk.Error != nil {
			return nil, fmt.Errorf("completion stream: %s", chunk.Error.Message)
		}
		for _, choice := range chunk.Choices {
			if choice.Text == "" {
				continue
			}
			res.Stats.TokensGenerated++
			if stream(Event{Kind: EventToken, Text: choice.Text}) == Halt {
				res.Halted = true
				e.log.Debug("generation halted by caller", "tokens", res.Stats.TokensGenerated)
				return res, nil
			}
		}
	}

	if ctx.Err() != nil {
		stream(Event{Kind: EventAborted, Err: ctx.Err()})
		return res, nil
	}
	if err := events.Err(); err != nil {
		return nil, fmt.Errorf("read completion stream: %w", err)
	}
	// Some servers close the stream without a [DONE] marker.
	stream(Event{Kind: EventEnd})
	return res, nil
}

func (e *RemoteEngine) Close() error {
	e.client.CloseIdleConnections()
	return nil
}
