// Package agent runs conversational turns: it renders the transcript, drives
// the inference engine and assembles the reply with a stop-marker matcher.
package agent

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/samcharles93/rai/internal/conversation"
	"github.com/samcharles93/rai/internal/inference"
	"github.com/samcharles93/rai/internal/logger"
	"github.com/samcharles93/rai/internal/stopseq"
)

var (
	// ErrTurnAborted is returned when generation was cancelled before the
	// reply was complete. The conversation is left unchanged.
	ErrTurnAborted = errors.New("turn aborted")
	// ErrEmptyPrompt is returned for blank user input.
	ErrEmptyPrompt = errors.New("empty prompt")
)

// DeltaFunc receives reply text as soon as the matcher confirms it.
type DeltaFunc func(delta string)

// Session is one agent: a fixed purpose, the conversation it owns and the
// engine it generates with. Turns are serialized.
type Session struct {
	id      string
	purpose string
	labels  conversation.Labels
	marker  string
	custom  bool
	opts    inference.Options
	rng     *rand.Rand
	log     logger.Logger

	mu     sync.Mutex
	engine inference.Engine
	conv   *conversation.Conversation
}

// Option configures a Session.
type Option func(*Session)

// WithPurpose sets the purpose line. Blank purposes keep the default.
func WithPurpose(purpose string) Option {
	return func(s *Session) {
		if strings.TrimSpace(purpose) != "" {
			s.purpose = purpose
		}
	}
}

// WithLabels replaces the role labels. Empty fields keep their defaults.
func WithLabels(l conversation.Labels) Option {
	return func(s *Session) {
		if l.User != "" {
			s.labels.User = l.User
		}
		if l.Agent != "" {
			s.labels.Agent = l.Agent
		}
		if l.Persona != "" {
			s.labels.Persona = l.Persona
		}
	}
}

// WithStopMarker overrides the stop marker, which defaults to the user label.
func WithStopMarker(marker string) Option {
	return func(s *Session) {
		s.marker = marker
		s.custom = true
	}
}

func WithOptions(opts inference.Options) Option {
	return func(s *Session) {
		s.opts = opts
	}
}

// WithRand sets the sampling source. Without it the session seeds one from
// the clock.
func WithRand(rng *rand.Rand) Option {
	return func(s *Session) {
		s.rng = rng
	}
}

// WithSeed is WithRand over a fresh source seeded with seed.
func WithSeed(seed int64) Option {
	return WithRand(rand.New(rand.NewSource(seed)))
}

func WithLogger(log logger.Logger) Option {
	return func(s *Session) {
		if log != nil {
			s.log = log
		}
	}
}

// New creates a session that owns engine. Close releases it.
func New(engine inference.Engine, opts ...Option) *Session {
	s := &Session{
		id:      uuid.Must(uuid.NewV7()).String(),
		purpose: conversation.DefaultPurpose,
		labels:  conversation.DefaultLabels(),
		log:     logger.Discard(),
		engine:  engine,
		conv:    conversation.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if !s.custom {
		s.marker = s.labels.User
	}
	if s.rng == nil {
		s.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	s.log = s.log.With("session", s.id)
	return s
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) Purpose() string {
	return s.purpose
}

func (s *Session) Labels() conversation.Labels {
	return s.labels
}

func (s *Session) StopMarker() string {
	return s.marker
}

// Messages returns a copy of the conversation.
func (s *Session) Messages() []conversation.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conv.Messages()
}

// Last returns the most recent message.
func (s *Session) Last() (conversation.Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conv.Last()
}

// Transcript renders the prompt the next generation would see.
func (s *Session) Transcript() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conv.Render(s.purpose, s.labels)
}

// Greet generates the agent's opening message from the purpose alone and
// appends it. It is a no-op once the conversation has started.
func (s *Session) Greet(ctx context.Context, onDelta DeltaFunc) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conv.Len() > 0 {
		last, _ := s.conv.Last()
		return last.Text, nil
	}
	reply, err := s.generate(ctx, s.conv.Messages(), onDelta)
	if err != nil {
		return "", err
	}
	s.conv.Append(conversation.Message{Speaker: conversation.Agent, Text: reply})
	return reply, nil
}

// Prompt runs one turn for the user's text. The user message and the reply
// are appended together once the reply is final; on any error the
// conversation is left as it was.
func (s *Session) Prompt(ctx context.Context, text string, onDelta DeltaFunc) (string, error) {
	reply, _, err := s.PromptTurn(ctx, text, onDelta)
	return reply, err
}

// PromptTurn is Prompt that also reports the 1-based number of the user turn
// it completed, counted while the turn still holds the session.
func (s *Session) PromptTurn(ctx context.Context, text string, onDelta DeltaFunc) (string, int, error) {
	// The transcript terminates every line itself, so the line ending the
	// reader left on the input is not part of the message.
	text = strings.TrimRight(text, "\r\n")
	if strings.TrimSpace(text) == "" {
		return "", 0, ErrEmptyPrompt
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	userMsg := conversation.Message{Speaker: conversation.User, Text: text}
	staged := append(s.conv.Messages(), userMsg)

	reply, err := s.generate(ctx, staged, onDelta)
	if err != nil {
		return "", 0, err
	}
	s.conv.Append(userMsg, conversation.Message{Speaker: conversation.Agent, Text: reply})
	return reply, s.userTurns(), nil
}

// userTurns must be called with s.mu held.
func (s *Session) userTurns() int {
	n := 0
	for _, m := range s.conv.Messages() {
		if m.Speaker == conversation.User {
			n++
		}
	}
	return n
}

// Close releases the engine.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.engine == nil {
		return nil
	}
	err := s.engine.Close()
	s.engine = nil
	return err
}

// generate must be called with s.mu held.
func (s *Session) generate(ctx context.Context, msgs []conversation.Message, onDelta DeltaFunc) (string, error) {
	if s.engine == nil {
		return "", errors.New("session is closed")
	}
	prompt := conversation.Render(s.purpose, s.labels, msgs)
	req := inference.ResolveRequest(prompt, s.opts, s.rng)

	reply, res, err := Assemble(ctx, s.engine, &req, s.marker, onDelta)
	if err != nil {
		s.log.Warn("turn failed", "turn", len(msgs), "error", err)
		return "", err
	}
	s.log.Debug("turn complete",
		"turn", len(msgs),
		"prompt_tokens", res.Stats.PromptTokens,
		"tokens", res.Stats.TokensGenerated,
		"halted", res.Halted,
		"duration", res.Stats.Duration,
	)
	return strings.TrimSpace(reply), nil
}

// Assemble runs one generation through a fresh stop-marker matcher and
// returns the finalized reply. An aborted stream yields ErrTurnAborted.
func Assemble(ctx context.Context, engine inference.Engine, req *inference.Request, marker string, onDelta DeltaFunc) (string, *inference.Result, error) {
	m := stopseq.New(marker)
	if onDelta != nil {
		m.OnEmit(onDelta)
	}

	var aborted error
	res, err := engine.Generate(ctx, req, func(ev inference.Event) inference.Feedback {
		switch ev.Kind {
		case inference.EventToken:
			if m.Push(ev.Text) == stopseq.Halted {
				return inference.Halt
			}
		case inference.EventEnd:
			m.End()
		case inference.EventAborted:
			aborted = ev.Err
			if aborted == nil {
				aborted = context.Canceled
			}
			return inference.Halt
		}
		return inference.Continue
	})
	if err != nil {
		return "", nil, fmt.Errorf("generate: %w", err)
	}
	if aborted != nil {
		return "", nil, fmt.Errorf("%w: %w", ErrTurnAborted, aborted)
	}
	if res == nil {
		res = &inference.Result{}
	}
	if !m.State().Terminal() {
		// The engine returned without a terminal event; treat it as the end.
		m.End()
	}
	return m.Text(), res, nil
}
