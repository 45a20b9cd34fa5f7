package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v5"

	"github.com/samcharles93/rai/internal/agent"
	"github.com/samcharles93/rai/internal/conversation"
	"github.com/samcharles93/rai/internal/logger"
)

// Session is the conversation the server exposes. *agent.Session satisfies it.
type Session interface {
	ID() string
	Purpose() string
	Messages() []conversation.Message
	Transcript() string
	PromptTurn(ctx context.Context, text string, onDelta agent.DeltaFunc) (string, int, error)
}

// Server serves a single session over HTTP.
type Server struct {
	session Session
	log     logger.Logger
	clock   func() time.Time
}

func NewServer(session Session, log logger.Logger) *Server {
	if log == nil {
		log = logger.Discard()
	}
	return &Server{
		session: session,
		log:     log.With("session", session.ID()),
		clock:   time.Now,
	}
}

func (s *Server) Register(e *echo.Echo) {
	e.GET("/healthz", s.handleHealth)
	e.GET("/v1/conversation", s.handleConversation)
	e.GET("/v1/transcript", s.handleTranscript)
	e.POST("/v1/turns", s.handleTurn)
}

func (s *Server) handleHealth(c *echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{
		Status:    "ok",
		SessionID: s.session.ID(),
		Time:      s.clock().Unix(),
	})
}

func (s *Server) handleConversation(c *echo.Context) error {
	return c.JSON(http.StatusOK, ConversationResponse{
		SessionID: s.session.ID(),
		Purpose:   s.session.Purpose(),
		Messages:  s.session.Messages(),
	})
}

func (s *Server) handleTranscript(c *echo.Context) error {
	return c.String(http.StatusOK, s.session.Transcript())
}

func (s *Server) handleTurn(c *echo.Context) error {
	req, err := decodeTurnRequest(c.Request().Body)
	if err != nil {
		return writeBadRequest(c, err.Error())
	}
	if req.Stream {
		return s.handleTurnStream(c, req)
	}

	reply, turn, err := s.session.PromptTurn(c.Request().Context(), req.Text, nil)
	if err != nil {
		status, errType := classifyTurnError(err)
		s.log.Warn("turn failed", "error", err)
		return writeError(c, status, errType, err.Error())
	}
	return c.JSON(http.StatusOK, TurnResponse{
		SessionID: s.session.ID(),
		Turn:      turn,
		Reply:     reply,
	})
}

func (s *Server) handleTurnStream(c *echo.Context, req TurnRequest) error {
	stream, err := NewSSEStreamWriter(c)
	if err != nil {
		return writeError(c, http.StatusInternalServerError, "server_error", err.Error())
	}

	reply, turn, err := s.session.PromptTurn(c.Request().Context(), req.Text, stream.EmitDelta)
	if err != nil {
		s.log.Warn("streamed turn failed", "error", err)
		if !stream.Started() {
			status, errType := classifyTurnError(err)
			return writeError(c, status, errType, err.Error())
		}
		_, errType := classifyTurnError(err)
		return stream.Failed(errType, err)
	}
	if err := stream.Err(); err != nil {
		s.log.Debug("client stopped reading deltas", "error", err)
	}
	return stream.Complete(reply, turn)
}

func classifyTurnError(err error) (int, string) {
	switch {
	case errors.Is(err, agent.ErrEmptyPrompt):
		return http.StatusBadRequest, "invalid_request_error"
	case errors.Is(err, agent.ErrTurnAborted):
		return http.StatusServiceUnavailable, "aborted"
	default:
		return http.StatusInternalServerError, "server_error"
	}
}
