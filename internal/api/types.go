package api

import "github.com/samcharles93/rai/internal/conversation"

// TurnRequest is the body of POST /v1/turns.
type TurnRequest struct {
	Text   string `json:"text"`
	Stream bool   `json:"stream,omitempty"`
}

type TurnResponse struct {
	SessionID string `json:"session_id"`
	Turn      int    `json:"turn"`
	Reply     string `json:"reply"`
}

type ConversationResponse struct {
	SessionID string                 `json:"session_id"`
	Purpose   string                 `json:"purpose"`
	Messages  []conversation.Message `json:"messages"`
}

type HealthResponse struct {
	Status    string `json:"status"`
	SessionID string `json:"session_id"`
	Time      int64  `json:"time"`
}

type ErrorBody struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

type streamDelta struct {
	Delta string `json:"delta"`
}

type streamFinal struct {
	Reply string `json:"reply"`
	Turn  int    `json:"turn"`
}

type streamError struct {
	Error ErrorBody `json:"error"`
}
