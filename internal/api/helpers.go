package api

import (
	"io"
	"net/http"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/labstack/echo/v5"
)

func writeBadRequest(c *echo.Context, msg string) error {
	return writeError(c, http.StatusBadRequest, "invalid_request_error", msg)
}

func writeError(c *echo.Context, status int, errType, msg string) error {
	return c.JSON(status, map[string]any{
		"error": ErrorBody{
			Message: msg,
			Type:    errType,
		},
	})
}

func decodeJSON[T any](r io.Reader) (T, error) {
	var out T
	dec := json.NewDecoder(r)
	if err := dec.Decode(&out); err != nil {
		return out, err
	}
	return out, nil
}

func decodeTurnRequest(r io.Reader) (TurnRequest, error) {
	req, err := decodeJSON[TurnRequest](r)
	if err != nil {
		return req, newInvalidRequest("invalid JSON body: " + err.Error())
	}
	if strings.TrimSpace(req.Text) == "" {
		return req, newInvalidRequest("text is required and must not be empty")
	}
	return req, nil
}
