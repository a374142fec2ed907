package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/shinyyama/support-chat/internal/reqctx"
	"github.com/shinyyama/support-chat/internal/service"
)

type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error errorPayload `json:"error"`
}

func NewErrorResponse(code, message string) ErrorResponse {
	return ErrorResponse{
		Error: errorPayload{
			Code:    code,
			Message: message,
		},
	}
}

// StatusOf translates a service outcome into an HTTP status.
func StatusOf(o service.Outcome) int {
	switch o {
	case service.OutcomeOK:
		return http.StatusOK
	case service.OutcomeNotFound:
		return http.StatusNotFound
	case service.OutcomeForbidden:
		return http.StatusForbidden
	case service.OutcomeInvalid:
		return http.StatusBadRequest
	case service.OutcomeConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeError is the single place service errors become HTTP responses.
// Internal errors are logged and their text is not exposed.
func writeError(c echo.Context, log zerolog.Logger, err error, what string) error {
	outcome := service.OutcomeOf(err)
	status := StatusOf(outcome)
	msg := err.Error()
	switch outcome {
	case service.OutcomeNotFound:
		msg = what + " not found"
	case service.OutcomeForbidden:
		msg = "you don't have access to this " + what
	case service.OutcomeInternal:
		reqctx.Logger(c.Request().Context(), log).Error().Err(err).
			Str("path", c.Path()).
			Str("id", c.Param("id")).
			Msg("request failed")
		msg = "failed to process " + what
	}
	return c.JSON(status, NewErrorResponse(outcome.String(), msg))
}

func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, NewErrorResponse("unauthorized", "missing uid"))
}
