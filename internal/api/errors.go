package api

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/bioscout/bioscout/internal/errors"
	"github.com/bioscout/bioscout/internal/feedback"
	"github.com/bioscout/bioscout/internal/logger"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error         string         `json:"error"`
	Message       string         `json:"message"`
	Level         feedback.Level `json:"level"`
	Code          int            `json:"code"`
	CorrelationID string         `json:"correlation_id"` // matches the server log entry
}

// NewErrorResponse creates a new API error response
func NewErrorResponse(err error, msg feedback.Message, code int) *ErrorResponse {
	errorStr := msg.Text
	if err != nil {
		errorStr = errors.ScrubMessage(err.Error())
	}
	level := msg.Level
	if level == "" {
		level = feedback.LevelError
	}
	return &ErrorResponse{
		Error:         errorStr,
		Message:       msg.Text,
		Level:         level,
		Code:          code,
		CorrelationID: uuid.NewString(),
	}
}

// StatusFor maps an error category to the HTTP status returned for it.
func StatusFor(err error) int {
	switch errors.CategoryOf(err) {
	case errors.CategoryValidation:
		return http.StatusBadRequest
	case errors.CategoryNotFound:
		return http.StatusNotFound
	case errors.CategoryNetwork, errors.CategoryResponseShape:
		return http.StatusBadGateway
	case errors.CategoryConfiguration:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// HandleError logs err and writes the user-visible message for op.
func (c *Controller) HandleError(ctx echo.Context, op feedback.Operation, err error) error {
	code := StatusFor(err)
	resp := NewErrorResponse(err, feedback.FromError(op, err), code)

	fields := []logger.Field{
		logger.String("correlation_id", resp.CorrelationID),
		logger.String("operation", string(op)),
		logger.String("category", string(errors.CategoryOf(err))),
		logger.Int("code", code),
		logger.String("path", ctx.Request().URL.Path),
		logger.String("method", ctx.Request().Method),
		logger.String("ip", ctx.RealIP()),
		logger.Error(err),
	}
	if code >= http.StatusInternalServerError {
		c.log.Error("API error", fields...)
	} else {
		c.log.Warn("API request rejected", fields...)
	}

	return ctx.JSON(code, resp)
}

// badRequest writes a validation failure that did not come from the service.
func (c *Controller) badRequest(ctx echo.Context, op feedback.Operation, text string) error {
	return c.HandleError(ctx, op, errors.ValidationError(text))
}
