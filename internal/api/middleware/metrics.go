package middleware

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// RequestRecorder records completed requests.
type RequestRecorder interface {
	RecordRequest(method, path string, statusCode int, seconds float64)
}

// NewRequestMetrics records method, route template, status and latency of
// every request.
func NewRequestMetrics(recorder RequestRecorder) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			status := c.Response().Status
			if err != nil {
				var httpErr *echo.HTTPError
				if errors.As(err, &httpErr) {
					status = httpErr.Code
				} else if !c.Response().Committed {
					status = http.StatusInternalServerError
				}
			}

			path := c.Path()
			if path == "" {
				path = "unmatched"
			}
			recorder.RecordRequest(c.Request().Method, path, status, time.Since(start).Seconds())
			return err
		}
	}
}
