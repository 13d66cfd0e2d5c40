package middleware

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
)

// rateLimitExpiry drops idle per-client limiters
const rateLimitExpiry = 3 * time.Minute

// RateLimitRecorder is told about rejected requests.
type RateLimitRecorder interface {
	RecordRateLimited(path string)
}

// NewRateLimiter limits requests per client IP to requestsPerMinute with the
// given burst. recorder may be nil.
func NewRateLimiter(requestsPerMinute, burst int, recorder RateLimitRecorder) echo.MiddlewareFunc {
	if burst <= 0 {
		burst = 1
	}
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Skipper: middleware.DefaultSkipper,
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(
			middleware.RateLimiterMemoryStoreConfig{
				Rate:      rate.Limit(float64(requestsPerMinute) / time.Minute.Seconds()),
				Burst:     burst,
				ExpiresIn: rateLimitExpiry,
			},
		),
		IdentifierExtractor: func(ctx echo.Context) (string, error) {
			return ctx.RealIP(), nil
		},
		DenyHandler: func(ctx echo.Context, _ string, _ error) error {
			if recorder != nil {
				recorder.RecordRateLimited(ctx.Path())
			}
			return ctx.JSON(http.StatusTooManyRequests, map[string]any{
				"error":   "rate limit exceeded",
				"message": "Too many requests, please wait before trying again.",
				"code":    http.StatusTooManyRequests,
			})
		},
		ErrorHandler: func(ctx echo.Context, _ error) error {
			return ctx.JSON(http.StatusForbidden, map[string]any{
				"error":   "client could not be identified",
				"message": "Request rejected.",
				"code":    http.StatusForbidden,
			})
		},
	})
}
