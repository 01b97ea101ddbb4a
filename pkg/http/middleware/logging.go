package middleware

import (
	"time"

	"Symbiotic/pkg/logger"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const loggerKey = "request_logger"

// RequestLogger returns the logger RequestLogging stored on c, tagged with the
// request id, or fallback outside that middleware.
func RequestLogger(c echo.Context, fallback *logger.Logger) *logger.Logger {
	if l, ok := c.Get(loggerKey).(*logger.Logger); ok {
		return l
	}
	if fallback == nil {
		return logger.Nop()
	}
	return fallback
}

// RequestLogging assigns an X-Request-ID (keeping the caller's) and logs every request at debug.
func RequestLogging(l *logger.Logger) echo.MiddlewareFunc {
	if l == nil {
		l = logger.Nop()
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()

			id := req.Header.Get(echo.HeaderXRequestID)
			if id == "" {
				id = uuid.NewString()
			}
			c.Response().Header().Set(echo.HeaderXRequestID, id)
			rl := l.With(logger.String("request_id", id))
			c.Set(loggerKey, rl)

			err := next(c)

			rl.Debug("http request",
				logger.String("method", req.Method),
				logger.String("uri", req.RequestURI),
				logger.String("remote", c.RealIP()),
				logger.Int("status", c.Response().Status),
				logger.Duration("latency_ms", time.Since(start)),
			)
			return err
		}
	}
}
