package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// BodyLimit rejects requests whose declared length exceeds max bytes with 413 and
// caps undeclared bodies so reads past max fail.
func BodyLimit(max int64) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if req.ContentLength > max {
				return echo.NewHTTPError(http.StatusRequestEntityTooLarge)
			}
			if req.Body != nil {
				req.Body = http.MaxBytesReader(c.Response(), req.Body, max)
			}
			return next(c)
		}
	}
}
