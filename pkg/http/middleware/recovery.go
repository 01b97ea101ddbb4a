package middleware

import (
	"net/http"
	"runtime/debug"

	"Symbiotic/pkg/logger"

	"github.com/labstack/echo/v4"
)

// Recover turns handler panics into a logged 500. http.ErrAbortHandler is re-raised.
func Recover(l *logger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			defer func() {
				r := recover()
				if r == nil {
					return
				}
				if r == http.ErrAbortHandler {
					panic(r)
				}
				RequestLogger(c, l).Error("http handler panic",
					logger.Any("panic", r),
					logger.String("route", c.Path()),
					logger.String("stack", string(debug.Stack())),
				)
				if c.Response().Committed {
					return
				}
				err = c.JSON(http.StatusInternalServerError, map[string]interface{}{
					"status":  http.StatusInternalServerError,
					"message": http.StatusText(http.StatusInternalServerError),
				})
			}()
			return next(c)
		}
	}
}
