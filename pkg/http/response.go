package http

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// APIResponse is the envelope every endpoint answers with. The HTTP status is
// always 200; Status carries the outcome.
type APIResponse struct {
	Status  int         `json:"status" example:"200"`
	Message string      `json:"message" example:"OK"`
	Data    interface{} `json:"data,omitempty"`
}

// ValidationError describes one rejected request field.
type ValidationError struct {
	Code    string                 `json:"code,omitempty" example:"ERR_REQUIRED"`
	Field   string                 `json:"field,omitempty" example:"user_id"`
	Message string                 `json:"message,omitempty" example:"user_id is required"`
	Params  map[string]interface{} `json:"params,omitempty"`
}

func DataResponse(c echo.Context, status int, data interface{}) error {
	return c.JSON(http.StatusOK, APIResponse{Status: status, Message: http.StatusText(status), Data: data})
}

func SuccessResponse(c echo.Context, data interface{}) error {
	return DataResponse(c, http.StatusOK, data)
}

// BadRequestResponse reports validation failures from ReadAndValidateRequest.
func BadRequestResponse(c echo.Context, errs interface{}) error {
	return DataResponse(c, http.StatusBadRequest, errs)
}

// ErrorResponse reports err as a one-element AppError list.
func ErrorResponse(c echo.Context, err error) error {
	appErr := asAppError(err)
	return DataResponse(c, appErr.Status, []*AppError{appErr})
}
