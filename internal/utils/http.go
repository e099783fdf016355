package utils

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/okapiride/dispatch/internal/pkg/apperr"
)

// Response represents a standard API response
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    int    `json:"code,omitempty"`
}

// SuccessResponse sends a success response with data
func SuccessResponse(c echo.Context, statusCode int, message string, data interface{}) error {
	return c.JSON(statusCode, Response{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// ErrorResponseHandler sends an error response
func ErrorResponseHandler(c echo.Context, statusCode int, errorMessage string) error {
	return c.JSON(statusCode, ErrorResponse{
		Success: false,
		Error:   errorMessage,
		Code:    statusCode,
	})
}

// BadRequestResponse sends a 400 Bad Request response
func BadRequestResponse(c echo.Context, errorMessage string) error {
	return ErrorResponseHandler(c, http.StatusBadRequest, errorMessage)
}

// DomainErrorResponse maps the dispatch error taxonomy onto HTTP statuses.
// Conflicts keep distinct messages so the client can tell "someone else got
// it" from "you're mid-ride".
func DomainErrorResponse(c echo.Context, err error) error {
	switch {
	case errors.Is(err, apperr.ErrRideNotFound), errors.Is(err, apperr.ErrDriverNotFound):
		return ErrorResponseHandler(c, http.StatusNotFound, err.Error())
	case errors.Is(err, apperr.ErrRideTaken),
		errors.Is(err, apperr.ErrDriverBusy),
		errors.Is(err, apperr.ErrInvalidTransition):
		return ErrorResponseHandler(c, http.StatusConflict, err.Error())
	case errors.Is(err, apperr.ErrOutOfRange):
		return ErrorResponseHandler(c, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, apperr.ErrInvalid):
		return ErrorResponseHandler(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, apperr.ErrStoreDegraded), errors.Is(err, apperr.ErrRoutingDegraded):
		return ErrorResponseHandler(c, http.StatusServiceUnavailable, err.Error())
	default:
		return ErrorResponseHandler(c, http.StatusInternalServerError, err.Error())
	}
}
