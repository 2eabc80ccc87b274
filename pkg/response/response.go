package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Response is the envelope of every JSON API answer. Code is 0 on success
// and mirrors the HTTP status otherwise.
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// AppError carries the HTTP status an API failure should be reported with.
type AppError struct {
	HTTPStatus int
	Message    string
	Err        error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Err }

func newAppError(status int, msg string) *AppError {
	return &AppError{HTTPStatus: status, Message: msg}
}

func NewNotFound(msg string) *AppError { return newAppError(http.StatusNotFound, msg) }

func NewTooManyRequests(msg string) *AppError {
	return newAppError(http.StatusTooManyRequests, msg)
}

// Wrap attaches a status to an underlying error.
func Wrap(status int, msg string, err error) *AppError {
	return &AppError{HTTPStatus: status, Message: msg, Err: err}
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{Code: 0, Message: "ok", Data: data})
}

// Error reports err with its AppError status, or 500 for anything else.
func Error(c *gin.Context, err error) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		fail(c, appErr.HTTPStatus, appErr.Error())
		return
	}
	fail(c, http.StatusInternalServerError, err.Error())
}

func fail(c *gin.Context, status int, msg string) {
	c.JSON(status, Response{Code: status, Message: msg})
}

func BadRequest(c *gin.Context, msg string) { fail(c, http.StatusBadRequest, msg) }

func Unauthorized(c *gin.Context, msg string) { fail(c, http.StatusUnauthorized, msg) }

func Forbidden(c *gin.Context, msg string) { fail(c, http.StatusForbidden, msg) }
