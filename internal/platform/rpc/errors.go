package rpc

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// Code is the error category carried in the error envelope.
type Code string

const (
	NotFound          Code = "not_found"
	InvalidArgument   Code = "invalid_argument"
	AlreadyExists     Code = "already_exists"
	BadRoute          Code = "bad_route"
	ResourceExhausted Code = "resource_exhausted"
	Canceled          Code = "canceled"
	DeadlineExceeded  Code = "deadline_exceeded"
	Unavailable       Code = "unavailable"
	Internal          Code = "internal"
)

// HTTPStatus returns the response status used for the code.
func (c Code) HTTPStatus() int {
	switch c {
	case NotFound, BadRoute:
		return http.StatusNotFound
	case InvalidArgument:
		return http.StatusBadRequest
	case AlreadyExists:
		return http.StatusConflict
	case ResourceExhausted:
		return http.StatusTooManyRequests
	case Canceled, DeadlineExceeded:
		return http.StatusRequestTimeout
	case Unavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Error is the envelope returned for every failed call.
type Error struct {
	Code Code   `json:"code"`
	Msg  string `json:"msg"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("rpc error: %s: %s", e.Code, e.Msg)
}

func NewError(code Code, msg string) *Error {
	return &Error{Code: code, Msg: msg}
}

func Errorf(code Code, format string, args ...interface{}) *Error {
	return &Error{Code: code, Msg: fmt.Sprintf(format, args...)}
}

// FromError converts any error into an envelope. Errors that are neither
// *Error nor an echo HTTP error become Internal with a generic message.
func FromError(err error) *Error {
	var rerr *Error
	if errors.As(err, &rerr) {
		return rerr
	}

	var herr *echo.HTTPError
	if errors.As(err, &herr) {
		msg := http.StatusText(herr.Code)
		if s, ok := herr.Message.(string); ok && s != "" {
			msg = s
		}
		return &Error{Code: codeForStatus(herr.Code), Msg: msg}
	}

	switch {
	case errors.Is(err, context.Canceled):
		return NewError(Canceled, "request canceled")
	case errors.Is(err, context.DeadlineExceeded):
		return NewError(DeadlineExceeded, "deadline exceeded")
	}
	return NewError(Internal, "internal error")
}

func codeForStatus(status int) Code {
	switch status {
	case http.StatusNotFound, http.StatusMethodNotAllowed:
		return BadRoute
	case http.StatusBadRequest, http.StatusRequestEntityTooLarge, http.StatusUnsupportedMediaType:
		return InvalidArgument
	case http.StatusConflict:
		return AlreadyExists
	case http.StatusTooManyRequests:
		return ResourceExhausted
	case http.StatusRequestTimeout:
		return DeadlineExceeded
	case http.StatusServiceUnavailable:
		return Unavailable
	default:
		return Internal
	}
}

// ErrorHandler writes every error as an envelope. Internal errors are
// logged with their cause, which is never sent to the client.
func ErrorHandler(logger zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		rerr := FromError(err)
		if rerr.Code == Internal {
			rid, _ := c.Get("request_id").(string)
			logger.Error().
				Err(err).
				Str("request_id", rid).
				Str("path", c.Request().URL.Path).
				Msg("internal error")
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(rerr.Code.HTTPStatus())
		} else {
			err = c.JSON(rerr.Code.HTTPStatus(), rerr)
		}
		if err != nil {
			logger.Error().Err(err).Msg("failed to write error response")
		}
	}
}
