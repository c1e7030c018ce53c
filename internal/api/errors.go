package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
)

func NewAPIError(errType ErrorType, message string, cause error) *Error {
	return &Error{
		Type:    errType,
		Message: message,
		Cause:   cause,
	}
}

func NewNetworkError(message string, cause error) *Error {
	return NewAPIError(ErrNetworkConnection, message, cause)
}

func NewTimeoutError(operation string, cause error) *Error {
	return NewAPIError(ErrTimeout, fmt.Sprintf("operation %s timed out", operation), cause)
}

func NewCanceledError(operation string, cause error) *Error {
	return NewAPIError(ErrCanceled, fmt.Sprintf("operation %s canceled", operation), cause)
}

func NewDecodeError(operation string, cause error) *Error {
	return NewAPIError(ErrDecode, fmt.Sprintf("failed to decode %s response", operation), cause)
}

// NewStatusError maps an HTTP failure status to an error type.
func NewStatusError(operation string, status int, serverMessage string) *Error {
	var errType ErrorType
	switch {
	case status == http.StatusNotFound:
		errType = ErrNotFound
	case status >= 400 && status < 500:
		errType = ErrBadRequest
	default:
		errType = ErrServer
	}

	err := NewAPIError(errType, fmt.Sprintf("%s returned %d %s", operation, status, http.StatusText(status)), nil)
	err.StatusCode = status
	err.ServerMessage = serverMessage
	return err
}

// ClassifyError turns a transport error into an *Error.
func ClassifyError(operation string, err error) *Error {
	if err == nil {
		return nil
	}

	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}

	switch {
	case errors.Is(err, context.Canceled):
		return NewCanceledError(operation, err)
	case errors.Is(err, context.DeadlineExceeded):
		return NewTimeoutError(operation, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return NewTimeoutError(operation, err)
	}

	errStr := strings.ToLower(err.Error())
	switch {
	case strings.Contains(errStr, "timeout") || strings.Contains(errStr, "deadline exceeded"):
		return NewTimeoutError(operation, err)
	case strings.Contains(errStr, "connection refused") || strings.Contains(errStr, "no such host"):
		return NewNetworkError("connection failed", err)
	default:
		return NewNetworkError(fmt.Sprintf("%s failed", operation), err)
	}
}

// UserMessage is the text shown in an error toast: the server's own message
// when it sent one, otherwise a generic sentence.
func (e *Error) UserMessage() string {
	if e.ServerMessage != "" {
		return e.ServerMessage
	}
	return FallbackMessage
}

func (e *Error) IsNotFound() bool {
	return e.Type == ErrNotFound
}

// IsNotFound reports whether err is an API 404.
func IsNotFound(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.IsNotFound()
}
