package api

import (
	"sync"
	"time"

	"rhystmorgan/contactbook/internal/models"
)

const (
	DefaultBaseURL   = "http://localhost:8000/api/contacts"
	DefaultTimeout   = 30 * time.Second
	DefaultCacheTTL  = 30 * time.Second
	maxErrorBodySize = 1 << 20
)

// FallbackMessage is shown when the server gives no usable message.
const FallbackMessage = "Something bad happened; please try again later."

type Config struct {
	BaseURL   string
	Timeout   time.Duration
	CacheTTL  time.Duration
	UserAgent string
}

type ErrorType string

const (
	ErrNetworkConnection ErrorType = "network_connection"
	ErrTimeout           ErrorType = "timeout"
	ErrNotFound          ErrorType = "not_found"
	ErrBadRequest        ErrorType = "bad_request"
	ErrServer            ErrorType = "server_error"
	ErrDecode            ErrorType = "decode"
	ErrCanceled          ErrorType = "canceled"
)

// Error is a failed call to the contacts API. ServerMessage holds the
// sanitised message the server returned, if any.
type Error struct {
	Type          ErrorType
	Message       string
	ServerMessage string
	StatusCode    int
	Cause         error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

type cachedContact struct {
	contact   models.Contact
	fetchedAt time.Time
}

// ContactCache keeps recently viewed contacts for the detail and edit screens.
type ContactCache struct {
	contacts map[int]cachedContact
	mu       sync.RWMutex
	ttl      time.Duration
	now      func() time.Time
}
