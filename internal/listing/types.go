package listing

import (
	"context"
	"errors"
	"time"

	"rhystmorgan/contactbook/internal/models"
)

var ErrClosed = errors.New("listing closed")

// FallbackMessage is shown when a failure carries no message of its own.
const FallbackMessage = "Something bad happened; please try again later."

const (
	DefaultScrollThreshold = 200
	DefaultErrorToast      = 5 * time.Second
)

type State int

const (
	Idle State = iota
	Loading
	LoadedPartial
	LoadedComplete
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case LoadedPartial:
		return "loaded_partial"
	case LoadedComplete:
		return "loaded_complete"
	default:
		return "unknown"
	}
}

// DataSource is the part of the contacts API the list needs.
type DataSource interface {
	FetchContacts(ctx context.Context, search string, page int) (models.PagedResult, error)
	DeleteContact(ctx context.Context, id int) error
}

type Notifier interface {
	Notify(message string, autoDismissAfter time.Duration)
}

// ScrollMetrics describes the list viewport in rows or any other unit, as
// long as all three fields agree.
type ScrollMetrics struct {
	Offset         int
	ViewportHeight int
	ContentHeight  int
}

// NearBottom reports whether the viewport is within threshold of the end.
func (m ScrollMetrics) NearBottom(threshold int) bool {
	return m.Offset > (m.ContentHeight-m.ViewportHeight)-threshold
}

// PageRequest describes one fetch the host must run with Controller.Fetch.
type PageRequest struct {
	Search     string
	Page       int
	Generation uint64

	ctx    context.Context
	cancel context.CancelFunc
}

type PageResponse struct {
	Request *PageRequest
	Result  models.PagedResult
	Err     error
}

// DeleteRequest describes one delete the host must run with Controller.Delete.
type DeleteRequest struct {
	ID         int
	Generation uint64

	ctx    context.Context
	cancel context.CancelFunc
}

type DeleteResponse struct {
	Request *DeleteRequest
	Err     error
}

type userMessager interface {
	UserMessage() string
}

// ErrorMessage is the text shown to the user for err.
func ErrorMessage(err error) string {
	var um userMessager
	if errors.As(err, &um) {
		if msg := um.UserMessage(); msg != "" {
			return msg
		}
	}
	return FallbackMessage
}
