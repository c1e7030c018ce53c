package listing

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"rhystmorgan/contactbook/internal/models"
	"rhystmorgan/contactbook/internal/session"
)

// Controller drives the infinite-scroll contact list. It is not safe for
// concurrent use: every method except Fetch and Delete must be called from
// the goroutine that owns the UI loop.
type Controller struct {
	source     DataSource
	notifier   Notifier
	logger     *slog.Logger
	scope      *session.Scope
	threshold  int
	errorToast time.Duration

	search         string
	previousSearch string
	currentPage    int
	totalPages     int
	totalKnown     bool
	isLoading      bool
	state          State
	settled        State
	contacts       models.ContactList
	lastErr        error

	generation    uint64
	inflight      *PageRequest
	pendingDelete *DeleteRequest
	closed        bool
}

type Option func(*Controller)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func WithNotifier(n Notifier) Option {
	return func(c *Controller) {
		if n != nil {
			c.notifier = n
		}
	}
}

// WithScope ties in-flight requests to scope. Closing the scope or the
// controller cancels them.
func WithScope(scope *session.Scope) Option {
	return func(c *Controller) {
		if scope != nil {
			c.scope = scope
		}
	}
}

func WithScrollThreshold(threshold int) Option {
	return func(c *Controller) {
		if threshold >= 0 {
			c.threshold = threshold
		}
	}
}

func WithErrorToast(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.errorToast = d
		}
	}
}

type discardNotifier struct{}

func (discardNotifier) Notify(string, time.Duration) {}

func New(source DataSource, opts ...Option) *Controller {
	c := &Controller{
		source:      source,
		notifier:    discardNotifier{},
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		threshold:   DefaultScrollThreshold,
		errorToast:  DefaultErrorToast,
		currentPage: 1,
		state:       Idle,
		settled:     Idle,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.scope == nil {
		c.scope = session.NewScope(context.Background(), "list")
	}
	return c
}

// Start issues the first page load.
func (c *Controller) Start() *PageRequest {
	return c.MaybeLoadNext()
}

// SetSearch records the search text. A text different from the previous
// search drops every loaded page and abandons any fetch still in flight
// before loading page 1.
func (c *Controller) SetSearch(text string) *PageRequest {
	if c.closed {
		return nil
	}
	c.search = text
	if text != c.previousSearch {
		c.logger.Debug("search changed", "search", text, "previous", c.previousSearch)
		c.previousSearch = text
		c.resetPages()
	}
	return c.MaybeLoadNext()
}

// MaybeLoadNext returns the request for the next page, or nil when a load
// is already running or every page has been fetched.
func (c *Controller) MaybeLoadNext() *PageRequest {
	if c.closed || c.isLoading {
		return nil
	}
	if c.totalKnown && c.currentPage > c.totalPages {
		return nil
	}

	ctx, cancel := c.scope.Child()
	req := &PageRequest{
		Search:     c.search,
		Page:       c.currentPage,
		Generation: c.generation,
		ctx:        ctx,
		cancel:     cancel,
	}
	c.inflight = req
	c.isLoading = true
	c.state = Loading
	c.logger.Debug("loading page", "search", req.Search, "page", req.Page, "generation", req.Generation)
	return req
}

// OnScroll loads the next page when the viewport is near the bottom.
func (c *Controller) OnScroll(m ScrollMetrics) *PageRequest {
	if !m.NearBottom(c.threshold) {
		return nil
	}
	return c.MaybeLoadNext()
}

// Reload drops every loaded page and loads page 1 again.
func (c *Controller) Reload() *PageRequest {
	if c.closed || c.pendingDelete != nil {
		return nil
	}
	c.resetPages()
	return c.MaybeLoadNext()
}

// Fetch runs req against the data source. It may be called from any
// goroutine and does not touch controller state.
func (c *Controller) Fetch(req *PageRequest) PageResponse {
	if req == nil {
		return PageResponse{Err: ErrClosed}
	}
	result, err := c.source.FetchContacts(req.ctx, req.Search, req.Page)
	return PageResponse{Request: req, Result: result, Err: err}
}

// Apply merges a completed fetch. Completions for a superseded request or
// after Close are dropped; Apply reports whether state changed.
func (c *Controller) Apply(resp PageResponse) bool {
	req := resp.Request
	if req == nil {
		return false
	}
	req.cancel()

	if c.closed || req != c.inflight || req.Generation != c.generation {
		c.logger.Debug("discarding stale page", "search", req.Search, "page", req.Page, "generation", req.Generation)
		return false
	}
	c.inflight = nil
	c.isLoading = false

	if resp.Err != nil {
		c.lastErr = resp.Err
		c.state = c.settled
		c.logger.Warn("failed to load contacts", "search", req.Search, "page", req.Page, "error", resp.Err)
		c.surface(resp.Err)
		return true
	}

	added := c.contacts.Merge(resp.Result.Data)
	c.totalPages = resp.Result.LastPage
	c.totalKnown = true
	c.currentPage++
	c.lastErr = nil
	if c.currentPage <= c.totalPages {
		c.state = LoadedPartial
	} else {
		c.state = LoadedComplete
	}
	c.settled = c.state
	c.logger.Debug("page loaded",
		"search", req.Search,
		"page", req.Page,
		"received", len(resp.Result.Data),
		"added", added,
		"last_page", resp.Result.LastPage)
	return true
}

// RequestDelete clears the list and returns the delete the host must run.
// It returns nil while another delete is pending.
func (c *Controller) RequestDelete(id int) *DeleteRequest {
	if c.closed || c.pendingDelete != nil {
		return nil
	}
	c.abandonInflight()
	c.contacts.Clear()

	ctx, cancel := c.scope.Child()
	req := &DeleteRequest{
		ID:         id,
		Generation: c.generation,
		ctx:        ctx,
		cancel:     cancel,
	}
	c.pendingDelete = req
	c.isLoading = true
	c.state = Loading
	c.logger.Debug("deleting contact", "id", id)
	return req
}

// Delete runs req against the data source. Like Fetch it may be called
// from any goroutine.
func (c *Controller) Delete(req *DeleteRequest) DeleteResponse {
	if req == nil {
		return DeleteResponse{Err: ErrClosed}
	}
	return DeleteResponse{Request: req, Err: c.source.DeleteContact(req.ctx, req.ID)}
}

// ApplyDelete finishes a delete and returns the page 1 reload. A failed
// delete is surfaced and the list is reloaded all the same.
func (c *Controller) ApplyDelete(resp DeleteResponse) *PageRequest {
	req := resp.Request
	if req == nil {
		return nil
	}
	req.cancel()

	if c.closed || req != c.pendingDelete {
		return nil
	}
	c.pendingDelete = nil
	c.isLoading = false

	if resp.Err != nil {
		c.lastErr = resp.Err
		c.logger.Warn("failed to delete contact", "id", req.ID, "error", resp.Err)
		c.surface(resp.Err)
	} else {
		c.logger.Info("contact deleted", "id", req.ID)
	}

	c.resetPages()
	return c.MaybeLoadNext()
}

// Close cancels in-flight work. Later completions are ignored.
func (c *Controller) Close() {
	if c.closed {
		return
	}
	c.closed = true
	if c.inflight != nil {
		c.inflight.cancel()
		c.inflight = nil
	}
	if c.pendingDelete != nil {
		c.pendingDelete.cancel()
		c.pendingDelete = nil
	}
	c.isLoading = false
	c.scope.Close()
}

func (c *Controller) resetPages() {
	c.abandonInflight()
	c.currentPage = 1
	c.totalPages = 0
	c.totalKnown = false
	c.contacts.Clear()
	c.settled = Idle
	if c.pendingDelete == nil {
		c.state = Idle
	}
}

// abandonInflight cancels the running page fetch, if any, and moves to a new
// generation so its completion is discarded.
func (c *Controller) abandonInflight() {
	if c.inflight != nil {
		c.inflight.cancel()
		c.inflight = nil
		c.isLoading = c.pendingDelete != nil
	}
	c.generation++
}

func (c *Controller) surface(err error) {
	if errors.Is(err, context.Canceled) {
		return
	}
	c.notifier.Notify(ErrorMessage(err), c.errorToast)
}

func (c *Controller) State() State {
	return c.state
}

// Contacts returns a copy of the accumulated contacts in first-seen order.
func (c *Controller) Contacts() []models.Contact {
	return c.contacts.Snapshot()
}

func (c *Controller) Search() string {
	return c.search
}

func (c *Controller) PreviousSearch() string {
	return c.previousSearch
}

func (c *Controller) CurrentPage() int {
	return c.currentPage
}

// TotalPages returns the last page reported by the source and whether any
// page has been loaded since the last reset.
func (c *Controller) TotalPages() (int, bool) {
	return c.totalPages, c.totalKnown
}

func (c *Controller) IsLoading() bool {
	return c.isLoading
}

func (c *Controller) Deleting() bool {
	return c.pendingDelete != nil
}

// Err returns the last failure, cleared by the next successful page.
func (c *Controller) Err() error {
	return c.lastErr
}

func (c *Controller) Closed() bool {
	return c.closed
}
