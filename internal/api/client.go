package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"rhystmorgan/contactbook/internal/models"
)

const (
	tracerName      = "rhystmorgan/contactbook/internal/api"
	RequestIDHeader = "X-Request-ID"
)

// Client talks to the contacts REST API:
//
//	GET    {base}?search=<s>&page=<n>
//	GET    {base}/<id>
//	POST   {base}
//	PUT    {base}/<id>
//	DELETE {base}/<id>
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	config     Config
	cache      *ContactCache
	group      singleflight.Group
	tracer     trace.Tracer
	logger     *slog.Logger
	sanitizer  *bluemonday.Policy
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *Client) {
		if tp != nil {
			c.tracer = tp.Tracer(tracerName)
		}
	}
}

func NewClient(config Config, opts ...Option) (*Client, error) {
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	if config.Timeout == 0 {
		config.Timeout = DefaultTimeout
	}
	if config.CacheTTL == 0 {
		config.CacheTTL = DefaultCacheTTL
	}
	if config.UserAgent == "" {
		config.UserAgent = "contactterm"
	}

	base, err := url.Parse(strings.TrimRight(config.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse base URL: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("unsupported base URL scheme %q", base.Scheme)
	}

	c := &Client{
		baseURL:    base,
		httpClient: &http.Client{},
		config:     config,
		cache:      NewContactCache(config.CacheTTL),
		tracer:     otel.Tracer(tracerName),
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		sanitizer:  bluemonday.StrictPolicy(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// FetchContacts returns one page of contacts matching search.
func (c *Client) FetchContacts(ctx context.Context, search string, page int) (models.PagedResult, error) {
	var result models.PagedResult
	query := "search=" + url.QueryEscape(search) + "&page=" + strconv.Itoa(page)
	if err := c.do(ctx, "fetch_contacts", http.MethodGet, "", query, nil, &result); err != nil {
		return models.PagedResult{}, err
	}
	if result.Data == nil {
		result.Data = []models.Contact{}
	}
	return result, nil
}

// FetchContact returns a single contact. Concurrent calls for the same id
// share one request and recent results are served from the cache.
func (c *Client) FetchContact(ctx context.Context, id int) (models.Contact, error) {
	if cached, ok := c.cache.Get(id); ok {
		return cached, nil
	}

	key := strconv.Itoa(id)
	v, err, shared := c.group.Do(key, func() (interface{}, error) {
		var contact models.Contact
		if err := c.do(ctx, "fetch_contact", http.MethodGet, key, "", nil, &contact); err != nil {
			return nil, err
		}
		c.cache.Set(contact)
		return contact, nil
	})
	if err != nil {
		return models.Contact{}, err
	}
	if shared {
		c.logger.Debug("shared contact fetch", "id", id)
	}
	return cloneContact(v.(models.Contact)), nil
}

func (c *Client) CreateContact(ctx context.Context, payload models.Payload) (models.Contact, error) {
	var contact models.Contact
	if err := c.do(ctx, "create_contact", http.MethodPost, "", "", payload, &contact); err != nil {
		return models.Contact{}, err
	}
	if contact.ID != 0 {
		c.cache.Set(contact)
	}
	return contact, nil
}

func (c *Client) UpdateContact(ctx context.Context, id int, payload models.Payload) (models.Contact, error) {
	c.cache.Invalidate(id)

	var contact models.Contact
	if err := c.do(ctx, "update_contact", http.MethodPut, strconv.Itoa(id), "", payload, &contact); err != nil {
		return models.Contact{}, err
	}
	if contact.ID == 0 {
		contact.ID = id
	}
	c.cache.Set(contact)
	return contact, nil
}

func (c *Client) DeleteContact(ctx context.Context, id int) error {
	c.cache.Invalidate(id)
	return c.do(ctx, "delete_contact", http.MethodDelete, strconv.Itoa(id), "", nil, nil)
}

func (c *Client) endpoint(path, query string) string {
	u := *c.baseURL
	if path != "" {
		u.Path = u.Path + "/" + path
	}
	u.RawQuery = query
	return u.String()
}

func (c *Client) do(ctx context.Context, operation, method, path, query string, body, out interface{}) (err error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	requestID := uuid.NewString()
	endpoint := c.endpoint(path, query)

	ctx, span := c.tracer.Start(ctx, "contacts."+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", method),
			attribute.String("http.url", endpoint),
			attribute.String("request.id", requestID),
		),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	var reader io.Reader
	if body != nil {
		data, marshalErr := json.Marshal(body)
		if marshalErr != nil {
			return fmt.Errorf("failed to encode %s request: %w", operation, marshalErr)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to build %s request: %w", operation, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set(RequestIDHeader, requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		classified := ClassifyError(operation, err)
		c.logger.Warn("contacts request failed",
			"operation", operation,
			"request_id", requestID,
			"error_type", classified.Type,
			"error", err)
		return classified
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	c.logger.Debug("contacts request",
		"operation", operation,
		"method", method,
		"url", endpoint,
		"status", resp.StatusCode,
		"request_id", requestID,
		"duration", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return NewStatusError(operation, resp.StatusCode, c.serverMessage(resp.Body))
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		// 204 and other empty success bodies leave out untouched.
		if errors.Is(err, io.EOF) {
			return nil
		}
		if ctx.Err() != nil {
			return ClassifyError(operation, ctx.Err())
		}
		return NewDecodeError(operation, err)
	}
	return nil
}

// serverMessage extracts the "message" field of an error body as plain text.
func (c *Client) serverMessage(body io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(body, maxErrorBodySize))
	if err != nil || len(data) == 0 {
		return ""
	}

	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(c.sanitizer.Sanitize(payload.Message)))
}
