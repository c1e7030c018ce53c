// Package export writes every contact matching a search to JSON or CSV.
package export

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"rhystmorgan/contactbook/internal/listing"
	"rhystmorgan/contactbook/internal/models"
	"rhystmorgan/contactbook/internal/session"
)

type Format int

const (
	FormatJSON Format = iota
	FormatCSV
)

func (f Format) String() string {
	switch f {
	case FormatJSON:
		return "json"
	case FormatCSV:
		return "csv"
	default:
		return "unknown"
	}
}

func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json":
		return FormatJSON, nil
	case "csv":
		return FormatCSV, nil
	default:
		return FormatJSON, fmt.Errorf("unsupported export format %q", s)
	}
}

// Version is written into JSON exports.
const Version = "1.0"

var csvHeader = []string{"id", "name", "phones", "emails", "addresses"}

type Options struct {
	Format Format
	Search string
}

type Exporter struct {
	source  listing.DataSource
	options Options
	logger  *slog.Logger
	now     func() time.Time
	create  func(path string) (io.WriteCloser, error)
}

type Option func(*Exporter)

func WithLogger(logger *slog.Logger) Option {
	return func(e *Exporter) {
		if logger != nil {
			e.logger = logger
		}
	}
}

func NewExporter(source listing.DataSource, options Options, opts ...Option) *Exporter {
	e := &Exporter{
		source:  source,
		options: options,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:     time.Now,
		create:  func(path string) (io.WriteCloser, error) { return os.Create(path) },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Collect pages through the search until the last page and returns the
// merged, de-duplicated contacts in server order.
func (e *Exporter) Collect(ctx context.Context) ([]models.Contact, error) {
	scope := session.NewScope(ctx, "export")
	defer scope.Close()

	ctrl := listing.New(e.source,
		listing.WithScope(scope),
		listing.WithLogger(e.logger),
	)
	defer ctrl.Close()

	req := ctrl.SetSearch(e.options.Search)
	for req != nil {
		ctrl.Apply(ctrl.Fetch(req))
		if err := ctrl.Err(); err != nil {
			return nil, fmt.Errorf("failed to load page %d: %w", req.Page, err)
		}
		req = ctrl.MaybeLoadNext()
	}

	total, _ := ctrl.TotalPages()
	e.logger.Info("collected contacts", "search", e.options.Search, "count", len(ctrl.Contacts()), "pages", total)
	return ctrl.Contacts(), nil
}

// Write encodes contacts to w in the configured format.
func (e *Exporter) Write(w io.Writer, contacts []models.Contact) error {
	switch e.options.Format {
	case FormatJSON:
		return e.writeJSON(w, contacts)
	case FormatCSV:
		return e.writeCSV(w, contacts)
	default:
		return fmt.Errorf("unsupported export format")
	}
}

// Export collects and writes in one go. It returns the number of contacts
// written.
func (e *Exporter) Export(ctx context.Context, w io.Writer) (int, error) {
	contacts, err := e.Collect(ctx)
	if err != nil {
		return 0, err
	}
	if err := e.Write(w, contacts); err != nil {
		return 0, err
	}
	return len(contacts), nil
}

// ExportToFile writes to path, creating its directory. Nothing is created
// when collecting fails.
func (e *Exporter) ExportToFile(ctx context.Context, path string) (int, error) {
	contacts, err := e.Collect(ctx)
	if err != nil {
		return 0, err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return 0, fmt.Errorf("failed to create directory: %w", err)
	}
	file, err := e.create(path)
	if err != nil {
		return 0, fmt.Errorf("failed to create file: %w", err)
	}

	if err := e.Write(file, contacts); err != nil {
		_ = file.Close()
		return 0, err
	}
	// A failed close can mean buffered data never reached the disk.
	if err := file.Close(); err != nil {
		return 0, fmt.Errorf("failed to close file: %w", err)
	}
	return len(contacts), nil
}

type document struct {
	ExportedAt    time.Time        `json:"exported_at"`
	Version       string           `json:"version"`
	Search        string           `json:"search,omitempty"`
	TotalContacts int              `json:"total_contacts"`
	Contacts      []models.Contact `json:"contacts"`
}

func (e *Exporter) writeJSON(w io.Writer, contacts []models.Contact) error {
	doc := document{
		ExportedAt:    e.now().UTC(),
		Version:       Version,
		Search:        e.options.Search,
		TotalContacts: len(contacts),
		Contacts:      contacts,
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

func (e *Exporter) writeCSV(w io.Writer, contacts []models.Contact) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, c := range contacts {
		p := models.PayloadFromContact(c)
		addresses := make([]string, 0, len(p.Addresses))
		for _, a := range p.Addresses {
			addresses = append(addresses, a.String())
		}

		record := []string{
			strconv.Itoa(c.ID),
			c.Name,
			strings.Join(p.Phones, ";"),
			strings.Join(p.Emails, ";"),
			strings.Join(addresses, " | "),
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV: %w", err)
	}
	return nil
}
