// Package apitest runs an in-memory contacts API for tests.
package apitest

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"

	"rhystmorgan/contactbook/internal/models"
)

const (
	BasePath        = "/api/contacts"
	DefaultPageSize = 10
)

// Request is one call the server received.
type Request struct {
	Method    string
	Path      string
	RawQuery  string
	RequestID string
	Body      []byte
}

type failure struct {
	status  int
	message string
}

type Server struct {
	*httptest.Server

	PageSize int

	mu       sync.Mutex
	contacts map[int]models.Contact
	nextID   int
	requests []Request
	failures []failure
}

func NewServer() *Server {
	s := &Server{
		PageSize: DefaultPageSize,
		contacts: make(map[int]models.Contact),
		nextID:   1,
	}

	r := chi.NewRouter()
	r.Use(s.record)
	r.Route(BasePath, func(r chi.Router) {
		r.Get("/", s.handleList)
		r.Post("/", s.handleCreate)
		r.Get("/{id}", s.handleGet)
		r.Put("/{id}", s.handleUpdate)
		r.Delete("/{id}", s.handleDelete)
	})

	s.Server = httptest.NewServer(r)
	return s
}

// BaseURL is the collection endpoint clients should be configured with.
func (s *Server) BaseURL() string {
	return s.URL + BasePath
}

// Seed stores contacts, assigning IDs to those without one.
func (s *Server) Seed(contacts ...models.Contact) []models.Contact {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.Contact, 0, len(contacts))
	for _, c := range contacts {
		if c.ID == 0 {
			c.ID = s.nextID
		}
		if c.ID >= s.nextID {
			s.nextID = c.ID + 1
		}
		s.contacts[c.ID] = c
		out = append(out, c)
	}
	return out
}

// FailNext makes the next request fail with status and a JSON message body.
// An empty message sends an empty body.
func (s *Server) FailNext(status int, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.failures = append(s.failures, failure{status: status, message: message})
}

func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Request, len(s.requests))
	copy(out, s.requests)
	return out
}

func (s *Server) Contact(id int) (models.Contact, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.contacts[id]
	return c, ok
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body []byte
		if r.Body != nil {
			body, _ = io.ReadAll(r.Body)
		}

		s.mu.Lock()
		s.requests = append(s.requests, Request{
			Method:    r.Method,
			Path:      r.URL.Path,
			RawQuery:  r.URL.RawQuery,
			RequestID: r.Header.Get("X-Request-ID"),
			Body:      body,
		})
		var fail *failure
		if len(s.failures) > 0 {
			f := s.failures[0]
			s.failures = s.failures[1:]
			fail = &f
		}
		s.mu.Unlock()

		if fail != nil {
			if fail.message == "" {
				w.WriteHeader(fail.status)
				return
			}
			writeJSON(w, fail.status, map[string]string{"message": fail.message})
			return
		}

		r.Body = io.NopCloser(bytes.NewReader(body))
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	search := strings.ToLower(r.URL.Query().Get("search"))
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		page = 1
	}

	s.mu.Lock()
	matches := make([]models.Contact, 0, len(s.contacts))
	for _, c := range s.contacts {
		if search == "" || strings.Contains(strings.ToLower(c.Name), search) {
			matches = append(matches, c)
		}
	}
	size := s.PageSize
	s.mu.Unlock()

	sort.Slice(matches, func(i, j int) bool { return matches[i].ID < matches[j].ID })

	lastPage := (len(matches) + size - 1) / size
	if lastPage == 0 {
		lastPage = 1
	}
	start := (page - 1) * size
	end := start + size
	if start > len(matches) {
		start = len(matches)
	}
	if end > len(matches) {
		end = len(matches)
	}

	writeJSON(w, http.StatusOK, models.PagedResult{Data: matches[start:end], LastPage: lastPage})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	c, found := s.Contact(id)
	if !found {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Contact not found"})
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	payload, ok := decodePayload(w, r)
	if !ok {
		return
	}

	s.mu.Lock()
	c := fromPayload(s.nextID, payload)
	s.contacts[c.ID] = c
	s.nextID++
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, c)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	payload, ok := decodePayload(w, r)
	if !ok {
		return
	}

	s.mu.Lock()
	_, found := s.contacts[id]
	c := fromPayload(id, payload)
	if found {
		s.contacts[id] = c
	}
	s.mu.Unlock()

	if !found {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Contact not found"})
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	s.mu.Lock()
	_, found := s.contacts[id]
	delete(s.contacts, id)
	s.mu.Unlock()

	if !found {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Contact not found"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func parseID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Invalid contact id"})
		return 0, false
	}
	return id, true
}

func decodePayload(w http.ResponseWriter, r *http.Request) (models.Payload, bool) {
	var payload models.Payload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Malformed JSON body"})
		return models.Payload{}, false
	}
	if strings.TrimSpace(payload.Name) == "" {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"message": "The name field is required."})
		return models.Payload{}, false
	}
	return payload, true
}

func fromPayload(id int, p models.Payload) models.Contact {
	c := models.Contact{
		ID:        id,
		Name:      p.Name,
		Phones:    make([]models.Phone, 0, len(p.Phones)),
		Emails:    make([]models.Email, 0, len(p.Emails)),
		Addresses: append([]models.Address{}, p.Addresses...),
	}
	for _, phone := range p.Phones {
		c.Phones = append(c.Phones, models.Phone{PhoneNumber: phone})
	}
	for _, email := range p.Emails {
		c.Emails = append(c.Emails, models.Email{Email: email})
	}
	return c
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
