package session

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Scope bounds the lifetime of the work a view starts. Every request context
// handed out by a scope is cancelled when the scope closes.
type Scope struct {
	ID        string
	View      string
	CreatedAt time.Time

	ctx    context.Context
	cancel context.CancelFunc
	mu     sync.Mutex
	closed bool
}

func NewScope(parent context.Context, view string) *Scope {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	return &Scope{
		ID:        uuid.NewString(),
		View:      view,
		CreatedAt: time.Now(),
		ctx:       ctx,
		cancel:    cancel,
	}
}

func (s *Scope) Context() context.Context {
	return s.ctx
}

// Child returns a request context that ends with the scope or when cancel
// is called, whichever comes first.
func (s *Scope) Child() (context.Context, context.CancelFunc) {
	return context.WithCancel(s.ctx)
}

func (s *Scope) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	s.cancel()
}

func (s *Scope) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.closed
}

// Manager keeps at most one open scope per view.
type Manager struct {
	parent context.Context
	scopes map[string]*Scope
	logger *slog.Logger
	mu     sync.Mutex
}

type Option func(*Manager)

func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

func NewManager(parent context.Context, opts ...Option) *Manager {
	if parent == nil {
		parent = context.Background()
	}
	m := &Manager{
		parent: parent,
		scopes: make(map[string]*Scope),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Open starts a fresh scope for view, closing the one it replaces.
func (m *Manager) Open(view string) *Scope {
	m.mu.Lock()
	defer m.mu.Unlock()

	if prev, ok := m.scopes[view]; ok {
		prev.Close()
		m.logger.Debug("session scope replaced", "view", view, "scope_id", prev.ID)
	}

	scope := NewScope(m.parent, view)
	m.scopes[view] = scope
	m.logger.Debug("session scope opened", "view", view, "scope_id", scope.ID)
	return scope
}

func (m *Manager) Get(view string) (*Scope, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	scope, ok := m.scopes[view]
	return scope, ok
}

func (m *Manager) Close(view string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	scope, ok := m.scopes[view]
	if !ok {
		return fmt.Errorf("no open session for view %q", view)
	}
	scope.Close()
	delete(m.scopes, view)
	m.logger.Debug("session scope closed", "view", view, "scope_id", scope.ID, "age", time.Since(scope.CreatedAt))
	return nil
}

func (m *Manager) CloseAll() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for view, scope := range m.scopes {
		scope.Close()
		delete(m.scopes, view)
	}
}

// Active lists the views with an open scope, sorted.
func (m *Manager) Active() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	views := make([]string, 0, len(m.scopes))
	for view := range m.scopes {
		views = append(views, view)
	}
	sort.Strings(views)
	return views
}
