package notify

import (
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"rhystmorgan/contactbook/internal/utils"
)

const (
	DefaultErrorDuration = 5 * time.Second
	DefaultInfoDuration  = 3 * time.Second
)

type Kind int

const (
	KindInfo Kind = iota
	KindSuccess
	KindError
)

// Notifier is the fire-and-forget sink the core reports to.
type Notifier interface {
	Notify(message string, autoDismissAfter time.Duration)
}

type Toast struct {
	ID        int
	Kind      Kind
	Message   string
	Duration  time.Duration
	ExpiresAt time.Time
}

// ExpiredMsg is delivered when a toast's timer fires.
type ExpiredMsg struct {
	ID int
}

// Center holds the toasts currently on screen. Notify may be called from any
// goroutine; Schedule hands the expiry timers to the bubbletea runtime.
type Center struct {
	toasts    []Toast
	scheduled map[int]bool
	nextID    int
	maxShown  int
	now       func() time.Time
	logger    *slog.Logger
	mu        sync.Mutex
}

type Option func(*Center)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Center) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMaxShown caps the number of visible toasts; the oldest are dropped.
func WithMaxShown(n int) Option {
	return func(c *Center) {
		if n > 0 {
			c.maxShown = n
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Center) {
		if now != nil {
			c.now = now
		}
	}
}

func NewCenter(opts ...Option) *Center {
	c := &Center{
		scheduled: make(map[int]bool),
		maxShown:  3,
		now:       time.Now,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Notify shows an informational toast.
func (c *Center) Notify(message string, autoDismissAfter time.Duration) {
	c.Push(KindInfo, message, autoDismissAfter)
}

// Push shows a toast of the given kind and returns its ID.
func (c *Center) Push(kind Kind, message string, autoDismissAfter time.Duration) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextID++
	toast := Toast{
		ID:        c.nextID,
		Kind:      kind,
		Message:   strings.TrimSpace(message),
		Duration:  autoDismissAfter,
		ExpiresAt: c.now().Add(autoDismissAfter),
	}
	c.toasts = append(c.toasts, toast)
	if len(c.toasts) > c.maxShown {
		dropped := c.toasts[:len(c.toasts)-c.maxShown]
		for _, t := range dropped {
			delete(c.scheduled, t.ID)
		}
		c.toasts = append([]Toast(nil), c.toasts[len(c.toasts)-c.maxShown:]...)
	}
	c.logger.Debug("toast shown", "id", toast.ID, "kind", kind, "message", toast.Message, "duration", autoDismissAfter)
	return toast.ID
}

// As returns a Notifier whose toasts carry kind.
func (c *Center) As(kind Kind) Notifier {
	return kindNotifier{center: c, kind: kind}
}

type kindNotifier struct {
	center *Center
	kind   Kind
}

func (n kindNotifier) Notify(message string, autoDismissAfter time.Duration) {
	n.center.Push(n.kind, message, autoDismissAfter)
}

// Schedule returns the timers for toasts that do not have one yet.
func (c *Center) Schedule() tea.Cmd {
	c.mu.Lock()
	defer c.mu.Unlock()

	var cmds []tea.Cmd
	for _, t := range c.toasts {
		if c.scheduled[t.ID] {
			continue
		}
		c.scheduled[t.ID] = true
		id := t.ID
		cmds = append(cmds, tea.Tick(t.Duration, func(time.Time) tea.Msg {
			return ExpiredMsg{ID: id}
		}))
	}
	switch len(cmds) {
	case 0:
		return nil
	case 1:
		return cmds[0]
	default:
		return tea.Batch(cmds...)
	}
}

// Expire removes the toast named by msg.
func (c *Center) Expire(msg ExpiredMsg) {
	c.Dismiss(msg.ID)
}

func (c *Center) Dismiss(id int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, t := range c.toasts {
		if t.ID == id {
			c.toasts = append(c.toasts[:i], c.toasts[i+1:]...)
			break
		}
	}
	delete(c.scheduled, id)
}

// DismissAll clears every toast, e.g. on a key press.
func (c *Center) DismissAll() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.toasts = nil
	c.scheduled = make(map[int]bool)
}

// Prune drops toasts whose deadline has passed without a timer firing.
func (c *Center) Prune() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	kept := c.toasts[:0]
	for _, t := range c.toasts {
		if now.Before(t.ExpiresAt) {
			kept = append(kept, t)
		} else {
			delete(c.scheduled, t.ID)
		}
	}
	c.toasts = kept
}

// Active returns a copy of the visible toasts, oldest first.
func (c *Center) Active() []Toast {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Toast, len(c.toasts))
	copy(out, c.toasts)
	return out
}

func (c *Center) View(width int) string {
	toasts := c.Active()
	if len(toasts) == 0 {
		return ""
	}

	rendered := make([]string, 0, len(toasts))
	for _, t := range toasts {
		rendered = append(rendered, renderToast(t, width))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rendered...)
}

func renderToast(t Toast, width int) string {
	colour := utils.Colours.Blue
	icon := "ℹ"
	switch t.Kind {
	case KindSuccess:
		colour = utils.Colours.Green
		icon = "✓"
	case KindError:
		colour = utils.Colours.Red
		icon = "✗"
	}

	style := lipgloss.NewStyle().
		Foreground(lipgloss.Color(colour)).
		Padding(0, 1).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(colour))
	if width > 4 {
		style = style.MaxWidth(width)
	}
	return style.Render(icon + " " + t.Message)
}
