package views

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"rhystmorgan/contactbook/internal/config"
	"rhystmorgan/contactbook/internal/listing"
	"rhystmorgan/contactbook/internal/models"
	"rhystmorgan/contactbook/internal/notify"
	"rhystmorgan/contactbook/internal/session"
)

type ViewState int

const (
	ViewList ViewState = iota
	ViewDetail
	ViewCreate
	ViewEdit
)

func (s ViewState) String() string {
	switch s {
	case ViewList:
		return "list"
	case ViewDetail:
		return "detail"
	case ViewCreate:
		return "create"
	case ViewEdit:
		return "edit"
	default:
		return "unknown"
	}
}

// ContactStore is everything the screens need from the contacts API.
type ContactStore interface {
	listing.DataSource
	FetchContact(ctx context.Context, id int) (models.Contact, error)
	CreateContact(ctx context.Context, payload models.Payload) (models.Contact, error)
	UpdateContact(ctx context.Context, id int, payload models.Payload) (models.Contact, error)
}

type AppModel struct {
	state  ViewState
	width  int
	height int

	store    ContactStore
	config   *config.Config
	toasts   *notify.Center
	sessions *session.Manager
	logger   *slog.Logger

	list   *ListModel
	detail *DetailModel
	form   *FormModel
}

// NavigateMsg switches screens. Data carries the contact id for the detail
// and edit screens, or a ListIntent for the list.
type NavigateMsg struct {
	State ViewState
	Data  interface{}
}

// ErrorMsg reports a failure that has no screen-specific handling.
type ErrorMsg struct {
	Err error
}

// ListIntent tells the list what to do when it is shown again.
type ListIntent struct {
	Reload  bool
	Confirm *models.Contact
}

type AppOption func(*AppModel)

func WithLogger(logger *slog.Logger) AppOption {
	return func(m *AppModel) {
		if logger != nil {
			m.logger = logger
		}
	}
}

func WithToasts(center *notify.Center) AppOption {
	return func(m *AppModel) {
		if center != nil {
			m.toasts = center
		}
	}
}

func NewAppModel(store ContactStore, cfg *config.Config, opts ...AppOption) *AppModel {
	if cfg == nil {
		cfg = config.GetDefaultConfig()
	}
	m := &AppModel{
		state:  ViewList,
		store:  store,
		config: cfg,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.toasts == nil {
		m.toasts = notify.NewCenter(notify.WithLogger(m.logger))
	}
	m.sessions = session.NewManager(context.Background(), session.WithLogger(m.logger))
	m.list = m.newList()
	return m
}

func (m *AppModel) newList() *ListModel {
	scope := m.sessions.Open(ViewList.String())
	return NewListModel(m.store, m.toasts,
		listing.WithScope(scope),
		listing.WithLogger(m.logger.With("view", ViewList.String())),
		listing.WithScrollThreshold(m.config.ScrollThreshold),
		listing.WithErrorToast(m.config.ErrorToast),
	)
}

func (m *AppModel) Init() tea.Cmd {
	return m.list.Init()
}

func (m *AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.list.SetSize(msg.Width, m.bodyHeight())
		if m.detail != nil {
			m.detail.SetSize(msg.Width, m.bodyHeight())
		}
		if m.form != nil {
			m.form.SetSize(msg.Width, m.bodyHeight())
		}
		return m, m.list.Refill()

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.shutdown()
			return m, tea.Quit
		case "ctrl+l":
			m.toasts.DismissAll()
			return m, nil
		}

	case NavigateMsg:
		return m.navigateTo(msg.State, msg.Data)

	case ErrorMsg:
		m.logger.Error("unhandled error", "view", m.state.String(), "error", msg.Err)
		m.toasts.As(notify.KindError).Notify(listing.ErrorMessage(msg.Err), m.config.ErrorToast)
		return m, m.toasts.Schedule()

	case pageLoadedMsg, contactDeletedMsg:
		// The list owns these whichever screen is showing; dropping one
		// would leave the controller loading forever.
		return m, tea.Batch(m.list.Update(msg), m.toasts.Schedule())

	case notify.ExpiredMsg:
		m.toasts.Expire(msg)
		m.toasts.Prune()
		return m, nil

	case quitMsg:
		m.shutdown()
		return m, tea.Quit
	}

	switch m.state {
	case ViewList:
		cmd = m.list.Update(msg)
	case ViewDetail:
		if m.detail != nil {
			cmd = m.detail.Update(msg)
		}
	case ViewCreate, ViewEdit:
		if m.form != nil {
			cmd = m.form.Update(msg)
		}
	}

	return m, tea.Batch(cmd, m.toasts.Schedule())
}

func (m *AppModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var content string
	switch m.state {
	case ViewList:
		content = m.list.View()
	case ViewDetail:
		if m.detail != nil {
			content = m.detail.View()
		}
	case ViewCreate, ViewEdit:
		if m.form != nil {
			content = m.form.View()
		}
	default:
		content = "Unknown view"
	}

	if toasts := m.toasts.View(m.width); toasts != "" {
		content = lipgloss.JoinVertical(lipgloss.Left, content, toasts)
	}

	return lipgloss.NewStyle().
		Width(m.width).
		Height(m.height).
		MaxHeight(m.height).
		Render(content)
}

func (m *AppModel) navigateTo(state ViewState, data interface{}) (tea.Model, tea.Cmd) {
	if state == ViewDetail || state == ViewEdit {
		if id, ok := data.(int); !ok || id <= 0 {
			return m, ShowError(fmt.Errorf("cannot open %s view without a contact id: %v", state, data))
		}
	}

	prev := m.state
	m.state = state
	m.logger.Debug("navigate", "from", prev.String(), "to", state.String())

	// The detail and form screens own a scope each; leaving one cancels
	// whatever it still has in flight.
	if prev != state && prev != ViewList {
		m.closeSession(prev)
		switch prev {
		case ViewDetail:
			m.detail = nil
		case ViewCreate, ViewEdit:
			m.form = nil
		}
	}

	var cmd tea.Cmd
	switch state {
	case ViewList:
		if intent, ok := data.(ListIntent); ok {
			cmd = m.list.Resume(intent)
		}
	case ViewDetail:
		id, _ := data.(int)
		m.detail = NewDetailModel(m.store, id, m.sessions.Open(state.String()), m.logger)
		m.detail.SetSize(m.width, m.bodyHeight())
		cmd = m.detail.Init()
	case ViewCreate:
		m.form = NewCreateFormModel(m.store, m.toasts, m.sessions.Open(state.String()), m.config, m.logger)
		m.form.SetSize(m.width, m.bodyHeight())
		cmd = m.form.Init()
	case ViewEdit:
		id, _ := data.(int)
		m.form = NewEditFormModel(m.store, id, m.toasts, m.sessions.Open(state.String()), m.config, m.logger)
		m.form.SetSize(m.width, m.bodyHeight())
		cmd = m.form.Init()
	}

	return m, tea.Batch(cmd, m.toasts.Schedule())
}

func (m *AppModel) closeSession(state ViewState) {
	if err := m.sessions.Close(state.String()); err != nil {
		m.logger.Debug("no session to close", "view", state.String())
	}
}

func (m *AppModel) shutdown() {
	m.list.Close()
	m.sessions.CloseAll()
}

// bodyHeight leaves room for the toast stack.
func (m *AppModel) bodyHeight() int {
	h := m.height - 4
	if h < 5 {
		h = 5
	}
	return h
}

func (m *AppModel) State() ViewState {
	return m.state
}

type quitMsg struct{}

// Quit closes every session and exits the program.
func Quit() tea.Msg {
	return quitMsg{}
}

func NavigateTo(state ViewState, data interface{}) tea.Cmd {
	return func() tea.Msg {
		return NavigateMsg{State: state, Data: data}
	}
}

// GoToListView returns to the list and reloads it from page 1.
func GoToListView() tea.Cmd {
	return NavigateTo(ViewList, ListIntent{Reload: true})
}

func ShowError(err error) tea.Cmd {
	return func() tea.Msg {
		return ErrorMsg{Err: err}
	}
}

func toastFor(d, fallback time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return fallback
}
