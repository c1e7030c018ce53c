package views

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"rhystmorgan/contactbook/internal/listing"
	"rhystmorgan/contactbook/internal/models"
	"rhystmorgan/contactbook/internal/notify"
	"rhystmorgan/contactbook/internal/utils"
)

// rowUnits converts terminal rows into the units the scroll threshold is
// expressed in.
const rowUnits = 20

// chrome is the number of lines around the viewport: header, search box,
// footer and help.
const chrome = 7

type listKeyMap struct {
	Up      key.Binding
	Down    key.Binding
	PageUp  key.Binding
	PageDn  key.Binding
	Open    key.Binding
	New     key.Binding
	Edit    key.Binding
	Delete  key.Binding
	Search  key.Binding
	Reload  key.Binding
	Quit    key.Binding
	Confirm key.Binding
	Cancel  key.Binding
}

var listKeys = listKeyMap{
	Up:      key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
	Down:    key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
	PageUp:  key.NewBinding(key.WithKeys("pgup"), key.WithHelp("pgup", "page up")),
	PageDn:  key.NewBinding(key.WithKeys("pgdown", " "), key.WithHelp("pgdn", "page down")),
	Open:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "view")),
	New:     key.NewBinding(key.WithKeys("n", "ctrl+n"), key.WithHelp("n", "new")),
	Edit:    key.NewBinding(key.WithKeys("e", "f2"), key.WithHelp("e", "edit")),
	Delete:  key.NewBinding(key.WithKeys("d", "delete"), key.WithHelp("d", "delete")),
	Search:  key.NewBinding(key.WithKeys("/", "ctrl+s"), key.WithHelp("/", "search")),
	Reload:  key.NewBinding(key.WithKeys("r", "ctrl+r"), key.WithHelp("r", "reload")),
	Quit:    key.NewBinding(key.WithKeys("q"), key.WithHelp("q", "quit")),
	Confirm: key.NewBinding(key.WithKeys("y", "Y"), key.WithHelp("y", "yes, delete")),
	Cancel:  key.NewBinding(key.WithKeys("n", "N", "esc"), key.WithHelp("n/esc", "cancel")),
}

type pageLoadedMsg struct {
	resp listing.PageResponse
}

type contactDeletedMsg struct {
	resp listing.DeleteResponse
}

// ListModel is the infinite-scroll contact list with its search box and
// the delete confirmation.
type ListModel struct {
	controller *listing.Controller
	toasts     *notify.Center

	searchInput textinput.Model
	viewport    viewport.Model
	spinner     spinner.Model

	contacts []models.Contact
	selected int
	confirm  *models.Contact

	width  int
	height int
}

func NewListModel(source listing.DataSource, toasts *notify.Center, opts ...listing.Option) *ListModel {
	if toasts == nil {
		toasts = notify.NewCenter()
	}
	opts = append([]listing.Option{listing.WithNotifier(toasts.As(notify.KindError))}, opts...)

	searchInput := textinput.New()
	searchInput.Placeholder = "Search contacts..."
	searchInput.CharLimit = 50
	searchInput.PromptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(utils.Colours.Blue))
	searchInput.TextStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(utils.Colours.Text))

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = utils.SpinnerStyle

	return &ListModel{
		controller:  listing.New(source, opts...),
		toasts:      toasts,
		searchInput: searchInput,
		viewport:    viewport.New(80, 10),
		spinner:     s,
	}
}

func (m *ListModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.fetch(m.controller.Start()))
}

func (m *ListModel) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = max(height-chrome, 1)
	m.searchInput.Width = max(width/2, 20)
	m.refresh()
}

func (m *ListModel) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case pageLoadedMsg:
		if !m.controller.Apply(msg.resp) {
			return nil
		}
		m.refresh()
		if msg.resp.Err != nil {
			return nil
		}
		// Keep loading until the viewport is filled or the pages run out.
		return m.Refill()

	case contactDeletedMsg:
		req := m.controller.ApplyDelete(msg.resp)
		m.refresh()
		return m.fetch(req)

	case spinner.TickMsg:
		if !m.busy() {
			return nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return cmd

	case tea.MouseMsg:
		return m.updateMouse(msg)

	case tea.KeyMsg:
		if m.confirm != nil {
			return m.updateConfirm(msg)
		}
		if m.searchInput.Focused() {
			return m.updateSearch(msg)
		}
		return m.updateKeys(msg)
	}

	return nil
}

// updateMouse moves the selection with the wheel so the viewport offset,
// which follows the selection, stays put across page loads.
func (m *ListModel) updateMouse(msg tea.MouseMsg) tea.Cmd {
	if m.confirm != nil || msg.Action != tea.MouseActionPress {
		return nil
	}
	step := max(m.viewport.MouseWheelDelta, 1)
	switch msg.Button {
	case tea.MouseButtonWheelUp:
		m.selected = max(m.selected-step, 0)
	case tea.MouseButtonWheelDown:
		m.selected = max(min(m.selected+step, len(m.contacts)-1), 0)
	default:
		return nil
	}
	m.refresh()
	return m.Refill()
}

func (m *ListModel) updateConfirm(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, listKeys.Confirm):
		contact := m.confirm
		m.confirm = nil
		req := m.controller.RequestDelete(contact.ID)
		m.refresh()
		return m.delete(req)
	case key.Matches(msg, listKeys.Cancel):
		m.confirm = nil
	}
	return nil
}

func (m *ListModel) updateSearch(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "esc", "enter", "tab":
		m.searchInput.Blur()
		return nil
	}

	before := m.searchInput.Value()
	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)
	if m.searchInput.Value() == before {
		return cmd
	}

	req := m.controller.SetSearch(strings.TrimSpace(m.searchInput.Value()))
	m.selected = 0
	m.viewport.GotoTop()
	m.refresh()
	return tea.Batch(cmd, m.fetch(req))
}

func (m *ListModel) updateKeys(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, listKeys.Quit):
		return Quit

	case key.Matches(msg, listKeys.Search):
		return m.searchInput.Focus()

	case key.Matches(msg, listKeys.Up):
		if m.selected > 0 {
			m.selected--
		}

	case key.Matches(msg, listKeys.Down):
		if m.selected < len(m.contacts)-1 {
			m.selected++
		}

	case key.Matches(msg, listKeys.PageUp):
		m.selected = max(m.selected-m.viewport.Height, 0)

	case key.Matches(msg, listKeys.PageDn):
		m.selected = max(min(m.selected+m.viewport.Height, len(m.contacts)-1), 0)

	case key.Matches(msg, listKeys.Open):
		if c, ok := m.current(); ok {
			return NavigateTo(ViewDetail, c.ID)
		}

	case key.Matches(msg, listKeys.New):
		return NavigateTo(ViewCreate, nil)

	case key.Matches(msg, listKeys.Edit):
		if c, ok := m.current(); ok {
			return NavigateTo(ViewEdit, c.ID)
		}

	case key.Matches(msg, listKeys.Delete):
		if c, ok := m.current(); ok {
			m.confirm = &c
		}
		return nil

	case key.Matches(msg, listKeys.Reload):
		m.selected = 0
		m.viewport.GotoTop()
		req := m.controller.Reload()
		m.refresh()
		return m.fetch(req)

	case msg.String() == "esc":
		if m.searchInput.Value() != "" {
			m.searchInput.SetValue("")
			req := m.controller.SetSearch("")
			m.selected = 0
			m.refresh()
			return m.fetch(req)
		}
		return nil

	default:
		return nil
	}

	m.refresh()
	return m.Refill()
}

// Resume is called when the list becomes visible again.
func (m *ListModel) Resume(intent ListIntent) tea.Cmd {
	if intent.Confirm != nil {
		c := *intent.Confirm
		m.confirm = &c
	}
	if !intent.Reload {
		// The spinner stopped ticking while another screen was showing.
		if m.busy() {
			return m.spinner.Tick
		}
		return nil
	}
	m.selected = 0
	m.viewport.GotoTop()
	req := m.controller.Reload()
	m.refresh()
	return m.fetch(req)
}

// Refill asks the controller for the next page if the viewport is near the
// bottom of what has been loaded.
func (m *ListModel) Refill() tea.Cmd {
	return m.fetch(m.controller.OnScroll(m.metrics()))
}

func (m *ListModel) Close() {
	m.controller.Close()
}

func (m *ListModel) metrics() listing.ScrollMetrics {
	return listing.ScrollMetrics{
		Offset:         m.viewport.YOffset * rowUnits,
		ViewportHeight: m.viewport.Height * rowUnits,
		ContentHeight:  m.viewport.TotalLineCount() * rowUnits,
	}
}

func (m *ListModel) fetch(req *listing.PageRequest) tea.Cmd {
	if req == nil {
		return nil
	}
	c := m.controller
	return tea.Batch(m.spinner.Tick, func() tea.Msg {
		return pageLoadedMsg{resp: c.Fetch(req)}
	})
}

func (m *ListModel) delete(req *listing.DeleteRequest) tea.Cmd {
	if req == nil {
		return nil
	}
	c := m.controller
	return tea.Batch(m.spinner.Tick, func() tea.Msg {
		return contactDeletedMsg{resp: c.Delete(req)}
	})
}

func (m *ListModel) busy() bool {
	return m.controller.IsLoading() || m.controller.Deleting()
}

func (m *ListModel) current() (models.Contact, bool) {
	if m.selected < 0 || m.selected >= len(m.contacts) {
		return models.Contact{}, false
	}
	return m.contacts[m.selected], true
}

// refresh copies the controller's contacts and re-renders the rows.
func (m *ListModel) refresh() {
	m.contacts = m.controller.Contacts()
	if m.selected >= len(m.contacts) {
		m.selected = max(len(m.contacts)-1, 0)
	}

	rows := make([]string, 0, len(m.contacts))
	for i, c := range m.contacts {
		line := utils.FormatContactRow(c, max(m.width-2, 1))
		if i == m.selected {
			rows = append(rows, utils.SelectedRowStyle.Width(max(m.width, 1)).Render("› "+line))
		} else {
			rows = append(rows, utils.RowStyle.Render("  "+line))
		}
	}
	m.viewport.SetContent(strings.Join(rows, "\n"))

	switch {
	case m.selected < m.viewport.YOffset:
		m.viewport.SetYOffset(m.selected)
	case m.selected >= m.viewport.YOffset+m.viewport.Height:
		m.viewport.SetYOffset(m.selected - m.viewport.Height + 1)
	}
}

func (m *ListModel) View() string {
	var content strings.Builder

	title := "Contacts"
	if search := m.controller.Search(); search != "" {
		title += fmt.Sprintf(" matching %q", search)
	}
	content.WriteString(utils.HeaderStyle.Width(max(m.width, 1)).Render(title))
	content.WriteString("\n")

	searchStyle := utils.InputStyle
	if m.searchInput.Focused() {
		searchStyle = utils.FocusedInputStyle
	}
	content.WriteString(searchStyle.Render(m.searchInput.View()))
	content.WriteString("\n")

	if m.confirm != nil {
		content.WriteString(m.renderConfirm())
		return content.String()
	}

	switch {
	case len(m.contacts) == 0 && m.controller.Deleting():
		content.WriteString(utils.SpinnerStyle.Render(m.spinner.View() + " Deleting contact..."))
	case len(m.contacts) == 0 && m.controller.IsLoading():
		content.WriteString(utils.SpinnerStyle.Render(m.spinner.View() + " Loading contacts..."))
	case len(m.contacts) == 0:
		if m.controller.Search() != "" {
			content.WriteString(utils.MutedStyle.Render("No contacts found matching your search."))
		} else {
			content.WriteString(utils.MutedStyle.Render("No contacts yet. Press n to create your first contact."))
		}
	default:
		content.WriteString(m.viewport.View())
	}
	content.WriteString("\n")
	content.WriteString(m.renderFooter())

	return content.String()
}

func (m *ListModel) renderFooter() string {
	total, _ := m.controller.TotalPages()
	complete := m.controller.State() == listing.LoadedComplete
	status := utils.FormatPageIndicator(len(m.contacts), m.controller.CurrentPage(), total, complete)
	if m.controller.IsLoading() && len(m.contacts) > 0 {
		status += "  " + m.spinner.View() + " loading more"
	}

	controls := "[↑↓] Move [Enter] View [N]ew [E]dit [D]elete [/] Search [R]eload [Q]uit"
	return lipgloss.JoinVertical(
		lipgloss.Left,
		utils.MutedStyle.Padding(0, 1).Render(status),
		utils.HelpStyle.Padding(0, 1).Render(controls),
	)
}

func (m *ListModel) renderConfirm() string {
	c := m.confirm
	details := []utils.Detail{
		{Label: "Name", Value: c.Name},
	}
	if phone := c.PrimaryPhone(); phone != "" {
		details = append(details, utils.Detail{Label: "Phone", Value: phone})
	}
	if email := c.PrimaryEmail(); email != "" {
		details = append(details, utils.Detail{Label: "Email", Value: email})
	}

	text := utils.FormatConfirmationText("delete contact", details)
	warning := utils.ErrorTextStyle.Render("This action cannot be undone.")
	help := utils.HelpStyle.Render("[Y] Yes, Delete [N] Cancel [Esc] Cancel")
	return utils.WarningBoxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, text, "", warning, "", help))
}

// Controller exposes the list state, mostly for tests.
func (m *ListModel) Controller() *listing.Controller {
	return m.controller
}

func (m *ListModel) Selected() (models.Contact, bool) {
	return m.current()
}

func (m *ListModel) Confirming() *models.Contact {
	return m.confirm
}
