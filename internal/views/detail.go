package views

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"rhystmorgan/contactbook/internal/listing"
	"rhystmorgan/contactbook/internal/models"
	"rhystmorgan/contactbook/internal/session"
	"rhystmorgan/contactbook/internal/utils"
)

type contactLoadedMsg struct {
	id      int
	contact models.Contact
	err     error
}

// DetailModel shows a single contact.
type DetailModel struct {
	store   ContactStore
	scope   *session.Scope
	logger  *slog.Logger
	spinner spinner.Model

	id      int
	contact *models.Contact
	err     error

	width  int
	height int
}

func NewDetailModel(store ContactStore, id int, scope *session.Scope, logger *slog.Logger) *DetailModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = utils.SpinnerStyle

	return &DetailModel{
		store:   store,
		scope:   scope,
		logger:  logger,
		spinner: s,
		id:      id,
	}
}

func (m *DetailModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, loadContact(m.store, m.scope, m.id))
}

func (m *DetailModel) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m *DetailModel) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case contactLoadedMsg:
		if msg.id != m.id {
			return nil
		}
		if msg.err != nil {
			m.err = msg.err
			m.logger.Warn("failed to load contact", "id", msg.id, "error", msg.err)
			return nil
		}
		c := msg.contact
		m.contact = &c

	case spinner.TickMsg:
		if m.contact != nil || m.err != nil {
			return nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return cmd

	case tea.KeyMsg:
		switch msg.String() {
		case "esc", "backspace", "q":
			return NavigateTo(ViewList, ListIntent{})
		case "e":
			if m.contact != nil {
				return NavigateTo(ViewEdit, m.contact.ID)
			}
		case "d":
			if m.contact != nil {
				c := *m.contact
				return NavigateTo(ViewList, ListIntent{Confirm: &c})
			}
		case "r":
			if m.err != nil {
				m.err = nil
				return tea.Batch(m.spinner.Tick, loadContact(m.store, m.scope, m.id))
			}
		}
	}
	return nil
}

func (m *DetailModel) View() string {
	var content strings.Builder

	content.WriteString(utils.HeaderStyle.Width(max(m.width, 1)).Render("Contact Details"))
	content.WriteString("\n\n")

	switch {
	case m.err != nil:
		content.WriteString(utils.ErrorTextStyle.Render("✗ " + listing.ErrorMessage(m.err)))
		content.WriteString("\n\n")
		content.WriteString(utils.HelpStyle.Render("[R] Retry [Esc] Back"))
		return content.String()
	case m.contact == nil:
		content.WriteString(utils.SpinnerStyle.Render(m.spinner.View() + " Loading contact..."))
		return content.String()
	}

	c := m.contact
	section := func(label string, lines []string) {
		content.WriteString(utils.LabelStyle.Render(label))
		content.WriteString("\n")
		if len(lines) == 0 {
			content.WriteString(utils.MutedStyle.Render("  none"))
			content.WriteString("\n")
		}
		for _, line := range lines {
			content.WriteString("  " + utils.RowStyle.Render(line) + "\n")
		}
		content.WriteString("\n")
	}

	nameStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(utils.Colours.Text))
	content.WriteString(nameStyle.Render(c.Name))
	content.WriteString(utils.MutedStyle.Render(fmt.Sprintf("  #%d", c.ID)))
	content.WriteString("\n\n")

	phones := make([]string, 0, len(c.Phones))
	for _, p := range c.Phones {
		phones = append(phones, p.PhoneNumber)
	}
	section(fmt.Sprintf("Phones (%d)", len(phones)), phones)

	emails := make([]string, 0, len(c.Emails))
	for _, e := range c.Emails {
		emails = append(emails, e.Email)
	}
	section(fmt.Sprintf("Emails (%d)", len(emails)), emails)

	addresses := make([]string, 0, len(c.Addresses))
	for _, a := range c.Addresses {
		addresses = append(addresses, a.String())
	}
	section(fmt.Sprintf("Addresses (%d)", len(addresses)), addresses)

	content.WriteString(utils.HelpStyle.Render("[E]dit [D]elete [Esc] Back"))
	return content.String()
}

func (m *DetailModel) Contact() *models.Contact {
	return m.contact
}

func loadContact(store ContactStore, scope *session.Scope, id int) tea.Cmd {
	ctx, cancel := scope.Child()
	return func() tea.Msg {
		defer cancel()
		c, err := store.FetchContact(ctx, id)
		return contactLoadedMsg{id: id, contact: c, err: err}
	}
}
