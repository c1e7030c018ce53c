package views

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"rhystmorgan/contactbook/internal/config"
	"rhystmorgan/contactbook/internal/form"
	"rhystmorgan/contactbook/internal/listing"
	"rhystmorgan/contactbook/internal/models"
	"rhystmorgan/contactbook/internal/notify"
	"rhystmorgan/contactbook/internal/session"
	"rhystmorgan/contactbook/internal/utils"
	"rhystmorgan/contactbook/internal/validation"
)

const (
	MessageContactAdded   = "Contact added successfully"
	MessageContactUpdated = "Contact updated successfully"
)

// linesPerField is the height of one rendered input: label, bordered box
// and hint.
const linesPerField = 5

type contactSavedMsg struct {
	mode    form.Mode
	contact models.Contact
	err     error
}

// FormModel edits a contact through form.Form, one text input per field.
type FormModel struct {
	store  ContactStore
	toasts *notify.Center
	scope  *session.Scope
	config *config.Config
	logger *slog.Logger

	form    *form.Form
	refs    []form.FieldRef
	inputs  []textinput.Model
	touched map[string]bool
	focus   int

	mode      form.Mode
	contactID int
	loading   bool
	saving    bool
	submitted bool
	loadErr   error
	spinner   spinner.Model

	width  int
	height int
}

func newFormModel(store ContactStore, toasts *notify.Center, scope *session.Scope, cfg *config.Config, logger *slog.Logger) *FormModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = utils.SpinnerStyle

	return &FormModel{
		store:   store,
		toasts:  toasts,
		scope:   scope,
		config:  cfg,
		logger:  logger,
		touched: make(map[string]bool),
		spinner: s,
	}
}

func NewCreateFormModel(store ContactStore, toasts *notify.Center, scope *session.Scope, cfg *config.Config, logger *slog.Logger) *FormModel {
	m := newFormModel(store, toasts, scope, cfg, logger)
	m.mode = form.ModeCreate
	m.form = form.New()
	m.rebuild()
	return m
}

// NewEditFormModel loads contact id before showing the form.
func NewEditFormModel(store ContactStore, id int, toasts *notify.Center, scope *session.Scope, cfg *config.Config, logger *slog.Logger) *FormModel {
	m := newFormModel(store, toasts, scope, cfg, logger)
	m.mode = form.ModeEdit
	m.contactID = id
	m.loading = true
	return m
}

func (m *FormModel) Init() tea.Cmd {
	if m.loading {
		return tea.Batch(m.spinner.Tick, loadContact(m.store, m.scope, m.contactID))
	}
	return m.focusCurrent()
}

func (m *FormModel) SetSize(width, height int) {
	m.width = width
	m.height = height
	for i := range m.inputs {
		m.inputs[i].Width = max(width-10, 10)
	}
}

func (m *FormModel) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case contactLoadedMsg:
		if !m.loading || msg.id != m.contactID {
			return nil
		}
		m.loading = false
		if msg.err != nil {
			m.loadErr = msg.err
			m.logger.Warn("failed to load contact for edit", "id", msg.id, "error", msg.err)
			return nil
		}
		m.form = form.FromContact(msg.contact)
		m.rebuild()
		return m.focusCurrent()

	case contactSavedMsg:
		return m.handleSaved(msg)

	case spinner.TickMsg:
		if !m.loading && !m.saving {
			return nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return cmd

	case tea.KeyMsg:
		if msg.String() == "esc" {
			return NavigateTo(ViewList, ListIntent{})
		}
		if m.form == nil || m.saving {
			return nil
		}
		return m.updateKeys(msg)
	}

	return nil
}

func (m *FormModel) updateKeys(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "tab", "down":
		m.focus = (m.focus + 1) % len(m.inputs)
		return m.focusCurrent()

	case "shift+tab", "up":
		m.focus = (m.focus - 1 + len(m.inputs)) % len(m.inputs)
		return m.focusCurrent()

	case "enter":
		if m.focus < len(m.inputs)-1 {
			m.focus++
			return m.focusCurrent()
		}
		return m.submit()

	case "ctrl+s":
		return m.submit()

	case "ctrl+p":
		i := m.form.AddPhone()
		return m.focusRef(form.FieldRef{Collection: validation.FieldPhones, Index: i, Field: validation.FieldPhones})

	case "ctrl+e":
		i := m.form.AddEmail()
		return m.focusRef(form.FieldRef{Collection: validation.FieldEmails, Index: i, Field: validation.FieldEmails})

	case "ctrl+a":
		i := m.form.AddAddress()
		return m.focusRef(form.FieldRef{Collection: validation.FieldAddresses, Index: i, Field: validation.FieldAddress})

	case "ctrl+x":
		ref := m.refs[m.focus]
		if ref.Collection == "" {
			return nil
		}
		if err := m.form.Remove(ref); err != nil {
			m.logger.Warn("failed to remove form entry", "path", ref.Path(), "error", err)
			return nil
		}
		// Paths after the removed entry shift down by one.
		m.touched = make(map[string]bool)
		m.rebuild()
		return m.focusCurrent()
	}

	var cmd tea.Cmd
	ref := m.refs[m.focus]
	before := m.inputs[m.focus].Value()
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	if value := m.inputs[m.focus].Value(); value != before {
		if err := m.form.Set(ref, value); err != nil {
			m.logger.Warn("failed to set form field", "path", ref.Path(), "error", err)
		}
		m.touched[ref.Path()] = true
	}
	return cmd
}

func (m *FormModel) submit() tea.Cmd {
	m.submitted = true
	payload, err := m.form.Submit()
	if err != nil {
		_ = m.form.Validate()

		var verr *validation.ValidationError
		if errors.As(err, &verr) {
			for i, ref := range m.refs {
				if ref.Path() == verr.Path {
					m.focus = i
					break
				}
			}
		}
		m.toasts.As(notify.KindError).Notify(err.Error(), toastFor(m.config.InfoToast, notify.DefaultInfoDuration))
		return m.focusCurrent()
	}

	m.saving = true
	m.logger.Debug("submitting contact", "mode", m.mode.String(), "id", m.contactID)
	return tea.Batch(m.spinner.Tick, m.save(payload))
}

func (m *FormModel) save(payload models.Payload) tea.Cmd {
	ctx, cancel := m.scope.Child()
	store, mode, id := m.store, m.mode, m.contactID
	return func() tea.Msg {
		defer cancel()

		var (
			contact models.Contact
			err     error
		)
		if mode == form.ModeEdit {
			contact, err = store.UpdateContact(ctx, id, payload)
		} else {
			contact, err = store.CreateContact(ctx, payload)
		}
		return contactSavedMsg{mode: mode, contact: contact, err: err}
	}
}

func (m *FormModel) handleSaved(msg contactSavedMsg) tea.Cmd {
	m.saving = false
	if msg.err != nil {
		m.logger.Warn("failed to save contact", "mode", msg.mode.String(), "id", m.contactID, "error", msg.err)
		m.toasts.As(notify.KindError).Notify(listing.ErrorMessage(msg.err), toastFor(m.config.ErrorToast, notify.DefaultErrorDuration))
		return nil
	}

	text := MessageContactAdded
	if msg.mode == form.ModeEdit {
		text = MessageContactUpdated
	}
	m.logger.Info("contact saved", "mode", msg.mode.String(), "id", msg.contact.ID)
	m.toasts.As(notify.KindSuccess).Notify(text, toastFor(m.config.InfoToast, notify.DefaultInfoDuration))
	return GoToListView()
}

// rebuild recreates the inputs from the form, keeping the focus index in
// range.
func (m *FormModel) rebuild() {
	m.refs = m.form.Refs()
	m.inputs = make([]textinput.Model, len(m.refs))
	for i, ref := range m.refs {
		state, _ := m.form.State(ref)
		input := textinput.New()
		input.Prompt = ""
		input.Placeholder = placeholder(ref)
		input.CharLimit = 100
		if n := validation.MaxLength(ref.Field); n > 0 {
			input.CharLimit = n
		}
		input.Width = max(m.width-10, 10)
		input.TextStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(utils.Colours.Text))
		input.SetValue(state.Value)
		m.inputs[i] = input
	}
	if m.focus >= len(m.inputs) {
		m.focus = len(m.inputs) - 1
	}
	if m.focus < 0 {
		m.focus = 0
	}
}

func (m *FormModel) focusRef(ref form.FieldRef) tea.Cmd {
	m.rebuild()
	for i, r := range m.refs {
		if r == ref {
			m.focus = i
			break
		}
	}
	return m.focusCurrent()
}

func (m *FormModel) focusCurrent() tea.Cmd {
	var cmd tea.Cmd
	for i := range m.inputs {
		if i == m.focus {
			cmd = m.inputs[i].Focus()
		} else {
			m.inputs[i].Blur()
		}
	}
	return cmd
}

func placeholder(ref form.FieldRef) string {
	switch ref.Field {
	case validation.FieldName:
		return "Full name"
	case validation.FieldPhones:
		return "+15550100"
	case validation.FieldEmails:
		return "someone@example.com"
	case validation.FieldAddress:
		return "1 Main Street"
	case validation.FieldPostalCode:
		return "97477"
	default:
		return validation.FieldLabel(ref.Field)
	}
}

func (m *FormModel) View() string {
	var content strings.Builder

	title := "New Contact"
	if m.mode == form.ModeEdit {
		title = "Edit Contact"
	}
	content.WriteString(utils.HeaderStyle.Width(max(m.width, 1)).Render(title))
	content.WriteString("\n\n")

	switch {
	case m.loadErr != nil:
		content.WriteString(utils.ErrorTextStyle.Render("✗ " + listing.ErrorMessage(m.loadErr)))
		content.WriteString("\n\n")
		content.WriteString(utils.HelpStyle.Render("[Esc] Back"))
		return content.String()
	case m.loading || m.form == nil:
		content.WriteString(utils.SpinnerStyle.Render(m.spinner.View() + " Loading contact..."))
		return content.String()
	}

	phones, emails, addresses := m.form.Counts()
	summary := fmt.Sprintf("%s, %s, %s",
		utils.Plural(phones, "phone"), utils.Plural(emails, "email"), utils.Plural(addresses, "address"))
	content.WriteString(utils.MutedStyle.Render(summary))
	content.WriteString("\n\n")

	start, end := m.window()
	if start > 0 {
		content.WriteString(utils.MutedStyle.Render(fmt.Sprintf("  ↑ %d more", start)))
		content.WriteString("\n")
	}
	for i := start; i < end; i++ {
		content.WriteString(m.renderField(i))
		content.WriteString("\n")
	}
	if end < len(m.inputs) {
		content.WriteString(utils.MutedStyle.Render(fmt.Sprintf("  ↓ %d more", len(m.inputs)-end)))
		content.WriteString("\n")
	}

	if m.saving {
		content.WriteString(utils.SpinnerStyle.Render(m.spinner.View() + " Saving..."))
		content.WriteString("\n")
	}

	controls := "[Tab] Next [Shift+Tab] Previous [Ctrl+P] Add phone [Ctrl+E] Add email [Ctrl+A] Add address [Ctrl+X] Remove [Ctrl+S] Save [Esc] Cancel"
	content.WriteString(utils.HelpStyle.Render(controls))
	return content.String()
}

// window returns the range of inputs that fit on screen around the focus.
func (m *FormModel) window() (int, int) {
	visible := len(m.inputs)
	if m.height > 0 {
		visible = max((m.height-8)/linesPerField, 1)
	}
	if visible >= len(m.inputs) {
		return 0, len(m.inputs)
	}
	start := m.focus - visible/2
	start = max(min(start, len(m.inputs)-visible), 0)
	return start, start + visible
}

func (m *FormModel) renderField(i int) string {
	ref := m.refs[i]
	state, _ := m.form.State(ref)
	showErr := !state.Valid && (m.submitted || m.touched[ref.Path()])

	style := utils.InputStyle
	switch {
	case showErr:
		style = utils.InvalidInputStyle
	case i == m.focus:
		style = utils.FocusedInputStyle
	}

	var b strings.Builder
	b.WriteString(utils.LabelStyle.Render(ref.Label()))
	b.WriteString("\n")
	b.WriteString(style.Render(m.inputs[i].View()))
	b.WriteString("\n")
	if showErr {
		b.WriteString(utils.ErrorTextStyle.Render("  " + state.Message(ref.Field)))
	}
	return b.String()
}

func (m *FormModel) Form() *form.Form {
	return m.form
}

func (m *FormModel) Focused() form.FieldRef {
	if m.focus < 0 || m.focus >= len(m.refs) {
		return form.FieldRef{}
	}
	return m.refs[m.focus]
}

func (m *FormModel) Saving() bool {
	return m.saving
}
