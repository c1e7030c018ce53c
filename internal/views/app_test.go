package views

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rhystmorgan/contactbook/internal/api"
	"rhystmorgan/contactbook/internal/config"
	"rhystmorgan/contactbook/internal/listing"
	"rhystmorgan/contactbook/internal/models"
	"rhystmorgan/contactbook/internal/notify"
	"rhystmorgan/contactbook/internal/validation"
)

type storeCall struct {
	Op     string
	Search string
	Page   int
	ID     int
}

type fakeStore struct {
	mu       sync.Mutex
	contacts []models.Contact
	nextID   int
	pageSize int
	fetchErr error
	saveErr  error
	calls    []storeCall
}

func newFakeStore(n int) *fakeStore {
	s := &fakeStore{pageSize: 10, nextID: 1}
	for i := 0; i < n; i++ {
		s.contacts = append(s.contacts, models.Contact{
			ID:     s.nextID,
			Name:   personName(s.nextID),
			Phones: []models.Phone{{PhoneNumber: "5550100"}},
			Emails: []models.Email{{Email: fmt.Sprintf("p%d@example.com", s.nextID)}},
			Addresses: []models.Address{
				{Address: "1 Main Street", City: "Springfield", State: "Oregon", PostalCode: "97477"},
			},
		})
		s.nextID++
	}
	return s
}

// personName gives letter-only names so they pass the name pattern:
// 1 is "Person aab", 26 is "Person aba".
func personName(id int) string {
	code := []rune{rune('a' + id/676%26), rune('a' + id/26%26), rune('a' + id%26)}
	return "Person " + string(code)
}

func containsID(contacts []models.Contact, id int) bool {
	for _, c := range contacts {
		if c.ID == id {
			return true
		}
	}
	return false
}

func (s *fakeStore) record(c storeCall) {
	s.calls = append(s.calls, c)
}

func (s *fakeStore) Calls() []storeCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]storeCall(nil), s.calls...)
}

func (s *fakeStore) FetchContacts(_ context.Context, search string, page int) (models.PagedResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record(storeCall{Op: "list", Search: search, Page: page})
	if s.fetchErr != nil {
		return models.PagedResult{}, s.fetchErr
	}

	var matches []models.Contact
	for _, c := range s.contacts {
		if strings.Contains(strings.ToLower(c.Name), strings.ToLower(search)) {
			matches = append(matches, c)
		}
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].ID < matches[j].ID })

	lastPage := (len(matches) + s.pageSize - 1) / s.pageSize
	start := min((page-1)*s.pageSize, len(matches))
	end := min(start+s.pageSize, len(matches))
	return models.PagedResult{Data: append([]models.Contact{}, matches[start:end]...), LastPage: lastPage}, nil
}

func (s *fakeStore) FetchContact(_ context.Context, id int) (models.Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record(storeCall{Op: "get", ID: id})
	for _, c := range s.contacts {
		if c.ID == id {
			return c, nil
		}
	}
	return models.Contact{}, api.NewStatusError("fetch_contact", http.StatusNotFound, "Contact not found")
}

func (s *fakeStore) CreateContact(_ context.Context, p models.Payload) (models.Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record(storeCall{Op: "create"})
	if s.saveErr != nil {
		return models.Contact{}, s.saveErr
	}
	c := fromPayload(s.nextID, p)
	s.nextID++
	s.contacts = append(s.contacts, c)
	return c, nil
}

func (s *fakeStore) UpdateContact(_ context.Context, id int, p models.Payload) (models.Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record(storeCall{Op: "update", ID: id})
	if s.saveErr != nil {
		return models.Contact{}, s.saveErr
	}
	for i, c := range s.contacts {
		if c.ID == id {
			s.contacts[i] = fromPayload(id, p)
			return s.contacts[i], nil
		}
	}
	return models.Contact{}, api.NewStatusError("update_contact", http.StatusNotFound, "Contact not found")
}

func (s *fakeStore) DeleteContact(_ context.Context, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record(storeCall{Op: "delete", ID: id})
	for i, c := range s.contacts {
		if c.ID == id {
			s.contacts = append(s.contacts[:i], s.contacts[i+1:]...)
			return nil
		}
	}
	return api.NewStatusError("delete_contact", http.StatusNotFound, "Contact not found")
}

func (s *fakeStore) Contact(id int) (models.Contact, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.contacts {
		if c.ID == id {
			return c, true
		}
	}
	return models.Contact{}, false
}

func fromPayload(id int, p models.Payload) models.Contact {
	c := models.Contact{ID: id, Name: p.Name, Addresses: append([]models.Address{}, p.Addresses...)}
	for _, phone := range p.Phones {
		c.Phones = append(c.Phones, models.Phone{PhoneNumber: phone})
	}
	for _, email := range p.Emails {
		c.Emails = append(c.Emails, models.Email{Email: email})
	}
	return c
}

// collect runs cmd and returns the messages it produces. Commands that do
// not return promptly are timers (toast expiry, cursor blink) and are
// dropped.
func collect(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	ch := make(chan tea.Msg, 1)
	go func() { ch <- cmd() }()

	select {
	case msg := <-ch:
		if batch, ok := msg.(tea.BatchMsg); ok {
			var out []tea.Msg
			for _, c := range batch {
				out = append(out, collect(c)...)
			}
			return out
		}
		if msg == nil {
			return nil
		}
		return []tea.Msg{msg}
	case <-time.After(100 * time.Millisecond):
		return nil
	}
}

// pump feeds cmd's messages back into the app until nothing is left.
func pump(t *testing.T, app *AppModel, cmd tea.Cmd) {
	t.Helper()
	queue := collect(cmd)
	for steps := 0; len(queue) > 0; steps++ {
		require.Less(t, steps, 200, "message loop did not settle")
		msg := queue[0]
		queue = queue[1:]
		switch msg.(type) {
		case spinner.TickMsg, notify.ExpiredMsg, tea.QuitMsg:
			continue
		}
		_, next := app.Update(msg)
		queue = append(queue, collect(next)...)
	}
}

func send(t *testing.T, app *AppModel, msg tea.Msg) {
	t.Helper()
	_, cmd := app.Update(msg)
	pump(t, app, cmd)
}

func keyType(kt tea.KeyType) tea.KeyMsg {
	return tea.KeyMsg{Type: kt}
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func newTestApp(t *testing.T, store *fakeStore) (*AppModel, *notify.Center) {
	t.Helper()
	center := notify.NewCenter(notify.WithMaxShown(10))
	app := NewAppModel(store, config.GetDefaultConfig(), WithToasts(center))
	t.Cleanup(app.shutdown)

	pump(t, app, app.Init())
	send(t, app, tea.WindowSizeMsg{Width: 100, Height: 30})
	return app, center
}

func toastMessages(center *notify.Center) []string {
	var out []string
	for _, toast := range center.Active() {
		out = append(out, toast.Message)
	}
	return out
}

func listCalls(calls []storeCall) []storeCall {
	var out []storeCall
	for _, c := range calls {
		if c.Op == "list" {
			out = append(out, c)
		}
	}
	return out
}

func TestListFillsViewportThenStops(t *testing.T) {
	store := newFakeStore(100)
	app, _ := newTestApp(t, store)

	ctrl := app.list.Controller()
	// 19 visible rows and a 10 row threshold need 29 rows, i.e. three pages.
	assert.Len(t, ctrl.Contacts(), 30)
	assert.Equal(t, listing.LoadedPartial, ctrl.State())
	assert.Equal(t, 4, ctrl.CurrentPage())
	assert.False(t, ctrl.IsLoading())

	calls := listCalls(store.Calls())
	require.Len(t, calls, 3)
	for i, c := range calls {
		assert.Equal(t, i+1, c.Page)
		assert.Equal(t, "", c.Search)
	}
}

func TestScrollingNearBottomLoadsNextPage(t *testing.T) {
	store := newFakeStore(100)
	app, _ := newTestApp(t, store)
	ctrl := app.list.Controller()

	for i := 0; i < 19; i++ {
		send(t, app, keyType(tea.KeyDown))
	}
	assert.Len(t, ctrl.Contacts(), 30, "not yet within the threshold")

	send(t, app, keyType(tea.KeyDown))
	assert.Len(t, ctrl.Contacts(), 40)
	selected, ok := app.list.Selected()
	require.True(t, ok)
	assert.Equal(t, 21, selected.ID)
}

func TestListLoadsEverythingWhenShort(t *testing.T) {
	store := newFakeStore(12)
	app, _ := newTestApp(t, store)

	ctrl := app.list.Controller()
	assert.Len(t, ctrl.Contacts(), 12)
	assert.Equal(t, listing.LoadedComplete, ctrl.State())
	assert.Contains(t, app.View(), "12 contacts, all 2 pages loaded")
}

func TestSearchResetsList(t *testing.T) {
	store := newFakeStore(30)
	app, _ := newTestApp(t, store)

	send(t, app, runes("/"))
	send(t, app, runes("person ab"))

	ctrl := app.list.Controller()
	assert.Equal(t, "person ab", ctrl.Search())
	contacts := ctrl.Contacts()
	require.Len(t, contacts, 5)
	for _, c := range contacts {
		assert.Contains(t, strings.ToLower(c.Name), "person ab")
	}
	assert.Equal(t, listing.LoadedComplete, ctrl.State())

	calls := listCalls(store.Calls())
	last := calls[len(calls)-1]
	assert.Equal(t, "person ab", last.Search)
	assert.Equal(t, 1, last.Page)

	send(t, app, keyType(tea.KeyEsc))
	send(t, app, keyType(tea.KeyEsc))
	assert.Equal(t, "", ctrl.Search())
	assert.Len(t, ctrl.Contacts(), 30)
}

func TestFetchErrorShowsServerMessage(t *testing.T) {
	store := newFakeStore(5)
	store.fetchErr = api.NewStatusError("fetch_contacts", http.StatusServiceUnavailable, "Database unavailable")
	app, center := newTestApp(t, store)

	ctrl := app.list.Controller()
	assert.Empty(t, ctrl.Contacts())
	assert.Equal(t, listing.Idle, ctrl.State())
	assert.Contains(t, toastMessages(center), "Database unavailable")

	toasts := center.Active()
	require.NotEmpty(t, toasts)
	assert.Equal(t, notify.KindError, toasts[0].Kind)
	assert.Equal(t, 5*time.Second, toasts[0].Duration)

	// Failure keeps the page; a reload tries it again.
	store.mu.Lock()
	store.fetchErr = nil
	store.mu.Unlock()
	send(t, app, runes("r"))
	assert.Len(t, ctrl.Contacts(), 5)
}

func TestDeleteConfirmThenReload(t *testing.T) {
	store := newFakeStore(25)
	app, _ := newTestApp(t, store)
	ctrl := app.list.Controller()

	send(t, app, keyType(tea.KeyDown))
	send(t, app, runes("d"))
	require.NotNil(t, app.list.Confirming())
	assert.Equal(t, 2, app.list.Confirming().ID)
	assert.Contains(t, app.View(), "Confirm delete contact")

	before := len(store.Calls())
	send(t, app, runes("y"))

	_, found := store.Contact(2)
	assert.False(t, found)
	assert.False(t, containsID(ctrl.Contacts(), 2))
	assert.Len(t, ctrl.Contacts(), 24)
	assert.False(t, ctrl.Deleting())

	calls := store.Calls()[before:]
	require.NotEmpty(t, calls)
	assert.Equal(t, storeCall{Op: "delete", ID: 2}, calls[0])
	assert.Equal(t, storeCall{Op: "list", Page: 1}, calls[1])
}

func TestDeleteCancel(t *testing.T) {
	store := newFakeStore(3)
	app, _ := newTestApp(t, store)

	send(t, app, runes("d"))
	require.NotNil(t, app.list.Confirming())
	send(t, app, keyType(tea.KeyEsc))
	assert.Nil(t, app.list.Confirming())

	_, found := store.Contact(1)
	assert.True(t, found)
}

func TestDetailAndBack(t *testing.T) {
	store := newFakeStore(3)
	app, _ := newTestApp(t, store)

	send(t, app, keyType(tea.KeyEnter))
	assert.Equal(t, ViewDetail, app.State())
	require.NotNil(t, app.detail.Contact())
	assert.Equal(t, 1, app.detail.Contact().ID)
	assert.Contains(t, app.View(), personName(1))
	assert.Contains(t, app.sessions.Active(), "detail")

	lists := len(listCalls(store.Calls()))
	send(t, app, keyType(tea.KeyEsc))
	assert.Equal(t, ViewList, app.State())
	assert.Len(t, listCalls(store.Calls()), lists, "going back does not reload")
	assert.NotContains(t, app.sessions.Active(), "detail")
}

func TestCreateRejectsInvalidThenSaves(t *testing.T) {
	store := newFakeStore(2)
	app, center := newTestApp(t, store)

	send(t, app, runes("n"))
	require.Equal(t, ViewCreate, app.State())

	send(t, app, runes("Grace Hopper"))
	send(t, app, keyType(tea.KeyCtrlS))

	assert.Equal(t, ViewCreate, app.State())
	want := validation.Message(validation.FieldPhones, validation.ViolationRequired)
	assert.Contains(t, toastMessages(center), want)
	assert.Equal(t, "phones.0", app.form.Focused().Path())
	for _, c := range store.Calls() {
		assert.NotEqual(t, "create", c.Op)
	}

	values := []string{"+15550100", "grace@example.com", "1 Navy Yard", "Arlington", "Virginia", "22202"}
	for _, v := range values {
		send(t, app, runes(v))
		send(t, app, keyType(tea.KeyTab))
	}
	send(t, app, keyType(tea.KeyCtrlS))

	assert.Equal(t, ViewList, app.State())
	assert.Contains(t, toastMessages(center), MessageContactAdded)

	created, found := store.Contact(3)
	require.True(t, found)
	assert.Equal(t, "Grace Hopper", created.Name)
	assert.Equal(t, []models.Phone{{PhoneNumber: "+15550100"}}, created.Phones)
	assert.Equal(t, "Arlington", created.Addresses[0].City)

	// Back on the list, page 1 is reloaded and shows the new contact.
	assert.True(t, containsID(app.list.Controller().Contacts(), 3))
}

func TestCreateAddAndRemoveEntries(t *testing.T) {
	store := newFakeStore(0)
	app, _ := newTestApp(t, store)

	send(t, app, runes("n"))
	send(t, app, keyType(tea.KeyCtrlP))
	phones, _, _ := app.form.Form().Counts()
	assert.Equal(t, 2, phones)
	assert.Equal(t, "phones.1", app.form.Focused().Path())

	send(t, app, keyType(tea.KeyCtrlX))
	phones, _, _ = app.form.Form().Counts()
	assert.Equal(t, 1, phones)

	send(t, app, keyType(tea.KeyCtrlA))
	_, _, addresses := app.form.Form().Counts()
	assert.Equal(t, 2, addresses)
	assert.Equal(t, "addresses.1.address", app.form.Focused().Path())
}

func TestEditUpdatesContact(t *testing.T) {
	store := newFakeStore(3)
	app, center := newTestApp(t, store)

	send(t, app, runes("e"))
	require.Equal(t, ViewEdit, app.State())
	require.NotNil(t, app.form.Form())
	assert.Equal(t, personName(1), app.form.Form().Name.Value)

	send(t, app, runes(" Jr"))
	send(t, app, keyType(tea.KeyCtrlS))

	assert.Equal(t, ViewList, app.State())
	assert.Contains(t, toastMessages(center), MessageContactUpdated)
	updated, _ := store.Contact(1)
	assert.Equal(t, personName(1)+" Jr", updated.Name)
}

func TestSaveFailureStaysOnForm(t *testing.T) {
	store := newFakeStore(1)
	store.saveErr = api.NewStatusError("update_contact", http.StatusUnprocessableEntity, "The name has already been taken.")
	app, center := newTestApp(t, store)

	send(t, app, runes("e"))
	send(t, app, keyType(tea.KeyCtrlS))

	assert.Equal(t, ViewEdit, app.State())
	assert.False(t, app.form.Saving())
	assert.Contains(t, toastMessages(center), "The name has already been taken.")
}

func TestEditMissingContact(t *testing.T) {
	store := newFakeStore(1)
	app, _ := newTestApp(t, store)

	send(t, app, NavigateMsg{State: ViewEdit, Data: 99})
	assert.Equal(t, ViewEdit, app.State())
	assert.Nil(t, app.form.Form())
	assert.Contains(t, app.View(), "Contact not found")
}

func TestErrorMsgBecomesToast(t *testing.T) {
	store := newFakeStore(1)
	app, center := newTestApp(t, store)

	send(t, app, ErrorMsg{Err: fmt.Errorf("boom")})
	assert.Contains(t, toastMessages(center), listing.FallbackMessage)
}

func TestQuitClosesSessions(t *testing.T) {
	store := newFakeStore(1)
	app, _ := newTestApp(t, store)

	_, cmd := app.Update(runes("q"))
	assert.Contains(t, collect(cmd), tea.Msg(quitMsg{}))

	_, cmd = app.Update(quitMsg{})
	assert.Contains(t, collect(cmd), tea.Msg(tea.QuitMsg{}))
	assert.True(t, app.list.Controller().Closed())
	assert.Empty(t, app.sessions.Active())
}

func TestPageLoadFinishingBehindDetailView(t *testing.T) {
	store := newFakeStore(100)
	app, _ := newTestApp(t, store)
	ctrl := app.list.Controller()

	for i := 0; i < 19; i++ {
		send(t, app, keyType(tea.KeyDown))
	}
	// This step starts page 4; hold its completion until the detail view is up.
	_, held := app.Update(keyType(tea.KeyDown))
	require.True(t, ctrl.IsLoading())

	send(t, app, keyType(tea.KeyEnter))
	require.Equal(t, ViewDetail, app.State())
	assert.Equal(t, 21, app.detail.Contact().ID)

	pump(t, app, held)
	assert.False(t, ctrl.IsLoading())
	assert.Len(t, ctrl.Contacts(), 40)

	send(t, app, keyType(tea.KeyEsc))
	require.Equal(t, ViewList, app.State())
	selected, ok := app.list.Selected()
	require.True(t, ok)
	assert.Equal(t, 21, selected.ID)

	send(t, app, keyType(tea.KeyPgDown))
	assert.Len(t, ctrl.Contacts(), 50, "scrolling keeps loading pages")
}

func TestDeleteFinishingBehindCreateForm(t *testing.T) {
	store := newFakeStore(25)
	app, _ := newTestApp(t, store)
	ctrl := app.list.Controller()

	send(t, app, runes("d"))
	require.NotNil(t, app.list.Confirming())
	_, held := app.Update(runes("y"))
	require.True(t, ctrl.Deleting())

	send(t, app, runes("n"))
	require.Equal(t, ViewCreate, app.State())

	pump(t, app, held)
	assert.False(t, ctrl.Deleting())
	assert.False(t, ctrl.IsLoading())

	send(t, app, keyType(tea.KeyEsc))
	require.Equal(t, ViewList, app.State())
	_, found := store.Contact(1)
	assert.False(t, found)
	assert.False(t, containsID(ctrl.Contacts(), 1))
	assert.Len(t, ctrl.Contacts(), 24)

	before := len(listCalls(store.Calls()))
	send(t, app, runes("r"))
	calls := listCalls(store.Calls())
	require.Greater(t, len(calls), before, "reload is not blocked by a stale delete")
	assert.Equal(t, 1, calls[before].Page)
	assert.Len(t, ctrl.Contacts(), 24)
}

func TestMouseWheelKeepsPositionAcrossPageLoad(t *testing.T) {
	store := newFakeStore(100)
	app, _ := newTestApp(t, store)
	ctrl := app.list.Controller()
	wheel := tea.MouseMsg{Action: tea.MouseActionPress, Button: tea.MouseButtonWheelDown}

	for i := 0; i < 6; i++ {
		send(t, app, wheel)
	}
	assert.Len(t, ctrl.Contacts(), 30, "not yet within the threshold")

	send(t, app, wheel)
	assert.Len(t, ctrl.Contacts(), 40)
	selected, ok := app.list.Selected()
	require.True(t, ok)
	assert.Equal(t, 22, selected.ID)
	assert.Equal(t, 3, app.list.viewport.YOffset)

	send(t, app, tea.MouseMsg{Action: tea.MouseActionPress, Button: tea.MouseButtonWheelUp})
	selected, _ = app.list.Selected()
	assert.Equal(t, 19, selected.ID)
	assert.Equal(t, 3, app.list.viewport.YOffset, "selection is still on screen")
}

func TestNavigateWithoutContactID(t *testing.T) {
	store := newFakeStore(2)
	app, center := newTestApp(t, store)

	send(t, app, NavigateMsg{State: ViewDetail, Data: "x"})
	assert.Equal(t, ViewList, app.State())
	assert.Nil(t, app.detail)
	assert.Contains(t, toastMessages(center), listing.FallbackMessage)

	send(t, app, NavigateMsg{State: ViewEdit})
	assert.Equal(t, ViewList, app.State())
	assert.Nil(t, app.form)
}

func TestCtrlLDismissesToasts(t *testing.T) {
	store := newFakeStore(1)
	app, center := newTestApp(t, store)

	center.Push(notify.KindInfo, "first", time.Minute)
	center.Push(notify.KindError, "second", time.Minute)
	require.Len(t, center.Active(), 2)

	send(t, app, keyType(tea.KeyCtrlL))
	assert.Empty(t, center.Active())
	assert.Equal(t, ViewList, app.State())
}

func TestExpiryAlsoDropsOverdueToasts(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	center := notify.NewCenter(notify.WithClock(func() time.Time { return now }))
	app := NewAppModel(newFakeStore(1), config.GetDefaultConfig(), WithToasts(center))
	t.Cleanup(app.shutdown)

	first := center.Push(notify.KindInfo, "first", time.Second)
	center.Push(notify.KindInfo, "overdue", time.Second)
	center.Push(notify.KindInfo, "later", time.Minute)

	now = now.Add(2 * time.Second)
	app.Update(notify.ExpiredMsg{ID: first})
	assert.Equal(t, []string{"later"}, toastMessages(center))
}
