package form

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rhystmorgan/contactbook/internal/models"
	"rhystmorgan/contactbook/internal/validation"
)

func sampleContact() models.Contact {
	return models.Contact{
		ID:   42,
		Name: "Ada Lovelace",
		Phones: []models.Phone{
			{PhoneNumber: "+441234567"},
			{PhoneNumber: "5550100"},
		},
		Emails: []models.Email{{Email: "ada@example.com"}},
		Addresses: []models.Address{
			{Address: "12 St James Square", City: "London", State: "Greater London", PostalCode: "SW1Y4"},
			{Address: "1 Analytical Way", City: "Marylebone", State: "London", PostalCode: "NW18"},
		},
	}
}

func fillValid(t *testing.T, f *Form) {
	t.Helper()
	f.SetName("Grace Hopper")
	require.NoError(t, f.SetPhone(0, "5550100"))
	require.NoError(t, f.SetEmail(0, "grace@example.com"))
	require.NoError(t, f.SetAddressField(0, "address", "1 Navy Yard"))
	require.NoError(t, f.SetAddressField(0, "city", "Arlington"))
	require.NoError(t, f.SetAddressField(0, "state", "Virginia"))
	require.NoError(t, f.SetAddressField(0, "postal_code", "22202"))
}

func TestNew(t *testing.T) {
	f := New()

	assert.Equal(t, ModeCreate, f.Mode)
	assert.Equal(t, "", f.Name.Value)
	phones, emails, addresses := f.Counts()
	assert.Equal(t, 1, phones)
	assert.Equal(t, 1, emails)
	assert.Equal(t, 1, addresses)
	assert.False(t, f.Name.Valid)
	assert.Equal(t, []validation.Violation{validation.ViolationRequired}, f.Name.Errors)
}

func TestFromContactRoundTrip(t *testing.T) {
	c := sampleContact()
	f := FromContact(c)

	assert.Equal(t, ModeEdit, f.Mode)
	assert.Equal(t, 42, f.ContactID)

	payload, err := f.Submit()
	require.NoError(t, err)

	if diff := cmp.Diff(models.PayloadFromContact(c), payload); diff != "" {
		t.Errorf("payload mismatch (-want +got):\n%s", diff)
	}
}

func TestFromContactEmptyCollections(t *testing.T) {
	f := FromContact(models.Contact{ID: 1, Name: "Solo"})

	phones, emails, addresses := f.Counts()
	assert.Zero(t, phones)
	assert.Zero(t, emails)
	assert.Zero(t, addresses)

	payload, err := f.Submit()
	require.NoError(t, err)
	assert.Equal(t, models.Payload{
		Name:      "Solo",
		Phones:    []string{},
		Emails:    []string{},
		Addresses: []models.Address{},
	}, payload)
}

func TestSubmitShortCircuits(t *testing.T) {
	f := New()
	fillValid(t, f)
	require.NoError(t, f.SetPhone(0, "abc"))
	f.AddEmail() // left empty
	require.NoError(t, f.SetAddressField(0, "city", "X"))

	_, err := f.Submit()
	require.Error(t, err)

	var verr *validation.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "phones.0", verr.Path)
	assert.Equal(t, validation.ViolationPattern, verr.Violation)
	assert.Equal(t, "Phone number is invalid. It should only contain numbers and may start with an optional international code (+xx).", verr.Message)
}

func TestSubmitOrder(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(t *testing.T, f *Form)
		path    string
		message string
	}{
		{
			name:    "name first",
			mutate:  func(t *testing.T, f *Form) { f.SetName("A") },
			path:    "name",
			message: "Name should be at least 2 characters long.",
		},
		{
			name: "second phone",
			mutate: func(t *testing.T, f *Form) {
				f.AddPhone()
			},
			path:    "phones.1",
			message: "Phone number is required.",
		},
		{
			name: "email before address",
			mutate: func(t *testing.T, f *Form) {
				require.NoError(t, f.SetEmail(0, ""))
				require.NoError(t, f.SetAddressField(0, "state", "1"))
			},
			path:    "emails.0",
			message: "Emails is required.",
		},
		{
			name: "address sub-field order",
			mutate: func(t *testing.T, f *Form) {
				require.NoError(t, f.SetAddressField(0, "postal_code", "1"))
				require.NoError(t, f.SetAddressField(0, "state", "N3w"))
			},
			path:    "addresses.0.state",
			message: "State should only contain letters and spaces.",
		},
		{
			name: "second address group",
			mutate: func(t *testing.T, f *Form) {
				i := f.AddAddress()
				require.NoError(t, f.SetAddressField(i, "address", "Main Street"))
				require.NoError(t, f.SetAddressField(i, "city", "Springfield"))
				require.NoError(t, f.SetAddressField(i, "state", "Oregon"))
				require.NoError(t, f.SetAddressField(i, "postal_code", "12345678901"))
			},
			path:    "addresses.1.postal_code",
			message: "Postal_code should not exceed 10 characters.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := New()
			fillValid(t, f)
			tt.mutate(t, f)

			_, err := f.Submit()
			var verr *validation.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.path, verr.Path)
			assert.Equal(t, tt.message, verr.Message)
		})
	}
}

func TestSubmitValid(t *testing.T) {
	f := New()
	fillValid(t, f)

	payload, err := f.Submit()
	require.NoError(t, err)
	assert.Equal(t, models.Payload{
		Name:   "Grace Hopper",
		Phones: []string{"5550100"},
		Emails: []string{"grace@example.com"},
		Addresses: []models.Address{
			{Address: "1 Navy Yard", City: "Arlington", State: "Virginia", PostalCode: "22202"},
		},
	}, payload)
}

func TestRemoveShiftsEntries(t *testing.T) {
	f := FromContact(models.Contact{
		Name:   "Order Test",
		Phones: []models.Phone{{PhoneNumber: "111"}, {PhoneNumber: "222"}, {PhoneNumber: "333"}},
	})

	require.NoError(t, f.RemovePhone(1))

	assert.Equal(t, []string{"111", "333"}, f.Payload().Phones)
}

func TestRemoveAddressKeepsGroupsIndependent(t *testing.T) {
	f := FromContact(sampleContact())
	require.NoError(t, f.SetAddressField(0, "city", "1"))

	require.NoError(t, f.RemoveAddress(0))

	require.Len(t, f.Addresses, 1)
	assert.Equal(t, "Marylebone", f.Addresses[0].City.Value)
	assert.True(t, f.Addresses[0].City.Valid)
	_, err := f.Submit()
	assert.NoError(t, err)
}

func TestIndexOutOfRange(t *testing.T) {
	f := New()
	before := f.Payload()

	assert.ErrorIs(t, f.RemovePhone(1), ErrIndexOutOfRange)
	assert.ErrorIs(t, f.RemoveEmail(-1), ErrIndexOutOfRange)
	assert.ErrorIs(t, f.RemoveAddress(3), ErrIndexOutOfRange)
	assert.ErrorIs(t, f.SetPhone(5, "1"), ErrIndexOutOfRange)
	assert.ErrorIs(t, f.SetEmail(1, "x"), ErrIndexOutOfRange)
	assert.ErrorIs(t, f.SetAddressField(2, "city", "x"), ErrIndexOutOfRange)
	assert.ErrorIs(t, f.SetAddressField(0, "country", "x"), ErrUnknownField)

	assert.Equal(t, before, f.Payload())
}

func TestRemoveAllThenAdd(t *testing.T) {
	f := New()
	require.NoError(t, f.RemovePhone(0))
	assert.ErrorIs(t, f.RemovePhone(0), ErrIndexOutOfRange)

	assert.Equal(t, 0, f.AddPhone())
}

func TestValidateUpdatesEveryField(t *testing.T) {
	f := New()
	fillValid(t, f)
	f.Name.Value = "B4d"
	f.Emails[0].Value = ""

	err := f.Validate()
	var verr *validation.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "name", verr.Path)

	assert.False(t, f.Name.Valid)
	assert.False(t, f.Emails[0].Valid)
	assert.Equal(t, "Emails is required.", f.Emails[0].Message("emails"))

	f.SetName("Good Name")
	require.NoError(t, f.SetEmail(0, "g@example.com"))
	assert.NoError(t, f.Validate())
}

func TestRefsAndSet(t *testing.T) {
	f := New()
	f.AddPhone()

	refs := f.Refs()
	paths := make([]string, 0, len(refs))
	for _, ref := range refs {
		paths = append(paths, ref.Path())
	}
	assert.Equal(t, []string{
		"name", "phones.0", "phones.1", "emails.0",
		"addresses.0.address", "addresses.0.city", "addresses.0.state", "addresses.0.postal_code",
	}, paths)

	require.NoError(t, f.Set(refs[2], "999"))
	state, err := f.State(refs[2])
	require.NoError(t, err)
	assert.Equal(t, "999", state.Value)
	assert.True(t, state.Valid)

	assert.Equal(t, "Phone 2", refs[2].Label())
	assert.Equal(t, "Address 1 postal code", refs[7].Label())

	require.NoError(t, f.Remove(refs[1]))
	assert.Equal(t, []string{"999"}, f.Payload().Phones)
	assert.ErrorIs(t, f.Remove(refs[0]), ErrUnknownField)
}

func TestFormJSON(t *testing.T) {
	f := FromContact(sampleContact())

	data, err := json.Marshal(f)
	require.NoError(t, err)

	var decoded Form
	require.NoError(t, json.Unmarshal(data, &decoded))
	if diff := cmp.Diff(f, &decoded); diff != "" {
		t.Errorf("form mismatch (-want +got):\n%s", diff)
	}
}
