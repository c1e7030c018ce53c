package form

import (
	"errors"
	"fmt"

	"rhystmorgan/contactbook/internal/models"
	"rhystmorgan/contactbook/internal/validation"
)

var (
	ErrIndexOutOfRange = errors.New("index out of range")
	ErrUnknownField    = errors.New("unknown field")
)

type Mode int

const (
	ModeCreate Mode = iota
	ModeEdit
)

func (m Mode) String() string {
	switch m {
	case ModeCreate:
		return "create"
	case ModeEdit:
		return "edit"
	default:
		return "unknown"
	}
}

// FieldState is the value of one input together with the outcome of its
// last evaluation.
type FieldState struct {
	Value  string                 `json:"value"`
	Valid  bool                   `json:"valid"`
	Errors []validation.Violation `json:"errors,omitempty"`
}

func newField(field, value string) FieldState {
	fs := FieldState{Value: value}
	fs.evaluate(field)
	return fs
}

func (fs *FieldState) evaluate(field string) {
	fs.Errors = validation.Check(field, fs.Value)
	fs.Valid = len(fs.Errors) == 0
}

// Message returns the text for the first violation, or "" when valid.
func (fs FieldState) Message(field string) string {
	if len(fs.Errors) == 0 {
		return ""
	}
	return validation.Message(field, fs.Errors[0])
}

type AddressGroup struct {
	Address    FieldState `json:"address"`
	City       FieldState `json:"city"`
	State      FieldState `json:"state"`
	PostalCode FieldState `json:"postal_code"`
}

func newAddressGroup(a models.Address) AddressGroup {
	return AddressGroup{
		Address:    newField(validation.FieldAddress, a.Address),
		City:       newField(validation.FieldCity, a.City),
		State:      newField(validation.FieldState, a.State),
		PostalCode: newField(validation.FieldPostalCode, a.PostalCode),
	}
}

func (g *AddressGroup) field(name string) (*FieldState, error) {
	switch name {
	case validation.FieldAddress:
		return &g.Address, nil
	case validation.FieldCity:
		return &g.City, nil
	case validation.FieldState:
		return &g.State, nil
	case validation.FieldPostalCode:
		return &g.PostalCode, nil
	default:
		return nil, fmt.Errorf("address field %q: %w", name, ErrUnknownField)
	}
}

func (g AddressGroup) value() models.Address {
	return models.Address{
		Address:    g.Address.Value,
		City:       g.City.Value,
		State:      g.State.Value,
		PostalCode: g.PostalCode.Value,
	}
}

// Form is the editable state of a contact being created or edited. It is
// owned by a single UI loop and holds no references to the contact it was
// built from.
type Form struct {
	Mode      Mode           `json:"mode"`
	ContactID int            `json:"contact_id,omitempty"`
	Name      FieldState     `json:"name"`
	Phones    []FieldState   `json:"phones"`
	Emails    []FieldState   `json:"emails"`
	Addresses []AddressGroup `json:"addresses"`
}

// New returns a create form with one empty phone, email and address group.
func New() *Form {
	return &Form{
		Mode:      ModeCreate,
		Name:      newField(validation.FieldName, ""),
		Phones:    []FieldState{newField(validation.FieldPhones, "")},
		Emails:    []FieldState{newField(validation.FieldEmails, "")},
		Addresses: []AddressGroup{newAddressGroup(models.Address{})},
	}
}

// FromContact returns an edit form holding one entry per phone, email and
// address of c, in order.
func FromContact(c models.Contact) *Form {
	f := &Form{
		Mode:      ModeEdit,
		ContactID: c.ID,
		Name:      newField(validation.FieldName, c.Name),
		Phones:    make([]FieldState, 0, len(c.Phones)),
		Emails:    make([]FieldState, 0, len(c.Emails)),
		Addresses: make([]AddressGroup, 0, len(c.Addresses)),
	}
	for _, p := range c.Phones {
		f.Phones = append(f.Phones, newField(validation.FieldPhones, p.PhoneNumber))
	}
	for _, e := range c.Emails {
		f.Emails = append(f.Emails, newField(validation.FieldEmails, e.Email))
	}
	for _, a := range c.Addresses {
		f.Addresses = append(f.Addresses, newAddressGroup(a))
	}
	return f
}

func (f *Form) AddPhone() int {
	f.Phones = append(f.Phones, newField(validation.FieldPhones, ""))
	return len(f.Phones) - 1
}

func (f *Form) AddEmail() int {
	f.Emails = append(f.Emails, newField(validation.FieldEmails, ""))
	return len(f.Emails) - 1
}

func (f *Form) AddAddress() int {
	f.Addresses = append(f.Addresses, newAddressGroup(models.Address{}))
	return len(f.Addresses) - 1
}

func (f *Form) RemovePhone(i int) error {
	if err := checkIndex(validation.FieldPhones, i, len(f.Phones)); err != nil {
		return err
	}
	f.Phones = append(f.Phones[:i], f.Phones[i+1:]...)
	return nil
}

func (f *Form) RemoveEmail(i int) error {
	if err := checkIndex(validation.FieldEmails, i, len(f.Emails)); err != nil {
		return err
	}
	f.Emails = append(f.Emails[:i], f.Emails[i+1:]...)
	return nil
}

func (f *Form) RemoveAddress(i int) error {
	if err := checkIndex(validation.FieldAddresses, i, len(f.Addresses)); err != nil {
		return err
	}
	f.Addresses = append(f.Addresses[:i], f.Addresses[i+1:]...)
	return nil
}

func (f *Form) SetName(v string) {
	f.Name.Value = v
	f.Name.evaluate(validation.FieldName)
}

func (f *Form) SetPhone(i int, v string) error {
	if err := checkIndex(validation.FieldPhones, i, len(f.Phones)); err != nil {
		return err
	}
	f.Phones[i].Value = v
	f.Phones[i].evaluate(validation.FieldPhones)
	return nil
}

func (f *Form) SetEmail(i int, v string) error {
	if err := checkIndex(validation.FieldEmails, i, len(f.Emails)); err != nil {
		return err
	}
	f.Emails[i].Value = v
	f.Emails[i].evaluate(validation.FieldEmails)
	return nil
}

// SetAddressField sets one of address, city, state or postal_code on the
// i-th address group.
func (f *Form) SetAddressField(i int, field, v string) error {
	if err := checkIndex(validation.FieldAddresses, i, len(f.Addresses)); err != nil {
		return err
	}
	fs, err := f.Addresses[i].field(field)
	if err != nil {
		return err
	}
	fs.Value = v
	fs.evaluate(field)
	return nil
}

// Counts returns the number of phone, email and address entries.
func (f *Form) Counts() (phones, emails, addresses int) {
	return len(f.Phones), len(f.Emails), len(f.Addresses)
}

// Validate re-evaluates every field and returns the first failure in
// submission order, or nil.
func (f *Form) Validate() error {
	var first *validation.ValidationError
	f.walk(func(ref FieldRef, fs *FieldState) bool {
		fs.evaluate(ref.Field)
		if first == nil && !fs.Valid {
			first = &validation.ValidationError{
				Field:     ref.Field,
				Path:      ref.Path(),
				Violation: fs.Errors[0],
				Message:   validation.Message(ref.Field, fs.Errors[0]),
			}
		}
		return true
	})
	if first != nil {
		return first
	}
	return nil
}

// Submit checks fields in the order name, phones, emails, addresses and stops
// at the first invalid one. On success it returns the payload for create or
// update.
func (f *Form) Submit() (models.Payload, error) {
	var failure *validation.ValidationError
	f.walk(func(ref FieldRef, fs *FieldState) bool {
		failure = validation.Validate(ref.Field, ref.Path(), fs.Value)
		return failure == nil
	})
	if failure != nil {
		return models.Payload{}, failure
	}
	return f.Payload(), nil
}

// Payload returns the current values without validating them.
func (f *Form) Payload() models.Payload {
	p := models.Payload{
		Name:      f.Name.Value,
		Phones:    make([]string, 0, len(f.Phones)),
		Emails:    make([]string, 0, len(f.Emails)),
		Addresses: make([]models.Address, 0, len(f.Addresses)),
	}
	for _, phone := range f.Phones {
		p.Phones = append(p.Phones, phone.Value)
	}
	for _, email := range f.Emails {
		p.Emails = append(p.Emails, email.Value)
	}
	for _, group := range f.Addresses {
		p.Addresses = append(p.Addresses, group.value())
	}
	return p
}

func checkIndex(collection string, i, n int) error {
	if i < 0 || i >= n {
		return fmt.Errorf("%s[%d] of %d: %w", collection, i, n, ErrIndexOutOfRange)
	}
	return nil
}
