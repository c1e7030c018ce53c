package models

import (
	"strings"
)

type Phone struct {
	PhoneNumber string `json:"phone_number"`
}

type Email struct {
	Email string `json:"email"`
}

type Address struct {
	Address    string `json:"address"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
}

// Contact is a record as served by the contacts API. ID is zero until the
// server has assigned one.
type Contact struct {
	ID        int       `json:"id,omitempty"`
	Name      string    `json:"name"`
	Phones    []Phone   `json:"phones"`
	Emails    []Email   `json:"emails"`
	Addresses []Address `json:"addresses"`
}

// PagedResult is one page of a contact search.
type PagedResult struct {
	Data     []Contact `json:"data"`
	LastPage int       `json:"last_page"`
}

// Payload is the body sent on create and update. Phones and emails travel as
// plain strings, addresses as objects.
type Payload struct {
	Name      string    `json:"name"`
	Phones    []string  `json:"phones"`
	Emails    []string  `json:"emails"`
	Addresses []Address `json:"addresses"`
}

// PayloadFromContact returns the payload an unmodified edit of c would submit.
func PayloadFromContact(c Contact) Payload {
	p := Payload{
		Name:      c.Name,
		Phones:    make([]string, 0, len(c.Phones)),
		Emails:    make([]string, 0, len(c.Emails)),
		Addresses: make([]Address, 0, len(c.Addresses)),
	}
	for _, phone := range c.Phones {
		p.Phones = append(p.Phones, phone.PhoneNumber)
	}
	for _, email := range c.Emails {
		p.Emails = append(p.Emails, email.Email)
	}
	p.Addresses = append(p.Addresses, c.Addresses...)
	return p
}

// PrimaryPhone returns the first phone number or an empty string.
func (c *Contact) PrimaryPhone() string {
	if len(c.Phones) == 0 {
		return ""
	}
	return c.Phones[0].PhoneNumber
}

// PrimaryEmail returns the first email or an empty string.
func (c *Contact) PrimaryEmail() string {
	if len(c.Emails) == 0 {
		return ""
	}
	return c.Emails[0].Email
}

// Location formats the first address as "city, state" for list rows.
func (c *Contact) Location() string {
	if len(c.Addresses) == 0 {
		return ""
	}
	a := c.Addresses[0]
	parts := make([]string, 0, 2)
	if city := strings.TrimSpace(a.City); city != "" {
		parts = append(parts, city)
	}
	if state := strings.TrimSpace(a.State); state != "" {
		parts = append(parts, state)
	}
	return strings.Join(parts, ", ")
}

func (a Address) String() string {
	parts := make([]string, 0, 4)
	for _, part := range []string{a.Address, a.City, a.State, a.PostalCode} {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return strings.Join(parts, ", ")
}

// ContactList is an ordered set of contacts, unique by ID.
type ContactList struct {
	Contacts []Contact `json:"contacts"`
}

// FindByID returns a pointer into the list or nil.
func (cl *ContactList) FindByID(id int) *Contact {
	for i, contact := range cl.Contacts {
		if contact.ID == id {
			return &cl.Contacts[i]
		}
	}
	return nil
}

// Has reports whether a contact with the given ID is present.
func (cl *ContactList) Has(id int) bool {
	return cl.FindByID(id) != nil
}

// Merge appends the contacts whose IDs are not yet present, preserving the
// order of incoming. It returns the number of contacts appended.
func (cl *ContactList) Merge(incoming []Contact) int {
	seen := make(map[int]struct{}, len(cl.Contacts)+len(incoming))
	for _, contact := range cl.Contacts {
		seen[contact.ID] = struct{}{}
	}

	added := 0
	for _, contact := range incoming {
		if _, exists := seen[contact.ID]; exists {
			continue
		}
		seen[contact.ID] = struct{}{}
		cl.Contacts = append(cl.Contacts, contact)
		added++
	}
	return added
}

// Clear drops every contact.
func (cl *ContactList) Clear() {
	cl.Contacts = nil
}

func (cl *ContactList) Len() int {
	return len(cl.Contacts)
}

// Snapshot returns a copy that callers may keep across later merges.
func (cl *ContactList) Snapshot() []Contact {
	out := make([]Contact, len(cl.Contacts))
	copy(out, cl.Contacts)
	return out
}
