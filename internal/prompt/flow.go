// Package prompt creates a contact through line-by-line terminal prompts,
// validating each answer the same way the fullscreen form does.
package prompt

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"rhystmorgan/contactbook/internal/form"
	"rhystmorgan/contactbook/internal/listing"
	"rhystmorgan/contactbook/internal/models"
	"rhystmorgan/contactbook/internal/utils"
	"rhystmorgan/contactbook/internal/validation"
)

const MessageContactAdded = "Contact added successfully"

// Creator is the part of the contacts API the flow needs.
type Creator interface {
	CreateContact(ctx context.Context, payload models.Payload) (models.Contact, error)
}

type Flow struct {
	creator Creator
	driver  PromptDriver
	logger  *slog.Logger
}

type Option func(*Flow)

func WithPromptDriver(driver PromptDriver) Option {
	return func(f *Flow) {
		if driver != nil {
			f.driver = driver
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(f *Flow) {
		if logger != nil {
			f.logger = logger
		}
	}
}

func New(creator Creator, opts ...Option) *Flow {
	f := &Flow{
		creator: creator,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.driver == nil {
		f.driver = NewSurveyDriver()
	}
	return f
}

// Run asks for a name, then one or more phones, emails and addresses, and
// creates the contact once the user confirms.
func (f *Flow) Run(ctx context.Context) (models.Contact, error) {
	fm := form.New()

	if err := f.ask(ctx, fm, form.FieldRef{Field: validation.FieldName}); err != nil {
		return models.Contact{}, err
	}
	if err := f.collection(ctx, fm, validation.FieldPhones, "Add another phone number?", fm.AddPhone); err != nil {
		return models.Contact{}, err
	}
	if err := f.collection(ctx, fm, validation.FieldEmails, "Add another email?", fm.AddEmail); err != nil {
		return models.Contact{}, err
	}
	if err := f.collection(ctx, fm, validation.FieldAddresses, "Add another address?", fm.AddAddress); err != nil {
		return models.Contact{}, err
	}

	payload, err := fm.Submit()
	if err != nil {
		return models.Contact{}, err
	}

	if err := f.driver.Info(ctx, summary(payload)); err != nil {
		return models.Contact{}, err
	}
	ok, err := f.driver.Confirm(ctx, ConfirmConfig{Message: "Save this contact?", Default: true})
	if err != nil {
		return models.Contact{}, err
	}
	if !ok {
		return models.Contact{}, ErrNotSaved
	}

	contact, err := f.creator.CreateContact(ctx, payload)
	if err != nil {
		f.logger.Warn("failed to create contact", "error", err)
		_ = f.driver.Info(ctx, listing.ErrorMessage(err))
		return models.Contact{}, fmt.Errorf("failed to create contact: %w", err)
	}
	f.logger.Info("contact created", "id", contact.ID)
	_ = f.driver.Info(ctx, MessageContactAdded)
	return contact, nil
}

// collection prompts for entry 0 of collection, then keeps adding entries
// while the user answers yes to more.
func (f *Flow) collection(ctx context.Context, fm *form.Form, collection, more string, add func() int) error {
	for i := 0; ; i++ {
		if i > 0 {
			add()
		}
		for _, ref := range entryRefs(collection, i) {
			if err := f.ask(ctx, fm, ref); err != nil {
				return err
			}
		}

		again, err := f.driver.Confirm(ctx, ConfirmConfig{Message: more})
		if err != nil {
			return err
		}
		if !again {
			return nil
		}
	}
}

func entryRefs(collection string, i int) []form.FieldRef {
	if collection != validation.FieldAddresses {
		return []form.FieldRef{{Collection: collection, Index: i, Field: collection}}
	}
	refs := make([]form.FieldRef, 0, len(validation.AddressFields))
	for _, field := range validation.AddressFields {
		refs = append(refs, form.FieldRef{Collection: collection, Index: i, Field: field})
	}
	return refs
}

// ask repeats the prompt for ref until the answer passes validation.
func (f *Flow) ask(ctx context.Context, fm *form.Form, ref form.FieldRef) error {
	current, err := fm.State(ref)
	if err != nil {
		return err
	}
	cfg := InputConfig{
		Message:   ref.Label() + ":",
		Default:   current.Value,
		Validator: validator(ref),
	}

	for {
		answer, err := f.driver.Input(ctx, cfg)
		if err != nil {
			return err
		}
		answer = strings.TrimSpace(answer)
		if err := fm.Set(ref, answer); err != nil {
			return err
		}

		state, _ := fm.State(ref)
		if state.Valid {
			return nil
		}
		msg := state.Message(ref.Field)
		f.logger.Debug("rejected answer", "path", ref.Path(), "violation", state.Errors[0])
		if err := f.driver.Info(ctx, msg); err != nil {
			return err
		}
	}
}

func validator(ref form.FieldRef) func(string) error {
	return func(s string) error {
		if verr := validation.Validate(ref.Field, ref.Path(), strings.TrimSpace(s)); verr != nil {
			return verr
		}
		return nil
	}
}

func summary(p models.Payload) string {
	addresses := make([]string, 0, len(p.Addresses))
	for _, a := range p.Addresses {
		addresses = append(addresses, a.String())
	}

	var b strings.Builder
	b.WriteString("New contact:\n\n")
	for _, d := range []utils.Detail{
		{Label: "Name", Value: p.Name},
		{Label: utils.Plural(len(p.Phones), "phone"), Value: strings.Join(p.Phones, ", ")},
		{Label: utils.Plural(len(p.Emails), "email"), Value: strings.Join(p.Emails, ", ")},
		{Label: utils.Plural(len(addresses), "address"), Value: strings.Join(addresses, "; ")},
	} {
		fmt.Fprintf(&b, "  %s: %s\n", d.Label, d.Value)
	}
	return b.String()
}
