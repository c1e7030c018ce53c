package form

import (
	"fmt"

	"rhystmorgan/contactbook/internal/validation"
)

// FieldRef locates one input of the form. Collection is empty for the name,
// otherwise one of phones, emails or addresses.
type FieldRef struct {
	Collection string
	Index      int
	Field      string
}

// Path renders the dotted location used in validation errors:
// "name", "phones.0", "addresses.1.city".
func (r FieldRef) Path() string {
	switch r.Collection {
	case "":
		return r.Field
	case validation.FieldAddresses:
		return fmt.Sprintf("%s.%d.%s", r.Collection, r.Index, r.Field)
	default:
		return fmt.Sprintf("%s.%d", r.Collection, r.Index)
	}
}

// Label is a short caption for rendering the input.
func (r FieldRef) Label() string {
	switch r.Collection {
	case "":
		return validation.FieldLabel(r.Field)
	case validation.FieldPhones:
		return fmt.Sprintf("Phone %d", r.Index+1)
	case validation.FieldEmails:
		return fmt.Sprintf("Email %d", r.Index+1)
	default:
		return fmt.Sprintf("Address %d %s", r.Index+1, addressCaption(r.Field))
	}
}

func addressCaption(field string) string {
	switch field {
	case validation.FieldAddress:
		return "street"
	case validation.FieldPostalCode:
		return "postal code"
	default:
		return field
	}
}

// walk visits every input in submission order until fn returns false.
func (f *Form) walk(fn func(ref FieldRef, fs *FieldState) bool) {
	if !fn(FieldRef{Field: validation.FieldName}, &f.Name) {
		return
	}
	for i := range f.Phones {
		ref := FieldRef{Collection: validation.FieldPhones, Index: i, Field: validation.FieldPhones}
		if !fn(ref, &f.Phones[i]) {
			return
		}
	}
	for i := range f.Emails {
		ref := FieldRef{Collection: validation.FieldEmails, Index: i, Field: validation.FieldEmails}
		if !fn(ref, &f.Emails[i]) {
			return
		}
	}
	for i := range f.Addresses {
		for _, name := range validation.AddressFields {
			fs, _ := f.Addresses[i].field(name)
			ref := FieldRef{Collection: validation.FieldAddresses, Index: i, Field: name}
			if !fn(ref, fs) {
				return
			}
		}
	}
}

// Refs lists every input in submission order.
func (f *Form) Refs() []FieldRef {
	var refs []FieldRef
	f.walk(func(ref FieldRef, _ *FieldState) bool {
		refs = append(refs, ref)
		return true
	})
	return refs
}

// State returns a copy of the field state at ref.
func (f *Form) State(ref FieldRef) (FieldState, error) {
	fs, err := f.lookup(ref)
	if err != nil {
		return FieldState{}, err
	}
	return *fs, nil
}

// Set assigns v to the input at ref.
func (f *Form) Set(ref FieldRef, v string) error {
	switch ref.Collection {
	case "":
		if ref.Field != validation.FieldName {
			return fmt.Errorf("field %q: %w", ref.Field, ErrUnknownField)
		}
		f.SetName(v)
		return nil
	case validation.FieldPhones:
		return f.SetPhone(ref.Index, v)
	case validation.FieldEmails:
		return f.SetEmail(ref.Index, v)
	case validation.FieldAddresses:
		return f.SetAddressField(ref.Index, ref.Field, v)
	default:
		return fmt.Errorf("collection %q: %w", ref.Collection, ErrUnknownField)
	}
}

// Remove deletes the entry of the collection ref points into. The name
// cannot be removed.
func (f *Form) Remove(ref FieldRef) error {
	switch ref.Collection {
	case validation.FieldPhones:
		return f.RemovePhone(ref.Index)
	case validation.FieldEmails:
		return f.RemoveEmail(ref.Index)
	case validation.FieldAddresses:
		return f.RemoveAddress(ref.Index)
	default:
		return fmt.Errorf("collection %q: %w", ref.Collection, ErrUnknownField)
	}
}

func (f *Form) lookup(ref FieldRef) (*FieldState, error) {
	switch ref.Collection {
	case "":
		if ref.Field != validation.FieldName {
			return nil, fmt.Errorf("field %q: %w", ref.Field, ErrUnknownField)
		}
		return &f.Name, nil
	case validation.FieldPhones:
		if err := checkIndex(ref.Collection, ref.Index, len(f.Phones)); err != nil {
			return nil, err
		}
		return &f.Phones[ref.Index], nil
	case validation.FieldEmails:
		if err := checkIndex(ref.Collection, ref.Index, len(f.Emails)); err != nil {
			return nil, err
		}
		return &f.Emails[ref.Index], nil
	case validation.FieldAddresses:
		if err := checkIndex(ref.Collection, ref.Index, len(f.Addresses)); err != nil {
			return nil, err
		}
		return f.Addresses[ref.Index].field(ref.Field)
	default:
		return nil, fmt.Errorf("collection %q: %w", ref.Collection, ErrUnknownField)
	}
}
