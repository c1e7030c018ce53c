package validation

import (
	"regexp"
)

// Violation names a constraint a field value fails. The string values match
// the constraint keys used by the contacts API's own form tooling.
type Violation string

const (
	ViolationRequired  Violation = "required"
	ViolationMinLength Violation = "minlength"
	ViolationMaxLength Violation = "maxlength"
	ViolationPattern   Violation = "pattern"
)

// Field identifiers. Phones and emails entries are reported under the name of
// their collection; address sub-fields under their own name.
const (
	FieldName       = "name"
	FieldPhones     = "phones"
	FieldEmails     = "emails"
	FieldAddresses  = "addresses"
	FieldAddress    = "address"
	FieldCity       = "city"
	FieldState      = "state"
	FieldPostalCode = "postal_code"
)

// AddressFields lists the sub-fields of an address group in validation order.
var AddressFields = []string{FieldAddress, FieldCity, FieldState, FieldPostalCode}

var (
	lettersAndSpaces = regexp.MustCompile(`^[a-zA-Z ]*$`)
	phoneNumber      = regexp.MustCompile(`^(\+[0-9]{1,3})?[0-9]+$`)
)

// FieldRules holds the constraints applied to one field. A zero MinLength or
// MaxLength means the bound is not enforced.
type FieldRules struct {
	Required  bool
	MinLength int
	MaxLength int
	Pattern   *regexp.Regexp
}

var fieldRules = map[string]FieldRules{
	FieldName:       {Required: true, MinLength: 2, MaxLength: 50, Pattern: lettersAndSpaces},
	FieldPhones:     {Required: true, Pattern: phoneNumber},
	FieldEmails:     {Required: true},
	FieldAddress:    {Required: true, MinLength: 5, MaxLength: 100},
	FieldCity:       {Required: true, MinLength: 2, MaxLength: 50, Pattern: lettersAndSpaces},
	FieldState:      {Required: true, MinLength: 2, MaxLength: 50, Pattern: lettersAndSpaces},
	FieldPostalCode: {Required: true, MinLength: 4, MaxLength: 10},
}

// ValidationError reports the first constraint a field failed.
type ValidationError struct {
	Field     string
	Path      string
	Violation Violation
	Message   string
}

func (e *ValidationError) Error() string {
	return e.Message
}
