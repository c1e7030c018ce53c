package validation

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Rules returns the constraints for a field. Unknown fields have none.
func Rules(field string) FieldRules {
	return fieldRules[field]
}

// MinLength returns the minimum length for a field, 0 when unbounded.
// "addresses" resolves to the address line bound.
func MinLength(field string) int {
	if field == FieldAddresses {
		field = FieldAddress
	}
	return fieldRules[field].MinLength
}

// MaxLength returns the maximum length for a field, 0 when unbounded.
func MaxLength(field string) int {
	if field == FieldAddresses {
		field = FieldAddress
	}
	return fieldRules[field].MaxLength
}

// FieldLabel maps a field identifier to the label used in messages.
func FieldLabel(field string) string {
	switch field {
	case FieldPhones:
		return "Phone number"
	case FieldAddresses:
		return "Address"
	}
	if field == "" {
		return ""
	}
	r, size := utf8.DecodeRuneInString(field)
	return string(unicode.ToUpper(r)) + field[size:]
}

// Check evaluates value against the field's constraints and returns every
// violation in the order required, minlength, maxlength, pattern. An empty
// value can only violate required.
func Check(field, value string) []Violation {
	rules := fieldRules[field]
	if value == "" {
		if rules.Required {
			return []Violation{ViolationRequired}
		}
		return nil
	}

	var violations []Violation
	length := utf8.RuneCountInString(value)
	if rules.MinLength > 0 && length < rules.MinLength {
		violations = append(violations, ViolationMinLength)
	}
	if rules.MaxLength > 0 && length > rules.MaxLength {
		violations = append(violations, ViolationMaxLength)
	}
	if rules.Pattern != nil && !rules.Pattern.MatchString(value) {
		violations = append(violations, ViolationPattern)
	}
	return violations
}

// Message renders the human readable text for a violation.
func Message(field string, violation Violation) string {
	label := FieldLabel(field)
	switch violation {
	case ViolationRequired:
		return fmt.Sprintf("%s is required.", label)
	case ViolationMinLength:
		return fmt.Sprintf("%s should be at least %d characters long.", label, MinLength(field))
	case ViolationMaxLength:
		return fmt.Sprintf("%s should not exceed %d characters.", label, MaxLength(field))
	case ViolationPattern:
		return patternMessage(field)
	default:
		return fmt.Sprintf("Field %s has error: %s", field, violation)
	}
}

func patternMessage(field string) string {
	switch field {
	case FieldName, FieldCity, FieldState:
		return fmt.Sprintf("%s should only contain letters and spaces.", FieldLabel(field))
	case FieldPhones:
		return "Phone number is invalid. It should only contain numbers and may start with an optional international code (+xx)."
	default:
		return fmt.Sprintf("%s has an invalid format.", FieldLabel(field))
	}
}

// Validate returns a ValidationError for the first violation of value, or nil.
// path locates the field inside the form, e.g. "addresses.0.city".
func Validate(field, path, value string) *ValidationError {
	violations := Check(field, value)
	if len(violations) == 0 {
		return nil
	}
	if strings.TrimSpace(path) == "" {
		path = field
	}
	return &ValidationError{
		Field:     field,
		Path:      path,
		Violation: violations[0],
		Message:   Message(field, violations[0]),
	}
}
