package utils

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"rhystmorgan/contactbook/internal/models"
)

// TruncateString shortens s to at most maxLen runes, ending in "..." when
// there is room for it.
func TruncateString(s string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}

	runes := []rune(s)
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}

// PadString pads s with padChar up to width runes.
func PadString(s string, width int, padChar rune) string {
	n := utf8.RuneCountInString(s)
	if n >= width {
		return s
	}
	return s + strings.Repeat(string(padChar), width-n)
}

// Detail is one labelled line of a confirmation prompt.
type Detail struct {
	Label string
	Value string
}

// FormatConfirmationText formats confirmation prompts
func FormatConfirmationText(action string, details []Detail) string {
	var result strings.Builder
	result.WriteString(fmt.Sprintf("Confirm %s:\n\n", action))

	for _, d := range details {
		result.WriteString(fmt.Sprintf("  %s: %s\n", d.Label, d.Value))
	}

	result.WriteString("\nProceed? (y/N)")
	return result.String()
}

// FormatContactRow renders a single list row: name, primary phone, primary
// email and location, each cut to fit.
func FormatContactRow(c models.Contact, width int) string {
	if width < 40 {
		return TruncateString(c.Name, width)
	}

	nameWidth := width / 4
	phoneWidth := width / 5
	emailWidth := width / 3
	locWidth := width - nameWidth - phoneWidth - emailWidth - 3

	cols := []string{
		PadString(TruncateString(c.Name, nameWidth), nameWidth, ' '),
		PadString(TruncateString(c.PrimaryPhone(), phoneWidth), phoneWidth, ' '),
		PadString(TruncateString(c.PrimaryEmail(), emailWidth), emailWidth, ' '),
		TruncateString(c.Location(), locWidth),
	}
	return strings.Join(cols, " ")
}

// FormatPageIndicator describes how much of a search has been loaded.
func FormatPageIndicator(loaded, nextPage, totalPages int, complete bool) string {
	switch {
	case totalPages == 0 && complete:
		return "no results"
	case complete:
		return fmt.Sprintf("%d contacts, all %d pages loaded", loaded, totalPages)
	case totalPages == 0:
		return fmt.Sprintf("%d contacts", loaded)
	default:
		return fmt.Sprintf("%d contacts, page %d of %d", loaded, nextPage-1, totalPages)
	}
}

// Plural returns "1 phone" or "3 phones".
func Plural(n int, singular string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, singular)
	}
	if strings.HasSuffix(singular, "s") {
		return fmt.Sprintf("%d %ses", n, singular)
	}
	return fmt.Sprintf("%d %ss", n, singular)
}
