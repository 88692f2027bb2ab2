package core

import "strings"

// ValidationError carries field-level validation failures keyed by field name.
type ValidationError map[string][]string

// Error implements the error interface.
func (e ValidationError) Error() string {
	if len(e) == 0 {
		return "validation failed"
	}
	var b strings.Builder
	b.WriteString("validation failed: ")
	first := true
	for field, msgs := range e {
		if !first {
			b.WriteString("; ")
		}
		first = false
		b.WriteString(field)
		b.WriteString(": ")
		b.WriteString(strings.Join(msgs, ", "))
	}
	return b.String()
}

// Add appends a message for a field.
func (e ValidationError) Add(field, msg string) {
	e[field] = append(e[field], msg)
}
