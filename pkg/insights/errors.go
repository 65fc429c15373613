package insights

import (
	"errors"
	"strings"
)

// ErrInvalidInput is returned when a payload cannot be turned into a report.
var ErrInvalidInput = errors.New("invalid performance input")

// InvalidInputError lists why a payload was rejected.
type InvalidInputError struct {
	Source string
	Errors []string
}

func (e *InvalidInputError) Error() string {
	var b strings.Builder
	b.WriteString(ErrInvalidInput.Error())
	if e.Source != "" {
		b.WriteString(" (")
		b.WriteString(e.Source)
		b.WriteString(")")
	}
	if len(e.Errors) > 0 {
		b.WriteString(": ")
		b.WriteString(strings.Join(e.Errors, "; "))
	}
	return b.String()
}

func (e *InvalidInputError) Unwrap() error {
	return ErrInvalidInput
}
