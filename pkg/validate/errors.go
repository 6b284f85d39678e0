package validate

import "fmt"

// Error describes why a raw value failed a field's format check. It
// carries no row or field identity — pkg/bloom attaches that context
// when it wraps a validator failure into its own InvalidEntryError.
type Error struct {
	Reason string
}

func (e *Error) Error() string {
	return e.Reason
}

func errorf(format string, args ...any) error {
	return &Error{Reason: fmt.Sprintf(format, args...)}
}
