package bloom

import "fmt"

// InvalidEntryError reports that a single field value failed its
// format validator. It carries enough context for a caller to locate
// the offending cell in the original input.
type InvalidEntryError struct {
	RowIndex int
	Field    string
	Reason   string
}

func (e *InvalidEntryError) Error() string {
	return fmt.Sprintf("row %d, field %q: %s", e.RowIndex, e.Field, e.Reason)
}

// FormatError reports a structural row problem: the wrong number of
// columns, or (at the caller's discretion) a header mismatch.
type FormatError struct {
	RowIndex int
	Reason   string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("row %d: %s", e.RowIndex, e.Reason)
}
