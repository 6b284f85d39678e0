package schema

import "fmt"

// InvalidSchemaError reports that a schema document failed meta-schema
// validation or referenced an unknown comparator, strategy, or format tag.
type InvalidSchemaError struct {
	Reason string
}

func (e *InvalidSchemaError) Error() string {
	return fmt.Sprintf("invalid schema: %s", e.Reason)
}

func invalidf(format string, args ...any) error {
	return &InvalidSchemaError{Reason: fmt.Sprintf(format, args...)}
}

// UnsupportedSchemaVersionError reports a schema `version` outside the
// set this package knows how to load.
type UnsupportedSchemaVersionError struct {
	Version int
}

func (e *UnsupportedSchemaVersionError) Error() string {
	return fmt.Sprintf("schema version %d is not supported; only version 1 is accepted", e.Version)
}
