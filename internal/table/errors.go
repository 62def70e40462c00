package table

import (
	"fmt"
	"strings"
)

// ParseError means the input is not valid tabular data.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("input is not a valid CSV file: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// SchemaError means a required column is missing from the header.
type SchemaError struct {
	Missing []string
	Header  []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf(
		"CSV must contain %q and %q columns: missing %s (found %s)",
		DescriptionColumn,
		URLColumn,
		strings.Join(e.Missing, ", "),
		strings.Join(e.Header, ", "),
	)
}
