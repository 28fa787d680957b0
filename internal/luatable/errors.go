package luatable

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedTable is matched by every StructuralParseError.
	ErrMalformedTable = errors.New("malformed or missing table literal")

	// ErrInvalidDocument is matched by every TranslationError.
	ErrInvalidDocument = errors.New("translation produced invalid document")
)

// StructuralParseError reports that a table literal could not be located or
// balanced in the source text.
type StructuralParseError struct {
	// Prefix is the assignment target that was searched for.
	Prefix string

	// Offset is the byte offset where scanning gave up, -1 if unknown.
	Offset int

	// Reason describes what was missing.
	Reason string
}

func (e *StructuralParseError) Error() string {
	if e.Offset >= 0 {
		return fmt.Sprintf("%s: %s (prefix %q, offset %d)", ErrMalformedTable, e.Reason, e.Prefix, e.Offset)
	}
	return fmt.Sprintf("%s: %s (prefix %q)", ErrMalformedTable, e.Reason, e.Prefix)
}

func (e *StructuralParseError) Unwrap() error {
	return ErrMalformedTable
}

// TranslationError reports that the rewritten text was rejected by the JSON parser.
type TranslationError struct {
	// Offset is the byte offset in the rewritten document, -1 if unknown.
	Offset int64

	// Snippet is the rewritten text around Offset.
	Snippet string

	// Err is the parser error.
	Err error
}

func (e *TranslationError) Error() string {
	if e.Offset >= 0 {
		return fmt.Sprintf("%s: %v at offset %d near %q", ErrInvalidDocument, e.Err, e.Offset, e.Snippet)
	}
	return fmt.Sprintf("%s: %v", ErrInvalidDocument, e.Err)
}

func (e *TranslationError) Unwrap() []error {
	return []error{ErrInvalidDocument, e.Err}
}
