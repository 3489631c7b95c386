// Package errs defines the four error kinds named in spec.md §7, shared
// across the engine so callers can classify failures with errors.Is.
package errs

import "errors"

var (
	// ErrIO covers any mmap/open/read/write failure. Always fatal.
	ErrIO = errors.New("io error")
	// ErrParse covers malformed SPARQL; the query returns zero results and
	// the message is surfaced to the caller, the server stays up.
	ErrParse = errors.New("parse error")
	// ErrUnknownTerm marks a query constant absent from the dictionary;
	// treated as an empty intersection, not surfaced as a failure.
	ErrUnknownTerm = errors.New("unknown term")
	// ErrMissingDatabase covers an absent database directory or required
	// file at open time. Fatal.
	ErrMissingDatabase = errors.New("missing database")
)
