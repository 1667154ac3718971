// Package procerr defines the typed errors used across the statement
// processing pipeline. Row- and file-level problems are accumulated on
// the session record rather than raised; only batch-fatal and not-found
// conditions surface to callers, each with its own type.
package procerr

import "fmt"

// ParseError represents a recoverable parsing failure for one field of
// one row. It is logged and accumulated, never fatal to a batch.
type ParseError struct {
	Source string
	Field  string
	Value  string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: failed to parse %s='%s': %v",
		e.Source, e.Field, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// InvalidFormatError represents a file that does not conform to any
// supported statement format. The file contributes zero transactions;
// sibling files in the batch are unaffected.
type InvalidFormatError struct {
	FileName       string
	ExpectedFormat string
	Msg            string
}

func (e *InvalidFormatError) Error() string {
	return fmt.Sprintf("invalid format in file '%s': %s. Expected: %s",
		e.FileName, e.Msg, e.ExpectedFormat)
}

// NoTransactionsError is the batch-fatal condition: no file in the
// submission yielded a single transaction.
type NoTransactionsError struct {
	FileCount int
}

func (e *NoTransactionsError) Error() string {
	return fmt.Sprintf("no transactions could be extracted from any of the %d submitted file(s)", e.FileCount)
}

// SessionNotFoundError signals a query for an absent or expired session.
type SessionNotFoundError struct {
	SessionID string
}

func (e *SessionNotFoundError) Error() string {
	return fmt.Sprintf("session not found: %s", e.SessionID)
}

// FileRejectedError signals a file refused before parsing by the upload
// policy (size ceiling or extension allowlist).
type FileRejectedError struct {
	FileName string
	Reason   string
}

func (e *FileRejectedError) Error() string {
	return fmt.Sprintf("file '%s' rejected: %s", e.FileName, e.Reason)
}
