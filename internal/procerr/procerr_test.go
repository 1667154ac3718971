package procerr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseErrorUnwrap(t *testing.T) {
	cause := errors.New("bad digit")
	err := &ParseError{Source: "jan.csv", Field: "amount", Value: "12x", Err: cause}

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "jan.csv")
	assert.Contains(t, err.Error(), "amount='12x'")
}

func TestInvalidFormatError(t *testing.T) {
	err := &InvalidFormatError{
		FileName:       "notes.csv",
		ExpectedFormat: "CSV with a date column",
		Msg:            "missing header",
	}
	assert.Contains(t, err.Error(), "notes.csv")
	assert.Contains(t, err.Error(), "missing header")
}

func TestNoTransactionsError(t *testing.T) {
	err := &NoTransactionsError{FileCount: 3}
	assert.Contains(t, err.Error(), "3 submitted file(s)")

	var target *NoTransactionsError
	assert.ErrorAs(t, fmt.Errorf("wrapped: %w", err), &target)
	assert.Equal(t, 3, target.FileCount)
}

func TestSessionNotFoundError(t *testing.T) {
	err := &SessionNotFoundError{SessionID: "abc-123"}
	assert.Equal(t, "session not found: abc-123", err.Error())
}

func TestFileRejectedError(t *testing.T) {
	err := &FileRejectedError{FileName: "huge.pdf", Reason: "too large"}
	assert.Contains(t, err.Error(), "huge.pdf")
	assert.Contains(t, err.Error(), "too large")
}
