package db

import (
	"errors"
	"strings"
)

// Neo4j error code raised when a schema constraint rejects a write.
const constraintViolationCode = "Neo.ClientError.Schema.ConstraintValidationFailed"

// ConstraintError wraps a server-side constraint validation failure.
//
// When the failure message indicates a uniqueness conflict and the caller
// opted into unique handling, Unique is set so the OGM can surface it as a
// distinct error kind. The original driver error stays reachable through
// Unwrap.
type ConstraintError struct {
	Message string
	Unique  bool
	cause   error
}

func (e *ConstraintError) Error() string {
	if e.Unique {
		return "unique property violation: " + e.Message
	}
	return "constraint validation failed: " + e.Message
}

func (e *ConstraintError) Unwrap() error { return e.cause }

// IsUniqueViolation reports whether err is a constraint failure caused by a
// uniqueness conflict.
func IsUniqueViolation(err error) bool {
	var ce *ConstraintError
	return errors.As(err, &ce) && ce.Unique
}

// remapConstraintError converts a constraint-violation server error
// (identified by its code) into *ConstraintError; any other code passes the
// original error through unchanged.
//
// handleUnique controls whether "already exists with label" conflicts are
// flagged as unique violations; it mirrors the opt-in the save path uses.
func remapConstraintError(code, msg string, cause error, handleUnique bool) error {
	if code != constraintViolationCode {
		return cause
	}
	return &ConstraintError{
		Message: msg,
		Unique:  handleUnique && strings.Contains(msg, "already exists with label"),
		cause:   cause,
	}
}
