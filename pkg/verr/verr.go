// Package verr defines the error taxonomy shared by every votecore
// component, so the HTTP and CLI front-ends can map a failure to a status
// code without inspecting component-specific error types.
package verr

import (
	"errors"
	"fmt"
)

// Kind is one of the user-visible error kinds from the votecore error
// taxonomy. Each kind maps to exactly one HTTP status code at the API
// layer.
type Kind string

const (
	InvalidConfig    Kind = "invalid_config"
	NotFound         Kind = "not_found"
	OutOfPhase       Kind = "out_of_phase"
	AlreadyCommitted Kind = "already_committed"
	NoCommitment     Kind = "no_commitment"
	AlreadyRevealed  Kind = "already_revealed"
	SaltMismatch     Kind = "salt_mismatch"
	HashMismatch     Kind = "hash_mismatch"
	BallotInvalid    Kind = "ballot_invalid"
	TemplateUnknown  Kind = "template_unknown"
	Timeout          Kind = "timeout"
	StorageError     Kind = "storage_error"
)

// Error is the concrete error value returned by every votecore component.
// It carries a Kind for programmatic dispatch (HTTP status mapping, CLI
// exit codes) and an optional wrapped cause for diagnostics.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New builds an Error of the given kind with a formatted message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds an Error of the given kind around an existing cause.
func Wrap(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// Is reports whether err is a votecore Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// KindOf extracts the Kind from err, defaulting to StorageError for
// unrecognized errors so callers never have to special-case "unknown".
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return StorageError
}
