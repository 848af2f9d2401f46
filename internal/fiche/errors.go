package fiche

import (
	"errors"
	"fmt"
)

// Sentinel errors of the lifecycle engine. Handlers translate these to HTTP
// statuses; no other error values cross the package boundary except
// *ValidationError and *RepositoryError.
var (
	// ErrNotFound means the fiche does not exist.
	ErrNotFound = errors.New("fiche introuvable")

	// ErrForbidden means the caller lacks ownership or role for the mutation.
	ErrForbidden = errors.New("accès refusé")

	// ErrInvalidState means the transition is not permitted from the fiche's
	// current state (e.g. deciding an already-decided fiche). The caller
	// should re-read the fiche and retry if still applicable.
	ErrInvalidState = errors.New("état de la fiche incompatible avec l'opération")
)

// ValidationError reports the first failing submission rule. Recoverable by
// the caller correcting the input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func invalid(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// RepositoryError wraps a failure of the backing store. The operation must
// not be assumed to have partially applied; callers re-read before retrying.
type RepositoryError struct {
	Op  string
	Err error
}

func (e *RepositoryError) Error() string {
	return fmt.Sprintf("fiche repository: %s: %v", e.Op, e.Err)
}

func (e *RepositoryError) Unwrap() error { return e.Err }

func repoErr(op string, err error) *RepositoryError {
	return &RepositoryError{Op: op, Err: err}
}
