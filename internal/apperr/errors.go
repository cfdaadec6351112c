// Package apperr defines the sentinel errors shared across the application.
package apperr

import "errors"

var (
	// ErrValidation marks bad user input (missing required field, empty title).
	ErrValidation = errors.New("validation failed")
	// ErrDuplicate marks a slug collision at create time.
	ErrDuplicate = errors.New("already exists")
	// ErrNotFound marks an operation on a slug absent from the store.
	ErrNotFound = errors.New("not found")
	// ErrUnknownCollection marks a collection name absent from the registry.
	ErrUnknownCollection = errors.New("unknown collection")
	// ErrParse marks stored front matter the strict codec cannot decode.
	ErrParse = errors.New("invalid front matter")
	// ErrCollaborator marks a failed external tool invocation (editor, git,
	// mail CLI, agent CLI).
	ErrCollaborator = errors.New("collaborator failed")
	// ErrCancelled marks a user-initiated abort; it maps to exit code 0.
	ErrCancelled = errors.New("cancelled")
)
