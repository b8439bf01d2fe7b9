// Package apperr holds sentinel errors shared across packages.
package apperr

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrInvalid       = errors.New("invalid document")
	// ErrNewerSchema means the project was written by a newer application version.
	ErrNewerSchema = errors.New("project schema is newer than supported")
)
