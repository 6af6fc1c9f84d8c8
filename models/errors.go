package models

import "errors"

var (
	// ErrNotAuthorized is returned when the actor may not perform a mutation; nothing was changed
	ErrNotAuthorized = errors.New("not authorized")
	// ErrNotFound is returned when a gallery or photo lookup found nothing
	ErrNotFound = errors.New("not found")
	// ErrRecordDeleteFailed is returned when a database delete failed. Storage objects removed
	// before the failure are not restored.
	ErrRecordDeleteFailed = errors.New("record delete failed")
	// ErrCodeGeneration is returned when no unique share/admin code pair could be created
	ErrCodeGeneration = errors.New("failed to generate unique codes for gallery, try again")
)
