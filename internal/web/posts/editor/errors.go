package editor

import "github.com/Laisky/errors/v2"

var (
	// ErrClosed the controller has been torn down
	ErrClosed = errors.New("editor closed")
	// ErrNoSession no post variant is loaded
	ErrNoSession = errors.New("no post loaded")
	// ErrSubmitDisabled the submit control is disabled, a load or save is in progress
	ErrSubmitDisabled = errors.New("submit is disabled")
	// ErrDuplicateSlug another post of the same language already uses the slug
	ErrDuplicateSlug = errors.New("post slug already exists")
	// ErrSuperseded a newer navigation replaced the session the work belonged to
	ErrSuperseded = errors.New("session superseded")
	// ErrInvalidInput an edited field has an unacceptable value
	ErrInvalidInput = errors.New("invalid input")
)
