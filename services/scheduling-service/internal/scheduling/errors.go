package scheduling

import "errors"

var (
	// ErrNotFound means a referenced appointment, client, professional or
	// service does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict means the requested interval overlaps an existing
	// appointment or falls outside the professional's working hours.
	ErrConflict = errors.New("time slot unavailable")
	// ErrInvalidTransition means the appointment's current status does not
	// permit the requested change.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrInvalidInput means a required field is missing or malformed.
	ErrInvalidInput = errors.New("invalid input")
)
