package entry

import "errors"

var (
	// ErrCannotConnect is returned when the host does not answer like a hub:
	// unreachable, non-200 status, or a body without header.version.
	ErrCannotConnect = errors.New("cannot connect")

	// ErrAlreadyConfigured is returned when an entry for the host exists.
	ErrAlreadyConfigured = errors.New("already configured")

	// ErrNotFound is returned when an entry does not exist.
	ErrNotFound = errors.New("config entry not found")

	// ErrInvalidHost is returned for an empty host or one with a scheme or path.
	ErrInvalidHost = errors.New("invalid host")
)
