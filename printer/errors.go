package printer

import "errors"

var (
	// No writable characteristic is available to the transport.
	ErrNotConnected = errors.New("printer is not connected")

	// A print was requested without a resolved device profile.
	ErrNotConfigured = errors.New("printer is not configured")

	ErrConnectionFailed = errors.New("couldn't connect to printer")
	ErrWriteFailed      = errors.New("couldn't write to printer")
	ErrProfileNotFound  = errors.New("no known device profile matches the printer")

	// Another print or status query is already using the session.
	ErrBusy = errors.New("printer is busy")
)
