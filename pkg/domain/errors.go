package domain

import "errors"

// Failure classes shared by every service. Service packages define their own
// precondition errors on top of these.
var (
	ErrUnauthorized       = errors.New("caller is not authorized for this operation")
	ErrPaused             = errors.New("component is paused")
	ErrAlreadyInitialized = errors.New("component already initialized")
	ErrNotInitialized     = errors.New("component not initialized")
	ErrNotConfigured      = errors.New("required peer component is not configured")
	ErrNotFound           = errors.New("record not found")
)
