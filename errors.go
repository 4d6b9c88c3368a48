package queuectl

import "errors"

var (
	// Store errors.
	ErrNoStore     = errors.New("queuectl: no store configured")
	ErrStoreClosed = errors.New("queuectl: store closed")

	// Not found errors.
	ErrJobNotFound = errors.New("queuectl: job not found")

	// Conflict errors.
	ErrJobAlreadyExists = errors.New("queuectl: job already exists")

	// Input errors.
	ErrValidation       = errors.New("queuectl: validation failed")
	ErrInvalidConfigKey = errors.New("queuectl: invalid config key")

	// State errors.
	ErrInvalidState = errors.New("queuectl: invalid state transition")
)
