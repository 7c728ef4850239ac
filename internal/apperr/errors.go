// Package apperr holds the sentinel errors shared across the data store layers.
package apperr

import "errors"

var (
	// ErrNotFound is returned for ids absent from their collection.
	ErrNotFound = errors.New("not found")

	// ErrDecode marks a persisted string that is neither plain nor enveloped JSON.
	ErrDecode = errors.New("decode: unreadable document")
	// ErrImportFormat marks imported JSON that lacks one of the four collection arrays.
	ErrImportFormat = errors.New("import: invalid data format")
	// ErrPersistenceUnavailable is returned by slots with no durable storage behind them.
	ErrPersistenceUnavailable = errors.New("persistence unavailable")
	// ErrLocked is returned when another process holds the data directory.
	ErrLocked = errors.New("data directory is locked by another instance")
)
