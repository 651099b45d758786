package configstore

import "errors"

// Domain errors for the config store.
var (
	// ErrNotFound is returned when no entry exists under a name.
	ErrNotFound = errors.New("configstore: entry not found")

	// ErrInvalidName is returned for empty names or names that escape the
	// store root ("..").
	ErrInvalidName = errors.New("configstore: invalid entry name")

	// ErrInvalidContent is returned when contents do not parse as their
	// declared content type.
	ErrInvalidContent = errors.New("configstore: invalid contents")

	// ErrUnknownContentType is returned for content types the store does
	// not recognise.
	ErrUnknownContentType = errors.New("configstore: unknown content type")
)
