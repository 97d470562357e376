package errors

import "errors"

var (
	ErrNotFound = errors.New("notification not found")

	ErrUnknownPreference = errors.New("unknown notification preference")
)
