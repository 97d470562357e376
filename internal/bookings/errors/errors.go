package errors

import "errors"

var (
	ErrNotFound = errors.New("booking not found")

	ErrResourceNotFound = errors.New("resource not found")

	ErrResourceInactive = errors.New("resource is not available for booking")

	ErrCapacityExhausted = errors.New("resource capacity exhausted for the requested time")

	ErrActiveBookingLimit = errors.New("active booking limit reached")

	ErrIllegalTransition = errors.New("booking status transition not allowed")

	ErrAdminOnly = errors.New("operation requires an administrator")

	ErrNotOwner = errors.New("booking belongs to another user")

	ErrNotEditable = errors.New("booking can no longer be edited")

	ErrCancellationWindowClosed = errors.New("booking starts too soon to be cancelled")
)
