package errors

import "errors"

var (
	ErrNotFound = errors.New("resource not found")

	ErrInvalidWindow = errors.New("availability window end must be after start")
)
