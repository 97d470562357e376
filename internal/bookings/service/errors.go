package service

import (
	"context"
	"errors"
	"fmt"
	"reservo/internal/bookings/conflict"
	bookingserrors "reservo/internal/bookings/errors"
	apperrors "reservo/pkg/errors"
	"reservo/pkg/lock"
	"reservo/pkg/model"
	"reservo/pkg/validation"
)

type capacityError struct {
	result conflict.Result
}

func (e *capacityError) Error() string {
	return e.result.Reason
}

func (e *capacityError) Unwrap() error {
	return bookingserrors.ErrCapacityExhausted
}

// fail converts err into the AppError returned to callers. Infrastructure
// failures are logged with the actor, resource and interval involved and
// surface as an opaque internal error.
func (s *bookingService) fail(op string, actor model.Actor, b *model.Booking, err error) error {
	appErr := s.toAppError(op, b.ID, err)

	attrs := []any{
		"operation", op,
		"booking_id", b.ID,
		"user_id", actor.UserID,
		"role", actor.Role,
		"resource_id", b.ResourceID,
		"start_time", b.StartTime,
		"end_time", b.EndTime,
		"code", appErr.Code,
		"error", err,
	}

	switch appErr.Code {
	case apperrors.CodeInternal, apperrors.CodeUnavailable:
		s.cfg.Log.Error("Booking operation failed", attrs...)
	case apperrors.CodeTimeout:
		s.cfg.Log.Warn("Booking operation timed out", attrs...)
	default:
		s.cfg.Log.Info("Booking operation rejected", attrs...)
	}

	return appErr
}

func (s *bookingService) toAppError(op, bookingID string, err error) *apperrors.AppError {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	var verrs validation.ValidationErrors
	if errors.As(err, &verrs) {
		return apperrors.AsAppError(validation.ToAppError("Booking validation failed", verrs))
	}

	var capErr *capacityError
	if errors.As(err, &capErr) {
		return apperrors.Conflict(capErr.result.Reason).WithDetails(map[string]any{
			"capacity":             capErr.result.Capacity,
			"conflicting_bookings": capErr.result.Conflicting,
		})
	}

	switch {
	case errors.Is(err, lock.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return apperrors.Timeout("Timed out waiting for the resource, please retry")
	case errors.Is(err, bookingserrors.ErrNotFound):
		return apperrors.NotFoundWithID("Booking", bookingID)
	case errors.Is(err, bookingserrors.ErrResourceNotFound):
		return apperrors.NotFound("Resource")
	case errors.Is(err, bookingserrors.ErrResourceInactive):
		return apperrors.Conflict("Resource is currently unavailable")
	case errors.Is(err, bookingserrors.ErrActiveBookingLimit):
		return apperrors.RateLimited(fmt.Sprintf("You have reached the maximum number of active bookings (%d)", s.cfg.BookingMaxActivePerUser))
	case errors.Is(err, bookingserrors.ErrAdminOnly):
		return apperrors.Forbidden("Only administrators can perform this action")
	case errors.Is(err, bookingserrors.ErrNotOwner):
		return apperrors.Forbidden("You do not have access to this booking")
	case errors.Is(err, bookingserrors.ErrNotEditable):
		return apperrors.Forbidden("Only pending bookings can be edited")
	case errors.Is(err, bookingserrors.ErrCancellationWindowClosed):
		return apperrors.Forbidden(fmt.Sprintf("Bookings can only be cancelled more than %s before they start", s.cfg.BookingCancellationBuf))
	case errors.Is(err, bookingserrors.ErrIllegalTransition):
		return apperrors.Conflict(err.Error())
	}

	return apperrors.Internal(fmt.Sprintf("Failed to %s booking", op), err)
}
