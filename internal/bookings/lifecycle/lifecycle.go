package lifecycle

import (
	"fmt"
	bookingserrors "reservo/internal/bookings/errors"
	"reservo/pkg/model"
	"time"
)

const DefaultCancellationReason = "Cancelled by user"

// transitions lists every legal move. Anything absent, including any move
// out of a terminal state or back into pending, is illegal.
var transitions = map[model.BookingStatus][]model.BookingStatus{
	model.BookingStatusPending: {
		model.BookingStatusApproved,
		model.BookingStatusRejected,
		model.BookingStatusCancelled,
	},
	model.BookingStatusApproved: {
		model.BookingStatusCancelled,
	},
}

func CanTransition(from, to model.BookingStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Policy decides who may trigger which transition.
type Policy struct {
	CancellationBuffer time.Duration
}

func NewPolicy(cancellationBuffer time.Duration) Policy {
	return Policy{CancellationBuffer: cancellationBuffer}
}

func (p Policy) AuthorizeTransition(b *model.Booking, actor model.Actor, to model.BookingStatus, now time.Time) error {
	switch to {
	case model.BookingStatusApproved, model.BookingStatusRejected:
		if !actor.IsAdmin() {
			return bookingserrors.ErrAdminOnly
		}
	case model.BookingStatusCancelled:
		if !actor.IsAdmin() && !actor.Owns(b) {
			return bookingserrors.ErrNotOwner
		}
	}

	if !CanTransition(b.Status, to) {
		return fmt.Errorf("%w: %s to %s", bookingserrors.ErrIllegalTransition, b.Status, to)
	}

	if to == model.BookingStatusCancelled && !actor.IsAdmin() {
		if !now.Add(p.CancellationBuffer).Before(b.StartTime) {
			return fmt.Errorf("%w: cancellations close %s before start", bookingserrors.ErrCancellationWindowClosed, p.CancellationBuffer)
		}
	}
	return nil
}

// AuthorizeEdit allows owners to edit while pending; administrators always.
func (p Policy) AuthorizeEdit(b *model.Booking, actor model.Actor) error {
	if actor.IsAdmin() {
		return nil
	}
	if !actor.Owns(b) {
		return bookingserrors.ErrNotOwner
	}
	if b.Status != model.BookingStatusPending {
		return fmt.Errorf("%w: status is %s", bookingserrors.ErrNotEditable, b.Status)
	}
	return nil
}

func (p Policy) AuthorizeView(b *model.Booking, actor model.Actor) error {
	if actor.IsAdmin() || actor.Owns(b) {
		return nil
	}
	return bookingserrors.ErrNotOwner
}

// Apply moves b to status to. It does not authorize; callers run
// AuthorizeTransition first.
func Apply(b *model.Booking, to model.BookingStatus, now time.Time, reason string) error {
	if !CanTransition(b.Status, to) {
		return fmt.Errorf("%w: %s to %s", bookingserrors.ErrIllegalTransition, b.Status, to)
	}
	b.Status = to
	b.UpdatedAt = now
	if to == model.BookingStatusCancelled {
		if reason == "" {
			reason = DefaultCancellationReason
		}
		cancelledAt := now
		b.CancelledAt = &cancelledAt
		b.CancellationReason = &reason
	}
	return nil
}

// EventFor maps a status reached by a transition to the event announcing it.
func EventFor(status model.BookingStatus) (model.BookingEventType, bool) {
	switch status {
	case model.BookingStatusPending:
		return model.BookingEventCreated, true
	case model.BookingStatusApproved:
		return model.BookingEventApproved, true
	case model.BookingStatusRejected:
		return model.BookingEventRejected, true
	case model.BookingStatusCancelled:
		return model.BookingEventCancelled, true
	}
	return "", false
}
