package lifecycle

import (
	"errors"
	bookingserrors "reservo/internal/bookings/errors"
	"reservo/pkg/model"
	"testing"
	"time"
)

var (
	now   = time.Date(2030, 5, 6, 8, 0, 0, 0, time.UTC)
	admin = model.Actor{UserID: "admin-1", Role: model.RoleAdmin}
	owner = model.Actor{UserID: "user-1", Role: model.RoleStudent}
	other = model.Actor{UserID: "user-2", Role: model.RoleStaff}
)

func newBooking(status model.BookingStatus, startsIn time.Duration) *model.Booking {
	return &model.Booking{
		ID:        "b-1",
		UserID:    owner.UserID,
		Status:    status,
		StartTime: now.Add(startsIn),
		EndTime:   now.Add(startsIn + time.Hour),
	}
}

func TestCanTransition(t *testing.T) {
	all := []model.BookingStatus{
		model.BookingStatusPending,
		model.BookingStatusApproved,
		model.BookingStatusRejected,
		model.BookingStatusCancelled,
	}
	legal := map[[2]model.BookingStatus]bool{
		{model.BookingStatusPending, model.BookingStatusApproved}:   true,
		{model.BookingStatusPending, model.BookingStatusRejected}:   true,
		{model.BookingStatusPending, model.BookingStatusCancelled}:  true,
		{model.BookingStatusApproved, model.BookingStatusCancelled}: true,
	}

	for _, from := range all {
		for _, to := range all {
			want := legal[[2]model.BookingStatus{from, to}]
			if got := CanTransition(from, to); got != want {
				t.Errorf("CanTransition(%s, %s) = %v, want %v", from, to, got, want)
			}
		}
	}
}

func TestAuthorizeTransition(t *testing.T) {
	policy := NewPolicy(2 * time.Hour)

	tests := []struct {
		name    string
		booking *model.Booking
		actor   model.Actor
		to      model.BookingStatus
		wantErr error
	}{
		{"admin approves pending", newBooking(model.BookingStatusPending, 24*time.Hour), admin, model.BookingStatusApproved, nil},
		{"admin rejects pending", newBooking(model.BookingStatusPending, 24*time.Hour), admin, model.BookingStatusRejected, nil},
		{"owner cannot approve", newBooking(model.BookingStatusPending, 24*time.Hour), owner, model.BookingStatusApproved, bookingserrors.ErrAdminOnly},
		{"approve twice", newBooking(model.BookingStatusApproved, 24*time.Hour), admin, model.BookingStatusApproved, bookingserrors.ErrIllegalTransition},
		{"reject approved", newBooking(model.BookingStatusApproved, 24*time.Hour), admin, model.BookingStatusRejected, bookingserrors.ErrIllegalTransition},
		{"owner cancels early", newBooking(model.BookingStatusApproved, 3*time.Hour), owner, model.BookingStatusCancelled, nil},
		{"owner cancels inside buffer", newBooking(model.BookingStatusPending, time.Hour), owner, model.BookingStatusCancelled, bookingserrors.ErrCancellationWindowClosed},
		{"owner cancels exactly at buffer", newBooking(model.BookingStatusPending, 2*time.Hour), owner, model.BookingStatusCancelled, bookingserrors.ErrCancellationWindowClosed},
		{"admin cancels inside buffer", newBooking(model.BookingStatusApproved, 10*time.Minute), admin, model.BookingStatusCancelled, nil},
		{"stranger cancels", newBooking(model.BookingStatusPending, 24*time.Hour), other, model.BookingStatusCancelled, bookingserrors.ErrNotOwner},
		{"cancel cancelled", newBooking(model.BookingStatusCancelled, 24*time.Hour), admin, model.BookingStatusCancelled, bookingserrors.ErrIllegalTransition},
		{"reenter pending", newBooking(model.BookingStatusApproved, 24*time.Hour), admin, model.BookingStatusPending, bookingserrors.ErrIllegalTransition},
		{"leave rejected", newBooking(model.BookingStatusRejected, 24*time.Hour), admin, model.BookingStatusApproved, bookingserrors.ErrIllegalTransition},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := policy.AuthorizeTransition(tt.booking, tt.actor, tt.to, now)
			if tt.wantErr == nil && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestAuthorizeEdit(t *testing.T) {
	policy := NewPolicy(2 * time.Hour)

	if err := policy.AuthorizeEdit(newBooking(model.BookingStatusPending, time.Hour), owner); err != nil {
		t.Errorf("owner should edit pending booking: %v", err)
	}
	if err := policy.AuthorizeEdit(newBooking(model.BookingStatusApproved, time.Hour), owner); !errors.Is(err, bookingserrors.ErrNotEditable) {
		t.Errorf("owner edit of approved booking: %v", err)
	}
	if err := policy.AuthorizeEdit(newBooking(model.BookingStatusPending, time.Hour), other); !errors.Is(err, bookingserrors.ErrNotOwner) {
		t.Errorf("stranger edit: %v", err)
	}
	if err := policy.AuthorizeEdit(newBooking(model.BookingStatusRejected, time.Hour), admin); err != nil {
		t.Errorf("admin edit: %v", err)
	}
}

func TestApply_RecordsCancellation(t *testing.T) {
	b := newBooking(model.BookingStatusApproved, 24*time.Hour)

	if err := Apply(b, model.BookingStatusCancelled, now, ""); err != nil {
		t.Fatal(err)
	}
	if b.Status != model.BookingStatusCancelled {
		t.Errorf("status = %s", b.Status)
	}
	if b.CancelledAt == nil || !b.CancelledAt.Equal(now) {
		t.Errorf("cancelled_at = %v", b.CancelledAt)
	}
	if b.CancellationReason == nil || *b.CancellationReason != DefaultCancellationReason {
		t.Errorf("reason = %v", b.CancellationReason)
	}

	if err := Apply(b, model.BookingStatusApproved, now, ""); !errors.Is(err, bookingserrors.ErrIllegalTransition) {
		t.Errorf("terminal state left: %v", err)
	}
}

func TestNoSequenceLeavesTerminalState(t *testing.T) {
	targets := []model.BookingStatus{
		model.BookingStatusPending,
		model.BookingStatusApproved,
		model.BookingStatusRejected,
		model.BookingStatusCancelled,
	}
	for _, terminal := range []model.BookingStatus{model.BookingStatusRejected, model.BookingStatusCancelled} {
		b := newBooking(terminal, 24*time.Hour)
		for _, to := range targets {
			if err := Apply(b, to, now, ""); err == nil {
				t.Errorf("moved %s to %s", terminal, to)
			}
		}
		if b.Status != terminal {
			t.Errorf("status changed from %s to %s", terminal, b.Status)
		}
	}
}
