package model

import (
	"time"
)

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusApproved  BookingStatus = "approved"
	BookingStatusRejected  BookingStatus = "rejected"
	BookingStatusCancelled BookingStatus = "cancelled"
)

// ActiveBookingStatuses are the statuses that occupy resource capacity.
var ActiveBookingStatuses = []BookingStatus{BookingStatusPending, BookingStatusApproved}

func (s BookingStatus) IsActive() bool {
	return s == BookingStatusPending || s == BookingStatusApproved
}

// IsFinal reports whether no further transition is possible.
func (s BookingStatus) IsFinal() bool {
	return s == BookingStatusRejected || s == BookingStatusCancelled
}

func (s BookingStatus) Valid() bool {
	switch s {
	case BookingStatusPending, BookingStatusApproved, BookingStatusRejected, BookingStatusCancelled:
		return true
	}
	return false
}

type Booking struct {
	ID                 string        `json:"id" bson:"_id" gorm:"primaryKey;type:varchar(36)"`
	ResourceID         string        `json:"resource_id" bson:"resource_id" gorm:"type:varchar(36);not null;index:idx_bookings_resource_window,priority:1"`
	UserID             string        `json:"user_id" bson:"user_id" gorm:"type:varchar(64);not null;index"`
	StartTime          time.Time     `json:"start_time" bson:"start_time" gorm:"not null;index:idx_bookings_resource_window,priority:2"`
	EndTime            time.Time     `json:"end_time" bson:"end_time" gorm:"not null;index:idx_bookings_resource_window,priority:3"`
	Status             BookingStatus `json:"status" bson:"status" gorm:"type:varchar(16);not null;index"`
	Purpose            string        `json:"purpose" bson:"purpose" gorm:"type:varchar(500);not null"`
	CancellationReason *string       `json:"cancellation_reason,omitempty" bson:"cancellation_reason,omitempty" gorm:"type:varchar(500)"`
	CancelledAt        *time.Time    `json:"cancelled_at,omitempty" bson:"cancelled_at,omitempty"`
	CreatedAt          time.Time     `json:"created_at" bson:"created_at"`
	UpdatedAt          time.Time     `json:"updated_at" bson:"updated_at"`

	// Resource is filled in for display only and never persisted with the booking.
	Resource *Resource `json:"resource,omitempty" bson:"-" gorm:"-"`
}

func (Booking) TableName() string {
	return "bookings"
}

// Overlaps uses half-open intervals: a booking ending at 11:00 does not
// overlap one starting at 11:00.
func (b *Booking) Overlaps(start, end time.Time) bool {
	return Overlaps(b.StartTime, b.EndTime, start, end)
}

func Overlaps(start1, end1, start2, end2 time.Time) bool {
	return start1.Before(end2) && start2.Before(end1)
}

type BookingRequest struct {
	ResourceID string    `json:"resource_id" validate:"required,max=64"`
	StartTime  time.Time `json:"start_time" validate:"required"`
	EndTime    time.Time `json:"end_time" validate:"required,gtfield=StartTime"`
	Purpose    string    `json:"purpose" validate:"required,purpose_length"`
}

// BookingUpdate carries only the fields the caller wants to change.
// Status is honored for administrators only.
type BookingUpdate struct {
	StartTime *time.Time     `json:"start_time,omitempty"`
	EndTime   *time.Time     `json:"end_time,omitempty"`
	Purpose   *string        `json:"purpose,omitempty" validate:"omitnil,purpose_length"`
	Status    *BookingStatus `json:"status,omitempty" validate:"omitempty,oneof=pending approved rejected cancelled"`
}

func (u *BookingUpdate) IsEmpty() bool {
	return u.StartTime == nil && u.EndTime == nil && u.Purpose == nil && u.Status == nil
}

type CancelRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

type BookingFilter struct {
	UserID     string
	ResourceID string
	Status     BookingStatus
	// StartsAfter keeps only bookings starting after the given instant; zero disables it.
	StartsAfter time.Time
	Limit       int
	Offset      int64
}
