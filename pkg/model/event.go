package model

import "time"

type BookingEventType string

const (
	BookingEventCreated   BookingEventType = "created"
	BookingEventApproved  BookingEventType = "approved"
	BookingEventRejected  BookingEventType = "rejected"
	BookingEventCancelled BookingEventType = "cancelled"
)

// BookingEvent is what the booking core hands to the notification sink.
type BookingEvent struct {
	ID              string           `json:"id"`
	BookingID       string           `json:"booking_id"`
	Type            BookingEventType `json:"type"`
	RecipientUserID string           `json:"recipient_user_id"`
	Payload         BookingPayload   `json:"payload"`
	OccurredAt      time.Time        `json:"occurred_at"`
}

type BookingPayload struct {
	ResourceID   string        `json:"resource_id"`
	ResourceName string        `json:"resource_name,omitempty"`
	StartTime    time.Time     `json:"start_time"`
	EndTime      time.Time     `json:"end_time"`
	Status       BookingStatus `json:"status"`
	Reason       string        `json:"reason,omitempty"`
}
