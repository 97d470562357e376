package model

import "time"

type AvailabilityCheck struct {
	ResourceID string    `json:"resource_id"`
	StartTime  time.Time `json:"start_time"`
	EndTime    time.Time `json:"end_time"`
	Available  bool      `json:"available"`
	Reason     string    `json:"reason,omitempty"`
	Conflicts  []Booking `json:"conflicts,omitempty"`
}

type BookedSlot struct {
	BookingID string        `json:"booking_id"`
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Status    BookingStatus `json:"status"`
}

type ResourceAvailability struct {
	ResourceID string       `json:"resource_id"`
	Capacity   int          `json:"capacity"`
	StartDate  time.Time    `json:"start_date"`
	EndDate    time.Time    `json:"end_date"`
	Bookings   []BookedSlot `json:"bookings"`
}
