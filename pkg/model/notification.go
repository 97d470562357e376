package model

import "time"

const NotificationTypeBookingStatus = "booking_status"

type Notification struct {
	ID        string         `json:"id" bson:"_id"`
	UserID    string         `json:"user_id" bson:"user_id"`
	Type      string         `json:"type" bson:"type"`
	Title     string         `json:"title" bson:"title"`
	Message   string         `json:"message" bson:"message"`
	Data      map[string]any `json:"data,omitempty" bson:"data,omitempty"`
	ReadAt    *time.Time     `json:"read_at,omitempty" bson:"read_at,omitempty"`
	CreatedAt time.Time      `json:"created_at" bson:"created_at"`
}

func (n *Notification) IsRead() bool {
	return n.ReadAt != nil
}

type NotificationFilter struct {
	UserID     string
	UnreadOnly bool
	Limit      int
	Offset     int64
}

type PreferencesUpdate struct {
	Preferences map[string]bool `json:"preferences" validate:"required,min=1"`
}

const (
	PrefEmailNewMessages    = "email_new_messages"
	PrefEmailSystemUpdates  = "email_system_updates"
	PrefInAppMentions       = "in_app_mentions"
	PrefInAppLikes          = "in_app_likes"
	PrefPushReminders       = "push_reminders"
	PrefInAppBookingUpdates = "in_app_booking_updates"
)

// DefaultNotificationPreferences is the fixed schema every user's overrides
// are merged onto. Keys outside it are ignored.
func DefaultNotificationPreferences() map[string]bool {
	return map[string]bool{
		PrefEmailNewMessages:    true,
		PrefEmailSystemUpdates:  true,
		PrefInAppMentions:       true,
		PrefInAppLikes:          true,
		PrefPushReminders:       false,
		PrefInAppBookingUpdates: true,
	}
}

type NotificationPreferences struct {
	UserID      string          `json:"user_id" bson:"_id"`
	Preferences map[string]bool `json:"preferences" bson:"preferences"`
	UpdatedAt   time.Time       `json:"updated_at" bson:"updated_at"`
}

// MergePreferences overlays stored values onto the defaults key by key.
func MergePreferences(stored map[string]bool) map[string]bool {
	merged := DefaultNotificationPreferences()
	for k, v := range stored {
		if _, known := merged[k]; known {
			merged[k] = v
		}
	}
	return merged
}
