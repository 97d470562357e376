package model

type Role string

const (
	RoleAdmin   Role = "admin"
	RoleStaff   Role = "staff"
	RoleStudent Role = "student"
	RoleRegular Role = "regular"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleStaff, RoleStudent, RoleRegular:
		return true
	}
	return false
}

// Actor is the caller on whose behalf an operation runs. It is always passed
// explicitly; nothing reads it from ambient state.
type Actor struct {
	UserID string `json:"user_id"`
	Role   Role   `json:"role"`
}

func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

func (a Actor) Owns(b *Booking) bool {
	return b != nil && a.UserID != "" && a.UserID == b.UserID
}
