package model

import "time"

// ResourceLock is an advisory lease serializing admissions against one
// resource across processes. The TTL index on ExpiresAt reclaims leases
// abandoned by crashed holders.
type ResourceLock struct {
	ID        string    `bson:"_id" json:"id"`
	Owner     string    `bson:"owner" json:"owner"`
	ExpiresAt time.Time `bson:"expires_at" json:"expires_at"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
