package model

import "time"

type Resource struct {
	ID          string    `json:"id" bson:"_id" gorm:"primaryKey;type:varchar(36)"`
	Name        string    `json:"name" bson:"name" gorm:"type:varchar(255);not null;index"`
	Description string    `json:"description,omitempty" bson:"description,omitempty" gorm:"type:text"`
	Location    string    `json:"location,omitempty" bson:"location,omitempty" gorm:"type:varchar(255)"`
	Capacity    int       `json:"capacity" bson:"capacity" gorm:"not null"`
	IsActive    bool      `json:"is_active" bson:"is_active" gorm:"not null"`
	LockVersion int64     `json:"-" bson:"lock_version" gorm:"not null"`
	CreatedAt   time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" bson:"updated_at"`
}

func (Resource) TableName() string {
	return "resources"
}

type ResourceCreate struct {
	Name        string `json:"name" validate:"required,min=2,max=255"`
	Description string `json:"description" validate:"max=2000"`
	Location    string `json:"location" validate:"max=255"`
	Capacity    int    `json:"capacity" validate:"required,min=1,max=10000"`
	IsActive    *bool  `json:"is_active"`
}

type ResourceUpdate struct {
	Name        *string `json:"name,omitempty" validate:"omitnil,min=2,max=255"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=2000"`
	Location    *string `json:"location,omitempty" validate:"omitempty,max=255"`
	Capacity    *int    `json:"capacity,omitempty" validate:"omitempty,min=1,max=10000"`
	IsActive    *bool   `json:"is_active,omitempty"`
}

type ResourceFilter struct {
	Keyword    string
	ActiveOnly bool
	Limit      int
	Offset     int64
}
