package repository

import (
	"context"
	"errors"
	"fmt"
	notificationserrors "reservo/internal/notifications/errors"
	gormdb "reservo/pkg/db/gorm"
	"reservo/pkg/model"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// NotificationRow is the relational shape of model.Notification.
type NotificationRow struct {
	ID        string            `gorm:"primaryKey;type:varchar(36)"`
	UserID    string            `gorm:"type:varchar(64);not null;index:idx_notifications_user_created,priority:1"`
	Type      string            `gorm:"type:varchar(32);not null"`
	Title     string            `gorm:"type:varchar(200);not null"`
	Message   string            `gorm:"type:text;not null"`
	Data      datatypes.JSONMap `gorm:"type:json"`
	ReadAt    *time.Time
	CreatedAt time.Time `gorm:"not null;index:idx_notifications_user_created,priority:2"`
}

func (NotificationRow) TableName() string {
	return "notifications"
}

// PreferencesRow stores only the keys the user changed; reads merge them
// onto the defaults.
type PreferencesRow struct {
	UserID      string                              `gorm:"primaryKey;type:varchar(64)"`
	Preferences datatypes.JSONType[map[string]bool] `gorm:"type:json;not null"`
	UpdatedAt   time.Time
}

func (PreferencesRow) TableName() string {
	return "notification_preferences"
}

type gormNotificationRepository struct {
	db *gorm.DB
}

func NewGormNotificationRepository(conn *gorm.DB) NotificationRepository {
	return &gormNotificationRepository{db: conn}
}

func (r *gormNotificationRepository) Create(ctx context.Context, n *model.Notification) error {
	row := NotificationRow{
		ID:        n.ID,
		UserID:    n.UserID,
		Type:      n.Type,
		Title:     n.Title,
		Message:   n.Message,
		Data:      datatypes.JSONMap(n.Data),
		ReadAt:    n.ReadAt,
		CreatedAt: n.CreatedAt,
	}
	err := gormdb.Conn(ctx, r.db).Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}

func (r *gormNotificationRepository) FindAll(ctx context.Context, filter model.NotificationFilter) ([]model.Notification, error) {
	q := r.listQuery(ctx, filter).Order("created_at DESC").Offset(int(filter.Offset))
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}

	var rows []NotificationRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to find notifications: %w", err)
	}

	notifications := make([]model.Notification, 0, len(rows))
	for _, row := range rows {
		notifications = append(notifications, model.Notification{
			ID:        row.ID,
			UserID:    row.UserID,
			Type:      row.Type,
			Title:     row.Title,
			Message:   row.Message,
			Data:      map[string]any(row.Data),
			ReadAt:    row.ReadAt,
			CreatedAt: row.CreatedAt,
		})
	}
	return notifications, nil
}

func (r *gormNotificationRepository) Count(ctx context.Context, filter model.NotificationFilter) (int64, error) {
	var count int64
	if err := r.listQuery(ctx, filter).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count notifications: %w", err)
	}
	return count, nil
}

func (r *gormNotificationRepository) MarkRead(ctx context.Context, userID, id string, at time.Time) error {
	conn := gormdb.Conn(ctx, r.db)
	result := conn.Model(&NotificationRow{}).
		Where("id = ? AND user_id = ? AND read_at IS NULL", id, userID).
		Update("read_at", at)
	if result.Error != nil {
		return fmt.Errorf("failed to mark notification read: %w", result.Error)
	}
	if result.RowsAffected > 0 {
		return nil
	}

	// Nothing changed: either already read or not this user's notification.
	var count int64
	if err := conn.Model(&NotificationRow{}).Where("id = ? AND user_id = ?", id, userID).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to find notification: %w", err)
	}
	if count == 0 {
		return notificationserrors.ErrNotFound
	}
	return nil
}

func (r *gormNotificationRepository) MarkAllRead(ctx context.Context, userID string, at time.Time) (int64, error) {
	result := gormdb.Conn(ctx, r.db).Model(&NotificationRow{}).
		Where("user_id = ? AND read_at IS NULL", userID).
		Update("read_at", at)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func (r *gormNotificationRepository) listQuery(ctx context.Context, f model.NotificationFilter) *gorm.DB {
	q := gormdb.Conn(ctx, r.db).Model(&NotificationRow{}).Where("user_id = ?", f.UserID)
	if f.UnreadOnly {
		q = q.Where("read_at IS NULL")
	}
	return q
}

type gormPreferencesRepository struct {
	db *gorm.DB
}

func NewGormPreferencesRepository(conn *gorm.DB) PreferencesRepository {
	return &gormPreferencesRepository{db: conn}
}

func (r *gormPreferencesRepository) Get(ctx context.Context, userID string) (*model.NotificationPreferences, error) {
	var row PreferencesRow
	err := gormdb.Conn(ctx, r.db).Where("user_id = ?", userID).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notificationserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find notification preferences: %w", err)
	}
	return &model.NotificationPreferences{
		UserID:      row.UserID,
		Preferences: row.Preferences.Data(),
		UpdatedAt:   row.UpdatedAt,
	}, nil
}

func (r *gormPreferencesRepository) Upsert(ctx context.Context, prefs *model.NotificationPreferences) error {
	row := PreferencesRow{
		UserID:      prefs.UserID,
		Preferences: datatypes.NewJSONType(prefs.Preferences),
		UpdatedAt:   prefs.UpdatedAt,
	}
	err := gormdb.Conn(ctx, r.db).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"preferences", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to save notification preferences: %w", err)
	}
	return nil
}
