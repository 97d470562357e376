package postgres

import (
	"context"
	"fmt"
	notificationsrepo "reservo/internal/notifications/repository"
	"reservo/pkg/logger"
	"reservo/pkg/model"

	"gorm.io/gorm"
)

// Models lists every table the services use, parents first.
func Models() []any {
	return []any{
		&model.Resource{},
		&model.Booking{},
		&notificationsrepo.NotificationRow{},
		&notificationsrepo.PreferencesRow{},
	}
}

// activeBookingIndexes speed up the overlap and per-user ceiling queries,
// which only ever look at pending and approved rows.
var activeBookingIndexes = []string{
	`CREATE INDEX IF NOT EXISTS idx_bookings_active_window ON bookings (resource_id, start_time, end_time) WHERE status IN ('pending', 'approved')`,
	`CREATE INDEX IF NOT EXISTS idx_bookings_active_user ON bookings (user_id, end_time) WHERE status IN ('pending', 'approved')`,
}

func RunMigration(ctx context.Context, conn *gorm.DB, log *logger.Logger) error {
	db := conn.WithContext(ctx)
	log.Info("Running SQL migrations", "dialect", db.Dialector.Name())

	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	for _, stmt := range activeBookingIndexes {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("create partial index: %w", err)
		}
	}

	log.Info("All SQL migrations applied")
	return nil
}
