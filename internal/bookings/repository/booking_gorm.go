package repository

import (
	"context"
	"errors"
	"fmt"
	bookingserrors "reservo/internal/bookings/errors"
	"reservo/pkg/db"
	gormdb "reservo/pkg/db/gorm"
	"reservo/pkg/model"
	"time"

	"gorm.io/gorm"
)

type gormBookingRepository struct {
	db        *gorm.DB
	txManager db.TransactionManager
}

func NewGormBookingRepository(conn *gorm.DB) BookingRepository {
	return &gormBookingRepository{
		db:        conn,
		txManager: gormdb.NewTransactionManager(conn),
	}
}

func (r *gormBookingRepository) conn(ctx context.Context) *gorm.DB {
	return gormdb.Conn(ctx, r.db)
}

func (r *gormBookingRepository) Create(ctx context.Context, booking *model.Booking) error {
	if err := r.conn(ctx).Create(booking).Error; err != nil {
		return fmt.Errorf("failed to create booking: %w", err)
	}
	return nil
}

func (r *gormBookingRepository) FindByID(ctx context.Context, id string) (*model.Booking, error) {
	var booking model.Booking
	if err := r.conn(ctx).First(&booking, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, bookingserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find booking: %w", err)
	}
	return &booking, nil
}

func (r *gormBookingRepository) FindAll(ctx context.Context, filter model.BookingFilter) ([]model.Booking, error) {
	q := r.listQuery(ctx, filter).Order("start_time DESC").Offset(int(filter.Offset))
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}

	bookings := []model.Booking{}
	if err := q.Find(&bookings).Error; err != nil {
		return nil, fmt.Errorf("failed to find bookings: %w", err)
	}
	return bookings, nil
}

func (r *gormBookingRepository) Count(ctx context.Context, filter model.BookingFilter) (int64, error) {
	var total int64
	if err := r.listQuery(ctx, filter).Count(&total).Error; err != nil {
		return 0, fmt.Errorf("failed to count bookings: %w", err)
	}
	return total, nil
}

func (r *gormBookingRepository) Update(ctx context.Context, booking *model.Booking) error {
	result := r.conn(ctx).
		Model(&model.Booking{}).
		Where("id = ?", booking.ID).
		Updates(map[string]any{
			"start_time":          booking.StartTime,
			"end_time":            booking.EndTime,
			"status":              booking.Status,
			"purpose":             booking.Purpose,
			"cancellation_reason": booking.CancellationReason,
			"cancelled_at":        booking.CancelledAt,
			"updated_at":          booking.UpdatedAt,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update booking: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return bookingserrors.ErrNotFound
	}
	return nil
}

func (r *gormBookingRepository) Delete(ctx context.Context, id string) error {
	result := r.conn(ctx).Delete(&model.Booking{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete booking: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return bookingserrors.ErrNotFound
	}
	return nil
}

func (r *gormBookingRepository) FindActiveOverlapping(ctx context.Context, resourceID string, start, end time.Time, excludeID string) ([]model.Booking, error) {
	q := r.conn(ctx).
		Where("resource_id = ?", resourceID).
		Where("status IN ?", activeStatuses()).
		Where("start_time < ? AND end_time > ?", end, start)
	if excludeID != "" {
		q = q.Where("id <> ?", excludeID)
	}

	bookings := []model.Booking{}
	if err := q.Order("start_time ASC").Find(&bookings).Error; err != nil {
		return nil, fmt.Errorf("failed to find overlapping bookings: %w", err)
	}
	return bookings, nil
}

func (r *gormBookingRepository) CountActiveByUser(ctx context.Context, userID string, now time.Time) (int64, error) {
	var total int64
	err := r.conn(ctx).
		Model(&model.Booking{}).
		Where("user_id = ?", userID).
		Where("status IN ?", activeStatuses()).
		Where("end_time > ?", now).
		Count(&total).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count active bookings: %w", err)
	}
	return total, nil
}

func (r *gormBookingRepository) FindActiveStartingBetween(ctx context.Context, resourceID string, from, to time.Time) ([]model.Booking, error) {
	bookings := []model.Booking{}
	err := r.conn(ctx).
		Where("resource_id = ?", resourceID).
		Where("status IN ?", activeStatuses()).
		Where("start_time >= ? AND start_time < ?", from, to).
		Order("start_time ASC").
		Find(&bookings).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find bookings in window: %w", err)
	}
	return bookings, nil
}

func (r *gormBookingRepository) ExecuteTransaction(ctx context.Context, fn db.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}

func (r *gormBookingRepository) listQuery(ctx context.Context, f model.BookingFilter) *gorm.DB {
	q := r.conn(ctx).Model(&model.Booking{})
	if f.UserID != "" {
		q = q.Where("user_id = ?", f.UserID)
	}
	if f.ResourceID != "" {
		q = q.Where("resource_id = ?", f.ResourceID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", string(f.Status))
	}
	if !f.StartsAfter.IsZero() {
		q = q.Where("start_time > ?", f.StartsAfter)
	}
	return q
}
