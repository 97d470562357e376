package service

import (
	"context"
	"fmt"
	"reservo/internal/bookings/conflict"
	apperrors "reservo/pkg/errors"
	"reservo/pkg/model"
	"time"
)

const availableReason = "Resource is available for the selected time period"

// CheckAvailability answers from the conflict cache. The answer is a hint for
// the caller; Create re-checks under the resource lock.
func (s *bookingService) CheckAvailability(ctx context.Context, resourceID string, start, end time.Time) (*model.AvailabilityCheck, error) {
	if start.IsZero() || end.IsZero() {
		return nil, apperrors.ValidationField("start_time", "start_time and end_time are required")
	}
	if !end.After(start) {
		return nil, apperrors.ValidationField("end_time", "end_time must be after start_time")
	}

	resource, err := s.registry.GetByID(ctx, resourceID)
	if err != nil {
		return nil, err
	}
	if !resource.IsActive {
		return nil, apperrors.Conflict("Resource is not available")
	}

	start, end = start.UTC(), end.UTC()
	result, err := s.cache.CheckConflicts(ctx, resource.ID, start, end, resource.Capacity)
	if err != nil {
		s.cfg.Log.Error("Failed to check availability",
			"resource_id", resource.ID,
			"start_time", start,
			"end_time", end,
			"error", err,
		)
		return nil, apperrors.Internal("Error checking availability", err)
	}

	check := &model.AvailabilityCheck{
		ResourceID: resource.ID,
		StartTime:  start,
		EndTime:    end,
		Available:  !result.HasConflict,
		Reason:     availableReason,
	}
	if result.HasConflict {
		check.Reason = result.Reason
		check.Conflicts = result.Conflicting
	}
	return check, nil
}

// ResourceAvailability lists the active bookings starting within the whole
// days from startDate to endDate inclusive.
func (s *bookingService) ResourceAvailability(ctx context.Context, resourceID string, startDate, endDate time.Time) (*model.ResourceAvailability, error) {
	from := conflict.StartOfDay(startDate)
	to := conflict.StartOfDay(endDate)
	today := conflict.StartOfDay(s.now())

	if from.Before(today) {
		return nil, apperrors.ValidationField("start_date", "start_date must be today or later")
	}
	if to.Before(from) {
		return nil, apperrors.ValidationField("end_date", "end_date must be on or after start_date")
	}
	maxDays := s.cfg.AvailabilityMaxRangeDays
	if to.Sub(from) > time.Duration(maxDays)*24*time.Hour {
		return nil, apperrors.ValidationField("end_date", fmt.Sprintf("Date range cannot exceed %d days", maxDays))
	}

	resource, err := s.registry.GetByID(ctx, resourceID)
	if err != nil {
		return nil, err
	}

	slots, err := s.cache.RememberAvailability(ctx, resource.ID, from, to, func(ctx context.Context) ([]model.BookedSlot, error) {
		bookings, err := s.repo.FindActiveStartingBetween(ctx, resource.ID, from, to.AddDate(0, 0, 1))
		if err != nil {
			return nil, err
		}
		slots := make([]model.BookedSlot, 0, len(bookings))
		for _, b := range bookings {
			slots = append(slots, model.BookedSlot{
				BookingID: b.ID,
				StartTime: b.StartTime,
				EndTime:   b.EndTime,
				Status:    b.Status,
			})
		}
		return slots, nil
	})
	if err != nil {
		s.cfg.Log.Error("Failed to fetch availability data",
			"resource_id", resource.ID,
			"start_date", from,
			"end_date", to,
			"error", err,
		)
		return nil, apperrors.Internal("Failed to fetch availability data", err)
	}

	return &model.ResourceAvailability{
		ResourceID: resource.ID,
		Capacity:   resource.Capacity,
		StartDate:  from,
		EndDate:    to,
		Bookings:   slots,
	}, nil
}
