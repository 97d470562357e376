package service

import (
	"context"
	"fmt"
	"reservo/internal/bookings/conflict"
	bookingserrors "reservo/internal/bookings/errors"
	"reservo/internal/bookings/lifecycle"
	"reservo/internal/bookings/repository"
	"reservo/internal/bookings/validator"
	"reservo/pkg/config"
	apperrors "reservo/pkg/errors"
	"reservo/pkg/lock"
	"reservo/pkg/model"
	"reservo/pkg/sanitizer"
	"reservo/pkg/validation"
	"sync"
	"time"

	"github.com/google/uuid"
)

type BookingService interface {
	Create(ctx context.Context, actor model.Actor, req *model.BookingRequest) (*model.Booking, error)
	GetByID(ctx context.Context, actor model.Actor, id string) (*model.Booking, error)
	List(ctx context.Context, actor model.Actor, filter model.BookingFilter) ([]model.Booking, int64, error)
	Update(ctx context.Context, actor model.Actor, id string, updates *model.BookingUpdate) (*model.Booking, error)
	Cancel(ctx context.Context, actor model.Actor, id string, reason string) (*model.Booking, error)
	Approve(ctx context.Context, actor model.Actor, id string) (*model.Booking, error)
	Reject(ctx context.Context, actor model.Actor, id string) (*model.Booking, error)
	Delete(ctx context.Context, actor model.Actor, id string) error

	CheckAvailability(ctx context.Context, resourceID string, start, end time.Time) (*model.AvailabilityCheck, error)
	ResourceAvailability(ctx context.Context, resourceID string, startDate, endDate time.Time) (*model.ResourceAvailability, error)
}

// ResourceRegistry is the part of the resource service the booking core
// depends on. Errors it returns are already AppErrors.
type ResourceRegistry interface {
	GetByID(ctx context.Context, id string) (*model.Resource, error)
	// GetForUpdate must be called with a transaction context; the resource
	// stays locked until that transaction ends.
	GetForUpdate(ctx context.Context, id string) (*model.Resource, error)
	GetByIDs(ctx context.Context, ids []string) (map[string]*model.Resource, error)
}

// EventPublisher hands lifecycle events to the notification collaborator.
// Publish must not block and never reports delivery failures.
type EventPublisher interface {
	Publish(event model.BookingEvent)
}

type bookingService struct {
	repo      repository.BookingRepository
	registry  ResourceRegistry
	locker    lock.Locker
	detector  conflict.Detector
	cache     conflict.Cache
	events    EventPublisher
	validator *validator.BookingValidator
	policy    lifecycle.Policy
	cfg       *config.Config
	now       func() time.Time
}

type Option func(*bookingService)

func WithClock(now func() time.Time) Option {
	return func(s *bookingService) {
		s.now = now
	}
}

func NewBookingService(
	repo repository.BookingRepository,
	registry ResourceRegistry,
	locker lock.Locker,
	detector conflict.Detector,
	cache conflict.Cache,
	events EventPublisher,
	validator *validator.BookingValidator,
	cfg *config.Config,
	opts ...Option,
) BookingService {
	s := &bookingService{
		repo:      repo,
		registry:  registry,
		locker:    locker,
		detector:  detector,
		cache:     cache,
		events:    events,
		validator: validator,
		policy:    lifecycle.NewPolicy(cfg.BookingCancellationBuf),
		cfg:       cfg,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *bookingService) Create(ctx context.Context, actor model.Actor, req *model.BookingRequest) (*model.Booking, error) {
	s.sanitizeRequest(req)
	if err := s.validator.Validate(req); err != nil {
		s.cfg.Log.Warn("Booking validation failed",
			"user_id", actor.UserID,
			"resource_id", req.ResourceID,
			"error", err,
		)
		return nil, validation.ToAppError("Booking validation failed", err)
	}

	now := s.now().UTC()
	booking := &model.Booking{
		ID:         uuid.NewString(),
		ResourceID: req.ResourceID,
		UserID:     actor.UserID,
		StartTime:  req.StartTime.UTC(),
		EndTime:    req.EndTime.UTC(),
		Status:     model.BookingStatusPending,
		Purpose:    req.Purpose,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	var resource *model.Resource
	err := s.admit(ctx, booking.ResourceID, func(txCtx context.Context) error {
		var err error
		resource, err = s.lockActiveResource(txCtx, booking.ResourceID)
		if err != nil {
			return err
		}

		if err := s.ensureCapacity(txCtx, resource, booking.StartTime, booking.EndTime, ""); err != nil {
			return err
		}

		active, err := s.repo.CountActiveByUser(txCtx, actor.UserID, now)
		if err != nil {
			return fmt.Errorf("failed to count active bookings: %w", err)
		}
		if active >= int64(s.cfg.BookingMaxActivePerUser) {
			return fmt.Errorf("%w: %d of %d", bookingserrors.ErrActiveBookingLimit, active, s.cfg.BookingMaxActivePerUser)
		}

		if err := s.repo.Create(txCtx, booking); err != nil {
			return fmt.Errorf("failed to create booking: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, s.fail("create", actor, booking, err)
	}

	s.cache.Invalidate(booking.ResourceID, booking.StartTime, booking.EndTime)
	booking.Resource = resource
	s.publish(booking, model.BookingEventCreated)

	s.cfg.Log.Info("Booking created successfully",
		"booking_id", booking.ID,
		"resource_id", booking.ResourceID,
		"user_id", booking.UserID,
		"start_time", booking.StartTime,
		"end_time", booking.EndTime,
	)

	return booking, nil
}

func (s *bookingService) GetByID(ctx context.Context, actor model.Actor, id string) (*model.Booking, error) {
	booking, err := s.find(ctx, id)
	if err != nil {
		return nil, s.fail("get", actor, &model.Booking{ID: id}, err)
	}
	if err := s.policy.AuthorizeView(booking, actor); err != nil {
		return nil, s.fail("get", actor, booking, err)
	}

	s.attachResources(ctx, booking)
	return booking, nil
}

func (s *bookingService) List(ctx context.Context, actor model.Actor, filter model.BookingFilter) ([]model.Booking, int64, error) {
	if !actor.IsAdmin() {
		filter.UserID = actor.UserID
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, 0, apperrors.ValidationField("status", "status must be one of: pending approved rejected cancelled")
	}
	filter.ResourceID = sanitizer.SanitizeID(filter.ResourceID)
	filter.Limit = config.NormalizePaginationLimit(filter.Limit)
	filter.Offset = config.NormalizeOffset(filter.Offset)

	var count int64
	var bookings []model.Booking
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		var err error
		count, err = s.repo.Count(ctx, filter)
		if err != nil {
			s.cfg.Log.Error("Failed to count bookings", "user_id", actor.UserID, "error", err)
			errCount = apperrors.Internal("Failed to count bookings", err)
		}
	}()

	go func() {
		defer wg.Done()
		var err error
		bookings, err = s.repo.FindAll(ctx, filter)
		if err != nil {
			s.cfg.Log.Error("Failed to list bookings",
				"user_id", actor.UserID,
				"limit", filter.Limit,
				"offset", filter.Offset,
				"error", err,
			)
			errFind = apperrors.Internal("Failed to fetch bookings", err)
		}
	}()
	wg.Wait()

	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}

	ptrs := make([]*model.Booking, len(bookings))
	for i := range bookings {
		ptrs[i] = &bookings[i]
	}
	s.attachResources(ctx, ptrs...)

	return bookings, count, nil
}

func (s *bookingService) Update(ctx context.Context, actor model.Actor, id string, updates *model.BookingUpdate) (*model.Booking, error) {
	if updates.Purpose != nil {
		purpose := sanitizer.SanitizeText(*updates.Purpose)
		updates.Purpose = &purpose
	}
	if err := s.validator.ValidateUpdate(updates); err != nil {
		s.cfg.Log.Warn("Booking update validation failed",
			"booking_id", id,
			"user_id", actor.UserID,
			"error", err,
		)
		return nil, validation.ToAppError("Booking validation failed", err)
	}
	if updates.Status != nil && !actor.IsAdmin() {
		return nil, apperrors.Forbidden("Only administrators can change booking status")
	}

	var previous model.Booking
	var resource *model.Resource
	var event model.BookingEventType

	booking, loaded, err := s.mutate(ctx, actor, id, func(txCtx context.Context, b *model.Booking) error {
		if err := s.policy.AuthorizeEdit(b, actor); err != nil {
			return err
		}
		previous = *b
		now := s.now().UTC()

		start, end := b.StartTime, b.EndTime
		if updates.StartTime != nil {
			start = updates.StartTime.UTC()
		}
		if updates.EndTime != nil {
			end = updates.EndTime.UTC()
		}
		intervalChanged := !start.Equal(b.StartTime) || !end.Equal(b.EndTime)

		if updates.Status != nil && *updates.Status != b.Status {
			if err := s.policy.AuthorizeTransition(b, actor, *updates.Status, now); err != nil {
				return err
			}
			if err := lifecycle.Apply(b, *updates.Status, now, ""); err != nil {
				return err
			}
			event, _ = lifecycle.EventFor(b.Status)
		}

		if intervalChanged {
			if err := s.validator.ValidateInterval(start, end); err != nil {
				return err
			}
			b.StartTime, b.EndTime = start, end
		}

		// A booking that ends up rejected or cancelled occupies nothing, so
		// only active bookings are re-checked against the new interval.
		if intervalChanged && b.Status.IsActive() {
			var err error
			resource, err = s.lockActiveResource(txCtx, b.ResourceID)
			if err != nil {
				return err
			}
			if err := s.ensureCapacity(txCtx, resource, b.StartTime, b.EndTime, b.ID); err != nil {
				return err
			}
		}

		if updates.Purpose != nil {
			b.Purpose = *updates.Purpose
		}
		b.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, s.fail("update", actor, updateLogSubject(id, loaded, updates), err)
	}

	s.cache.Invalidate(previous.ResourceID, previous.StartTime, previous.EndTime)
	if !previous.StartTime.Equal(booking.StartTime) || !previous.EndTime.Equal(booking.EndTime) {
		s.cache.Invalidate(booking.ResourceID, booking.StartTime, booking.EndTime)
	}

	if resource != nil {
		booking.Resource = resource
	} else {
		s.attachResources(ctx, booking)
	}
	if event != "" {
		s.publish(booking, event)
	}

	s.cfg.Log.Info("Booking updated successfully",
		"booking_id", booking.ID,
		"user_id", actor.UserID,
		"status", booking.Status,
	)

	return booking, nil
}

func (s *bookingService) Cancel(ctx context.Context, actor model.Actor, id string, reason string) (*model.Booking, error) {
	reason = sanitizer.SanitizeText(reason)
	if err := s.validator.ValidateCancel(&model.CancelRequest{Reason: reason}); err != nil {
		return nil, validation.ToAppError("Cancellation validation failed", err)
	}
	return s.transition(ctx, actor, id, "cancel", model.BookingStatusCancelled, reason)
}

func (s *bookingService) Approve(ctx context.Context, actor model.Actor, id string) (*model.Booking, error) {
	return s.transition(ctx, actor, id, "approve", model.BookingStatusApproved, "")
}

func (s *bookingService) Reject(ctx context.Context, actor model.Actor, id string) (*model.Booking, error) {
	return s.transition(ctx, actor, id, "reject", model.BookingStatusRejected, "")
}

func (s *bookingService) transition(ctx context.Context, actor model.Actor, id, op string, to model.BookingStatus, reason string) (*model.Booking, error) {
	booking, loaded, err := s.mutate(ctx, actor, id, func(txCtx context.Context, b *model.Booking) error {
		now := s.now().UTC()
		if err := s.policy.AuthorizeTransition(b, actor, to, now); err != nil {
			return err
		}
		return lifecycle.Apply(b, to, now, reason)
	})
	if err != nil {
		return nil, s.fail(op, actor, logSubject(id, loaded), err)
	}

	s.cache.Invalidate(booking.ResourceID, booking.StartTime, booking.EndTime)

	s.attachResources(ctx, booking)
	if event, ok := lifecycle.EventFor(to); ok {
		s.publish(booking, event)
	}

	s.cfg.Log.Info("Booking status changed",
		"booking_id", booking.ID,
		"status", booking.Status,
		"actor", actor.UserID,
	)

	return booking, nil
}

// Delete permanently removes a booking. It is an administrative purge and
// emits no lifecycle event.
func (s *bookingService) Delete(ctx context.Context, actor model.Actor, id string) error {
	if !actor.IsAdmin() {
		return apperrors.Forbidden("Only administrators can delete bookings")
	}

	existing, err := s.find(ctx, id)
	if err != nil {
		return s.fail("delete", actor, &model.Booking{ID: id}, err)
	}

	err = s.admit(ctx, existing.ResourceID, func(txCtx context.Context) error {
		return s.repo.Delete(txCtx, existing.ID)
	})
	if err != nil {
		return s.fail("delete", actor, existing, err)
	}

	s.cache.Invalidate(existing.ResourceID, existing.StartTime, existing.EndTime)

	s.cfg.Log.Info("Booking deleted successfully",
		"booking_id", existing.ID,
		"resource_id", existing.ResourceID,
		"actor", actor.UserID,
	)

	return nil
}

// admit serializes fn with every other write against resourceID: the
// resource lock is taken before the transaction opens and released only
// after it commits or rolls back.
func (s *bookingService) admit(ctx context.Context, resourceID string, fn func(txCtx context.Context) error) error {
	unlock, err := s.locker.Lock(ctx, resourceID)
	if err != nil {
		return err
	}
	defer unlock()

	return s.repo.ExecuteTransaction(ctx, fn)
}

// mutate loads the booking, takes its resource lock, reloads it inside the
// transaction, applies fn and persists the result. The booking as first
// loaded is returned even on failure so callers can log its resource.
func (s *bookingService) mutate(ctx context.Context, actor model.Actor, id string, fn func(txCtx context.Context, b *model.Booking) error) (*model.Booking, *model.Booking, error) {
	existing, err := s.find(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	var updated *model.Booking
	err = s.admit(ctx, existing.ResourceID, func(txCtx context.Context) error {
		b, err := s.repo.FindByID(txCtx, existing.ID)
		if err != nil {
			return err
		}
		if err := fn(txCtx, b); err != nil {
			return err
		}
		if err := s.repo.Update(txCtx, b); err != nil {
			return fmt.Errorf("failed to update booking: %w", err)
		}
		updated = b
		return nil
	})
	if err != nil {
		return nil, existing, err
	}
	return updated, existing, nil
}

func (s *bookingService) find(ctx context.Context, id string) (*model.Booking, error) {
	id = sanitizer.SanitizeID(id)
	if id == "" {
		return nil, apperrors.InvalidInput("Booking ID cannot be empty")
	}
	return s.repo.FindByID(ctx, id)
}

func (s *bookingService) lockActiveResource(txCtx context.Context, resourceID string) (*model.Resource, error) {
	resource, err := s.registry.GetForUpdate(txCtx, resourceID)
	if err != nil {
		return nil, err
	}
	if !resource.IsActive {
		return nil, bookingserrors.ErrResourceInactive
	}
	return resource, nil
}

// ensureCapacity runs the authoritative detector. It must be called with the
// resource lock held.
func (s *bookingService) ensureCapacity(txCtx context.Context, resource *model.Resource, start, end time.Time, excludeID string) error {
	result, err := s.detector.CheckConflicts(txCtx, resource.ID, start, end, resource.Capacity, excludeID)
	if err != nil {
		return err
	}
	if result.HasConflict {
		return &capacityError{result: result}
	}
	return nil
}

func (s *bookingService) attachResources(ctx context.Context, bookings ...*model.Booking) {
	if len(bookings) == 0 {
		return
	}

	seen := make(map[string]bool, len(bookings))
	ids := make([]string, 0, len(bookings))
	for _, b := range bookings {
		if !seen[b.ResourceID] {
			seen[b.ResourceID] = true
			ids = append(ids, b.ResourceID)
		}
	}

	resources, err := s.registry.GetByIDs(ctx, ids)
	if err != nil {
		s.cfg.Log.Warn("Failed to load resources for bookings", "count", len(ids), "error", err)
		return
	}
	for _, b := range bookings {
		b.Resource = resources[b.ResourceID]
	}
}

func (s *bookingService) publish(b *model.Booking, eventType model.BookingEventType) {
	if s.events == nil {
		return
	}

	payload := model.BookingPayload{
		ResourceID: b.ResourceID,
		StartTime:  b.StartTime,
		EndTime:    b.EndTime,
		Status:     b.Status,
	}
	if b.Resource != nil {
		payload.ResourceName = b.Resource.Name
	}
	if b.CancellationReason != nil {
		payload.Reason = *b.CancellationReason
	}

	s.events.Publish(model.BookingEvent{
		ID:              uuid.NewString(),
		BookingID:       b.ID,
		Type:            eventType,
		RecipientUserID: b.UserID,
		Payload:         payload,
		OccurredAt:      s.now().UTC(),
	})
}

func (s *bookingService) sanitizeRequest(req *model.BookingRequest) {
	req.ResourceID = sanitizer.SanitizeID(req.ResourceID)
	req.Purpose = sanitizer.SanitizeText(req.Purpose)
}

func logSubject(id string, loaded *model.Booking) *model.Booking {
	if loaded == nil {
		return &model.Booking{ID: id}
	}
	subject := *loaded
	return &subject
}

// updateLogSubject is the loaded booking with the requested interval laid
// over it.
func updateLogSubject(id string, loaded *model.Booking, updates *model.BookingUpdate) *model.Booking {
	subject := logSubject(id, loaded)
	if updates.StartTime != nil {
		subject.StartTime = updates.StartTime.UTC()
	}
	if updates.EndTime != nil {
		subject.EndTime = updates.EndTime.UTC()
	}
	return subject
}
