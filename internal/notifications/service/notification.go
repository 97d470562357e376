package service

import (
	"context"
	"errors"
	"fmt"
	notificationserrors "reservo/internal/notifications/errors"
	"reservo/internal/notifications/repository"
	"reservo/pkg/config"
	apperrors "reservo/pkg/errors"
	"reservo/pkg/model"
	"reservo/pkg/sanitizer"
	"reservo/pkg/validation"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var bookingMessages = map[model.BookingEventType]string{
	model.BookingEventCreated:   "Your booking request has been submitted and is awaiting approval.",
	model.BookingEventApproved:  "Your booking has been approved!",
	model.BookingEventRejected:  "Your booking request has been rejected.",
	model.BookingEventCancelled: "Your booking has been cancelled.",
}

// ErrInvalidEvent marks events that can never be delivered.
var ErrInvalidEvent = errors.New("invalid booking event")

type NotificationService interface {
	// HandleEvent stores the in-app notification for a booking lifecycle
	// event unless the recipient opted out of booking updates.
	HandleEvent(ctx context.Context, event model.BookingEvent) error
	List(ctx context.Context, actor model.Actor, filter model.NotificationFilter) ([]model.Notification, int64, error)
	MarkRead(ctx context.Context, actor model.Actor, id string) error
	MarkAllRead(ctx context.Context, actor model.Actor) (int64, error)
	GetPreferences(ctx context.Context, actor model.Actor) (*model.NotificationPreferences, error)
	UpdatePreferences(ctx context.Context, actor model.Actor, update *model.PreferencesUpdate) (*model.NotificationPreferences, error)
}

type notificationService struct {
	notifications repository.NotificationRepository
	preferences   repository.PreferencesRepository
	validate      *validator.Validate
	cfg           *config.Config
	now           func() time.Time
}

type Option func(*notificationService)

func WithClock(now func() time.Time) Option {
	return func(s *notificationService) {
		s.now = now
	}
}

func NewNotificationService(
	notifications repository.NotificationRepository,
	preferences repository.PreferencesRepository,
	cfg *config.Config,
	opts ...Option,
) NotificationService {
	s := &notificationService{
		notifications: notifications,
		preferences:   preferences,
		validate:      validation.New(),
		cfg:           cfg,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *notificationService) HandleEvent(ctx context.Context, event model.BookingEvent) error {
	message, ok := bookingMessages[event.Type]
	if !ok {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidEvent, event.Type)
	}
	if event.RecipientUserID == "" || event.BookingID == "" {
		return fmt.Errorf("%w: missing recipient or booking id", ErrInvalidEvent)
	}

	prefs, err := s.loadPreferences(ctx, event.RecipientUserID)
	if err != nil {
		return err
	}
	if !prefs[model.PrefInAppBookingUpdates] {
		s.cfg.Log.Info("Recipient opted out of booking notifications",
			"user_id", event.RecipientUserID,
			"booking_id", event.BookingID,
			"type", event.Type,
		)
		return nil
	}

	id := event.ID
	if id == "" {
		id = uuid.NewString()
	}
	createdAt := event.OccurredAt
	if createdAt.IsZero() {
		createdAt = s.now()
	}

	notification := &model.Notification{
		ID:      id,
		UserID:  event.RecipientUserID,
		Type:    model.NotificationTypeBookingStatus,
		Title:   "Booking " + capitalize(string(event.Type)),
		Message: message,
		Data: map[string]any{
			"booking_id":    event.BookingID,
			"resource_id":   event.Payload.ResourceID,
			"resource_name": event.Payload.ResourceName,
			"start_time":    event.Payload.StartTime.UTC().Format(time.RFC3339),
			"end_time":      event.Payload.EndTime.UTC().Format(time.RFC3339),
			"status":        string(event.Payload.Status),
		},
		CreatedAt: createdAt.UTC(),
	}
	if event.Payload.Reason != "" {
		notification.Data["reason"] = event.Payload.Reason
	}

	if err := s.notifications.Create(ctx, notification); err != nil {
		return fmt.Errorf("failed to store notification for booking %s: %w", event.BookingID, err)
	}

	s.cfg.Log.Info("Booking notification stored",
		"notification_id", notification.ID,
		"user_id", notification.UserID,
		"booking_id", event.BookingID,
		"type", event.Type,
	)
	return nil
}

func (s *notificationService) List(ctx context.Context, actor model.Actor, filter model.NotificationFilter) ([]model.Notification, int64, error) {
	filter.UserID = actor.UserID
	filter.Limit = config.NormalizePaginationLimit(filter.Limit)
	filter.Offset = config.NormalizeOffset(filter.Offset)

	var (
		notifications []model.Notification
		total         int64
		findErr       error
		countErr      error
		wg            sync.WaitGroup
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		notifications, findErr = s.notifications.FindAll(ctx, filter)
	}()
	go func() {
		defer wg.Done()
		total, countErr = s.notifications.Count(ctx, filter)
	}()
	wg.Wait()

	if err := errors.Join(findErr, countErr); err != nil {
		s.cfg.Log.Error("Failed to list notifications", "user_id", actor.UserID, "error", err)
		return nil, 0, apperrors.Internal("Failed to retrieve notifications", err)
	}
	return notifications, total, nil
}

func (s *notificationService) MarkRead(ctx context.Context, actor model.Actor, id string) error {
	id = sanitizer.SanitizeID(id)
	if id == "" {
		return apperrors.InvalidInput("Notification ID cannot be empty")
	}

	if err := s.notifications.MarkRead(ctx, actor.UserID, id, s.now().UTC()); err != nil {
		if errors.Is(err, notificationserrors.ErrNotFound) {
			return apperrors.NotFoundWithID("Notification", id)
		}
		s.cfg.Log.Error("Failed to mark notification read", "id", id, "user_id", actor.UserID, "error", err)
		return apperrors.Internal("Failed to update notification", err)
	}
	return nil
}

func (s *notificationService) MarkAllRead(ctx context.Context, actor model.Actor) (int64, error) {
	n, err := s.notifications.MarkAllRead(ctx, actor.UserID, s.now().UTC())
	if err != nil {
		s.cfg.Log.Error("Failed to mark notifications read", "user_id", actor.UserID, "error", err)
		return 0, apperrors.Internal("Failed to update notifications", err)
	}
	return n, nil
}

func (s *notificationService) GetPreferences(ctx context.Context, actor model.Actor) (*model.NotificationPreferences, error) {
	stored, err := s.preferences.Get(ctx, actor.UserID)
	switch {
	case errors.Is(err, notificationserrors.ErrNotFound):
		return &model.NotificationPreferences{
			UserID:      actor.UserID,
			Preferences: model.DefaultNotificationPreferences(),
		}, nil
	case err != nil:
		s.cfg.Log.Error("Failed to load notification preferences", "user_id", actor.UserID, "error", err)
		return nil, apperrors.Internal("Failed to retrieve notification preferences", err)
	}

	stored.Preferences = model.MergePreferences(stored.Preferences)
	return stored, nil
}

// UpdatePreferences merges the given keys onto the current preferences.
// Keys outside the default schema are rejected.
func (s *notificationService) UpdatePreferences(ctx context.Context, actor model.Actor, update *model.PreferencesUpdate) (*model.NotificationPreferences, error) {
	if err := s.validatePreferences(update); err != nil {
		return nil, validation.ToAppError("Preferences validation failed", err)
	}

	current, err := s.GetPreferences(ctx, actor)
	if err != nil {
		return nil, err
	}
	for k, v := range update.Preferences {
		current.Preferences[k] = v
	}
	current.UpdatedAt = s.now().UTC()

	if err := s.preferences.Upsert(ctx, current); err != nil {
		s.cfg.Log.Error("Failed to save notification preferences", "user_id", actor.UserID, "error", err)
		return nil, apperrors.Internal("Failed to update notification preferences", err)
	}

	s.cfg.Log.Info("Notification preferences updated", "user_id", actor.UserID, "keys", len(update.Preferences))
	return current, nil
}

func (s *notificationService) validatePreferences(update *model.PreferencesUpdate) error {
	if err := validation.Struct(s.validate, update); err != nil {
		return err
	}

	defaults := model.DefaultNotificationPreferences()
	var unknown []string
	for k := range update.Preferences {
		if _, ok := defaults[k]; !ok {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) == 0 {
		return nil
	}

	sort.Strings(unknown)
	errs := make(validation.ValidationErrors, 0, len(unknown))
	for _, k := range unknown {
		errs = append(errs, validation.ValidationError{
			Field:   "preferences." + k,
			Message: notificationserrors.ErrUnknownPreference.Error(),
		})
	}
	return errs
}

func (s *notificationService) loadPreferences(ctx context.Context, userID string) (map[string]bool, error) {
	stored, err := s.preferences.Get(ctx, userID)
	if errors.Is(err, notificationserrors.ErrNotFound) {
		return model.DefaultNotificationPreferences(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load preferences for %s: %w", userID, err)
	}
	return model.MergePreferences(stored.Preferences), nil
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
