package service

import (
	"context"
	"errors"
	"reservo/internal/notifications/repository"
	"reservo/pkg/config"
	apperrors "reservo/pkg/errors"
	"reservo/pkg/model"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var fixedNow = time.Date(2030, 3, 4, 8, 0, 0, 0, time.UTC)

var (
	alice = model.Actor{UserID: "alice", Role: model.RoleStudent}
	bob   = model.Actor{UserID: "bob", Role: model.RoleStaff}
)

func newService(t *testing.T) NotificationService {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatal(err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := conn.AutoMigrate(&repository.NotificationRow{}, &repository.PreferencesRow{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	return NewNotificationService(
		repository.NewGormNotificationRepository(conn),
		repository.NewGormPreferencesRepository(conn),
		config.Defaults(),
		WithClock(func() time.Time { return fixedNow }),
	)
}

func bookingEvent(id string, typ model.BookingEventType, occurred time.Time) model.BookingEvent {
	return model.BookingEvent{
		ID:              id,
		BookingID:       "booking-" + id,
		Type:            typ,
		RecipientUserID: "alice",
		OccurredAt:      occurred,
		Payload: model.BookingPayload{
			ResourceID:   "room",
			ResourceName: "Room 101",
			StartTime:    time.Date(2030, 3, 5, 10, 0, 0, 0, time.UTC),
			EndTime:      time.Date(2030, 3, 5, 11, 0, 0, 0, time.UTC),
			Status:       model.BookingStatusPending,
		},
	}
}

func TestHandleEvent_StoresNotification(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	if err := svc.HandleEvent(ctx, bookingEvent("e1", model.BookingEventCreated, fixedNow)); err != nil {
		t.Fatal(err)
	}

	list, total, err := svc.List(ctx, alice, model.NotificationFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if total != 1 || len(list) != 1 {
		t.Fatalf("expected one notification, got %d", total)
	}
	n := list[0]
	if n.Title != "Booking Created" || n.Message != "Your booking request has been submitted and is awaiting approval." {
		t.Errorf("unexpected text: %q / %q", n.Title, n.Message)
	}
	if n.Type != model.NotificationTypeBookingStatus || n.Data["resource_name"] != "Room 101" || n.Data["start_time"] != "2030-03-05T10:00:00Z" {
		t.Errorf("unexpected notification: %+v", n)
	}
	if n.IsRead() {
		t.Error("new notifications are unread")
	}
}

func TestHandleEvent_RedeliveryIsIdempotent(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	ev := bookingEvent("e1", model.BookingEventApproved, fixedNow)

	for i := 0; i < 3; i++ {
		if err := svc.HandleEvent(ctx, ev); err != nil {
			t.Fatal(err)
		}
	}

	_, total, err := svc.List(ctx, alice, model.NotificationFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if total != 1 {
		t.Errorf("redelivered event stored %d times", total)
	}
}

func TestHandleEvent_InvalidEvents(t *testing.T) {
	svc := newService(t)

	ev := bookingEvent("e1", "archived", fixedNow)
	if err := svc.HandleEvent(context.Background(), ev); !errors.Is(err, ErrInvalidEvent) {
		t.Errorf("expected ErrInvalidEvent, got %v", err)
	}

	ev = bookingEvent("e2", model.BookingEventCreated, fixedNow)
	ev.RecipientUserID = ""
	if err := svc.HandleEvent(context.Background(), ev); !errors.Is(err, ErrInvalidEvent) {
		t.Errorf("expected ErrInvalidEvent, got %v", err)
	}
}

func TestHandleEvent_RespectsOptOut(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	_, err := svc.UpdatePreferences(ctx, alice, &model.PreferencesUpdate{
		Preferences: map[string]bool{model.PrefInAppBookingUpdates: false},
	})
	if err != nil {
		t.Fatal(err)
	}

	if err := svc.HandleEvent(ctx, bookingEvent("e1", model.BookingEventRejected, fixedNow)); err != nil {
		t.Fatal(err)
	}
	_, total, err := svc.List(ctx, alice, model.NotificationFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if total != 0 {
		t.Errorf("opted-out user received %d notifications", total)
	}
}

func TestList_NewestFirstAndUnreadFilter(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	for i, typ := range []model.BookingEventType{model.BookingEventCreated, model.BookingEventApproved, model.BookingEventCancelled} {
		ev := bookingEvent(string(typ), typ, fixedNow.Add(time.Duration(i)*time.Minute))
		if err := svc.HandleEvent(ctx, ev); err != nil {
			t.Fatal(err)
		}
	}

	list, _, err := svc.List(ctx, alice, model.NotificationFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 3 || list[0].Title != "Booking Cancelled" || list[2].Title != "Booking Created" {
		t.Fatalf("unexpected order: %+v", list)
	}

	if err := svc.MarkRead(ctx, alice, list[0].ID); err != nil {
		t.Fatal(err)
	}
	if err := svc.MarkRead(ctx, alice, list[0].ID); err != nil {
		t.Errorf("marking twice must succeed: %v", err)
	}

	unread, total, err := svc.List(ctx, alice, model.NotificationFilter{UnreadOnly: true})
	if err != nil {
		t.Fatal(err)
	}
	if total != 2 || len(unread) != 2 {
		t.Errorf("expected 2 unread, got %d", total)
	}

	if err := svc.MarkRead(ctx, bob, list[1].ID); !apperrors.HasCode(err, apperrors.CodeNotFound) {
		t.Errorf("other users cannot touch alice's notifications: %v", err)
	}

	n, err := svc.MarkAllRead(ctx, alice)
	if err != nil || n != 2 {
		t.Fatalf("mark all read: %d %v", n, err)
	}

	_, total, err = svc.List(ctx, bob, model.NotificationFilter{})
	if err != nil || total != 0 {
		t.Errorf("bob sees %d notifications (%v)", total, err)
	}
}

func TestPreferences_DefaultsAndMerge(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	prefs, err := svc.GetPreferences(ctx, alice)
	if err != nil {
		t.Fatal(err)
	}
	if !prefs.Preferences[model.PrefEmailNewMessages] || prefs.Preferences[model.PrefPushReminders] {
		t.Errorf("unexpected defaults: %v", prefs.Preferences)
	}

	_, err = svc.UpdatePreferences(ctx, alice, &model.PreferencesUpdate{
		Preferences: map[string]bool{model.PrefPushReminders: true},
	})
	if err != nil {
		t.Fatal(err)
	}
	updated, err := svc.UpdatePreferences(ctx, alice, &model.PreferencesUpdate{
		Preferences: map[string]bool{model.PrefEmailNewMessages: false},
	})
	if err != nil {
		t.Fatal(err)
	}
	if !updated.Preferences[model.PrefPushReminders] || updated.Preferences[model.PrefEmailNewMessages] {
		t.Errorf("earlier changes must survive later updates: %v", updated.Preferences)
	}

	stored, err := svc.GetPreferences(ctx, alice)
	if err != nil {
		t.Fatal(err)
	}
	if len(stored.Preferences) != len(model.DefaultNotificationPreferences()) || !stored.Preferences[model.PrefPushReminders] {
		t.Errorf("unexpected stored preferences: %v", stored.Preferences)
	}
}

func TestPreferences_Validation(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	_, err := svc.UpdatePreferences(ctx, alice, &model.PreferencesUpdate{
		Preferences: map[string]bool{"sms_everything": true},
	})
	appErr := apperrors.AsAppError(err)
	if appErr.Code != apperrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}

	_, err = svc.UpdatePreferences(ctx, alice, &model.PreferencesUpdate{})
	if !apperrors.HasCode(err, apperrors.CodeValidation) {
		t.Errorf("empty update must fail validation, got %v", err)
	}
}
