package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reservo/internal/notifications/service"
	apperrors "reservo/pkg/errors"
	"reservo/pkg/kafka"
	"reservo/pkg/logger"
	"reservo/pkg/middleware"
	"reservo/pkg/model"
	"strings"
	"testing"

	"github.com/julienschmidt/httprouter"
)

type mockNotificationService struct {
	handleFunc  func(ctx context.Context, event model.BookingEvent) error
	listFunc    func(ctx context.Context, actor model.Actor, filter model.NotificationFilter) ([]model.Notification, int64, error)
	markFunc    func(ctx context.Context, actor model.Actor, id string) error
	markAllFunc func(ctx context.Context, actor model.Actor) (int64, error)
	updateFunc  func(ctx context.Context, actor model.Actor, update *model.PreferencesUpdate) (*model.NotificationPreferences, error)
}

func (m *mockNotificationService) HandleEvent(ctx context.Context, event model.BookingEvent) error {
	return m.handleFunc(ctx, event)
}

func (m *mockNotificationService) List(ctx context.Context, actor model.Actor, filter model.NotificationFilter) ([]model.Notification, int64, error) {
	return m.listFunc(ctx, actor, filter)
}

func (m *mockNotificationService) MarkRead(ctx context.Context, actor model.Actor, id string) error {
	return m.markFunc(ctx, actor, id)
}

func (m *mockNotificationService) MarkAllRead(ctx context.Context, actor model.Actor) (int64, error) {
	return m.markAllFunc(ctx, actor)
}

func (m *mockNotificationService) GetPreferences(ctx context.Context, actor model.Actor) (*model.NotificationPreferences, error) {
	return &model.NotificationPreferences{UserID: actor.UserID, Preferences: model.DefaultNotificationPreferences()}, nil
}

func (m *mockNotificationService) UpdatePreferences(ctx context.Context, actor model.Actor, update *model.PreferencesUpdate) (*model.NotificationPreferences, error) {
	return m.updateFunc(ctx, actor, update)
}

var alice = model.Actor{UserID: "alice", Role: model.RoleStudent}

func newRouter(svc service.NotificationService) *httprouter.Router {
	router := httprouter.New()
	NewNotificationHandler(svc, logger.Discard()).RegisterRoutes(router)
	return router
}

func serve(router http.Handler, method, target, body string, actor *model.Actor) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	if actor != nil {
		req = req.WithContext(middleware.WithActor(req.Context(), *actor))
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestGetAll_UnreadFilter(t *testing.T) {
	var got model.NotificationFilter
	svc := &mockNotificationService{
		listFunc: func(ctx context.Context, actor model.Actor, filter model.NotificationFilter) ([]model.Notification, int64, error) {
			got = filter
			return []model.Notification{{ID: "n1", UserID: actor.UserID}}, 1, nil
		},
	}

	w := serve(newRouter(svc), http.MethodGet, "/api/v1/notifications?unread=true&limit=5", "", &alice)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if !got.UnreadOnly || got.Limit != 5 {
		t.Errorf("unexpected filter: %+v", got)
	}

	var body struct {
		TotalCount int64 `json:"total_count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil || body.TotalCount != 1 {
		t.Errorf("unexpected body: %s", w.Body.String())
	}
}

func TestGetAll_Unauthenticated(t *testing.T) {
	w := serve(newRouter(&mockNotificationService{}), http.MethodGet, "/api/v1/notifications", "", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
}

func TestMarkRead(t *testing.T) {
	svc := &mockNotificationService{
		markFunc: func(ctx context.Context, actor model.Actor, id string) error {
			if id != "n1" {
				return apperrors.NotFoundWithID("Notification", id)
			}
			return nil
		},
	}
	router := newRouter(svc)

	if w := serve(router, http.MethodPost, "/api/v1/notifications/id/n1/read", "", &alice); w.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", w.Code)
	}
	if w := serve(router, http.MethodPost, "/api/v1/notifications/id/n2/read", "", &alice); w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestMarkAllRead(t *testing.T) {
	svc := &mockNotificationService{
		markAllFunc: func(ctx context.Context, actor model.Actor) (int64, error) {
			return 3, nil
		},
	}

	w := serve(newRouter(svc), http.MethodPost, "/api/v1/notifications/read", "", &alice)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"updated":3`) {
		t.Errorf("unexpected body: %s", w.Body.String())
	}
}

func TestUpdatePreferences(t *testing.T) {
	svc := &mockNotificationService{
		updateFunc: func(ctx context.Context, actor model.Actor, update *model.PreferencesUpdate) (*model.NotificationPreferences, error) {
			if _, ok := update.Preferences["sms"]; ok {
				return nil, apperrors.ValidationField("preferences.sms", "unknown notification preference")
			}
			prefs := model.MergePreferences(update.Preferences)
			return &model.NotificationPreferences{UserID: actor.UserID, Preferences: prefs}, nil
		},
	}
	router := newRouter(svc)

	w := serve(router, http.MethodPut, "/api/v1/user/notification-preferences", `{"preferences":{"push_reminders":true}}`, &alice)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"push_reminders":true`) {
		t.Errorf("unexpected body: %s", w.Body.String())
	}

	w = serve(router, http.MethodPut, "/api/v1/user/notification-preferences", `{"preferences":{"sms":true}}`, &alice)
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422, got %d", w.Code)
	}
}

func TestGetPreferences(t *testing.T) {
	w := serve(newRouter(&mockNotificationService{}), http.MethodGet, "/api/v1/user/notification-preferences", "", &alice)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"in_app_booking_updates":true`) {
		t.Errorf("unexpected body: %s", w.Body.String())
	}
}

func buildEventMessage(t *testing.T, value any, eventID string) kafka.Message {
	t.Helper()
	msg, err := kafka.NewMessage().
		WithKey("booking-1").
		WithValue(value).
		WithEventID(eventID).
		Build()
	if err != nil {
		t.Fatal(err)
	}
	return msg
}

func TestEventHandler(t *testing.T) {
	var got model.BookingEvent
	storeErr := errors.New("connection reset")
	svc := &mockNotificationService{
		handleFunc: func(ctx context.Context, event model.BookingEvent) error {
			got = event
			switch event.Type {
			case model.BookingEventCreated:
				return nil
			case model.BookingEventApproved:
				return storeErr
			default:
				return fmt.Errorf("%w: unknown type", service.ErrInvalidEvent)
			}
		},
	}
	handle := EventHandler(svc, logger.Discard())
	ctx := context.Background()

	event := model.BookingEvent{BookingID: "booking-1", Type: model.BookingEventCreated, RecipientUserID: "alice"}
	if err := handle(ctx, buildEventMessage(t, event, "evt-1")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != "evt-1" {
		t.Errorf("event id should fall back to the header, got %q", got.ID)
	}

	event.Type = model.BookingEventApproved
	err := handle(ctx, buildEventMessage(t, event, "evt-2"))
	if kafka.ClassifyError(err) != kafka.ErrorTypeTransient || !errors.Is(err, storeErr) {
		t.Errorf("store failures must be retried, got %v", err)
	}

	event.Type = "archived"
	err = handle(ctx, buildEventMessage(t, event, "evt-3"))
	if kafka.ClassifyError(err) != kafka.ErrorTypePermanent {
		t.Errorf("invalid events must not be retried, got %v", err)
	}

	err = handle(ctx, buildEventMessage(t, "not an event", "evt-4"))
	if kafka.ClassifyError(err) != kafka.ErrorTypePermanent {
		t.Errorf("undecodable records must not be retried, got %v", err)
	}
}
