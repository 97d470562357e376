package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	apperrors "reservo/pkg/errors"
	"reservo/pkg/logger"
	"reservo/pkg/middleware"
	"reservo/pkg/model"
	"strings"
	"testing"
	"time"

	"github.com/julienschmidt/httprouter"
)

type mockResourceService struct {
	createFunc func(ctx context.Context, actor model.Actor, req *model.ResourceCreate) (*model.Resource, error)
	listFunc   func(ctx context.Context, filter model.ResourceFilter) ([]model.Resource, int64, error)
	searchFunc func(ctx context.Context, keyword string, start, end *time.Time, limit int, offset int64) ([]model.Resource, int64, error)
	deleteFunc func(ctx context.Context, actor model.Actor, id string) error
}

func (m *mockResourceService) Create(ctx context.Context, actor model.Actor, req *model.ResourceCreate) (*model.Resource, error) {
	return m.createFunc(ctx, actor, req)
}

func (m *mockResourceService) GetByID(ctx context.Context, id string) (*model.Resource, error) {
	return nil, apperrors.NotFoundWithID("Resource", id)
}

func (m *mockResourceService) GetForUpdate(ctx context.Context, id string) (*model.Resource, error) {
	return nil, nil
}

func (m *mockResourceService) GetByIDs(ctx context.Context, ids []string) (map[string]*model.Resource, error) {
	return nil, nil
}

func (m *mockResourceService) List(ctx context.Context, filter model.ResourceFilter) ([]model.Resource, int64, error) {
	return m.listFunc(ctx, filter)
}

func (m *mockResourceService) Update(ctx context.Context, actor model.Actor, id string, updates *model.ResourceUpdate) (*model.Resource, error) {
	return nil, nil
}

func (m *mockResourceService) Delete(ctx context.Context, actor model.Actor, id string) error {
	return m.deleteFunc(ctx, actor, id)
}

func (m *mockResourceService) Search(ctx context.Context, keyword string, start, end *time.Time, limit int, offset int64) ([]model.Resource, int64, error) {
	return m.searchFunc(ctx, keyword, start, end, limit, offset)
}

func newRouter(svc *mockResourceService) *httprouter.Router {
	router := httprouter.New()
	NewResourceHandler(svc, logger.Discard()).RegisterRoutes(router)
	return router
}

func TestCreate_RequiresActor(t *testing.T) {
	router := newRouter(&mockResourceService{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/resources", strings.NewReader(`{"name":"Lab","capacity":1}`))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestCreate_PassesActorAndBody(t *testing.T) {
	var gotActor model.Actor
	var gotReq model.ResourceCreate
	svc := &mockResourceService{
		createFunc: func(ctx context.Context, actor model.Actor, req *model.ResourceCreate) (*model.Resource, error) {
			gotActor, gotReq = actor, *req
			return &model.Resource{ID: "r1", Name: req.Name, Capacity: req.Capacity, IsActive: true}, nil
		},
	}
	router := newRouter(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/resources", strings.NewReader(`{"name":"Lab","capacity":4}`))
	admin := model.Actor{UserID: "admin-1", Role: model.RoleAdmin}
	req = req.WithContext(middleware.WithActor(req.Context(), admin))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	if gotActor != admin || gotReq.Capacity != 4 {
		t.Errorf("unexpected service input: actor=%+v req=%+v", gotActor, gotReq)
	}
}

func TestCreate_UnknownFieldRejected(t *testing.T) {
	router := newRouter(&mockResourceService{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/resources", strings.NewReader(`{"nme":"Lab"}`))
	req = req.WithContext(middleware.WithActor(req.Context(), model.Actor{UserID: "a", Role: model.RoleAdmin}))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestGetByID_NotFound(t *testing.T) {
	router := newRouter(&mockResourceService{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/resources/id/missing", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}

	var body struct {
		Error string `json:"error"`
		Code  string `json:"code"`
	}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Code != apperrors.CodeNotFound {
		t.Errorf("expected code %s, got %s", apperrors.CodeNotFound, body.Code)
	}
}

func TestGetAll_InvalidQueryParameters(t *testing.T) {
	router := newRouter(&mockResourceService{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/resources?limit=abc", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestGetAll_Paginated(t *testing.T) {
	var got model.ResourceFilter
	svc := &mockResourceService{
		listFunc: func(ctx context.Context, filter model.ResourceFilter) ([]model.Resource, int64, error) {
			got = filter
			return []model.Resource{{ID: "r1"}, {ID: "r2"}}, 12, nil
		},
	}
	router := newRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/resources?limit=2&offset=4&active=true", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if got.Limit != 2 || got.Offset != 4 || !got.ActiveOnly {
		t.Errorf("unexpected filter: %+v", got)
	}

	var response struct {
		Data       []model.Resource `json:"data"`
		TotalCount int64            `json:"total_count"`
	}
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatal(err)
	}
	if response.TotalCount != 12 || len(response.Data) != 2 {
		t.Errorf("unexpected response: %+v", response)
	}
}

func TestSearch_WindowParsing(t *testing.T) {
	var gotStart, gotEnd *time.Time
	svc := &mockResourceService{
		searchFunc: func(ctx context.Context, keyword string, start, end *time.Time, limit int, offset int64) ([]model.Resource, int64, error) {
			gotStart, gotEnd = start, end
			return []model.Resource{}, 0, nil
		},
	}
	router := newRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/resources/search?q=lab&start_time=2030-01-01T10:00:00Z&end_time=2030-01-01T11:00:00Z", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if gotStart == nil || gotEnd == nil || gotEnd.Sub(*gotStart) != time.Hour {
		t.Errorf("window not passed through: %v %v", gotStart, gotEnd)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/resources/search?start_time=tomorrow", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed time, got %d", w.Code)
	}
}

func TestDelete(t *testing.T) {
	var gotID string
	svc := &mockResourceService{
		deleteFunc: func(ctx context.Context, actor model.Actor, id string) error {
			if !actor.IsAdmin() {
				return apperrors.Forbidden("Only administrators can delete resources")
			}
			gotID = id
			return nil
		},
	}
	router := newRouter(svc)

	tests := []struct {
		name     string
		actor    *model.Actor
		wantCode int
	}{
		{name: "unauthenticated", wantCode: http.StatusUnauthorized},
		{name: "regular user", actor: &model.Actor{UserID: "u1", Role: model.RoleStudent}, wantCode: http.StatusForbidden},
		{name: "admin", actor: &model.Actor{UserID: "a1", Role: model.RoleAdmin}, wantCode: http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodDelete, "/api/v1/resources/id/r1", nil)
			if tt.actor != nil {
				req = req.WithContext(middleware.WithActor(req.Context(), *tt.actor))
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != tt.wantCode {
				t.Fatalf("expected %d, got %d: %s", tt.wantCode, w.Code, w.Body.String())
			}
		})
	}

	if gotID != "r1" {
		t.Errorf("expected id r1, got %q", gotID)
	}
}
