package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"reservo/internal/health"
	"reservo/pkg/config"
	"reservo/pkg/middleware"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/julienschmidt/httprouter"
)

const testSecret = "test-secret"

type echoHandler struct {
	calls atomic.Int32
}

func (h *echoHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/echo", func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		n := h.calls.Add(1)
		actor, _ := middleware.ActorFromContext(r.Context())
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"user":"` + actor.UserID + `","call":` + strconv.Itoa(int(n)) + `}`))
	})
}

func token(t *testing.T, subject, role string) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub":  subject,
		"role": role,
		"exp":  time.Now().Add(time.Hour).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatal(err)
	}
	return signed
}

func newTestApp(t *testing.T, rateLimit int) (http.Handler, *echoHandler) {
	t.Helper()
	cfg := config.Defaults()
	cfg.JWTSecret = testSecret
	cfg.RateLimitRequests = rateLimit

	echo := &echoHandler{}
	a := NewApplication(cfg)
	up := health.PingerFunc(func(context.Context) error { return nil })
	if err := a.SetApp(up, echo); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		a.idempotencyStore.Stop()
		a.rateLimiter.Stop()
	})
	return a.Handler(), echo
}

func post(h http.Handler, tok, idemKey string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/echo", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	if idemKey != "" {
		req.Header.Set("Idempotency-Key", idemKey)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHealthBypassesAuthentication(t *testing.T) {
	h, _ := newTestApp(t, 100)

	for _, path := range []string{"/health", "/ready"} {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		if w.Code != http.StatusOK {
			t.Errorf("%s: expected 200, got %d", path, w.Code)
		}
	}
}

func TestAPIRequiresToken(t *testing.T) {
	h, echo := newTestApp(t, 100)

	if w := post(h, "", ""); w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", w.Code)
	}
	if w := post(h, "not-a-jwt", ""); w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 with garbage token, got %d", w.Code)
	}
	w := post(h, token(t, "alice", "student"), "")
	if w.Code != http.StatusCreated || !strings.Contains(w.Body.String(), `"user":"alice"`) {
		t.Errorf("unexpected response: %d %s", w.Code, w.Body.String())
	}
	if echo.calls.Load() != 1 {
		t.Errorf("expected one call, got %d", echo.calls.Load())
	}
}

func TestRateLimitPerUser(t *testing.T) {
	h, _ := newTestApp(t, 2)
	alice := token(t, "alice", "student")

	for i := 0; i < 2; i++ {
		if w := post(h, alice, ""); w.Code != http.StatusCreated {
			t.Fatalf("request %d: expected 201, got %d", i, w.Code)
		}
	}
	if w := post(h, alice, ""); w.Code != http.StatusTooManyRequests {
		t.Errorf("expected 429, got %d", w.Code)
	}
	if w := post(h, token(t, "bob", "staff"), ""); w.Code != http.StatusCreated {
		t.Errorf("other users keep their own budget, got %d", w.Code)
	}
}

func TestIdempotencyScopedPerUser(t *testing.T) {
	h, echo := newTestApp(t, 100)
	alice := token(t, "alice", "student")

	first := post(h, alice, "key-1")
	replay := post(h, alice, "key-1")
	if first.Body.String() != replay.Body.String() || echo.calls.Load() != 1 {
		t.Errorf("replay must not reach the handler: calls=%d", echo.calls.Load())
	}

	other := post(h, token(t, "bob", "student"), "key-1")
	if !strings.Contains(other.Body.String(), `"user":"bob"`) || echo.calls.Load() != 2 {
		t.Errorf("keys must not leak across users: %s", other.Body.String())
	}
}

func TestSetApp_RequiresVerifier(t *testing.T) {
	cfg := config.Defaults()
	cfg.JWTSecret = ""
	cfg.JWTJWKSURL = ""

	if err := NewApplication(cfg).SetApp(nil); err == nil {
		t.Error("expected an error without a token verifier")
	}
}
