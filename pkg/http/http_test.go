package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	apperrors "reservo/pkg/errors"
	"strings"
	"testing"
	"time"
)

func TestWriteError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantBody string
	}{
		{
			name:     "app error",
			err:      apperrors.NotFoundWithID("Booking", "b1"),
			wantCode: http.StatusNotFound,
			wantBody: `"code":"NOT_FOUND"`,
		},
		{
			name:     "wrapped app error",
			err:      fmt.Errorf("create: %w", apperrors.Conflict("Resource is fully booked")),
			wantCode: http.StatusConflict,
			wantBody: `"error":"Resource is fully booked"`,
		},
		{
			name:     "validation details",
			err:      apperrors.ValidationField("purpose", "purpose is required"),
			wantCode: http.StatusUnprocessableEntity,
			wantBody: `"details"`,
		},
		{
			name:     "plain error stays opaque",
			err:      errors.New("pq: connection refused"),
			wantCode: http.StatusInternalServerError,
			wantBody: `"error":"Internal server error"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			if err := WriteError(w, tt.err); err != nil {
				t.Fatal(err)
			}
			if w.Code != tt.wantCode {
				t.Errorf("expected %d, got %d", tt.wantCode, w.Code)
			}
			if !strings.Contains(w.Body.String(), tt.wantBody) {
				t.Errorf("body %s does not contain %s", w.Body.String(), tt.wantBody)
			}
			if strings.Contains(w.Body.String(), "connection refused") {
				t.Error("internal errors must not leak")
			}
		})
	}
}

func TestWritePaginated(t *testing.T) {
	w := httptest.NewRecorder()
	if err := WritePaginated(w, []string{"a", "b"}, 7, 2, 4); err != nil {
		t.Fatal(err)
	}

	var body PaginatedResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.TotalCount != 7 || body.Limit != 2 || body.Offset != 4 {
		t.Errorf("unexpected envelope: %+v", body)
	}
}

func TestExtractLimitOffset(t *testing.T) {
	tests := []struct {
		query      string
		wantLimit  int
		wantOffset int64
		wantErr    bool
	}{
		{"", 10, 0, false},
		{"limit=20&offset=40", 20, 40, false},
		{"limit=1000", 50, 0, false},
		{"offset=-5", 10, 0, false},
		{"limit=ten", 0, 0, true},
		{"offset=x", 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/x?"+tt.query, nil)
			limit, offset, err := ExtractLimitOffset(r)
			if tt.wantErr {
				if !apperrors.HasCode(err, apperrors.CodeInvalidInput) {
					t.Errorf("expected invalid input, got %v", err)
				}
				return
			}
			if err != nil || limit != tt.wantLimit || offset != tt.wantOffset {
				t.Errorf("got %d/%d/%v", limit, offset, err)
			}
		})
	}
}

func TestDecodeJSON(t *testing.T) {
	var dst struct {
		Name string `json:"name"`
	}

	r := httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(`{"name":"room"}`))
	if err := DecodeJSON(r, &dst); err != nil || dst.Name != "room" {
		t.Errorf("decode failed: %v %+v", err, dst)
	}

	r = httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(`{"name":"room","extra":1}`))
	if err := DecodeJSON(r, &dst); !apperrors.HasCode(err, apperrors.CodeInvalidInput) {
		t.Errorf("unknown fields must be rejected, got %v", err)
	}

	r = httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(``))
	if err := DecodeJSON(r, &dst); !apperrors.HasCode(err, apperrors.CodeInvalidInput) {
		t.Errorf("empty body must be rejected, got %v", err)
	}
}

func TestParseTimeAndDate(t *testing.T) {
	ts, err := ParseTime("start_time", "2030-03-05T12:00:00+02:00")
	if err != nil || !ts.Equal(time.Date(2030, 3, 5, 10, 0, 0, 0, time.UTC)) || ts.Location() != time.UTC {
		t.Errorf("unexpected time %v (%v)", ts, err)
	}
	if ts, err := ParseTime("start_time", ""); err != nil || !ts.IsZero() {
		t.Errorf("empty value should yield zero time")
	}
	if _, err := ParseTime("start_time", "tomorrow"); err == nil {
		t.Error("expected error")
	}

	d, err := ParseDate("start_date", "2030-03-05")
	if err != nil || !d.Equal(time.Date(2030, 3, 5, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected date %v (%v)", d, err)
	}
	if _, err := ParseDate("start_date", "05/03/2030"); err == nil {
		t.Error("expected error")
	}
}
