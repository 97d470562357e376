package validator

import (
	"errors"
	"reservo/pkg/config"
	"reservo/pkg/model"
	"reservo/pkg/validation"
	"strings"
	"testing"
	"time"
)

var fixedNow = time.Date(2030, 3, 4, 8, 0, 0, 0, time.UTC)

func newTestValidator() *BookingValidator {
	return NewBookingValidator(config.Defaults(), func() time.Time { return fixedNow })
}

func request(start time.Time, d time.Duration, purpose string) *model.BookingRequest {
	return &model.BookingRequest{
		ResourceID: "room-1",
		StartTime:  start,
		EndTime:    start.Add(d),
		Purpose:    purpose,
	}
}

func firstField(t *testing.T, err error) string {
	t.Helper()
	var verrs validation.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		t.Fatalf("expected ValidationErrors, got %v", err)
	}
	return verrs[0].Field
}

func TestValidate(t *testing.T) {
	tomorrow := fixedNow.Add(24 * time.Hour)
	purpose := "Weekly team sync"

	tests := []struct {
		name      string
		req       *model.BookingRequest
		wantField string
	}{
		{"valid one hour", request(tomorrow, time.Hour, purpose), ""},
		{"exactly 30 minutes", request(tomorrow, 30*time.Minute, purpose), ""},
		{"exactly 8 hours", request(tomorrow, 8*time.Hour, purpose), ""},
		{"20 minutes is below floor", request(tomorrow, 20*time.Minute, purpose), "end_time"},
		{"9 hours is above ceiling", request(tomorrow, 9*time.Hour, purpose), "end_time"},
		{"end before start", request(tomorrow, -time.Hour, purpose), "end_time"},
		{"start in the past", request(fixedNow.Add(-time.Hour), time.Hour, purpose), "start_time"},
		{"purpose too short", request(tomorrow, time.Hour, "short"), "purpose"},
		{"purpose too long", request(tomorrow, time.Hour, strings.Repeat("x", 501)), "purpose"},
		{"missing resource", &model.BookingRequest{StartTime: tomorrow, EndTime: tomorrow.Add(time.Hour), Purpose: purpose}, "resource_id"},
	}

	v := newTestValidator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.req)
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if got := firstField(t, err); got != tt.wantField {
				t.Errorf("expected field %q, got %q (%v)", tt.wantField, got, err)
			}
		})
	}
}

func TestValidate_PurposeMessageCarriesBounds(t *testing.T) {
	v := newTestValidator()

	err := v.Validate(request(fixedNow.Add(time.Hour), time.Hour, "short"))
	var verrs validation.ValidationErrors
	if !errors.As(err, &verrs) {
		t.Fatalf("expected ValidationErrors, got %v", err)
	}
	if !strings.Contains(verrs[0].Message, "between 10 and 500") {
		t.Errorf("unexpected message: %q", verrs[0].Message)
	}
}

func TestValidate_PurposeCountsCharactersNotBytes(t *testing.T) {
	v := newTestValidator()

	// ten two-byte runes
	err := v.Validate(request(fixedNow.Add(time.Hour), time.Hour, strings.Repeat("é", 10)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateUpdate(t *testing.T) {
	v := newTestValidator()
	start := fixedNow.Add(time.Hour)
	before := start.Add(-time.Minute)
	short := "tiny"
	bogus := model.BookingStatus("archived")

	if err := v.ValidateUpdate(&model.BookingUpdate{}); err == nil {
		t.Error("expected error for empty update")
	}
	if err := v.ValidateUpdate(&model.BookingUpdate{StartTime: &start, EndTime: &before}); err == nil {
		t.Error("expected error for inverted interval")
	}
	if err := v.ValidateUpdate(&model.BookingUpdate{Purpose: &short}); err == nil {
		t.Error("expected error for short purpose")
	}
	empty := ""
	if err := v.ValidateUpdate(&model.BookingUpdate{Purpose: &empty}); err == nil {
		t.Error("expected error for empty purpose")
	}
	if err := v.ValidateUpdate(&model.BookingUpdate{Status: &bogus}); err == nil {
		t.Error("expected error for unknown status")
	}

	purpose := "A perfectly fine purpose"
	if err := v.ValidateUpdate(&model.BookingUpdate{Purpose: &purpose}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidateCancel(t *testing.T) {
	v := newTestValidator()

	if err := v.ValidateCancel(&model.CancelRequest{}); err != nil {
		t.Errorf("empty reason should be allowed: %v", err)
	}
	if err := v.ValidateCancel(&model.CancelRequest{Reason: strings.Repeat("r", 501)}); err == nil {
		t.Error("expected error for long reason")
	}
}
