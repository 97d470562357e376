package validator

import (
	"errors"
	"reservo/pkg/logger"
	"reservo/pkg/model"
	"reservo/pkg/validation"
	"strings"
	"testing"
)

func newTestValidator() *ResourceValidator {
	return NewResourceValidator(logger.Discard())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		create    model.ResourceCreate
		wantField string
	}{
		{
			name:   "valid",
			create: model.ResourceCreate{Name: "Lab 2", Capacity: 1},
		},
		{
			name:      "missing name",
			create:    model.ResourceCreate{Capacity: 1},
			wantField: "name",
		},
		{
			name:      "zero capacity",
			create:    model.ResourceCreate{Name: "Lab 2"},
			wantField: "capacity",
		},
		{
			name:      "name too long",
			create:    model.ResourceCreate{Name: strings.Repeat("a", 256), Capacity: 1},
			wantField: "name",
		},
	}

	v := newTestValidator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(&tt.create)
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}

			var verrs validation.ValidationErrors
			if !errors.As(err, &verrs) {
				t.Fatalf("expected ValidationErrors, got %v", err)
			}
			if verrs[0].Field != tt.wantField {
				t.Errorf("expected field %q, got %q", tt.wantField, verrs[0].Field)
			}
		})
	}
}

func TestValidateUpdate(t *testing.T) {
	v := newTestValidator()

	if err := v.ValidateUpdate(&model.ResourceUpdate{}); err == nil {
		t.Error("expected error for empty update")
	}

	capacity := 0
	if err := v.ValidateUpdate(&model.ResourceUpdate{Capacity: &capacity}); err == nil {
		t.Error("expected error for zero capacity")
	}

	empty := ""
	if err := v.ValidateUpdate(&model.ResourceUpdate{Name: &empty}); err == nil {
		t.Error("expected error for empty name")
	}

	active := false
	if err := v.ValidateUpdate(&model.ResourceUpdate{IsActive: &active}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
