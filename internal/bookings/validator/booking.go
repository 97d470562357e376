package validator

import (
	"fmt"
	"reservo/pkg/config"
	"reservo/pkg/logger"
	"reservo/pkg/model"
	"reservo/pkg/validation"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

type BookingValidator struct {
	validate *validator.Validate
	logger   *logger.Logger

	minDuration time.Duration
	maxDuration time.Duration
	purposeMin  int
	purposeMax  int
	now         func() time.Time
}

func NewBookingValidator(cfg *config.Config, now func() time.Time) *BookingValidator {
	if now == nil {
		now = time.Now
	}

	bv := &BookingValidator{
		validate:    validation.New(),
		logger:      cfg.Log,
		minDuration: cfg.BookingMinDuration,
		maxDuration: cfg.BookingMaxDuration,
		purposeMin:  cfg.BookingPurposeMin,
		purposeMax:  cfg.BookingPurposeMax,
		now:         now,
	}

	if err := bv.validate.RegisterValidation("purpose_length", bv.validatePurposeLength); err != nil {
		cfg.Log.Fatal("Failed to register 'purpose_length' validator",
			"error", err,
		)
	}

	cfg.Log.Info("Booking validator initialized successfully")

	return bv
}

func (v *BookingValidator) validatePurposeLength(fl validator.FieldLevel) bool {
	n := utf8.RuneCountInString(fl.Field().String())
	return n >= v.purposeMin && n <= v.purposeMax
}

func (v *BookingValidator) Validate(req *model.BookingRequest) error {
	if err := validation.Struct(v.validate, req); err != nil {
		return v.withPurposeBounds(err)
	}
	return v.ValidateInterval(req.StartTime, req.EndTime)
}

// ValidateInterval checks ordering, duration bounds and that start is not in
// the past. It applies to new intervals only; existing bookings may have
// started already.
func (v *BookingValidator) ValidateInterval(start, end time.Time) error {
	if !end.After(start) {
		return validation.Field("end_time", "end_time must be after start_time")
	}

	duration := end.Sub(start)
	if duration < v.minDuration {
		return validation.Field("end_time", fmt.Sprintf("booking must last at least %s", formatDuration(v.minDuration)))
	}
	if duration > v.maxDuration {
		return validation.Field("end_time", fmt.Sprintf("booking cannot last more than %s", formatDuration(v.maxDuration)))
	}

	if start.Before(v.now()) {
		return validation.Field("start_time", "start_time cannot be in the past")
	}

	return nil
}

func (v *BookingValidator) ValidateUpdate(update *model.BookingUpdate) error {
	if update.IsEmpty() {
		return validation.Field("body", "at least one field must be provided")
	}

	if err := validation.Struct(v.validate, update); err != nil {
		return v.withPurposeBounds(err)
	}

	if update.StartTime != nil && update.EndTime != nil && !update.EndTime.After(*update.StartTime) {
		return validation.Field("end_time", "end_time must be after start_time")
	}

	return nil
}

func (v *BookingValidator) ValidateCancel(req *model.CancelRequest) error {
	return validation.Struct(v.validate, req)
}

func (v *BookingValidator) withPurposeBounds(err error) error {
	verrs, ok := err.(validation.ValidationErrors)
	if !ok {
		return err
	}
	for i := range verrs {
		if verrs[i].Field == "purpose" && verrs[i].Message == "purpose length is out of bounds" {
			verrs[i].Message = fmt.Sprintf("purpose must be between %d and %d characters", v.purposeMin, v.purposeMax)
		}
	}
	return verrs
}

func formatDuration(d time.Duration) string {
	if d%time.Hour == 0 {
		return fmt.Sprintf("%d hour(s)", int(d/time.Hour))
	}
	return fmt.Sprintf("%d minutes", int(d/time.Minute))
}
