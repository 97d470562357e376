package validator

import (
	"reservo/pkg/logger"
	"reservo/pkg/model"
	"reservo/pkg/validation"

	"github.com/go-playground/validator/v10"
)

type ResourceValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewResourceValidator(log *logger.Logger) *ResourceValidator {
	log.Info("Resource validator initialized successfully")

	return &ResourceValidator{
		validate: validation.New(),
		logger:   log,
	}
}

func (v *ResourceValidator) Validate(create *model.ResourceCreate) error {
	return validation.Struct(v.validate, create)
}

func (v *ResourceValidator) ValidateUpdate(update *model.ResourceUpdate) error {
	if err := validation.Struct(v.validate, update); err != nil {
		return err
	}

	if update.Name == nil && update.Description == nil && update.Location == nil &&
		update.Capacity == nil && update.IsActive == nil {
		return validation.Field("body", "at least one field must be provided")
	}

	return nil
}
