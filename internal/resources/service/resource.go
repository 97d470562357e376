package service

import (
	"context"
	"errors"
	"reservo/internal/bookings/conflict"
	resourceserrors "reservo/internal/resources/errors"
	"reservo/internal/resources/repository"
	"reservo/internal/resources/validator"
	"reservo/pkg/config"
	apperrors "reservo/pkg/errors"
	"reservo/pkg/model"
	"reservo/pkg/sanitizer"
	"reservo/pkg/validation"
	"sync"
	"time"

	"github.com/google/uuid"
)

type ResourceService interface {
	Create(ctx context.Context, actor model.Actor, req *model.ResourceCreate) (*model.Resource, error)
	GetByID(ctx context.Context, id string) (*model.Resource, error)
	GetForUpdate(ctx context.Context, id string) (*model.Resource, error)
	GetByIDs(ctx context.Context, ids []string) (map[string]*model.Resource, error)
	List(ctx context.Context, filter model.ResourceFilter) ([]model.Resource, int64, error)
	Update(ctx context.Context, actor model.Actor, id string, updates *model.ResourceUpdate) (*model.Resource, error)
	// Delete removes the resource outright. Existing bookings keep their
	// resource_id; new admissions against it fail with NotFound.
	Delete(ctx context.Context, actor model.Actor, id string) error

	// Search matches keyword against name and description. When both start and
	// end are set only active resources with spare capacity in [start, end)
	// are returned; that check goes through the conflict cache and is advisory.
	Search(ctx context.Context, keyword string, start, end *time.Time, limit int, offset int64) ([]model.Resource, int64, error)
}

type resourceService struct {
	repo      repository.ResourceRepository
	validator *validator.ResourceValidator
	cache     conflict.Cache
	cfg       *config.Config
	now       func() time.Time
}

type Option func(*resourceService)

func WithClock(now func() time.Time) Option {
	return func(s *resourceService) {
		s.now = now
	}
}

func NewResourceService(
	repo repository.ResourceRepository,
	validator *validator.ResourceValidator,
	cache conflict.Cache,
	cfg *config.Config,
	opts ...Option,
) ResourceService {
	s := &resourceService{
		repo:      repo,
		validator: validator,
		cache:     cache,
		cfg:       cfg,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *resourceService) Create(ctx context.Context, actor model.Actor, req *model.ResourceCreate) (*model.Resource, error) {
	if !actor.IsAdmin() {
		return nil, apperrors.Forbidden("Only administrators can create resources")
	}

	s.sanitize(req)
	if err := s.validator.Validate(req); err != nil {
		s.cfg.Log.Warn("Resource validation failed",
			"name", req.Name,
			"error", err,
		)
		return nil, validation.ToAppError("Resource validation failed", err)
	}

	now := s.now().UTC()
	resource := &model.Resource{
		ID:          uuid.NewString(),
		Name:        req.Name,
		Description: req.Description,
		Location:    req.Location,
		Capacity:    req.Capacity,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if req.IsActive != nil {
		resource.IsActive = *req.IsActive
	}

	if err := s.repo.Create(ctx, resource); err != nil {
		s.cfg.Log.Error("Failed to create resource",
			"name", resource.Name,
			"actor", actor.UserID,
			"error", err,
		)
		return nil, apperrors.Internal("Failed to create resource", err)
	}

	s.cfg.Log.Info("Resource created successfully",
		"id", resource.ID,
		"name", resource.Name,
		"capacity", resource.Capacity,
	)

	return resource, nil
}

func (s *resourceService) GetByID(ctx context.Context, id string) (*model.Resource, error) {
	return s.get(ctx, id, s.repo.FindByID)
}

// GetForUpdate must run inside a transaction; the lock it takes is released
// when that transaction ends.
func (s *resourceService) GetForUpdate(ctx context.Context, id string) (*model.Resource, error) {
	return s.get(ctx, id, s.repo.FindByIDForUpdate)
}

func (s *resourceService) get(ctx context.Context, id string, find func(context.Context, string) (*model.Resource, error)) (*model.Resource, error) {
	id = sanitizer.SanitizeID(id)
	if id == "" {
		return nil, apperrors.InvalidInput("Resource ID cannot be empty")
	}

	resource, err := find(ctx, id)
	if err != nil {
		if errors.Is(err, resourceserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Resource", id)
		}
		s.cfg.Log.Error("Failed to get resource by ID",
			"id", id,
			"error", err,
		)
		return nil, apperrors.Internal("Failed to retrieve resource", err)
	}

	return resource, nil
}

func (s *resourceService) GetByIDs(ctx context.Context, ids []string) (map[string]*model.Resource, error) {
	resources, err := s.repo.FindByIDs(ctx, ids)
	if err != nil {
		s.cfg.Log.Error("Failed to get resources by IDs",
			"count", len(ids),
			"error", err,
		)
		return nil, apperrors.Internal("Failed to retrieve resources", err)
	}

	byID := make(map[string]*model.Resource, len(resources))
	for i := range resources {
		byID[resources[i].ID] = &resources[i]
	}
	return byID, nil
}

func (s *resourceService) List(ctx context.Context, filter model.ResourceFilter) ([]model.Resource, int64, error) {
	filter.Keyword = sanitizer.SanitizeKeyword(filter.Keyword)
	filter.Limit = config.NormalizePaginationLimit(filter.Limit)
	filter.Offset = config.NormalizeOffset(filter.Offset)

	var count int64
	var resources []model.Resource
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		var err error
		count, err = s.repo.Count(ctx, filter)
		if err != nil {
			s.cfg.Log.Error("Failed to count resources", "error", err)
			errCount = apperrors.Internal("Failed to count resources", err)
		}
	}()

	go func() {
		defer wg.Done()
		var err error
		resources, err = s.repo.FindAll(ctx, filter)
		if err != nil {
			s.cfg.Log.Error("Failed to list resources",
				"limit", filter.Limit,
				"offset", filter.Offset,
				"error", err,
			)
			errFind = apperrors.Internal("Failed to retrieve resources", err)
		}
	}()
	wg.Wait()

	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}

	return resources, count, nil
}

func (s *resourceService) Update(ctx context.Context, actor model.Actor, id string, updates *model.ResourceUpdate) (*model.Resource, error) {
	if !actor.IsAdmin() {
		return nil, apperrors.Forbidden("Only administrators can update resources")
	}

	s.sanitizeUpdate(updates)
	if err := s.validator.ValidateUpdate(updates); err != nil {
		s.cfg.Log.Warn("Resource update validation failed",
			"id", id,
			"error", err,
		)
		return nil, validation.ToAppError("Resource update validation failed", err)
	}

	existing, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	capacityChanged := updates.Capacity != nil && *updates.Capacity != existing.Capacity
	activeChanged := updates.IsActive != nil && *updates.IsActive != existing.IsActive

	merged := mergeResourceUpdates(existing, updates)
	merged.UpdatedAt = s.now().UTC()

	if err := s.repo.Update(ctx, merged); err != nil {
		if errors.Is(err, resourceserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Resource", existing.ID)
		}
		s.cfg.Log.Error("Failed to update resource",
			"id", existing.ID,
			"actor", actor.UserID,
			"error", err,
		)
		return nil, apperrors.Internal("Failed to update resource", err)
	}

	// Cached verdicts were computed against the old capacity.
	if capacityChanged || activeChanged {
		s.cache.InvalidateResource(merged.ID)
	}

	s.cfg.Log.Info("Resource updated successfully",
		"id", merged.ID,
		"capacity", merged.Capacity,
		"is_active", merged.IsActive,
	)

	return merged, nil
}

func (s *resourceService) Delete(ctx context.Context, actor model.Actor, id string) error {
	if !actor.IsAdmin() {
		return apperrors.Forbidden("Only administrators can delete resources")
	}

	id = sanitizer.SanitizeID(id)
	if id == "" {
		return apperrors.InvalidInput("Resource ID cannot be empty")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, resourceserrors.ErrNotFound) {
			return apperrors.NotFoundWithID("Resource", id)
		}
		s.cfg.Log.Error("Failed to delete resource",
			"id", id,
			"actor", actor.UserID,
			"error", err,
		)
		return apperrors.Internal("Failed to delete resource", err)
	}

	s.cache.InvalidateResource(id)

	s.cfg.Log.Info("Resource deleted successfully",
		"id", id,
		"actor", actor.UserID,
	)

	return nil
}

func (s *resourceService) Search(ctx context.Context, keyword string, start, end *time.Time, limit int, offset int64) ([]model.Resource, int64, error) {
	filter := model.ResourceFilter{
		Keyword: keyword,
		Limit:   limit,
		Offset:  offset,
	}

	if start == nil || end == nil {
		return s.List(ctx, filter)
	}

	if !end.After(*start) {
		return nil, 0, validation.ToAppError("Search validation failed",
			validation.Field("end_time", resourceserrors.ErrInvalidWindow.Error()))
	}

	filter.Keyword = sanitizer.SanitizeKeyword(filter.Keyword)
	limit = config.NormalizePaginationLimit(limit)
	offset = config.NormalizeOffset(offset)

	candidates, err := s.repo.FindAll(ctx, model.ResourceFilter{Keyword: filter.Keyword, ActiveOnly: true})
	if err != nil {
		s.cfg.Log.Error("Failed to search resources",
			"keyword", filter.Keyword,
			"error", err,
		)
		return nil, 0, apperrors.Internal("Failed to search resources", err)
	}

	available := make([]model.Resource, 0, len(candidates))
	for _, resource := range candidates {
		result, err := s.cache.CheckConflicts(ctx, resource.ID, start.UTC(), end.UTC(), resource.Capacity)
		if err != nil {
			s.cfg.Log.Error("Failed to check resource availability",
				"resource_id", resource.ID,
				"start_time", start,
				"end_time", end,
				"error", err,
			)
			return nil, 0, apperrors.Internal("Failed to search resources", err)
		}
		if !result.HasConflict {
			available = append(available, resource)
		}
	}

	total := int64(len(available))
	if offset >= total {
		return []model.Resource{}, total, nil
	}
	page := available[offset:min(total, offset+int64(limit))]

	return page, total, nil
}

func (s *resourceService) sanitize(req *model.ResourceCreate) {
	req.Name = sanitizer.NormalizeName(req.Name)
	req.Description = sanitizer.SanitizeText(req.Description)
	req.Location = sanitizer.NormalizeLocation(req.Location)
}

func (s *resourceService) sanitizeUpdate(updates *model.ResourceUpdate) {
	if updates.Name != nil {
		name := sanitizer.NormalizeName(*updates.Name)
		updates.Name = &name
	}
	if updates.Description != nil {
		description := sanitizer.SanitizeText(*updates.Description)
		updates.Description = &description
	}
	if updates.Location != nil {
		location := sanitizer.NormalizeLocation(*updates.Location)
		updates.Location = &location
	}
}

func mergeResourceUpdates(existing *model.Resource, updates *model.ResourceUpdate) *model.Resource {
	merged := *existing
	if updates.Name != nil {
		merged.Name = *updates.Name
	}
	if updates.Description != nil {
		merged.Description = *updates.Description
	}
	if updates.Location != nil {
		merged.Location = *updates.Location
	}
	if updates.Capacity != nil {
		merged.Capacity = *updates.Capacity
	}
	if updates.IsActive != nil {
		merged.IsActive = *updates.IsActive
	}
	return &merged
}
