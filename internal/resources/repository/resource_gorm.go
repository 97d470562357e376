package repository

import (
	"context"
	"errors"
	"fmt"
	resourceserrors "reservo/internal/resources/errors"
	gormdb "reservo/pkg/db/gorm"
	"reservo/pkg/model"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type gormResourceRepository struct {
	db *gorm.DB
}

func NewGormResourceRepository(conn *gorm.DB) ResourceRepository {
	return &gormResourceRepository{db: conn}
}

func (r *gormResourceRepository) conn(ctx context.Context) *gorm.DB {
	return gormdb.Conn(ctx, r.db)
}

func (r *gormResourceRepository) Create(ctx context.Context, resource *model.Resource) error {
	if err := r.conn(ctx).Create(resource).Error; err != nil {
		return fmt.Errorf("failed to create resource: %w", err)
	}
	return nil
}

func (r *gormResourceRepository) FindByID(ctx context.Context, id string) (*model.Resource, error) {
	return r.first(r.conn(ctx), id)
}

// FindByIDForUpdate issues SELECT ... FOR UPDATE; the row stays locked until
// the transaction carried by ctx commits or rolls back.
func (r *gormResourceRepository) FindByIDForUpdate(ctx context.Context, id string) (*model.Resource, error) {
	return r.first(r.conn(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *gormResourceRepository) FindByIDs(ctx context.Context, ids []string) ([]model.Resource, error) {
	resources := []model.Resource{}
	if len(ids) == 0 {
		return resources, nil
	}
	if err := r.conn(ctx).Where("id IN ?", ids).Find(&resources).Error; err != nil {
		return nil, fmt.Errorf("failed to find resources: %w", err)
	}
	return resources, nil
}

func (r *gormResourceRepository) FindAll(ctx context.Context, filter model.ResourceFilter) ([]model.Resource, error) {
	q := r.listQuery(ctx, filter).Order("name ASC").Offset(int(filter.Offset))
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}

	resources := []model.Resource{}
	if err := q.Find(&resources).Error; err != nil {
		return nil, fmt.Errorf("failed to find resources: %w", err)
	}
	return resources, nil
}

func (r *gormResourceRepository) Count(ctx context.Context, filter model.ResourceFilter) (int64, error) {
	var total int64
	if err := r.listQuery(ctx, filter).Count(&total).Error; err != nil {
		return 0, fmt.Errorf("failed to count resources: %w", err)
	}
	return total, nil
}

func (r *gormResourceRepository) Update(ctx context.Context, resource *model.Resource) error {
	result := r.conn(ctx).
		Model(&model.Resource{}).
		Where("id = ?", resource.ID).
		Updates(map[string]any{
			"name":        resource.Name,
			"description": resource.Description,
			"location":    resource.Location,
			"capacity":    resource.Capacity,
			"is_active":   resource.IsActive,
			"updated_at":  resource.UpdatedAt,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update resource: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return resourceserrors.ErrNotFound
	}
	return nil
}

func (r *gormResourceRepository) Delete(ctx context.Context, id string) error {
	result := r.conn(ctx).Delete(&model.Resource{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete resource: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return resourceserrors.ErrNotFound
	}
	return nil
}

func (r *gormResourceRepository) first(q *gorm.DB, id string) (*model.Resource, error) {
	var resource model.Resource
	if err := q.First(&resource, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, resourceserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find resource: %w", err)
	}
	return &resource, nil
}

func (r *gormResourceRepository) listQuery(ctx context.Context, f model.ResourceFilter) *gorm.DB {
	q := r.conn(ctx).Model(&model.Resource{})
	if f.ActiveOnly {
		q = q.Where("is_active = ?", true)
	}
	if kw := strings.TrimSpace(f.Keyword); kw != "" {
		like := "%" + strings.ToLower(kw) + "%"
		q = q.Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ?", like, like)
	}
	return q
}
