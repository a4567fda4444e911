package goaltemplate

import (
	"context"

	"anoa.com/volunteergoals/internal/entity"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Filter struct {
	Category string
	IsActive *bool
	Search   string
	Offset   int
	Limit    int
}

type Repository interface {
	Create(ctx context.Context, template *entity.GoalTemplate) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.GoalTemplate, error)
	FindAll(ctx context.Context, filter Filter) ([]entity.GoalTemplate, int64, error)
	ExistsActiveName(ctx context.Context, name string, excludeID *uuid.UUID) (bool, error)
	Update(ctx context.Context, template *entity.GoalTemplate) error
	IncrementUsage(ctx context.Context, id uuid.UUID) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, template *entity.GoalTemplate) error {
	// Same default:true caveat as users.
	active := template.IsActive
	if err := r.db.WithContext(ctx).Create(template).Error; err != nil {
		return err
	}
	if !active {
		if err := r.db.WithContext(ctx).Model(&entity.GoalTemplate{}).Where("id = ?", template.ID).Update("is_active", false).Error; err != nil {
			return err
		}
		template.IsActive = false
	}
	return nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*entity.GoalTemplate, error) {
	var template entity.GoalTemplate
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&template).Error; err != nil {
		return nil, err
	}
	return &template, nil
}

func (r *repository) FindAll(ctx context.Context, filter Filter) ([]entity.GoalTemplate, int64, error) {
	var templates []entity.GoalTemplate
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.GoalTemplate{})
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if filter.IsActive != nil {
		query = query.Where("is_active = ?", *filter.IsActive)
	}
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		query = query.Where("LOWER(name) LIKE LOWER(?) OR LOWER(title) LIKE LOWER(?)", like, like)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = query.Order("usage_count DESC").Order("name ASC")
	if filter.Limit > 0 {
		query = query.Offset(filter.Offset).Limit(filter.Limit)
	}
	if err := query.Find(&templates).Error; err != nil {
		return nil, 0, err
	}
	return templates, total, nil
}

func (r *repository) ExistsActiveName(ctx context.Context, name string, excludeID *uuid.UUID) (bool, error) {
	var count int64
	query := r.db.WithContext(ctx).
		Model(&entity.GoalTemplate{}).
		Where("LOWER(name) = LOWER(?) AND is_active = ?", name, true)
	if excludeID != nil {
		query = query.Where("id <> ?", *excludeID)
	}
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repository) Update(ctx context.Context, template *entity.GoalTemplate) error {
	return r.db.WithContext(ctx).Save(template).Error
}

func (r *repository) IncrementUsage(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&entity.GoalTemplate{}).
		Where("id = ?", id).
		UpdateColumn("usage_count", gorm.Expr("usage_count + ?", 1)).Error
}
