package setting

import (
	"context"

	"anoa.com/volunteergoals/internal/entity"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Filter struct {
	Scope    entity.SettingScope
	ScopeID  string
	Category string
	Offset   int
	Limit    int
}

// Candidate names one (scope, scope id) pair a key may be stored under.
type Candidate struct {
	Scope   entity.SettingScope
	ScopeID string
}

type Repository interface {
	Create(ctx context.Context, setting *entity.Setting) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Setting, error)
	FindByKey(ctx context.Context, scope entity.SettingScope, scopeID, key string) (*entity.Setting, error)
	FindCandidates(ctx context.Context, key string, candidates []Candidate) ([]entity.Setting, error)
	FindAll(ctx context.Context, filter Filter) ([]entity.Setting, int64, error)
	Update(ctx context.Context, setting *entity.Setting) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, setting *entity.Setting) error {
	return r.db.WithContext(ctx).Create(setting).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Setting, error) {
	var setting entity.Setting
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&setting).Error; err != nil {
		return nil, err
	}
	return &setting, nil
}

func (r *repository) FindByKey(ctx context.Context, scope entity.SettingScope, scopeID, key string) (*entity.Setting, error) {
	var setting entity.Setting
	if err := r.db.WithContext(ctx).
		Where("scope = ? AND scope_id = ? AND key = ?", scope, scopeID, key).
		First(&setting).Error; err != nil {
		return nil, err
	}
	return &setting, nil
}

func (r *repository) FindCandidates(ctx context.Context, key string, candidates []Candidate) ([]entity.Setting, error) {
	var settings []entity.Setting
	if len(candidates) == 0 {
		return settings, nil
	}

	scopes := r.db.Where("1 = 0")
	for _, c := range candidates {
		scopes = scopes.Or("scope = ? AND scope_id = ?", c.Scope, c.ScopeID)
	}

	if err := r.db.WithContext(ctx).
		Where("key = ?", key).
		Where(scopes).
		Find(&settings).Error; err != nil {
		return nil, err
	}
	return settings, nil
}

func (r *repository) FindAll(ctx context.Context, filter Filter) ([]entity.Setting, int64, error) {
	var settings []entity.Setting
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.Setting{})
	if filter.Scope != "" {
		query = query.Where("scope = ?", filter.Scope)
	}
	if filter.ScopeID != "" {
		query = query.Where("scope_id = ?", filter.ScopeID)
	}
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = query.Order("scope ASC").Order("key ASC")
	if filter.Limit > 0 {
		query = query.Offset(filter.Offset).Limit(filter.Limit)
	}
	if err := query.Find(&settings).Error; err != nil {
		return nil, 0, err
	}
	return settings, total, nil
}

func (r *repository) Update(ctx context.Context, setting *entity.Setting) error {
	return r.db.WithContext(ctx).Save(setting).Error
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&entity.Setting{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
