package progresshistory

import (
	"context"
	"time"

	"anoa.com/volunteergoals/internal/entity"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Filter struct {
	GoalID      *uuid.UUID
	VolunteerID *uuid.UUID
	Status      entity.GoalStatus
	From        *time.Time
	To          *time.Time
	Offset      int
	Limit       int
}

type Repository interface {
	Create(ctx context.Context, history *entity.ProgressHistory) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.ProgressHistory, error)
	FindAll(ctx context.Context, filter Filter) ([]entity.ProgressHistory, int64, error)
	FindSince(ctx context.Context, volunteerID *uuid.UUID, since time.Time) ([]entity.ProgressHistory, error)
	ExistsForWeek(ctx context.Context, goalID uuid.UUID, weekStart time.Time) (bool, error)
	CountForWeek(ctx context.Context, weekStart time.Time) (int64, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, history *entity.ProgressHistory) error {
	return r.db.WithContext(ctx).Create(history).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*entity.ProgressHistory, error) {
	var history entity.ProgressHistory
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&history).Error; err != nil {
		return nil, err
	}
	return &history, nil
}

func (r *repository) FindAll(ctx context.Context, filter Filter) ([]entity.ProgressHistory, int64, error) {
	var histories []entity.ProgressHistory
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.ProgressHistory{})
	if filter.GoalID != nil {
		query = query.Where("goal_id = ?", *filter.GoalID)
	}
	if filter.VolunteerID != nil {
		query = query.Where("volunteer_id = ?", *filter.VolunteerID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.From != nil {
		query = query.Where("week_start >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("week_start <= ?", *filter.To)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = query.Order("week_start DESC").Order("created_at DESC")
	if filter.Limit > 0 {
		query = query.Offset(filter.Offset).Limit(filter.Limit)
	}
	if err := query.Find(&histories).Error; err != nil {
		return nil, 0, err
	}
	return histories, total, nil
}

// FindSince returns snapshots whose week starts at or after since, oldest first.
// A nil volunteerID returns every volunteer's snapshots.
func (r *repository) FindSince(ctx context.Context, volunteerID *uuid.UUID, since time.Time) ([]entity.ProgressHistory, error) {
	var histories []entity.ProgressHistory
	query := r.db.WithContext(ctx).Where("week_start >= ?", since)
	if volunteerID != nil {
		query = query.Where("volunteer_id = ?", *volunteerID)
	}
	if err := query.Order("week_start ASC").Find(&histories).Error; err != nil {
		return nil, err
	}
	return histories, nil
}

func (r *repository) ExistsForWeek(ctx context.Context, goalID uuid.UUID, weekStart time.Time) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&entity.ProgressHistory{}).
		Where("goal_id = ? AND week_start = ?", goalID, weekStart).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repository) CountForWeek(ctx context.Context, weekStart time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&entity.ProgressHistory{}).
		Where("week_start = ?", weekStart).
		Count(&count).Error
	return count, err
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&entity.ProgressHistory{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
