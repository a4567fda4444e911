package activity

import (
	"context"
	"time"

	"anoa.com/volunteergoals/internal/entity"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Filter struct {
	UserID   *uuid.UUID
	Action   entity.Action
	Resource string
	From     *time.Time
	To       *time.Time
	Offset   int
	Limit    int
}

type Repository interface {
	Create(ctx context.Context, log *entity.ActivityLog) error
	FindAll(ctx context.Context, filter Filter) ([]entity.ActivityLog, int64, error)
	FindSince(ctx context.Context, userID *uuid.UUID, since time.Time) ([]entity.ActivityLog, error)
	FindRecent(ctx context.Context, limit int) ([]entity.ActivityLog, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, log *entity.ActivityLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

func (r *repository) FindAll(ctx context.Context, filter Filter) ([]entity.ActivityLog, int64, error) {
	var logs []entity.ActivityLog
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.ActivityLog{})
	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if filter.Action != "" {
		query = query.Where("action = ?", filter.Action)
	}
	if filter.Resource != "" {
		query = query.Where("resource = ?", filter.Resource)
	}
	if filter.From != nil {
		query = query.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("created_at <= ?", *filter.To)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = query.Order("created_at DESC")
	if filter.Limit > 0 {
		query = query.Offset(filter.Offset).Limit(filter.Limit)
	}
	if err := query.Find(&logs).Error; err != nil {
		return nil, 0, err
	}
	return logs, total, nil
}

// FindSince returns logs created at or after since, oldest first. A nil userID
// includes every actor, the system one included.
func (r *repository) FindSince(ctx context.Context, userID *uuid.UUID, since time.Time) ([]entity.ActivityLog, error) {
	var logs []entity.ActivityLog
	query := r.db.WithContext(ctx).Where("created_at >= ?", since)
	if userID != nil {
		query = query.Where("user_id = ?", *userID)
	}
	if err := query.Order("created_at ASC").Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}

func (r *repository) FindRecent(ctx context.Context, limit int) ([]entity.ActivityLog, error) {
	var logs []entity.ActivityLog
	if err := r.db.WithContext(ctx).Order("created_at DESC").Limit(limit).Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}
