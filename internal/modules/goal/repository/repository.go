package goal

import (
	"context"
	"time"

	"anoa.com/volunteergoals/internal/entity"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Filter narrows a goal listing. Zero values mean "no constraint".
type Filter struct {
	VolunteerID *uuid.UUID
	Statuses    []entity.GoalStatus
	Priority    entity.GoalPriority
	Category    string
	Search      string
	DueFrom     *time.Time
	DueTo       *time.Time
	SortBy      string
	Order       string
	Offset      int
	Limit       int
}

type Repository interface {
	Create(ctx context.Context, goal *entity.Goal) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Goal, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]entity.Goal, error)
	FindAll(ctx context.Context, filter Filter) ([]entity.Goal, int64, error)
	FindByVolunteer(ctx context.Context, volunteerID uuid.UUID) ([]entity.Goal, error)
	FindEvery(ctx context.Context) ([]entity.Goal, error)
	FindDueBetween(ctx context.Context, start, end time.Time) ([]entity.Goal, error)
	FindPastDue(ctx context.Context, statuses []entity.GoalStatus, before time.Time) ([]entity.Goal, error)
	Update(ctx context.Context, goal *entity.Goal) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status entity.GoalStatus) error
	BulkUpdate(ctx context.Context, ids []uuid.UUID, updates map[string]any) error
	Delete(ctx context.Context, id uuid.UUID) error
	CountByVolunteer(ctx context.Context, volunteerID uuid.UUID) (total int64, completed int64, err error)
	CountByStatus(ctx context.Context) (map[entity.GoalStatus]int64, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

var sortColumns = map[string]string{
	"created_at": "created_at",
	"due_date":   "due_date",
	"start_date": "start_date",
	"progress":   "progress",
	"priority":   "priority",
	"status":     "status",
	"title":      "title",
}

func (r *repository) Create(ctx context.Context, goal *entity.Goal) error {
	return r.db.WithContext(ctx).Create(goal).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Goal, error) {
	var goal entity.Goal
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&goal).Error; err != nil {
		return nil, err
	}
	return &goal, nil
}

func (r *repository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]entity.Goal, error) {
	var goals []entity.Goal
	if len(ids) == 0 {
		return goals, nil
	}
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&goals).Error; err != nil {
		return nil, err
	}
	return goals, nil
}

func (r *repository) FindAll(ctx context.Context, filter Filter) ([]entity.Goal, int64, error) {
	var goals []entity.Goal
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.Goal{})

	if filter.VolunteerID != nil {
		query = query.Where("volunteer_id = ?", *filter.VolunteerID)
	}
	if len(filter.Statuses) > 0 {
		query = query.Where("status IN ?", filter.Statuses)
	}
	if filter.Priority != "" {
		query = query.Where("priority = ?", filter.Priority)
	}
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		query = query.Where("LOWER(title) LIKE LOWER(?) OR LOWER(description) LIKE LOWER(?)", like, like)
	}
	if filter.DueFrom != nil {
		query = query.Where("due_date >= ?", *filter.DueFrom)
	}
	if filter.DueTo != nil {
		query = query.Where("due_date <= ?", *filter.DueTo)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	column, ok := sortColumns[filter.SortBy]
	if !ok {
		column = "created_at"
	}
	direction := "DESC"
	if filter.Order == "asc" {
		direction = "ASC"
	}
	query = query.Order(column + " " + direction).Order("id ASC")

	if filter.Limit > 0 {
		query = query.Offset(filter.Offset).Limit(filter.Limit)
	}

	if err := query.Find(&goals).Error; err != nil {
		return nil, 0, err
	}
	return goals, total, nil
}

func (r *repository) FindByVolunteer(ctx context.Context, volunteerID uuid.UUID) ([]entity.Goal, error) {
	var goals []entity.Goal
	if err := r.db.WithContext(ctx).
		Where("volunteer_id = ?", volunteerID).
		Order("created_at ASC").
		Find(&goals).Error; err != nil {
		return nil, err
	}
	return goals, nil
}

func (r *repository) FindEvery(ctx context.Context) ([]entity.Goal, error) {
	var goals []entity.Goal
	if err := r.db.WithContext(ctx).Order("created_at ASC").Find(&goals).Error; err != nil {
		return nil, err
	}
	return goals, nil
}

func (r *repository) FindDueBetween(ctx context.Context, start, end time.Time) ([]entity.Goal, error) {
	var goals []entity.Goal
	if err := r.db.WithContext(ctx).
		Where("due_date >= ? AND due_date <= ?", start, end).
		Order("due_date ASC").
		Find(&goals).Error; err != nil {
		return nil, err
	}
	return goals, nil
}

func (r *repository) FindPastDue(ctx context.Context, statuses []entity.GoalStatus, before time.Time) ([]entity.Goal, error) {
	var goals []entity.Goal
	if err := r.db.WithContext(ctx).
		Where("status IN ? AND due_date < ?", statuses, before).
		Order("due_date ASC").
		Find(&goals).Error; err != nil {
		return nil, err
	}
	return goals, nil
}

func (r *repository) Update(ctx context.Context, goal *entity.Goal) error {
	return r.db.WithContext(ctx).Save(goal).Error
}

func (r *repository) UpdateStatus(ctx context.Context, id uuid.UUID, status entity.GoalStatus) error {
	result := r.db.WithContext(ctx).
		Model(&entity.Goal{}).
		Where("id = ?", id).
		Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) BulkUpdate(ctx context.Context, ids []uuid.UUID, updates map[string]any) error {
	if len(ids) == 0 || len(updates) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&entity.Goal{}).
		Where("id IN ?", ids).
		Updates(updates).Error
}

// Delete removes the goal together with its progress snapshots.
func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("goal_id = ?", id).Delete(&entity.ProgressHistory{}).Error; err != nil {
			return err
		}
		result := tx.Where("id = ?", id).Delete(&entity.Goal{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func (r *repository) CountByVolunteer(ctx context.Context, volunteerID uuid.UUID) (int64, int64, error) {
	var total, completed int64
	if err := r.db.WithContext(ctx).
		Model(&entity.Goal{}).
		Where("volunteer_id = ?", volunteerID).
		Count(&total).Error; err != nil {
		return 0, 0, err
	}
	if err := r.db.WithContext(ctx).
		Model(&entity.Goal{}).
		Where("volunteer_id = ? AND status = ?", volunteerID, entity.GoalStatusCompleted).
		Count(&completed).Error; err != nil {
		return 0, 0, err
	}
	return total, completed, nil
}

func (r *repository) CountByStatus(ctx context.Context) (map[entity.GoalStatus]int64, error) {
	var rows []struct {
		Status entity.GoalStatus
		Count  int64
	}
	if err := r.db.WithContext(ctx).
		Model(&entity.Goal{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	counts := make(map[entity.GoalStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}
