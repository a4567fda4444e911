package progresshistory

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"anoa.com/volunteergoals/internal/entity"
	activity "anoa.com/volunteergoals/internal/modules/activity/service"
	analytics "anoa.com/volunteergoals/internal/modules/analytics/service"
	historyDto "anoa.com/volunteergoals/internal/modules/progresshistory/dto"
	repo "anoa.com/volunteergoals/internal/modules/progresshistory/repository"
	"anoa.com/volunteergoals/pkg/apperror"
	commonDto "anoa.com/volunteergoals/pkg/dto"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"gorm.io/gorm"
)

const defaultSummaryWeeks = 8

type GoalLookup interface {
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Goal, error)
}

type Service interface {
	List(ctx context.Context, actor entity.Principal, query historyDto.HistoryQuery) (*commonDto.Paginated[entity.ProgressHistory], error)
	Get(ctx context.Context, actor entity.Principal, id uuid.UUID) (*entity.ProgressHistory, error)
	Create(ctx context.Context, actor entity.Principal, req historyDto.CreateHistoryRequest) (*entity.ProgressHistory, error)
	Delete(ctx context.Context, actor entity.Principal, id uuid.UUID) error
	WeeklySummary(ctx context.Context, actor entity.Principal, query historyDto.SummaryQuery) (*historyDto.WeeklySummary, error)
}

type service struct {
	repo      repo.Repository
	goals     GoalLookup
	activity  activity.Service
	sanitizer *bluemonday.Policy
	now       func() time.Time
}

func NewService(repo repo.Repository, goals GoalLookup, activity activity.Service) Service {
	return &service{
		repo:      repo,
		goals:     goals,
		activity:  activity,
		sanitizer: bluemonday.StrictPolicy(),
		now:       time.Now,
	}
}

func (s *service) List(ctx context.Context, actor entity.Principal, query historyDto.HistoryQuery) (*commonDto.Paginated[entity.ProgressHistory], error) {
	query.Normalize()

	filter := repo.Filter{
		Status: entity.GoalStatus(query.Status),
		Offset: query.Offset(),
		Limit:  query.Limit,
	}

	if query.GoalID != "" {
		id, err := uuid.Parse(query.GoalID)
		if err != nil {
			return nil, fmt.Errorf("invalid goal_id: %w", apperror.ErrInvalidInput)
		}
		filter.GoalID = &id
	}

	if query.VolunteerID != "" {
		id, err := uuid.Parse(query.VolunteerID)
		if err != nil {
			return nil, fmt.Errorf("invalid volunteer_id: %w", apperror.ErrInvalidInput)
		}
		if !actor.CanAccess(id) {
			return nil, fmt.Errorf("you can only view your own progress history: %w", apperror.ErrForbidden)
		}
		filter.VolunteerID = &id
	} else if !actor.IsAdmin() {
		self := actor.UserID
		filter.VolunteerID = &self
	}

	var err error
	if filter.From, err = commonDto.ParseOptionalDate(query.From); err != nil {
		return nil, err
	}
	if filter.To, err = commonDto.ParseOptionalDate(query.To); err != nil {
		return nil, err
	}

	histories, total, err := s.repo.FindAll(ctx, filter)
	if err != nil {
		return nil, err
	}
	return commonDto.NewPaginated(histories, query.Page, query.Limit, total), nil
}

func (s *service) Get(ctx context.Context, actor entity.Principal, id uuid.UUID) (*entity.ProgressHistory, error) {
	history, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	if !actor.CanAccess(history.VolunteerID) {
		return nil, fmt.Errorf("you can only view your own progress history: %w", apperror.ErrForbidden)
	}
	return history, nil
}

func (s *service) Create(ctx context.Context, actor entity.Principal, req historyDto.CreateHistoryRequest) (*entity.ProgressHistory, error) {
	if !actor.IsAdmin() {
		return nil, fmt.Errorf("only admins can backfill progress history: %w", apperror.ErrForbidden)
	}

	goalID, err := uuid.Parse(req.GoalID)
	if err != nil {
		return nil, fmt.Errorf("invalid goal_id: %w", apperror.ErrInvalidInput)
	}
	if req.Progress != nil {
		if err := entity.ValidateProgress(*req.Progress); err != nil {
			return nil, fmt.Errorf("%w: %v", apperror.ErrInvalidInput, err)
		}
	}

	weekOf := s.now().UTC()
	if req.WeekOf != "" {
		if weekOf, err = commonDto.ParseDate(req.WeekOf); err != nil {
			return nil, err
		}
	}
	weekStart, weekEnd := entity.WeekBounds(weekOf)

	goal, err := s.goals.FindByID(ctx, goalID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("goal not found: %w", apperror.ErrNotFound)
		}
		return nil, err
	}

	exists, err := s.repo.ExistsForWeek(ctx, goal.ID, weekStart)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("goal already has a snapshot for the week of %s: %w", weekStart.Format(commonDto.DateLayout), apperror.ErrConflict)
	}

	history := entity.NewSnapshot(goal, weekStart, weekEnd)
	if req.Progress != nil {
		history.Progress = *req.Progress
	}
	if req.Status != nil {
		history.Status = entity.GoalStatus(*req.Status)
	}
	if req.Notes != nil {
		history.Notes = strings.TrimSpace(html.UnescapeString(s.sanitizer.Sanitize(*req.Notes)))
	}

	if err := s.repo.Create(ctx, history); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("goal already has a snapshot for this week: %w", apperror.ErrConflict)
		}
		return nil, err
	}

	s.activity.Record(ctx, entity.UserActor(actor.UserID), entity.ResourceProgressHistory, history.ID.String(), entity.ProgressHistoryDetails{
		GoalID:    history.GoalID,
		WeekStart: history.WeekStart,
	})
	return history, nil
}

func (s *service) Delete(ctx context.Context, actor entity.Principal, id uuid.UUID) error {
	if !actor.IsAdmin() {
		return fmt.Errorf("only admins can delete progress history: %w", apperror.ErrForbidden)
	}

	history, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return notFound(err)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return notFound(err)
	}

	s.activity.Record(ctx, entity.UserActor(actor.UserID), entity.ResourceProgressHistory, id.String(), entity.ProgressHistoryDetails{
		GoalID:    history.GoalID,
		WeekStart: history.WeekStart,
		Deleted:   true,
	})
	return nil
}

// WeeklySummary buckets a volunteer's snapshots from the last weeks by week.
func (s *service) WeeklySummary(ctx context.Context, actor entity.Principal, query historyDto.SummaryQuery) (*historyDto.WeeklySummary, error) {
	volunteerID := actor.UserID
	if query.VolunteerID != "" {
		id, err := uuid.Parse(query.VolunteerID)
		if err != nil {
			return nil, fmt.Errorf("invalid volunteer_id: %w", apperror.ErrInvalidInput)
		}
		volunteerID = id
	}
	if !actor.CanAccess(volunteerID) {
		return nil, fmt.Errorf("you can only view your own progress history: %w", apperror.ErrForbidden)
	}

	weeks := query.Weeks
	if weeks <= 0 {
		weeks = defaultSummaryWeeks
	}
	weekStart, _ := entity.WeekBounds(s.now().UTC())
	histories, err := s.repo.FindSince(ctx, &volunteerID, weekStart.AddDate(0, 0, -7*(weeks-1)))
	if err != nil {
		return nil, err
	}

	return &historyDto.WeeklySummary{
		VolunteerID: volunteerID,
		Weeks:       weeks,
		Trends:      analytics.WeeklyTrends(histories),
	}, nil
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("progress history not found: %w", apperror.ErrNotFound)
	}
	return err
}
