package goal

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"anoa.com/volunteergoals/internal/entity"
	activity "anoa.com/volunteergoals/internal/modules/activity/service"
	goalDto "anoa.com/volunteergoals/internal/modules/goal/dto"
	repo "anoa.com/volunteergoals/internal/modules/goal/repository"
	search "anoa.com/volunteergoals/internal/modules/search/service"
	user "anoa.com/volunteergoals/internal/modules/user/service"
	"anoa.com/volunteergoals/pkg/apperror"
	commonDto "anoa.com/volunteergoals/pkg/dto"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
)

// UserLookup resolves the volunteer a goal is created for.
type UserLookup interface {
	FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error)
}

type Service interface {
	Create(ctx context.Context, actor entity.Principal, req goalDto.CreateGoalRequest) (*entity.Goal, error)
	CreateFromTemplate(ctx context.Context, actor entity.Principal, tpl *entity.GoalTemplate, req goalDto.FromTemplateRequest) (*entity.Goal, error)
	List(ctx context.Context, actor entity.Principal, query goalDto.GoalQuery) (*commonDto.Paginated[entity.Goal], error)
	Get(ctx context.Context, actor entity.Principal, id uuid.UUID) (*entity.Goal, error)
	Update(ctx context.Context, actor entity.Principal, id uuid.UUID, req goalDto.UpdateGoalRequest) (*entity.Goal, error)
	UpdateProgress(ctx context.Context, actor entity.Principal, id uuid.UUID, req goalDto.UpdateProgressRequest) (*entity.Goal, error)
	UpdateStatus(ctx context.Context, actor entity.Principal, id uuid.UUID, req goalDto.UpdateStatusRequest) (*entity.Goal, error)
	BulkUpdate(ctx context.Context, actor entity.Principal, req goalDto.BulkUpdateRequest) (*goalDto.BulkUpdateResult, error)
	Delete(ctx context.Context, actor entity.Principal, id uuid.UUID) error
	Search(ctx context.Context, actor entity.Principal, query goalDto.SearchQuery) ([]entity.Goal, error)
}

type service struct {
	goalRepo  repo.Repository
	users     UserLookup
	rollups   user.RollupRecomputer
	activity  activity.Service
	meili     search.MeiliSearchService
	sanitizer *bluemonday.Policy
	now       func() time.Time
}

// NewService wires the goal state machine. meili may be nil, in which case
// search falls back to a SQL LIKE query.
func NewService(goalRepo repo.Repository, users UserLookup, rollups user.RollupRecomputer, activity activity.Service, meili search.MeiliSearchService) Service {
	return &service{
		goalRepo:  goalRepo,
		users:     users,
		rollups:   rollups,
		activity:  activity,
		meili:     meili,
		sanitizer: bluemonday.StrictPolicy(),
		now:       time.Now,
	}
}

func (s *service) Create(ctx context.Context, actor entity.Principal, req goalDto.CreateGoalRequest) (*entity.Goal, error) {
	volunteerID, err := s.resolveOwner(ctx, actor, req.VolunteerID)
	if err != nil {
		return nil, err
	}

	start, due, err := parseDateRange(req.StartDate, req.DueDate)
	if err != nil {
		return nil, err
	}

	priority := entity.GoalPriorityMedium
	if req.Priority != "" {
		if priority, err = parsePriority(req.Priority); err != nil {
			return nil, err
		}
	}

	goal := &entity.Goal{
		VolunteerID: volunteerID,
		CreatedByID: actor.UserID,
		Title:       s.clean(req.Title),
		Description: s.clean(req.Description),
		Category:    strings.TrimSpace(req.Category),
		Priority:    priority,
		Status:      entity.GoalStatusPending,
		Progress:    entity.MinProgress,
		StartDate:   start,
		DueDate:     due,
		Tags:        normalizeTags(req.Tags),
		Notes:       []string{},
	}

	if err := s.goalRepo.Create(ctx, goal); err != nil {
		return nil, err
	}

	s.activity.Record(ctx, entity.UserActor(actor.UserID), entity.ResourceGoal, goal.ID.String(), entity.GoalCreatedDetails{
		Title:       goal.Title,
		VolunteerID: goal.VolunteerID,
		Priority:    goal.Priority,
		DueDate:     goal.DueDate,
	})
	s.afterMutation(ctx, goal)
	return goal, nil
}

func (s *service) CreateFromTemplate(ctx context.Context, actor entity.Principal, tpl *entity.GoalTemplate, req goalDto.FromTemplateRequest) (*entity.Goal, error) {
	if !tpl.IsActive {
		return nil, fmt.Errorf("template is inactive: %w", apperror.ErrBadRequest)
	}
	if req.Priority != nil {
		if _, err := parsePriority(*req.Priority); err != nil {
			return nil, err
		}
	}

	volunteerID, err := s.resolveOwner(ctx, actor, req.VolunteerID)
	if err != nil {
		return nil, err
	}

	start := s.today()
	if req.StartDate != "" {
		if start, err = commonDto.ParseDate(req.StartDate); err != nil {
			return nil, err
		}
	}
	due := start.AddDate(0, 0, tpl.DefaultDurationDays)
	if req.DueDate != "" {
		if due, err = commonDto.ParseDate(req.DueDate); err != nil {
			return nil, err
		}
	}
	if err := entity.ValidateDateRange(start, due); err != nil {
		return nil, fmt.Errorf("%w: %v", apperror.ErrInvalidInput, err)
	}

	goal := &entity.Goal{
		VolunteerID: volunteerID,
		CreatedByID: actor.UserID,
		Title:       tpl.Title,
		Description: tpl.Description,
		Category:    tpl.Category,
		Priority:    tpl.Priority,
		Status:      entity.GoalStatusPending,
		Progress:    entity.MinProgress,
		StartDate:   start,
		DueDate:     due,
		Tags:        normalizeTags(tpl.Tags),
		Notes:       []string{},
		TemplateID:  &tpl.ID,
	}
	if req.Title != nil {
		goal.Title = s.clean(*req.Title)
	}
	if req.Description != nil {
		goal.Description = s.clean(*req.Description)
	}
	if req.Priority != nil {
		goal.Priority = entity.GoalPriority(*req.Priority)
	}
	if len(req.Tags) > 0 {
		goal.Tags = normalizeTags(req.Tags)
	}

	if err := s.goalRepo.Create(ctx, goal); err != nil {
		return nil, err
	}

	s.activity.Record(ctx, entity.UserActor(actor.UserID), entity.ResourceGoal, goal.ID.String(), entity.GoalFromTemplateDetails{
		TemplateID:   tpl.ID,
		TemplateName: tpl.Name,
		Title:        goal.Title,
	})
	s.afterMutation(ctx, goal)
	return goal, nil
}

func (s *service) List(ctx context.Context, actor entity.Principal, query goalDto.GoalQuery) (*commonDto.Paginated[entity.Goal], error) {
	query.Normalize()

	filter := repo.Filter{
		Priority: entity.GoalPriority(query.Priority),
		Category: strings.TrimSpace(query.Category),
		Search:   strings.TrimSpace(query.Search),
		SortBy:   query.SortBy,
		Order:    query.Order,
		Offset:   query.Offset(),
		Limit:    query.Limit,
	}

	statuses, err := parseStatuses(query.Status)
	if err != nil {
		return nil, err
	}
	filter.Statuses = statuses

	if filter.DueFrom, err = commonDto.ParseOptionalDate(query.DueFrom); err != nil {
		return nil, err
	}
	if filter.DueTo, err = commonDto.ParseOptionalDate(query.DueTo); err != nil {
		return nil, err
	}

	if actor.IsAdmin() {
		if query.VolunteerID != "" {
			id, err := uuid.Parse(query.VolunteerID)
			if err != nil {
				return nil, fmt.Errorf("invalid volunteer_id: %w", apperror.ErrInvalidInput)
			}
			filter.VolunteerID = &id
		}
	} else {
		self := actor.UserID
		filter.VolunteerID = &self
	}

	goals, total, err := s.goalRepo.FindAll(ctx, filter)
	if err != nil {
		return nil, err
	}
	return commonDto.NewPaginated(goals, query.Page, query.Limit, total), nil
}

func (s *service) Get(ctx context.Context, actor entity.Principal, id uuid.UUID) (*entity.Goal, error) {
	return s.loadAccessible(ctx, actor, id)
}

func (s *service) Update(ctx context.Context, actor entity.Principal, id uuid.UUID, req goalDto.UpdateGoalRequest) (*entity.Goal, error) {
	if req.Priority != nil {
		if _, err := parsePriority(*req.Priority); err != nil {
			return nil, err
		}
	}
	if req.Status != nil {
		if !entity.GoalStatus(*req.Status).Valid() {
			return nil, fmt.Errorf("invalid status %q: %w", *req.Status, apperror.ErrInvalidInput)
		}
	}

	goal, err := s.loadAccessible(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	start, due := goal.StartDate, goal.DueDate
	if req.StartDate != nil {
		if start, err = commonDto.ParseDate(*req.StartDate); err != nil {
			return nil, err
		}
	}
	if req.DueDate != nil {
		if due, err = commonDto.ParseDate(*req.DueDate); err != nil {
			return nil, err
		}
	}
	if err := entity.ValidateDateRange(start, due); err != nil {
		return nil, fmt.Errorf("%w: %v", apperror.ErrInvalidInput, err)
	}

	var fields []string
	if req.Title != nil {
		goal.Title = s.clean(*req.Title)
		fields = append(fields, "title")
	}
	if req.Description != nil {
		goal.Description = s.clean(*req.Description)
		fields = append(fields, "description")
	}
	if req.Category != nil {
		goal.Category = strings.TrimSpace(*req.Category)
		fields = append(fields, "category")
	}
	if req.Priority != nil {
		goal.Priority = entity.GoalPriority(*req.Priority)
		fields = append(fields, "priority")
	}
	if req.StartDate != nil {
		goal.StartDate = start
		fields = append(fields, "start_date")
	}
	if req.DueDate != nil {
		goal.DueDate = due
		fields = append(fields, "due_date")
	}
	if req.Tags != nil {
		goal.Tags = normalizeTags(*req.Tags)
		fields = append(fields, "tags")
	}

	details := entity.GoalUpdatedDetails{}
	statusChanged := false
	if req.Status != nil {
		status := entity.GoalStatus(*req.Status)
		previous := goal.Status
		goal.ApplyStatus(status, s.now())
		details.PreviousStatus = &previous
		details.NewStatus = &goal.Status
		statusChanged = true
		fields = append(fields, "status")
	}
	details.Fields = fields

	if err := s.goalRepo.Update(ctx, goal); err != nil {
		return nil, err
	}

	s.activity.Record(ctx, entity.UserActor(actor.UserID), entity.ResourceGoal, goal.ID.String(), details)
	if statusChanged {
		s.afterMutation(ctx, goal)
	} else {
		s.reindex(goal)
	}
	return goal, nil
}

func (s *service) Delete(ctx context.Context, actor entity.Principal, id uuid.UUID) error {
	if !actor.IsAdmin() {
		return fmt.Errorf("only admins can delete goals: %w", apperror.ErrForbidden)
	}

	goal, err := s.goalRepo.FindByID(ctx, id)
	if err != nil {
		return notFound(err)
	}

	s.activity.Record(ctx, entity.UserActor(actor.UserID), entity.ResourceGoal, goal.ID.String(), entity.GoalDeletedDetails{
		Title:       goal.Title,
		VolunteerID: goal.VolunteerID,
	})

	if err := s.goalRepo.Delete(ctx, id); err != nil {
		return notFound(err)
	}

	s.recompute(ctx, goal.VolunteerID)
	if s.meili != nil {
		if err := s.meili.DeleteGoal(id.String()); err != nil {
			log.Printf("Failed to remove goal %s from index: %v", id, err)
		}
	}
	return nil
}

func (s *service) Search(ctx context.Context, actor entity.Principal, query goalDto.SearchQuery) ([]entity.Goal, error) {
	limit := query.Limit
	if limit <= 0 {
		limit = 20
	}

	var volunteerID *uuid.UUID
	if !actor.IsAdmin() {
		self := actor.UserID
		volunteerID = &self
	}

	if s.meili == nil {
		goals, _, err := s.goalRepo.FindAll(ctx, repo.Filter{
			VolunteerID: volunteerID,
			Search:      strings.TrimSpace(query.Q),
			Limit:       limit,
		})
		return goals, err
	}

	ids, err := s.meili.SearchGoals(query.Q, volunteerID, limit)
	if err != nil {
		return nil, err
	}

	goals, err := s.goalRepo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	return orderByIDs(goals, ids, volunteerID), nil
}
