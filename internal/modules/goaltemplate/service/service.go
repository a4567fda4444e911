package goaltemplate

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"anoa.com/volunteergoals/internal/entity"
	activity "anoa.com/volunteergoals/internal/modules/activity/service"
	goalDto "anoa.com/volunteergoals/internal/modules/goal/dto"
	templateDto "anoa.com/volunteergoals/internal/modules/goaltemplate/dto"
	repo "anoa.com/volunteergoals/internal/modules/goaltemplate/repository"
	"anoa.com/volunteergoals/pkg/apperror"
	commonDto "anoa.com/volunteergoals/pkg/dto"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const defaultDurationDays = 7

// GoalCreator turns a template into a goal.
type GoalCreator interface {
	CreateFromTemplate(ctx context.Context, actor entity.Principal, tpl *entity.GoalTemplate, req goalDto.FromTemplateRequest) (*entity.Goal, error)
}

type Service interface {
	Create(ctx context.Context, actor entity.Principal, req templateDto.CreateTemplateRequest) (*entity.GoalTemplate, error)
	List(ctx context.Context, actor entity.Principal, query templateDto.TemplateQuery) (*commonDto.Paginated[entity.GoalTemplate], error)
	Get(ctx context.Context, actor entity.Principal, id uuid.UUID) (*entity.GoalTemplate, error)
	Update(ctx context.Context, actor entity.Principal, id uuid.UUID, req templateDto.UpdateTemplateRequest) (*entity.GoalTemplate, error)
	// Delete deactivates the template; goals created from it keep their link.
	Delete(ctx context.Context, actor entity.Principal, id uuid.UUID) error
	Use(ctx context.Context, actor entity.Principal, id uuid.UUID, req goalDto.FromTemplateRequest) (*entity.Goal, error)
}

type service struct {
	repo     repo.Repository
	goals    GoalCreator
	activity activity.Service
}

func NewService(repo repo.Repository, goals GoalCreator, activity activity.Service) Service {
	return &service{
		repo:     repo,
		goals:    goals,
		activity: activity,
	}
}

func (s *service) Create(ctx context.Context, actor entity.Principal, req templateDto.CreateTemplateRequest) (*entity.GoalTemplate, error) {
	if !actor.IsAdmin() {
		return nil, fmt.Errorf("only admins can create goal templates: %w", apperror.ErrForbidden)
	}

	name := strings.TrimSpace(req.Name)
	if err := s.ensureNameAvailable(ctx, name, nil); err != nil {
		return nil, err
	}

	priority := entity.GoalPriorityMedium
	if req.Priority != "" {
		priority = entity.GoalPriority(req.Priority)
		if !priority.Valid() {
			return nil, fmt.Errorf("invalid priority %q: %w", req.Priority, apperror.ErrInvalidInput)
		}
	}
	duration := req.DefaultDurationDays
	if duration <= 0 {
		duration = defaultDurationDays
	}

	tpl := &entity.GoalTemplate{
		Name:                name,
		Title:               strings.TrimSpace(req.Title),
		Description:         strings.TrimSpace(req.Description),
		Category:            strings.TrimSpace(req.Category),
		Priority:            priority,
		DefaultDurationDays: duration,
		Tags:                normalizeTags(req.Tags),
		IsActive:            true,
		CreatedByID:         actor.UserID,
	}
	if err := s.repo.Create(ctx, tpl); err != nil {
		return nil, err
	}

	s.activity.Record(ctx, entity.UserActor(actor.UserID), entity.ResourceGoalTemplate, tpl.ID.String(), entity.TemplateCreatedDetails{Name: tpl.Name})
	return tpl, nil
}

func (s *service) List(ctx context.Context, actor entity.Principal, query templateDto.TemplateQuery) (*commonDto.Paginated[entity.GoalTemplate], error) {
	query.Normalize()

	filter := repo.Filter{
		Category: strings.TrimSpace(query.Category),
		IsActive: query.IsActive,
		Search:   strings.TrimSpace(query.Search),
		Offset:   query.Offset(),
		Limit:    query.Limit,
	}
	if !actor.IsAdmin() {
		active := true
		filter.IsActive = &active
	}

	templates, total, err := s.repo.FindAll(ctx, filter)
	if err != nil {
		return nil, err
	}
	return commonDto.NewPaginated(templates, query.Page, query.Limit, total), nil
}

func (s *service) Get(ctx context.Context, actor entity.Principal, id uuid.UUID) (*entity.GoalTemplate, error) {
	tpl, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	if !tpl.IsActive && !actor.IsAdmin() {
		return nil, fmt.Errorf("goal template not found: %w", apperror.ErrNotFound)
	}
	return tpl, nil
}

func (s *service) Update(ctx context.Context, actor entity.Principal, id uuid.UUID, req templateDto.UpdateTemplateRequest) (*entity.GoalTemplate, error) {
	if !actor.IsAdmin() {
		return nil, fmt.Errorf("only admins can update goal templates: %w", apperror.ErrForbidden)
	}

	tpl, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}

	if req.Name != nil {
		tpl.Name = strings.TrimSpace(*req.Name)
	}
	if req.IsActive != nil {
		tpl.IsActive = *req.IsActive
	}
	if tpl.IsActive && (req.Name != nil || req.IsActive != nil) {
		if err := s.ensureNameAvailable(ctx, tpl.Name, &tpl.ID); err != nil {
			return nil, err
		}
	}

	if req.Title != nil {
		tpl.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		tpl.Description = strings.TrimSpace(*req.Description)
	}
	if req.Category != nil {
		tpl.Category = strings.TrimSpace(*req.Category)
	}
	if req.Priority != nil {
		priority := entity.GoalPriority(*req.Priority)
		if !priority.Valid() {
			return nil, fmt.Errorf("invalid priority %q: %w", *req.Priority, apperror.ErrInvalidInput)
		}
		tpl.Priority = priority
	}
	if req.DefaultDurationDays != nil {
		if *req.DefaultDurationDays <= 0 {
			return nil, fmt.Errorf("default_duration_days must be positive: %w", apperror.ErrInvalidInput)
		}
		tpl.DefaultDurationDays = *req.DefaultDurationDays
	}
	if req.Tags != nil {
		tpl.Tags = normalizeTags(*req.Tags)
	}

	if err := s.repo.Update(ctx, tpl); err != nil {
		return nil, err
	}
	return tpl, nil
}

func (s *service) Delete(ctx context.Context, actor entity.Principal, id uuid.UUID) error {
	if !actor.IsAdmin() {
		return fmt.Errorf("only admins can delete goal templates: %w", apperror.ErrForbidden)
	}

	tpl, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return notFound(err)
	}
	if !tpl.IsActive {
		return nil
	}
	tpl.IsActive = false
	return s.repo.Update(ctx, tpl)
}

func (s *service) Use(ctx context.Context, actor entity.Principal, id uuid.UUID, req goalDto.FromTemplateRequest) (*entity.Goal, error) {
	tpl, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}

	goal, err := s.goals.CreateFromTemplate(ctx, actor, tpl, req)
	if err != nil {
		return nil, err
	}

	if err := s.repo.IncrementUsage(ctx, tpl.ID); err != nil {
		log.Printf("Failed to increment usage of template %s: %v", tpl.ID, err)
	}
	return goal, nil
}

func (s *service) ensureNameAvailable(ctx context.Context, name string, excludeID *uuid.UUID) error {
	exists, err := s.repo.ExistsActiveName(ctx, name, excludeID)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("an active template named %q already exists: %w", name, apperror.ErrConflict)
	}
	return nil
}

func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := map[string]bool{}
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
	}
	return out
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("goal template not found: %w", apperror.ErrNotFound)
	}
	return err
}
