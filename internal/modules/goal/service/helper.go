package goal

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log"
	"strings"
	"time"

	"anoa.com/volunteergoals/internal/entity"
	"anoa.com/volunteergoals/pkg/apperror"
	commonDto "anoa.com/volunteergoals/pkg/dto"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// resolveOwner picks the volunteer a new goal belongs to. Volunteers may only
// create goals for themselves; admins must name the volunteer.
func (s *service) resolveOwner(ctx context.Context, actor entity.Principal, requested *string) (uuid.UUID, error) {
	ownerID := actor.UserID
	if requested != nil && *requested != "" {
		id, err := uuid.Parse(*requested)
		if err != nil {
			return uuid.Nil, fmt.Errorf("invalid volunteer_id: %w", apperror.ErrInvalidInput)
		}
		ownerID = id
	} else if actor.IsAdmin() {
		return uuid.Nil, fmt.Errorf("volunteer_id is required when an admin creates a goal: %w", apperror.ErrInvalidInput)
	}

	if ownerID != actor.UserID && !actor.IsAdmin() {
		return uuid.Nil, fmt.Errorf("you can only create goals for yourself: %w", apperror.ErrForbidden)
	}

	owner, err := s.users.FindByID(ctx, ownerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return uuid.Nil, fmt.Errorf("volunteer not found: %w", apperror.ErrNotFound)
		}
		return uuid.Nil, err
	}
	if !owner.IsActive {
		return uuid.Nil, fmt.Errorf("volunteer account is inactive: %w", apperror.ErrBadRequest)
	}
	return owner.ID, nil
}

func (s *service) loadAccessible(ctx context.Context, actor entity.Principal, id uuid.UUID) (*entity.Goal, error) {
	goal, err := s.goalRepo.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	if !actor.CanAccess(goal.VolunteerID) {
		return nil, fmt.Errorf("you can only access your own goals: %w", apperror.ErrForbidden)
	}
	return goal, nil
}

// afterMutation refreshes everything derived from a goal whose status or
// ownership counters may have changed.
func (s *service) afterMutation(ctx context.Context, goal *entity.Goal) {
	s.recompute(ctx, goal.VolunteerID)
	s.reindex(goal)
}

func (s *service) recompute(ctx context.Context, volunteerID uuid.UUID) {
	if err := s.rollups.RecomputeRollup(ctx, volunteerID); err != nil {
		log.Printf("Failed to recompute rollup for %s: %v", volunteerID, err)
	}
}

func (s *service) reindex(goal *entity.Goal) {
	if s.meili == nil {
		return
	}
	if err := s.meili.IndexGoal(goal); err != nil {
		log.Printf("Failed to index goal %s: %v", goal.ID, err)
	}
}

func (s *service) clean(text string) string {
	return strings.TrimSpace(html.UnescapeString(s.sanitizer.Sanitize(text)))
}

func (s *service) today() time.Time {
	now := s.now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

func parseDateRange(startValue, dueValue string) (time.Time, time.Time, error) {
	start, err := commonDto.ParseDate(startValue)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	due, err := commonDto.ParseDate(dueValue)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if err := entity.ValidateDateRange(start, due); err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: %v", apperror.ErrInvalidInput, err)
	}
	return start, due, nil
}

func parsePriority(value string) (entity.GoalPriority, error) {
	priority := entity.GoalPriority(value)
	if !priority.Valid() {
		return "", fmt.Errorf("invalid priority %q: %w", value, apperror.ErrInvalidInput)
	}
	return priority, nil
}

// parseStatuses reads a comma separated status list such as "pending,overdue".
func parseStatuses(value string) ([]entity.GoalStatus, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}
	var statuses []entity.GoalStatus
	for _, part := range strings.Split(value, ",") {
		status := entity.GoalStatus(strings.TrimSpace(part))
		if !status.Valid() {
			return nil, fmt.Errorf("invalid status %q: %w", part, apperror.ErrInvalidInput)
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
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

// orderByIDs returns goals in the order of ids, dropping any a volunteer
// filter excludes.
func orderByIDs(goals []entity.Goal, ids []uuid.UUID, volunteerID *uuid.UUID) []entity.Goal {
	byID := make(map[uuid.UUID]entity.Goal, len(goals))
	for _, g := range goals {
		byID[g.ID] = g
	}

	ordered := make([]entity.Goal, 0, len(ids))
	for _, id := range ids {
		g, ok := byID[id]
		if !ok {
			continue
		}
		if volunteerID != nil && g.VolunteerID != *volunteerID {
			continue
		}
		ordered = append(ordered, g)
	}
	return ordered
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("goal not found: %w", apperror.ErrNotFound)
	}
	return err
}
