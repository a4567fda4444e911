package goal

import (
	"context"
	"fmt"

	"anoa.com/volunteergoals/internal/entity"
	goalDto "anoa.com/volunteergoals/internal/modules/goal/dto"
	"anoa.com/volunteergoals/pkg/apperror"
	"github.com/google/uuid"
)

func (s *service) UpdateProgress(ctx context.Context, actor entity.Principal, id uuid.UUID, req goalDto.UpdateProgressRequest) (*entity.Goal, error) {
	if req.Progress == nil {
		return nil, fmt.Errorf("progress is required: %w", apperror.ErrInvalidInput)
	}
	if err := entity.ValidateProgress(*req.Progress); err != nil {
		return nil, fmt.Errorf("%w: %v", apperror.ErrInvalidInput, err)
	}

	goal, err := s.loadAccessible(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	previousProgress, previousStatus := goal.Progress, goal.Status
	note := s.clean(req.Note)
	if err := goal.ApplyProgress(*req.Progress, note, s.now()); err != nil {
		return nil, fmt.Errorf("%w: %v", apperror.ErrInvalidInput, err)
	}

	if err := s.goalRepo.Update(ctx, goal); err != nil {
		return nil, err
	}

	s.activity.Record(ctx, entity.UserActor(actor.UserID), entity.ResourceGoal, goal.ID.String(), entity.GoalProgressDetails{
		PreviousProgress: previousProgress,
		NewProgress:      goal.Progress,
		PreviousStatus:   previousStatus,
		NewStatus:        goal.Status,
		Note:             note,
	})
	s.afterMutation(ctx, goal)
	return goal, nil
}

func (s *service) UpdateStatus(ctx context.Context, actor entity.Principal, id uuid.UUID, req goalDto.UpdateStatusRequest) (*entity.Goal, error) {
	status := entity.GoalStatus(req.Status)
	if !status.Valid() {
		return nil, fmt.Errorf("invalid status %q: %w", req.Status, apperror.ErrInvalidInput)
	}

	goal, err := s.loadAccessible(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	previousStatus, previousProgress := goal.Status, goal.Progress
	goal.ApplyStatus(status, s.now())

	if err := s.goalRepo.Update(ctx, goal); err != nil {
		return nil, err
	}

	s.activity.Record(ctx, entity.UserActor(actor.UserID), entity.ResourceGoal, goal.ID.String(), entity.GoalStatusDetails{
		PreviousStatus:   previousStatus,
		NewStatus:        goal.Status,
		PreviousProgress: previousProgress,
		NewProgress:      goal.Progress,
	})
	s.afterMutation(ctx, goal)
	return goal, nil
}

// BulkUpdate sets status and/or priority on every listed goal in one write.
// Progress is left as stored; rollups are refreshed once per owner.
func (s *service) BulkUpdate(ctx context.Context, actor entity.Principal, req goalDto.BulkUpdateRequest) (*goalDto.BulkUpdateResult, error) {
	if !actor.IsAdmin() {
		return nil, fmt.Errorf("only admins can bulk update goals: %w", apperror.ErrForbidden)
	}
	if req.Status == nil && req.Priority == nil {
		return nil, fmt.Errorf("nothing to update, provide status or priority: %w", apperror.ErrInvalidInput)
	}

	updates := map[string]any{}
	details := entity.GoalsBulkUpdatedDetails{}
	if req.Status != nil {
		status := entity.GoalStatus(*req.Status)
		if !status.Valid() {
			return nil, fmt.Errorf("invalid status %q: %w", *req.Status, apperror.ErrInvalidInput)
		}
		updates["status"] = status
		details.Status = &status
	}
	if req.Priority != nil {
		priority := entity.GoalPriority(*req.Priority)
		if !priority.Valid() {
			return nil, fmt.Errorf("invalid priority %q: %w", *req.Priority, apperror.ErrInvalidInput)
		}
		updates["priority"] = priority
		details.Priority = &priority
	}

	ids := make([]uuid.UUID, 0, len(req.GoalIDs))
	seen := make(map[uuid.UUID]bool, len(req.GoalIDs))
	for _, raw := range req.GoalIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid goal id %q: %w", raw, apperror.ErrInvalidInput)
		}
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}

	goals, err := s.goalRepo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	if len(goals) == 0 {
		return nil, fmt.Errorf("no goals matched the given ids: %w", apperror.ErrNotFound)
	}

	matched := make([]uuid.UUID, 0, len(goals))
	var volunteers []uuid.UUID
	seenVolunteer := map[uuid.UUID]bool{}
	for _, g := range goals {
		matched = append(matched, g.ID)
		if !seenVolunteer[g.VolunteerID] {
			seenVolunteer[g.VolunteerID] = true
			volunteers = append(volunteers, g.VolunteerID)
		}
	}

	if err := s.goalRepo.BulkUpdate(ctx, matched, updates); err != nil {
		return nil, err
	}

	details.GoalIDs = matched
	s.activity.Record(ctx, entity.UserActor(actor.UserID), entity.ResourceGoal, "", details)

	for _, volunteerID := range volunteers {
		s.recompute(ctx, volunteerID)
	}

	if s.meili != nil {
		for i := range goals {
			if details.Status != nil {
				goals[i].Status = *details.Status
			}
			if details.Priority != nil {
				goals[i].Priority = *details.Priority
			}
			s.reindex(&goals[i])
		}
	}

	return &goalDto.BulkUpdateResult{
		Updated:             len(matched),
		GoalIDs:             matched,
		VolunteersRefreshed: len(volunteers),
	}, nil
}
