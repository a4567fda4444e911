package admin

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"anoa.com/volunteergoals/internal/entity"
	activityDto "anoa.com/volunteergoals/internal/modules/activity/dto"
	activity "anoa.com/volunteergoals/internal/modules/activity/service"
	adminDto "anoa.com/volunteergoals/internal/modules/admin/dto"
	lifecycleDto "anoa.com/volunteergoals/internal/modules/lifecycle/dto"
	lifecycle "anoa.com/volunteergoals/internal/modules/lifecycle/service"
	user "anoa.com/volunteergoals/internal/modules/user/service"
	"anoa.com/volunteergoals/pkg/apperror"
	commonDto "anoa.com/volunteergoals/pkg/dto"
)

const recentActivityLimit = 10

type UserCounter interface {
	CountByRole(ctx context.Context) (map[string]int64, error)
}

type GoalCounter interface {
	CountByStatus(ctx context.Context) (map[entity.GoalStatus]int64, error)
}

type SnapshotCounter interface {
	CountForWeek(ctx context.Context, weekStart time.Time) (int64, error)
}

type AdminService interface {
	Dashboard(ctx context.Context, actor entity.Principal) (*adminDto.DashboardResponse, error)
	RunWeeklyProcessing(ctx context.Context, actor entity.Principal) (*lifecycleDto.WeeklyResult, error)
	RunOverdueSweep(ctx context.Context, actor entity.Principal) (*lifecycleDto.SweepResult, error)
	RecomputeRollups(ctx context.Context, actor entity.Principal) (*adminDto.RecomputeResponse, error)
	ListActivityLogs(ctx context.Context, actor entity.Principal, query activityDto.ActivityLogQuery) (*commonDto.Paginated[entity.ActivityLog], error)
}

type adminService struct {
	users     UserCounter
	goals     GoalCounter
	snapshots SnapshotCounter
	activity  activity.Service
	lifecycle lifecycle.Service
	rollups   user.RollupRecomputer
	now       func() time.Time
}

func NewAdminService(users UserCounter, goals GoalCounter, snapshots SnapshotCounter, activity activity.Service, lifecycle lifecycle.Service, rollups user.RollupRecomputer) AdminService {
	return &adminService{
		users:     users,
		goals:     goals,
		snapshots: snapshots,
		activity:  activity,
		lifecycle: lifecycle,
		rollups:   rollups,
		now:       time.Now,
	}
}

func (s *adminService) Dashboard(ctx context.Context, actor entity.Principal) (*adminDto.DashboardResponse, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	byRole, err := s.users.CountByRole(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}
	byStatus, err := s.goals.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count goals: %w", err)
	}

	now := s.now().UTC()
	weekStart, _ := entity.WeekBounds(now)
	snapshots, err := s.snapshots.CountForWeek(ctx, weekStart)
	if err != nil {
		return nil, fmt.Errorf("failed to count snapshots: %w", err)
	}

	recent, err := s.activity.Recent(ctx, recentActivityLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load recent activity: %w", err)
	}

	res := &adminDto.DashboardResponse{
		UsersByRole:       map[string]int64{entity.RoleAdmin: 0, entity.RoleVolunteer: 0},
		GoalsByStatus:     map[string]int64{},
		WeekStart:         weekStart,
		SnapshotsThisWeek: snapshots,
		RecentActivity:    recent,
		GeneratedAt:       now,
	}
	for role, n := range byRole {
		res.UsersByRole[role] = n
		res.TotalUsers += n
	}
	for _, status := range []entity.GoalStatus{entity.GoalStatusPending, entity.GoalStatusInProgress, entity.GoalStatusCompleted, entity.GoalStatusOverdue} {
		res.GoalsByStatus[string(status)] = byStatus[status]
		res.TotalGoals += byStatus[status]
	}
	return res, nil
}

func (s *adminService) RunWeeklyProcessing(ctx context.Context, actor entity.Principal) (*lifecycleDto.WeeklyResult, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	return s.lifecycle.ProcessWeek(ctx)
}

func (s *adminService) RunOverdueSweep(ctx context.Context, actor entity.Principal) (*lifecycleDto.SweepResult, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	return s.lifecycle.SweepOverdue(ctx)
}

// RecomputeRollups refreshes every user's cached rollup. Per-user failures
// are reported in the response rather than failing the request.
func (s *adminService) RecomputeRollups(ctx context.Context, actor entity.Principal) (*adminDto.RecomputeResponse, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	n, err := s.rollups.RecomputeAll(ctx)
	res := &adminDto.RecomputeResponse{UsersRecomputed: n, CompletedAt: s.now().UTC()}
	if err != nil {
		if n == 0 && !isJoined(err) {
			return nil, err
		}
		res.Errors = strings.Split(err.Error(), "\n")
	}
	return res, nil
}

func (s *adminService) ListActivityLogs(ctx context.Context, actor entity.Principal, query activityDto.ActivityLogQuery) (*commonDto.Paginated[entity.ActivityLog], error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	return s.activity.List(ctx, actor, query)
}

func requireAdmin(actor entity.Principal) error {
	if !actor.IsAdmin() {
		return fmt.Errorf("admin access required: %w", apperror.ErrForbidden)
	}
	return nil
}

// isJoined reports whether err came from errors.Join, i.e. per-user failures.
func isJoined(err error) bool {
	var joined interface{ Unwrap() []error }
	return errors.As(err, &joined)
}
