package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"anoa.com/volunteergoals/internal/entity"
	activity "anoa.com/volunteergoals/internal/modules/activity/service"
	lifecycleDto "anoa.com/volunteergoals/internal/modules/lifecycle/dto"
	user "anoa.com/volunteergoals/internal/modules/user/service"
	"anoa.com/volunteergoals/pkg/apperror"
	commonDto "anoa.com/volunteergoals/pkg/dto"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// JobName is the scheduler name of the weekly run.
const JobName = "weekly-goal-processing"

const lockTTL = time.Hour

// Steps reported in item failures
const (
	StepSnapshot = "snapshot"
	StepOverdue  = "overdue"
	StepRollup   = "rollup"
)

type GoalStore interface {
	FindDueBetween(ctx context.Context, start, end time.Time) ([]entity.Goal, error)
	FindPastDue(ctx context.Context, statuses []entity.GoalStatus, before time.Time) ([]entity.Goal, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status entity.GoalStatus) error
}

type SnapshotStore interface {
	Create(ctx context.Context, history *entity.ProgressHistory) error
	ExistsForWeek(ctx context.Context, goalID uuid.UUID, weekStart time.Time) (bool, error)
}

type GoalIndexer interface {
	IndexGoal(goal *entity.Goal) error
}

type Service interface {
	// ProcessWeek snapshots every goal due in the current Sunday..Saturday
	// window, flags the unfinished past-due ones as overdue and refreshes every
	// user's rollup. One goal failing does not stop the others.
	ProcessWeek(ctx context.Context) (*lifecycleDto.WeeklyResult, error)
	// SweepOverdue flags every pending or in-progress goal due before today.
	SweepOverdue(ctx context.Context) (*lifecycleDto.SweepResult, error)
}

type service struct {
	goals       GoalStore
	snapshots   SnapshotStore
	rollups     user.RollupRecomputer
	activity    activity.Service
	indexer     GoalIndexer
	redisClient *redis.Client
	now         func() time.Time
}

// NewService builds the lifecycle processor. indexer and redisClient may be
// nil; without redis, concurrent runs are not prevented.
func NewService(goals GoalStore, snapshots SnapshotStore, rollups user.RollupRecomputer, activity activity.Service, indexer GoalIndexer, redisClient *redis.Client) Service {
	return &service{
		goals:       goals,
		snapshots:   snapshots,
		rollups:     rollups,
		activity:    activity,
		indexer:     indexer,
		redisClient: redisClient,
		now:         time.Now,
	}
}

func (s *service) ProcessWeek(ctx context.Context) (*lifecycleDto.WeeklyResult, error) {
	now := s.now().UTC()
	today := startOfDay(now)
	weekStart, weekEnd := entity.WeekBounds(now)

	release, err := s.acquire(ctx, "lifecycle:weekly:"+weekStart.Format(commonDto.DateLayout))
	if err != nil {
		return nil, err
	}
	defer release()

	goals, err := s.goals.FindDueBetween(ctx, weekStart, weekEnd)
	if err != nil {
		return nil, fmt.Errorf("failed to load goals due this week: %w", err)
	}

	result := &lifecycleDto.WeeklyResult{
		WeekStart: weekStart,
		WeekEnd:   weekEnd,
		Failures:  []lifecycleDto.ItemFailure{},
	}

	for i := range goals {
		goal := &goals[i]
		result.GoalsProcessed++
		if goal.Status == entity.GoalStatusCompleted {
			result.GoalsCompleted++
		}

		// The snapshot records the goal before any overdue flip.
		created, err := s.snapshot(ctx, goal, weekStart, weekEnd)
		switch {
		case err != nil:
			result.Failures = append(result.Failures, failure(goal.ID, StepSnapshot, err))
		case created:
			result.SnapshotsCreated++
		default:
			result.SnapshotsSkipped++
		}

		if goal.Status == entity.GoalStatusOverdue || !goal.IsOverdueAt(today) {
			continue
		}
		if err := s.markOverdue(ctx, goal); err != nil {
			result.Failures = append(result.Failures, failure(goal.ID, StepOverdue, err))
			continue
		}
		result.GoalsOverdue++
	}

	result.UsersRecomputed, err = s.rollups.RecomputeAll(ctx)
	if err != nil {
		log.Printf("⚠️ Rollup recompute finished with errors: %v", err)
		result.Failures = append(result.Failures, failure(uuid.Nil, StepRollup, err))
	}

	result.CompletedAt = s.now().UTC()
	s.activity.Record(ctx, entity.SystemActor(), entity.ResourceGoal, "", entity.WeeklyProcessingDetails{
		WeekStart:        result.WeekStart,
		WeekEnd:          result.WeekEnd,
		GoalsProcessed:   result.GoalsProcessed,
		GoalsCompleted:   result.GoalsCompleted,
		GoalsOverdue:     result.GoalsOverdue,
		SnapshotsCreated: result.SnapshotsCreated,
		Failures:         len(result.Failures),
	})

	log.Printf("📊 Weekly processing %s..%s: %d goals, %d completed, %d newly overdue, %d snapshots, %d failures",
		weekStart.Format(commonDto.DateLayout), weekEnd.Format(commonDto.DateLayout),
		result.GoalsProcessed, result.GoalsCompleted, result.GoalsOverdue, result.SnapshotsCreated, len(result.Failures))
	return result, nil
}

func (s *service) SweepOverdue(ctx context.Context) (*lifecycleDto.SweepResult, error) {
	now := s.now().UTC()
	goals, err := s.goals.FindPastDue(ctx, []entity.GoalStatus{entity.GoalStatusPending, entity.GoalStatusInProgress}, startOfDay(now))
	if err != nil {
		return nil, fmt.Errorf("failed to load past due goals: %w", err)
	}

	result := &lifecycleDto.SweepResult{Failures: []lifecycleDto.ItemFailure{}}
	var volunteers []uuid.UUID
	seen := map[uuid.UUID]bool{}
	for i := range goals {
		goal := &goals[i]
		if err := s.markOverdue(ctx, goal); err != nil {
			result.Failures = append(result.Failures, failure(goal.ID, StepOverdue, err))
			continue
		}
		result.GoalsMarked++
		if !seen[goal.VolunteerID] {
			seen[goal.VolunteerID] = true
			volunteers = append(volunteers, goal.VolunteerID)
		}
	}

	for _, id := range volunteers {
		if err := s.rollups.RecomputeRollup(ctx, id); err != nil {
			result.Failures = append(result.Failures, failure(uuid.Nil, StepRollup, fmt.Errorf("user %s: %w", id, err)))
			continue
		}
		result.VolunteersRefreshed++
	}

	result.CompletedAt = s.now().UTC()
	log.Printf("🧹 Overdue sweep: %d goals marked, %d failures", result.GoalsMarked, len(result.Failures))
	return result, nil
}

// snapshot writes the goal's snapshot for the week unless one already exists.
func (s *service) snapshot(ctx context.Context, goal *entity.Goal, weekStart, weekEnd time.Time) (bool, error) {
	exists, err := s.snapshots.ExistsForWeek(ctx, goal.ID, weekStart)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}
	if err := s.snapshots.Create(ctx, entity.NewSnapshot(goal, weekStart, weekEnd)); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *service) markOverdue(ctx context.Context, goal *entity.Goal) error {
	previous := goal.Status
	if err := s.goals.UpdateStatus(ctx, goal.ID, entity.GoalStatusOverdue); err != nil {
		log.Printf("❌ Failed to mark goal %s overdue: %v", goal.ID, err)
		return err
	}
	goal.Status = entity.GoalStatusOverdue

	s.activity.Record(ctx, entity.SystemActor(), entity.ResourceGoal, goal.ID.String(), entity.GoalOverdueDetails{
		Title:          goal.Title,
		DueDate:        goal.DueDate,
		PreviousStatus: previous,
	})
	if s.indexer != nil {
		if err := s.indexer.IndexGoal(goal); err != nil {
			log.Printf("Failed to index goal %s: %v", goal.ID, err)
		}
	}
	return nil
}

// acquire takes a redis lock for key. Without redis it always succeeds.
func (s *service) acquire(ctx context.Context, key string) (func(), error) {
	if s.redisClient == nil {
		return func() {}, nil
	}

	ok, err := s.redisClient.SetNX(ctx, key, s.now().UTC().Format(time.RFC3339), lockTTL).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire weekly processing lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("weekly processing is already running: %w", apperror.ErrConflict)
	}
	return func() {
		if err := s.redisClient.Del(context.Background(), key).Err(); err != nil {
			log.Printf("Failed to release lock %s: %v", key, err)
		}
	}, nil
}

func failure(goalID uuid.UUID, step string, err error) lifecycleDto.ItemFailure {
	return lifecycleDto.ItemFailure{GoalID: goalID, Step: step, Error: err.Error()}
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
