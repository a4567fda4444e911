package lifecycle

import (
	"context"
	"errors"
	"testing"
	"time"

	"anoa.com/volunteergoals/internal/entity"
	activityDto "anoa.com/volunteergoals/internal/modules/activity/dto"
	commonDto "anoa.com/volunteergoals/pkg/dto"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, time.March, 12, 10, 30, 0, 0, time.UTC)

type fakeGoals struct {
	goals     map[uuid.UUID]*entity.Goal
	failIDs   map[uuid.UUID]bool
	pastDueIn []entity.GoalStatus
}

func newFakeGoals(goals ...*entity.Goal) *fakeGoals {
	f := &fakeGoals{goals: map[uuid.UUID]*entity.Goal{}, failIDs: map[uuid.UUID]bool{}}
	for _, g := range goals {
		f.goals[g.ID] = g
	}
	return f
}

func (f *fakeGoals) FindDueBetween(_ context.Context, start, end time.Time) ([]entity.Goal, error) {
	var out []entity.Goal
	for _, g := range f.goals {
		if !g.DueDate.Before(start) && !g.DueDate.After(end) {
			out = append(out, *g)
		}
	}
	return out, nil
}

func (f *fakeGoals) FindPastDue(_ context.Context, statuses []entity.GoalStatus, before time.Time) ([]entity.Goal, error) {
	f.pastDueIn = statuses
	var out []entity.Goal
	for _, g := range f.goals {
		for _, s := range statuses {
			if g.Status == s && g.DueDate.Before(before) {
				out = append(out, *g)
			}
		}
	}
	return out, nil
}

func (f *fakeGoals) UpdateStatus(_ context.Context, id uuid.UUID, status entity.GoalStatus) error {
	if f.failIDs[id] {
		return errors.New("connection reset")
	}
	f.goals[id].Status = status
	return nil
}

type fakeSnapshots struct {
	rows    []*entity.ProgressHistory
	failIDs map[uuid.UUID]bool
}

func (f *fakeSnapshots) Create(_ context.Context, h *entity.ProgressHistory) error {
	if f.failIDs[h.GoalID] {
		return errors.New("disk full")
	}
	f.rows = append(f.rows, h)
	return nil
}

func (f *fakeSnapshots) ExistsForWeek(_ context.Context, goalID uuid.UUID, weekStart time.Time) (bool, error) {
	for _, r := range f.rows {
		if r.GoalID == goalID && r.WeekStart.Equal(weekStart) {
			return true, nil
		}
	}
	return false, nil
}

type fakeRollups struct {
	all     int
	perUser []uuid.UUID
}

func (f *fakeRollups) RecomputeRollup(_ context.Context, id uuid.UUID) error {
	f.perUser = append(f.perUser, id)
	return nil
}

func (f *fakeRollups) RecomputeAll(context.Context) (int, error) {
	f.all++
	return 3, nil
}

type recorded struct {
	actor   entity.Actor
	details entity.ActivityDetails
}

type fakeActivity struct {
	entries []recorded
}

func (f *fakeActivity) Record(_ context.Context, actor entity.Actor, _, _ string, d entity.ActivityDetails) {
	f.entries = append(f.entries, recorded{actor: actor, details: d})
}

func (f *fakeActivity) List(context.Context, entity.Principal, activityDto.ActivityLogQuery) (*commonDto.Paginated[entity.ActivityLog], error) {
	return nil, nil
}

func (f *fakeActivity) Recent(context.Context, int) ([]entity.ActivityLog, error) { return nil, nil }

type fixture struct {
	svc       Service
	goals     *fakeGoals
	snapshots *fakeSnapshots
	rollups   *fakeRollups
	activity  *fakeActivity
}

func newFixture(goals ...*entity.Goal) *fixture {
	f := &fixture{
		goals:     newFakeGoals(goals...),
		snapshots: &fakeSnapshots{failIDs: map[uuid.UUID]bool{}},
		rollups:   &fakeRollups{},
		activity:  &fakeActivity{},
	}
	f.svc = NewService(f.goals, f.snapshots, f.rollups, f.activity, nil, nil)
	f.svc.(*service).now = func() time.Time { return fixedNow }
	return f
}

func goal(status entity.GoalStatus, due time.Time) *entity.Goal {
	return &entity.Goal{
		ID:          uuid.New(),
		VolunteerID: uuid.New(),
		Title:       "Deliver meals",
		Status:      status,
		DueDate:     due,
	}
}

func (f *fixture) actions() []entity.Action {
	var out []entity.Action
	for _, e := range f.activity.entries {
		out = append(out, e.details.Action())
	}
	return out
}

func TestProcessWeek_FlagsYesterdaysPendingGoal(t *testing.T) {
	yesterday := fixedNow.AddDate(0, 0, -1)
	g := goal(entity.GoalStatusPending, yesterday)
	f := newFixture(g)

	result, err := f.svc.ProcessWeek(context.Background())
	require.NoError(t, err)

	assert.Equal(t, entity.GoalStatusOverdue, f.goals.goals[g.ID].Status)
	require.Len(t, f.snapshots.rows, 1)
	assert.Equal(t, entity.GoalStatusPending, f.snapshots.rows[0].Status)
	assert.Equal(t, time.Date(2025, time.March, 9, 0, 0, 0, 0, time.UTC), f.snapshots.rows[0].WeekStart)

	assert.Equal(t, 1, result.GoalsProcessed)
	assert.Equal(t, 1, result.GoalsOverdue)
	assert.Equal(t, 1, result.SnapshotsCreated)
	assert.Equal(t, 3, result.UsersRecomputed)
	assert.Empty(t, result.Failures)
	assert.Equal(t, 1, f.rollups.all)

	require.Equal(t, []entity.Action{entity.ActionMarkGoalOverdue, entity.ActionWeeklyProcessingCompleted}, f.actions())
	for _, e := range f.activity.entries {
		assert.True(t, e.actor.IsSystem())
	}
	summary := f.activity.entries[1].details.(entity.WeeklyProcessingDetails)
	assert.Equal(t, 1, summary.GoalsOverdue)
}

func TestProcessWeek_SnapshotsOncePerGoalPerWeek(t *testing.T) {
	f := newFixture(
		goal(entity.GoalStatusInProgress, fixedNow.AddDate(0, 0, 2)),
		goal(entity.GoalStatusCompleted, fixedNow.AddDate(0, 0, -2)),
		goal(entity.GoalStatusPending, fixedNow.AddDate(0, 0, 3)),
		goal(entity.GoalStatusPending, fixedNow.AddDate(0, 0, 10)),
	)

	first, err := f.svc.ProcessWeek(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, first.GoalsProcessed)
	assert.Equal(t, 3, first.SnapshotsCreated)
	assert.Equal(t, 1, first.GoalsCompleted)

	second, err := f.svc.ProcessWeek(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, second.SnapshotsCreated)
	assert.Equal(t, 3, second.SnapshotsSkipped)
	assert.Len(t, f.snapshots.rows, 3)
}

func TestProcessWeek_NeverFlagsCompletedOrDueTodayGoals(t *testing.T) {
	done := goal(entity.GoalStatusCompleted, fixedNow.AddDate(0, 0, -2))
	dueToday := goal(entity.GoalStatusPending, time.Date(2025, time.March, 12, 0, 0, 0, 0, time.UTC))
	already := goal(entity.GoalStatusOverdue, fixedNow.AddDate(0, 0, -1))
	f := newFixture(done, dueToday, already)

	result, err := f.svc.ProcessWeek(context.Background())
	require.NoError(t, err)

	assert.Equal(t, entity.GoalStatusCompleted, f.goals.goals[done.ID].Status)
	assert.Equal(t, entity.GoalStatusPending, f.goals.goals[dueToday.ID].Status)
	assert.Equal(t, 0, result.GoalsOverdue)
	assert.Equal(t, []entity.Action{entity.ActionWeeklyProcessingCompleted}, f.actions())
}

func TestProcessWeek_OneFailureDoesNotStopTheBatch(t *testing.T) {
	broken := goal(entity.GoalStatusPending, fixedNow.AddDate(0, 0, -1))
	noSnapshot := goal(entity.GoalStatusInProgress, fixedNow.AddDate(0, 0, -2))
	healthy := goal(entity.GoalStatusPending, fixedNow.AddDate(0, 0, -3))
	f := newFixture(broken, noSnapshot, healthy)
	f.goals.failIDs[broken.ID] = true
	f.snapshots.failIDs[noSnapshot.ID] = true

	result, err := f.svc.ProcessWeek(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, result.GoalsProcessed)
	assert.Equal(t, 2, result.SnapshotsCreated)
	assert.Equal(t, 2, result.GoalsOverdue)
	require.Len(t, result.Failures, 2)
	steps := map[uuid.UUID]string{}
	for _, failure := range result.Failures {
		steps[failure.GoalID] = failure.Step
	}
	assert.Equal(t, StepOverdue, steps[broken.ID])
	assert.Equal(t, StepSnapshot, steps[noSnapshot.ID])

	assert.Equal(t, entity.GoalStatusPending, f.goals.goals[broken.ID].Status)
	assert.Equal(t, entity.GoalStatusOverdue, f.goals.goals[noSnapshot.ID].Status)
	assert.Equal(t, entity.GoalStatusOverdue, f.goals.goals[healthy.ID].Status)
	assert.Equal(t, 1, f.rollups.all)
}

func TestSweepOverdue(t *testing.T) {
	volunteer := uuid.New()
	a := goal(entity.GoalStatusPending, fixedNow.AddDate(0, 0, -20))
	b := goal(entity.GoalStatusInProgress, fixedNow.AddDate(0, 0, -1))
	a.VolunteerID, b.VolunteerID = volunteer, volunteer
	done := goal(entity.GoalStatusCompleted, fixedNow.AddDate(0, 0, -5))
	future := goal(entity.GoalStatusPending, fixedNow.AddDate(0, 0, 1))
	f := newFixture(a, b, done, future)

	result, err := f.svc.SweepOverdue(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []entity.GoalStatus{entity.GoalStatusPending, entity.GoalStatusInProgress}, f.goals.pastDueIn)
	assert.Equal(t, 2, result.GoalsMarked)
	assert.Equal(t, 1, result.VolunteersRefreshed)
	assert.Equal(t, []uuid.UUID{volunteer}, f.rollups.perUser)
	assert.Equal(t, entity.GoalStatusCompleted, f.goals.goals[done.ID].Status)
	assert.Equal(t, entity.GoalStatusPending, f.goals.goals[future.ID].Status)
	assert.Equal(t, entity.GoalStatusOverdue, f.goals.goals[a.ID].Status)

	overdue := f.activity.entries[0].details.(entity.GoalOverdueDetails)
	assert.Equal(t, "Deliver meals", overdue.Title)
}
