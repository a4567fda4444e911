package admin

import (
	"context"
	"errors"
	"testing"
	"time"

	"anoa.com/volunteergoals/internal/entity"
	activityDto "anoa.com/volunteergoals/internal/modules/activity/dto"
	lifecycleDto "anoa.com/volunteergoals/internal/modules/lifecycle/dto"
	"anoa.com/volunteergoals/pkg/apperror"
	commonDto "anoa.com/volunteergoals/pkg/dto"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	admin     = entity.Principal{UserID: uuid.New(), Role: entity.RoleAdmin}
	volunteer = entity.Principal{UserID: uuid.New(), Role: entity.RoleVolunteer}
	fixedNow  = time.Date(2025, time.March, 12, 10, 30, 0, 0, time.UTC)
)

type fakeCounts struct {
	weekAsked time.Time
}

func (f *fakeCounts) CountByRole(context.Context) (map[string]int64, error) {
	return map[string]int64{entity.RoleVolunteer: 7}, nil
}

func (f *fakeCounts) CountByStatus(context.Context) (map[entity.GoalStatus]int64, error) {
	return map[entity.GoalStatus]int64{entity.GoalStatusPending: 3, entity.GoalStatusCompleted: 2}, nil
}

func (f *fakeCounts) CountForWeek(_ context.Context, weekStart time.Time) (int64, error) {
	f.weekAsked = weekStart
	return 4, nil
}

type fakeActivity struct {
	listed bool
}

func (f *fakeActivity) Record(context.Context, entity.Actor, string, string, entity.ActivityDetails) {}

func (f *fakeActivity) List(_ context.Context, _ entity.Principal, q activityDto.ActivityLogQuery) (*commonDto.Paginated[entity.ActivityLog], error) {
	f.listed = true
	return commonDto.NewPaginated([]entity.ActivityLog{}, 1, 20, 0), nil
}

func (f *fakeActivity) Recent(_ context.Context, limit int) ([]entity.ActivityLog, error) {
	return make([]entity.ActivityLog, 2), nil
}

type fakeLifecycle struct {
	weekly, sweeps int
}

func (f *fakeLifecycle) ProcessWeek(context.Context) (*lifecycleDto.WeeklyResult, error) {
	f.weekly++
	return &lifecycleDto.WeeklyResult{GoalsProcessed: 5}, nil
}

func (f *fakeLifecycle) SweepOverdue(context.Context) (*lifecycleDto.SweepResult, error) {
	f.sweeps++
	return &lifecycleDto.SweepResult{GoalsMarked: 2}, nil
}

type fakeRollups struct {
	n   int
	err error
}

func (f *fakeRollups) RecomputeRollup(context.Context, uuid.UUID) error { return nil }
func (f *fakeRollups) RecomputeAll(context.Context) (int, error)       { return f.n, f.err }

type fixture struct {
	svc       AdminService
	counts    *fakeCounts
	activity  *fakeActivity
	lifecycle *fakeLifecycle
	rollups   *fakeRollups
}

func newFixture() *fixture {
	f := &fixture{counts: &fakeCounts{}, activity: &fakeActivity{}, lifecycle: &fakeLifecycle{}, rollups: &fakeRollups{n: 7}}
	f.svc = NewAdminService(f.counts, f.counts, f.counts, f.activity, f.lifecycle, f.rollups)
	f.svc.(*adminService).now = func() time.Time { return fixedNow }
	return f
}

func TestDashboard(t *testing.T) {
	f := newFixture()

	res, err := f.svc.Dashboard(context.Background(), admin)
	require.NoError(t, err)
	assert.Equal(t, int64(7), res.TotalUsers)
	assert.Equal(t, int64(0), res.UsersByRole[entity.RoleAdmin])
	assert.Equal(t, int64(5), res.TotalGoals)
	assert.Equal(t, int64(0), res.GoalsByStatus["overdue"])
	assert.Equal(t, int64(4), res.SnapshotsThisWeek)
	assert.Equal(t, time.Date(2025, time.March, 9, 0, 0, 0, 0, time.UTC), f.counts.weekAsked)
	assert.Len(t, res.RecentActivity, 2)

	_, err = f.svc.Dashboard(context.Background(), volunteer)
	assert.ErrorIs(t, err, apperror.ErrForbidden)
}

func TestRunJobs(t *testing.T) {
	f := newFixture()

	weekly, err := f.svc.RunWeeklyProcessing(context.Background(), admin)
	require.NoError(t, err)
	assert.Equal(t, 5, weekly.GoalsProcessed)

	sweep, err := f.svc.RunOverdueSweep(context.Background(), admin)
	require.NoError(t, err)
	assert.Equal(t, 2, sweep.GoalsMarked)

	_, err = f.svc.RunWeeklyProcessing(context.Background(), volunteer)
	assert.ErrorIs(t, err, apperror.ErrForbidden)
	_, err = f.svc.RunOverdueSweep(context.Background(), volunteer)
	assert.ErrorIs(t, err, apperror.ErrForbidden)
	assert.Equal(t, 1, f.lifecycle.weekly)
	assert.Equal(t, 1, f.lifecycle.sweeps)
}

func TestRecomputeRollups(t *testing.T) {
	f := newFixture()

	res, err := f.svc.RecomputeRollups(context.Background(), admin)
	require.NoError(t, err)
	assert.Equal(t, 7, res.UsersRecomputed)
	assert.Empty(t, res.Errors)

	f.rollups.n = 5
	f.rollups.err = errors.Join(errors.New("user a failed"), errors.New("user b failed"))
	res, err = f.svc.RecomputeRollups(context.Background(), admin)
	require.NoError(t, err)
	assert.Equal(t, []string{"user a failed", "user b failed"}, res.Errors)

	f.rollups.n = 0
	f.rollups.err = errors.New("failed to list users")
	_, err = f.svc.RecomputeRollups(context.Background(), admin)
	assert.Error(t, err)
}

func TestListActivityLogs(t *testing.T) {
	f := newFixture()

	_, err := f.svc.ListActivityLogs(context.Background(), volunteer, activityDto.ActivityLogQuery{})
	assert.ErrorIs(t, err, apperror.ErrForbidden)
	assert.False(t, f.activity.listed)

	_, err = f.svc.ListActivityLogs(context.Background(), admin, activityDto.ActivityLogQuery{})
	require.NoError(t, err)
	assert.True(t, f.activity.listed)
}
