package goal

import (
	"context"
	"fmt"
	"testing"
	"time"

	"anoa.com/volunteergoals/internal/entity"
	"anoa.com/volunteergoals/pkg/database"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Connect(fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()), false)
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&entity.Goal{}, &entity.ProgressHistory{}))
	return db
}

func newGoal(volunteerID uuid.UUID, title string, status entity.GoalStatus, due time.Time) *entity.Goal {
	return &entity.Goal{
		VolunteerID: volunteerID,
		CreatedByID: volunteerID,
		Title:       title,
		Category:    "outreach",
		Priority:    entity.GoalPriorityMedium,
		Status:      status,
		StartDate:   due.AddDate(0, 0, -7),
		DueDate:     due,
		Tags:        []string{"weekly"},
	}
}

func TestRepository_FindAllFilters(t *testing.T) {
	repo := NewRepository(setupDB(t))
	ctx := context.Background()
	alice, bob := uuid.New(), uuid.New()
	due := time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Create(ctx, newGoal(alice, "Clean the park", entity.GoalStatusPending, due)))
	require.NoError(t, repo.Create(ctx, newGoal(alice, "Food drive", entity.GoalStatusCompleted, due.AddDate(0, 0, 7))))
	require.NoError(t, repo.Create(ctx, newGoal(bob, "Park mural", entity.GoalStatusInProgress, due)))

	goals, total, err := repo.FindAll(ctx, Filter{VolunteerID: &alice})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, goals, 2)

	goals, total, err = repo.FindAll(ctx, Filter{Search: "PARK"})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, goals, 2)

	goals, _, err = repo.FindAll(ctx, Filter{Statuses: []entity.GoalStatus{entity.GoalStatusCompleted}})
	require.NoError(t, err)
	require.Len(t, goals, 1)
	assert.Equal(t, "Food drive", goals[0].Title)
	assert.Equal(t, []string{"weekly"}, []string(goals[0].Tags))

	goals, total, err = repo.FindAll(ctx, Filter{SortBy: "title", Order: "asc", Offset: 1, Limit: 1})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	require.Len(t, goals, 1)
	assert.Equal(t, "Food drive", goals[0].Title)
}

func TestRepository_DueWindowAndPastDue(t *testing.T) {
	repo := NewRepository(setupDB(t))
	ctx := context.Background()
	volunteer := uuid.New()
	start := time.Date(2025, 3, 9, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 7).Add(-time.Millisecond)

	require.NoError(t, repo.Create(ctx, newGoal(volunteer, "in window", entity.GoalStatusPending, start.AddDate(0, 0, 2))))
	require.NoError(t, repo.Create(ctx, newGoal(volunteer, "next week", entity.GoalStatusPending, start.AddDate(0, 0, 8))))
	require.NoError(t, repo.Create(ctx, newGoal(volunteer, "last month", entity.GoalStatusCompleted, start.AddDate(0, -1, 0))))

	goals, err := repo.FindDueBetween(ctx, start, end)
	require.NoError(t, err)
	require.Len(t, goals, 1)
	assert.Equal(t, "in window", goals[0].Title)

	goals, err = repo.FindPastDue(ctx, []entity.GoalStatus{entity.GoalStatusPending, entity.GoalStatusInProgress}, start.AddDate(0, 0, 5))
	require.NoError(t, err)
	require.Len(t, goals, 1)
	assert.Equal(t, "in window", goals[0].Title)
}

func TestRepository_DeleteCascadesSnapshots(t *testing.T) {
	db := setupDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	due := time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)

	goal := newGoal(uuid.New(), "cascade", entity.GoalStatusPending, due)
	require.NoError(t, repo.Create(ctx, goal))
	start, end := entity.WeekBounds(due)
	require.NoError(t, db.Create(entity.NewSnapshot(goal, start, end)).Error)

	require.NoError(t, repo.Delete(ctx, goal.ID))

	var snapshots int64
	require.NoError(t, db.Model(&entity.ProgressHistory{}).Where("goal_id = ?", goal.ID).Count(&snapshots).Error)
	assert.Zero(t, snapshots)

	_, err := repo.FindByID(ctx, goal.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, goal.ID), gorm.ErrRecordNotFound)
}

func TestRepository_CountsAndBulkUpdate(t *testing.T) {
	repo := NewRepository(setupDB(t))
	ctx := context.Background()
	volunteer := uuid.New()
	due := time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)

	a := newGoal(volunteer, "a", entity.GoalStatusPending, due)
	b := newGoal(volunteer, "b", entity.GoalStatusPending, due)
	require.NoError(t, repo.Create(ctx, a))
	require.NoError(t, repo.Create(ctx, b))

	require.NoError(t, repo.BulkUpdate(ctx, []uuid.UUID{a.ID}, map[string]any{"status": entity.GoalStatusCompleted}))

	total, completed, err := repo.CountByVolunteer(ctx, volunteer)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.EqualValues(t, 1, completed)

	counts, err := repo.CountByStatus(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, counts[entity.GoalStatusCompleted])
	assert.EqualValues(t, 1, counts[entity.GoalStatusPending])

	reloaded, err := repo.FindByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, reloaded.Progress)
}
