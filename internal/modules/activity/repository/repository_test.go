package activity

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
	require.NoError(t, db.AutoMigrate(&entity.ActivityLog{}))
	return db
}

func record(t *testing.T, repo Repository, actor entity.Actor, details entity.ActivityDetails, at time.Time) {
	t.Helper()
	entry, err := entity.NewActivityLog(actor, entity.ResourceGoal, uuid.NewString(), details)
	require.NoError(t, err)
	entry.CreatedAt = at
	require.NoError(t, repo.Create(context.Background(), entry))
}

func TestRepository_FiltersAndSystemActor(t *testing.T) {
	repo := NewRepository(setupDB(t))
	ctx := context.Background()
	user := uuid.New()
	now := time.Date(2025, 3, 12, 10, 0, 0, 0, time.UTC)

	record(t, repo, entity.UserActor(user), entity.GoalCreatedDetails{Title: "a"}, now.Add(-2*time.Hour))
	record(t, repo, entity.UserActor(user), entity.GoalProgressDetails{PreviousProgress: 0, NewProgress: 40}, now.Add(-time.Hour))
	record(t, repo, entity.SystemActor(), entity.GoalOverdueDetails{Title: "late"}, now)

	logs, total, err := repo.FindAll(ctx, Filter{UserID: &user})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, logs, 2)
	assert.Equal(t, entity.ActionUpdateGoalProgress, logs[0].Action)

	logs, _, err = repo.FindAll(ctx, Filter{Action: entity.ActionMarkGoalOverdue})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.True(t, logs[0].Actor().IsSystem())
	assert.Nil(t, logs[0].UserID)

	details, err := logs[0].TypedDetails()
	require.NoError(t, err)
	overdue, ok := details.(*entity.GoalOverdueDetails)
	require.True(t, ok)
	assert.Equal(t, "late", overdue.Title)

	logs, err = repo.FindSince(ctx, nil, now.Add(-90*time.Minute))
	require.NoError(t, err)
	assert.Len(t, logs, 2)

	logs, err = repo.FindRecent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, entity.ActionMarkGoalOverdue, logs[0].Action)
}
