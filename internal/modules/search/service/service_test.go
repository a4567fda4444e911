package service

import (
	"testing"
	"time"

	"anoa.com/volunteergoals/internal/entity"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGoalDoc_StripsMarkup(t *testing.T) {
	s := &meiliSearchService{sanitizer: bluemonday.StrictPolicy()}
	goal := &entity.Goal{
		ID:          uuid.New(),
		VolunteerID: uuid.New(),
		Title:       "<b>Plant</b> trees",
		Description: "<p>Along the river</p><p>and the park</p>",
		Status:      entity.GoalStatusInProgress,
		Priority:    entity.GoalPriorityHigh,
		Notes:       []string{"[2025-03-12T10:30:00.000Z] <script>alert(1)</script>half done"},
		DueDate:     time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC),
	}

	doc := s.newGoalDoc(goal)
	assert.Equal(t, "Plant trees", doc.Title)
	assert.Equal(t, "Along the river and the park", doc.Description)
	assert.NotContains(t, doc.Notes, "script")
	assert.Equal(t, "in_progress", doc.Status)
	assert.Equal(t, goal.VolunteerID.String(), doc.VolunteerID)
	assert.NotNil(t, doc.Tags)
}

func TestDecodeHitIDs(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	raw := []byte(`[{"id":"` + a.String() + `"},{"id":"not-a-uuid"},{"id":"` + b.String() + `"}]`)

	ids, err := decodeHitIDs(raw)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{a, b}, ids)

	_, err = decodeHitIDs([]byte(`{}`))
	assert.Error(t, err)
}

func TestVolunteerFilter(t *testing.T) {
	id := uuid.MustParse("3f0e8f7e-2f7c-4d43-9d4b-0d8a3f6f1a10")
	assert.Equal(t, "volunteer_id = '3f0e8f7e-2f7c-4d43-9d4b-0d8a3f6f1a10'", volunteerFilter(id))
}
