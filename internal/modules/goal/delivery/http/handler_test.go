package handler

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"anoa.com/volunteergoals/internal/entity"
	goalDto "anoa.com/volunteergoals/internal/modules/goal/dto"
	goal "anoa.com/volunteergoals/internal/modules/goal/service"
	"anoa.com/volunteergoals/pkg/apperror"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubService struct {
	goal.Service
	actor    entity.Principal
	progress goalDto.UpdateProgressRequest
}

func (s *stubService) UpdateProgress(_ context.Context, actor entity.Principal, id uuid.UUID, req goalDto.UpdateProgressRequest) (*entity.Goal, error) {
	s.actor = actor
	s.progress = req
	if *req.Progress > 100 {
		return nil, fmt.Errorf("%w: %v", apperror.ErrInvalidInput, entity.ErrProgressOutOfRange)
	}
	return &entity.Goal{ID: id, Progress: *req.Progress, Status: entity.GoalStatusInProgress}, nil
}

func (s *stubService) Get(_ context.Context, _ entity.Principal, _ uuid.UUID) (*entity.Goal, error) {
	return nil, fmt.Errorf("goal not found: %w", apperror.ErrNotFound)
}

func newRouter(svc goal.Service, userID uuid.UUID) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewGoalHandler(svc)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("user_id", userID.String())
		c.Set("role", entity.RoleVolunteer)
	})
	r.GET("/goals/:id", h.GetGoal)
	r.PATCH("/goals/:id/progress", h.UpdateProgress)
	return r
}

func do(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestUpdateProgress(t *testing.T) {
	svc := &stubService{}
	userID := uuid.New()
	r := newRouter(svc, userID)
	id := uuid.New()

	w := do(r, http.MethodPatch, "/goals/"+id.String()+"/progress", `{"progress": 45, "note": "halfway"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"progress":45`)
	assert.Contains(t, w.Body.String(), `"status":"in_progress"`)
	assert.Equal(t, userID, svc.actor.UserID)
	assert.Equal(t, "halfway", svc.progress.Note)

	w = do(r, http.MethodPatch, "/goals/"+id.String()+"/progress", `{"progress": 120}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodPatch, "/goals/"+id.String()+"/progress", `{"note": "no progress"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "required")

	w = do(r, http.MethodPatch, "/goals/not-a-uuid/progress", `{"progress": 10}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetGoal_NotFound(t *testing.T) {
	r := newRouter(&stubService{}, uuid.New())

	w := do(r, http.MethodGet, "/goals/"+uuid.NewString(), "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
