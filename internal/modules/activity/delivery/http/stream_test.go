package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"anoa.com/volunteergoals/internal/entity"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestVisible(t *testing.T) {
	owner := uuid.New()
	entry := &entity.ActivityLog{ActorKind: entity.ActorKindUser, UserID: &owner}
	system := &entity.ActivityLog{ActorKind: entity.ActorKindSystem}

	admin := entity.Principal{UserID: uuid.New(), Role: entity.RoleAdmin}
	self := entity.Principal{UserID: owner, Role: entity.RoleVolunteer}
	other := entity.Principal{UserID: uuid.New(), Role: entity.RoleVolunteer}

	assert.True(t, Visible(admin, entry))
	assert.True(t, Visible(admin, system))
	assert.True(t, Visible(self, entry))
	assert.False(t, Visible(self, system))
	assert.False(t, Visible(other, entry))
}

func TestHandleWebSocket_WithoutRedis(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set("user_id", uuid.NewString())
		c.Set("role", entity.RoleVolunteer)
	})
	router.GET("/stream", NewStreamHandler(nil, nil).HandleWebSocket)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/stream", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
