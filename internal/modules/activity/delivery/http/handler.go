package handler

import (
	"net/http"

	activityDto "anoa.com/volunteergoals/internal/modules/activity/dto"
	activity "anoa.com/volunteergoals/internal/modules/activity/service"
	"anoa.com/volunteergoals/pkg/response"
	"github.com/gin-gonic/gin"
)

type ActivityHandler struct {
	service activity.Service
}

func NewActivityHandler(service activity.Service) *ActivityHandler {
	return &ActivityHandler{service: service}
}

// GetMyActivity lists the caller's own audit trail.
func (h *ActivityHandler) GetMyActivity(c *gin.Context) {
	var query activityDto.ActivityLogQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.ValidationError(c, err)
		return
	}

	actor, err := response.GetPrincipal(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	query.UserID = actor.UserID.String()

	logs, err := h.service.List(c.Request.Context(), actor, query)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, logs)
}
