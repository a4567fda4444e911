package handler

import (
	"net/http"

	goalDto "anoa.com/volunteergoals/internal/modules/goal/dto"
	goal "anoa.com/volunteergoals/internal/modules/goal/service"
	"anoa.com/volunteergoals/pkg/response"
	"github.com/gin-gonic/gin"
)

type GoalHandler struct {
	service goal.Service
}

func NewGoalHandler(service goal.Service) *GoalHandler {
	return &GoalHandler{service: service}
}

func (h *GoalHandler) CreateGoal(c *gin.Context) {
	var req goalDto.CreateGoalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err)
		return
	}

	actor, err := response.GetPrincipal(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	created, err := h.service.Create(c.Request.Context(), actor, req)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": created})
}

func (h *GoalHandler) GetGoals(c *gin.Context) {
	var query goalDto.GoalQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.ValidationError(c, err)
		return
	}

	actor, err := response.GetPrincipal(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	goals, err := h.service.List(c.Request.Context(), actor, query)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, goals)
}

func (h *GoalHandler) SearchGoals(c *gin.Context) {
	var query goalDto.SearchQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.ValidationError(c, err)
		return
	}

	actor, err := response.GetPrincipal(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	goals, err := h.service.Search(c.Request.Context(), actor, query)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": goals})
}

func (h *GoalHandler) GetGoal(c *gin.Context) {
	id, ok := response.ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	actor, err := response.GetPrincipal(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	found, err := h.service.Get(c.Request.Context(), actor, id)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": found})
}

func (h *GoalHandler) UpdateGoal(c *gin.Context) {
	id, ok := response.ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req goalDto.UpdateGoalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err)
		return
	}

	actor, err := response.GetPrincipal(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	updated, err := h.service.Update(c.Request.Context(), actor, id, req)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": updated})
}

func (h *GoalHandler) UpdateProgress(c *gin.Context) {
	id, ok := response.ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req goalDto.UpdateProgressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err)
		return
	}

	actor, err := response.GetPrincipal(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	updated, err := h.service.UpdateProgress(c.Request.Context(), actor, id, req)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": updated})
}

func (h *GoalHandler) UpdateStatus(c *gin.Context) {
	id, ok := response.ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req goalDto.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err)
		return
	}

	actor, err := response.GetPrincipal(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	updated, err := h.service.UpdateStatus(c.Request.Context(), actor, id, req)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": updated})
}

func (h *GoalHandler) BulkUpdate(c *gin.Context) {
	var req goalDto.BulkUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err)
		return
	}

	actor, err := response.GetPrincipal(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	result, err := h.service.BulkUpdate(c.Request.Context(), actor, req)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}

func (h *GoalHandler) DeleteGoal(c *gin.Context) {
	id, ok := response.ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	actor, err := response.GetPrincipal(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	if err := h.service.Delete(c.Request.Context(), actor, id); err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "goal deleted successfully"})
}
