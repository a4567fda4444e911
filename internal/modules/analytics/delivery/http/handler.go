package handler

import (
	"net/http"

	analyticsDto "anoa.com/volunteergoals/internal/modules/analytics/dto"
	analytics "anoa.com/volunteergoals/internal/modules/analytics/service"
	"anoa.com/volunteergoals/pkg/response"
	"github.com/gin-gonic/gin"
)

type AnalyticsHandler struct {
	service analytics.Service
}

func NewAnalyticsHandler(service analytics.Service) *AnalyticsHandler {
	return &AnalyticsHandler{service: service}
}

func (h *AnalyticsHandler) GetOverview(c *gin.Context) {
	actor, err := response.GetPrincipal(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	overview, err := h.service.Overview(c.Request.Context(), actor)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": overview})
}

func (h *AnalyticsHandler) GetVolunteerPerformance(c *gin.Context) {
	id, ok := response.ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	actor, err := response.GetPrincipal(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	performance, err := h.service.VolunteerPerformance(c.Request.Context(), actor, id)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": performance})
}

func (h *AnalyticsHandler) GetTrends(c *gin.Context) {
	var query analyticsDto.TrendsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.ValidationError(c, err)
		return
	}

	actor, err := response.GetPrincipal(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	trends, err := h.service.Trends(c.Request.Context(), actor, query)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": trends})
}

func (h *AnalyticsHandler) GetProductiveDay(c *gin.Context) {
	var query analyticsDto.ProductiveDayQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.ValidationError(c, err)
		return
	}

	actor, err := response.GetPrincipal(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	day, err := h.service.ProductiveDay(c.Request.Context(), actor, query)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": day})
}

func (h *AnalyticsHandler) GetActivityByDay(c *gin.Context) {
	var query analyticsDto.ActivityByDayQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.ValidationError(c, err)
		return
	}

	actor, err := response.GetPrincipal(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	days, err := h.service.ActivityByDay(c.Request.Context(), actor, query)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": days})
}
