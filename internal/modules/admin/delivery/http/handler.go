package handler

import (
	"net/http"

	activityDto "anoa.com/volunteergoals/internal/modules/activity/dto"
	adminService "anoa.com/volunteergoals/internal/modules/admin/service"
	"anoa.com/volunteergoals/pkg/response"
	"github.com/gin-gonic/gin"
)

type AdminHandler struct {
	adminService adminService.AdminService
}

func NewAdminHandler(adminService adminService.AdminService) *AdminHandler {
	return &AdminHandler{
		adminService: adminService,
	}
}

func (h *AdminHandler) GetDashboard(c *gin.Context) {
	actor, err := response.GetPrincipal(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	res, err := h.adminService.Dashboard(c.Request.Context(), actor)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": res})
}

func (h *AdminHandler) GetActivityLogs(c *gin.Context) {
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

	res, err := h.adminService.ListActivityLogs(c.Request.Context(), actor, query)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

func (h *AdminHandler) RunWeeklyProcessing(c *gin.Context) {
	actor, err := response.GetPrincipal(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	res, err := h.adminService.RunWeeklyProcessing(c.Request.Context(), actor)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": res})
}

func (h *AdminHandler) RunOverdueSweep(c *gin.Context) {
	actor, err := response.GetPrincipal(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	res, err := h.adminService.RunOverdueSweep(c.Request.Context(), actor)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": res})
}

func (h *AdminHandler) RecomputeRollups(c *gin.Context) {
	actor, err := response.GetPrincipal(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	res, err := h.adminService.RecomputeRollups(c.Request.Context(), actor)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": res})
}
