package handler

import (
	"net/http"

	settingDto "anoa.com/volunteergoals/internal/modules/setting/dto"
	setting "anoa.com/volunteergoals/internal/modules/setting/service"
	"anoa.com/volunteergoals/pkg/response"
	"github.com/gin-gonic/gin"
)

type SettingHandler struct {
	service setting.Service
}

func NewSettingHandler(service setting.Service) *SettingHandler {
	return &SettingHandler{service: service}
}

func (h *SettingHandler) GetSettings(c *gin.Context) {
	var query settingDto.SettingQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.ValidationError(c, err)
		return
	}

	actor, err := response.GetPrincipal(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	settings, err := h.service.List(c.Request.Context(), actor, query)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, settings)
}

func (h *SettingHandler) ResolveSetting(c *gin.Context) {
	var query settingDto.ResolveQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.ValidationError(c, err)
		return
	}

	actor, err := response.GetPrincipal(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	resolved, err := h.service.Resolve(c.Request.Context(), actor, c.Param("key"), query)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resolved})
}

func (h *SettingHandler) GetSetting(c *gin.Context) {
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

func (h *SettingHandler) CreateSetting(c *gin.Context) {
	var req settingDto.CreateSettingRequest
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

func (h *SettingHandler) UpdateSetting(c *gin.Context) {
	id, ok := response.ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req settingDto.UpdateSettingRequest
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

func (h *SettingHandler) DeleteSetting(c *gin.Context) {
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

	c.JSON(http.StatusOK, gin.H{"message": "setting deleted successfully"})
}
