package handler

import (
	"net/http"

	goalDto "anoa.com/volunteergoals/internal/modules/goal/dto"
	templateDto "anoa.com/volunteergoals/internal/modules/goaltemplate/dto"
	goaltemplate "anoa.com/volunteergoals/internal/modules/goaltemplate/service"
	"anoa.com/volunteergoals/pkg/response"
	"github.com/gin-gonic/gin"
)

type GoalTemplateHandler struct {
	service goaltemplate.Service
}

func NewGoalTemplateHandler(service goaltemplate.Service) *GoalTemplateHandler {
	return &GoalTemplateHandler{service: service}
}

func (h *GoalTemplateHandler) GetTemplates(c *gin.Context) {
	var query templateDto.TemplateQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.ValidationError(c, err)
		return
	}

	actor, err := response.GetPrincipal(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	templates, err := h.service.List(c.Request.Context(), actor, query)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, templates)
}

func (h *GoalTemplateHandler) GetTemplate(c *gin.Context) {
	id, ok := response.ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	actor, err := response.GetPrincipal(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	tpl, err := h.service.Get(c.Request.Context(), actor, id)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": tpl})
}

func (h *GoalTemplateHandler) CreateTemplate(c *gin.Context) {
	var req templateDto.CreateTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err)
		return
	}

	actor, err := response.GetPrincipal(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	tpl, err := h.service.Create(c.Request.Context(), actor, req)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": tpl})
}

func (h *GoalTemplateHandler) UpdateTemplate(c *gin.Context) {
	id, ok := response.ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req templateDto.UpdateTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err)
		return
	}

	actor, err := response.GetPrincipal(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	tpl, err := h.service.Update(c.Request.Context(), actor, id, req)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": tpl})
}

func (h *GoalTemplateHandler) DeleteTemplate(c *gin.Context) {
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

	c.JSON(http.StatusOK, gin.H{"message": "goal template deactivated successfully"})
}

func (h *GoalTemplateHandler) UseTemplate(c *gin.Context) {
	id, ok := response.ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	// An empty body takes every default from the template.
	var req goalDto.FromTemplateRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.ValidationError(c, err)
			return
		}
	}

	actor, err := response.GetPrincipal(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	created, err := h.service.Use(c.Request.Context(), actor, id, req)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": created})
}
