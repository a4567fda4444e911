package handler

import (
	"net/http"

	historyDto "anoa.com/volunteergoals/internal/modules/progresshistory/dto"
	progresshistory "anoa.com/volunteergoals/internal/modules/progresshistory/service"
	"anoa.com/volunteergoals/pkg/response"
	"github.com/gin-gonic/gin"
)

type ProgressHistoryHandler struct {
	service progresshistory.Service
}

func NewProgressHistoryHandler(service progresshistory.Service) *ProgressHistoryHandler {
	return &ProgressHistoryHandler{service: service}
}

func (h *ProgressHistoryHandler) GetHistories(c *gin.Context) {
	var query historyDto.HistoryQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.ValidationError(c, err)
		return
	}

	actor, err := response.GetPrincipal(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	histories, err := h.service.List(c.Request.Context(), actor, query)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, histories)
}

func (h *ProgressHistoryHandler) GetSummary(c *gin.Context) {
	var query historyDto.SummaryQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.ValidationError(c, err)
		return
	}

	actor, err := response.GetPrincipal(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	summary, err := h.service.WeeklySummary(c.Request.Context(), actor, query)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": summary})
}

func (h *ProgressHistoryHandler) GetHistory(c *gin.Context) {
	id, ok := response.ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	actor, err := response.GetPrincipal(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	history, err := h.service.Get(c.Request.Context(), actor, id)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": history})
}

func (h *ProgressHistoryHandler) CreateHistory(c *gin.Context) {
	var req historyDto.CreateHistoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err)
		return
	}

	actor, err := response.GetPrincipal(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	history, err := h.service.Create(c.Request.Context(), actor, req)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": history})
}

func (h *ProgressHistoryHandler) DeleteHistory(c *gin.Context) {
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

	c.JSON(http.StatusOK, gin.H{"message": "progress history deleted successfully"})
}
