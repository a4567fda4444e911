package handler

import (
	"net/http"

	authDto "anoa.com/volunteergoals/internal/modules/auth/dto"
	auth "anoa.com/volunteergoals/internal/modules/auth/service"
	"anoa.com/volunteergoals/pkg/response"
	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	service auth.Service
}

func NewAuthHandler(service auth.Service) *AuthHandler {
	return &AuthHandler{service: service}
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req authDto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err)
		return
	}

	res, err := h.service.Register(c.Request.Context(), req)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusCreated, res)
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req authDto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err)
		return
	}

	res, err := h.service.Login(c.Request.Context(), req)
	if err != nil {
		if response.RateLimited(c, err) {
			return
		}
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

func (h *AuthHandler) Me(c *gin.Context) {
	actor, err := response.GetPrincipal(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	res, err := h.service.Me(c.Request.Context(), actor)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": res})
}

func (h *AuthHandler) ChangePassword(c *gin.Context) {
	var req authDto.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err)
		return
	}

	actor, err := response.GetPrincipal(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	if err := h.service.ChangePassword(c.Request.Context(), actor, req); err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "password updated successfully"})
}
