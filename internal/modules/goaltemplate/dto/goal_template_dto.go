package dto

import (
	commonDto "anoa.com/volunteergoals/pkg/dto"
)

type CreateTemplateRequest struct {
	Name                string   `json:"name" binding:"required,min=3,max=150"`
	Title               string   `json:"title" binding:"required,min=3,max=200"`
	Description         string   `json:"description" binding:"max=2000"`
	Category            string   `json:"category" binding:"max=50"`
	Priority            string   `json:"priority" binding:"omitempty,oneof=high medium low"`
	DefaultDurationDays int      `json:"default_duration_days" binding:"omitempty,min=1,max=365"`
	Tags                []string `json:"tags" binding:"omitempty,max=20,dive,max=50"`
}

type UpdateTemplateRequest struct {
	Name                *string   `json:"name" binding:"omitempty,min=3,max=150"`
	Title               *string   `json:"title" binding:"omitempty,min=3,max=200"`
	Description         *string   `json:"description" binding:"omitempty,max=2000"`
	Category            *string   `json:"category" binding:"omitempty,max=50"`
	Priority            *string   `json:"priority" binding:"omitempty,oneof=high medium low"`
	DefaultDurationDays *int      `json:"default_duration_days" binding:"omitempty,min=1,max=365"`
	Tags                *[]string `json:"tags" binding:"omitempty,max=20,dive,max=50"`
	IsActive            *bool     `json:"is_active"`
}

type TemplateQuery struct {
	commonDto.PaginationQuery
	Category string `form:"category"`
	IsActive *bool  `form:"is_active"`
	Search   string `form:"search"`
}
