package dto

import (
	"github.com/google/uuid"

	commonDto "anoa.com/volunteergoals/pkg/dto"
)

type CreateGoalRequest struct {
	VolunteerID *string  `json:"volunteer_id" binding:"omitempty,uuid"`
	Title       string   `json:"title" binding:"required,min=3,max=200"`
	Description string   `json:"description" binding:"max=2000"`
	Category    string   `json:"category" binding:"max=50"`
	Priority    string   `json:"priority" binding:"omitempty,oneof=high medium low"`
	StartDate   string   `json:"start_date" binding:"required"`
	DueDate     string   `json:"due_date" binding:"required"`
	Tags        []string `json:"tags" binding:"omitempty,max=20,dive,max=50"`
}

type UpdateGoalRequest struct {
	Title       *string   `json:"title" binding:"omitempty,min=3,max=200"`
	Description *string   `json:"description" binding:"omitempty,max=2000"`
	Category    *string   `json:"category" binding:"omitempty,max=50"`
	Priority    *string   `json:"priority" binding:"omitempty,oneof=high medium low"`
	Status      *string   `json:"status" binding:"omitempty,oneof=pending in_progress completed overdue"`
	StartDate   *string   `json:"start_date"`
	DueDate     *string   `json:"due_date"`
	Tags        *[]string `json:"tags" binding:"omitempty,max=20,dive,max=50"`
}

// UpdateProgressRequest leaves the 0..100 bound to the service so that an
// out-of-range value is reported as a validation error of the goal itself.
type UpdateProgressRequest struct {
	Progress *int   `json:"progress" binding:"required"`
	Note     string `json:"note" binding:"max=1000"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=pending in_progress completed overdue"`
}

type BulkUpdateRequest struct {
	GoalIDs  []string `json:"goal_ids" binding:"required,min=1,max=500,dive,uuid"`
	Status   *string  `json:"status" binding:"omitempty,oneof=pending in_progress completed overdue"`
	Priority *string  `json:"priority" binding:"omitempty,oneof=high medium low"`
}

type BulkUpdateResult struct {
	Updated             int         `json:"updated"`
	GoalIDs             []uuid.UUID `json:"goal_ids"`
	VolunteersRefreshed int         `json:"volunteers_refreshed"`
}

type GoalQuery struct {
	commonDto.PaginationQuery
	Status      string `form:"status"`
	Priority    string `form:"priority" binding:"omitempty,oneof=high medium low"`
	Category    string `form:"category"`
	VolunteerID string `form:"volunteer_id" binding:"omitempty,uuid"`
	Search      string `form:"search"`
	DueFrom     string `form:"due_from"`
	DueTo       string `form:"due_to"`
	SortBy      string `form:"sort_by" binding:"omitempty,oneof=created_at due_date start_date progress priority status title"`
	Order       string `form:"order" binding:"omitempty,oneof=asc desc"`
}

type SearchQuery struct {
	Q     string `form:"q" binding:"required,min=1,max=200"`
	Limit int    `form:"limit" binding:"omitempty,min=1,max=100"`
}

// FromTemplateRequest overrides template defaults when a goal is created
// from a template.
type FromTemplateRequest struct {
	VolunteerID *string  `json:"volunteer_id" binding:"omitempty,uuid"`
	Title       *string  `json:"title" binding:"omitempty,min=3,max=200"`
	Description *string  `json:"description" binding:"omitempty,max=2000"`
	Priority    *string  `json:"priority" binding:"omitempty,oneof=high medium low"`
	StartDate   string   `json:"start_date"`
	DueDate     string   `json:"due_date"`
	Tags        []string `json:"tags" binding:"omitempty,max=20,dive,max=50"`
}
