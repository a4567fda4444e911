package dto

import (
	analyticsDto "anoa.com/volunteergoals/internal/modules/analytics/dto"
	commonDto "anoa.com/volunteergoals/pkg/dto"
	"github.com/google/uuid"
)

type HistoryQuery struct {
	commonDto.PaginationQuery
	GoalID      string `form:"goal_id" binding:"omitempty,uuid"`
	VolunteerID string `form:"volunteer_id" binding:"omitempty,uuid"`
	Status      string `form:"status" binding:"omitempty,oneof=pending in_progress completed overdue"`
	From        string `form:"from"`
	To          string `form:"to"`
}

// CreateHistoryRequest backfills a snapshot. The week is the one containing
// WeekOf (today when empty); unset fields are copied from the goal as it is now.
type CreateHistoryRequest struct {
	GoalID   string  `json:"goal_id" binding:"required,uuid"`
	WeekOf   string  `json:"week_of"`
	Progress *int    `json:"progress"`
	Status   *string `json:"status" binding:"omitempty,oneof=pending in_progress completed overdue"`
	Notes    *string `json:"notes" binding:"omitempty,max=5000"`
}

type SummaryQuery struct {
	VolunteerID string `form:"volunteer_id" binding:"omitempty,uuid"`
	Weeks       int    `form:"weeks" binding:"omitempty,min=1,max=52"`
}

type WeeklySummary struct {
	VolunteerID uuid.UUID                  `json:"volunteer_id"`
	Weeks       int                        `json:"weeks"`
	Trends      []analyticsDto.WeeklyTrend `json:"trends"`
}
