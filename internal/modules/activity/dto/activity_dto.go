package dto

import (
	commonDto "anoa.com/volunteergoals/pkg/dto"
)

type ActivityLogQuery struct {
	commonDto.PaginationQuery
	UserID   string `form:"user_id" binding:"omitempty,uuid"`
	Action   string `form:"action"`
	Resource string `form:"resource"`
	From     string `form:"from"`
	To       string `form:"to"`
}
