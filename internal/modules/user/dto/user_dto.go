package dto

import (
	"time"

	commonDto "anoa.com/volunteergoals/pkg/dto"
	"github.com/google/uuid"
)

type CreateUserRequest struct {
	Name     string  `json:"name" binding:"required,min=2,max=100"`
	Email    string  `json:"email" binding:"required,email"`
	Password string  `json:"password" binding:"required,min=8"`
	Phone    *string `json:"phone" binding:"omitempty,min=6,max=30"`
	Role     string  `json:"role" binding:"required,oneof=admin volunteer"`
	IsActive *bool   `json:"is_active"`
}

type UpdateUserRequest struct {
	Name     *string `json:"name" binding:"omitempty,min=2,max=100"`
	Email    *string `json:"email" binding:"omitempty,email"`
	Password *string `json:"password" binding:"omitempty,min=8"`
	Phone    *string `json:"phone" binding:"omitempty,min=6,max=30"`
	Role     *string `json:"role" binding:"omitempty,oneof=admin volunteer"`
	IsActive *bool   `json:"is_active"`
}

type UserQuery struct {
	commonDto.PaginationQuery
	Role     string `form:"role" binding:"omitempty,oneof=admin volunteer"`
	Search   string `form:"search"`
	IsActive *bool  `form:"is_active"`
}

// UserStats is the rollup derived from the user's goals at request time,
// next to the cached copy stored on the user.
type UserStats struct {
	UserID               uuid.UUID  `json:"user_id"`
	GoalsCount           int        `json:"goals_count"`
	CompletedGoals       int        `json:"completed_goals"`
	CompletionRate       int        `json:"completion_rate"`
	CachedGoalsCount     int        `json:"cached_goals_count"`
	CachedCompletionRate int        `json:"cached_completion_rate"`
	RollupUpdatedAt      *time.Time `json:"rollup_updated_at,omitempty"`
}
