package dto

import (
	"time"

	"anoa.com/volunteergoals/internal/entity"
)

type DashboardResponse struct {
	TotalUsers        int64                `json:"total_users"`
	UsersByRole       map[string]int64     `json:"users_by_role"`
	TotalGoals        int64                `json:"total_goals"`
	GoalsByStatus     map[string]int64     `json:"goals_by_status"`
	WeekStart         time.Time            `json:"week_start"`
	SnapshotsThisWeek int64                `json:"snapshots_this_week"`
	RecentActivity    []entity.ActivityLog `json:"recent_activity"`
	GeneratedAt       time.Time            `json:"generated_at"`
}

type RecomputeResponse struct {
	UsersRecomputed int       `json:"users_recomputed"`
	Errors          []string  `json:"errors,omitempty"`
	CompletedAt     time.Time `json:"completed_at"`
}
