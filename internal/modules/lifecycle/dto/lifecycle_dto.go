package dto

import (
	"time"

	"github.com/google/uuid"
)

// ItemFailure records one goal the batch could not fully process.
type ItemFailure struct {
	GoalID uuid.UUID `json:"goal_id,omitempty"`
	Step   string    `json:"step"`
	Error  string    `json:"error"`
}

type WeeklyResult struct {
	WeekStart        time.Time     `json:"week_start"`
	WeekEnd          time.Time     `json:"week_end"`
	GoalsProcessed   int           `json:"goals_processed"`
	GoalsCompleted   int           `json:"goals_completed"`
	GoalsOverdue     int           `json:"goals_overdue"`
	SnapshotsCreated int           `json:"snapshots_created"`
	SnapshotsSkipped int           `json:"snapshots_skipped"`
	UsersRecomputed  int           `json:"users_recomputed"`
	Failures         []ItemFailure `json:"failures"`
	CompletedAt      time.Time     `json:"completed_at"`
}

type SweepResult struct {
	GoalsMarked         int           `json:"goals_marked"`
	VolunteersRefreshed int           `json:"volunteers_refreshed"`
	Failures            []ItemFailure `json:"failures"`
	CompletedAt         time.Time     `json:"completed_at"`
}
