package dto

import (
	"time"

	"github.com/google/uuid"
)

type TrendsQuery struct {
	Weeks       int    `form:"weeks" binding:"omitempty,min=1,max=52"`
	VolunteerID string `form:"volunteer_id" binding:"omitempty,uuid"`
}

type ActivityByDayQuery struct {
	Days        int    `form:"days" binding:"omitempty,min=1,max=365"`
	VolunteerID string `form:"volunteer_id" binding:"omitempty,uuid"`
}

type ProductiveDayQuery struct {
	VolunteerID string `form:"volunteer_id" binding:"omitempty,uuid"`
}

// WeeklyTrend summarises every snapshot that shares a week start.
type WeeklyTrend struct {
	WeekStart       string `json:"week_start"`
	WeekEnd         string `json:"week_end"`
	TotalGoals      int    `json:"total_goals"`
	CompletedGoals  int    `json:"completed_goals"`
	AverageProgress int    `json:"average_progress"`
	CompletionRate  int    `json:"completion_rate"`
}

// GroupStat is one row of a breakdown by category, volunteer or weekday.
type GroupStat struct {
	Key             string `json:"key"`
	Count           int    `json:"count"`
	Completed       int    `json:"completed"`
	AverageProgress int    `json:"average_progress"`
	CompletionRate  int    `json:"completion_rate"`
}

type DayScore struct {
	Day        int    `json:"day"`
	DayName    string `json:"day_name"`
	Score      int    `json:"score"`
	Activities int    `json:"activities"`
}

type DayActivity struct {
	Day     int    `json:"day"`
	DayName string `json:"day_name"`
	Count   int    `json:"count"`
}

type VolunteerScore struct {
	VolunteerID      uuid.UUID `json:"volunteer_id"`
	Name             string    `json:"name"`
	TotalGoals       int       `json:"total_goals"`
	CompletedGoals   int       `json:"completed_goals"`
	CompletionRate   int       `json:"completion_rate"`
	AverageProgress  int       `json:"average_progress"`
	PerformanceScore int       `json:"performance_score"`
	Position         int       `json:"position"` // 1-based
}

type Overview struct {
	TotalGoals           int              `json:"total_goals"`
	CompletedGoals       int              `json:"completed_goals"`
	CompletionRate       int              `json:"completion_rate"`
	AverageProgress      int              `json:"average_progress"`
	StatusDistribution   map[string]int   `json:"status_distribution"`
	PriorityDistribution map[string]int   `json:"priority_distribution"`
	Categories           []GroupStat      `json:"categories"`
	TopVolunteers        []VolunteerScore `json:"top_volunteers"`
	GeneratedAt          time.Time        `json:"generated_at"`
}

type VolunteerPerformance struct {
	VolunteerID      uuid.UUID     `json:"volunteer_id"`
	TotalGoals       int           `json:"total_goals"`
	CompletedGoals   int           `json:"completed_goals"`
	CompletionRate   int           `json:"completion_rate"`
	AverageProgress  int           `json:"average_progress"`
	PerformanceScore int           `json:"performance_score"`
	Streak           int           `json:"streak"`
	Trend            string        `json:"trend"`
	WeeklyTrends     []WeeklyTrend `json:"weekly_trends"`
	Categories       []GroupStat   `json:"categories"`
}

type ProductiveDay struct {
	VolunteerID    uuid.UUID  `json:"volunteer_id"`
	BestDay        *DayScore  `json:"best_day"`
	Days           []DayScore `json:"days"`
	HistoricalBest *DayScore  `json:"historical_best_day"`
	MatchesPattern bool       `json:"matches_pattern"`
	Recommendation string     `json:"recommendation"`
}
