package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProgressHistory is a weekly snapshot of a goal. Rows are never updated.
type ProgressHistory struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	GoalID      uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_progress_goal_week,priority:1" json:"goal_id"`
	VolunteerID uuid.UUID  `gorm:"type:uuid;not null;index" json:"volunteer_id"`
	Title       string     `gorm:"size:200;not null" json:"title"`
	Progress    int        `gorm:"not null" json:"progress"`
	Status      GoalStatus `gorm:"size:20;not null;index" json:"status"`
	Notes       string     `gorm:"type:text" json:"notes"`
	WeekStart   time.Time  `gorm:"not null;index;uniqueIndex:idx_progress_goal_week,priority:2" json:"week_start"`
	WeekEnd     time.Time  `gorm:"not null" json:"week_end"`
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

func (p *ProgressHistory) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// NewSnapshot captures the goal as it is right now for the given week.
func NewSnapshot(g *Goal, weekStart, weekEnd time.Time) *ProgressHistory {
	return &ProgressHistory{
		GoalID:      g.ID,
		VolunteerID: g.VolunteerID,
		Title:       g.Title,
		Progress:    g.Progress,
		Status:      g.Status,
		Notes:       strings.Join(g.Notes, "\n"),
		WeekStart:   weekStart,
		WeekEnd:     weekEnd,
	}
}

// WeekBounds returns the Sunday 00:00:00.000 that starts the week containing
// now and the Saturday 23:59:59.999 that ends it, in now's location.
func WeekBounds(now time.Time) (time.Time, time.Time) {
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	start := day.AddDate(0, 0, -int(day.Weekday()))
	end := start.AddDate(0, 0, 7).Add(-time.Millisecond)
	return start, end
}
