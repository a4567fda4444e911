package entity

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type GoalStatus string

const (
	GoalStatusPending    GoalStatus = "pending"
	GoalStatusInProgress GoalStatus = "in_progress"
	GoalStatusCompleted  GoalStatus = "completed"
	GoalStatusOverdue    GoalStatus = "overdue"
)

func (s GoalStatus) Valid() bool {
	switch s {
	case GoalStatusPending, GoalStatusInProgress, GoalStatusCompleted, GoalStatusOverdue:
		return true
	}
	return false
}

type GoalPriority string

const (
	GoalPriorityHigh   GoalPriority = "high"
	GoalPriorityMedium GoalPriority = "medium"
	GoalPriorityLow    GoalPriority = "low"
)

func (p GoalPriority) Valid() bool {
	switch p {
	case GoalPriorityHigh, GoalPriorityMedium, GoalPriorityLow:
		return true
	}
	return false
}

const (
	MinProgress = 0
	MaxProgress = 100
)

var (
	ErrProgressOutOfRange = errors.New("progress must be between 0 and 100")
	ErrInvalidDateRange   = errors.New("start date must not be after due date")
)

type Goal struct {
	ID          uuid.UUID                   `gorm:"type:uuid;primaryKey" json:"id"`
	VolunteerID uuid.UUID                   `gorm:"type:uuid;index;not null" json:"volunteer_id"`
	CreatedByID uuid.UUID                   `gorm:"type:uuid;not null" json:"created_by_id"`
	Title       string                      `gorm:"size:200;not null" json:"title"`
	Description string                      `gorm:"type:text" json:"description"`
	Category    string                      `gorm:"size:50;index" json:"category"`
	Priority    GoalPriority                `gorm:"size:10;not null" json:"priority"`
	Status      GoalStatus                  `gorm:"size:20;not null;index" json:"status"`
	Progress    int                         `gorm:"not null" json:"progress"`
	StartDate   time.Time                   `gorm:"not null" json:"start_date"`
	DueDate     time.Time                   `gorm:"not null;index" json:"due_date"`
	Tags        datatypes.JSONSlice[string] `json:"tags"`
	Notes       datatypes.JSONSlice[string] `json:"notes"`
	TemplateID  *uuid.UUID                  `gorm:"type:uuid" json:"template_id,omitempty"`
	CompletedAt *time.Time                  `json:"completed_at,omitempty"`
	CreatedAt   time.Time                   `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time                   `gorm:"autoUpdateTime" json:"updated_at"`
}

func (g *Goal) BeforeCreate(tx *gorm.DB) error {
	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}
	return nil
}

func ValidateProgress(progress int) error {
	if progress < MinProgress || progress > MaxProgress {
		return fmt.Errorf("%w: got %d", ErrProgressOutOfRange, progress)
	}
	return nil
}

func ValidateDateRange(start, due time.Time) error {
	if start.After(due) {
		return ErrInvalidDateRange
	}
	return nil
}

// ApplyProgress moves the goal to the given progress. 100 completes the goal
// and any positive value starts a pending goal. The note, if any, is appended
// with an ISO timestamp prefix.
func (g *Goal) ApplyProgress(progress int, note string, at time.Time) error {
	if err := ValidateProgress(progress); err != nil {
		return err
	}

	g.Progress = progress
	switch {
	case progress == MaxProgress:
		g.markCompleted(at)
	case progress > 0 && g.Status == GoalStatusPending:
		g.Status = GoalStatusInProgress
	}

	if note != "" {
		g.AppendNote(note, at)
	}
	return nil
}

// ApplyStatus sets the status directly. Completing forces progress to 100 and
// resetting to pending forces it to 0.
func (g *Goal) ApplyStatus(status GoalStatus, at time.Time) {
	switch status {
	case GoalStatusCompleted:
		g.Progress = MaxProgress
		g.markCompleted(at)
		return
	case GoalStatusPending:
		g.Progress = MinProgress
	}
	g.Status = status
	g.CompletedAt = nil
}

func (g *Goal) markCompleted(at time.Time) {
	g.Status = GoalStatusCompleted
	if g.CompletedAt == nil {
		t := at
		g.CompletedAt = &t
	}
}

func (g *Goal) AppendNote(note string, at time.Time) {
	g.Notes = append(g.Notes, fmt.Sprintf("[%s] %s", at.UTC().Format("2006-01-02T15:04:05.000Z07:00"), note))
}

// IsOverdueAt reports whether the goal is past due and not finished.
func (g *Goal) IsOverdueAt(now time.Time) bool {
	return g.Status != GoalStatusCompleted && g.DueDate.Before(now)
}
