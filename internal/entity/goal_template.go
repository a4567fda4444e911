package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type GoalTemplate struct {
	ID                  uuid.UUID                   `gorm:"type:uuid;primaryKey" json:"id"`
	Name                string                      `gorm:"size:150;not null;index" json:"name"`
	Title               string                      `gorm:"size:200;not null" json:"title"`
	Description         string                      `gorm:"type:text" json:"description"`
	Category            string                      `gorm:"size:50;index" json:"category"`
	Priority            GoalPriority                `gorm:"size:10;not null" json:"priority"`
	DefaultDurationDays int                         `gorm:"not null" json:"default_duration_days"`
	Tags                datatypes.JSONSlice[string] `json:"tags"`
	IsActive            bool                        `gorm:"not null;default:true;index" json:"is_active"`
	UsageCount          int                         `gorm:"not null;default:0" json:"usage_count"`
	CreatedByID         uuid.UUID                   `gorm:"type:uuid;not null" json:"created_by_id"`
	CreatedAt           time.Time                   `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time                   `gorm:"autoUpdateTime" json:"updated_at"`
}

func (t *GoalTemplate) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
