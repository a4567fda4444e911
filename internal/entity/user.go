package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	RoleAdmin     = "admin"
	RoleVolunteer = "volunteer"
)

// User is a volunteer or an administrator. GoalsCount and CompletionRate are a
// cache of the goal rollup; they are refreshed through the user service's
// RecomputeRollup and never read as the source of truth.
type User struct {
	ID              uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Name            string     `gorm:"size:100;not null" json:"name"`
	Email           string     `gorm:"size:100;uniqueIndex;not null" json:"email"`
	Phone           *string    `gorm:"size:30;uniqueIndex" json:"phone,omitempty"`
	PasswordHash    string     `gorm:"size:255;not null" json:"-"`
	Role            string     `gorm:"size:20;not null;index" json:"role"`
	IsActive        bool       `gorm:"not null;default:true" json:"is_active"`
	GoalsCount      int        `gorm:"not null;default:0" json:"goals_count"`
	CompletionRate  int        `gorm:"not null;default:0" json:"completion_rate"`
	RollupUpdatedAt *time.Time `json:"rollup_updated_at,omitempty"`
	LastLoginAt     *time.Time `json:"last_login_at,omitempty"`
	CreatedAt       time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Principal is the authenticated caller of a request.
type Principal struct {
	UserID uuid.UUID
	Role   string
}

func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// CanAccess reports whether the principal may act on a resource owned by ownerID.
func (p Principal) CanAccess(ownerID uuid.UUID) bool {
	return p.IsAdmin() || p.UserID == ownerID
}
