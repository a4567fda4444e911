package entity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ActorKind string

const (
	ActorKindUser   ActorKind = "user"
	ActorKindSystem ActorKind = "system"
)

// Actor identifies who caused an activity: a real user or the system itself
// (scheduled jobs). A system actor never carries a user id.
type Actor struct {
	Kind   ActorKind
	UserID uuid.UUID
}

func UserActor(id uuid.UUID) Actor {
	return Actor{Kind: ActorKindUser, UserID: id}
}

func SystemActor() Actor {
	return Actor{Kind: ActorKindSystem}
}

func (a Actor) IsSystem() bool {
	return a.Kind == ActorKindSystem
}

func (a Actor) String() string {
	if a.IsSystem() {
		return string(ActorKindSystem)
	}
	return a.UserID.String()
}

const (
	ResourceGoal            = "goal"
	ResourceUser            = "user"
	ResourceSetting         = "setting"
	ResourceGoalTemplate    = "goal_template"
	ResourceProgressHistory = "progress_history"
)

// ActivityLog is an append-only audit record.
type ActivityLog struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	ActorKind  ActorKind      `gorm:"size:10;not null" json:"actor_kind"`
	UserID     *uuid.UUID     `gorm:"type:uuid;index" json:"user_id,omitempty"`
	Action     Action         `gorm:"size:50;not null;index" json:"action"`
	Resource   string         `gorm:"size:30;not null" json:"resource"`
	ResourceID string         `gorm:"size:64;index" json:"resource_id,omitempty"`
	Details    datatypes.JSON `json:"details"`
	CreatedAt  time.Time      `gorm:"autoCreateTime;index" json:"created_at"`
}

func (l *ActivityLog) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

// NewActivityLog builds a log row with the typed payload serialized into Details.
func NewActivityLog(actor Actor, resource, resourceID string, details ActivityDetails) (*ActivityLog, error) {
	raw, err := json.Marshal(details)
	if err != nil {
		return nil, err
	}

	entry := &ActivityLog{
		ActorKind:  actor.Kind,
		Action:     details.Action(),
		Resource:   resource,
		ResourceID: resourceID,
		Details:    datatypes.JSON(raw),
	}
	if !actor.IsSystem() {
		id := actor.UserID
		entry.UserID = &id
	}
	return entry, nil
}

func (l *ActivityLog) Actor() Actor {
	if l.ActorKind == ActorKindSystem || l.UserID == nil {
		return SystemActor()
	}
	return UserActor(*l.UserID)
}

// TypedDetails decodes Details into the payload type that belongs to Action.
func (l *ActivityLog) TypedDetails() (ActivityDetails, error) {
	return DecodeActivityDetails(l.Action, l.Details)
}
