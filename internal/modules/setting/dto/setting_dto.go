package dto

import (
	"encoding/json"

	commonDto "anoa.com/volunteergoals/pkg/dto"
	"github.com/google/uuid"
)

// CreateSettingRequest stores Value as raw JSON; it must match Type.
// ScopeID is the user id for user scope and the organization id (optional)
// for organization scope. System settings have no scope id.
type CreateSettingRequest struct {
	Key         string          `json:"key" binding:"required,min=1,max=100"`
	Scope       string          `json:"scope" binding:"required,oneof=system organization user"`
	ScopeID     string          `json:"scope_id" binding:"max=64"`
	Type        string          `json:"type" binding:"required,oneof=string number boolean json array"`
	Value       json.RawMessage `json:"value" binding:"required"`
	Category    string          `json:"category" binding:"max=50"`
	Description string          `json:"description" binding:"max=500"`
}

type UpdateSettingRequest struct {
	Type        *string         `json:"type" binding:"omitempty,oneof=string number boolean json array"`
	Value       json.RawMessage `json:"value"`
	Category    *string         `json:"category" binding:"omitempty,max=50"`
	Description *string         `json:"description" binding:"omitempty,max=500"`
}

type SettingQuery struct {
	commonDto.PaginationQuery
	Scope    string `form:"scope" binding:"omitempty,oneof=system organization user"`
	ScopeID  string `form:"scope_id"`
	Category string `form:"category"`
}

type ResolveQuery struct {
	UserID         string `form:"user_id" binding:"omitempty,uuid"`
	OrganizationID string `form:"organization_id"`
}

// ResolvedSetting is the effective value of a key for one user.
type ResolvedSetting struct {
	Key       string          `json:"key"`
	Scope     string          `json:"scope"`
	ScopeID   string          `json:"scope_id,omitempty"`
	Type      string          `json:"type"`
	Value     json.RawMessage `json:"value"`
	SettingID uuid.UUID       `json:"setting_id"`
}
