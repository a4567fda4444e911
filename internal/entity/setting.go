package entity

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SettingScope string

const (
	SettingScopeSystem       SettingScope = "system"
	SettingScopeOrganization SettingScope = "organization"
	SettingScopeUser         SettingScope = "user"
)

func (s SettingScope) Valid() bool {
	switch s {
	case SettingScopeSystem, SettingScopeOrganization, SettingScopeUser:
		return true
	}
	return false
}

type SettingType string

const (
	SettingTypeString  SettingType = "string"
	SettingTypeNumber  SettingType = "number"
	SettingTypeBoolean SettingType = "boolean"
	SettingTypeJSON    SettingType = "json"
	SettingTypeArray   SettingType = "array"
)

var ErrSettingValueType = errors.New("setting value does not match its type")

// Setting is a typed key/value pair. ScopeID is empty for system settings,
// the organization identifier for organization settings and the user id for
// user settings.
type Setting struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Scope       SettingScope   `gorm:"size:20;not null;uniqueIndex:idx_setting_scope_key,priority:1" json:"scope"`
	ScopeID     string         `gorm:"size:64;not null;default:'';uniqueIndex:idx_setting_scope_key,priority:2" json:"scope_id,omitempty"`
	Key         string         `gorm:"size:100;not null;uniqueIndex:idx_setting_scope_key,priority:3" json:"key"`
	Type        SettingType    `gorm:"size:10;not null" json:"type"`
	Value       JSONValue      `gorm:"not null" json:"value"`
	Category    string         `gorm:"size:50;index" json:"category,omitempty"`
	Description string         `gorm:"type:text" json:"description,omitempty"`
	UpdatedByID *uuid.UUID     `gorm:"type:uuid" json:"updated_by_id,omitempty"`
	CreatedAt   time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

func (s *Setting) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// ValidateSettingValue checks that raw is well-formed JSON of the kind the
// setting type requires.
func ValidateSettingValue(t SettingType, raw []byte) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || !json.Valid(trimmed) {
		return fmt.Errorf("%w: value is not valid JSON", ErrSettingValueType)
	}

	var v any
	if err := json.Unmarshal(trimmed, &v); err != nil {
		return fmt.Errorf("%w: %v", ErrSettingValueType, err)
	}

	ok := false
	switch t {
	case SettingTypeString:
		_, ok = v.(string)
	case SettingTypeNumber:
		_, ok = v.(float64)
	case SettingTypeBoolean:
		_, ok = v.(bool)
	case SettingTypeJSON:
		_, ok = v.(map[string]any)
	case SettingTypeArray:
		_, ok = v.([]any)
	default:
		return fmt.Errorf("%w: unknown type %q", ErrSettingValueType, t)
	}

	if !ok {
		return fmt.Errorf("%w: expected %s", ErrSettingValueType, t)
	}
	return nil
}
