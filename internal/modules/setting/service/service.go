package setting

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"anoa.com/volunteergoals/internal/entity"
	activity "anoa.com/volunteergoals/internal/modules/activity/service"
	settingDto "anoa.com/volunteergoals/internal/modules/setting/dto"
	repo "anoa.com/volunteergoals/internal/modules/setting/repository"
	"anoa.com/volunteergoals/pkg/apperror"
	commonDto "anoa.com/volunteergoals/pkg/dto"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Service interface {
	List(ctx context.Context, actor entity.Principal, query settingDto.SettingQuery) (*commonDto.Paginated[entity.Setting], error)
	Get(ctx context.Context, actor entity.Principal, id uuid.UUID) (*entity.Setting, error)
	Create(ctx context.Context, actor entity.Principal, req settingDto.CreateSettingRequest) (*entity.Setting, error)
	Update(ctx context.Context, actor entity.Principal, id uuid.UUID, req settingDto.UpdateSettingRequest) (*entity.Setting, error)
	Delete(ctx context.Context, actor entity.Principal, id uuid.UUID) error
	// Resolve returns the effective value of key for a user: a user setting
	// wins over an organization setting, which wins over a system setting.
	Resolve(ctx context.Context, actor entity.Principal, key string, query settingDto.ResolveQuery) (*settingDto.ResolvedSetting, error)
}

type service struct {
	repo     repo.Repository
	activity activity.Service
}

func NewService(repo repo.Repository, activity activity.Service) Service {
	return &service{
		repo:     repo,
		activity: activity,
	}
}

func (s *service) List(ctx context.Context, actor entity.Principal, query settingDto.SettingQuery) (*commonDto.Paginated[entity.Setting], error) {
	query.Normalize()

	filter := repo.Filter{
		Scope:    entity.SettingScope(query.Scope),
		ScopeID:  strings.TrimSpace(query.ScopeID),
		Category: strings.TrimSpace(query.Category),
		Offset:   query.Offset(),
		Limit:    query.Limit,
	}

	if !actor.IsAdmin() {
		switch filter.Scope {
		case entity.SettingScopeSystem, entity.SettingScopeOrganization:
		case entity.SettingScopeUser, "":
			if filter.ScopeID != "" && filter.ScopeID != actor.UserID.String() {
				return nil, fmt.Errorf("you can only view your own settings: %w", apperror.ErrForbidden)
			}
			filter.Scope = entity.SettingScopeUser
			filter.ScopeID = actor.UserID.String()
		}
	}

	settings, total, err := s.repo.FindAll(ctx, filter)
	if err != nil {
		return nil, err
	}
	return commonDto.NewPaginated(settings, query.Page, query.Limit, total), nil
}

func (s *service) Get(ctx context.Context, actor entity.Principal, id uuid.UUID) (*entity.Setting, error) {
	setting, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	if setting.Scope == entity.SettingScopeUser && !actor.IsAdmin() && setting.ScopeID != actor.UserID.String() {
		return nil, fmt.Errorf("you can only view your own settings: %w", apperror.ErrForbidden)
	}
	return setting, nil
}

func (s *service) Create(ctx context.Context, actor entity.Principal, req settingDto.CreateSettingRequest) (*entity.Setting, error) {
	scope := entity.SettingScope(req.Scope)
	if !scope.Valid() {
		return nil, fmt.Errorf("invalid scope %q: %w", req.Scope, apperror.ErrInvalidInput)
	}
	scopeID, err := normalizeScopeID(actor, scope, req.ScopeID)
	if err != nil {
		return nil, err
	}
	if err := canWrite(actor, scope, scopeID); err != nil {
		return nil, err
	}

	settingType := entity.SettingType(req.Type)
	if err := entity.ValidateSettingValue(settingType, req.Value); err != nil {
		return nil, fmt.Errorf("%w: %v", apperror.ErrInvalidInput, err)
	}

	key := strings.TrimSpace(req.Key)
	if _, err := s.repo.FindByKey(ctx, scope, scopeID, key); err == nil {
		return nil, fmt.Errorf("setting %q already exists in %s scope: %w", key, scope, apperror.ErrConflict)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	updatedBy := actor.UserID
	setting := &entity.Setting{
		Scope:       scope,
		ScopeID:     scopeID,
		Key:         key,
		Type:        settingType,
		Value:       entity.JSONValue(compact(req.Value)),
		Category:    strings.TrimSpace(req.Category),
		Description: strings.TrimSpace(req.Description),
		UpdatedByID: &updatedBy,
	}
	if err := s.repo.Create(ctx, setting); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("setting %q already exists in %s scope: %w", key, scope, apperror.ErrConflict)
		}
		return nil, err
	}

	s.record(ctx, actor, setting, "create")
	return setting, nil
}

func (s *service) Update(ctx context.Context, actor entity.Principal, id uuid.UUID, req settingDto.UpdateSettingRequest) (*entity.Setting, error) {
	setting, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	if err := canWrite(actor, setting.Scope, setting.ScopeID); err != nil {
		return nil, err
	}

	settingType := setting.Type
	if req.Type != nil {
		settingType = entity.SettingType(*req.Type)
	}
	value := []byte(setting.Value)
	if len(req.Value) > 0 {
		value = req.Value
	}
	// A type change alone must still fit the stored value.
	if err := entity.ValidateSettingValue(settingType, value); err != nil {
		return nil, fmt.Errorf("%w: %v", apperror.ErrInvalidInput, err)
	}

	setting.Type = settingType
	setting.Value = entity.JSONValue(compact(value))
	if req.Category != nil {
		setting.Category = strings.TrimSpace(*req.Category)
	}
	if req.Description != nil {
		setting.Description = strings.TrimSpace(*req.Description)
	}
	updatedBy := actor.UserID
	setting.UpdatedByID = &updatedBy

	if err := s.repo.Update(ctx, setting); err != nil {
		return nil, err
	}

	s.record(ctx, actor, setting, "update")
	return setting, nil
}

func (s *service) Delete(ctx context.Context, actor entity.Principal, id uuid.UUID) error {
	setting, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return notFound(err)
	}
	if err := canWrite(actor, setting.Scope, setting.ScopeID); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return notFound(err)
	}

	s.record(ctx, actor, setting, "delete")
	return nil
}

func (s *service) Resolve(ctx context.Context, actor entity.Principal, key string, query settingDto.ResolveQuery) (*settingDto.ResolvedSetting, error) {
	userID := actor.UserID
	if query.UserID != "" {
		id, err := uuid.Parse(query.UserID)
		if err != nil {
			return nil, fmt.Errorf("invalid user_id: %w", apperror.ErrInvalidInput)
		}
		if !actor.CanAccess(id) {
			return nil, fmt.Errorf("you can only resolve your own settings: %w", apperror.ErrForbidden)
		}
		userID = id
	}

	candidates := []repo.Candidate{
		{Scope: entity.SettingScopeUser, ScopeID: userID.String()},
		{Scope: entity.SettingScopeOrganization, ScopeID: strings.TrimSpace(query.OrganizationID)},
		{Scope: entity.SettingScopeSystem, ScopeID: ""},
	}
	found, err := s.repo.FindCandidates(ctx, strings.TrimSpace(key), candidates)
	if err != nil {
		return nil, err
	}

	for _, c := range candidates {
		for i := range found {
			if found[i].Scope == c.Scope && found[i].ScopeID == c.ScopeID {
				return &settingDto.ResolvedSetting{
					Key:       found[i].Key,
					Scope:     string(found[i].Scope),
					ScopeID:   found[i].ScopeID,
					Type:      string(found[i].Type),
					Value:     json.RawMessage(found[i].Value),
					SettingID: found[i].ID,
				}, nil
			}
		}
	}
	return nil, fmt.Errorf("setting %q not found: %w", key, apperror.ErrNotFound)
}

func (s *service) record(ctx context.Context, actor entity.Principal, setting *entity.Setting, operation string) {
	s.activity.Record(ctx, entity.UserActor(actor.UserID), entity.ResourceSetting, setting.ID.String(), entity.SettingChangedDetails{
		Key:       setting.Key,
		Scope:     setting.Scope,
		Operation: operation,
	})
}

// normalizeScopeID defaults a missing user scope id to the caller and drops
// any scope id given for system settings.
func normalizeScopeID(actor entity.Principal, scope entity.SettingScope, scopeID string) (string, error) {
	scopeID = strings.TrimSpace(scopeID)
	switch scope {
	case entity.SettingScopeSystem:
		return "", nil
	case entity.SettingScopeUser:
		if scopeID == "" {
			return actor.UserID.String(), nil
		}
		id, err := uuid.Parse(scopeID)
		if err != nil {
			return "", fmt.Errorf("scope_id must be a user id for user settings: %w", apperror.ErrInvalidInput)
		}
		return id.String(), nil
	}
	return scopeID, nil
}

// canWrite allows admins everything and volunteers only their own user settings.
func canWrite(actor entity.Principal, scope entity.SettingScope, scopeID string) error {
	if actor.IsAdmin() {
		return nil
	}
	if scope == entity.SettingScopeUser && scopeID == actor.UserID.String() {
		return nil
	}
	return fmt.Errorf("only admins can change %s settings: %w", scope, apperror.ErrForbidden)
}

func compact(raw []byte) []byte {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return raw
	}
	return buf.Bytes()
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("setting not found: %w", apperror.ErrNotFound)
	}
	return err
}
