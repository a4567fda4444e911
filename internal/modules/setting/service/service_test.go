package setting

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"anoa.com/volunteergoals/internal/entity"
	activityDto "anoa.com/volunteergoals/internal/modules/activity/dto"
	settingDto "anoa.com/volunteergoals/internal/modules/setting/dto"
	repo "anoa.com/volunteergoals/internal/modules/setting/repository"
	"anoa.com/volunteergoals/pkg/apperror"
	"anoa.com/volunteergoals/pkg/database"
	commonDto "anoa.com/volunteergoals/pkg/dto"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeActivity struct {
	entries []entity.ActivityDetails
}

func (f *fakeActivity) Record(_ context.Context, _ entity.Actor, _, _ string, d entity.ActivityDetails) {
	f.entries = append(f.entries, d)
}

func (f *fakeActivity) List(context.Context, entity.Principal, activityDto.ActivityLogQuery) (*commonDto.Paginated[entity.ActivityLog], error) {
	return nil, nil
}

func (f *fakeActivity) Recent(context.Context, int) ([]entity.ActivityLog, error) { return nil, nil }

var (
	admin     = entity.Principal{UserID: uuid.New(), Role: entity.RoleAdmin}
	volunteer = entity.Principal{UserID: uuid.New(), Role: entity.RoleVolunteer}
)

func setupService(t *testing.T) (Service, *fakeActivity) {
	t.Helper()
	db, err := database.Connect(fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()), false)
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&entity.Setting{}))
	activity := &fakeActivity{}
	return NewService(repo.NewRepository(db), activity), activity
}

func createSetting(t *testing.T, svc Service, actor entity.Principal, scope, scopeID, key, typ, value string) *entity.Setting {
	t.Helper()
	setting, err := svc.Create(context.Background(), actor, settingDto.CreateSettingRequest{
		Key:     key,
		Scope:   scope,
		ScopeID: scopeID,
		Type:    typ,
		Value:   json.RawMessage(value),
	})
	require.NoError(t, err)
	return setting
}

func TestCreate_ValidatesValueAgainstType(t *testing.T) {
	svc, _ := setupService(t)

	tests := []struct {
		typ, value string
		valid      bool
	}{
		{"string", `"weekly"`, true},
		{"string", `7`, false},
		{"number", `7`, true},
		{"number", `"7"`, false},
		{"boolean", `true`, true},
		{"boolean", `"yes"`, false},
		{"json", `{"a": 1}`, true},
		{"json", `[1]`, false},
		{"array", `[1, "two"]`, true},
		{"array", `{}`, false},
		{"string", `not json`, false},
	}
	for i, tt := range tests {
		_, err := svc.Create(context.Background(), admin, settingDto.CreateSettingRequest{
			Key:   fmt.Sprintf("key_%d", i),
			Scope: "system",
			Type:  tt.typ,
			Value: json.RawMessage(tt.value),
		})
		if tt.valid {
			assert.NoError(t, err, "%s %s", tt.typ, tt.value)
		} else {
			assert.ErrorIs(t, err, apperror.ErrInvalidInput, "%s %s", tt.typ, tt.value)
		}
	}
}

func TestCreate_DuplicateKeyConflicts(t *testing.T) {
	svc, activity := setupService(t)
	created := createSetting(t, svc, admin, "system", "ignored", "reminder_day", "string", `"monday"`)
	assert.Empty(t, created.ScopeID)
	assert.Equal(t, `"monday"`, string(created.Value))

	_, err := svc.Create(context.Background(), admin, settingDto.CreateSettingRequest{
		Key: "reminder_day", Scope: "system", Type: "string", Value: json.RawMessage(`"friday"`),
	})
	assert.ErrorIs(t, err, apperror.ErrConflict)

	createSetting(t, svc, admin, "organization", "", "reminder_day", "string", `"tuesday"`)
	require.Len(t, activity.entries, 2)
	details, ok := activity.entries[0].(entity.SettingChangedDetails)
	require.True(t, ok)
	assert.Equal(t, "create", details.Operation)
}

func TestWriteAccess(t *testing.T) {
	svc, _ := setupService(t)

	_, err := svc.Create(context.Background(), volunteer, settingDto.CreateSettingRequest{
		Key: "theme", Scope: "system", Type: "string", Value: json.RawMessage(`"dark"`),
	})
	assert.ErrorIs(t, err, apperror.ErrForbidden)

	_, err = svc.Create(context.Background(), volunteer, settingDto.CreateSettingRequest{
		Key: "theme", Scope: "user", ScopeID: uuid.NewString(), Type: "string", Value: json.RawMessage(`"dark"`),
	})
	assert.ErrorIs(t, err, apperror.ErrForbidden)

	own := createSetting(t, svc, volunteer, "user", "", "theme", "string", `"dark"`)
	assert.Equal(t, volunteer.UserID.String(), own.ScopeID)

	system := createSetting(t, svc, admin, "system", "", "theme", "string", `"light"`)
	_, err = svc.Update(context.Background(), volunteer, system.ID, settingDto.UpdateSettingRequest{Value: json.RawMessage(`"blue"`)})
	assert.ErrorIs(t, err, apperror.ErrForbidden)
	assert.ErrorIs(t, svc.Delete(context.Background(), volunteer, system.ID), apperror.ErrForbidden)

	other := createSetting(t, svc, admin, "user", uuid.NewString(), "theme", "string", `"red"`)
	_, err = svc.Get(context.Background(), volunteer, other.ID)
	assert.ErrorIs(t, err, apperror.ErrForbidden)
	_, err = svc.Get(context.Background(), volunteer, system.ID)
	assert.NoError(t, err)
}

func TestUpdate(t *testing.T) {
	svc, activity := setupService(t)
	setting := createSetting(t, svc, admin, "system", "", "max_goals", "number", `10`)

	updated, err := svc.Update(context.Background(), admin, setting.ID, settingDto.UpdateSettingRequest{Value: json.RawMessage(` 25 `)})
	require.NoError(t, err)
	assert.Equal(t, `25`, string(updated.Value))

	asString := "string"
	_, err = svc.Update(context.Background(), admin, setting.ID, settingDto.UpdateSettingRequest{Type: &asString})
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)

	updated, err = svc.Update(context.Background(), admin, setting.ID, settingDto.UpdateSettingRequest{Type: &asString, Value: json.RawMessage(`"25"`)})
	require.NoError(t, err)
	assert.Equal(t, entity.SettingTypeString, updated.Type)

	_, err = svc.Update(context.Background(), admin, uuid.New(), settingDto.UpdateSettingRequest{Value: json.RawMessage(`1`)})
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	last := activity.entries[len(activity.entries)-1].(entity.SettingChangedDetails)
	assert.Equal(t, "update", last.Operation)
}

func TestResolve_Precedence(t *testing.T) {
	svc, _ := setupService(t)

	_, err := svc.Resolve(context.Background(), volunteer, "digest", settingDto.ResolveQuery{})
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	createSetting(t, svc, admin, "system", "", "digest", "string", `"monthly"`)
	resolved, err := svc.Resolve(context.Background(), volunteer, "digest", settingDto.ResolveQuery{})
	require.NoError(t, err)
	assert.Equal(t, "system", resolved.Scope)
	assert.JSONEq(t, `"monthly"`, string(resolved.Value))

	createSetting(t, svc, admin, "organization", "", "digest", "string", `"weekly"`)
	resolved, err = svc.Resolve(context.Background(), volunteer, "digest", settingDto.ResolveQuery{})
	require.NoError(t, err)
	assert.Equal(t, "organization", resolved.Scope)

	createSetting(t, svc, volunteer, "user", "", "digest", "string", `"daily"`)
	resolved, err = svc.Resolve(context.Background(), volunteer, "digest", settingDto.ResolveQuery{})
	require.NoError(t, err)
	assert.Equal(t, "user", resolved.Scope)
	assert.JSONEq(t, `"daily"`, string(resolved.Value))

	resolved, err = svc.Resolve(context.Background(), admin, "digest", settingDto.ResolveQuery{})
	require.NoError(t, err)
	assert.Equal(t, "organization", resolved.Scope)

	resolved, err = svc.Resolve(context.Background(), admin, "digest", settingDto.ResolveQuery{UserID: volunteer.UserID.String()})
	require.NoError(t, err)
	assert.Equal(t, "user", resolved.Scope)

	_, err = svc.Resolve(context.Background(), volunteer, "digest", settingDto.ResolveQuery{UserID: admin.UserID.String()})
	assert.ErrorIs(t, err, apperror.ErrForbidden)
}

func TestList_VolunteerSeesOwnUserSettings(t *testing.T) {
	svc, _ := setupService(t)
	createSetting(t, svc, admin, "system", "", "a", "boolean", `true`)
	createSetting(t, svc, volunteer, "user", "", "b", "boolean", `false`)
	createSetting(t, svc, admin, "user", uuid.NewString(), "c", "boolean", `false`)

	page, err := svc.List(context.Background(), volunteer, settingDto.SettingQuery{})
	require.NoError(t, err)
	require.Len(t, page.Data, 1)
	assert.Equal(t, "b", page.Data[0].Key)

	page, err = svc.List(context.Background(), volunteer, settingDto.SettingQuery{Scope: "system"})
	require.NoError(t, err)
	require.Len(t, page.Data, 1)
	assert.Equal(t, "a", page.Data[0].Key)

	page, err = svc.List(context.Background(), admin, settingDto.SettingQuery{})
	require.NoError(t, err)
	assert.Len(t, page.Data, 3)
}

func TestNumberSettingIsReadable(t *testing.T) {
	svc, _ := setupService(t)
	created := createSetting(t, svc, admin, "system", "", "reminder_days", "number", `3`)

	found, err := svc.Get(context.Background(), admin, created.ID)
	require.NoError(t, err)
	assert.JSONEq(t, `3`, string(found.Value))

	resolved, err := svc.Resolve(context.Background(), volunteer, "reminder_days", settingDto.ResolveQuery{})
	require.NoError(t, err)
	assert.JSONEq(t, `3`, string(resolved.Value))

	list, err := svc.List(context.Background(), admin, settingDto.SettingQuery{})
	require.NoError(t, err)
	require.Len(t, list.Data, 1)
	assert.JSONEq(t, `3`, string(list.Data[0].Value))
}
