package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"anoa.com/volunteergoals/internal/entity"
	activityDto "anoa.com/volunteergoals/internal/modules/activity/dto"
	"anoa.com/volunteergoals/internal/modules/user/dto"
	"anoa.com/volunteergoals/internal/modules/user/repository"
	"anoa.com/volunteergoals/pkg/apperror"
	commonDto "anoa.com/volunteergoals/pkg/dto"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeUserRepo struct {
	users     map[uuid.UUID]*entity.User
	rollupErr map[uuid.UUID]error
}

func newFakeUserRepo(users ...*entity.User) *fakeUserRepo {
	r := &fakeUserRepo{users: map[uuid.UUID]*entity.User{}, rollupErr: map[uuid.UUID]error{}}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

func (r *fakeUserRepo) Create(_ context.Context, u *entity.User) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	r.users[u.ID] = u
	return nil
}

func (r *fakeUserRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.User, error) {
	if u, ok := r.users[id]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) FindByEmail(_ context.Context, email string) (*entity.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) FindByPhone(_ context.Context, phone string) (*entity.User, error) {
	for _, u := range r.users {
		if u.Phone != nil && *u.Phone == phone {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) FindAll(context.Context, repository.UserFilter) ([]entity.User, int64, error) {
	var out []entity.User
	for _, u := range r.users {
		out = append(out, *u)
	}
	return out, int64(len(out)), nil
}

func (r *fakeUserRepo) FindAllIDs(context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	for id := range r.users {
		ids = append(ids, id)
	}
	return ids, nil
}

func (r *fakeUserRepo) FindByIDs(context.Context, []uuid.UUID) ([]entity.User, error) {
	return nil, nil
}

func (r *fakeUserRepo) Update(_ context.Context, u *entity.User) error {
	r.users[u.ID] = u
	return nil
}

func (r *fakeUserRepo) UpdateRollup(_ context.Context, id uuid.UUID, goalsCount, rate int, at time.Time) error {
	if err := r.rollupErr[id]; err != nil {
		return err
	}
	u := r.users[id]
	u.GoalsCount = goalsCount
	u.CompletionRate = rate
	u.RollupUpdatedAt = &at
	return nil
}

func (r *fakeUserRepo) UpdateLastLogin(context.Context, uuid.UUID, time.Time) error { return nil }

func (r *fakeUserRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := r.users[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(r.users, id)
	return nil
}

func (r *fakeUserRepo) CountByRole(context.Context) (map[string]int64, error) {
	return map[string]int64{}, nil
}

type goalCounts map[uuid.UUID][2]int64

func (g goalCounts) CountByVolunteer(_ context.Context, id uuid.UUID) (int64, int64, error) {
	c := g[id]
	return c[0], c[1], nil
}

type fakeActivity struct {
	details []entity.ActivityDetails
}

func (f *fakeActivity) Record(_ context.Context, _ entity.Actor, _, _ string, d entity.ActivityDetails) {
	f.details = append(f.details, d)
}

func (f *fakeActivity) List(context.Context, entity.Principal, activityDto.ActivityLogQuery) (*commonDto.Paginated[entity.ActivityLog], error) {
	return nil, nil
}

func (f *fakeActivity) Recent(context.Context, int) ([]entity.ActivityLog, error) { return nil, nil }

func volunteer(email string) *entity.User {
	return &entity.User{ID: uuid.New(), Name: "V", Email: email, Role: entity.RoleVolunteer, IsActive: true}
}

func TestRecomputeRollup_MatchesGoalCounts(t *testing.T) {
	v := volunteer("v@volunteer.org")
	empty := volunteer("e@volunteer.org")
	empty.GoalsCount, empty.CompletionRate = 9, 90
	repo := newFakeUserRepo(v, empty)
	counts := goalCounts{v.ID: {3, 2}}
	svc := NewUserService(repo, counts, &fakeActivity{})

	require.NoError(t, svc.RecomputeRollup(context.Background(), v.ID))
	assert.Equal(t, 3, v.GoalsCount)
	assert.Equal(t, 67, v.CompletionRate)
	assert.NotNil(t, v.RollupUpdatedAt)

	require.NoError(t, svc.RecomputeRollup(context.Background(), empty.ID))
	assert.Equal(t, 0, empty.GoalsCount)
	assert.Equal(t, 0, empty.CompletionRate)
}

func TestRecomputeAll_ContinuesPastFailures(t *testing.T) {
	a, b := volunteer("a@volunteer.org"), volunteer("b@volunteer.org")
	repo := newFakeUserRepo(a, b)
	repo.rollupErr[a.ID] = errors.New("write failed")
	svc := NewUserService(repo, goalCounts{b.ID: {2, 1}}, &fakeActivity{})

	refreshed, err := svc.RecomputeAll(context.Background())
	assert.Error(t, err)
	assert.Equal(t, 1, refreshed)
	assert.Equal(t, 50, b.CompletionRate)
}

func TestCreateUser_Conflicts(t *testing.T) {
	phone := "+620000001"
	existing := volunteer("taken@volunteer.org")
	existing.Phone = &phone
	act := &fakeActivity{}
	svc := NewUserService(newFakeUserRepo(existing), goalCounts{}, act)
	admin := entity.Principal{UserID: uuid.New(), Role: entity.RoleAdmin}

	_, err := svc.CreateUser(context.Background(), admin, dto.CreateUserRequest{Name: "X", Email: "TAKEN@volunteer.org", Password: "password1", Role: entity.RoleVolunteer})
	assert.ErrorIs(t, err, apperror.ErrConflict)

	_, err = svc.CreateUser(context.Background(), admin, dto.CreateUserRequest{Name: "X", Email: "new@volunteer.org", Password: "password1", Phone: &phone, Role: entity.RoleVolunteer})
	assert.ErrorIs(t, err, apperror.ErrConflict)

	inactive := false
	user, err := svc.CreateUser(context.Background(), admin, dto.CreateUserRequest{Name: "New", Email: "new@volunteer.org", Password: "password1", Role: entity.RoleAdmin, IsActive: &inactive})
	require.NoError(t, err)
	assert.False(t, user.IsActive)
	assert.NotEqual(t, "password1", user.PasswordHash)
	require.Len(t, act.details, 1)
	assert.Equal(t, entity.ActionCreateUser, act.details[0].Action())
}

func TestGetStats_AccessAndDerivedValues(t *testing.T) {
	v := volunteer("v@volunteer.org")
	v.GoalsCount, v.CompletionRate = 1, 100
	svc := NewUserService(newFakeUserRepo(v), goalCounts{v.ID: {4, 1}}, &fakeActivity{})

	_, err := svc.GetStats(context.Background(), entity.Principal{UserID: uuid.New(), Role: entity.RoleVolunteer}, v.ID)
	assert.ErrorIs(t, err, apperror.ErrForbidden)

	stats, err := svc.GetStats(context.Background(), entity.Principal{UserID: v.ID, Role: entity.RoleVolunteer}, v.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, stats.GoalsCount)
	assert.Equal(t, 25, stats.CompletionRate)
	assert.Equal(t, 100, stats.CachedCompletionRate)
}

func TestUpdateAndDeleteUser(t *testing.T) {
	admin := &entity.User{ID: uuid.New(), Email: "admin@volunteer.org", Role: entity.RoleAdmin, IsActive: true}
	v := volunteer("v@volunteer.org")
	act := &fakeActivity{}
	svc := NewUserService(newFakeUserRepo(admin, v), goalCounts{}, act)
	principal := entity.Principal{UserID: admin.ID, Role: entity.RoleAdmin}

	role := entity.RoleVolunteer
	_, err := svc.UpdateUser(context.Background(), principal, admin.ID, dto.UpdateUserRequest{Role: &role})
	assert.ErrorIs(t, err, apperror.ErrForbidden)

	name := "Renamed"
	updated, err := svc.UpdateUser(context.Background(), principal, v.ID, dto.UpdateUserRequest{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Name)

	assert.ErrorIs(t, svc.DeleteUser(context.Background(), principal, admin.ID), apperror.ErrBadRequest)
	require.NoError(t, svc.DeleteUser(context.Background(), principal, v.ID))
	assert.ErrorIs(t, svc.DeleteUser(context.Background(), principal, v.ID), apperror.ErrNotFound)

	require.Len(t, act.details, 2)
	assert.Equal(t, entity.ActionDeleteUser, act.details[1].Action())
}
