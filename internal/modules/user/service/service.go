package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"anoa.com/volunteergoals/internal/entity"
	activity "anoa.com/volunteergoals/internal/modules/activity/service"
	"anoa.com/volunteergoals/internal/modules/user/dto"
	"anoa.com/volunteergoals/internal/modules/user/repository"
	"anoa.com/volunteergoals/pkg/apperror"
	commonDto "anoa.com/volunteergoals/pkg/dto"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// GoalCounter reports how many goals a volunteer owns and how many of them
// are completed.
type GoalCounter interface {
	CountByVolunteer(ctx context.Context, volunteerID uuid.UUID) (total int64, completed int64, err error)
}

// RollupRecomputer is the single invalidation point of the cached
// GoalsCount/CompletionRate fields on User.
type RollupRecomputer interface {
	RecomputeRollup(ctx context.Context, userID uuid.UUID) error
	RecomputeAll(ctx context.Context) (int, error)
}

type UserService interface {
	RollupRecomputer
	CreateUser(ctx context.Context, actor entity.Principal, req dto.CreateUserRequest) (*entity.User, error)
	ListUsers(ctx context.Context, query dto.UserQuery) (*commonDto.Paginated[entity.User], error)
	GetUser(ctx context.Context, id uuid.UUID) (*entity.User, error)
	UpdateUser(ctx context.Context, actor entity.Principal, id uuid.UUID, req dto.UpdateUserRequest) (*entity.User, error)
	DeleteUser(ctx context.Context, actor entity.Principal, id uuid.UUID) error
	GetStats(ctx context.Context, principal entity.Principal, userID uuid.UUID) (*dto.UserStats, error)
}

type userService struct {
	repo     repository.UserRepository
	goals    GoalCounter
	activity activity.Service
	now      func() time.Time
}

func NewUserService(repo repository.UserRepository, goals GoalCounter, activity activity.Service) UserService {
	return &userService{
		repo:     repo,
		goals:    goals,
		activity: activity,
		now:      time.Now,
	}
}

func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashed), nil
}

func (s *userService) CreateUser(ctx context.Context, actor entity.Principal, req dto.CreateUserRequest) (*entity.User, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if err := s.ensureUnique(ctx, email, req.Phone, uuid.Nil); err != nil {
		return nil, err
	}

	hashed, err := HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := &entity.User{
		Name:         strings.TrimSpace(req.Name),
		Email:        email,
		Phone:        req.Phone,
		PasswordHash: hashed,
		Role:         req.Role,
		IsActive:     true,
	}
	if req.IsActive != nil {
		user.IsActive = *req.IsActive
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, translateWriteError(err)
	}

	s.activity.Record(ctx, entity.UserActor(actor.UserID), entity.ResourceUser, user.ID.String(), entity.UserCreatedDetails{
		Email: user.Email,
		Role:  user.Role,
	})
	return user, nil
}

func (s *userService) ListUsers(ctx context.Context, query dto.UserQuery) (*commonDto.Paginated[entity.User], error) {
	query.Normalize()

	users, total, err := s.repo.FindAll(ctx, repository.UserFilter{
		Role:     query.Role,
		Search:   strings.TrimSpace(query.Search),
		IsActive: query.IsActive,
		Offset:   query.Offset(),
		Limit:    query.Limit,
	})
	if err != nil {
		return nil, err
	}
	return commonDto.NewPaginated(users, query.Page, query.Limit, total), nil
}

func (s *userService) GetUser(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	return user, nil
}

func (s *userService) UpdateUser(ctx context.Context, actor entity.Principal, id uuid.UUID, req dto.UpdateUserRequest) (*entity.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}

	var fields []string
	if req.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*req.Email))
		if email != user.Email {
			if err := s.ensureUnique(ctx, email, nil, user.ID); err != nil {
				return nil, err
			}
			user.Email = email
			fields = append(fields, "email")
		}
	}
	if req.Phone != nil {
		if user.Phone == nil || *user.Phone != *req.Phone {
			if err := s.ensureUnique(ctx, "", req.Phone, user.ID); err != nil {
				return nil, err
			}
			user.Phone = req.Phone
			fields = append(fields, "phone")
		}
	}
	if req.Name != nil {
		user.Name = strings.TrimSpace(*req.Name)
		fields = append(fields, "name")
	}
	if req.Role != nil && *req.Role != user.Role {
		if user.ID == actor.UserID {
			return nil, fmt.Errorf("you cannot change your own role: %w", apperror.ErrForbidden)
		}
		user.Role = *req.Role
		fields = append(fields, "role")
	}
	if req.IsActive != nil && *req.IsActive != user.IsActive {
		user.IsActive = *req.IsActive
		fields = append(fields, "is_active")
	}
	if req.Password != nil {
		hashed, err := HashPassword(*req.Password)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = hashed
		fields = append(fields, "password")
	}

	if len(fields) == 0 {
		return user, nil
	}

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, translateWriteError(err)
	}

	s.activity.Record(ctx, entity.UserActor(actor.UserID), entity.ResourceUser, user.ID.String(), entity.UserUpdatedDetails{Fields: fields})
	return user, nil
}

func (s *userService) DeleteUser(ctx context.Context, actor entity.Principal, id uuid.UUID) error {
	if id == actor.UserID {
		return fmt.Errorf("you cannot delete your own account: %w", apperror.ErrBadRequest)
	}

	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return notFound(err)
	}

	s.activity.Record(ctx, entity.UserActor(actor.UserID), entity.ResourceUser, user.ID.String(), entity.UserDeletedDetails{Email: user.Email})

	if err := s.repo.Delete(ctx, id); err != nil {
		return notFound(err)
	}
	return nil
}

func (s *userService) GetStats(ctx context.Context, principal entity.Principal, userID uuid.UUID) (*dto.UserStats, error) {
	if !principal.CanAccess(userID) {
		return nil, fmt.Errorf("you can only view your own stats: %w", apperror.ErrForbidden)
	}

	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, notFound(err)
	}

	total, completed, err := s.goals.CountByVolunteer(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count goals: %w", err)
	}

	return &dto.UserStats{
		UserID:               user.ID,
		GoalsCount:           int(total),
		CompletedGoals:       int(completed),
		CompletionRate:       entity.CompletionRate(int(completed), int(total)),
		CachedGoalsCount:     user.GoalsCount,
		CachedCompletionRate: user.CompletionRate,
		RollupUpdatedAt:      user.RollupUpdatedAt,
	}, nil
}

func (s *userService) RecomputeRollup(ctx context.Context, userID uuid.UUID) error {
	total, completed, err := s.goals.CountByVolunteer(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to count goals for %s: %w", userID, err)
	}

	rate := entity.CompletionRate(int(completed), int(total))
	if err := s.repo.UpdateRollup(ctx, userID, int(total), rate, s.now()); err != nil {
		return fmt.Errorf("failed to store rollup for %s: %w", userID, err)
	}
	return nil
}

// RecomputeAll refreshes every user's rollup and returns how many were
// refreshed. One failing user does not stop the others.
func (s *userService) RecomputeAll(ctx context.Context) (int, error) {
	ids, err := s.repo.FindAllIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list users: %w", err)
	}

	var errs []error
	refreshed := 0
	for _, id := range ids {
		if err := s.RecomputeRollup(ctx, id); err != nil {
			log.Printf("rollup recompute failed: %v", err)
			errs = append(errs, err)
			continue
		}
		refreshed++
	}
	return refreshed, errors.Join(errs...)
}

func (s *userService) ensureUnique(ctx context.Context, email string, phone *string, self uuid.UUID) error {
	if email != "" {
		existing, err := s.repo.FindByEmail(ctx, email)
		if err == nil && existing.ID != self {
			return fmt.Errorf("email already registered: %w", apperror.ErrConflict)
		}
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
	}
	if phone != nil && *phone != "" {
		existing, err := s.repo.FindByPhone(ctx, *phone)
		if err == nil && existing.ID != self {
			return fmt.Errorf("phone already registered: %w", apperror.ErrConflict)
		}
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
	}
	return nil
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("user not found: %w", apperror.ErrNotFound)
	}
	return err
}

func translateWriteError(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("email or phone already registered: %w", apperror.ErrConflict)
	}
	return err
}
