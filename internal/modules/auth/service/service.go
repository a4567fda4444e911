package auth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"anoa.com/volunteergoals/internal/entity"
	activity "anoa.com/volunteergoals/internal/modules/activity/service"
	authDto "anoa.com/volunteergoals/internal/modules/auth/dto"
	userDto "anoa.com/volunteergoals/internal/modules/user/dto"
	userRepo "anoa.com/volunteergoals/internal/modules/user/repository"
	user "anoa.com/volunteergoals/internal/modules/user/service"
	"anoa.com/volunteergoals/pkg/apperror"
	"anoa.com/volunteergoals/pkg/ratelimiter"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const loginAction = "login"

type StatsReader interface {
	GetStats(ctx context.Context, principal entity.Principal, userID uuid.UUID) (*userDto.UserStats, error)
}

type Options struct {
	Secret        string
	TokenTTL      time.Duration
	LoginAttempts int
	LoginWindow   time.Duration
}

type Service interface {
	Register(ctx context.Context, req authDto.RegisterRequest) (*authDto.AuthResponse, error)
	Login(ctx context.Context, req authDto.LoginRequest) (*authDto.AuthResponse, error)
	Me(ctx context.Context, actor entity.Principal) (*authDto.MeResponse, error)
	ChangePassword(ctx context.Context, actor entity.Principal, req authDto.ChangePasswordRequest) error
}

type service struct {
	repo     userRepo.UserRepository
	stats    StatsReader
	limiter  *ratelimiter.Limiter
	activity activity.Service
	opts     Options
	now      func() time.Time
}

func NewService(repo userRepo.UserRepository, stats StatsReader, limiter *ratelimiter.Limiter, activity activity.Service, opts Options) Service {
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = 24 * time.Hour
	}
	return &service{
		repo:     repo,
		stats:    stats,
		limiter:  limiter,
		activity: activity,
		opts:     opts,
		now:      time.Now,
	}
}

func (s *service) Register(ctx context.Context, req authDto.RegisterRequest) (*authDto.AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if _, err := s.repo.FindByEmail(ctx, email); err == nil {
		return nil, fmt.Errorf("email already registered: %w", apperror.ErrConflict)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if req.Phone != nil && *req.Phone != "" {
		if _, err := s.repo.FindByPhone(ctx, *req.Phone); err == nil {
			return nil, fmt.Errorf("phone already registered: %w", apperror.ErrConflict)
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}

	hashed, err := user.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	created := &entity.User{
		Name:         strings.TrimSpace(req.Name),
		Email:        email,
		Phone:        req.Phone,
		PasswordHash: hashed,
		Role:         entity.RoleVolunteer,
		IsActive:     true,
	}
	if err := s.repo.Create(ctx, created); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("email or phone already registered: %w", apperror.ErrConflict)
		}
		return nil, err
	}

	s.activity.Record(ctx, entity.UserActor(created.ID), entity.ResourceUser, created.ID.String(), entity.UserCreatedDetails{
		Email: created.Email,
		Role:  created.Role,
	})
	return s.buildAuthResponse(created)
}

func (s *service) Login(ctx context.Context, req authDto.LoginRequest) (*authDto.AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	if err := s.limiter.Allow(ctx, email, loginAction, s.opts.LoginAttempts, s.opts.LoginWindow); err != nil {
		var limited *ratelimiter.RateLimitError
		if errors.As(err, &limited) {
			return nil, fmt.Errorf("%w: %w", apperror.ErrRateLimitExceeded, limited)
		}
		// Redis being down must not lock everyone out.
		log.Printf("Login rate limit check failed: %v", err)
	}

	found, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("invalid credentials: %w", apperror.ErrUnauthorized)
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(found.PasswordHash), []byte(req.Password)); err != nil {
		return nil, fmt.Errorf("invalid credentials: %w", apperror.ErrUnauthorized)
	}
	if !found.IsActive {
		return nil, fmt.Errorf("account is inactive: %w", apperror.ErrForbidden)
	}

	if err := s.limiter.Reset(ctx, email, loginAction); err != nil {
		log.Printf("Failed to reset login attempts for %s: %v", email, err)
	}
	now := s.now()
	if err := s.repo.UpdateLastLogin(ctx, found.ID, now); err != nil {
		log.Printf("Failed to update last login for %s: %v", found.ID, err)
	} else {
		found.LastLoginAt = &now
	}

	s.activity.Record(ctx, entity.UserActor(found.ID), entity.ResourceUser, found.ID.String(), entity.LoginDetails{Email: found.Email})
	return s.buildAuthResponse(found)
}

func (s *service) Me(ctx context.Context, actor entity.Principal) (*authDto.MeResponse, error) {
	found, err := s.repo.FindByID(ctx, actor.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("user not found: %w", apperror.ErrNotFound)
		}
		return nil, err
	}

	stats, err := s.stats.GetStats(ctx, actor, actor.UserID)
	if err != nil {
		return nil, err
	}
	return &authDto.MeResponse{User: found, Stats: stats}, nil
}

func (s *service) ChangePassword(ctx context.Context, actor entity.Principal, req authDto.ChangePasswordRequest) error {
	found, err := s.repo.FindByID(ctx, actor.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("user not found: %w", apperror.ErrNotFound)
		}
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(found.PasswordHash), []byte(req.CurrentPassword)); err != nil {
		return fmt.Errorf("current password is incorrect: %w", apperror.ErrUnauthorized)
	}

	hashed, err := user.HashPassword(req.NewPassword)
	if err != nil {
		return err
	}
	found.PasswordHash = hashed
	if err := s.repo.Update(ctx, found); err != nil {
		return err
	}

	s.activity.Record(ctx, entity.UserActor(found.ID), entity.ResourceUser, found.ID.String(), entity.UserUpdatedDetails{Fields: []string{"password"}})
	return nil
}

func (s *service) buildAuthResponse(u *entity.User) (*authDto.AuthResponse, error) {
	token, expiresAt, err := GenerateToken(s.opts.Secret, u, s.opts.TokenTTL, s.now())
	if err != nil {
		return nil, err
	}

	return &authDto.AuthResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int64(expiresAt.Sub(s.now()).Seconds()),
		User:        u,
	}, nil
}
