package activity

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"anoa.com/volunteergoals/internal/entity"
	activityDto "anoa.com/volunteergoals/internal/modules/activity/dto"
	repo "anoa.com/volunteergoals/internal/modules/activity/repository"
	"anoa.com/volunteergoals/pkg/apperror"
	commonDto "anoa.com/volunteergoals/pkg/dto"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Channel is the redis pub/sub channel every recorded activity is published on.
const Channel = "activity_logs"

type Service interface {
	// Record writes an audit entry. Failures are logged and never returned:
	// the mutation being audited has already happened.
	Record(ctx context.Context, actor entity.Actor, resource, resourceID string, details entity.ActivityDetails)
	List(ctx context.Context, principal entity.Principal, query activityDto.ActivityLogQuery) (*commonDto.Paginated[entity.ActivityLog], error)
	Recent(ctx context.Context, limit int) ([]entity.ActivityLog, error)
}

type service struct {
	repo        repo.Repository
	redisClient *redis.Client
}

func NewService(repo repo.Repository, redisClient *redis.Client) Service {
	return &service{
		repo:        repo,
		redisClient: redisClient,
	}
}

func (s *service) Record(ctx context.Context, actor entity.Actor, resource, resourceID string, details entity.ActivityDetails) {
	entry, err := entity.NewActivityLog(actor, resource, resourceID, details)
	if err != nil {
		log.Printf("failed to build activity log %s for %s: %v", details.Action(), actor, err)
		return
	}

	if err := s.repo.Create(ctx, entry); err != nil {
		log.Printf("failed to write activity log %s for %s: %v", entry.Action, actor, err)
		return
	}

	if s.redisClient != nil {
		payload, err := json.Marshal(entry)
		if err == nil {
			if err := s.redisClient.Publish(ctx, Channel, payload).Err(); err != nil {
				log.Printf("failed to publish activity log %s: %v", entry.ID, err)
			}
		}
	}
}

func (s *service) List(ctx context.Context, principal entity.Principal, query activityDto.ActivityLogQuery) (*commonDto.Paginated[entity.ActivityLog], error) {
	query.Normalize()

	filter := repo.Filter{
		Action:   entity.Action(query.Action),
		Resource: query.Resource,
		Offset:   query.Offset(),
		Limit:    query.Limit,
	}

	if query.UserID != "" {
		userID, err := uuid.Parse(query.UserID)
		if err != nil {
			return nil, fmt.Errorf("invalid user_id: %w", apperror.ErrInvalidInput)
		}
		filter.UserID = &userID
	}
	if !principal.IsAdmin() {
		if filter.UserID != nil && *filter.UserID != principal.UserID {
			return nil, fmt.Errorf("you can only view your own activity: %w", apperror.ErrForbidden)
		}
		self := principal.UserID
		filter.UserID = &self
	}

	var err error
	if filter.From, err = commonDto.ParseOptionalDate(query.From); err != nil {
		return nil, err
	}
	if filter.To, err = commonDto.ParseOptionalDate(query.To); err != nil {
		return nil, err
	}

	logs, total, err := s.repo.FindAll(ctx, filter)
	if err != nil {
		return nil, err
	}
	return commonDto.NewPaginated(logs, query.Page, query.Limit, total), nil
}

func (s *service) Recent(ctx context.Context, limit int) ([]entity.ActivityLog, error) {
	if limit <= 0 {
		limit = 10
	}
	return s.repo.FindRecent(ctx, limit)
}
