package analytics

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"anoa.com/volunteergoals/internal/entity"
	analyticsDto "anoa.com/volunteergoals/internal/modules/analytics/dto"
	"anoa.com/volunteergoals/pkg/apperror"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	defaultTrendWeeks    = 8
	defaultActivityDays  = 30
	historicalWindowDays = 30
	streakLookbackWeeks  = 52
	topCategories        = 10
	topVolunteers        = 5
)

type GoalReader interface {
	FindEvery(ctx context.Context) ([]entity.Goal, error)
	FindByVolunteer(ctx context.Context, volunteerID uuid.UUID) ([]entity.Goal, error)
}

type HistoryReader interface {
	FindSince(ctx context.Context, volunteerID *uuid.UUID, since time.Time) ([]entity.ProgressHistory, error)
}

type ActivityReader interface {
	FindSince(ctx context.Context, userID *uuid.UUID, since time.Time) ([]entity.ActivityLog, error)
}

type UserReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]entity.User, error)
}

// Service answers reporting questions by folding raw rows in memory. Nothing
// here is cached or incremental.
type Service interface {
	Overview(ctx context.Context, actor entity.Principal) (*analyticsDto.Overview, error)
	VolunteerPerformance(ctx context.Context, actor entity.Principal, volunteerID uuid.UUID) (*analyticsDto.VolunteerPerformance, error)
	Trends(ctx context.Context, actor entity.Principal, query analyticsDto.TrendsQuery) ([]analyticsDto.WeeklyTrend, error)
	ProductiveDay(ctx context.Context, actor entity.Principal, query analyticsDto.ProductiveDayQuery) (*analyticsDto.ProductiveDay, error)
	ActivityByDay(ctx context.Context, actor entity.Principal, query analyticsDto.ActivityByDayQuery) ([]analyticsDto.DayActivity, error)
}

type service struct {
	goals     GoalReader
	histories HistoryReader
	activity  ActivityReader
	users     UserReader
	now       func() time.Time
}

func NewService(goals GoalReader, histories HistoryReader, activity ActivityReader, users UserReader) Service {
	return &service{
		goals:     goals,
		histories: histories,
		activity:  activity,
		users:     users,
		now:       time.Now,
	}
}

func (s *service) Overview(ctx context.Context, actor entity.Principal) (*analyticsDto.Overview, error) {
	if !actor.IsAdmin() {
		return nil, fmt.Errorf("only admins can view the overview: %w", apperror.ErrForbidden)
	}

	goals, err := s.goals.FindEvery(ctx)
	if err != nil {
		return nil, err
	}

	total, completed, rate, average := GoalTotals(goals)
	overview := &analyticsDto.Overview{
		TotalGoals:      total,
		CompletedGoals:  completed,
		CompletionRate:  rate,
		AverageProgress: average,
		StatusDistribution: map[string]int{
			string(entity.GoalStatusPending):    0,
			string(entity.GoalStatusInProgress): 0,
			string(entity.GoalStatusCompleted):  0,
			string(entity.GoalStatusOverdue):    0,
		},
		PriorityDistribution: map[string]int{
			string(entity.GoalPriorityHigh):   0,
			string(entity.GoalPriorityMedium): 0,
			string(entity.GoalPriorityLow):    0,
		},
		Categories:  CategoryBreakdown(goals, topCategories),
		GeneratedAt: s.now().UTC(),
	}
	for _, g := range goals {
		overview.StatusDistribution[string(g.Status)]++
		overview.PriorityDistribution[string(g.Priority)]++
	}

	overview.TopVolunteers, err = s.topVolunteers(ctx, goals)
	if err != nil {
		return nil, err
	}
	return overview, nil
}

// topVolunteers ranks volunteers by performance score, then completed goals.
func (s *service) topVolunteers(ctx context.Context, goals []entity.Goal) ([]analyticsDto.VolunteerScore, error) {
	byVolunteer := map[uuid.UUID][]entity.Goal{}
	for _, g := range goals {
		byVolunteer[g.VolunteerID] = append(byVolunteer[g.VolunteerID], g)
	}

	scores := make([]analyticsDto.VolunteerScore, 0, len(byVolunteer))
	for id, owned := range byVolunteer {
		total, completed, rate, average := GoalTotals(owned)
		scores = append(scores, analyticsDto.VolunteerScore{
			VolunteerID:      id,
			TotalGoals:       total,
			CompletedGoals:   completed,
			CompletionRate:   rate,
			AverageProgress:  average,
			PerformanceScore: PerformanceScore(rate, average),
		})
	}
	sort.Slice(scores, func(i, j int) bool {
		if scores[i].PerformanceScore != scores[j].PerformanceScore {
			return scores[i].PerformanceScore > scores[j].PerformanceScore
		}
		if scores[i].CompletedGoals != scores[j].CompletedGoals {
			return scores[i].CompletedGoals > scores[j].CompletedGoals
		}
		return scores[i].VolunteerID.String() < scores[j].VolunteerID.String()
	})
	if len(scores) > topVolunteers {
		scores = scores[:topVolunteers]
	}
	if len(scores) == 0 {
		return scores, nil
	}

	ids := make([]uuid.UUID, len(scores))
	for i := range scores {
		ids[i] = scores[i].VolunteerID
	}
	users, err := s.users.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	names := make(map[uuid.UUID]string, len(users))
	for _, u := range users {
		names[u.ID] = u.Name
	}
	for i := range scores {
		scores[i].Name = names[scores[i].VolunteerID]
		scores[i].Position = i + 1
	}
	return scores, nil
}

func (s *service) VolunteerPerformance(ctx context.Context, actor entity.Principal, volunteerID uuid.UUID) (*analyticsDto.VolunteerPerformance, error) {
	if !actor.CanAccess(volunteerID) {
		return nil, fmt.Errorf("you can only view your own performance: %w", apperror.ErrForbidden)
	}
	if _, err := s.users.FindByID(ctx, volunteerID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("volunteer not found: %w", apperror.ErrNotFound)
		}
		return nil, err
	}

	goals, err := s.goals.FindByVolunteer(ctx, volunteerID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	weekStart, _ := entity.WeekBounds(now)
	histories, err := s.histories.FindSince(ctx, &volunteerID, weekStart.AddDate(0, 0, -7*streakLookbackWeeks))
	if err != nil {
		return nil, err
	}

	total, completed, rate, average := GoalTotals(goals)
	trends := WeeklyTrends(histories)
	if len(trends) > defaultTrendWeeks {
		trends = trends[len(trends)-defaultTrendWeeks:]
	}

	return &analyticsDto.VolunteerPerformance{
		VolunteerID:      volunteerID,
		TotalGoals:       total,
		CompletedGoals:   completed,
		CompletionRate:   rate,
		AverageProgress:  average,
		PerformanceScore: PerformanceScore(rate, average),
		Streak:           Streak(histories, now),
		Trend:            ImprovementTrend(trends),
		WeeklyTrends:     trends,
		Categories:       CategoryBreakdown(goals, 0),
	}, nil
}

func (s *service) Trends(ctx context.Context, actor entity.Principal, query analyticsDto.TrendsQuery) ([]analyticsDto.WeeklyTrend, error) {
	volunteerID, err := scopeVolunteer(actor, query.VolunteerID)
	if err != nil {
		return nil, err
	}

	weeks := query.Weeks
	if weeks <= 0 {
		weeks = defaultTrendWeeks
	}
	weekStart, _ := entity.WeekBounds(s.now().UTC())
	histories, err := s.histories.FindSince(ctx, volunteerID, weekStart.AddDate(0, 0, -7*(weeks-1)))
	if err != nil {
		return nil, err
	}
	return WeeklyTrends(histories), nil
}

func (s *service) ProductiveDay(ctx context.Context, actor entity.Principal, query analyticsDto.ProductiveDayQuery) (*analyticsDto.ProductiveDay, error) {
	volunteerID, err := scopeVolunteer(actor, query.VolunteerID)
	if err != nil {
		return nil, err
	}
	if volunteerID == nil {
		self := actor.UserID
		volunteerID = &self
	}

	now := s.now().UTC()
	weekStart, _ := entity.WeekBounds(now)
	current, err := s.activity.FindSince(ctx, volunteerID, weekStart)
	if err != nil {
		return nil, err
	}
	historical, err := s.activity.FindSince(ctx, volunteerID, now.AddDate(0, 0, -historicalWindowDays))
	if err != nil {
		return nil, err
	}

	days := ScoreDays(current)
	result := &analyticsDto.ProductiveDay{
		VolunteerID:    *volunteerID,
		BestDay:        BestDay(days),
		Days:           days,
		HistoricalBest: BestDay(ScoreDays(historical)),
	}
	result.MatchesPattern = result.BestDay != nil && result.HistoricalBest != nil && result.BestDay.Day == result.HistoricalBest.Day
	result.Recommendation = recommend(result)
	return result, nil
}

func recommend(r *analyticsDto.ProductiveDay) string {
	switch {
	case r.BestDay == nil && r.HistoricalBest == nil:
		return "No goal activity recorded yet. Log progress on a goal to find your most productive day."
	case r.BestDay == nil:
		return fmt.Sprintf("No goal activity this week yet. %s has been your strongest day over the last %d days.", r.HistoricalBest.DayName, historicalWindowDays)
	case r.MatchesPattern || r.HistoricalBest == nil:
		return fmt.Sprintf("%s is your most productive day. Schedule demanding goals on it.", r.BestDay.DayName)
	default:
		return fmt.Sprintf("%s led this week, but %s has been your strongest day over the last %d days.", r.BestDay.DayName, r.HistoricalBest.DayName, historicalWindowDays)
	}
}

func (s *service) ActivityByDay(ctx context.Context, actor entity.Principal, query analyticsDto.ActivityByDayQuery) ([]analyticsDto.DayActivity, error) {
	volunteerID, err := scopeVolunteer(actor, query.VolunteerID)
	if err != nil {
		return nil, err
	}

	days := query.Days
	if days <= 0 {
		days = defaultActivityDays
	}
	entries, err := s.activity.FindSince(ctx, volunteerID, s.now().UTC().AddDate(0, 0, -days))
	if err != nil {
		return nil, err
	}
	return ActivityByDay(entries), nil
}

// scopeVolunteer resolves an optional volunteer filter. Volunteers always see
// only themselves; admins see everyone unless they name a volunteer.
func scopeVolunteer(actor entity.Principal, raw string) (*uuid.UUID, error) {
	if raw == "" {
		if actor.IsAdmin() {
			return nil, nil
		}
		self := actor.UserID
		return &self, nil
	}

	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid volunteer_id: %w", apperror.ErrInvalidInput)
	}
	if !actor.CanAccess(id) {
		return nil, fmt.Errorf("you can only view your own analytics: %w", apperror.ErrForbidden)
	}
	return &id, nil
}
