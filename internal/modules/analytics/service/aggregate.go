package analytics

import (
	"math"
	"sort"
	"time"

	"anoa.com/volunteergoals/internal/entity"
	analyticsDto "anoa.com/volunteergoals/internal/modules/analytics/dto"
	commonDto "anoa.com/volunteergoals/pkg/dto"
)

// Trend labels
const (
	TrendImproving = "improving"
	TrendDeclining = "declining"
	TrendStable    = "stable"

	// trendThreshold is the completion rate delta, in percentage points,
	// between the last two weeks and the two before them.
	trendThreshold = 5
	// trendMinWeeks is the number of weekly buckets needed to call a trend.
	trendMinWeeks = 4
)

// Productive day points per activity
const (
	PointsGoalCompleted = 10
	PointsGoalStarted   = 3
	PointsGoalCreated   = 2
	PointsMinimum       = 1

	dayScoreMultiplier = 2
	dayScoreCap        = 100
)

// Performance score weights
const (
	weightCompletionRate  = 0.6
	weightAverageProgress = 0.4
)

var dayNames = [7]string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"}

// PerformanceScore blends completion rate and average progress into 0..100.
func PerformanceScore(completionRate, averageProgress int) int {
	return int(math.Round(weightCompletionRate*float64(completionRate) + weightAverageProgress*float64(averageProgress)))
}

// GoalTotals returns the count, completed count, completion rate and average
// progress of goals.
func GoalTotals(goals []entity.Goal) (total, completed, rate, average int) {
	sum := 0
	for _, g := range goals {
		sum += g.Progress
		if g.Status == entity.GoalStatusCompleted {
			completed++
		}
	}
	total = len(goals)
	return total, completed, entity.CompletionRate(completed, total), entity.AverageProgress(sum, total)
}

// WeeklyTrends buckets snapshots by the calendar day of their week start,
// oldest week first.
func WeeklyTrends(histories []entity.ProgressHistory) []analyticsDto.WeeklyTrend {
	type acc struct {
		weekEnd   time.Time
		total     int
		completed int
		progress  int
	}
	buckets := map[string]*acc{}
	for _, h := range histories {
		key := h.WeekStart.UTC().Format(commonDto.DateLayout)
		b, ok := buckets[key]
		if !ok {
			b = &acc{weekEnd: h.WeekEnd}
			buckets[key] = b
		}
		b.total++
		b.progress += h.Progress
		if h.Status == entity.GoalStatusCompleted {
			b.completed++
		}
	}

	trends := make([]analyticsDto.WeeklyTrend, 0, len(buckets))
	for key, b := range buckets {
		trends = append(trends, analyticsDto.WeeklyTrend{
			WeekStart:       key,
			WeekEnd:         b.weekEnd.UTC().Format(commonDto.DateLayout),
			TotalGoals:      b.total,
			CompletedGoals:  b.completed,
			AverageProgress: entity.AverageProgress(b.progress, b.total),
			CompletionRate:  entity.CompletionRate(b.completed, b.total),
		})
	}
	sort.Slice(trends, func(i, j int) bool { return trends[i].WeekStart < trends[j].WeekStart })
	return trends
}

// Streak counts consecutive weeks, newest first, with at least one completed
// snapshot. The week containing now does not break the streak while it has no
// completion yet.
func Streak(histories []entity.ProgressHistory, now time.Time) int {
	completedWeeks := map[string]bool{}
	for _, h := range histories {
		if h.Status == entity.GoalStatusCompleted {
			completedWeeks[h.WeekStart.UTC().Format(commonDto.DateLayout)] = true
		}
	}
	if len(completedWeeks) == 0 {
		return 0
	}

	week, _ := entity.WeekBounds(now.UTC())
	if !completedWeeks[week.Format(commonDto.DateLayout)] {
		week = week.AddDate(0, 0, -7)
	}

	streak := 0
	for completedWeeks[week.Format(commonDto.DateLayout)] {
		streak++
		week = week.AddDate(0, 0, -7)
	}
	return streak
}

// ImprovementTrend compares the average completion rate of the two most recent
// buckets with the two before them. trends must be ordered oldest first.
func ImprovementTrend(trends []analyticsDto.WeeklyTrend) string {
	if len(trends) < trendMinWeeks {
		return TrendStable
	}
	n := len(trends)
	recent := float64(trends[n-1].CompletionRate+trends[n-2].CompletionRate) / 2
	previous := float64(trends[n-3].CompletionRate+trends[n-4].CompletionRate) / 2

	switch delta := recent - previous; {
	case delta > trendThreshold:
		return TrendImproving
	case delta < -trendThreshold:
		return TrendDeclining
	default:
		return TrendStable
	}
}

// Breakdown groups rows by key, sorted by count descending then key. A
// positive limit truncates the result to the top entries.
func Breakdown[T any](rows []T, key func(T) string, progress func(T) int, completed func(T) bool, limit int) []analyticsDto.GroupStat {
	type acc struct {
		count, completed, progress int
	}
	groups := map[string]*acc{}
	for _, row := range rows {
		k := key(row)
		g, ok := groups[k]
		if !ok {
			g = &acc{}
			groups[k] = g
		}
		g.count++
		g.progress += progress(row)
		if completed(row) {
			g.completed++
		}
	}

	stats := make([]analyticsDto.GroupStat, 0, len(groups))
	for k, g := range groups {
		stats = append(stats, analyticsDto.GroupStat{
			Key:             k,
			Count:           g.count,
			Completed:       g.completed,
			AverageProgress: entity.AverageProgress(g.progress, g.count),
			CompletionRate:  entity.CompletionRate(g.completed, g.count),
		})
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Count != stats[j].Count {
			return stats[i].Count > stats[j].Count
		}
		return stats[i].Key < stats[j].Key
	})
	if limit > 0 && len(stats) > limit {
		stats = stats[:limit]
	}
	return stats
}

// CategoryBreakdown groups goals by category; goals without one fall under
// "uncategorized".
func CategoryBreakdown(goals []entity.Goal, limit int) []analyticsDto.GroupStat {
	return Breakdown(goals,
		func(g entity.Goal) string {
			if g.Category == "" {
				return "uncategorized"
			}
			return g.Category
		},
		func(g entity.Goal) int { return g.Progress },
		func(g entity.Goal) bool { return g.Status == entity.GoalStatusCompleted },
		limit,
	)
}

// ActivityPoints scores a single activity log entry for the productive day
// heuristic. Entries that say nothing about a volunteer's own work score 0.
func ActivityPoints(entry entity.ActivityLog) int {
	details, err := entry.TypedDetails()
	if err != nil {
		return 0
	}

	switch d := details.(type) {
	case *entity.GoalProgressDetails:
		if d.NewStatus == entity.GoalStatusCompleted && d.PreviousStatus != entity.GoalStatusCompleted {
			return PointsGoalCompleted
		}
		return max(PointsMinimum, (d.NewProgress-d.PreviousProgress)/10)
	case *entity.GoalStatusDetails:
		switch d.NewStatus {
		case entity.GoalStatusCompleted:
			return PointsGoalCompleted
		case entity.GoalStatusInProgress:
			return PointsGoalStarted
		}
		return PointsMinimum
	case *entity.GoalCreatedDetails, *entity.GoalFromTemplateDetails:
		return PointsGoalCreated
	}
	return 0
}

// ScoreDays sums activity points per weekday. Scores are doubled and capped.
func ScoreDays(entries []entity.ActivityLog) []analyticsDto.DayScore {
	days := make([]analyticsDto.DayScore, 7)
	raw := make([]int, 7)
	for i := range days {
		days[i] = analyticsDto.DayScore{Day: i, DayName: dayNames[i]}
	}
	for _, e := range entries {
		points := ActivityPoints(e)
		if points == 0 {
			continue
		}
		day := int(e.CreatedAt.UTC().Weekday())
		raw[day] += points
		days[day].Activities++
	}
	for i := range days {
		days[i].Score = min(dayScoreCap, raw[i]*dayScoreMultiplier)
	}
	return days
}

// BestDay picks the highest scoring day, breaking ties by activity count and
// then by the earlier weekday. It returns nil when nothing was scored.
func BestDay(days []analyticsDto.DayScore) *analyticsDto.DayScore {
	var best *analyticsDto.DayScore
	for i := range days {
		d := days[i]
		if d.Score == 0 {
			continue
		}
		if best == nil || d.Score > best.Score || (d.Score == best.Score && d.Activities > best.Activities) {
			best = &d
		}
	}
	return best
}

// ActivityByDay counts entries per weekday, Sunday first.
func ActivityByDay(entries []entity.ActivityLog) []analyticsDto.DayActivity {
	days := make([]analyticsDto.DayActivity, 7)
	for i := range days {
		days[i] = analyticsDto.DayActivity{Day: i, DayName: dayNames[i]}
	}
	for _, e := range entries {
		days[int(e.CreatedAt.UTC().Weekday())].Count++
	}
	return days
}
