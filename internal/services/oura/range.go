package oura

import (
	"context"
	"time"

	"github.com/huangang/ouranotify/internal/models"
)

// indexByDay keys items by their day tag; items without one are dropped and
// a later item for the same day replaces an earlier one.
func indexByDay[T any](items []T, day func(*T) string) map[string]T {
	out := make(map[string]T, len(items))
	for i := range items {
		if d := day(&items[i]); d != "" {
			out[d] = items[i]
		}
	}
	return out
}

func (c *Client) GetSleepRange(ctx context.Context, start, end time.Time) (map[string]models.DailySleep, error) {
	items, err := list[models.DailySleep](ctx, c, "daily_sleep", dateParams(start, end))
	if err != nil {
		return nil, err
	}
	return indexByDay(items, func(s *models.DailySleep) string { return s.Day }), nil
}

func (c *Client) GetReadinessRange(ctx context.Context, start, end time.Time) (map[string]models.DailyReadiness, error) {
	items, err := list[models.DailyReadiness](ctx, c, "daily_readiness", dateParams(start, end))
	if err != nil {
		return nil, err
	}
	return indexByDay(items, func(r *models.DailyReadiness) string { return r.Day }), nil
}

func (c *Client) GetActivityRange(ctx context.Context, start, end time.Time) (map[string]models.DailyActivity, error) {
	items, err := list[models.DailyActivity](ctx, c, "daily_activity", dateParams(start, end))
	if err != nil {
		return nil, err
	}
	return indexByDay(items, func(a *models.DailyActivity) string { return a.Day }), nil
}

// GetSleepDetailRange returns one session per day, preferring long sleeps.
func (c *Client) GetSleepDetailRange(ctx context.Context, start, end time.Time) (map[string]models.SleepDetail, error) {
	items, err := list[models.SleepDetail](ctx, c, "sleep", dateParams(start.AddDate(0, 0, -1), end))
	if err != nil {
		return nil, err
	}

	out := make(map[string]models.SleepDetail)
	for _, item := range items {
		if item.Day == "" {
			continue
		}
		if _, ok := out[item.Day]; !ok || item.IsLongSleep() {
			out[item.Day] = item
		}
	}
	return out, nil
}

// BuildPeriod fetches sleep, readiness and activity for [start, end] with
// one call each and assembles the per-day table and statistics.
func (c *Client) BuildPeriod(ctx context.Context, start, end time.Time) (*models.PeriodData, error) {
	sleep, err := c.GetSleepRange(ctx, start, end)
	if err != nil {
		return nil, err
	}
	readiness, err := c.GetReadinessRange(ctx, start, end)
	if err != nil {
		return nil, err
	}
	activity, err := c.GetActivityRange(ctx, start, end)
	if err != nil {
		return nil, err
	}
	return AssemblePeriod(start, end, sleep, readiness, activity), nil
}

// GetWeekly is the 7-day period ending at end.
func (c *Client) GetWeekly(ctx context.Context, end time.Time) (*models.PeriodData, error) {
	return c.BuildPeriod(ctx, end.AddDate(0, 0, -6), end)
}

// GetMonthly is the days-long period ending at end.
func (c *Client) GetMonthly(ctx context.Context, end time.Time, days int) (*models.PeriodData, error) {
	if days < 1 {
		days = 1
	}
	return c.BuildPeriod(ctx, end.AddDate(0, 0, -(days-1)), end)
}

// AssemblePeriod walks [start, end] day by day and looks each day up in the
// indexed records. Missing records leave nil fields. Statistics only count
// non-zero values.
func AssemblePeriod(
	start, end time.Time,
	sleep map[string]models.DailySleep,
	readiness map[string]models.DailyReadiness,
	activity map[string]models.DailyActivity,
) *models.PeriodData {
	p := &models.PeriodData{
		StartDate: dayString(start),
		EndDate:   dayString(end),
	}

	var sleepScores, readinessScores, activityScores, steps []int
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		key := dayString(d)
		row := models.DayComposite{Date: key}

		if s, ok := sleep[key]; ok {
			row.SleepScore = s.Score
			if models.Truthy(s.Score) {
				sleepScores = append(sleepScores, *s.Score)
			}
		}
		if r, ok := readiness[key]; ok {
			row.ReadinessScore = r.Score
			if models.Truthy(r.Score) {
				readinessScores = append(readinessScores, *r.Score)
			}
		}
		if a, ok := activity[key]; ok {
			row.ActivityScore = a.Score
			row.Steps = a.Steps
			if models.Truthy(a.Score) {
				activityScores = append(activityScores, *a.Score)
			}
			if models.Truthy(a.Steps) {
				steps = append(steps, *a.Steps)
			}
		}
		p.Daily = append(p.Daily, row)
	}

	p.Days = len(p.Daily)
	p.Sleep = models.NewStats(sleepScores)
	p.Readiness = models.NewStats(readinessScores)
	p.Activity = models.NewStats(activityScores)
	p.Steps = models.NewStats(steps)
	for _, s := range steps {
		p.TotalSteps += s
	}
	return p
}
