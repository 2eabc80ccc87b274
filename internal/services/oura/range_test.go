package oura

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huangang/ouranotify/internal/models"
)

// seedSparse fills the fake with records for days ending at end, skipping
// some days per metric so every combination of missing fields appears.
func seedSparse(f *fakeOura, endDay string, days int) {
	end := day(endDay)
	for i := 0; i < days; i++ {
		d := end.AddDate(0, 0, -i).Format(models.DateLayout)
		if i%3 != 1 {
			f.add("daily_sleep", map[string]interface{}{"day": d, "score": 60 + i%30})
		}
		if i%4 != 2 {
			f.add("daily_readiness", map[string]interface{}{"day": d, "score": 55 + (i*7)%40})
		}
		if i%5 != 3 {
			f.add("daily_activity", map[string]interface{}{"day": d, "score": 50 + (i*3)%45, "steps": 3000 + i*250})
		}
	}
}

func TestBuildPeriod_MatchesPerDayFetch(t *testing.T) {
	for _, days := range []int{7, 30} {
		t.Run(map[int]string{7: "week", 30: "month"}[days], func(t *testing.T) {
			fake := newFakeOura()
			seedSparse(fake, "2026-02-17", days)
			c := newTestClient(t, fake)
			ctx := context.Background()

			end := day("2026-02-17")
			start := end.AddDate(0, 0, -(days - 1))

			period, err := c.BuildPeriod(ctx, start, end)
			require.NoError(t, err)
			require.Len(t, period.Daily, days)
			assert.Equal(t, 1, fake.calls["daily_sleep"])
			assert.Equal(t, 1, fake.calls["daily_readiness"])
			assert.Equal(t, 1, fake.calls["daily_activity"])

			for i, row := range period.Daily {
				d := start.AddDate(0, 0, i)
				require.Equal(t, d.Format(models.DateLayout), row.Date)

				sleep, err := c.GetSleep(ctx, d)
				require.NoError(t, err)
				readiness, err := c.GetReadiness(ctx, d)
				require.NoError(t, err)
				activity, err := c.GetActivity(ctx, d)
				require.NoError(t, err)

				want := models.DayComposite{Date: row.Date}
				if sleep != nil {
					want.SleepScore = sleep.Score
				}
				if readiness != nil {
					want.ReadinessScore = readiness.Score
				}
				if activity != nil {
					want.ActivityScore = activity.Score
					want.Steps = activity.Steps
				}
				assert.Equal(t, want, row, "day %s", row.Date)
			}
		})
	}
}

func TestAssemblePeriod_StatsSkipMissingAndZero(t *testing.T) {
	start, end := day("2026-02-11"), day("2026-02-17")
	sleep := map[string]models.DailySleep{
		"2026-02-11": {Day: "2026-02-11", Score: models.Int(80)},
		"2026-02-12": {Day: "2026-02-12", Score: models.Int(0)},
		"2026-02-13": {Day: "2026-02-13", Score: models.Int(70)},
	}
	activity := map[string]models.DailyActivity{
		"2026-02-11": {Day: "2026-02-11", Score: models.Int(90), Steps: models.Int(10000)},
		"2026-02-17": {Day: "2026-02-17", Score: models.Int(60), Steps: models.Int(4000)},
	}

	p := AssemblePeriod(start, end, sleep, nil, activity)

	assert.Equal(t, 7, p.Days)
	assert.Equal(t, "2026-02-11", p.StartDate)
	assert.Equal(t, "2026-02-17", p.EndDate)

	require.NotNil(t, p.Daily[1].SleepScore)
	assert.Equal(t, 0, *p.Daily[1].SleepScore)
	assert.Nil(t, p.Daily[2].Steps)

	assert.Equal(t, 2, p.Sleep.Count)
	assert.InDelta(t, 75.0, *p.Sleep.Avg, 0.001)
	assert.Equal(t, 70, *p.Sleep.Min)
	assert.Equal(t, 80, *p.Sleep.Max)

	assert.Equal(t, 0, p.Readiness.Count)
	assert.Nil(t, p.Readiness.Avg)

	assert.Equal(t, 14000, p.TotalSteps)
	assert.InDelta(t, 7000.0, *p.Averages().Steps, 0.001)
}

func TestGetWeeklyAndMonthly_Windows(t *testing.T) {
	fake := newFakeOura()
	c := newTestClient(t, fake)
	ctx := context.Background()

	weekly, err := c.GetWeekly(ctx, day("2026-02-17"))
	require.NoError(t, err)
	assert.Equal(t, "2026-02-11", weekly.StartDate)
	assert.Equal(t, 7, weekly.Days)
	assert.Equal(t, 0, weekly.TotalSteps)

	monthly, err := c.GetMonthly(ctx, day("2026-02-17"), 30)
	require.NoError(t, err)
	assert.Equal(t, "2026-01-19", monthly.StartDate)
	assert.Equal(t, 30, monthly.Days)
}
