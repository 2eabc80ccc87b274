package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huangang/ouranotify/internal/config"
)

func newTestReports(src *fakeSource, n *fakeNotifier, opts ...ReportOption) *ReportService {
	return NewReportService(src, n, jst, config.NotifierConfig{StepsGoal: 8000, TargetWakeTime: "07:00"}, opts...)
}

func TestParseReportKind(t *testing.T) {
	for _, s := range []string{"morning", "noon", "night"} {
		k, err := ParseReportKind(s)
		require.NoError(t, err)
		assert.Equal(t, ReportKind(s), k)
	}
	_, err := ParseReportKind("evening")
	assert.Error(t, err)
}

func TestBuildMorning_TodayData(t *testing.T) {
	src := newFakeSource()
	src.addSleep("2026-02-17", 82)
	src.addReadiness("2026-02-17", 75)
	src.addSleep("2026-02-16", 78)
	src.addReadiness("2026-02-16", 80)

	r := newTestReports(src, &fakeNotifier{})
	title, sections, err := r.BuildMorning(context.Background(), time.Date(2026, 2, 17, 7, 30, 0, 0, jst))
	require.NoError(t, err)

	assert.Contains(t, title, "2026-02-17")
	assert.NotContains(t, title, ":warning:")
	require.Len(t, sections, 3)
	assert.Contains(t, sections[0].Description, "+4 vs previous day")
	assert.Contains(t, sections[1].Description, "-5 vs previous day")
	assert.Contains(t, sections[2].Title, "Maintain pace")
}

func TestBuildMorning_LowScoresAddAlert(t *testing.T) {
	src := newFakeSource()
	src.addSleep("2026-02-17", 62)
	src.addReadiness("2026-02-17", 60)

	r := newTestReports(src, &fakeNotifier{})
	title, _, err := r.BuildMorning(context.Background(), time.Date(2026, 2, 17, 7, 30, 0, 0, jst))
	require.NoError(t, err)

	assert.Contains(t, title, ":warning: Your sleep score is low (62)")
	assert.Contains(t, title, ":warning: Your readiness is low (60)")
}

func TestBuildMorning_FallsBackToYesterday(t *testing.T) {
	src := newFakeSource()
	src.addSleep("2026-02-16", 70)
	src.addSleep("2026-02-15", 60)

	r := newTestReports(src, &fakeNotifier{})
	_, sections, err := r.BuildMorning(context.Background(), time.Date(2026, 2, 17, 7, 30, 0, 0, jst))
	require.NoError(t, err)

	assert.Contains(t, sections[0].Description, "**Score: 70**")
	assert.Contains(t, sections[0].Description, "+10 vs previous day")
	assert.Equal(t, "No data available", sections[1].Description)
	assert.Contains(t, src.calls, "sleep 2026-02-15", "comparison uses the day before the fallback")
}

func TestBuildMorning_WeeklyFailureIsIgnored(t *testing.T) {
	src := newFakeSource()
	src.addSleep("2026-02-17", 82)
	src.weeklyErr = errors.New("timeout")

	r := newTestReports(src, &fakeNotifier{})
	_, sections, err := r.BuildMorning(context.Background(), time.Date(2026, 2, 17, 7, 30, 0, 0, jst))
	require.NoError(t, err)
	assert.NotContains(t, sections[0].Description, "weekly average")
}

func TestBuildMorning_Holiday(t *testing.T) {
	src := newFakeSource()
	src.addReadiness("2026-01-01", 90)

	r := newTestReports(src, &fakeNotifier{}, WithHolidays(NewHolidayService("JP")))
	title, sections, err := r.BuildMorning(context.Background(), time.Date(2026, 1, 1, 7, 0, 0, 0, jst))
	require.NoError(t, err)

	assert.Contains(t, title, ":confetti_ball:")
	assert.Contains(t, sections[2].Description, "day off")
}

func TestSend_UpstreamErrorNotifiesAndFails(t *testing.T) {
	src := newFakeSource()
	src.err = errUpstream
	n := &fakeNotifier{}

	err := newTestReports(src, n).SendMorning(context.Background(), time.Date(2026, 2, 17, 7, 30, 0, 0, jst))
	require.Error(t, err)
	assert.ErrorIs(t, err, errUpstream)
	require.Len(t, n.messages, 1)
	assert.True(t, strings.HasPrefix(n.messages[0], ":x: **Morning report error**"))
	assert.Empty(t, n.reports)
}

func TestSend_DeliveryFailureIsReturned(t *testing.T) {
	src := newFakeSource()
	n := &fakeNotifier{err: errors.New("discord returned status 400")}

	err := newTestReports(src, n).SendNight(context.Background(), time.Date(2026, 2, 17, 21, 0, 0, 0, jst))
	assert.Error(t, err)
}

func TestSendNoon(t *testing.T) {
	t.Run("no data sends nothing", func(t *testing.T) {
		n := &fakeNotifier{}
		require.NoError(t, newTestReports(newFakeSource(), n).SendNoon(context.Background(), time.Date(2026, 2, 17, 13, 0, 0, 0, jst)))
		assert.Empty(t, n.reports)
		assert.Empty(t, n.messages)
	})

	t.Run("on pace without sleep sends nothing", func(t *testing.T) {
		src := newFakeSource()
		src.addActivity("2026-02-17", 80, 5000)
		n := &fakeNotifier{}
		require.NoError(t, newTestReports(src, n).SendNoon(context.Background(), time.Date(2026, 2, 17, 13, 0, 0, 0, jst)))
		assert.Empty(t, n.reports)
	})

	t.Run("behind pace", func(t *testing.T) {
		src := newFakeSource()
		src.addActivity("2026-02-17", 60, 1000)
		n := &fakeNotifier{}
		require.NoError(t, newTestReports(src, n).SendNoon(context.Background(), time.Date(2026, 2, 17, 13, 0, 0, 0, jst)))
		require.Len(t, n.reports, 1)
		assert.Contains(t, n.reports[0].Title, "Activity reminder")
	})

	t.Run("goal comes from the live lookup", func(t *testing.T) {
		src := newFakeSource()
		src.addActivity("2026-02-17", 60, 1000)
		n := &fakeNotifier{}
		r := newTestReports(src, n, WithStepsGoal(func() int { return 2000 }))
		require.NoError(t, r.SendNoon(context.Background(), time.Date(2026, 2, 17, 13, 0, 0, 0, jst)))
		assert.Empty(t, n.reports, "1,000 steps is on pace for a 2,000 goal")
	})
}

func TestSendNight(t *testing.T) {
	src := newFakeSource()
	src.addActivity("2026-02-17", 85, 9500)
	src.addActivity("2026-02-16", 70, 8300)
	src.addReadiness("2026-02-17", 60)
	n := &fakeNotifier{}

	require.NoError(t, newTestReports(src, n).SendNight(context.Background(), time.Date(2026, 2, 17, 21, 0, 0, 0, jst)))
	require.Len(t, n.reports, 1)
	sections := n.reports[0].Sections
	require.Len(t, sections, 2)
	assert.Contains(t, sections[0].Fields[0].Value, "+1,200 vs yesterday")
	assert.Contains(t, sections[1].Description, "Go to bed early tonight")
}

func TestSendTest(t *testing.T) {
	n := &fakeNotifier{}
	require.NoError(t, newTestReports(newFakeSource(), n).SendTest(context.Background()))
	require.Len(t, n.messages, 1)
	assert.Contains(t, n.messages[0], "Test succeeded")
}
