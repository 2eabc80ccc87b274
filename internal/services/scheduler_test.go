package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huangang/ouranotify/internal/config"
	"github.com/huangang/ouranotify/internal/models"
)

func newTestScheduler(t *testing.T, src *fakeSource, n *fakeNotifier) (*Scheduler, *SettingsManager) {
	t.Helper()
	settings := newTestSettings(t)
	return NewScheduler(settings, src, n, nil, config.ScheduleConfig{}, jst), settings
}

func at(hour, minute int) time.Time {
	return time.Date(2026, 2, 17, hour, minute, 0, 0, jst)
}

func TestTick_BedtimeReminder(t *testing.T) {
	ch := models.ChannelID("555")

	tests := []struct {
		name       string
		enabled    bool
		configured string
		now        time.Time
		sent       bool
	}{
		{"exact minute", true, "23:15", at(23, 15), true},
		{"minute before", true, "23:15", at(23, 14), false},
		{"minute after", true, "23:15", at(23, 16), false},
		{"disabled", false, "23:15", at(23, 15), false},
		{"malformed falls back to 22:30", true, "25:99", at(22, 30), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := &fakeNotifier{}
			s, settings := newTestScheduler(t, newFakeSource(), n)
			require.NoError(t, settings.SetBedtimeReminder(tt.enabled, tt.configured, &ch))

			s.Tick(context.Background(), tt.now)

			if !tt.sent {
				assert.Empty(t, n.posts)
				return
			}
			require.Len(t, n.posts, 1)
			assert.Equal(t, bedtimeMessage, n.posts[0].Reply.Content)
			assert.Equal(t, ch, *n.posts[0].ChannelID)
		})
	}
}

func TestTick_UsesConfiguredZone(t *testing.T) {
	n := &fakeNotifier{}
	s, settings := newTestScheduler(t, newFakeSource(), n)
	require.NoError(t, settings.SetBedtimeReminder(true, "22:30", nil))

	// 13:30 UTC is 22:30 in Tokyo.
	s.Tick(context.Background(), time.Date(2026, 2, 17, 13, 30, 0, 0, time.UTC))
	assert.Len(t, n.posts, 1)
}

func TestTick_GoalNotification(t *testing.T) {
	src := newFakeSource()
	src.addActivity("2026-02-17", 80, 9000)
	n := &fakeNotifier{}
	s, settings := newTestScheduler(t, src, n)
	require.NoError(t, settings.SetGoalNotification(true, nil))

	s.Tick(context.Background(), at(15, 0))
	require.Len(t, n.posts, 1)
	assert.Contains(t, n.posts[0].Reply.Content, "**9,000 / 8,000 steps**")
	assert.True(t, settings.GoalNotification().AchievedToday)

	s.Tick(context.Background(), at(15, 1))
	assert.Len(t, n.posts, 1, "goal is celebrated once per day")
}

func TestTick_GoalNotReached(t *testing.T) {
	src := newFakeSource()
	src.addActivity("2026-02-17", 80, 7999)
	n := &fakeNotifier{}
	s, settings := newTestScheduler(t, src, n)
	require.NoError(t, settings.SetGoalNotification(true, nil))

	s.Tick(context.Background(), at(15, 0))
	assert.Empty(t, n.posts)
	assert.False(t, settings.GoalNotification().AchievedToday)
}

func TestTick_ResetsFlagsOnNewDay(t *testing.T) {
	src := newFakeSource()
	src.addActivity("2026-02-18", 40, 100)
	n := &fakeNotifier{}
	s, settings := newTestScheduler(t, src, n)
	require.NoError(t, settings.SetGoalNotification(true, nil))
	require.NoError(t, settings.MarkGoalAchieved(true, "2026-02-17"))

	s.Tick(context.Background(), time.Date(2026, 2, 18, 0, 0, 0, 0, jst))

	gn := settings.GoalNotification()
	assert.False(t, gn.AchievedToday)
	assert.Equal(t, "2026-02-18", *gn.LastCheckDate)
}

func TestTick_FailingCheckDoesNotStopOthers(t *testing.T) {
	t.Run("panic", func(t *testing.T) {
		src := newFakeSource()
		src.addActivity("2026-02-17", 80, 12000)
		n := &fakeNotifier{panicOn: "bedtime"}
		s, settings := newTestScheduler(t, src, n)
		require.NoError(t, settings.SetBedtimeReminder(true, "22:30", nil))
		require.NoError(t, settings.SetGoalNotification(true, nil))

		assert.NotPanics(t, func() { s.Tick(context.Background(), at(22, 30)) })
		require.Len(t, n.posts, 1)
		assert.Contains(t, n.posts[0].Reply.Content, "step goal")
		assert.True(t, settings.GoalNotification().AchievedToday)
	})

	t.Run("upstream error", func(t *testing.T) {
		src := newFakeSource()
		src.err = errUpstream
		n := &fakeNotifier{}
		s, settings := newTestScheduler(t, src, n)
		require.NoError(t, settings.SetBedtimeReminder(true, "22:30", nil))
		require.NoError(t, settings.SetGoalNotification(true, nil))

		s.Tick(context.Background(), at(22, 30))
		assert.Len(t, n.posts, 1, "bedtime reminder still goes out")
		assert.False(t, settings.GoalNotification().AchievedToday)
	})
}

func TestScheduler_StartRejectsBadSpec(t *testing.T) {
	settings := newTestSettings(t)
	reports := newTestReports(newFakeSource(), &fakeNotifier{})
	s := NewScheduler(settings, newFakeSource(), &fakeNotifier{}, reports, config.ScheduleConfig{Morning: "not a cron"}, jst)

	assert.Error(t, s.Start(context.Background()))
}

func TestScheduler_StartStop(t *testing.T) {
	settings := newTestSettings(t)
	reports := newTestReports(newFakeSource(), &fakeNotifier{})
	s := NewScheduler(settings, newFakeSource(), &fakeNotifier{}, reports, config.ScheduleConfig{Morning: "0 7 * * *"}, jst)

	assert.Equal(t, 0, s.JobCount())
	require.NoError(t, s.Start(context.Background()))
	assert.Equal(t, 2, s.JobCount())
	s.Stop()
}
