package services

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huangang/ouranotify/internal/models"
)

func newTestSettings(t *testing.T) *SettingsManager {
	t.Helper()
	m, err := NewSettingsManager(filepath.Join(t.TempDir(), "data", "settings.json"))
	require.NoError(t, err)
	return m
}

func TestSettingsManager_CreatesDefaults(t *testing.T) {
	m := newTestSettings(t)

	_, err := os.Stat(m.Path())
	require.NoError(t, err)

	s := m.Get()
	assert.Equal(t, 8000, s.StepsGoal)
	assert.True(t, s.NotificationEnabled)
	assert.False(t, s.BedtimeReminderEnabled)
	assert.Equal(t, "22:30", s.BedtimeReminderTime)
	assert.False(t, s.GoalNotificationEnabled)
	assert.NotNil(t, s.UpdatedAt)
}

func TestSettingsManager_CorruptFileFallsBackToDefaults(t *testing.T) {
	m := newTestSettings(t)
	require.NoError(t, os.WriteFile(m.Path(), []byte("{not json"), 0o644))

	assert.Equal(t, models.DefaultSettings().StepsGoal, m.StepsGoal())

	require.NoError(t, m.SetStepsGoal(9000))
	assert.Equal(t, 9000, m.StepsGoal())
}

func TestSettingsManager_PartialFileKeepsDefaults(t *testing.T) {
	m := newTestSettings(t)
	require.NoError(t, os.WriteFile(m.Path(), []byte(`{"steps_goal": 12000, "bedtime_reminder_channel_id": 42}`), 0o644))

	s := m.Get()
	assert.Equal(t, 12000, s.StepsGoal)
	assert.Equal(t, "22:30", s.BedtimeReminderTime)
	require.NotNil(t, s.BedtimeReminderChannelID)
	assert.Equal(t, models.ChannelID("42"), *s.BedtimeReminderChannelID)
}

func TestSettingsManager_LoadsZonelessUpdatedAt(t *testing.T) {
	m := newTestSettings(t)
	legacy := `{
  "steps_goal": 12000,
  "notification_enabled": true,
  "updated_at": "2026-02-17T10:00:00.123456",
  "bedtime_reminder_enabled": true,
  "bedtime_reminder_time": "23:15",
  "bedtime_reminder_channel_id": 1234567890,
  "goal_notification_enabled": false,
  "goal_notification_channel_id": null,
  "goal_achieved_today": false,
  "last_goal_check_date": "2026-02-17"
}`
	require.NoError(t, os.WriteFile(m.Path(), []byte(legacy), 0o644))

	s := m.Get()
	assert.Equal(t, 12000, s.StepsGoal)
	assert.True(t, s.BedtimeReminderEnabled)
	assert.Equal(t, "23:15", s.BedtimeReminderTime)
	require.NotNil(t, s.UpdatedAt)
	assert.True(t, time.Date(2026, 2, 17, 10, 0, 0, 123456000, time.Local).Equal(s.UpdatedAt.Time))

	// a daily reset rewrites the file without losing the user's values
	written, err := m.ResetDailyFlags("2026-02-18")
	require.NoError(t, err)
	assert.True(t, written)
	s = m.Get()
	assert.Equal(t, 12000, s.StepsGoal)
	assert.True(t, s.BedtimeReminderEnabled)
	assert.Equal(t, "23:15", s.BedtimeReminderTime)
}

func TestSettingsManager_UnknownUpdatedAtIsIgnored(t *testing.T) {
	m := newTestSettings(t)
	require.NoError(t, os.WriteFile(m.Path(), []byte(`{"steps_goal": 9000, "updated_at": "last tuesday"}`), 0o644))

	s := m.Get()
	assert.Equal(t, 9000, s.StepsGoal)
	require.NotNil(t, s.UpdatedAt)
	assert.True(t, s.UpdatedAt.IsZero())
}

func TestSettingsManager_StampsUpdatedAt(t *testing.T) {
	m := newTestSettings(t)
	fixed := time.Date(2026, 2, 17, 9, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return fixed }

	require.NoError(t, m.SetStepsGoal(10000))
	s := m.Get()
	require.NotNil(t, s.UpdatedAt)
	assert.True(t, fixed.Equal(s.UpdatedAt.Time))
}

func TestSettingsManager_BedtimeReminder(t *testing.T) {
	m := newTestSettings(t)
	ch := models.ChannelID("111")

	require.NoError(t, m.SetBedtimeReminder(true, "23:15", &ch))
	br := m.BedtimeReminder()
	assert.True(t, br.Enabled)
	assert.Equal(t, "23:15", br.Time)
	assert.Equal(t, ch, *br.ChannelID)

	require.NoError(t, m.SetBedtimeReminder(false, "", nil))
	br = m.BedtimeReminder()
	assert.False(t, br.Enabled)
	assert.Equal(t, "23:15", br.Time, "time is kept when not given")
	assert.Equal(t, ch, *br.ChannelID, "channel is kept when not given")
}

func TestSettingsManager_GoalNotification(t *testing.T) {
	m := newTestSettings(t)
	ch := models.ChannelID("222")

	require.NoError(t, m.SetGoalNotification(true, &ch))
	require.NoError(t, m.MarkGoalAchieved(true, "2026-02-17"))

	gn := m.GoalNotification()
	assert.True(t, gn.Enabled)
	assert.True(t, gn.AchievedToday)
	require.NotNil(t, gn.LastCheckDate)
	assert.Equal(t, "2026-02-17", *gn.LastCheckDate)

	require.NoError(t, m.MarkGoalAchieved(false, ""))
	gn = m.GoalNotification()
	assert.False(t, gn.AchievedToday)
	assert.Equal(t, "2026-02-17", *gn.LastCheckDate, "empty date keeps the stored one")
}

func TestSettingsManager_ResetDailyFlags(t *testing.T) {
	m := newTestSettings(t)
	require.NoError(t, m.MarkGoalAchieved(true, "2026-02-17"))

	changed, err := m.ResetDailyFlags("2026-02-17")
	require.NoError(t, err)
	assert.False(t, changed)
	assert.True(t, m.GoalNotification().AchievedToday, "same day keeps the flag")

	changed, err = m.ResetDailyFlags("2026-02-18")
	require.NoError(t, err)
	assert.True(t, changed)
	gn := m.GoalNotification()
	assert.False(t, gn.AchievedToday)
	assert.Equal(t, "2026-02-18", *gn.LastCheckDate)
}

func TestSettingsManager_Reset(t *testing.T) {
	m := newTestSettings(t)
	require.NoError(t, m.SetStepsGoal(15000))
	require.NoError(t, m.Reset())
	assert.Equal(t, models.DefaultStepsGoal, m.StepsGoal())
}

func TestSettingsManager_ConcurrentWriters(t *testing.T) {
	m := newTestSettings(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				assert.NoError(t, m.SetStepsGoal(5000+i))
			} else {
				assert.NoError(t, m.MarkGoalAchieved(true, "2026-02-17"))
			}
		}(i)
	}
	wg.Wait()

	s := m.Get()
	assert.True(t, s.GoalAchievedToday)
	assert.GreaterOrEqual(t, s.StepsGoal, 5000)
}
