package services

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/huangang/ouranotify/internal/models"
	"github.com/huangang/ouranotify/pkg/logger"
)

// SettingsManager persists the settings document as one JSON file. Every
// mutation reloads the file, applies the change and rewrites it; the
// mutex only serialises writers inside this process.
type SettingsManager struct {
	path string
	mu   sync.Mutex
	now  func() time.Time
}

// NewSettingsManager creates the directory and a default file when they
// do not exist yet.
func NewSettingsManager(path string) (*SettingsManager, error) {
	m := &SettingsManager{path: path, now: time.Now}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create settings directory: %w", err)
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := m.save(models.DefaultSettings()); err != nil {
			return nil, err
		}
		logger.Infof("[Settings] Created %s with defaults", path)
	}
	return m, nil
}

// Path is the location of the settings file.
func (m *SettingsManager) Path() string {
	return m.path
}

// load never fails: a missing or corrupt file yields the defaults. Keys
// absent from the file keep their default value.
func (m *SettingsManager) load() models.Settings {
	s := models.DefaultSettings()
	data, err := os.ReadFile(m.path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warnf("[Settings] Failed to read %s: %v, using defaults", m.path, err)
		}
		return s
	}
	if err := json.Unmarshal(data, &s); err != nil {
		logger.Warnf("[Settings] Corrupt settings file %s: %v, using defaults", m.path, err)
		return models.DefaultSettings()
	}
	return s
}

func (m *SettingsManager) save(s models.Settings) error {
	now := m.now()
	s.UpdatedAt = &models.Timestamp{Time: now}

	tmp := m.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("encode settings: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("write settings: %w", err)
	}
	return os.Rename(tmp, m.path)
}

func (m *SettingsManager) update(fn func(*models.Settings)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.load()
	fn(&s)
	return m.save(s)
}

// Get returns the whole document.
func (m *SettingsManager) Get() models.Settings {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.load()
}

func (m *SettingsManager) StepsGoal() int {
	goal := m.Get().StepsGoal
	if goal <= 0 {
		return models.DefaultStepsGoal
	}
	return goal
}

func (m *SettingsManager) SetStepsGoal(goal int) error {
	return m.update(func(s *models.Settings) { s.StepsGoal = goal })
}

func (m *SettingsManager) BedtimeReminder() models.BedtimeReminder {
	s := m.Get()
	return models.BedtimeReminder{
		Enabled:   s.BedtimeReminderEnabled,
		Time:      s.BedtimeReminderTime,
		ChannelID: s.BedtimeReminderChannelID,
	}
}

// SetBedtimeReminder always sets the flag; time and channel are only
// replaced when given.
func (m *SettingsManager) SetBedtimeReminder(enabled bool, at string, channel *models.ChannelID) error {
	return m.update(func(s *models.Settings) {
		s.BedtimeReminderEnabled = enabled
		if at != "" {
			s.BedtimeReminderTime = at
		}
		if channel != nil && *channel != "" {
			s.BedtimeReminderChannelID = channel
		}
	})
}

func (m *SettingsManager) GoalNotification() models.GoalNotification {
	s := m.Get()
	return models.GoalNotification{
		Enabled:       s.GoalNotificationEnabled,
		ChannelID:     s.GoalNotificationChannelID,
		AchievedToday: s.GoalAchievedToday,
		LastCheckDate: s.LastGoalCheckDate,
	}
}

func (m *SettingsManager) SetGoalNotification(enabled bool, channel *models.ChannelID) error {
	return m.update(func(s *models.Settings) {
		s.GoalNotificationEnabled = enabled
		if channel != nil && *channel != "" {
			s.GoalNotificationChannelID = channel
		}
	})
}

// MarkGoalAchieved sets today's flag. An empty checkDate keeps the stored
// date.
func (m *SettingsManager) MarkGoalAchieved(achieved bool, checkDate string) error {
	return m.update(func(s *models.Settings) {
		s.GoalAchievedToday = achieved
		if checkDate != "" {
			s.LastGoalCheckDate = &checkDate
		}
	})
}

// ResetDailyFlags clears the achievement flag when today differs from the
// last checked date. It reports whether anything was written.
func (m *SettingsManager) ResetDailyFlags(today string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.load()
	if s.LastGoalCheckDate != nil && *s.LastGoalCheckDate == today {
		return false, nil
	}
	s.GoalAchievedToday = false
	s.LastGoalCheckDate = &today
	if err := m.save(s); err != nil {
		return false, err
	}
	return true, nil
}

// Reset rewrites the defaults.
func (m *SettingsManager) Reset() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.save(models.DefaultSettings())
}
