package models

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"
)

// ChannelID is a Discord snowflake. Older settings files stored it as a JSON
// number, newer ones as a string; both decode.
type ChannelID string

func (c *ChannelID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*c = ChannelID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	if _, err := strconv.ParseUint(n.String(), 10, 64); err != nil {
		return err
	}
	*c = ChannelID(n.String())
	return nil
}

// Mention renders the channel as a Discord channel mention.
func (c ChannelID) Mention() string {
	return "<#" + string(c) + ">"
}

// Timestamp decodes RFC 3339 as well as the zone-less ISO form older
// settings files carry ("2026-02-17T10:00:00.123456", read as local time).
// An unrecognised value decodes to the zero time instead of failing the
// whole document.
type Timestamp struct {
	time.Time
}

var naiveTimestampLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		t.Time = time.Time{}
		return nil
	}
	if parsed, err := time.Parse(time.RFC3339Nano, s); err == nil {
		t.Time = parsed
		return nil
	}
	for _, layout := range naiveTimestampLayouts {
		if parsed, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			t.Time = parsed
			return nil
		}
	}
	t.Time = time.Time{}
	return nil
}

// Settings is the persisted settings document.
type Settings struct {
	StepsGoal           int        `json:"steps_goal"`
	NotificationEnabled bool       `json:"notification_enabled"`
	UpdatedAt           *Timestamp `json:"updated_at"`

	BedtimeReminderEnabled   bool       `json:"bedtime_reminder_enabled"`
	BedtimeReminderTime      string     `json:"bedtime_reminder_time"` // HH:MM
	BedtimeReminderChannelID *ChannelID `json:"bedtime_reminder_channel_id"`

	GoalNotificationEnabled   bool       `json:"goal_notification_enabled"`
	GoalNotificationChannelID *ChannelID `json:"goal_notification_channel_id"`
	GoalAchievedToday         bool       `json:"goal_achieved_today"`
	LastGoalCheckDate         *string    `json:"last_goal_check_date"`
}

const (
	DefaultStepsGoal           = 8000
	DefaultBedtimeReminderTime = "22:30"
	MinStepsGoal               = 1000
	MaxStepsGoal               = 100000
)

// DefaultSettings returns the document written on first access.
func DefaultSettings() Settings {
	return Settings{
		StepsGoal:           DefaultStepsGoal,
		NotificationEnabled: true,
		BedtimeReminderTime: DefaultBedtimeReminderTime,
	}
}

// BedtimeReminder is the bedtime reminder group of the settings document.
type BedtimeReminder struct {
	Enabled   bool       `json:"enabled"`
	Time      string     `json:"time"`
	ChannelID *ChannelID `json:"channel_id"`
}

// GoalNotification is the goal notification group of the settings document.
type GoalNotification struct {
	Enabled       bool       `json:"enabled"`
	ChannelID     *ChannelID `json:"channel_id"`
	AchievedToday bool       `json:"achieved_today"`
	LastCheckDate *string    `json:"last_check_date"`
}
