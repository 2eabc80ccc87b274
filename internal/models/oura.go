package models

import "time"

// DateLayout is the ISO calendar-day format used by the Oura API and the
// settings document.
const DateLayout = "2006-01-02"

// Collection is the envelope every usercollection endpoint returns.
type Collection[T any] struct {
	Data      []T     `json:"data"`
	NextToken *string `json:"next_token"`
}

// SleepContributors are the sub-scores of the daily sleep score.
type SleepContributors struct {
	DeepSleep   *int `json:"deep_sleep"`
	Efficiency  *int `json:"efficiency"`
	Latency     *int `json:"latency"`
	RemSleep    *int `json:"rem_sleep"`
	Restfulness *int `json:"restfulness"`
	Timing      *int `json:"timing"`
	TotalSleep  *int `json:"total_sleep"`
}

// DailySleep is one item of the daily_sleep collection.
type DailySleep struct {
	ID                          string            `json:"id"`
	Day                         string            `json:"day"`
	Score                       *int              `json:"score"`
	Contributors                SleepContributors `json:"contributors"`
	TemperatureDeviation        *float64          `json:"temperature_deviation,omitempty"`
	AverageTemperatureDeviation *float64          `json:"average_temperature_deviation,omitempty"`
	Timestamp                   string            `json:"timestamp"`
}

type ReadinessContributors struct {
	ActivityBalance     *int `json:"activity_balance"`
	BodyTemperature     *int `json:"body_temperature"`
	HRVBalance          *int `json:"hrv_balance"`
	PreviousDayActivity *int `json:"previous_day_activity"`
	PreviousNight       *int `json:"previous_night"`
	RecoveryIndex       *int `json:"recovery_index"`
	RestingHeartRate    *int `json:"resting_heart_rate"`
	SleepBalance        *int `json:"sleep_balance"`
}

// DailyReadiness is one item of the daily_readiness collection.
type DailyReadiness struct {
	ID                        string                `json:"id"`
	Day                       string                `json:"day"`
	Score                     *int                  `json:"score"`
	Contributors              ReadinessContributors `json:"contributors"`
	TemperatureDeviation      *float64              `json:"temperature_deviation"`
	TemperatureTrendDeviation *float64              `json:"temperature_trend_deviation"`
	Timestamp                 string                `json:"timestamp"`
}

// DailyActivity is one item of the daily_activity collection.
type DailyActivity struct {
	ID                        string  `json:"id"`
	Day                       string  `json:"day"`
	Score                     *int    `json:"score"`
	Steps                     *int    `json:"steps"`
	ActiveCalories            *int    `json:"active_calories"`
	TotalCalories             *int    `json:"total_calories"`
	TargetCalories            *int    `json:"target_calories"`
	EquivalentWalkingDistance *int    `json:"equivalent_walking_distance"`
	HighActivityTime          *int    `json:"high_activity_time"`
	MediumActivityTime        *int    `json:"medium_activity_time"`
	LowActivityTime           *int    `json:"low_activity_time"`
	SedentaryTime             *int    `json:"sedentary_time"`
	AverageMetMinutes         float64 `json:"average_met_minutes"`
	Timestamp                 string  `json:"timestamp"`
}

// SleepDetail is one session of the sleep collection. A night can hold
// several sessions (naps, rest periods); Type "long_sleep" marks the
// primary overnight one. Durations are in seconds.
type SleepDetail struct {
	ID                 string   `json:"id"`
	Day                string   `json:"day"`
	Type               string   `json:"type"`
	BedtimeStart       string   `json:"bedtime_start"`
	BedtimeEnd         string   `json:"bedtime_end"`
	EndDatetime        string   `json:"end_datetime,omitempty"`
	TimeInBed          *int     `json:"time_in_bed"`
	TotalSleepDuration *int     `json:"total_sleep_duration"`
	DeepSleepDuration  *int     `json:"deep_sleep_duration"`
	RemSleepDuration   *int     `json:"rem_sleep_duration"`
	LightSleepDuration *int     `json:"light_sleep_duration"`
	AwakeTime          *int     `json:"awake_time"`
	Efficiency         *int     `json:"efficiency"`
	Latency            *int     `json:"latency"`
	LowestHeartRate    *int     `json:"lowest_heart_rate"`
	AverageHeartRate   *float64 `json:"average_heart_rate"`
	AverageHRV         *float64 `json:"average_hrv"`
	AverageBreath      *float64 `json:"average_breath"`
}

// SleepDate derives the calendar day the session belongs to: the day tag
// when present and valid, otherwise the date part of the session end.
func (s *SleepDetail) SleepDate() (time.Time, bool) {
	if s.Day != "" {
		if d, err := time.Parse(DateLayout, s.Day); err == nil {
			return d, true
		}
	}
	for _, v := range []string{s.BedtimeEnd, s.EndDatetime} {
		if v == "" {
			continue
		}
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}

// IsLongSleep reports whether the session is the primary overnight sleep.
func (s *SleepDetail) IsLongSleep() bool {
	return s.Type == "long_sleep"
}

type Workout struct {
	ID               string   `json:"id"`
	Day              string   `json:"day"`
	Activity         string   `json:"activity"`
	Label            *string  `json:"label"`
	Intensity        string   `json:"intensity"`
	Source           string   `json:"source"`
	StartDatetime    string   `json:"start_datetime"`
	EndDatetime      string   `json:"end_datetime"`
	Calories         *float64 `json:"calories"`
	Distance         *float64 `json:"distance"`
	AverageHeartRate *int     `json:"average_heart_rate,omitempty"`
}

// Name returns the user label, falling back to the detected activity type.
func (w *Workout) Name() string {
	if w.Label != nil && *w.Label != "" {
		return *w.Label
	}
	if w.Activity != "" {
		return w.Activity
	}
	return "Workout"
}

// Duration is computed from the start/end timestamps; zero when either is
// missing or malformed.
func (w *Workout) Duration() time.Duration {
	start, err := time.Parse(time.RFC3339, w.StartDatetime)
	if err != nil {
		return 0
	}
	end, err := time.Parse(time.RFC3339, w.EndDatetime)
	if err != nil || end.Before(start) {
		return 0
	}
	return end.Sub(start)
}

type DailyStress struct {
	ID           string  `json:"id"`
	Day          string  `json:"day"`
	StressHigh   *int    `json:"stress_high"`
	RecoveryHigh *int    `json:"recovery_high"`
	DaySummary   *string `json:"day_summary"`
}

// Int returns a pointer to v.
func Int(v int) *int { return &v }

// Float returns a pointer to v.
func Float(v float64) *float64 { return &v }

// IntOr dereferences p, returning def when p is nil.
func IntOr(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}

// Truthy reports whether p holds a non-zero value.
func Truthy(p *int) bool {
	return p != nil && *p != 0
}
