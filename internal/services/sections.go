package services

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/huangang/ouranotify/internal/models"
)

const maxWorkouts = 10

func ActivitySection(activity *models.DailyActivity) models.Section {
	const title = ":running: Activity"
	if activity == nil {
		return noDataSection(title)
	}
	score := models.IntOr(activity.Score, 0)
	section := models.Section{
		Title:       title,
		Description: scoreLine(score),
		Color:       ScoreColor(score),
	}
	section.AddField(":footprints: Steps", FormatNumber(models.IntOr(activity.Steps, 0))+" steps", true)
	section.AddField(":fire: Active calories", FormatNumber(models.IntOr(activity.ActiveCalories, 0))+" kcal", true)
	section.AddField(":zap: Total calories", FormatNumber(models.IntOr(activity.TotalCalories, 0))+" kcal", true)
	return section
}

// StepsSection shows today's progress towards goal.
func StepsSection(steps, goal int) models.Section {
	percent := 0.0
	if goal > 0 {
		percent = float64(steps) / float64(goal) * 100
	}
	color := models.ColorOrange
	switch {
	case percent >= 100:
		color = models.ColorGreen
	case percent >= 70:
		color = models.ColorYellow
	}
	section := models.Section{
		Title: ":footprints: Today's steps",
		Description: fmt.Sprintf("**%s / %s steps** (%.0f%%)\n`%s`",
			FormatNumber(steps), FormatNumber(goal), percent, ProgressBar(percent)),
		Color: color,
	}
	if percent < 100 {
		section.AddField(":dart: Remaining", FormatNumber(goal-steps)+" steps", true)
	}
	return section
}

// TemperatureDeviation picks the first deviation the records carry: the
// sleep value, its averaged variant, then the readiness value.
func TemperatureDeviation(sleep *models.DailySleep, readiness *models.DailyReadiness) (float64, bool) {
	if sleep != nil {
		if sleep.TemperatureDeviation != nil {
			return *sleep.TemperatureDeviation, true
		}
		if sleep.AverageTemperatureDeviation != nil {
			return *sleep.AverageTemperatureDeviation, true
		}
	}
	if readiness != nil && readiness.TemperatureDeviation != nil {
		return *readiness.TemperatureDeviation, true
	}
	return 0, false
}

func TemperatureSection(deviation float64) models.Section {
	color := models.ColorTeal
	switch {
	case deviation >= 0.5:
		color = models.ColorCoral
	case deviation >= 0.2:
		color = models.ColorYellow
	}
	return models.Section{
		Title: ":thermometer: Body temperature deviation",
		Description: fmt.Sprintf("Average deviation: **%+.2f°C**\n"+
			"(Offset from your baseline. Positive is slightly warmer, negative slightly cooler.)", deviation),
		Color: color,
	}
}

// WorkoutSection lists up to ten workouts of one day.
func WorkoutSection(day time.Time, workouts []models.Workout, loc *time.Location) models.Section {
	if len(workouts) > maxWorkouts {
		workouts = workouts[:maxWorkouts]
	}

	lines := make([]string, 0, len(workouts))
	for i := range workouts {
		w := &workouts[i]
		line := "**" + w.Name() + "**"
		if w.StartDatetime != "" {
			line += " " + FormatTimeFromISO(w.StartDatetime, loc)
		}
		if w.EndDatetime != "" {
			line += " → " + FormatTimeFromISO(w.EndDatetime, loc)
		}

		var details []string
		if d := w.Duration(); d > 0 {
			details = append(details, FormatDuration(int(d.Seconds())))
		}
		if w.Calories != nil && *w.Calories > 0 {
			details = append(details, fmt.Sprintf("%.0f kcal", *w.Calories))
		}
		if models.Truthy(w.AverageHeartRate) {
			details = append(details, fmt.Sprintf("avg %d bpm", *w.AverageHeartRate))
		}
		if len(details) > 0 {
			line += "\n  " + strings.Join(details, " / ")
		}
		lines = append(lines, line)
	}

	return models.Section{
		Title:       fmt.Sprintf(":runner: Workouts on %d/%d", day.Month(), day.Day()),
		Description: strings.Join(lines, "\n\n"),
		Color:       models.ColorBlue,
	}
}

func periodRange(p *models.PeriodData) string {
	return FormatShortDate(p.StartDate) + " ~ " + FormatShortDate(p.EndDate)
}

// WeeklySection renders per-day scores, averages and, when prev is given,
// the change against the previous week.
func WeeklySection(week, prev *models.PeriodData) models.Section {
	section := models.Section{
		Title: fmt.Sprintf(":calendar: Weekly summary (%s)", periodRange(week)),
		Color: models.ColorTeal,
	}

	avg := week.Averages()
	var desc []string
	if avg.Sleep != nil {
		desc = append(desc, fmt.Sprintf("Sleep score avg: %.1f", *avg.Sleep))
	}
	if avg.Readiness != nil {
		desc = append(desc, fmt.Sprintf("Readiness avg: %.1f", *avg.Readiness))
	}
	if avg.Activity != nil {
		desc = append(desc, fmt.Sprintf("Activity score avg: %.1f", *avg.Activity))
	}
	if avg.Steps != nil {
		desc = append(desc, fmt.Sprintf("Average steps: %s", FormatNumber(int(math.Round(*avg.Steps)))))
	}
	desc = append(desc, fmt.Sprintf("Total steps: %s", FormatNumber(week.TotalSteps)))
	section.Description = strings.Join(desc, "\n")

	var days []string
	for _, d := range week.Daily {
		var parts []string
		if d.SleepScore != nil {
			parts = append(parts, fmt.Sprintf("Sleep %d", *d.SleepScore))
		}
		if d.ReadinessScore != nil {
			parts = append(parts, fmt.Sprintf("Readiness %d", *d.ReadinessScore))
		}
		if d.ActivityScore != nil {
			parts = append(parts, fmt.Sprintf("Activity %d", *d.ActivityScore))
		}
		if d.Steps != nil {
			parts = append(parts, "Steps "+FormatNumber(*d.Steps))
		}
		if len(parts) > 0 {
			days = append(days, fmt.Sprintf("**%s**: %s", FormatShortDate(d.Date), strings.Join(parts, " / ")))
		}
	}
	if len(days) > 0 {
		section.AddField(":spiral_calendar_pad: Daily scores", strings.Join(days, "\n"), false)
	}

	if prev != nil {
		prevAvg := prev.Averages()
		var trend []string
		for _, m := range []struct {
			label     string
			cur, prev *float64
		}{
			{"Sleep", avg.Sleep, prevAvg.Sleep},
			{"Readiness", avg.Readiness, prevAvg.Readiness},
			{"Activity", avg.Activity, prevAvg.Activity},
		} {
			if m.cur != nil && m.prev != nil {
				trend = append(trend, fmt.Sprintf("%s: %.1f (%+.1fpt vs last week)", m.label, *m.cur, *m.cur-*m.prev))
			}
		}
		if avg.Steps != nil && prevAvg.Steps != nil {
			trend = append(trend, fmt.Sprintf("Steps: %s (%s vs last week)",
				FormatNumber(int(math.Round(*avg.Steps))), signedNumber(int(math.Round(*avg.Steps-*prevAvg.Steps)))))
		}
		if len(trend) > 0 {
			section.AddField(":chart_with_upwards_trend: Compared with last week", strings.Join(trend, "\n"), false)
		}
	}
	return section
}

func statsValue(s models.Stats) string {
	return fmt.Sprintf("Avg: **%.1f**\nHigh: %d / Low: %d\nDays: %d", *s.Avg, *s.Max, *s.Min, s.Count)
}

// MonthlySection renders the per-metric statistics of a period and the
// number of days the step goal was reached.
func MonthlySection(p *models.PeriodData, goal int) models.Section {
	section := models.Section{
		Title:  fmt.Sprintf(":calendar: %d-day summary (%s)", p.Days, periodRange(p)),
		Color:  models.ColorTeal,
		Footer: "Use /graph to see the trend",
	}
	if p.Sleep.Avg != nil {
		section.AddField(":zzz: Sleep score", statsValue(p.Sleep), true)
	}
	if p.Readiness.Avg != nil {
		section.AddField(":zap: Readiness", statsValue(p.Readiness), true)
	}
	if p.Activity.Avg != nil {
		section.AddField(":running: Activity score", statsValue(p.Activity), true)
	}
	if p.Steps.Avg != nil {
		section.AddField(":footprints: Steps", fmt.Sprintf("Avg: **%s** steps/day\nTotal: %s steps\nGoal reached: %d/%d days",
			FormatNumber(int(math.Round(*p.Steps.Avg))), FormatNumber(p.TotalSteps), p.GoalDays(goal), p.Steps.Count), true)
	}
	if len(section.Fields) == 0 {
		section.Description = "No data available"
	}
	return section
}

// AdviceSection wraps generated advice with a footer summarising the
// inputs that were present.
func AdviceSection(in AdviceInput) models.Section {
	section := models.Section{
		Title:       ":bulb: Today's advice",
		Description: GenerateAdvice(in),
		Color:       models.ColorTeal,
	}
	var summary []string
	if models.Truthy(in.Readiness) {
		summary = append(summary, fmt.Sprintf("Readiness: %d", *in.Readiness))
	}
	if models.Truthy(in.Sleep) {
		summary = append(summary, fmt.Sprintf("Sleep: %d", *in.Sleep))
	}
	if models.Truthy(in.Steps) {
		summary = append(summary, "Steps: "+FormatNumber(*in.Steps))
	}
	section.Footer = strings.Join(summary, " | ")
	return section
}

func enabledLabel(enabled bool) string {
	if enabled {
		return "Enabled"
	}
	return "Disabled"
}

func channelLabel(id *models.ChannelID) string {
	if id == nil || *id == "" {
		return "Not set"
	}
	return id.Mention()
}

func SettingsSection(s models.Settings) models.Section {
	section := models.Section{Title: ":gear: Current settings", Color: models.ColorBlurple}
	section.AddField(":footprints: Steps goal", FormatNumber(s.StepsGoal)+" steps", true)
	section.AddField(":crescent_moon: Bedtime reminder", fmt.Sprintf("Status: %s\nTime: %s\nChannel: %s",
		enabledLabel(s.BedtimeReminderEnabled), s.BedtimeReminderTime, channelLabel(s.BedtimeReminderChannelID)), false)
	section.AddField(":tada: Goal notification", fmt.Sprintf("Status: %s\nChannel: %s",
		enabledLabel(s.GoalNotificationEnabled), channelLabel(s.GoalNotificationChannelID)), false)
	if s.UpdatedAt != nil && !s.UpdatedAt.IsZero() {
		section.Footer = "Last updated: " + s.UpdatedAt.Format(time.RFC3339)
	}
	return section
}

func HelpSection() models.Section {
	section := models.Section{
		Title:       ":book: Oura Bot help",
		Description: "Check your Oura Ring data from Discord.",
		Color:       models.ColorBlurple,
	}
	section.AddField(":zzz: Data", "`/sleep` - Sleep score (several days: `/sleep 3`)\n"+
		"`/readiness` - Readiness with HRV\n"+
		"`/activity` - Activity data\n"+
		"`/steps` - Today's steps\n"+
		"`/temperature` - Body temperature deviation\n"+
		"`/workout` - Workout history", true)
	section.AddField(":chart_with_upwards_trend: Reports", "`/report morning` - Morning report\n"+
		"`/report noon` - Midday report\n"+
		"`/report night` - Night report\n"+
		"`/week` - Weekly summary vs last week\n"+
		"`/month` - Monthly summary\n"+
		"`/graph` - Trend chart", true)
	section.AddField(":gear: Settings", "`/goal <steps>` - Change the steps goal\n"+
		"`/settings` - Show settings\n"+
		"`/bedtime_reminder` - Bedtime reminder\n"+
		"`/goal_notification` - Goal notification\n"+
		"`/advice` - Advice", true)
	section.AddField(":speech_balloon: Natural language", "Mention the bot and just ask.\n"+
		"e.g. `@OuraBot 睡眠スコアは？`", false)
	return section
}
