package services

import (
	"fmt"
	"math"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/huangang/ouranotify/internal/models"
)

// Active-day pacing window used by the midday check.
const (
	ActiveDayStartHour = 8
	ActiveDayHours     = 15
	// NoonPaceRatio is the share of the expected steps below which the
	// midday reminder fires.
	NoonPaceRatio = 0.7
	// LowScoreThreshold drives the night wind-down advice.
	LowScoreThreshold = 70
	// DefaultScore stands in for a missing readiness or sleep score.
	DefaultScore = 70
	DefaultBedtime = "23:00"
)

var numberPrinter = message.NewPrinter(language.English)

// FormatNumber renders n with thousands separators.
func FormatNumber(n int) string {
	return numberPrinter.Sprintf("%d", n)
}

func ScoreEmoji(score int) string {
	switch {
	case score >= 85:
		return ":green_circle:"
	case score >= 70:
		return ":yellow_circle:"
	default:
		return ":red_circle:"
	}
}

func ScoreLabel(score int) string {
	switch {
	case score >= 85:
		return "Excellent"
	case score >= 70:
		return "Good"
	case score >= 60:
		return "Fair"
	default:
		return "Poor"
	}
}

func ScoreColor(score int) int {
	switch {
	case score >= 85:
		return models.ColorGreen
	case score >= 70:
		return models.ColorYellow
	default:
		return models.ColorRed
	}
}

// ComparisonEmoji compares two scores with a ±3 dead band.
func ComparisonEmoji(current, previous int) string {
	diff := current - previous
	switch {
	case diff > 3:
		return ":arrow_up:"
	case diff < -3:
		return ":arrow_down:"
	default:
		return ":arrow_right:"
	}
}

// FormatComparison renders the day-over-day delta, or "" without a
// previous value.
func FormatComparison(current int, previous *int) string {
	if previous == nil {
		return ""
	}
	return fmt.Sprintf("%s %+d vs previous day", ComparisonEmoji(current, *previous), current-*previous)
}

// FormatWeeklyTrend renders the deviation from the weekly average, or ""
// without an average.
func FormatWeeklyTrend(current int, average *float64) string {
	if average == nil {
		return ""
	}
	diff := float64(current) - *average
	switch {
	case diff > 5:
		return fmt.Sprintf(":chart_with_upwards_trend: above weekly average (%.1f)", *average)
	case diff < -5:
		return fmt.Sprintf(":chart_with_downwards_trend: below weekly average (%.1f)", *average)
	default:
		return fmt.Sprintf(":left_right_arrow: in line with weekly average (%.1f)", *average)
	}
}

// FormatDuration renders seconds as "1h 30m", or "30m" under an hour.
func FormatDuration(seconds int) string {
	hours := seconds / 3600
	minutes := (seconds % 3600) / 60
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	return fmt.Sprintf("%dm", minutes)
}

// StressSummary renders the day summary with the high-stress and
// high-recovery time, e.g. "restored (stress 45m, recovery 2h 0m)".
func StressSummary(s *models.DailyStress) string {
	summary := "unknown"
	if s.DaySummary != nil && *s.DaySummary != "" {
		summary = *s.DaySummary
	}
	var parts []string
	if s.StressHigh != nil {
		parts = append(parts, "stress "+FormatDuration(*s.StressHigh))
	}
	if s.RecoveryHigh != nil {
		parts = append(parts, "recovery "+FormatDuration(*s.RecoveryHigh))
	}
	if len(parts) == 0 {
		return summary
	}
	return summary + " (" + strings.Join(parts, ", ") + ")"
}

// FormatTimeFromISO converts an ISO 8601 timestamp to HH:MM in loc.
func FormatTimeFromISO(iso string, loc *time.Location) string {
	if iso == "" {
		return "unknown"
	}
	t, err := time.Parse(time.RFC3339, iso)
	if err != nil {
		t, err = time.ParseInLocation("2006-01-02T15:04:05", iso, loc)
		if err != nil {
			return "unknown"
		}
	}
	return t.In(loc).Format("15:04")
}

// FormatShortDate renders a YYYY-MM-DD day as M/D.
func FormatShortDate(day string) string {
	t, err := time.Parse(models.DateLayout, day)
	if err != nil {
		return day
	}
	return fmt.Sprintf("%d/%d", t.Month(), t.Day())
}

// ProgressBar renders a 10-cell bar for percent in [0, 100+].
func ProgressBar(percent float64) string {
	const width = 10
	filled := int(percent / 10)
	if filled < 0 {
		filled = 0
	}
	if filled > width {
		filled = width
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

// Policy is the recommendation of the day derived from readiness.
type Policy struct {
	Label   string
	Message string
	Color   int
}

func TodayPolicy(readiness int) Policy {
	switch {
	case readiness >= 85:
		return Policy{":fire: Push forward", "You're in great shape. Be active today!", models.ColorGreen}
	case readiness >= 70:
		return Policy{":arrows_counterclockwise: Maintain pace", "Keep to your usual pace today.", models.ColorYellow}
	default:
		return Policy{":battery: Prioritize recovery", "Take it easy and put rest first.", models.ColorRed}
	}
}

// Annotations carry the optional comparison context of a section.
type Annotations struct {
	Previous      *int
	WeeklyAverage *float64
}

func (a Annotations) lines(score int) string {
	var out []string
	if c := FormatComparison(score, a.Previous); c != "" {
		out = append(out, "└ "+c)
	}
	if w := FormatWeeklyTrend(score, a.WeeklyAverage); w != "" {
		out = append(out, "└ "+w)
	}
	if len(out) == 0 {
		return ""
	}
	return "\n" + strings.Join(out, "\n")
}

func scoreLine(score int) string {
	return fmt.Sprintf("**Score: %d** %s (%s)", score, ScoreEmoji(score), ScoreLabel(score))
}

func noDataSection(title string) models.Section {
	return models.Section{Title: title, Description: "No data available", Color: models.ColorGray}
}

// SleepSection renders the daily sleep score and, when present, the
// session details.
func SleepSection(sleep *models.DailySleep, detail *models.SleepDetail, ann Annotations, loc *time.Location) models.Section {
	const title = ":zzz: Sleep"
	if sleep == nil {
		return noDataSection(title)
	}

	score := models.IntOr(sleep.Score, 0)
	section := models.Section{
		Title:       title,
		Description: scoreLine(score) + ann.lines(score),
		Color:       ScoreColor(score),
	}

	if detail != nil {
		if detail.BedtimeStart != "" && detail.BedtimeEnd != "" {
			section.AddField(":clock10: Bedtime → Wake",
				FormatTimeFromISO(detail.BedtimeStart, loc)+" → "+FormatTimeFromISO(detail.BedtimeEnd, loc), true)
		}
		if models.Truthy(detail.TotalSleepDuration) {
			section.AddField(":bed: Total sleep", FormatDuration(*detail.TotalSleepDuration), true)
		}
		if models.Truthy(detail.DeepSleepDuration) {
			section.AddField(":new_moon: Deep sleep", FormatDuration(*detail.DeepSleepDuration), true)
		}
		if models.Truthy(detail.RemSleepDuration) {
			section.AddField(":crescent_moon: REM sleep", FormatDuration(*detail.RemSleepDuration), true)
		}
		if models.Truthy(detail.LowestHeartRate) {
			section.AddField(":heart: Lowest heart rate", fmt.Sprintf("%d bpm", *detail.LowestHeartRate), true)
		}
		if detail.AverageHRV != nil && *detail.AverageHRV != 0 {
			section.AddField(":chart_with_upwards_trend: Average HRV", fmt.Sprintf("%.0f ms", *detail.AverageHRV), true)
		}
	}
	return section
}

func ReadinessSection(readiness *models.DailyReadiness, ann Annotations) models.Section {
	const title = ":zap: Readiness"
	if readiness == nil {
		return noDataSection(title)
	}

	score := models.IntOr(readiness.Score, 0)
	section := models.Section{
		Title:       title,
		Description: scoreLine(score) + ann.lines(score),
		Color:       ScoreColor(score),
	}

	c := readiness.Contributors
	if models.Truthy(c.RecoveryIndex) {
		section.AddField(":heartpulse: Recovery index", fmt.Sprintf("Score: %d", *c.RecoveryIndex), true)
	}
	if models.Truthy(c.RestingHeartRate) {
		section.AddField(":heart: Resting heart rate", fmt.Sprintf("Score: %d", *c.RestingHeartRate), true)
	}
	if models.Truthy(c.HRVBalance) {
		section.AddField(":chart_with_upwards_trend: HRV balance", fmt.Sprintf("Score: %d", *c.HRVBalance), true)
	}
	return section
}

// PolicySection renders the recommendation of the day. On a rest day the
// message suggests planned downtime.
func PolicySection(readiness int, restDay bool) models.Section {
	p := TodayPolicy(readiness)
	msg := p.Message
	if restDay {
		msg += "\n:palm_tree: It's a day off, so make room for real downtime."
	}
	return models.Section{
		Title:       ":dart: Today's policy: " + p.Label,
		Description: msg,
		Color:       p.Color,
	}
}

type MorningInput struct {
	Date          string
	Sleep         *models.DailySleep
	SleepDetail   *models.SleepDetail
	Readiness     *models.DailyReadiness
	PrevSleep     *int
	PrevReadiness *int
	Weekly        *models.Averages
	RestDay       bool
}

// MorningReport builds sleep, readiness and policy sections. A missing
// readiness falls back to the neutral policy.
func MorningReport(in MorningInput, loc *time.Location) (string, []models.Section) {
	date := in.Date
	if date == "" {
		date = "unknown"
	}
	title := fmt.Sprintf(":sunrise: **Good morning!** (%s)", date)

	var sleepAvg, readinessAvg *float64
	if in.Weekly != nil {
		sleepAvg, readinessAvg = in.Weekly.Sleep, in.Weekly.Readiness
	}

	readinessScore := DefaultScore
	if in.Readiness != nil && in.Readiness.Score != nil {
		readinessScore = *in.Readiness.Score
	}

	policy := PolicySection(readinessScore, in.RestDay)
	if in.Readiness != nil {
		policy.Footer = QuickTip(in.Readiness.Score)
	}

	sections := []models.Section{
		SleepSection(in.Sleep, in.SleepDetail, Annotations{Previous: in.PrevSleep, WeeklyAverage: sleepAvg}, loc),
		ReadinessSection(in.Readiness, Annotations{Previous: in.PrevReadiness, WeeklyAverage: readinessAvg}),
		policy,
	}
	return title, sections
}

// ElapsedActiveHours is the time since the start of the active day,
// clamped to the window.
func ElapsedActiveHours(now time.Time) float64 {
	elapsed := float64(now.Hour()) + float64(now.Minute())/60 - ActiveDayStartHour
	return math.Max(0, math.Min(ActiveDayHours, elapsed))
}

// ExpectedSteps is the linear pacing target after elapsedHours of the
// active day.
func ExpectedSteps(goal int, elapsedHours float64) int {
	elapsedHours = math.Max(0, math.Min(ActiveDayHours, elapsedHours))
	return int(float64(goal) * elapsedHours / ActiveDayHours)
}

// BehindPace reports whether steps fall under the reminder threshold.
func BehindPace(steps, goal int, elapsedHours float64) bool {
	return float64(steps) < NoonPaceRatio*float64(ExpectedSteps(goal, elapsedHours))
}

type NoonInput struct {
	Activity    *models.DailyActivity
	Sleep       *models.DailySleep
	SleepDetail *models.SleepDetail
	StepsGoal   int
	Now         time.Time
}

// NoonReport decides whether the midday message is worth sending. It fires
// when a same-day sleep summary exists or the steps are behind pace.
func NoonReport(in NoonInput, loc *time.Location) (string, []models.Section, bool) {
	if in.Activity == nil && in.Sleep == nil {
		return "", nil, false
	}

	var sections []models.Section
	behind := false

	if in.Activity != nil {
		steps := models.IntOr(in.Activity.Steps, 0)
		elapsed := ElapsedActiveHours(in.Now.In(loc))
		if BehindPace(steps, in.StepsGoal, elapsed) {
			behind = true
			sections = append(sections, StepsPaceSection(steps, in.StepsGoal, ExpectedSteps(in.StepsGoal, elapsed)))
		}
	}

	if in.Sleep != nil {
		sections = append(sections, SleepSection(in.Sleep, in.SleepDetail, Annotations{}, loc))
	}

	if len(sections) == 0 {
		return "", nil, false
	}

	title := ":sun_with_face: **Midday check-in**"
	if behind {
		title = ":walking: **Activity reminder**"
	}
	return title, sections, true
}

// StepsPaceSection renders the midday progress against the pacing target.
func StepsPaceSection(steps, goal, expected int) models.Section {
	percent := 0.0
	if goal > 0 {
		percent = float64(steps) / float64(goal) * 100
	}
	section := models.Section{
		Title: ":footprints: Step progress",
		Description: fmt.Sprintf("**%s / %s steps** (%.0f%%)\n`%s`",
			FormatNumber(steps), FormatNumber(goal), percent, ProgressBar(percent)),
		Color: models.ColorOrange,
	}
	section.AddField(":chart_with_downwards_trend: Target pace", FormatNumber(expected)+" steps", true)
	section.AddField(":warning: Gap", "-"+FormatNumber(expected-steps)+" steps", true)
	section.AddField(":bulb: Do it now", "Walk for 10 minutes (~1,000 steps)", false)
	return section
}

type NightInput struct {
	Readiness      *models.DailyReadiness
	Sleep          *models.DailySleep
	Activity       *models.DailyActivity
	PrevActivity   *models.DailyActivity
	Weekly         *models.Averages
	TargetWakeTime string
}

// NightReport builds the day result (when activity exists) and the
// wind-down section. Missing scores count as DefaultScore.
func NightReport(in NightInput) (string, []models.Section) {
	readiness, sleep := DefaultScore, DefaultScore
	if in.Readiness != nil && in.Readiness.Score != nil {
		readiness = *in.Readiness.Score
	}
	if in.Sleep != nil && in.Sleep.Score != nil {
		sleep = *in.Sleep.Score
	}

	title := ":night_with_stars: **Great work today!**"
	var sections []models.Section

	if in.Activity != nil {
		score := models.IntOr(in.Activity.Score, 0)
		steps := models.IntOr(in.Activity.Steps, 0)

		ann := Annotations{}
		var stepsAvg *float64
		if in.PrevActivity != nil {
			ann.Previous = in.PrevActivity.Score
		}
		if in.Weekly != nil {
			ann.WeeklyAverage = in.Weekly.Activity
			stepsAvg = in.Weekly.Steps
		}

		stepsValue := FormatNumber(steps) + " steps"
		if in.PrevActivity != nil && in.PrevActivity.Steps != nil {
			stepsValue += fmt.Sprintf(" (%s vs yesterday)", signedNumber(steps-*in.PrevActivity.Steps))
		}
		if stepsAvg != nil {
			stepsValue += fmt.Sprintf("\nweekly avg %s", FormatNumber(int(math.Round(*stepsAvg))))
		}

		section := models.Section{
			Title:       ":bar_chart: Today's results",
			Description: fmt.Sprintf("**Activity score: %d** %s", score, ScoreEmoji(score)) + ann.lines(score),
			Color:       models.ColorBlue,
		}
		section.AddField(":footprints: Steps", stepsValue, true)
		section.AddField(":fire: Active calories", FormatNumber(models.IntOr(in.Activity.ActiveCalories, 0))+" kcal", true)
		section.AddField(":zap: Readiness", fmt.Sprintf("%d", readiness), true)
		sections = append(sections, section)
	}

	sections = append(sections, WindDownSection(readiness, sleep, in.TargetWakeTime))
	return title, sections
}

// WindDownSection recommends an 8 hour bedtime when either score is low,
// otherwise a calmer 7.5 hour one.
func WindDownSection(readiness, sleep int, wake string) models.Section {
	if readiness < LowScoreThreshold || sleep < LowScoreThreshold {
		return models.Section{
			Title: ":bed: Wind down (90 min before bed)",
			Description: fmt.Sprintf(":warning: **Go to bed early tonight**\n"+
				"└ Readiness: %d / Last night's sleep: %d\n\n"+
				":moon: **Do this now**\n"+
				"1. Turn off your phone and PC\n"+
				"2. Dim the lights\n"+
				"3. Target bedtime: **%s**", readiness, sleep, TargetBedtime(wake, 8, 30)),
			Color: models.ColorSoftRed,
		}
	}
	return models.Section{
		Title: ":bed: Wind down (90 min before bed)",
		Description: fmt.Sprintf(":sparkles: You're in good shape\n\n"+
			":moon: **Wind-down routine**\n"+
			"1. Turn off your phone and PC\n"+
			"2. Dim the lights\n"+
			"3. Relax and aim for bed around **%s**", TargetBedtime(wake, 7.5, 30)),
		Color: models.ColorPurple,
	}
}

// TargetBedtime subtracts the sleep duration and wind-down buffer from the
// wake time, wrapping around midnight. A malformed wake time yields
// DefaultBedtime.
func TargetBedtime(wake string, sleepHours float64, windDownMinutes int) string {
	t, err := ParseTimeOfDay(wake)
	if err != nil {
		return DefaultBedtime
	}
	const day = 24 * 60
	minutes := t.Minutes() - int(math.Round(sleepHours*60)) - windDownMinutes
	minutes = ((minutes % day) + day) % day
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// AlertMessage returns warning lines for a low sleep or readiness score,
// or "" when nothing is low.
func AlertMessage(sleep *models.DailySleep, readiness *models.DailyReadiness) string {
	var alerts []string
	if sleep != nil && sleep.Score != nil && *sleep.Score < 70 {
		alerts = append(alerts, fmt.Sprintf(":warning: Your sleep score is low (%d). Try to rest early today.", *sleep.Score))
	}
	if readiness != nil && readiness.Score != nil && *readiness.Score < 65 {
		alerts = append(alerts, fmt.Sprintf(":warning: Your readiness is low (%d). Don't push yourself today.", *readiness.Score))
	}
	return strings.Join(alerts, "\n")
}

func signedNumber(n int) string {
	if n >= 0 {
		return "+" + FormatNumber(n)
	}
	return "-" + FormatNumber(-n)
}
