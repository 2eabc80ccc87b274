package services

import (
	"fmt"
	"strings"

	"github.com/huangang/ouranotify/internal/models"
)

// Graph kinds accepted by GraphSection.
const (
	GraphScores   = "scores"
	GraphSteps    = "steps"
	GraphCombined = "combined"
)

var sparkLevels = []rune("▁▂▃▄▅▆▇█")

const (
	sparkFloor   = 50
	sparkMissing = '·'

	// maxStepRows caps the per-day step bars; longer spans are bucketed by week.
	maxStepRows = 31
)

// Sparkline maps each value to one block character scaled between lo and
// hi. Missing values render as a dot.
func Sparkline(values []*int, lo, hi int) string {
	var b strings.Builder
	span := hi - lo
	for _, v := range values {
		if v == nil {
			b.WriteRune(sparkMissing)
			continue
		}
		level := 0
		if span > 0 {
			level = (*v - lo) * (len(sparkLevels) - 1) / span
		}
		if level < 0 {
			level = 0
		}
		if level >= len(sparkLevels) {
			level = len(sparkLevels) - 1
		}
		b.WriteRune(sparkLevels[level])
	}
	return b.String()
}

func scoreColumn(p *models.PeriodData, pick func(models.DayComposite) *int) []*int {
	out := make([]*int, len(p.Daily))
	for i, d := range p.Daily {
		if v := pick(d); models.Truthy(v) {
			out[i] = v
		}
	}
	return out
}

func scoreField(label string, values []*int, stats models.Stats) models.Field {
	value := "`" + Sparkline(values, sparkFloor, 100) + "`"
	if stats.Avg != nil {
		value += fmt.Sprintf("\navg %.1f (%d–%d)", *stats.Avg, *stats.Min, *stats.Max)
	} else {
		value += "\nno data"
	}
	return models.Field{Name: label, Value: value}
}

func maxSteps(p *models.PeriodData, goal int) int {
	hi := goal
	if p.Steps.Max != nil && *p.Steps.Max > hi {
		hi = *p.Steps.Max
	}
	return hi
}

type stepRow struct {
	label string
	steps int
	ok    bool
}

// stepRows returns one row per day, or weekly averages when the span is
// longer than maxStepRows days.
func stepRows(p *models.PeriodData) []stepRow {
	if len(p.Daily) <= maxStepRows {
		rows := make([]stepRow, len(p.Daily))
		for i, d := range p.Daily {
			rows[i] = stepRow{label: FormatShortDate(d.Date), steps: models.IntOr(d.Steps, 0), ok: models.Truthy(d.Steps)}
		}
		return rows
	}

	var rows []stepRow
	for i := 0; i < len(p.Daily); i += 7 {
		end := i + 7
		if end > len(p.Daily) {
			end = len(p.Daily)
		}
		sum, n := 0, 0
		for _, d := range p.Daily[i:end] {
			if models.Truthy(d.Steps) {
				sum += *d.Steps
				n++
			}
		}
		row := stepRow{label: FormatShortDate(p.Daily[i].Date) + "~"}
		if n > 0 {
			row.steps, row.ok = sum/n, true
		}
		rows = append(rows, row)
	}
	return rows
}

func stepsChart(p *models.PeriodData, goal int) string {
	hi := maxSteps(p, goal)
	var lines []string
	for _, r := range stepRows(p) {
		if !r.ok {
			lines = append(lines, fmt.Sprintf("`%-7s` `%s` -", r.label, strings.Repeat(" ", 10)))
			continue
		}
		percent := 0.0
		if hi > 0 {
			percent = float64(r.steps) / float64(hi) * 100
		}
		mark := ""
		if r.steps >= goal {
			mark = " :white_check_mark:"
		}
		lines = append(lines, fmt.Sprintf("`%-7s` `%s` %s%s", r.label, ProgressBar(percent), FormatNumber(r.steps), mark))
	}
	return strings.Join(lines, "\n")
}

// GraphSection renders the period as a text chart. Unknown kinds fall back
// to the combined view.
func GraphSection(p *models.PeriodData, kind string, goal int) models.Section {
	span := fmt.Sprintf("%s (%d days)", periodRange(p), p.Days)
	section := models.Section{Color: models.ColorTeal}

	scores := func() {
		section.Fields = append(section.Fields,
			scoreField(":zzz: Sleep", scoreColumn(p, func(d models.DayComposite) *int { return d.SleepScore }), p.Sleep),
			scoreField(":zap: Readiness", scoreColumn(p, func(d models.DayComposite) *int { return d.ReadinessScore }), p.Readiness),
			scoreField(":running: Activity", scoreColumn(p, func(d models.DayComposite) *int { return d.ActivityScore }), p.Activity),
		)
	}

	switch kind {
	case GraphScores:
		section.Title = ":chart_with_upwards_trend: Score trend - " + span
		scores()
	case GraphSteps:
		section.Title = ":footprints: Steps trend - " + span
		section.Description = stepsChart(p, goal)
		section.Footer = fmt.Sprintf("Goal %s steps, reached on %d days", FormatNumber(goal), p.GoalDays(goal))
	default:
		section.Title = ":bar_chart: Summary - " + span
		scores()
		steps := scoreColumn(p, func(d models.DayComposite) *int { return d.Steps })
		section.Fields = append(section.Fields, models.Field{
			Name:  ":footprints: Steps",
			Value: "`" + Sparkline(steps, 0, maxSteps(p, goal)) + "`\n" + fmt.Sprintf("goal reached on %d/%d days", p.GoalDays(goal), p.Days),
		})
	}
	return section
}
