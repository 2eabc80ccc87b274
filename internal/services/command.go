package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/huangang/ouranotify/internal/models"
	"github.com/huangang/ouranotify/pkg/logger"
)

const (
	maxSleepDays      = 7
	defaultMonthDays  = 30
	defaultGraphDays  = 14
	minPeriodDays     = 7
	maxPeriodDays     = 90
	maxEmbedsPerReply = 10
)

var (
	ErrGoalOutOfRange = fmt.Errorf("steps goal must be between %s and %s", FormatNumber(models.MinStepsGoal), FormatNumber(models.MaxStepsGoal))
	ErrMissingOption  = errors.New("missing option")
	ErrInvalidOption  = errors.New("invalid option")
	ErrUnknownCommand = errors.New("unknown command")
)

// Command is one slash command invocation. Option values arrive as
// strings whatever their declared type.
type Command struct {
	Name      string            `json:"name"`
	Options   map[string]string `json:"options"`
	ChannelID *models.ChannelID `json:"channel_id,omitempty"`
}

func (c Command) Option(name string) string {
	return strings.TrimSpace(c.Options[name])
}

func (c Command) intOption(name string, def int) (int, error) {
	v := c.Option(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be a number, got %q", ErrInvalidOption, name, v)
	}
	return n, nil
}

func (c Command) boolOption(name string) (bool, error) {
	v := c.Option(name)
	if v == "" {
		return false, fmt.Errorf("%w: %s", ErrMissingOption, name)
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%w: %s must be true or false, got %q", ErrInvalidOption, name, v)
	}
	return b, nil
}

// channel prefers an explicit channel option over the invoking channel.
func (c Command) channel() *models.ChannelID {
	if v := c.Option("channel"); v != "" {
		id := models.ChannelID(v)
		return &id
	}
	return c.ChannelID
}

type commandFunc func(ctx context.Context, cmd Command) (models.Reply, error)

// Dispatcher runs slash commands and free-text messages against the
// upstream data and the settings store.
type Dispatcher struct {
	source   HealthSource
	settings *SettingsManager
	reports  *ReportService
	loc      *time.Location
	now      func() time.Time

	commands map[string]commandFunc
}

func NewDispatcher(source HealthSource, settings *SettingsManager, reports *ReportService, loc *time.Location) *Dispatcher {
	if loc == nil {
		loc = time.Local
	}
	d := &Dispatcher{
		source:   source,
		settings: settings,
		reports:  reports,
		loc:      loc,
		now:      time.Now,
	}
	d.commands = map[string]commandFunc{
		"sleep":             d.sleep,
		"readiness":         d.readiness,
		"activity":          d.activity,
		"steps":             d.steps,
		"temperature":       d.temperature,
		"workout":           d.workout,
		"report":            d.report,
		"advice":            d.advice,
		"week":              d.week,
		"month":             d.month,
		"graph":             d.graph,
		"goal":              d.goal,
		"settings":          d.showSettings,
		"bedtime_reminder":  d.bedtimeReminder,
		"goal_notification": d.goalNotification,
		"help":              d.help,
	}
	return d
}

// Commands lists the supported command names.
func (d *Dispatcher) Commands() []string {
	names := make([]string, 0, len(d.commands))
	for name := range d.commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (d *Dispatcher) today() time.Time {
	return StartOfDay(d.now().In(d.loc))
}

// Execute never fails: errors become ":x:" replies.
func (d *Dispatcher) Execute(ctx context.Context, cmd Command) models.Reply {
	fn, ok := d.commands[strings.ToLower(cmd.Name)]
	if !ok {
		return errorReply(fmt.Errorf("%w: /%s", ErrUnknownCommand, cmd.Name))
	}
	logger.Debug().Str("command", cmd.Name).Interface("options", cmd.Options).Msg("[Command] execute")

	reply, err := fn(ctx, cmd)
	if err != nil {
		return errorReply(err)
	}
	return reply
}

func errorReply(err error) models.Reply {
	switch {
	case errors.Is(err, ErrInvalidDate), errors.Is(err, ErrInvalidTime), errors.Is(err, ErrGoalOutOfRange),
		errors.Is(err, ErrMissingOption), errors.Is(err, ErrInvalidOption), errors.Is(err, ErrUnknownCommand):
		return models.TextReply(":x: " + capitalize(err.Error()))
	}
	logger.Errorf("[Command] %v", err)
	return models.TextReply(":x: Something went wrong: " + err.Error())
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func warning(format string, args ...interface{}) models.Reply {
	return models.TextReply(":warning: " + fmt.Sprintf(format, args...))
}

func clampDays(n int) int {
	if n < minPeriodDays {
		return minPeriodDays
	}
	if n > maxPeriodDays {
		return maxPeriodDays
	}
	return n
}

func (d *Dispatcher) dateOption(cmd Command, def time.Time) (time.Time, error) {
	return ParseDate(cmd.Option("date"), d.today(), def)
}

func (d *Dispatcher) sleep(ctx context.Context, cmd Command) (models.Reply, error) {
	today := d.today()
	if n, ok := dayCount(cmd.Option("date")); ok {
		return d.sleepDays(ctx, today, n)
	}

	target, err := d.dateOption(cmd, today.AddDate(0, 0, -1))
	if err != nil {
		return models.Reply{}, err
	}
	sleep, err := d.source.GetSleep(ctx, target)
	if err != nil {
		return models.Reply{}, err
	}
	if sleep == nil {
		return warning("No sleep data for %s", target.Format(models.DateLayout)), nil
	}
	detail, err := d.source.GetSleepDetail(ctx, target)
	if err != nil {
		return models.Reply{}, err
	}
	return models.SectionReply("", SleepSection(sleep, detail, Annotations{}, d.loc)), nil
}

// dayCount reads one or two bare digits as a number of days. Longer digit
// strings are dates (MMDD).
func dayCount(s string) (int, bool) {
	if len(s) == 0 || len(s) > 2 {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || strings.HasPrefix(s, "-") || strings.HasPrefix(s, "+") {
		return 0, false
	}
	return n, true
}

// sleepDays lists the last n nights ending yesterday with two range calls.
func (d *Dispatcher) sleepDays(ctx context.Context, today time.Time, n int) (models.Reply, error) {
	if n > maxSleepDays {
		n = maxSleepDays
	}
	start, end := today.AddDate(0, 0, -n), today.AddDate(0, 0, -1)

	sleeps, err := d.source.GetSleepRange(ctx, start, end)
	if err != nil {
		return models.Reply{}, err
	}
	details, err := d.source.GetSleepDetailRange(ctx, start, end)
	if err != nil {
		return models.Reply{}, err
	}

	var sections []models.Section
	for i := 1; i <= n && len(sections) < maxEmbedsPerReply; i++ {
		key := today.AddDate(0, 0, -i).Format(models.DateLayout)
		sleep, ok := sleeps[key]
		if !ok {
			continue
		}
		var detail *models.SleepDetail
		if v, ok := details[key]; ok {
			detail = &v
		}
		section := SleepSection(&sleep, detail, Annotations{}, d.loc)
		section.Title += " " + FormatShortDate(key)
		sections = append(sections, section)
	}
	if len(sections) == 0 {
		return warning("No sleep data available"), nil
	}
	return models.SectionReply(fmt.Sprintf(":zzz: **Sleep over the last %d days**", n), sections...), nil
}

func (d *Dispatcher) readiness(ctx context.Context, cmd Command) (models.Reply, error) {
	target, err := d.dateOption(cmd, d.today())
	if err != nil {
		return models.Reply{}, err
	}
	r, err := d.source.GetReadiness(ctx, target)
	if err != nil {
		return models.Reply{}, err
	}
	if r == nil {
		return warning("No readiness data for %s", target.Format(models.DateLayout)), nil
	}
	section := ReadinessSection(r, Annotations{})

	detail, err := d.source.GetSleepDetail(ctx, target)
	if err != nil {
		return models.Reply{}, err
	}
	if detail != nil && detail.AverageHRV != nil && *detail.AverageHRV != 0 {
		section.AddField(":chart_with_upwards_trend: Average HRV", fmt.Sprintf("%.0f ms", *detail.AverageHRV), true)
	}
	if stress := d.source.GetDailyStress(ctx, target); stress != nil && stress.DaySummary != nil {
		section.AddField(":relieved: Daytime stress", StressSummary(stress), true)
	}
	return models.SectionReply("", section), nil
}

func (d *Dispatcher) activity(ctx context.Context, cmd Command) (models.Reply, error) {
	target, err := d.dateOption(cmd, d.today())
	if err != nil {
		return models.Reply{}, err
	}
	a, err := d.source.GetActivity(ctx, target)
	if err != nil {
		return models.Reply{}, err
	}
	if a == nil {
		return warning("No activity data for %s", target.Format(models.DateLayout)), nil
	}
	return models.SectionReply("", ActivitySection(a)), nil
}

func (d *Dispatcher) steps(ctx context.Context, _ Command) (models.Reply, error) {
	a, err := d.source.GetActivity(ctx, d.today())
	if err != nil {
		return models.Reply{}, err
	}
	if a == nil {
		return warning("No activity data for today yet"), nil
	}
	return models.SectionReply("", StepsSection(models.IntOr(a.Steps, 0), d.settings.StepsGoal())), nil
}

func (d *Dispatcher) temperature(ctx context.Context, cmd Command) (models.Reply, error) {
	target, err := d.dateOption(cmd, d.today().AddDate(0, 0, -1))
	if err != nil {
		return models.Reply{}, err
	}
	sleep, err := d.source.GetSleep(ctx, target)
	if err != nil {
		return models.Reply{}, err
	}
	if sleep == nil {
		return warning("No sleep data for %s", target.Format(models.DateLayout)), nil
	}

	dev, ok := TemperatureDeviation(sleep, nil)
	if !ok {
		readiness, err := d.source.GetReadiness(ctx, target)
		if err != nil {
			return models.Reply{}, err
		}
		dev, ok = TemperatureDeviation(nil, readiness)
	}
	if !ok {
		return warning("No temperature deviation data found"), nil
	}
	return models.SectionReply("", TemperatureSection(dev)), nil
}

func (d *Dispatcher) workout(ctx context.Context, cmd Command) (models.Reply, error) {
	target, err := d.dateOption(cmd, d.today())
	if err != nil {
		return models.Reply{}, err
	}
	workouts, err := d.source.GetWorkouts(ctx, target)
	if err != nil {
		return models.Reply{}, err
	}
	if len(workouts) == 0 {
		return warning("No workouts for %s", target.Format(models.DateLayout)), nil
	}
	return models.SectionReply("", WorkoutSection(target, workouts, d.loc)), nil
}

func (d *Dispatcher) report(ctx context.Context, cmd Command) (models.Reply, error) {
	kindName := cmd.Option("type")
	if kindName == "" {
		kindName = string(ReportMorning)
	}
	kind, err := ParseReportKind(kindName)
	if err != nil {
		return models.TextReply(":x: Unknown report type. Use morning, noon or night."), nil
	}

	now := d.now()
	var (
		title    string
		sections []models.Section
	)
	switch kind {
	case ReportMorning:
		title, sections, err = d.reports.BuildMorning(ctx, now)
	case ReportNoon:
		var send bool
		title, sections, send, err = d.reports.BuildNoon(ctx, now)
		if err == nil && !send {
			return models.TextReply(":white_check_mark: On track! Nothing to report."), nil
		}
	case ReportNight:
		title, sections, err = d.reports.BuildNight(ctx, now)
	}
	if err != nil {
		return models.Reply{}, err
	}
	return models.SectionReply(title, sections...), nil
}

func (d *Dispatcher) adviceInput(ctx context.Context) (AdviceInput, error) {
	today := d.today()
	in := AdviceInput{StepsGoal: d.settings.StepsGoal()}

	readiness, err := d.source.GetReadiness(ctx, today)
	if err != nil {
		return in, err
	}
	sleep, err := d.source.GetSleep(ctx, today)
	if err != nil {
		return in, err
	}
	activity, err := d.source.GetActivity(ctx, today)
	if err != nil {
		return in, err
	}

	if readiness != nil {
		in.Readiness = readiness.Score
	}
	if sleep != nil {
		in.Sleep = sleep.Score
	}
	if activity != nil {
		in.Activity = activity.Score
		in.Steps = activity.Steps
	}
	return in, nil
}

func (d *Dispatcher) advice(ctx context.Context, _ Command) (models.Reply, error) {
	in, err := d.adviceInput(ctx)
	if err != nil {
		return models.Reply{}, err
	}
	return models.SectionReply("", AdviceSection(in)), nil
}

func (d *Dispatcher) week(ctx context.Context, cmd Command) (models.Reply, error) {
	end, err := d.dateOption(cmd, d.today())
	if err != nil {
		return models.Reply{}, err
	}
	week, err := d.source.GetWeekly(ctx, end)
	if err != nil {
		return models.Reply{}, err
	}
	prev, err := d.source.GetWeekly(ctx, end.AddDate(0, 0, -7))
	if err != nil {
		logger.Warnf("[Command] Failed to fetch the previous week: %v", err)
		prev = nil
	}
	return models.SectionReply("", WeeklySection(week, prev)), nil
}

func (d *Dispatcher) month(ctx context.Context, cmd Command) (models.Reply, error) {
	days, err := cmd.intOption("days", defaultMonthDays)
	if err != nil {
		return models.Reply{}, err
	}
	p, err := d.source.GetMonthly(ctx, d.today(), clampDays(days))
	if err != nil {
		return models.Reply{}, err
	}
	return models.SectionReply("", MonthlySection(p, d.settings.StepsGoal())), nil
}

func (d *Dispatcher) graph(ctx context.Context, cmd Command) (models.Reply, error) {
	days, err := cmd.intOption("days", defaultGraphDays)
	if err != nil {
		return models.Reply{}, err
	}
	kind := cmd.Option("type")
	if kind == "" {
		kind = GraphCombined
	}
	p, err := d.source.GetMonthly(ctx, d.today(), clampDays(days))
	if err != nil {
		return models.Reply{}, err
	}
	if len(p.Daily) == 0 {
		return warning("No data available"), nil
	}
	return models.SectionReply("", GraphSection(p, kind, d.settings.StepsGoal())), nil
}

func (d *Dispatcher) setGoal(goal int) (models.Reply, error) {
	if goal < models.MinStepsGoal || goal > models.MaxStepsGoal {
		return models.Reply{}, ErrGoalOutOfRange
	}
	old := d.settings.StepsGoal()
	if err := d.settings.SetStepsGoal(goal); err != nil {
		return models.Reply{}, err
	}
	logger.Infof("[Command] Steps goal changed %d -> %d", old, goal)
	return models.TextReply(fmt.Sprintf(":white_check_mark: Steps goal updated\n**%s** → **%s** steps", FormatNumber(old), FormatNumber(goal))), nil
}

func (d *Dispatcher) goal(_ context.Context, cmd Command) (models.Reply, error) {
	if cmd.Option("value") == "" {
		return models.Reply{}, fmt.Errorf("%w: value", ErrMissingOption)
	}
	goal, err := cmd.intOption("value", 0)
	if err != nil {
		return models.Reply{}, err
	}
	return d.setGoal(goal)
}

func (d *Dispatcher) showSettings(_ context.Context, _ Command) (models.Reply, error) {
	return models.SectionReply("", SettingsSection(d.settings.Get())), nil
}

func destinationLabel(ch *models.ChannelID) string {
	if ch == nil || *ch == "" {
		return "webhook"
	}
	return ch.Mention()
}

func (d *Dispatcher) bedtimeReminder(_ context.Context, cmd Command) (models.Reply, error) {
	enabled, err := cmd.boolOption("enabled")
	if err != nil {
		return models.Reply{}, err
	}
	at := ""
	if raw := cmd.Option("time"); raw != "" {
		tod, err := ParseTimeOfDay(raw)
		if err != nil {
			return models.Reply{}, err
		}
		at = tod.String()
	}

	if err := d.settings.SetBedtimeReminder(enabled, at, cmd.channel()); err != nil {
		return models.Reply{}, err
	}
	br := d.settings.BedtimeReminder()
	return models.TextReply(fmt.Sprintf(":white_check_mark: Bedtime reminder %s\nTime: **%s**\nChannel: %s",
		strings.ToLower(enabledLabel(enabled)), br.Time, destinationLabel(br.ChannelID))), nil
}

func (d *Dispatcher) goalNotification(_ context.Context, cmd Command) (models.Reply, error) {
	enabled, err := cmd.boolOption("enabled")
	if err != nil {
		return models.Reply{}, err
	}
	if err := d.settings.SetGoalNotification(enabled, cmd.channel()); err != nil {
		return models.Reply{}, err
	}
	if !enabled {
		if err := d.settings.MarkGoalAchieved(false, ""); err != nil {
			return models.Reply{}, err
		}
	}
	gn := d.settings.GoalNotification()
	return models.TextReply(fmt.Sprintf(":white_check_mark: Goal notification %s\nChannel: %s",
		strings.ToLower(enabledLabel(enabled)), destinationLabel(gn.ChannelID))), nil
}

func (d *Dispatcher) help(_ context.Context, _ Command) (models.Reply, error) {
	return models.SectionReply("", HelpSection()), nil
}
