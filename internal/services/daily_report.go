package services

import (
	"context"
	"fmt"
	"time"

	"github.com/huangang/ouranotify/internal/config"
	"github.com/huangang/ouranotify/internal/models"
	"github.com/huangang/ouranotify/pkg/logger"
)

// HealthSource is the slice of the Oura client the reports and commands
// read from. Absent records are nil without an error.
type HealthSource interface {
	GetSleep(ctx context.Context, day time.Time) (*models.DailySleep, error)
	GetReadiness(ctx context.Context, day time.Time) (*models.DailyReadiness, error)
	GetActivity(ctx context.Context, day time.Time) (*models.DailyActivity, error)
	GetSleepDetail(ctx context.Context, day time.Time) (*models.SleepDetail, error)
	GetWorkouts(ctx context.Context, day time.Time) ([]models.Workout, error)
	GetDailyStress(ctx context.Context, day time.Time) *models.DailyStress
	GetSleepRange(ctx context.Context, start, end time.Time) (map[string]models.DailySleep, error)
	GetSleepDetailRange(ctx context.Context, start, end time.Time) (map[string]models.SleepDetail, error)
	GetWeekly(ctx context.Context, end time.Time) (*models.PeriodData, error)
	GetMonthly(ctx context.Context, end time.Time, days int) (*models.PeriodData, error)
}

// Notifier is the delivery side used by reports and the scheduler.
type Notifier interface {
	SendMessage(ctx context.Context, content string) error
	SendHealthReport(ctx context.Context, title string, sections []models.Section) error
	SendToChannel(ctx context.Context, channelID *models.ChannelID, reply models.Reply) error
}

type ReportKind string

const (
	ReportMorning ReportKind = "morning"
	ReportNoon    ReportKind = "noon"
	ReportNight   ReportKind = "night"
)

func (k ReportKind) label() string {
	switch k {
	case ReportMorning:
		return "Morning report"
	case ReportNoon:
		return "Noon report"
	case ReportNight:
		return "Night report"
	}
	return "Report"
}

// ParseReportKind accepts morning, noon and night.
func ParseReportKind(s string) (ReportKind, error) {
	switch k := ReportKind(s); k {
	case ReportMorning, ReportNoon, ReportNight:
		return k, nil
	}
	return "", fmt.Errorf("unknown report type %q (morning, noon or night)", s)
}

// ReportService composes the three daily reports from upstream data and
// delivers them.
type ReportService struct {
	source    HealthSource
	notifier  Notifier
	holidays  *HolidayService
	stepsGoal func() int
	wakeTime  string
	loc       *time.Location
}

type ReportOption func(*ReportService)

// WithStepsGoal replaces the configured goal with a live lookup, usually
// the settings store.
func WithStepsGoal(fn func() int) ReportOption {
	return func(s *ReportService) { s.stepsGoal = fn }
}

func WithHolidays(h *HolidayService) ReportOption {
	return func(s *ReportService) { s.holidays = h }
}

func NewReportService(source HealthSource, notifier Notifier, loc *time.Location, cfg config.NotifierConfig, opts ...ReportOption) *ReportService {
	goal := cfg.StepsGoal
	if goal <= 0 {
		goal = models.DefaultStepsGoal
	}
	wake := cfg.TargetWakeTime
	if wake == "" {
		wake = "07:00"
	}
	if loc == nil {
		loc = time.Local
	}
	s := &ReportService{
		source:    source,
		notifier:  notifier,
		stepsGoal: func() int { return goal },
		wakeTime:  wake,
		loc:       loc,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *ReportService) today(now time.Time) time.Time {
	return StartOfDay(now.In(s.loc))
}

func (s *ReportService) weeklyAverages(ctx context.Context, end time.Time) *models.Averages {
	week, err := s.source.GetWeekly(ctx, end)
	if err != nil {
		logger.Warnf("[Report] Failed to fetch weekly data: %v", err)
		return nil
	}
	avg := week.Averages()
	return &avg
}

// BuildMorning uses today's records, falling back per record to
// yesterday's. The comparison day is the one before whichever record was
// used.
func (s *ReportService) BuildMorning(ctx context.Context, now time.Time) (string, []models.Section, error) {
	today := s.today(now)
	yesterday := today.AddDate(0, 0, -1)
	twoDaysAgo := today.AddDate(0, 0, -2)
	todayKey := today.Format(models.DateLayout)

	logger.Infof("[Report] Fetching morning data for %s", todayKey)

	sleep, err := s.source.GetSleep(ctx, today)
	if err != nil {
		return "", nil, err
	}
	detail, err := s.source.GetSleepDetail(ctx, today)
	if err != nil {
		return "", nil, err
	}
	readiness, err := s.source.GetReadiness(ctx, today)
	if err != nil {
		return "", nil, err
	}

	if sleep == nil {
		if sleep, err = s.source.GetSleep(ctx, yesterday); err != nil {
			return "", nil, err
		}
	}
	if detail == nil {
		if detail, err = s.source.GetSleepDetail(ctx, yesterday); err != nil {
			return "", nil, err
		}
	}
	if readiness == nil {
		if readiness, err = s.source.GetReadiness(ctx, yesterday); err != nil {
			return "", nil, err
		}
	}

	prevDay := func(recordDay string) time.Time {
		if recordDay == todayKey {
			return yesterday
		}
		return twoDaysAgo
	}

	in := MorningInput{
		Date:        todayKey,
		Sleep:       sleep,
		SleepDetail: detail,
		Readiness:   readiness,
		Weekly:      s.weeklyAverages(ctx, yesterday),
	}

	var sleepDay, readinessDay string
	if sleep != nil {
		sleepDay = sleep.Day
	}
	if readiness != nil {
		readinessDay = readiness.Day
	}
	prevSleep, err := s.source.GetSleep(ctx, prevDay(sleepDay))
	if err != nil {
		return "", nil, err
	}
	if prevSleep != nil {
		in.PrevSleep = prevSleep.Score
	}
	prevReadiness, err := s.source.GetReadiness(ctx, prevDay(readinessDay))
	if err != nil {
		return "", nil, err
	}
	if prevReadiness != nil {
		in.PrevReadiness = prevReadiness.Score
	}

	if s.holidays != nil {
		in.RestDay = s.holidays.IsRestDay(today)
	}

	title, sections := MorningReport(in, s.loc)
	if s.holidays != nil {
		if name := s.holidays.HolidayName(today); name != "" {
			title += " :confetti_ball: " + name
		}
	}
	if alert := AlertMessage(sleep, readiness); alert != "" {
		title += "\n" + alert
	}
	return title, sections, nil
}

// BuildNoon returns send=false when there is nothing worth a message.
func (s *ReportService) BuildNoon(ctx context.Context, now time.Time) (string, []models.Section, bool, error) {
	today := s.today(now)
	logger.Infof("[Report] Fetching noon data for %s %02d:%02d", today.Format(models.DateLayout), now.In(s.loc).Hour(), now.In(s.loc).Minute())

	activity, err := s.source.GetActivity(ctx, today)
	if err != nil {
		return "", nil, false, err
	}
	sleep, err := s.source.GetSleep(ctx, today)
	if err != nil {
		return "", nil, false, err
	}
	detail, err := s.source.GetSleepDetail(ctx, today)
	if err != nil {
		return "", nil, false, err
	}

	title, sections, send := NoonReport(NoonInput{
		Activity:    activity,
		Sleep:       sleep,
		SleepDetail: detail,
		StepsGoal:   s.stepsGoal(),
		Now:         now,
	}, s.loc)
	return title, sections, send, nil
}

func (s *ReportService) BuildNight(ctx context.Context, now time.Time) (string, []models.Section, error) {
	today := s.today(now)
	yesterday := today.AddDate(0, 0, -1)
	logger.Infof("[Report] Fetching night data for %s", today.Format(models.DateLayout))

	readiness, err := s.source.GetReadiness(ctx, today)
	if err != nil {
		return "", nil, err
	}
	sleep, err := s.source.GetSleep(ctx, today)
	if err != nil {
		return "", nil, err
	}
	activity, err := s.source.GetActivity(ctx, today)
	if err != nil {
		return "", nil, err
	}
	prevActivity, err := s.source.GetActivity(ctx, yesterday)
	if err != nil {
		return "", nil, err
	}

	title, sections := NightReport(NightInput{
		Readiness:      readiness,
		Sleep:          sleep,
		Activity:       activity,
		PrevActivity:   prevActivity,
		Weekly:         s.weeklyAverages(ctx, yesterday),
		TargetWakeTime: s.wakeTime,
	})
	return title, sections, nil
}

// Send builds and delivers one report. A build failure is reported to the
// channel as well as returned.
func (s *ReportService) Send(ctx context.Context, kind ReportKind, now time.Time) error {
	var (
		title    string
		sections []models.Section
		err      error
	)
	switch kind {
	case ReportMorning:
		title, sections, err = s.BuildMorning(ctx, now)
	case ReportNoon:
		var send bool
		title, sections, send, err = s.BuildNoon(ctx, now)
		if err == nil && !send {
			logger.Infof("[Report] Noon report not needed, steps on pace")
			return nil
		}
	case ReportNight:
		title, sections, err = s.BuildNight(ctx, now)
	default:
		return fmt.Errorf("unknown report type %q", kind)
	}

	if err != nil {
		logger.Errorf("[Report] %s failed: %v", kind.label(), err)
		s.notifyFailure(ctx, kind, err)
		return fmt.Errorf("%s: %w", kind, err)
	}

	if err := s.notifier.SendHealthReport(ctx, title, sections); err != nil {
		logger.Errorf("[Report] Failed to deliver %s: %v", kind, err)
		return err
	}
	logger.Infof("[Report] %s sent", kind.label())
	return nil
}

func (s *ReportService) notifyFailure(ctx context.Context, kind ReportKind, cause error) {
	msg := fmt.Sprintf(":x: **%s error**\n```%v```", kind.label(), cause)
	if err := s.notifier.SendMessage(ctx, msg); err != nil {
		logger.Errorf("[Report] Failed to deliver the error notice: %v", err)
	}
}

func (s *ReportService) SendMorning(ctx context.Context, now time.Time) error {
	return s.Send(ctx, ReportMorning, now)
}

func (s *ReportService) SendNoon(ctx context.Context, now time.Time) error {
	return s.Send(ctx, ReportNoon, now)
}

func (s *ReportService) SendNight(ctx context.Context, now time.Time) error {
	return s.Send(ctx, ReportNight, now)
}

// SendTest checks the webhook configuration end to end.
func (s *ReportService) SendTest(ctx context.Context) error {
	return s.notifier.SendMessage(ctx, ":white_check_mark: **Test succeeded!**\nOura Discord Notifier is up and running.")
}
