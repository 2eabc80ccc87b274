package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/huangang/ouranotify/internal/config"
	"github.com/huangang/ouranotify/internal/models"
	"github.com/huangang/ouranotify/pkg/logger"
)

const (
	tickSpec = "* * * * *"

	bedtimeMessage = ":crescent_moon: It's almost bedtime.\nStep away from the screen and get some rest."
)

var defaultBedtimeReminder = TimeOfDay{Hour: 22, Minute: 30}

// Scheduler runs the once-a-minute checks (daily flag reset, bedtime
// reminder, step goal) and the optional fixed-time reports.
type Scheduler struct {
	settings *SettingsManager
	source   HealthSource
	notifier Notifier
	reports  *ReportService
	schedule config.ScheduleConfig
	loc      *time.Location
	now      func() time.Time

	mu   sync.Mutex
	cron *cron.Cron
}

func NewScheduler(settings *SettingsManager, source HealthSource, notifier Notifier, reports *ReportService, schedule config.ScheduleConfig, loc *time.Location) *Scheduler {
	if loc == nil {
		loc = time.Local
	}
	return &Scheduler{
		settings: settings,
		source:   source,
		notifier: notifier,
		reports:  reports,
		schedule: schedule,
		loc:      loc,
		now:      time.Now,
	}
}

// Start registers the tick and the configured report jobs. Jobs run with
// ctx and stop when it is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	c := cron.New(cron.WithLocation(s.loc))

	if _, err := c.AddFunc(tickSpec, func() { s.Tick(ctx, s.now()) }); err != nil {
		return fmt.Errorf("add tick job: %w", err)
	}

	if s.reports != nil {
		jobs := []struct {
			kind ReportKind
			spec string
		}{
			{ReportMorning, s.schedule.Morning},
			{ReportNoon, s.schedule.Noon},
			{ReportNight, s.schedule.Night},
		}
		for _, job := range jobs {
			if job.spec == "" {
				continue
			}
			kind := job.kind
			if _, err := c.AddFunc(job.spec, func() {
				if err := s.reports.Send(ctx, kind, s.now()); err != nil {
					logger.Errorf("[Scheduler] %s job failed: %v", kind, err)
				}
			}); err != nil {
				return fmt.Errorf("add %s job (%q): %w", kind, job.spec, err)
			}
			logger.Infof("[Scheduler] %s report scheduled (cron: %s)", kind, job.spec)
		}
	}

	s.mu.Lock()
	s.cron = c
	s.mu.Unlock()
	c.Start()
	logger.Infof("[Scheduler] Started in %s", s.loc)
	return nil
}

// Stop waits for running jobs to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	c := s.cron
	s.mu.Unlock()
	if c == nil {
		return
	}
	<-c.Stop().Done()
	logger.Infof("[Scheduler] Stopped")
}

// JobCount is the number of registered cron entries, 0 before Start.
func (s *Scheduler) JobCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron == nil {
		return 0
	}
	return len(s.cron.Entries())
}

// Tick runs every check once for now. A failing or panicking check never
// stops the others.
func (s *Scheduler) Tick(ctx context.Context, now time.Time) {
	now = now.In(s.loc)
	today := now.Format(models.DateLayout)

	s.safely("daily flag reset", func() error {
		changed, err := s.settings.ResetDailyFlags(today)
		if changed {
			logger.Debugf("[Scheduler] Daily flags reset for %s", today)
		}
		return err
	})
	s.safely("bedtime reminder", func() error { return s.checkBedtime(ctx, now) })
	s.safely("goal check", func() error { return s.checkGoal(ctx, now) })
}

func (s *Scheduler) safely(name string, fn func() error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error().Interface("panic", r).Str("check", name).Msg("[Scheduler] check panicked")
		}
	}()
	if err := fn(); err != nil {
		logger.Warnf("[Scheduler] %s failed: %v", name, err)
	}
}

func (s *Scheduler) checkBedtime(ctx context.Context, now time.Time) error {
	br := s.settings.BedtimeReminder()
	if !br.Enabled {
		return nil
	}
	at, err := ParseTimeOfDay(br.Time)
	if err != nil {
		at = defaultBedtimeReminder
	}
	if !at.Matches(now) {
		return nil
	}
	logger.Infof("[Scheduler] Sending bedtime reminder (%s)", at)
	return s.notifier.SendToChannel(ctx, br.ChannelID, models.TextReply(bedtimeMessage))
}

// checkGoal celebrates the first tick of the day on which steps reach the
// goal. The day is marked even when the message fails.
func (s *Scheduler) checkGoal(ctx context.Context, now time.Time) error {
	gn := s.settings.GoalNotification()
	if !gn.Enabled || gn.AchievedToday {
		return nil
	}

	activity, err := s.source.GetActivity(ctx, StartOfDay(now))
	if err != nil {
		return err
	}
	if activity == nil {
		return nil
	}

	steps := models.IntOr(activity.Steps, 0)
	goal := s.settings.StepsGoal()
	if steps < goal {
		return nil
	}

	msg := fmt.Sprintf(":tada: You reached today's step goal!\n**%s / %s steps** Great job!", FormatNumber(steps), FormatNumber(goal))
	sendErr := s.notifier.SendToChannel(ctx, gn.ChannelID, models.TextReply(msg))
	if err := s.settings.MarkGoalAchieved(true, now.Format(models.DateLayout)); err != nil {
		return err
	}
	if sendErr == nil {
		logger.Infof("[Scheduler] Step goal reached: %d / %d", steps, goal)
	}
	return sendErr
}
