package main

import (
	"context"
	"fmt"

	"github.com/huangang/ouranotify/internal/config"
	"github.com/huangang/ouranotify/internal/handlers"
	"github.com/huangang/ouranotify/internal/services"
	"github.com/huangang/ouranotify/internal/services/oura"
	"github.com/huangang/ouranotify/pkg/logger"
)

// appServices holds the long-lived components of the bot.
type appServices struct {
	cfg          *config.Config
	settings     *services.SettingsManager
	notification *services.NotificationService
	dispatcher   *services.Dispatcher
	scheduler    *services.Scheduler

	healthHandler      *handlers.HealthHandler
	commandHandler     *handlers.CommandHandler
	interactionHandler *handlers.InteractionHandler
}

// bootstrap wires the upstream client, the settings store, delivery, the
// report runner, the scheduler and the command surface.
func bootstrap(ctx context.Context, cfg *config.Config) (*appServices, error) {
	loc := cfg.Location()

	client, err := oura.NewClient(cfg.Oura, oura.WithLocation(loc))
	if err != nil {
		return nil, fmt.Errorf("create oura client: %w", err)
	}

	settings, err := services.NewSettingsManager(cfg.Notifier.SettingsPath)
	if err != nil {
		return nil, fmt.Errorf("open settings: %w", err)
	}

	notification := services.NewNotificationService(cfg.Discord)
	holidays := services.NewHolidayService(cfg.Notifier.HolidayCountry)
	reports := services.NewReportService(client, notification, loc, cfg.Notifier,
		services.WithStepsGoal(settings.StepsGoal),
		services.WithHolidays(holidays),
	)
	dispatcher := services.NewDispatcher(client, settings, reports, loc)

	scheduler := services.NewScheduler(settings, client, notification, reports, cfg.Schedule, loc)
	if err := scheduler.Start(ctx); err != nil {
		return nil, fmt.Errorf("start scheduler: %w", err)
	}

	svc := &appServices{
		cfg:            cfg,
		settings:       settings,
		notification:   notification,
		dispatcher:     dispatcher,
		scheduler:      scheduler,
		healthHandler:  handlers.NewHealthHandler(len(dispatcher.Commands()), notification.HasBot(), scheduler.JobCount),
		commandHandler: handlers.NewCommandHandler(dispatcher, settings),
	}

	if cfg.Discord.PublicKey != "" {
		svc.interactionHandler, err = handlers.NewInteractionHandler(cfg.Discord.PublicKey, cfg.Discord.ApplicationID, dispatcher, notification)
		if err != nil {
			scheduler.Stop()
			return nil, err
		}
	} else {
		logger.Warn().Msg("DISCORD_PUBLIC_KEY is not set, the interactions endpoint is disabled")
	}
	if cfg.Server.APIToken == "" {
		logger.Warn().Msg("API_TOKEN is not set, the JSON command API is disabled")
	}

	logger.Info().
		Str("timezone", loc.String()).
		Str("holidays", holidays.Country()).
		Str("settings", settings.Path()).
		Int("steps_goal", settings.StepsGoal()).
		Msg("Bot initialized")
	return svc, nil
}

// shutdown stops the scheduler and waits for pending interaction follow-ups.
func (s *appServices) shutdown() {
	s.scheduler.Stop()
	if s.interactionHandler != nil {
		s.interactionHandler.Wait()
	}
	logger.Info().Msg("All background work stopped")
}
