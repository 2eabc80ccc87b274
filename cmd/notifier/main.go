// Command notifier sends one report to Discord and exits. It is meant to be
// run by an external scheduler:
//
//	notifier --type morning
//	notifier --test
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/huangang/ouranotify/internal/config"
	"github.com/huangang/ouranotify/internal/services"
	"github.com/huangang/ouranotify/internal/services/oura"
	"github.com/huangang/ouranotify/pkg/logger"
)

const runTimeout = 2 * time.Minute

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stderr)
	stop()
	os.Exit(code)
}

// run returns the process exit code: 0 when the report went out (or was
// skipped on purpose), 1 otherwise.
func run(ctx context.Context, args []string, stderr io.Writer) int {
	fs := flag.NewFlagSet("notifier", flag.ContinueOnError)
	fs.SetOutput(stderr)
	kindName := fs.String("type", string(services.ReportMorning), "notification type: morning, noon or night")
	test := fs.Bool("test", false, "send a test message to verify the configuration")
	configPath := fs.String("config", "", "config file path (default $CONFIG_PATH or config.yaml)")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "failed to load config: %v\n", err)
		return 1
	}
	logger.Init(cfg.Log.Level, cfg.Log.Format)
	loc := cfg.Location()

	ctx, cancel := context.WithTimeout(ctx, runTimeout)
	defer cancel()

	if *test {
		if cfg.Discord.WebhookURL == "" {
			logger.Error().Err(config.ErrMissingWebhookURL).Msg("Invalid configuration")
			return 1
		}
		notification := services.NewNotificationService(cfg.Discord)
		if err := services.NewReportService(nil, notification, loc, cfg.Notifier).SendTest(ctx); err != nil {
			logger.Error().Err(err).Msg("Test message failed")
			return 1
		}
		logger.Info().Msg("Test message sent")
		return 0
	}

	kind, err := services.ParseReportKind(*kindName)
	if err != nil {
		logger.Error().Err(err).Msg("Invalid --type")
		return 1
	}
	if err := cfg.ValidateNotifier(); err != nil {
		logger.Error().Err(err).Msg("Invalid configuration")
		return 1
	}

	client, err := oura.NewClient(cfg.Oura, oura.WithLocation(loc))
	if err != nil {
		logger.Error().Err(err).Msg("Failed to create the Oura client")
		return 1
	}
	notification := services.NewNotificationService(cfg.Discord)
	reports := services.NewReportService(client, notification, loc, cfg.Notifier,
		services.WithHolidays(services.NewHolidayService(cfg.Notifier.HolidayCountry)),
	)

	if err := reports.Send(ctx, kind, time.Now()); err != nil {
		logger.Error().Err(err).Str("type", string(kind)).Msg("Report failed")
		return 1
	}
	logger.Info().Str("type", string(kind)).Msg("Report finished")
	return 0
}
