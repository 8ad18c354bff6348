package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/hours2days/internal/adapter/kafka"
	"github.com/couchcryptid/hours2days/internal/adapter/localfs"
	"github.com/couchcryptid/hours2days/internal/adapter/mail"
	"github.com/couchcryptid/hours2days/internal/adapter/sqlite"
	"github.com/couchcryptid/hours2days/internal/adapter/telegram"
	"github.com/couchcryptid/hours2days/internal/config"
	"github.com/couchcryptid/hours2days/internal/domain"
	"github.com/couchcryptid/hours2days/internal/notify"
	"github.com/couchcryptid/hours2days/internal/observability"
	"github.com/jonboulle/clockwork"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

const pushJob = "hours2days"

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one merge pass over the current year's directory",
	Args:  cobra.NoArgs,
	RunE:  runMerge,
}

func runMerge(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	var extra io.Writer
	if cfg.LogFile != "" {
		f, err := observability.OpenWeeklyFile(afero.NewOsFs(), cfg.LogFile, cfg.LogRotateWeekday, cfg.LogBackups, clockwork.NewRealClock())
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer f.Close()
		extra = f
	}

	logger := observability.NewLogger(cfg, extra)
	metrics := observability.NewMetrics()

	store := localfs.New(cfg.WorkDir, logger)
	if err := store.EnsureDir("."); err != nil {
		logger.Error("failed to prepare work directory", "error", err)
		return err
	}
	ctrl := newController(cfg, store, logger, metrics)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	report, runErr := ctrl.Run(ctx)
	if runErr != nil {
		logger.Error("run failed", "error", runErr)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if runErr == nil || errors.Is(runErr, context.Canceled) {
		publish(shutdownCtx, cfg, report, logger)
	}
	if cfg.PushgatewayURL != "" {
		if err := metrics.Push(shutdownCtx, cfg.PushgatewayURL, pushJob); err != nil {
			logger.Error("metrics push failed", "error", err)
		}
	}
	return runErr
}

// publish hands the finished report to every configured output. Failures are
// logged and never change the run's outcome.
func publish(ctx context.Context, cfg *config.Config, report *domain.RunReport, logger *slog.Logger) {
	if cfg.HistoryDB != "" {
		if err := recordHistory(ctx, cfg.HistoryDB, report); err != nil {
			logger.Error("failed to record run history", "error", err)
		}
	}

	if len(cfg.KafkaBrokers) > 0 {
		w := kafka.NewReportWriter(cfg.KafkaBrokers, cfg.KafkaReportTopic, logger)
		if err := w.Publish(ctx, report); err != nil {
			logger.Error("failed to publish run report", "error", err)
		}
		if err := w.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	sinks := notifySinks(cfg, logger)
	if err := notify.NewDispatcher(sinks, cfg.DiskWarnPercent, logger).Dispatch(ctx, report); err != nil {
		logger.Warn("some notifications were not delivered", "error", err)
	}
}

func recordHistory(ctx context.Context, path string, report *domain.RunReport) error {
	h, err := sqlite.Open(path)
	if err != nil {
		return err
	}
	defer h.Close()
	return h.Record(ctx, report)
}

func notifySinks(cfg *config.Config, logger *slog.Logger) []notify.Sink {
	var sinks []notify.Sink
	if cfg.MailTo != "" {
		sinks = append(sinks, mail.New(mail.Config{Command: cfg.MailCmd, From: cfg.MailFrom, To: cfg.MailTo}))
	}
	if cfg.TelegramToken != "" {
		s, err := telegram.New(cfg.TelegramToken, cfg.TelegramChatID)
		if err != nil {
			logger.Error("telegram notifications disabled", "error", err)
		} else {
			sinks = append(sinks, s)
		}
	}
	return sinks
}
