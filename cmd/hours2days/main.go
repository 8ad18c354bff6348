// Command hours2days merges the hourly RINEX files collected on an FTP drop
// server into compressed daily files, uploads them back and cleans up the
// hourly parts.
//
// Usage:
//
//	hours2days run                 # one merge pass, meant to be started by cron
//	hours2days plan                # list what a run would do, without changes
//	hours2days history [run-id]    # recent runs, or one stored report
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/couchcryptid/hours2days/internal/adapter/ftp"
	"github.com/couchcryptid/hours2days/internal/adapter/localfs"
	"github.com/couchcryptid/hours2days/internal/adapter/rinex"
	"github.com/couchcryptid/hours2days/internal/config"
	"github.com/couchcryptid/hours2days/internal/observability"
	"github.com/couchcryptid/hours2days/internal/pipeline"
	"github.com/spf13/cobra"
)

var (
	configFile string
	envFile    string
)

var rootCmd = &cobra.Command{
	Use:          "hours2days",
	Short:        "Merge hourly RINEX files on an FTP drop server into daily files",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "YAML configuration file (default $CONFIG_FILE)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	rootCmd.AddCommand(runCmd, planCmd, historyCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	if err := config.LoadEnvFile(envFile); err != nil {
		return nil, err
	}
	return config.Load(configFile)
}

// newController wires the FTP dialer, work directory and RINEX tools.
func newController(cfg *config.Config, store *localfs.Storage, logger *slog.Logger, metrics *observability.Metrics) *pipeline.Controller {
	dialer := ftp.NewDialer(ftp.Config{
		Host:         cfg.FTPHost,
		Port:         cfg.FTPPort,
		User:         cfg.FTPUser,
		Password:     cfg.FTPPassword,
		Timeout:      cfg.FTPTimeout,
		DialAttempts: cfg.FTPDialAttempts,
	}, logger)

	tools := rinex.NewTools(rinex.Config{
		MergeCmd:   cfg.MergeCmd,
		MergeArgs:  cfg.MergeArgs,
		ConvertCmd: cfg.ConvertCmd,
	}, logger)

	return pipeline.NewController(pipeline.Options{
		RemotePath: cfg.RemotePath,
		Opener: pipeline.OpenerFunc(func(ctx context.Context) (pipeline.RemoteSession, error) {
			s, err := dialer.Open(ctx)
			if err != nil {
				return nil, fmt.Errorf("open ftp session: %w", err)
			}
			return s, nil
		}),
		Store:   store,
		Tools:   tools,
		Disk:    observability.NewDiskSampler(cfg.DiskUsagePath),
		Logger:  logger,
		Metrics: metrics,
	})
}
