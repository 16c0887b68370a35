package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rcallahan/dispatch-relay-service/internal/config"
	"github.com/rcallahan/dispatch-relay-service/internal/dataset"
	"github.com/rcallahan/dispatch-relay-service/internal/licenses"
	"github.com/rcallahan/dispatch-relay-service/internal/observability"
	"github.com/rcallahan/dispatch-relay-service/internal/quota"
	"github.com/rcallahan/dispatch-relay-service/internal/status"
	"github.com/rcallahan/dispatch-relay-service/internal/throttle"
)

var (
	configPath string

	remindEmail bool
	remindOn    string

	datasetsOffline bool
)

var rootCmd = &cobra.Command{
	Use:           "relayctl",
	Short:         "Operator tooling for the dispatch relay service",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show API keys and recorded quota state per service",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		doc := quota.LoadDocument(cfg.QuotaStateFile)
		out, err := status.Render(cfg.APIKeysFile, doc)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), out)
		return nil
	},
}

var remindCmd = &cobra.Command{
	Use:   "remind",
	Short: "Send license expiration reminders (30 days ahead by default)",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		target := time.Now().AddDate(0, 0, licenses.ReminderLeadDays)
		if remindOn != "" {
			target, err = time.Parse("2006-01-02", remindOn)
			if err != nil {
				return fmt.Errorf("parse --on date: %w", err)
			}
		}

		logger, err := observability.NewLogger()
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		var notifier licenses.Notifier = &licenses.LogNotifier{Logger: logger}
		if remindEmail {
			notifier = &licenses.SMTPNotifier{
				Host:     cfg.SMTPHost,
				Port:     cfg.SMTPPort,
				Sender:   cfg.SMTPSender,
				Username: cfg.SMTPUser,
				Password: cfg.SMTPPass,
			}
		}

		sent, err := licenses.Sweep(cmd.Context(), cfg.LicensesFile, target, notifier)
		if err != nil {
			return err
		}
		if sent == 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "No licenses expiring on %s.\n", target.Format("2006-01-02"))
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "Sent %d reminder(s) for %s.\n", sent, target.Format("2006-01-02"))
		}
		return nil
	},
}

var datasetsCmd = &cobra.Command{
	Use:   "datasets",
	Short: "Manage cached reference datasets",
}

var datasetsFetchCmd = &cobra.Command{
	Use:   "fetch [name...]",
	Short: "Pre-download datasets into the local cache",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		logger, err := observability.NewLogger()
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		gate := throttle.NewGateFromFile(cfg.QuotaFile)
		store := dataset.NewStore(cfg.DataDir, datasetsOffline || cfg.Offline,
			throttle.NewClient(gate, 30*time.Second), logger)

		names := args
		if len(names) == 0 {
			names = store.Names()
		}
		for _, name := range names {
			path, err := store.Path(cmd.Context(), name)
			if err != nil {
				return fmt.Errorf("dataset %s: %w", name, err)
			}
			logger.Info("dataset ready", zap.String("dataset", name), zap.String("path", path))
		}
		return nil
	},
}

func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.LoadFile(configPath)
	}
	return config.Load()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config YAML (default config/{ENV_NAME}.yaml)")

	remindCmd.Flags().BoolVar(&remindEmail, "email", false, "send reminders via SMTP instead of logging them")
	remindCmd.Flags().StringVar(&remindOn, "on", "", "check licenses expiring on this date (YYYY-MM-DD)")

	datasetsFetchCmd.Flags().BoolVar(&datasetsOffline, "offline", false, "fail on datasets missing from the local cache instead of downloading")

	datasetsCmd.AddCommand(datasetsFetchCmd)
	rootCmd.AddCommand(statusCmd, remindCmd, datasetsCmd)
}
