package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"weekcal/internal/api"
	"weekcal/internal/calsync"
	"weekcal/internal/config"
	appLog "weekcal/internal/log"
	"weekcal/internal/session"
)

const version = "0.3.0"

var (
	configPath string
	debug      bool
	timeout    time.Duration

	// app is built once per invocation by the root command.
	app *appContext
)

// appContext wires the collaborators every command shares.
type appContext struct {
	cfg    *config.Config
	loc    *time.Location
	client *api.Client
	sess   *session.Session
	sync   *calsync.Controller
}

var rootCmd = &cobra.Command{
	Use:   "weekcal",
	Short: "Weekly calendar client for the task scheduling service",
	Long: `weekcal shows and edits your week of scheduled time blocks.

Run "weekcal serve" for the web week view, or use the subcommands to read
and change the calendar from the terminal.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			if cfg == nil {
				return fmt.Errorf("load config %s: %w", configPath, err)
			}
			appLog.Error("failed to write default config", err, "config_path", configPath)
		}

		level := appLog.ParseLevel(cfg.LogLevel)
		if debug {
			level = appLog.LevelDebug
		}
		appLog.SetLevel(level)

		loc, err := cfg.Location()
		if err != nil {
			appLog.Warn("unknown timezone, using local", "timezone", cfg.Timezone)
		}

		sess, err := session.Open(cfg.StatePath, cfg.Credentials)
		if err != nil {
			return fmt.Errorf("open session state %s: %w", cfg.StatePath, err)
		}

		client := api.NewClient(cfg.BaseURL, cfg.RequestsPerSecond)
		app = &appContext{
			cfg:    cfg,
			loc:    loc,
			client: client,
			sess:   sess,
			sync:   calsync.New(client, sess, loc),
		}

		appLog.Debug("effective config",
			"command", cmd.Name(),
			"base_url", cfg.BaseURL,
			"listen", cfg.Listen,
			"timezone", loc.String(),
			"week_start", cfg.WeekStart,
			"refresh", cfg.RefreshCron,
		)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "./weekcal.yaml", "Path to config file")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "Timeout for one-shot commands")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(weekCmd)
	rootCmd.AddCommand(viewCmd)
	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(shareCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.Version = version
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// signalContext is canceled on SIGINT/SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// commandContext bounds a one-shot command by --timeout and signals.
func commandContext() (context.Context, context.CancelFunc) {
	ctx, stop := signalContext()
	ctx, cancel := context.WithTimeout(ctx, timeout)
	return ctx, func() {
		cancel()
		stop()
	}
}
