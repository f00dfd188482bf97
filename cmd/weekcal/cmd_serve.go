package main

import (
	"context"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"weekcal/internal/capture"
	appLog "weekcal/internal/log"
	"weekcal/internal/refresh"
	"weekcal/internal/web"
)

var listenOverride string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the web week view and keep it in sync",
	Long: `Serve the week page on the configured listen address.

The calendar is resynced on the "refresh" cron schedule. With capture
enabled, a PNG snapshot of /calendar is written after every resync and
served at /preview.png.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&listenOverride, "listen", "", "HTTP listen address (overrides config if set)")
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg := app.cfg
	if listenOverride != "" {
		cfg.Listen = listenOverride
	}
	appLog.Info("weekcal starting", "version", version, "listen", cfg.Listen)

	srv, err := web.NewServer(cfg, web.Deps{Sync: app.sync, Remote: app.client, Session: app.sess}, debug)
	if err != nil {
		return err
	}

	jobs := []refresh.Job{{Name: "resync", Run: app.sync.Resync}}
	if cfg.Capture.Enabled {
		jobs = append(jobs, refresh.Job{Name: "capture", Run: func(ctx context.Context) error {
			return capture.SnapshotToFile(ctx, capture.Options{
				URL:    captureURL(cfg.Capture.URL, cfg.Listen),
				Width:  cfg.Capture.Width,
				Height: cfg.Capture.Height,
			}, cfg.Capture.Output)
		}})
	}
	sched, err := refresh.New(cfg.RefreshCron, app.loc, jobs...)
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Serve(ctx) })
	g.Go(func() error { return sched.Run(ctx) })
	g.Go(func() error {
		// First load; failures surface as a notice on the page.
		if err := app.sync.Resync(ctx); err != nil {
			appLog.Warn("initial resync failed", "err", err)
		}
		return nil
	})

	err = g.Wait()
	appLog.Info("weekcal exiting")
	return err
}

// captureURL defaults the snapshot target to this server's /calendar.
func captureURL(configured, listen string) string {
	if configured != "" {
		return configured
	}
	host := listen
	if strings.HasPrefix(host, ":") || strings.HasPrefix(host, "0.0.0.0:") {
		host = "127.0.0.1:" + host[strings.LastIndex(host, ":")+1:]
	}
	return "http://" + host + "/calendar"
}
