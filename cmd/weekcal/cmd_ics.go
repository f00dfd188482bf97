package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"weekcal/internal/config"
	"weekcal/internal/ics"
	appLog "weekcal/internal/log"
)

var exportOut string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export your calendar as iCalendar",
	Args:  cobra.NoArgs,
	RunE:  runExport,
}

var importOpts struct {
	from     string
	to       string
	cacheDir string
	dryRun   bool
}

var importCmd = &cobra.Command{
	Use:   "import <ics-file-or-url>",
	Short: "Create blocks from the timed events of an ICS feed",
	Long: `Import expands recurring events inside [--from, --to] and creates
one block per timed occurrence. All-day events are skipped and durations
round up to the next half hour.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportOut, "output", "o", "-", `Output file ("-" for stdout)`)

	f := importCmd.Flags()
	f.StringVar(&importOpts.from, "from", "", "Range start (YYYY-MM-DD, default today)")
	f.StringVar(&importOpts.to, "to", "", "Range end (YYYY-MM-DD, default 4 weeks after --from)")
	f.StringVar(&importOpts.cacheDir, "cache-dir", "./var/ics-cache", "HTTP cache for remote feeds")
	f.BoolVar(&importOpts.dryRun, "dry-run", false, "Print the blocks without creating them")
}

func runExport(cmd *cobra.Command, _ []string) error {
	ctx, cancel := commandContext()
	defer cancel()

	if err := app.sync.Resync(ctx); err != nil {
		return err
	}
	doc := ics.Export(app.sync.Events(), time.Now())
	if exportOut == "-" {
		_, err := fmt.Fprint(cmd.OutOrStdout(), doc)
		return err
	}
	if err := config.WriteFileAtomic(exportOut, []byte(doc), ".weekcal-*.ics"); err != nil {
		return fmt.Errorf("write %s: %w", exportOut, err)
	}
	appLog.Info("calendar exported", "path", exportOut, "events", len(app.sync.Events()))
	return nil
}

func importRange() (time.Time, time.Time, error) {
	from := time.Now().In(app.loc)
	from = time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, app.loc)
	if importOpts.from != "" {
		t, err := time.ParseInLocation("2006-01-02", importOpts.from, app.loc)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("--from: %w", err)
		}
		from = t
	}
	to := from.AddDate(0, 0, 28)
	if importOpts.to != "" {
		t, err := time.ParseInLocation("2006-01-02", importOpts.to, app.loc)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("--to: %w", err)
		}
		to = t.AddDate(0, 0, 1)
	}
	if !to.After(from) {
		return time.Time{}, time.Time{}, fmt.Errorf("--to must be after --from")
	}
	return from, to, nil
}

func runImport(cmd *cobra.Command, args []string) error {
	from, to, err := importRange()
	if err != nil {
		return err
	}
	src := ics.Source{ID: "import", Location: args[0]}
	if !src.IsRemote() {
		if _, err := os.Stat(src.Location); err != nil {
			return err
		}
	}

	ctx, cancel := commandContext()
	defer cancel()

	body, cached, err := ics.NewFetcher(importOpts.cacheDir).Fetch(ctx, src)
	if err != nil {
		return err
	}
	if cached {
		appLog.Warn("using cached feed", "source", src.ID)
	}
	parsed, err := ics.ParseICS(src, body)
	if err != nil {
		return err
	}
	res, err := ics.ExpandOccurrences(parsed, ics.ExpandConfig{
		DisplayLocation: app.loc,
		RangeStart:      from,
		RangeEnd:        to,
	})
	if err != nil {
		return err
	}
	drafts := ics.Drafts(res.Occurrences)

	out := cmd.OutOrStdout()
	if importOpts.dryRun {
		for _, d := range drafts {
			fmt.Fprintf(out, "%s  %-5s  P%d  %s\n", d.Start.Format("Mon 2006-01-02 15:04"), d.Duration, d.Priority, d.Title)
		}
		fmt.Fprintf(out, "%d blocks would be created\n", len(drafts))
		return nil
	}

	created := 0
	for _, d := range drafts {
		if err := app.sync.Create(ctx, d); err != nil {
			appLog.Error("import: create failed", err, "title", d.Title, "start", d.Start)
			continue
		}
		created++
	}
	fmt.Fprintf(out, "Imported %d of %d blocks\n", created, len(drafts))
	if created < len(drafts) {
		return fmt.Errorf("%d blocks could not be created", len(drafts)-created)
	}
	return nil
}
