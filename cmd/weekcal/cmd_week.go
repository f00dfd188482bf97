package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"weekcal/internal/agenda"
	"weekcal/internal/apperr"
	"weekcal/internal/layout"
	"weekcal/internal/shared"
	"weekcal/internal/timeutil"
)

var (
	weekDate   string
	weekOffset int
)

var weekCmd = &cobra.Command{
	Use:   "week",
	Short: "Print a week of your calendar",
	Example: `  weekcal week
  weekcal week --date 2026-10-19
  weekcal week --offset -1`,
	Args: cobra.NoArgs,
	RunE: runWeek,
}

var viewCmd = &cobra.Command{
	Use:   "view <share-url-or-token>",
	Short: "Print a week of someone's shared calendar",
	Args:  cobra.ExactArgs(1),
	RunE:  runView,
}

func init() {
	for _, c := range []*cobra.Command{weekCmd, viewCmd} {
		c.Flags().StringVar(&weekDate, "date", "", "Any date in the week to show (YYYY-MM-DD, default today)")
		c.Flags().IntVar(&weekOffset, "offset", 0, "Weeks to move from --date (-1 previous, 1 next)")
	}
}

// displayedWeek resolves --date and --offset.
func displayedWeek() ([7]time.Time, error) {
	d := time.Now().In(app.loc)
	if weekDate != "" {
		t, err := time.ParseInLocation("2006-01-02", weekDate, app.loc)
		if err != nil {
			return [7]time.Time{}, fmt.Errorf("--date: %w", err)
		}
		d = t
	}
	d = timeutil.ShiftWeek(d, weekOffset)
	return timeutil.WeekOf(d, app.cfg.FirstWeekday()), nil
}

func grid() layout.Grid {
	return layout.Grid{PxPerHour: app.cfg.PxPerHour, Gap: app.cfg.GapPx, Location: app.loc}
}

func runWeek(cmd *cobra.Command, _ []string) error {
	week, err := displayedWeek()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext()
	defer cancel()

	if err := app.sync.Resync(ctx); err != nil {
		return err
	}
	if !app.sess.Onboarded() {
		fmt.Fprintln(cmd.OutOrStdout(), "Welcome to weekcal. Add a block with: weekcal create --title \"Focus\" --start \"2026-10-19 09:00\"")
		if err := app.sess.MarkOnboarded(); err != nil {
			return err
		}
	}
	fmt.Fprint(cmd.OutOrStdout(), agenda.Render(grid(), week, app.sync.Events(), agenda.Options{ShowIDs: true}))
	return nil
}

func runView(cmd *cobra.Command, args []string) error {
	token, ok := shared.ParseSharePath(args[0])
	if !ok {
		token = args[0]
	}
	week, err := displayedWeek()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext()
	defer cancel()

	c := shared.New(app.client, token, app.sess, app.loc).WithDefaultRange(app.cfg.ShareRange)
	owner, err := c.Fetch(ctx, week[0], week[6].AddDate(0, 0, 1))
	if err != nil {
		if errors.Is(err, apperr.ErrInvalidShareToken) {
			return errors.New("this share link is invalid or has expired")
		}
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), agenda.Render(grid(), week, c.Events(), agenda.Options{Owner: owner}))
	return nil
}
