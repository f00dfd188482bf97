package main

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"weekcal/internal/apperr"
	"weekcal/internal/model"
	"weekcal/internal/shared"
	"weekcal/internal/timeutil"
)

var createOpts struct {
	title     string
	start     string
	hours     float64
	priority  int
	auto      bool
	due       string
	friend    bool
	repeat    string
	instances int
	twin      string
}

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a time block",
	Example: `  weekcal create --title Standup --start "2026-10-19 09:00" --hours 1
  weekcal create --title Gym --start "2026-10-19 18:00" --repeat "FREQ=WEEKLY;COUNT=8"
  weekcal create --title Report --auto --due "2026-10-23 17:00" --hours 3`,
	Args: cobra.NoArgs,
	RunE: runCreate,
}

var deleteCmd = &cobra.Command{
	Use:   "delete <block-id>",
	Short: "Delete a time block",
	Args:  cobra.ExactArgs(1),
	RunE:  runDelete,
}

func init() {
	f := createCmd.Flags()
	f.StringVar(&createOpts.title, "title", "", "Title (required)")
	f.StringVar(&createOpts.start, "start", "", `Start, "YYYY-MM-DD HH:MM" in the configured timezone`)
	f.Float64Var(&createOpts.hours, "hours", 1, "Duration in hours, in half-hour steps")
	f.IntVar(&createOpts.priority, "priority", model.DefaultPriority, "Priority 1 (highest) to 5")
	f.BoolVar(&createOpts.auto, "auto", false, "Let the server place the block before --due")
	f.StringVar(&createOpts.due, "due", "", `Due, "YYYY-MM-DD HH:MM" (auto-schedule or repeat end)`)
	f.BoolVar(&createOpts.friend, "with-friend", false, "Mark the task as done with a friend")
	f.StringVar(&createOpts.repeat, "repeat", "", "Recurrence rule, e.g. FREQ=WEEKLY;COUNT=4")
	f.IntVar(&createOpts.instances, "instances", 0, "Maximum number of occurrences")
	f.StringVar(&createOpts.twin, "twin", "", "Create a twin task with the owner of this share URL or token")
	_ = createCmd.MarkFlagRequired("title")
}

func parseLocal(s string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02 15:04", "2006-01-02T15:04", "2006-01-02"} {
		if t, err := time.ParseInLocation(layout, s, app.loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse %q, want YYYY-MM-DD HH:MM", s)
}

func buildDraft() (model.Draft, error) {
	o := createOpts
	start := time.Now().In(app.loc)
	if o.start != "" {
		t, err := parseLocal(o.start)
		if err != nil {
			return model.Draft{}, fmt.Errorf("--start: %w", err)
		}
		start = t
	} else if !o.auto {
		return model.Draft{}, errors.New("--start is required unless --auto is set")
	}

	d := model.NewDraft(start)
	d.Title = o.title
	d.Duration = timeutil.FromHours(o.hours)
	d.Priority = o.priority
	d.AutoSchedule = o.auto
	d.WithFriend = o.friend
	d.Repeat = o.repeat
	d.Instances = o.instances
	if o.due != "" {
		t, err := parseLocal(o.due)
		if err != nil {
			return model.Draft{}, fmt.Errorf("--due: %w", err)
		}
		d.Due = t
	}
	return d, nil
}

func runCreate(cmd *cobra.Command, _ []string) error {
	d, err := buildDraft()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext()
	defer cancel()

	if createOpts.twin != "" {
		token, ok := shared.ParseSharePath(createOpts.twin)
		if !ok {
			token = createOpts.twin
		}
		if err := shared.New(app.client, token, app.sess, app.loc).WithDefaultRange(app.cfg.ShareRange).CreateTwin(ctx, d); err != nil {
			return describe(err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created twin task %q\n", d.Title)
		return nil
	}

	if err := app.sync.Create(ctx, d); err != nil {
		return describe(err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created %q; calendar now has %d blocks\n", d.Title, len(app.sync.Events()))
	return nil
}

func runDelete(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("block id must be a number: %w", err)
	}
	ctx, cancel := commandContext()
	defer cancel()

	if err := app.sync.Remove(ctx, id); err != nil {
		return describe(err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted block %d\n", id)
	return nil
}

// describe turns validation failures into one line per field.
func describe(err error) error {
	var ae *apperr.Error
	if !errors.As(err, &ae) || ae.Kind != apperr.KindValidation || len(ae.Fields) == 0 {
		return err
	}
	msg := "invalid input:"
	for field, m := range ae.Fields {
		msg += fmt.Sprintf("\n  %s: %s", field, m)
	}
	return errors.New(msg)
}
