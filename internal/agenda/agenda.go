// Package agenda renders a week of events for the terminal.
package agenda

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"weekcal/internal/layout"
	"weekcal/internal/model"
	"weekcal/internal/timeutil"
)

// Terminal colors for the page's color classes.
var swatches = map[string]lipgloss.Color{
	"bg-red-500":    lipgloss.Color("#EF4444"),
	"bg-orange-500": lipgloss.Color("#F97316"),
	"bg-yellow-500": lipgloss.Color("#EAB308"),
	"bg-green-500":  lipgloss.Color("#22C55E"),
	"bg-blue-500":   lipgloss.Color("#3B82F6"),
	"bg-gray-400":   lipgloss.Color("#9CA3AF"),
}

var (
	titleStyle = lipgloss.NewStyle().Bold(true).MarginBottom(1)
	dayStyle   = lipgloss.NewStyle().Bold(true)
	todayStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#3B82F6"))
	timeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	emptyStyle = lipgloss.NewStyle().Faint(true)
	busyStyle  = lipgloss.NewStyle().Italic(true).Foreground(swatches[model.ColorBusy])
)

// Options controls rendering.
type Options struct {
	// Owner, when set, titles the agenda as someone else's calendar.
	Owner string
	// Now marks today; zero means time.Now.
	Now time.Time
	// ShowIDs prefixes owned events with their block ID.
	ShowIDs bool
}

// Render lays out events over week and returns the text. Overlapping
// events carry a "col/cols" marker from the layout engine.
func Render(grid layout.Grid, week [7]time.Time, events []model.Event, opts Options) string {
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}

	var b strings.Builder
	title := timeutil.MonthYearLabel(week)
	if opts.Owner != "" {
		title = opts.Owner + "'s calendar · " + title
	}
	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n")

	days := grid.Week(events, week)
	for i, day := range week {
		header := fmt.Sprintf("%s %s", timeutil.DayNames[day.Weekday()], day.Format("Jan 2"))
		if timeutil.IsToday(day, now) {
			b.WriteString(todayStyle.Render(header + " (today)"))
		} else {
			b.WriteString(dayStyle.Render(header))
		}
		b.WriteString("\n")

		if len(days[i]) == 0 {
			b.WriteString("  " + emptyStyle.Render("no events") + "\n")
			continue
		}
		for _, box := range days[i] {
			b.WriteString("  " + line(box, grid.Location, opts.ShowIDs) + "\n")
		}
	}
	return b.String()
}

func line(box layout.Box, loc *time.Location, showIDs bool) string {
	ev := box.Event
	start, end := ev.Start, ev.End()
	if loc != nil {
		start, end = start.In(loc), end.In(loc)
	}
	span := timeStyle.Render(start.Format("15:04") + "-" + end.Format("15:04"))

	var label string
	if ev.ReadOnly() {
		label = busyStyle.Render(ev.Title)
	} else {
		marker := lipgloss.NewStyle().Foreground(swatches[ev.Color()]).Render("■")
		label = marker + " " + ev.Title
		if ev.Priority != model.PrioritySentinel {
			label += timeStyle.Render(fmt.Sprintf(" P%d", ev.Priority))
		}
		if showIDs {
			label = timeStyle.Render(fmt.Sprintf("#%d ", ev.BlockID)) + label
		}
	}

	if box.Columns > 1 {
		label += timeStyle.Render(fmt.Sprintf(" [%d/%d]", box.Column+1, box.Columns))
	}
	return span + "  " + label
}
