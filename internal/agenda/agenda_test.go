package agenda

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"weekcal/internal/layout"
	"weekcal/internal/model"
	"weekcal/internal/timeutil"
)

func TestRender(t *testing.T) {
	day := time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)
	week := timeutil.WeekStartOf(day)
	grid := layout.DefaultGrid()
	grid.Location = time.UTC

	events := []model.Event{
		model.NewOwned(42, 7, "Standup", day.Add(9*time.Hour), time.Hour, 1),
		model.NewOwned(43, 8, "Review", day.Add(9*time.Hour+30*time.Minute), time.Hour, 4),
		model.NewBusy(1, "Busy", day.AddDate(0, 0, 1).Add(14*time.Hour), 30*time.Minute),
	}

	out := Render(grid, week, events, Options{Now: day.Add(12 * time.Hour), ShowIDs: true})

	assert.Contains(t, out, "October 2026")
	assert.Contains(t, out, "Mon Oct 19 (today)")
	assert.Contains(t, out, "09:00-10:00")
	assert.Contains(t, out, "Standup")
	assert.Contains(t, out, "#42")
	assert.Contains(t, out, "[1/2]")
	assert.Contains(t, out, "[2/2]")
	assert.Contains(t, out, "14:00-14:30")
	assert.Equal(t, 5, strings.Count(out, "no events"))
}

func TestRender_SharedTitle(t *testing.T) {
	week := timeutil.WeekStartOf(time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC))
	out := Render(layout.DefaultGrid(), week, nil, Options{Owner: "bora", Now: week[0]})
	assert.Contains(t, out, "bora's calendar")
	assert.Equal(t, 7, strings.Count(out, "no events"))
}
