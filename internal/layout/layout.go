// Package layout places events on the week's time grid.
//
// Vertical placement follows the hour grid: top = (hour + minute/60) *
// PxPerHour and height = hours * PxPerHour - Gap. Events that overlap in
// time are packed into side-by-side columns within their day.
package layout

import (
	"sort"
	"time"

	"weekcal/internal/model"
	"weekcal/internal/timeutil"
)

// Default grid geometry in pixels.
const (
	DefaultPxPerHour = 48 // height of one hour
	DefaultGap       = 2  // trimmed from each box's height
)

// Grid holds the pixel geometry of the time grid.
type Grid struct {
	PxPerHour float64
	Gap       float64
	// Location is the display location used for the day filter and for
	// hour offsets. Nil means each event's own location.
	Location *time.Location
}

// DefaultGrid is 48px per hour with a 2px gap.
func DefaultGrid() Grid {
	return Grid{PxPerHour: DefaultPxPerHour, Gap: DefaultGap}
}

// Box is one positioned event.
type Box struct {
	Event model.Event

	// Top and Height are in pixels from the day column's midnight line.
	Top    float64
	Height float64

	// Column is 0-based within Columns side-by-side columns. Left and Width
	// are fractions of the day column's width.
	Column  int
	Columns int
	Left    float64
	Width   float64
}

// Top returns the vertical offset of an event starting at t.
func (g Grid) Top(t time.Time) float64 {
	t = g.local(t)
	return (float64(t.Hour()) + float64(t.Minute())/60) * g.PxPerHour
}

// Height returns the box height for a duration. It never goes negative.
func (g Grid) Height(d time.Duration) float64 {
	h := d.Hours()*g.PxPerHour - g.Gap
	if h < 0 {
		return 0
	}
	return h
}

func (g Grid) local(t time.Time) time.Time {
	if g.Location != nil {
		return t.In(g.Location)
	}
	return t
}

// Day lays out the events starting on day's calendar day.
func (g Grid) Day(events []model.Event, day time.Time) []Box {
	if g.Location != nil {
		day = day.In(g.Location)
	}

	type item struct {
		ev    model.Event
		start time.Time
		end   time.Time
		order int
	}
	items := make([]item, 0)
	for i, ev := range events {
		start := g.local(ev.Start)
		if !timeutil.IsSameCalendarDay(start, day) {
			continue
		}
		items = append(items, item{ev: ev, start: start, end: start.Add(ev.Duration), order: i})
	}
	if len(items) == 0 {
		return nil
	}

	sort.SliceStable(items, func(a, b int) bool {
		ia, ib := items[a], items[b]
		if !ia.start.Equal(ib.start) {
			return ia.start.Before(ib.start)
		}
		if ia.ev.Duration != ib.ev.Duration {
			return ia.ev.Duration > ib.ev.Duration
		}
		return ia.order < ib.order
	})

	boxes := make([]Box, len(items))
	// columnEnds[c] is the end of the last event placed in column c of the
	// current overlap cluster.
	var columnEnds []time.Time
	clusterStart := 0
	var clusterEnd time.Time

	closeCluster := func(upTo int) {
		n := len(columnEnds)
		for i := clusterStart; i < upTo; i++ {
			boxes[i].Columns = n
			boxes[i].Left = float64(boxes[i].Column) / float64(n)
			boxes[i].Width = 1 / float64(n)
		}
	}

	for i, it := range items {
		if i > 0 && !it.start.Before(clusterEnd) {
			closeCluster(i)
			columnEnds = columnEnds[:0]
			clusterStart = i
		}

		col := -1
		for c, end := range columnEnds {
			if !it.start.Before(end) {
				col = c
				break
			}
		}
		if col == -1 {
			col = len(columnEnds)
			columnEnds = append(columnEnds, it.end)
		} else {
			columnEnds[col] = it.end
		}
		if it.end.After(clusterEnd) || i == clusterStart {
			clusterEnd = it.end
		}

		boxes[i] = Box{
			Event:  it.ev,
			Top:    g.Top(it.start),
			Height: g.Height(it.ev.Duration),
			Column: col,
		}
	}
	closeCluster(len(items))

	return boxes
}

// Week lays out each day of week.
func (g Grid) Week(events []model.Event, week [7]time.Time) [7][]Box {
	var out [7][]Box
	for i, day := range week {
		out[i] = g.Day(events, day)
	}
	return out
}

// InRange returns the events whose start falls in [from, to).
func InRange(events []model.Event, from, to time.Time) []model.Event {
	out := make([]model.Event, 0, len(events))
	for _, ev := range events {
		if !ev.Start.Before(from) && ev.Start.Before(to) {
			out = append(out, ev)
		}
	}
	return out
}
