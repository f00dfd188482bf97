// Package mapper translates between the server's blocks and tasks and the
// calendar's events and drafts.
package mapper

import (
	"fmt"
	"strings"
	"time"

	"weekcal/internal/model"
)

// BusyTitle is the placeholder shown for anonymized shared slots.
const BusyTitle = "Busy"

// naive layouts cover the server's timezone-less isoformat() output.
var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05.999999999",
}

// ParseInstant parses a wire timestamp. RFC 3339 values keep their offset
// and are converted into loc; values without an offset are read as wall
// clock time in loc. A nil loc means time.Local.
func ParseInstant(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.In(loc), nil
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("mapper: unparseable timestamp %q", s)
}

// FormatInstant renders t the way outbound payloads carry instants:
// RFC 3339 in UTC.
func FormatInstant(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// BlockToEvent converts a block into an owned event in loc. The duration is
// end - start, so Start.Add(Duration) reproduces the block's end exactly.
func BlockToEvent(b model.Block, loc *time.Location) (model.Event, error) {
	start, err := ParseInstant(b.Start, loc)
	if err != nil {
		return model.Event{}, fmt.Errorf("block %d start: %w", b.ID, err)
	}
	end, err := ParseInstant(b.End, loc)
	if err != nil {
		return model.Event{}, fmt.Errorf("block %d end: %w", b.ID, err)
	}
	if !end.After(start) {
		return model.Event{}, fmt.Errorf("block %d: end %s is not after start %s", b.ID, b.End, b.Start)
	}

	priority := model.PrioritySentinel
	if b.Priority != nil {
		priority = *b.Priority
	}
	return model.NewOwned(b.ID, b.TaskID, b.Title, start, end.Sub(start), priority), nil
}

// BlocksToEvents maps a whole schedule. The first malformed block aborts
// the mapping so a partial set never replaces a complete one.
func BlocksToEvents(blocks []model.Block, loc *time.Location) ([]model.Event, error) {
	events := make([]model.Event, 0, len(blocks))
	for _, b := range blocks {
		ev, err := BlockToEvent(b, loc)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, nil
}

// SharedSlotToEvent converts the index-th slot (0-based) of one fetched
// batch into a busy event. Busy events get SlotIndex index+1 so their
// projected ID is always negative.
func SharedSlotToEvent(slot model.SharedSlot, index int, loc *time.Location) (model.Event, error) {
	start, err := ParseInstant(slot.Start, loc)
	if err != nil {
		return model.Event{}, fmt.Errorf("shared slot %d start: %w", index, err)
	}
	end, err := ParseInstant(slot.End, loc)
	if err != nil {
		return model.Event{}, fmt.Errorf("shared slot %d end: %w", index, err)
	}
	if !end.After(start) {
		return model.Event{}, fmt.Errorf("shared slot %d: end is not after start", index)
	}
	return model.NewBusy(index+1, BusyTitle, start, end.Sub(start)), nil
}

// SharedSlotsToEvents maps a whole shared batch.
func SharedSlotsToEvents(slots []model.SharedSlot, loc *time.Location) ([]model.Event, error) {
	events := make([]model.Event, 0, len(slots))
	for i, s := range slots {
		ev, err := SharedSlotToEvent(s, i, loc)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, nil
}

// EventToTaskInput builds the creation request for a draft.
//
// With autoSchedule the payload has no start or end and the server places
// the task before DueDate. Without it, start and end are the drafted slot
// and DueDate is the computed end; the two are the same instant.
func EventToTaskInput(d model.Draft, autoSchedule bool) model.TaskInput {
	end := d.Start.Add(time.Duration(d.Duration.Hours()*3600*1000) * time.Millisecond)

	in := model.TaskInput{
		Name:          strings.TrimSpace(d.Title),
		Priority:      d.Priority,
		EstimatedTime: int64(d.Duration / time.Second),
		WithFriend:    d.WithFriend,
		Instances:     1,
	}

	if autoSchedule {
		due := end
		if !d.Due.IsZero() {
			due = d.Due
		}
		in.DueDate = FormatInstant(due)
		return in
	}

	start := FormatInstant(d.Start)
	endStr := FormatInstant(end)
	in.Start = &start
	in.End = &endStr
	in.DueDate = endStr
	return in
}
