package mapper

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weekcal/internal/model"
)

func intPtr(v int) *int { return &v }

func TestBlockToEvent_DurationRoundTrip(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)

	tests := []struct {
		name  string
		block model.Block
		hours float64
	}{
		{
			name:  "naive one hour",
			block: model.Block{ID: 1, TaskID: 10, Start: "2026-10-19T09:00:00", End: "2026-10-19T10:00:00", Title: "Standup"},
			hours: 1,
		},
		{
			name:  "offset ninety minutes",
			block: model.Block{ID: 2, TaskID: 10, Start: "2026-10-19T07:00:00Z", End: "2026-10-19T08:30:00Z", Title: "Review"},
			hours: 1.5,
		},
		{
			name:  "fractional from server",
			block: model.Block{ID: 3, TaskID: 11, Start: "2026-10-19T09:00:00", End: "2026-10-19T09:20:00", Title: "Quick"},
			hours: 1.0 / 3.0,
		},
		{
			name:  "microseconds",
			block: model.Block{ID: 4, TaskID: 12, Start: "2026-10-19T09:00:00.250000", End: "2026-10-19T11:00:00.250000", Title: "Deep work"},
			hours: 2,
		},
		{
			name:  "across DST change",
			block: model.Block{ID: 5, TaskID: 13, Start: "2026-10-24T23:00:00+00:00", End: "2026-10-25T03:00:00+00:00", Title: "Night"},
			hours: 4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := BlockToEvent(tt.block, loc)
			require.NoError(t, err)

			end, err := ParseInstant(tt.block.End, loc)
			require.NoError(t, err)

			assert.Equal(t, model.KindOwned, ev.Kind)
			assert.Equal(t, tt.block.ID, ev.ID())
			assert.Equal(t, tt.block.Title, ev.Title)
			assert.InDelta(t, tt.hours, ev.Hours(), 1e-9)
			assert.True(t, ev.Start.Add(ev.Duration).Equal(end))
			assert.Equal(t, loc, ev.Start.Location())
		})
	}
}

func TestBlockToEvent_NaiveIsWallClock(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Seoul")
	require.NoError(t, err)

	ev, err := BlockToEvent(model.Block{ID: 1, Start: "2026-10-19T09:00:00", End: "2026-10-19T10:00:00"}, loc)
	require.NoError(t, err)
	assert.Equal(t, 9, ev.Start.Hour())
}

func TestBlockToEvent_Color(t *testing.T) {
	b := model.Block{ID: 1, Start: "2026-10-19T09:00:00Z", End: "2026-10-19T10:00:00Z"}

	ev, err := BlockToEvent(b, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, model.ColorDefault, ev.Color())

	b.Priority = intPtr(1)
	ev, err = BlockToEvent(b, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, "bg-red-500", ev.Color())
	assert.Equal(t, 1, ev.Priority)
}

func TestBlockToEvent_Malformed(t *testing.T) {
	tests := map[string]model.Block{
		"bad start":     {ID: 1, Start: "yesterday", End: "2026-10-19T10:00:00Z"},
		"bad end":       {ID: 1, Start: "2026-10-19T10:00:00Z", End: ""},
		"end not after": {ID: 1, Start: "2026-10-19T10:00:00Z", End: "2026-10-19T10:00:00Z"},
	}
	for name, b := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := BlockToEvent(b, time.UTC)
			assert.Error(t, err)
		})
	}
}

func TestBlocksToEvents_AbortsOnMalformed(t *testing.T) {
	blocks := []model.Block{
		{ID: 1, Start: "2026-10-19T09:00:00Z", End: "2026-10-19T10:00:00Z"},
		{ID: 2, Start: "nope", End: "2026-10-19T10:00:00Z"},
	}
	events, err := BlocksToEvents(blocks, time.UTC)
	assert.Error(t, err)
	assert.Nil(t, events)
}

func TestSharedSlotToEvent(t *testing.T) {
	slots := []model.SharedSlot{
		{Start: "2026-10-19T09:00:00Z", End: "2026-10-19T10:00:00Z"},
		{Start: "2026-10-19T11:00:00Z", End: "2026-10-19T11:30:00Z"},
	}
	events, err := SharedSlotsToEvents(slots, time.UTC)
	require.NoError(t, err)
	require.Len(t, events, 2)

	seen := map[int64]bool{}
	for _, ev := range events {
		assert.Equal(t, model.KindBusy, ev.Kind)
		assert.True(t, ev.ReadOnly())
		assert.Less(t, ev.ID(), int64(0))
		assert.Equal(t, BusyTitle, ev.Title)
		assert.Equal(t, model.PrioritySentinel, ev.Priority)
		assert.Equal(t, model.ColorBusy, ev.Color())
		assert.False(t, seen[ev.ID()], "duplicate id %d", ev.ID())
		seen[ev.ID()] = true
	}
	assert.InDelta(t, 0.5, events[1].Hours(), 1e-9)
}

func TestEventToTaskInput_Explicit(t *testing.T) {
	start := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	d := model.NewDraft(start)
	d.Title = "  Standup "
	d.Duration = 90 * time.Minute

	in := EventToTaskInput(d, false)

	require.NotNil(t, in.Start)
	require.NotNil(t, in.End)
	s, err := time.Parse(time.RFC3339, *in.Start)
	require.NoError(t, err)
	e, err := time.Parse(time.RFC3339, *in.End)
	require.NoError(t, err)

	assert.True(t, s.Equal(start))
	assert.Equal(t, int64(90*60*1000), e.Sub(s).Milliseconds())
	assert.Equal(t, *in.End, in.DueDate)
	assert.Equal(t, "Standup", in.Name)
	assert.Equal(t, int64(5400), in.EstimatedTime)
	assert.Equal(t, 1, in.Instances)
}

func TestEventToTaskInput_AutoScheduleOmitsPlacement(t *testing.T) {
	d := model.NewDraft(time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC))
	d.Title = "Write report"
	d.Duration = 2 * time.Hour

	in := EventToTaskInput(d, true)
	assert.Nil(t, in.Start)
	assert.Nil(t, in.End)
	assert.Equal(t, "2026-10-19T11:00:00Z", in.DueDate)
	assert.Equal(t, int64(7200), in.EstimatedTime)

	raw, err := json.Marshal(in)
	require.NoError(t, err)
	var fields map[string]any
	require.NoError(t, json.Unmarshal(raw, &fields))
	assert.NotContains(t, fields, "start")
	assert.NotContains(t, fields, "end")
	assert.Contains(t, fields, "estimatedTime")

	d.Due = time.Date(2026, 10, 23, 17, 0, 0, 0, time.UTC)
	in = EventToTaskInput(d, true)
	assert.Equal(t, "2026-10-23T17:00:00Z", in.DueDate)
}
