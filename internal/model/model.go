package model

import "time"

// Kind discriminates the two Event variants.
type Kind int

const (
	// KindOwned is an event backed by one of the caller's own blocks.
	KindOwned Kind = iota
	// KindBusy is an anonymized slot from someone else's shared calendar.
	// Busy events are never deletable or editable.
	KindBusy
)

func (k Kind) String() string {
	switch k {
	case KindOwned:
		return "owned"
	case KindBusy:
		return "busy"
	default:
		return "unknown"
	}
}

// PrioritySentinel marks an event as not owned and not orderable.
const PrioritySentinel = 0

// Event is the renderable form of a time block.
//
// Construct it with NewOwned or NewBusy; the zero value is not meaningful.
type Event struct {
	Kind Kind

	// BlockID and TaskID are set for KindOwned only.
	BlockID int64
	TaskID  int64

	// SlotIndex is set for KindBusy only, starting at 1 within one fetched
	// batch. It is not stable across fetches.
	SlotIndex int

	Title string

	// Start is in the display location.
	Start time.Time
	// Duration is always positive. It is never sent by the server; the
	// mapper derives it from the block's end - start.
	Duration time.Duration

	// Priority is 1-5 for owned events and PrioritySentinel for busy ones.
	Priority int
}

// NewOwned builds an owned event.
func NewOwned(blockID, taskID int64, title string, start time.Time, dur time.Duration, priority int) Event {
	return Event{
		Kind:     KindOwned,
		BlockID:  blockID,
		TaskID:   taskID,
		Title:    title,
		Start:    start,
		Duration: dur,
		Priority: priority,
	}
}

// NewBusy builds a read-only busy slot.
func NewBusy(slotIndex int, title string, start time.Time, dur time.Duration) Event {
	return Event{
		Kind:      KindBusy,
		SlotIndex: slotIndex,
		Title:     title,
		Start:     start,
		Duration:  dur,
		Priority:  PrioritySentinel,
	}
}

// ID projects the variant onto a single integer space for transports that
// need one (JSON, HTML data attributes): owned events use their block ID,
// busy slots use -SlotIndex. Negative means read-only.
func (e Event) ID() int64 {
	if e.Kind == KindBusy {
		return -int64(e.SlotIndex)
	}
	return e.BlockID
}

// ReadOnly reports whether the event may not be deleted or edited.
func (e Event) ReadOnly() bool {
	return e.Kind != KindOwned
}

// End is Start + Duration.
func (e Event) End() time.Time {
	return e.Start.Add(e.Duration)
}

// Hours is the duration in fractional hours.
func (e Event) Hours() float64 {
	return e.Duration.Hours()
}

// Color is derived from the priority; it is never stored.
func (e Event) Color() string {
	if e.Kind == KindBusy {
		return ColorBusy
	}
	return PriorityColor(e.Priority)
}

// Block is a server-persisted time interval, as received on the wire.
// Start and End stay unparsed here; the mapper owns timestamp parsing.
type Block struct {
	ID     int64  `json:"block_id"`
	TaskID int64  `json:"task_id"`
	Start  string `json:"start"`
	End    string `json:"end"`
	Title  string `json:"title"`
	// Priority is optional on the wire; nil falls back to the default color.
	Priority *int `json:"priority,omitempty"`
}

// SharedSlot is one busy interval of a shared calendar. It carries no
// title or priority.
type SharedSlot struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// SharedSchedule is the token-scoped read response.
type SharedSchedule struct {
	Username string       `json:"username"`
	Schedule []SharedSlot `json:"schedule"`
}

// TaskInput is the outbound creation request.
//
// EstimatedTime is in seconds. Start and End are nil for auto-scheduled
// tasks, which makes the server choose the placement from DueDate and
// EstimatedTime.
type TaskInput struct {
	Name          string  `json:"name"`
	Priority      int     `json:"priority"`
	DueDate       string  `json:"dueDate"`
	EstimatedTime int64   `json:"estimatedTime"`
	WithFriend    bool    `json:"withFriend"`
	Start         *string `json:"start,omitempty"`
	End           *string `json:"end,omitempty"`
	Instances     int     `json:"instances"`
}

// Draft is the ephemeral creation form. It never holds a server ID.
type Draft struct {
	Title    string        `json:"title" validate:"required,notblank,max=200"`
	Start    time.Time     `json:"start"`
	Duration time.Duration `json:"duration" validate:"gt=0,halfhour"`
	Priority int           `json:"priority" validate:"min=1,max=5"`

	// AutoSchedule defers start/end selection to the server.
	AutoSchedule bool `json:"auto_schedule"`
	// Due is the deadline for auto-scheduled drafts. Zero means the end of
	// the drafted slot. Explicit drafts always use the computed end.
	Due time.Time `json:"due,omitempty"`

	WithFriend bool `json:"with_friend"`

	// Repeat is an optional RRULE (e.g. "FREQ=WEEKLY;COUNT=4").
	Repeat string `json:"repeat,omitempty" validate:"omitempty,rrule"`
	// Instances overrides the occurrence count sent for auto-scheduled
	// recurring drafts. Zero means one.
	Instances int `json:"instances,omitempty" validate:"min=0,max=366"`
}

// DefaultPriority is the priority of a fresh draft.
const DefaultPriority = 3

// NewDraft opens a one-hour draft at start, the way a slot click does.
func NewDraft(start time.Time) Draft {
	return Draft{
		Start:    start,
		Duration: time.Hour,
		Priority: DefaultPriority,
	}
}

// End is Start + Duration.
func (d Draft) End() time.Time {
	return d.Start.Add(d.Duration)
}

// DurationChoices are the durations offered by the creation form.
var DurationChoices = []time.Duration{
	30 * time.Minute,
	time.Hour,
	90 * time.Minute,
	2 * time.Hour,
	150 * time.Minute,
	3 * time.Hour,
	4 * time.Hour,
	5 * time.Hour,
	6 * time.Hour,
	8 * time.Hour,
}
