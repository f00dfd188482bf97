package ics

import (
	"errors"
	"fmt"
	"time"

	"github.com/teambition/rrule-go"

	appLog "weekcal/internal/log"
	"weekcal/internal/model"
)

const (
	defaultMaxOccurrences = 500
	// openRuleHorizon bounds rules that have neither COUNT nor UNTIL.
	openRuleHorizon = 365 * 24 * time.Hour
)

// ExpandRule lists the start instants of rule beginning at dtstart. until
// bounds open-ended rules (zero means one year after dtstart); max caps the
// result (zero means 500). The boolean reports truncation by max.
func ExpandRule(rule string, dtstart, until time.Time, max int) ([]time.Time, bool, error) {
	if max <= 0 {
		max = defaultMaxOccurrences
	}
	opt, err := rrule.StrToROption(rule)
	if err != nil {
		return nil, false, fmt.Errorf("rrule %q: %w", rule, err)
	}
	opt.Dtstart = dtstart

	if until.IsZero() {
		until = dtstart.Add(openRuleHorizon)
	}
	if opt.Count == 0 && (opt.Until.IsZero() || opt.Until.After(until)) {
		opt.Until = until
	}

	r, err := rrule.NewRRule(*opt)
	if err != nil {
		return nil, false, fmt.Errorf("rrule %q: %w", rule, err)
	}

	var out []time.Time
	next := r.Iterator()
	for {
		t, ok := next()
		if !ok {
			return out, false, nil
		}
		if len(out) == max {
			return out, true, nil
		}
		out = append(out, t)
	}
}

// ExpandConfig controls how imported events are expanded.
type ExpandConfig struct {
	// DisplayLocation is where occurrences end up; nil means time.Local.
	DisplayLocation *time.Location

	RangeStart time.Time
	RangeEnd   time.Time

	// MaxOccurrencesPerEvent caps each recurring event (zero means 500).
	MaxOccurrencesPerEvent int
}

// Occurrence is one concrete instance of an imported event.
type Occurrence struct {
	UID      string
	Summary  string
	Priority int
	AllDay   bool
	Start    time.Time
	End      time.Time
}

// ExpandResult wraps the occurrences and the UIDs that hit the cap.
type ExpandResult struct {
	Occurrences     []Occurrence
	TruncatedEvents []string
}

// ExpandOccurrences turns parsed events into concrete occurrences inside
// [RangeStart, RangeEnd]. It applies RRULE, EXDATE and RECURRENCE-ID
// overrides.
func ExpandOccurrences(events []ParsedEvent, cfg ExpandConfig) (ExpandResult, error) {
	var result ExpandResult

	if cfg.RangeEnd.Before(cfg.RangeStart) {
		return result, errors.New("expand: RangeEnd is before RangeStart")
	}
	if cfg.DisplayLocation == nil {
		cfg.DisplayLocation = time.Local
	}
	if cfg.MaxOccurrencesPerEvent <= 0 {
		cfg.MaxOccurrencesPerEvent = defaultMaxOccurrences
	}

	baseByUID := make(map[string][]ParsedEvent)
	overridesByUID := make(map[string][]ParsedEvent)
	order := make([]string, 0)
	for _, ev := range events {
		if ev.Recurrence != nil {
			overridesByUID[ev.UID] = append(overridesByUID[ev.UID], ev)
			continue
		}
		if _, seen := baseByUID[ev.UID]; !seen {
			order = append(order, ev.UID)
		}
		baseByUID[ev.UID] = append(baseByUID[ev.UID], ev)
	}

	for _, uid := range order {
		for _, ev := range baseByUID[uid] {
			occ, hitCap := expandEvent(ev, overridesByUID[uid], cfg)
			result.Occurrences = append(result.Occurrences, occ...)
			if hitCap {
				result.TruncatedEvents = append(result.TruncatedEvents, uid)
				appLog.Warn("expand: occurrences truncated", "uid", uid, "cap", cfg.MaxOccurrencesPerEvent)
			}
		}
	}
	return result, nil
}

func expandEvent(ev ParsedEvent, overrides []ParsedEvent, cfg ExpandConfig) ([]Occurrence, bool) {
	if ev.RawRRule == "" {
		if !overlaps(ev.Start, ev.End, cfg.RangeStart, cfg.RangeEnd) {
			return nil, false
		}
		return []Occurrence{occurrenceAt(ev, overrides, ev.Start, cfg.DisplayLocation)}, false
	}

	var set rrule.Set
	opt, err := rrule.StrToROption(ev.RawRRule)
	if err != nil {
		appLog.Error("expand: bad RRULE", err, "uid", ev.UID, "rrule", ev.RawRRule)
		return nil, false
	}
	opt.Dtstart = ev.Start
	r, err := rrule.NewRRule(*opt)
	if err != nil {
		appLog.Error("expand: bad RRULE", err, "uid", ev.UID, "rrule", ev.RawRRule)
		return nil, false
	}
	set.RRule(r)
	for _, ex := range ev.ExDates {
		set.ExDate(ex.In(ev.Start.Location()))
	}

	starts := set.Between(cfg.RangeStart.In(ev.Start.Location()), cfg.RangeEnd.In(ev.Start.Location()), true)
	hitCap := false
	if len(starts) > cfg.MaxOccurrencesPerEvent {
		starts = starts[:cfg.MaxOccurrencesPerEvent]
		hitCap = true
	}

	out := make([]Occurrence, 0, len(starts))
	for _, s := range starts {
		out = append(out, occurrenceAt(ev, overrides, s, cfg.DisplayLocation))
	}
	return out, hitCap
}

// occurrenceAt builds the occurrence starting at start, applying a matching
// RECURRENCE-ID override if there is one.
func occurrenceAt(ev ParsedEvent, overrides []ParsedEvent, start time.Time, loc *time.Location) Occurrence {
	end := start.Add(ev.End.Sub(ev.Start))
	src := ev
	for _, o := range overrides {
		if o.Recurrence != nil && o.Recurrence.Equal(start) {
			src, start, end = o, o.Start, o.End
			break
		}
	}
	return Occurrence{
		UID:      src.UID,
		Summary:  src.Summary,
		Priority: src.Priority,
		AllDay:   src.AllDay,
		Start:    start.In(loc),
		End:      end.In(loc),
	}
}

func overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return !aEnd.Before(bStart) && !bEnd.Before(aStart)
}

// Drafts turns timed occurrences into explicit-time drafts. All-day
// occurrences are skipped because they cannot become time blocks.
// Durations round up to the next half hour.
func Drafts(occs []Occurrence) []model.Draft {
	out := make([]model.Draft, 0, len(occs))
	for _, o := range occs {
		if o.AllDay || !o.End.After(o.Start) {
			continue
		}
		d := model.NewDraft(o.Start)
		d.Title = o.Summary
		if d.Title == "" {
			d.Title = "Imported event"
		}
		d.Duration = roundUpHalfHour(o.End.Sub(o.Start))
		d.Priority = priorityFromICS(o.Priority)
		out = append(out, d)
	}
	return out
}

func roundUpHalfHour(d time.Duration) time.Duration {
	const step = 30 * time.Minute
	if rem := d % step; rem != 0 {
		d += step - rem
	}
	return d
}

// priorityFromICS maps iCalendar 1 (highest) - 9 (lowest) onto 1-5.
// Undefined (0) maps to the default priority.
func priorityFromICS(p int) int {
	switch {
	case p <= 0 || p > 9:
		return model.DefaultPriority
	case p <= 2:
		return 1
	case p <= 4:
		return 2
	case p == 5:
		return 3
	case p <= 7:
		return 4
	default:
		return 5
	}
}

// priorityToICS is the inverse used by Export.
func priorityToICS(p int) int {
	switch p {
	case 1:
		return 1
	case 2:
		return 3
	case 3:
		return 5
	case 4:
		return 7
	case 5:
		return 9
	default:
		return 0
	}
}
