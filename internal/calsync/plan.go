package calsync

import (
	"weekcal/internal/apperr"
	"weekcal/internal/ics"
	"weekcal/internal/mapper"
	"weekcal/internal/model"
)

// maxInstances bounds how many occurrences one recurring draft may create.
const maxInstances = 366

// Plan builds the creation requests for a draft.
//
// A one-off draft is a single request. A recurring draft with explicit time
// becomes one request per occurrence of its rule; an auto-scheduled one
// stays a single request whose Instances is the occurrence count, and the
// server places each instance before Due, which defaults to the end of the
// last occurrence. Draft.Instances, when set, caps the count.
func Plan(d model.Draft) ([]model.TaskInput, error) {
	if d.Repeat == "" {
		in := mapper.EventToTaskInput(d, d.AutoSchedule)
		if d.AutoSchedule && d.Instances > 1 {
			in.Instances = d.Instances
		}
		return []model.TaskInput{in}, nil
	}

	limit := maxInstances
	if d.Instances > 0 && d.Instances < limit {
		limit = d.Instances
	}
	starts, _, err := ics.ExpandRule(d.Repeat, d.Start, d.Due, limit)
	if err != nil {
		return nil, apperr.ValidationWithFields("repeat rule is invalid", map[string]string{"repeat": err.Error()})
	}
	if len(starts) == 0 {
		return nil, apperr.Validation("repeat rule produces no occurrences")
	}

	if d.AutoSchedule {
		if d.Due.IsZero() {
			// Every instance must fit before the deadline.
			d.Due = starts[len(starts)-1].Add(d.Duration)
		}
		in := mapper.EventToTaskInput(d, true)
		in.Instances = len(starts)
		return []model.TaskInput{in}, nil
	}

	out := make([]model.TaskInput, 0, len(starts))
	for _, s := range starts {
		occ := d
		occ.Start = s
		out = append(out, mapper.EventToTaskInput(occ, false))
	}
	return out, nil
}
