package validation

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weekcal/internal/apperr"
	"weekcal/internal/model"
)

func validDraft() model.Draft {
	d := model.NewDraft(time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC))
	d.Title = "Standup"
	return d
}

func TestValidate_Draft(t *testing.T) {
	v := New()

	tests := []struct {
		name      string
		mutate    func(*model.Draft)
		wantField string
	}{
		{name: "valid"},
		{name: "empty title", mutate: func(d *model.Draft) { d.Title = "" }, wantField: "title"},
		{name: "blank title", mutate: func(d *model.Draft) { d.Title = "   \t" }, wantField: "title"},
		{name: "zero duration", mutate: func(d *model.Draft) { d.Duration = 0 }, wantField: "duration"},
		{name: "20 minutes", mutate: func(d *model.Draft) { d.Duration = 20 * time.Minute }, wantField: "duration"},
		{name: "half hour ok", mutate: func(d *model.Draft) { d.Duration = 90 * time.Minute }},
		{name: "priority too low", mutate: func(d *model.Draft) { d.Priority = 0 }, wantField: "priority"},
		{name: "priority too high", mutate: func(d *model.Draft) { d.Priority = 6 }, wantField: "priority"},
		{name: "bad rrule", mutate: func(d *model.Draft) { d.Repeat = "FREQ=SOMETIMES" }, wantField: "repeat"},
		{name: "good rrule", mutate: func(d *model.Draft) { d.Repeat = "FREQ=WEEKLY;COUNT=4" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := validDraft()
			if tt.mutate != nil {
				tt.mutate(&d)
			}
			err := v.Validate(d)
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, apperr.ErrValidation)

			var ae *apperr.Error
			require.True(t, errors.As(err, &ae))
			assert.Contains(t, ae.Fields, tt.wantField)
		})
	}
}
