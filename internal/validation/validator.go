// Package validation checks drafts before anything is sent to the server.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/teambition/rrule-go"

	"weekcal/internal/apperr"
)

// Validator wraps go-playground/validator with apperr conversion.
type Validator struct {
	v *validator.Validate
}

// New creates a validator with the calendar-specific tags registered:
//
//   - notblank: string is not empty after trimming whitespace
//   - halfhour: time.Duration is a whole number of half hours
//   - rrule:    string parses as an RRULE
func New() *Validator {
	v := validator.New()

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})

	// Registration only fails on an empty tag or nil func.
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	_ = v.RegisterValidation("halfhour", func(fl validator.FieldLevel) bool {
		d := time.Duration(fl.Field().Int())
		return d%(30*time.Minute) == 0
	})
	_ = v.RegisterValidation("rrule", func(fl validator.FieldLevel) bool {
		_, err := rrule.StrToROption(fl.Field().String())
		return err == nil
	})

	return &Validator{v: v}
}

// Validate validates a struct and returns an apperr validation error.
func (v *Validator) Validate(s any) error {
	if err := v.v.Struct(s); err != nil {
		return v.formatError(err)
	}
	return nil
}

func (v *Validator) formatError(err error) error {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}

	fields := make(map[string]string, len(validationErrs))
	msgs := make([]string, 0, len(validationErrs))
	for _, e := range validationErrs {
		m := friendlyMessage(e)
		fields[e.Field()] = m
		msgs = append(msgs, e.Field()+" "+m)
	}
	return apperr.ValidationWithFields(strings.Join(msgs, "; "), fields)
}

func friendlyMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required", "notblank":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s", e.Param())
	case "max":
		return fmt.Sprintf("must not exceed %s", e.Param())
	case "gt":
		return "must be positive"
	case "halfhour":
		return "must be a multiple of 30 minutes"
	case "rrule":
		return "must be a valid recurrence rule"
	default:
		return "is invalid"
	}
}
