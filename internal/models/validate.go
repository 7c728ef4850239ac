package models

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Form-level checks. The store itself accepts any record; these run where
// records enter from a form (HTTP API, MCP tools, CLI).

func in[T comparable](vals []T) validation.Rule {
	list := make([]interface{}, len(vals))
	for i, v := range vals {
		list[i] = v
	}
	return validation.In(list...).Error("must be one of the allowed values")
}

var isDate = validation.By(func(v interface{}) error {
	s, _ := v.(string)
	if s == "" {
		return nil
	}
	if _, err := ParseDate(s); err != nil {
		return validation.NewError("validation_date", "must be a valid date")
	}
	return nil
})

func clockTime(s string) (time.Time, bool) {
	t, err := time.Parse("15:04", s)
	return t, err == nil
}

var isClockTime = validation.By(func(v interface{}) error {
	s, _ := v.(string)
	if s == "" {
		return nil
	}
	if _, ok := clockTime(s); !ok {
		return validation.NewError("validation_time", "must be a time in HH:MM format")
	}
	return nil
})

// notBefore fails when both dates parse and end is earlier than start.
func notBefore(start string) validation.Rule {
	return validation.By(func(v interface{}) error {
		end, _ := v.(string)
		s, err1 := ParseDate(start)
		e, err2 := ParseDate(end)
		if err1 != nil || err2 != nil || !e.Before(s) {
			return nil
		}
		return validation.NewError("validation_date_order", "must not be before the start date")
	})
}

func (p Project) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&p.Client, validation.Required, validation.Length(1, 200)),
		validation.Field(&p.StartDate, isDate),
		validation.Field(&p.EndDate, isDate, notBefore(p.StartDate)),
		validation.Field(&p.Budget, validation.Min(0.0)),
		validation.Field(&p.Status, in(ProjectStatuses)),
	)
}

func (t Task) Validate() error {
	return validation.ValidateStruct(&t,
		validation.Field(&t.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&t.DueDate, isDate),
		validation.Field(&t.Priority, in(Priorities)),
		validation.Field(&t.Status, in(TaskStatuses)),
		validation.Field(&t.EstimatedHours, validation.Min(0.0)),
	)
}

func (s ScheduleEvent) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Title, validation.Required, validation.Length(1, 200)),
		validation.Field(&s.Date, validation.Required, isDate),
		validation.Field(&s.StartTime, isClockTime),
		validation.Field(&s.EndTime,
			validation.When(s.StartTime != "", validation.Required),
			isClockTime,
			validation.By(func(v interface{}) error {
				end, _ := v.(string)
				st, ok1 := clockTime(s.StartTime)
				et, ok2 := clockTime(end)
				if ok1 && ok2 && !et.After(st) {
					return validation.NewError("validation_time_order", "must be after the start time")
				}
				return nil
			}),
		),
		validation.Field(&s.RecurringPattern,
			validation.When(s.IsRecurring, validation.Required),
			in(RecurrencePatterns),
		),
	)
}

func (p Payment) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Description, validation.Required, validation.Length(1, 500)),
		validation.Field(&p.Amount, validation.Required, validation.Min(0.0).Exclusive()),
		validation.Field(&p.Date, isDate),
		validation.Field(&p.DueDate, isDate),
		validation.Field(&p.Status, in(PaymentStatuses)),
		validation.Field(&p.Type, in(PaymentTypes)),
	)
}
