package service

import (
	"fmt"
	"time"

	"github.com/hallpasshq/hallpass-api/internal/models"
)

// Availability is the evaluated schedule state for a tenant at an instant.
type Availability struct {
	Open      bool `json:"open"`
	QueueOnly bool `json:"queue_only"`
}

// timezoneError signals that schedule evaluation is enabled but the tenant
// has no usable timezone. Evaluation fails closed: the tenant is treated as
// suspended and the misconfiguration is surfaced to the admin.
type timezoneError struct {
	tz string
}

func (e *timezoneError) Error() string {
	if e.tz == "" {
		return "schedule enabled but no timezone configured"
	}
	return fmt.Sprintf("invalid timezone %q", e.tz)
}

// EvaluateAvailability decides whether the tenant's pass is open, suspended,
// or queue-only at the given instant. It is a pure function of its inputs:
// identical settings, rules and instant always yield the identical result.
//
// Manual suspension wins over every rule. With scheduling disabled the
// tenant is always open. Otherwise availability is the union of all enabled,
// date-windowed rules whose recurrence matches the local date and whose
// [start, end) window contains the local wall-clock time. Queue-only applies
// whenever the tenant is suspended and allows queueing while suspended.
func EvaluateAvailability(settings models.TenantSettings, rules []models.ScheduleRule, now time.Time) (Availability, error) {
	if settings.Suspended {
		return Availability{Open: false, QueueOnly: settings.AllowQueueWhileSuspended}, nil
	}
	if !settings.ScheduleEnabled {
		return Availability{Open: true}, nil
	}

	if settings.Timezone == "" {
		return Availability{}, &timezoneError{}
	}
	loc, err := time.LoadLocation(settings.Timezone)
	if err != nil {
		return Availability{}, &timezoneError{tz: settings.Timezone}
	}

	// Wall-clock conversion, not a fixed UTC offset: a 08:00-15:00 window
	// keeps its local meaning across daylight-saving transitions.
	local := now.In(loc)
	minutes := local.Hour()*60 + local.Minute()
	date := dateOnly(local)

	for _, rule := range rules {
		if !rule.Enabled {
			continue
		}
		if !ruleCoversDate(rule, date) {
			continue
		}
		if !ruleMatchesDay(rule, date) {
			continue
		}
		start, err := parseClock(rule.StartTime)
		if err != nil {
			continue
		}
		end, err := parseClock(rule.EndTime)
		if err != nil {
			continue
		}
		if minutes >= start && minutes < end {
			return Availability{Open: true}, nil
		}
	}

	return Availability{Open: false, QueueOnly: settings.AllowQueueWhileSuspended}, nil
}

// ruleCoversDate checks the [startDate, endDate or +inf] window against the
// local date.
func ruleCoversDate(rule models.ScheduleRule, date time.Time) bool {
	start := dateOnly(rule.StartDate)
	if date.Before(start) {
		return false
	}
	if rule.EndDate != nil && date.After(dateOnly(*rule.EndDate)) {
		return false
	}
	return true
}

func ruleMatchesDay(rule models.ScheduleRule, date time.Time) bool {
	switch rule.Recurrence {
	case models.RecurrenceNone:
		return date.Equal(dateOnly(rule.StartDate))
	case models.RecurrenceWeekdays:
		wd := date.Weekday()
		return wd >= time.Monday && wd <= time.Friday
	case models.RecurrenceWeekly:
		return date.Weekday() == rule.AnchorWeekday()
	case models.RecurrenceCustom:
		return rule.MatchesWeekday(date.Weekday())
	}
	return false
}

// dateOnly strips the time-of-day, keeping only the calendar date in UTC so
// dates from different zones compare by their components.
func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// parseClock converts an "HH:MM" wall-clock string to minutes past midnight.
func parseClock(s string) (int, error) {
	var hh, mm int
	if _, err := fmt.Sscanf(s, "%d:%d", &hh, &mm); err != nil {
		return 0, fmt.Errorf("parse clock %q: %w", s, err)
	}
	if hh < 0 || hh > 23 || mm < 0 || mm > 59 {
		return 0, fmt.Errorf("clock %q out of range", s)
	}
	return hh*60 + mm, nil
}
