package models

import (
	"time"

	"github.com/lib/pq"
)

// RecurrenceKind is the tagged recurrence variant for schedule rules.
type RecurrenceKind string

const (
	// RecurrenceNone matches only the rule's exact start date.
	RecurrenceNone RecurrenceKind = "none"
	// RecurrenceWeekdays matches Monday through Friday.
	RecurrenceWeekdays RecurrenceKind = "weekdays"
	// RecurrenceWeekly matches the weekday of the rule's start date.
	RecurrenceWeekly RecurrenceKind = "weekly"
	// RecurrenceCustom matches the explicit day set in CustomDays.
	RecurrenceCustom RecurrenceKind = "custom"
)

// ValidRecurrenceKind reports whether the kind is one of the known variants.
func ValidRecurrenceKind(kind RecurrenceKind) bool {
	switch kind {
	case RecurrenceNone, RecurrenceWeekdays, RecurrenceWeekly, RecurrenceCustom:
		return true
	}
	return false
}

// ScheduleRule describes one recurring availability window for a tenant.
// Times of day are wall-clock "HH:MM" strings evaluated in the tenant's
// timezone; StartTime must sort before EndTime (no overnight spans).
type ScheduleRule struct {
	ID         string         `db:"id" json:"id"`
	TenantID   string         `db:"tenant_id" json:"tenant_id"`
	Label      string         `db:"label" json:"label"`
	StartTime  string         `db:"start_time" json:"start_time"`
	EndTime    string         `db:"end_time" json:"end_time"`
	StartDate  time.Time      `db:"start_date" json:"start_date"`
	EndDate    *time.Time     `db:"end_date" json:"end_date,omitempty"`
	Recurrence RecurrenceKind `db:"recurrence" json:"recurrence"`
	CustomDays pq.Int64Array  `db:"custom_days" json:"custom_days,omitempty"`
	Enabled    bool           `db:"enabled" json:"enabled"`
	CreatedAt  time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time      `db:"updated_at" json:"updated_at"`
}

// AnchorWeekday is the weekday a weekly rule repeats on.
func (r ScheduleRule) AnchorWeekday() time.Weekday {
	return r.StartDate.Weekday()
}

// MatchesWeekday reports whether the custom day set contains the weekday.
// Days are stored as integers matching time.Weekday (0 = Sunday).
func (r ScheduleRule) MatchesWeekday(day time.Weekday) bool {
	for _, d := range r.CustomDays {
		if time.Weekday(d) == day {
			return true
		}
	}
	return false
}
