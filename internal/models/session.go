package models

import "time"

// SessionStatus enumerates pass session states.
type SessionStatus string

const (
	SessionActive    SessionStatus = "active"
	SessionOverdue   SessionStatus = "overdue"
	SessionCompleted SessionStatus = "completed"
)

// Session actors recorded in started_by / ended_by.
const (
	ActorKioskScan   = "kiosk_scan"
	ActorAutoPromote = "auto_promote"
	ActorAdmin       = "admin_override"
)

// Session represents one student's claim on the hall pass. At most one
// session per (tenant, student) is active at a time.
type Session struct {
	ID              string        `db:"id" json:"id"`
	TenantID        string        `db:"tenant_id" json:"tenant_id"`
	StudentRef      string        `db:"student_ref" json:"student_ref"`
	StartTS         time.Time     `db:"start_ts" json:"start_ts"`
	EndTS           *time.Time    `db:"end_ts" json:"end_ts,omitempty"`
	Status          SessionStatus `db:"status" json:"status"`
	StartedBy       string        `db:"started_by" json:"started_by"`
	EndedBy         *string       `db:"ended_by" json:"ended_by,omitempty"`
	OverdueBannedAt *time.Time    `db:"overdue_banned_at" json:"-"`
}

// Elapsed returns the session duration up to now, or the final duration for
// an ended session.
func (s Session) Elapsed(now time.Time) time.Duration {
	end := now
	if s.EndTS != nil {
		end = *s.EndTS
	}
	return end.Sub(s.StartTS)
}

// IsOverdue reports whether the session has exceeded the overdue threshold.
// Overdue-ness is a computed view of elapsed time, not a stored transition.
func (s Session) IsOverdue(now time.Time, threshold time.Duration) bool {
	return s.Elapsed(now) > threshold
}

// SessionAggregate is a per-student rollup used for dashboard insights.
type SessionAggregate struct {
	StudentRef string `db:"student_ref" json:"student_ref"`
	Total      int    `db:"total" json:"total"`
	Overdue    int    `db:"overdue" json:"overdue"`
}

// SessionLog is the admin-facing view of one history row.
type SessionLog struct {
	ID              string        `json:"id"`
	StudentRef      string        `json:"student_ref"`
	Name            string        `json:"name"`
	Start           time.Time     `json:"start"`
	End             *time.Time    `json:"end,omitempty"`
	DurationMinutes float64       `json:"duration_minutes"`
	Status          SessionStatus `json:"status"`
}
