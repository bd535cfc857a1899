package models

import "time"

// ActiveSessionView is one active pass in the polling status payload.
type ActiveSessionView struct {
	ID             string `json:"id"`
	StudentRef     string `json:"student_ref"`
	Name           string `json:"name"`
	StartMS        int64  `json:"start_ms"`
	ElapsedSeconds int    `json:"elapsed"`
	Overdue        bool   `json:"overdue"`
}

// QueueView is one waitlist entry in the polling status payload.
type QueueView struct {
	StudentRef string `json:"student_ref"`
	Name       string `json:"name"`
	Ordinal    int    `json:"ordinal"`
}

// StatusPayload is the snapshot polled by kiosks and displays. Safe to
// compute read-only from current state.
type StatusPayload struct {
	ServerTimeMS   int64               `json:"server_time_ms"`
	RoomName       string              `json:"room_name"`
	Suspended      bool                `json:"suspended"`
	QueueOnly      bool                `json:"queue_only"`
	Capacity       int                 `json:"capacity"`
	ActiveCount    int                 `json:"active_count"`
	QueueLength    int                 `json:"queue_length"`
	OverdueMinutes int                 `json:"overdue_minutes"`
	ActiveSessions []ActiveSessionView `json:"active_sessions"`
	Queue          []QueueView         `json:"queue"`

	// Per-student flags, populated only when the caller identifies one.
	IsStudentActive bool `json:"is_student_active"`
	IsStudentQueued bool `json:"is_student_queued"`
}

// Stamp records the generation time. Payloads are cached briefly for polling
// clients; the server timestamp keeps elapsed values honest client-side.
func (p *StatusPayload) Stamp(now time.Time) {
	p.ServerTimeMS = now.UnixMilli()
}
