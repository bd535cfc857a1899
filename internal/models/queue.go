package models

import "time"

// QueueEntry is one student's place on a tenant's waitlist. Ordinals form a
// dense permutation [0, n) per tenant; a student appears at most once.
type QueueEntry struct {
	ID         string    `db:"id" json:"id"`
	TenantID   string    `db:"tenant_id" json:"tenant_id"`
	StudentRef string    `db:"student_ref" json:"student_ref"`
	JoinedTS   time.Time `db:"joined_ts" json:"joined_ts"`
	Ordinal    int       `db:"ordinal" json:"ordinal"`
}
