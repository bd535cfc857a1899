package models

import "time"

// RosterEntry is a row in the tenant's roster directory. The engine only
// sees opaque student references; display names live here for the admin UI.
type RosterEntry struct {
	TenantID    string     `db:"tenant_id" json:"tenant_id"`
	StudentRef  string     `db:"student_ref" json:"student_ref"`
	DisplayName string     `db:"display_name" json:"display_name"`
	Banned      bool       `db:"banned" json:"banned"`
	BannedSince *time.Time `db:"banned_since" json:"banned_since,omitempty"`
}

// BanDays returns how many whole days the entry has been banned, or nil.
func (e RosterEntry) BanDays(now time.Time) *int {
	if !e.Banned || e.BannedSince == nil {
		return nil
	}
	days := int(now.Sub(*e.BannedSince).Hours() / 24)
	return &days
}
