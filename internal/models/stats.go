package models

// StudentInsight names a student alongside a ranked count.
type StudentInsight struct {
	StudentRef string `json:"student_ref"`
	Name       string `json:"name"`
	Count      int    `json:"count"`
}

// DashboardInsights are 30-day rollups for the admin dashboard.
type DashboardInsights struct {
	TopStudents []StudentInsight `json:"top_students"`
	MostOverdue []StudentInsight `json:"most_overdue"`
}

// DashboardStats is the admin dashboard summary.
type DashboardStats struct {
	RoomName      string            `json:"room_name"`
	TotalSessions int               `json:"total_sessions"`
	ActiveCount   int               `json:"active_sessions_count"`
	RosterCount   int               `json:"roster_count"`
	QueueLength   int               `json:"queue_length"`
	Settings      TenantSettings    `json:"settings"`
	Insights      DashboardInsights `json:"insights"`
}
