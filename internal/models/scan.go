package models

// ScanOutcome enumerates the deterministic results of a kiosk scan.
type ScanOutcome string

const (
	OutcomeStarted     ScanOutcome = "started"
	OutcomeEnded       ScanOutcome = "ended"
	OutcomeEndedBanned ScanOutcome = "ended_banned"
	OutcomeQueued      ScanOutcome = "queued"
	OutcomeLeftQueue   ScanOutcome = "left_queue"
	OutcomeDenied      ScanOutcome = "denied"
)

// DenyReason qualifies an OutcomeDenied result. Denials are expected
// business outcomes, not errors.
type DenyReason string

const (
	DenyBanned       DenyReason = "banned"
	DenySuspended    DenyReason = "suspended"
	DenyCapacityFull DenyReason = "capacity_full"
)

// ScanResult is the structured outcome of one scan event.
type ScanResult struct {
	Outcome         ScanOutcome `json:"outcome"`
	Reason          DenyReason  `json:"reason,omitempty"`
	Message         string      `json:"message"`
	StudentName     string      `json:"name,omitempty"`
	QueuePosition   *int        `json:"queue_position,omitempty"`
	PromotedStudent *string     `json:"next_student,omitempty"`
}
