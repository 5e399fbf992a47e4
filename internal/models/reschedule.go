package models

import "time"

type RescheduleStatus string

const (
	ReschedulePending  RescheduleStatus = "pending"
	RescheduleApproved RescheduleStatus = "approved"
	RescheduleRejected RescheduleStatus = "rejected"
	RescheduleExpired  RescheduleStatus = "expired"
)

func (s RescheduleStatus) IsTerminal() bool {
	return s == RescheduleApproved || s == RescheduleRejected || s == RescheduleExpired
}

// SessionReschedule is the in-flight record while a reschedule request is
// pending. At most one non-terminal record exists per session; approval
// rewrites the session schedule and resolves the record.
type SessionReschedule struct {
	ID            int64            `json:"id"`
	SessionID     int64            `json:"session_id"`
	RequestedByID int64            `json:"requested_by_id"`
	OriginalStart time.Time        `json:"original_start"`
	NewStart      time.Time        `json:"new_start"`
	NewTimeSlotID *int64           `json:"new_time_slot_id,omitempty"`
	Reason        string           `json:"reason"`
	Status        RescheduleStatus `json:"status"`
	ResolvedAt    *time.Time       `json:"resolved_at,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
}
