package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type SessionStatus string

const (
	SessionPending           SessionStatus = "pending"
	SessionConfirmed         SessionStatus = "confirmed"
	SessionInProgress        SessionStatus = "in_progress"
	SessionPendingReschedule SessionStatus = "pending_reschedule"
	SessionCompleted         SessionStatus = "completed"
	SessionCancelled         SessionStatus = "cancelled"
)

func (s SessionStatus) Valid() bool {
	switch s {
	case SessionPending, SessionConfirmed, SessionInProgress,
		SessionPendingReschedule, SessionCompleted, SessionCancelled:
		return true
	}
	return false
}

func (s SessionStatus) IsTerminal() bool {
	return s == SessionCompleted || s == SessionCancelled
}

// CanTransitionTo is the single source of truth for the session lifecycle.
// Every status write goes through a compare-and-swap on the current status,
// so a transition rejected here can never reach storage.
func (s SessionStatus) CanTransitionTo(next SessionStatus) bool {
	switch s {
	case SessionPending:
		return next == SessionConfirmed || next == SessionCancelled
	case SessionConfirmed:
		return next == SessionInProgress || next == SessionCompleted ||
			next == SessionCancelled || next == SessionPendingReschedule
	case SessionInProgress:
		return next == SessionCompleted
	case SessionPendingReschedule:
		return next == SessionConfirmed || next == SessionCancelled
	default:
		return false
	}
}

type Session struct {
	ID              int64           `json:"id"`
	MenteeID        int64           `json:"mentee_id"`
	MentorID        int64           `json:"mentor_id"`
	TimeSlotID      int64           `json:"time_slot_id"`
	DurationMinutes int             `json:"duration_minutes"`
	ScheduledStart  time.Time       `json:"scheduled_start"`
	ScheduledEnd    time.Time       `json:"scheduled_end"`
	Status          SessionStatus   `json:"status"`
	Price           decimal.Decimal `json:"price"`
	Topic           *string         `json:"topic,omitempty"`
	Notes           *string         `json:"notes,omitempty"`
	VideoLink       *string         `json:"video_link,omitempty"`
	CompletedAt     *time.Time      `json:"completed_at,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// CanCancel reports whether the session may still be cancelled. Completion is
// the point of no return; the refund policy decides how much money comes back.
func (s *Session) CanCancel() bool {
	return s.CompletedAt == nil &&
		(s.Status == SessionPending || s.Status == SessionConfirmed)
}

// CanReschedule requires a confirmed session with more than leadTime left
// before the scheduled start.
func (s *Session) CanReschedule(now time.Time, leadTime time.Duration) bool {
	return s.Status == SessionConfirmed && s.ScheduledStart.Sub(now) > leadTime
}

type SessionDetail struct {
	Session
	Payment *Payment `json:"payment,omitempty"`
}
