package models

import "time"

// Allowed slot lengths in minutes.
const (
	SlotDurationShort = 30
	SlotDurationLong  = 60
)

// TimeSlot is a mentor-owned availability interval. A slot is booked by at
// most one non-cancelled session at a time; SessionID points at it while the
// booking is live and is cleared when the slot is released.
type TimeSlot struct {
	ID              int64     `json:"id"`
	MentorID        int64     `json:"mentor_id"`
	StartTime       time.Time `json:"start_time"`
	DurationMinutes int       `json:"duration_minutes"`
	IsBooked        bool      `json:"is_booked"`
	SessionID       *int64    `json:"session_id,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (s *TimeSlot) EndTime() time.Time {
	return s.StartTime.Add(time.Duration(s.DurationMinutes) * time.Minute)
}

func ValidSlotDuration(minutes int) bool {
	return minutes == SlotDurationShort || minutes == SlotDurationLong
}
