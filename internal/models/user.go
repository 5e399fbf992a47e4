package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// MentorProfile carries the subset of mentor data the booking flow needs:
// the hourly rate that prices a session. Full profile management lives in
// another service.
type MentorProfile struct {
	UserID     int64            `json:"user_id"`
	FullName   string           `json:"full_name"`
	HourlyRate *decimal.Decimal `json:"hourly_rate"`
	CreatedAt  time.Time        `json:"created_at"`
	UpdatedAt  time.Time        `json:"updated_at"`
}
