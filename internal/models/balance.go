package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// MentorBalance aggregates a mentor's earnings. Created lazily on the first
// captured payment.
//
// Invariants, enforced by guarded SQL deltas in the repository:
//   - AvailableBalance >= 0 and PendingBalance >= 0 after every mutation
//   - AvailableBalance + PendingBalance <= TotalEarnings
//   - TotalEarnings never decreases
type MentorBalance struct {
	MentorID         int64           `json:"mentor_id"`
	AvailableBalance decimal.Decimal `json:"available_balance"`
	PendingBalance   decimal.Decimal `json:"pending_balance"`
	TotalEarnings    decimal.Decimal `json:"total_earnings"`
	UpdatedAt        time.Time       `json:"updated_at"`
}
