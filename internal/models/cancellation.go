package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// MinCancellationReasonLength guards against empty-handed cancellations; the
// reason ends up in support tooling.
const MinCancellationReasonLength = 10

// SessionCancellation is created exactly once, when a session is cancelled.
type SessionCancellation struct {
	ID               int64           `json:"id"`
	SessionID        int64           `json:"session_id"`
	CancelledByID    int64           `json:"cancelled_by_id"`
	Reason           string          `json:"reason"`
	RefundAmount     decimal.Decimal `json:"refund_amount"`
	RefundPercentage decimal.Decimal `json:"refund_percentage"`
	RefundStatus     RefundStatus    `json:"refund_status"`
	CreatedAt        time.Time       `json:"created_at"`
}
