package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentCaptured PaymentStatus = "captured"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentPending, PaymentCaptured, PaymentFailed, PaymentRefunded:
		return true
	}
	return false
}

type RefundStatus string

const (
	RefundNone      RefundStatus = "none"
	RefundProcessed RefundStatus = "processed"
)

// Payment is the escrow record tied one-to-one to a session. The commission
// is snapshotted at booking time so a later config change never reprices
// money already held. IsReleasedToMentor flips false->true exactly once; a
// released payment can never be refunded afterwards.
type Payment struct {
	ID                    int64           `json:"id"`
	SessionID             int64           `json:"session_id"`
	MenteeID              int64           `json:"mentee_id"`
	MentorID              int64           `json:"mentor_id"`
	Provider              string          `json:"provider"`
	ProviderIntentID      *string         `json:"provider_intent_id,omitempty"`
	ProviderTransactionID *string         `json:"provider_transaction_id,omitempty"`
	Amount                decimal.Decimal `json:"amount"`
	PlatformCommission    decimal.Decimal `json:"platform_commission"`
	Status                PaymentStatus   `json:"status"`
	IsRefunded            bool            `json:"is_refunded"`
	RefundAmount          decimal.Decimal `json:"refund_amount"`
	RefundPercentage      decimal.Decimal `json:"refund_percentage"`
	RefundStatus          RefundStatus    `json:"refund_status"`
	RefundedAt            *time.Time      `json:"refunded_at,omitempty"`
	PaymentReleaseDate    *time.Time      `json:"payment_release_date,omitempty"`
	IsReleasedToMentor    bool            `json:"is_released_to_mentor"`
	ReleasedAt            *time.Time      `json:"released_at,omitempty"`
	CreatedAt             time.Time       `json:"created_at"`
}

// MentorPayout is the amount that moves to the mentor on release:
// Amount * (1 - commission), rounded to cents.
func (p *Payment) MentorPayout() decimal.Decimal {
	one := decimal.NewFromInt(1)
	return p.Amount.Mul(one.Sub(p.PlatformCommission)).Round(2)
}
