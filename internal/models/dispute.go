package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type DisputeStatus string

const (
	DisputePending     DisputeStatus = "pending"
	DisputeUnderReview DisputeStatus = "under_review"
	DisputeResolved    DisputeStatus = "resolved"
	DisputeClosed      DisputeStatus = "closed"
)

// IsActive reports whether the dispute still blocks payment release. Only a
// resolved or closed dispute lets escrowed funds move.
func (s DisputeStatus) IsActive() bool {
	return s == DisputePending || s == DisputeUnderReview
}

type DisputeResolution string

const (
	ResolutionRefundMentee    DisputeResolution = "refund_mentee"
	ResolutionReleaseToMentor DisputeResolution = "release_to_mentor"
	ResolutionDismissed       DisputeResolution = "dismissed"
)

func (r DisputeResolution) Valid() bool {
	switch r {
	case ResolutionRefundMentee, ResolutionReleaseToMentor, ResolutionDismissed:
		return true
	}
	return false
}

type SessionDispute struct {
	ID           int64              `json:"id"`
	SessionID    int64              `json:"session_id"`
	OpenedByID   int64              `json:"opened_by_id"`
	Reason       string             `json:"reason"`
	Description  *string            `json:"description,omitempty"`
	Status       DisputeStatus      `json:"status"`
	Resolution   *DisputeResolution `json:"resolution,omitempty"`
	RefundAmount decimal.Decimal    `json:"refund_amount"`
	AdminNotes   *string            `json:"admin_notes,omitempty"`
	ResolvedByID *int64             `json:"resolved_by_id,omitempty"`
	ResolvedAt   *time.Time         `json:"resolved_at,omitempty"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
}
